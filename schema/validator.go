// Package schema validates request and response documents against stored
// JSON Schema definitions.
package schema

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Result is the outcome of a validation pass.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// valid is the vacuous success result.
var valid = Result{Valid: true}

// Validator validates documents against JSON Schema definitions. Compiled
// schemas are cached by content, so repeated validation against the same
// stored schema compiles once.
type Validator struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema // keyed by schema JSON content
}

// NewValidator creates a new schema validator.
func NewValidator() *Validator {
	return &Validator{
		cache: make(map[string]*jsonschema.Schema),
	}
}

// Validate checks data against the stored schema JSON. A missing, empty,
// non-object, or unparseable schema is vacuously valid: configuration is
// read from a store that may hold a mid-edit snapshot, and a broken schema
// must not turn every request into a validation failure. Validate never
// panics and never returns an error; violations come back as a message list.
func (v *Validator) Validate(schemaJSON json.RawMessage, data any) Result {
	if len(schemaJSON) == 0 {
		return valid
	}

	compiled, ok := v.compile(schemaJSON)
	if !ok {
		return valid
	}

	err := compiled.Validate(data)
	if err == nil {
		return valid
	}

	return Result{Errors: flatten(err)}
}

// compile returns a compiled schema, using the cache for previously-seen
// content. Returns ok=false when the schema is not a usable JSON object.
func (v *Validator) compile(schemaJSON json.RawMessage) (*jsonschema.Schema, bool) {
	key := string(schemaJSON)

	v.mu.RLock()
	if cached, ok := v.cache[key]; ok {
		v.mu.RUnlock()
		return cached, true
	}
	v.mu.RUnlock()

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, false
	}
	if _, isObject := doc.(map[string]any); !isObject {
		return nil, false
	}

	// The resource URL is keyed by content hash so any schema text,
	// pretty-printed or not, yields a valid identifier.
	sum := sha256.Sum256(schemaJSON)
	url := "conduit://schema/" + hex.EncodeToString(sum[:])

	c := jsonschema.NewCompiler()
	c.AssertFormat()
	if addErr := c.AddResource(url, doc); addErr != nil {
		return nil, false
	}

	compiled, err := c.Compile(url)
	if err != nil {
		return nil, false
	}

	v.mu.Lock()
	v.cache[key] = compiled
	v.mu.Unlock()

	return compiled, true
}

// flatten turns a validation error into a flat message list, one entry per
// violation.
func flatten(err error) []string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}

	var out []string
	for _, line := range strings.Split(ve.Error(), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if line == "" || strings.HasPrefix(line, "jsonschema validation failed") {
			continue
		}
		out = append(out, line)
	}
	if len(out) == 0 {
		out = []string{ve.Error()}
	}
	return out
}

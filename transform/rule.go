package transform

import "encoding/json"

// Rule describes how one output field is produced. Exactly one of Source or
// Value supplies the input; Default fills in when extraction yields nothing;
// Transform and Type apply afterward, in that order.
type Rule struct {
	// Source is the extraction path into the input document.
	Source string `json:"source,omitempty"`

	// Value is a literal, used instead of extraction.
	Value any `json:"value,omitempty"`

	// Default is used when extraction yields nil.
	Default any `json:"default,omitempty"`

	// Transform is a vocabulary or registry transform name.
	Transform string `json:"transform,omitempty"`

	// Type casts the final value: string, int, float, bool, or array.
	Type string `json:"type,omitempty"`

	// literal is set when the rule was given as a bare non-string JSON
	// value: the rule evaluates to that value directly.
	literal    any
	hasLiteral bool
}

// UnmarshalJSON accepts the three stored rule shapes: a bare string (a
// source path), a rule object, or any other JSON value (a literal).
func (r *Rule) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = Rule{Source: s}
		return nil
	}

	type plain Rule
	var p plain
	if err := json.Unmarshal(data, &p); err == nil && !isScalar(data) {
		*r = Rule(p)
		return nil
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Rule{literal: v, hasLiteral: true}
	return nil
}

// RuleSet is a mapping of output field name to rule.
type RuleSet map[string]Rule

// ParseRuleSet decodes a stored JSON ruleset. Returns nil for empty or
// malformed input; a broken ruleset reads as "no mapping configured".
func ParseRuleSet(raw json.RawMessage) RuleSet {
	if len(raw) == 0 {
		return nil
	}
	var rs RuleSet
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil
	}
	return rs
}

// eval produces the rule's value from the input document: extract or take
// the literal, default, transform, cast.
func (r Rule) eval(input any, reg *Registry) any {
	var value any

	switch {
	case r.hasLiteral:
		value = r.literal
	case r.Source != "":
		value = Lookup(input, r.Source)
	case r.Value != nil:
		value = r.Value
	}

	if value == nil && r.Default != nil {
		value = r.Default
	}

	if value != nil && r.Transform != "" {
		value = reg.Apply(r.Transform, value)
	}

	if value != nil && r.Type != "" {
		value = castType(value, r.Type)
	}

	return value
}

// isScalar reports whether data is a JSON scalar (not an object or array).
func isScalar(data []byte) bool {
	for _, c := range data {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', '[':
			return false
		default:
			return true
		}
	}
	return true
}

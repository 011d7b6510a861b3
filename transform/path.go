package transform

import (
	"regexp"
	"strconv"
	"strings"
)

// bracketIndex rewrites "items[0]" into "items.0" so bracket-indexed array
// access shares the dot-notation walk.
var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// Lookup extracts a value from a document by path. Paths use dot notation
// with optional bracket-indexed array access ("items[0].name"); a leading
// JSONPath-style "$." is stripped. Returns nil when any segment is missing.
func Lookup(data any, path string) any {
	path = strings.TrimPrefix(path, "$.")
	path = bracketIndex.ReplaceAllString(path, ".$1")

	value := data
	for _, key := range strings.Split(path, ".") {
		if key == "" {
			return nil
		}

		switch v := value.(type) {
		case map[string]any:
			next, ok := v[key]
			if !ok {
				return nil
			}
			value = next
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil
			}
			value = v[idx]
		default:
			return nil
		}
	}

	return value
}

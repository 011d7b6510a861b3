package transform

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateLayout is the output layout for date_format and one of the accepted
// input layouts for timestamp.
const dateLayout = "2006-01-02 15:04:05"

// timestampLayouts are tried in order when parsing a string into a unix
// timestamp.
var timestampLayouts = []string{
	time.RFC3339,
	dateLayout,
	"2006-01-02",
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	emailCharPattern  = regexp.MustCompile("[^a-zA-Z0-9!#$%&'*+/=?^_`{|}~.@-]")
)

// applyBuiltin runs a built-in transform. The second return value reports
// whether name is part of the built-in vocabulary; transforms that do not
// apply to the value's type pass it through unchanged.
func applyBuiltin(name string, value any) (any, bool) {
	switch name {
	case "uppercase":
		if s, ok := value.(string); ok {
			return strings.ToUpper(s), true
		}
		return value, true

	case "lowercase":
		if s, ok := value.(string); ok {
			return strings.ToLower(s), true
		}
		return value, true

	case "trim":
		if s, ok := value.(string); ok {
			return strings.TrimSpace(s), true
		}
		return value, true

	case "sanitize_text":
		if s, ok := value.(string); ok {
			s = tagPattern.ReplaceAllString(s, "")
			s = whitespacePattern.ReplaceAllString(s, " ")
			return strings.TrimSpace(s), true
		}
		return value, true

	case "sanitize_email":
		if s, ok := value.(string); ok {
			s = emailCharPattern.ReplaceAllString(strings.TrimSpace(s), "")
			if !strings.Contains(s, "@") {
				return "", true
			}
			return s, true
		}
		return value, true

	case "sanitize_url":
		if s, ok := value.(string); ok {
			return sanitizeURL(s), true
		}
		return value, true

	case "strip_tags":
		if s, ok := value.(string); ok {
			return tagPattern.ReplaceAllString(s, ""), true
		}
		return value, true

	case "date_format":
		if ts, ok := asInt64(value); ok {
			return time.Unix(ts, 0).UTC().Format(dateLayout), true
		}
		return value, true

	case "timestamp":
		if s, ok := value.(string); ok {
			for _, layout := range timestampLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t.Unix(), true
				}
			}
		}
		return value, true

	case "json_encode":
		b, err := json.Marshal(value)
		if err != nil {
			return value, true
		}
		return string(b), true

	case "json_decode":
		if s, ok := value.(string); ok {
			var v any
			if err := json.Unmarshal([]byte(s), &v); err == nil {
				return v, true
			}
		}
		return value, true

	case "implode":
		if arr, ok := value.([]any); ok {
			parts := make([]string, len(arr))
			for i, v := range arr {
				parts[i] = stringify(v)
			}
			return strings.Join(parts, ", "), true
		}
		return value, true

	case "explode":
		if s, ok := value.(string); ok {
			parts := strings.Split(s, ",")
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return out, true
		}
		return value, true

	case "count":
		if arr, ok := value.([]any); ok {
			return len(arr), true
		}
		if truthy(value) {
			return 1, true
		}
		return 0, true
	}

	return nil, false
}

// castType casts a value to the named type, applied after any transform.
func castType(value any, typ string) any {
	switch typ {
	case "string":
		return stringify(value)

	case "int", "integer":
		n, _ := asInt64(value)
		return n

	case "float", "double":
		f, _ := asFloat64(value)
		return f

	case "bool", "boolean":
		return truthy(value)

	case "array":
		switch v := value.(type) {
		case []any:
			return v
		case nil:
			return []any{}
		case map[string]any:
			return v
		default:
			return []any{value}
		}
	}

	return value
}

func sanitizeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	if u.Scheme == "" {
		u, err = url.Parse("http://" + s)
		if err != nil {
			return ""
		}
	}
	return u.String()
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return int64(f), true
		}
		return 0, false
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func asFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != "" && v != "0"
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

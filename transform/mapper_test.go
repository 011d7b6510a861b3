package transform_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/xraph/conduit/transform"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("decode input: %v", err)
	}
	return v
}

func rules(t *testing.T, raw string) transform.RuleSet {
	t.Helper()
	rs := transform.ParseRuleSet(json.RawMessage(raw))
	if rs == nil {
		t.Fatalf("ruleset did not parse: %s", raw)
	}
	return rs
}

func TestMapSimpleFieldRename(t *testing.T) {
	m := transform.NewMapper(nil)

	out := m.Map(decode(t, `{"name":"Ada"}`), rules(t, `{"full_name":"name"}`))

	want := map[string]any{"full_name": "Ada"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

func TestMapNestedPathAndBracketIndex(t *testing.T) {
	m := transform.NewMapper(nil)
	input := decode(t, `{"user":{"emails":["a@x.io","b@x.io"]},"items":[{"sku":"A1"}]}`)

	out := m.Map(input, rules(t, `{
		"email": "user.emails[0]",
		"sku":   "$.items[0].sku"
	}`))

	if out["email"] != "a@x.io" {
		t.Errorf("email = %v", out["email"])
	}
	if out["sku"] != "A1" {
		t.Errorf("sku = %v", out["sku"])
	}
}

func TestMapRuleObjectDefaultTransformType(t *testing.T) {
	m := transform.NewMapper(nil)
	input := decode(t, `{"name":"  ada  ","qty":"12"}`)

	out := m.Map(input, rules(t, `{
		"name":    {"source": "name", "transform": "trim"},
		"qty":     {"source": "qty", "type": "int"},
		"country": {"source": "address.country", "default": "us", "transform": "uppercase"}
	}`))

	if out["name"] != "ada" {
		t.Errorf("name = %q", out["name"])
	}
	if out["qty"] != int64(12) {
		t.Errorf("qty = %v (%T)", out["qty"], out["qty"])
	}
	if out["country"] != "US" {
		t.Errorf("country = %v", out["country"])
	}
}

func TestMapMissingSourceOmitsKey(t *testing.T) {
	m := transform.NewMapper(nil)

	out := m.Map(decode(t, `{"a":1}`), rules(t, `{"b":"missing.path"}`))

	if _, ok := out["b"]; ok {
		t.Errorf("expected b omitted, got %v", out["b"])
	}
}

func TestMapLiteralRule(t *testing.T) {
	m := transform.NewMapper(nil)

	out := m.Map(decode(t, `{}`), rules(t, `{"version": 2, "flag": true}`))

	if out["version"] != float64(2) {
		t.Errorf("version = %v", out["version"])
	}
	if out["flag"] != true {
		t.Errorf("flag = %v", out["flag"])
	}
}

func TestMapIdempotent(t *testing.T) {
	m := transform.NewMapper(nil)
	input := decode(t, `{"name":"ada","tags":["a","b"],"ts":"2024-01-02T03:04:05Z"}`)
	rs := rules(t, `{
		"name": {"source": "name", "transform": "uppercase"},
		"tags": {"source": "tags", "transform": "implode"},
		"ts":   {"source": "ts", "transform": "timestamp"}
	}`)

	first := m.Map(input, rs)
	second := m.Map(input, rs)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("mapping is not idempotent: %v vs %v", first, second)
	}
}

func TestMapCustomRegisteredTransform(t *testing.T) {
	reg := transform.NewRegistry()
	reg.Register("reverse", func(v any) any {
		s, ok := v.(string)
		if !ok {
			return v
		}
		r := []rune(s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return string(r)
	})
	m := transform.NewMapper(reg)

	out := m.Map(decode(t, `{"word":"abc"}`), rules(t, `{"word":{"source":"word","transform":"reverse"}}`))

	if out["word"] != "cba" {
		t.Errorf("word = %v", out["word"])
	}
}

func TestMapUnknownTransformPassesThrough(t *testing.T) {
	m := transform.NewMapper(nil)

	out := m.Map(decode(t, `{"v":"x"}`), rules(t, `{"v":{"source":"v","transform":"no_such_transform"}}`))

	if out["v"] != "x" {
		t.Errorf("v = %v, want pass-through", out["v"])
	}
}

func TestBuiltinTransforms(t *testing.T) {
	m := transform.NewMapper(nil)
	input := decode(t, `{
		"s": "  <b>Hello</b>  World ",
		"arr": ["x", "y"],
		"csv": "a,b,c",
		"epoch": 1700000000,
		"doc": {"k": "v"},
		"enc": "{\"k\":\"v\"}"
	}`)

	out := m.Map(input, rules(t, `{
		"clean":   {"source": "s", "transform": "sanitize_text"},
		"naked":   {"source": "s", "transform": "strip_tags"},
		"joined":  {"source": "arr", "transform": "implode"},
		"split":   {"source": "csv", "transform": "explode"},
		"n":       {"source": "arr", "transform": "count"},
		"date":    {"source": "epoch", "transform": "date_format"},
		"encoded": {"source": "doc", "transform": "json_encode"},
		"decoded": {"source": "enc", "transform": "json_decode"}
	}`))

	if out["clean"] != "Hello World" {
		t.Errorf("sanitize_text = %q", out["clean"])
	}
	if out["naked"] != "  Hello  World " {
		t.Errorf("strip_tags = %q", out["naked"])
	}
	if out["joined"] != "x, y" {
		t.Errorf("implode = %q", out["joined"])
	}
	if split, ok := out["split"].([]any); !ok || len(split) != 3 || split[0] != "a" {
		t.Errorf("explode = %v", out["split"])
	}
	if out["n"] != 2 {
		t.Errorf("count = %v", out["n"])
	}
	if out["date"] != "2023-11-14 22:13:20" {
		t.Errorf("date_format = %q", out["date"])
	}
	if out["encoded"] != `{"k":"v"}` {
		t.Errorf("json_encode = %q", out["encoded"])
	}
	if dec, ok := out["decoded"].(map[string]any); !ok || dec["k"] != "v" {
		t.Errorf("json_decode = %v", out["decoded"])
	}
}

func TestParseRuleSetMalformed(t *testing.T) {
	if rs := transform.ParseRuleSet(json.RawMessage(`{broken`)); rs != nil {
		t.Errorf("expected nil for malformed ruleset, got %v", rs)
	}
	if rs := transform.ParseRuleSet(nil); rs != nil {
		t.Errorf("expected nil for empty ruleset, got %v", rs)
	}
}

package transform

// Modifier builds a response document from arbitrary data by applying
// output-shaping rules. Used by the transform callback strategy; shares the
// rule grammar, transform vocabulary, and extension registry with Mapper.
type Modifier struct {
	registry *Registry
}

// NewModifier creates a modifier backed by the given transform registry.
func NewModifier(registry *Registry) *Modifier {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Modifier{registry: registry}
}

// Transform shapes data into a new document per the ruleset. An empty
// ruleset passes the data through unchanged.
func (m *Modifier) Transform(data any, rules RuleSet) any {
	if len(rules) == 0 {
		return data
	}

	output := make(map[string]any, len(rules))
	for key, rule := range rules {
		if value := rule.eval(data, m.registry); value != nil {
			output[key] = value
		}
	}

	return output
}

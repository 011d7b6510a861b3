package transform

// Mapper transforms an arbitrary input document into an output document by
// applying field-mapping rules. Used by the ingest pipeline.
type Mapper struct {
	registry *Registry
}

// NewMapper creates a mapper backed by the given transform registry.
func NewMapper(registry *Registry) *Mapper {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Mapper{registry: registry}
}

// Map applies the ruleset to the input document. Output keys whose rule
// evaluates to nil are omitted. Mapping the same (input, rules) pair twice
// yields identical output.
func (m *Mapper) Map(input any, rules RuleSet) map[string]any {
	output := make(map[string]any, len(rules))

	for key, rule := range rules {
		if value := rule.eval(input, m.registry); value != nil {
			output[key] = value
		}
	}

	return output
}

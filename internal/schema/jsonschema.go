package schema

// JSONSchema returns a JSON-Schema (draft 2020-12 subset) for s as a generic
// map: every declared field is required and nullable, nothing else is
// allowed. Used to validate sanitized language-model output.
func (s ExtractionSchema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		// values are free-form (string/number/bool) or explicitly null
		props[f] = map[string]any{
			"type": []string{"string", "number", "boolean", "null"},
		}
	}
	required := make([]string, len(s.Fields))
	copy(required, s.Fields)

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

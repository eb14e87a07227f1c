package model

import "github.com/invopop/jsonschema"

// JSONSchema describes raw_series as an object of period key to number or null.
func (Series) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "object",
		Description: "period key (YYYY-MM-DD or YYYY-Qn) to value, ascending",
		AdditionalProperties: &jsonschema.Schema{
			AnyOf: []*jsonschema.Schema{{Type: "number"}, {Type: "null"}},
		},
	}
}

package invoice

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildJSONSchema returns the JSON-Schema (draft 2020-12 subset) the agent's
// final answer must match: the nine fields at top level, each an object with
// value/evidence/confidence/extraction_method. We embed it in the system
// prompt and validate the model output against it locally.
func BuildJSONSchema() map[string]any {
	props := map[string]any{}
	for _, name := range FieldNames {
		props[name] = fieldProp(isDateField(name))
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             FieldNames,
	}
}

func fieldProp(withISO bool) map[string]any {
	sub := map[string]any{
		"value":             map[string]any{"type": []string{"string", "number", "null"}},
		"evidence":          map[string]any{"type": "string"},
		"confidence":        map[string]any{"type": "number"},
		"extraction_method": map[string]any{"type": "string"},
	}
	required := []string{"value", "evidence", "confidence", "extraction_method"}
	if withISO {
		sub["value_iso"] = map[string]any{"type": []string{"string", "null"}}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           sub,
		"required":             required,
	}
}

// ValidateRaw checks that data is valid JSON matching the invoice schema.
func ValidateRaw(data []byte) error {
	return validateAgainstSchema(BuildJSONSchema(), data)
}

// validateAgainstSchema validates "data" against "schemaMap".
func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

package vertex

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var responseSchema = map[string]any{
	"type":     "object",
	"required": []string{"vendor", "amount"},
	"properties": map[string]any{
		"vendor":      map[string]any{"type": "string"},
		"amount":      map[string]any{"type": []string{"number", "string"}},
		"description": map[string]any{"type": "string"},
		"date":        map[string]any{"type": []string{"string", "null"}},
		"category":    map[string]any{"type": "string"},
		"confidence":  map[string]any{"type": []string{"number", "string"}},
	},
}

// validatePayload checks the model output against responseSchema
func validatePayload(data []byte) error {
	b, err := json.Marshal(responseSchema)
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

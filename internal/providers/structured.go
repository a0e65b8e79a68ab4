package providers

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// WrapSchemaForResponseFormat wraps a bare JSON schema in the
// {"name","strict","schema"} envelope the completion endpoints expect for
// json_schema response formats.
func WrapSchemaForResponseFormat(name string, schemaRaw json.RawMessage) (*ResponseFormat, error) {
	if len(schemaRaw) == 0 {
		return nil, fmt.Errorf("empty schema")
	}

	envelope := map[string]any{
		"name":   name,
		"strict": true,
	}
	var inner any
	if err := json.Unmarshal(schemaRaw, &inner); err != nil {
		return nil, fmt.Errorf("invalid schema JSON: %w", err)
	}
	envelope["schema"] = inner

	wrapped, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize schema envelope: %w", err)
	}

	return &ResponseFormat{
		Type:       "json_schema",
		JSONSchema: wrapped,
	}, nil
}

// ValidateAgainstSchema validates a parsed JSON document against a schema.
// The schema may be bare or wrapped in a response-format envelope.
func ValidateAgainstSchema(schemaRaw, parsed json.RawMessage) error {
	if len(schemaRaw) == 0 || len(parsed) == 0 {
		return nil
	}

	coreSchema, err := extractValidationSchema(schemaRaw)
	if err != nil {
		return err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(coreSchema)); err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return fmt.Errorf("failed to decode JSON for validation: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("output does not match schema: %w", err)
	}
	return nil
}

// extractValidationSchema unwraps a response-format envelope if present.
func extractValidationSchema(schemaRaw json.RawMessage) (json.RawMessage, error) {
	var root any
	if err := json.Unmarshal(schemaRaw, &root); err != nil {
		return nil, fmt.Errorf("invalid schema JSON: %w", err)
	}

	if rootMap, ok := root.(map[string]any); ok {
		if inner, ok := rootMap["schema"]; ok {
			b, err := json.Marshal(inner)
			if err != nil {
				return nil, fmt.Errorf("failed to serialize inner schema: %w", err)
			}
			return b, nil
		}
	}

	return schemaRaw, nil
}

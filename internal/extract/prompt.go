package extract

import (
	"encoding/json"

	"github.com/scrapetab/scrapetab/internal/providers"
)

// systemInstruction is the fixed system prompt. The wording is part of the
// contract: exact requested headers as keys, empty string for missing
// values, multiple extracted items as multiple objects under `rows`.
const systemInstruction = "You are an expert data extractor. Output must be STRICT JSON only. " +
	"No markdown, no explanations. Use exactly the requested headers as keys. " +
	"If a value is missing, use an empty string. " +
	"If multiple items exist, return multiple objects in `rows`."

// userPayload is the single JSON object sent as the user message.
type userPayload struct {
	Headers      []string         `json:"headers"`
	Text         string           `json:"text"`
	Schema       map[string][]Row `json:"schema"`
	OutputFormat map[string][]Row `json:"output_format"`
}

// BuildMessages turns a field list and raw page text into the two-message
// payload for the completion endpoint. It is a pure function: any field
// names and any text are legal (an empty field list yields a schema with no
// keys), and both are JSON-encoded so they cannot break the envelope.
func BuildMessages(fields []string, rawContent string) []providers.Message {
	if fields == nil {
		fields = []string{}
	}

	schemaRow := make(Row, len(fields))
	templateRow := make(Row, len(fields))
	for _, f := range fields {
		schemaRow[f] = "string"
		templateRow[f] = ""
	}

	payload := userPayload{
		Headers:      fields,
		Text:         rawContent,
		Schema:       map[string][]Row{"rows": {schemaRow}},
		OutputFormat: map[string][]Row{"rows": {templateRow}},
	}

	// Marshaling string-only maps and slices cannot fail.
	body, _ := json.Marshal(payload)

	return []providers.Message{
		{Role: providers.RoleSystem, Content: systemInstruction},
		{Role: providers.RoleUser, Content: string(body)},
	}
}

// RowsSchema builds a JSON Schema for the expected {"rows":[...]} reply,
// with one string-typed property per requested field. Used for provider
// response formats and local validation in strict mode.
func RowsSchema(fields []string) json.RawMessage {
	properties := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		properties[f] = map[string]any{"type": "string"}
		if _, dup := seen[f]; !dup {
			seen[f] = struct{}{}
			required = append(required, f)
		}
	}

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"rows": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"properties":           properties,
					"required":             required,
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"rows"},
		"additionalProperties": false,
	}

	// Marshaling maps of strings and maps cannot fail.
	raw, _ := json.Marshal(schema)
	return raw
}

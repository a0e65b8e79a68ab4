// Package schema defines the DefraDB collection schemas and applies them
// at startup.
package schema

import "fmt"

// Schema represents a DefraDB collection schema.
type Schema struct {
	Name string // Collection name (e.g., "Extraction")
	SDL  string // GraphQL SDL definition
}

// extractionSDL holds one completed extraction. rows is the normalized
// output serialized as JSON; model_raw is the verbatim completion text
// kept for audit and later re-parse.
const extractionSDL = `
type Extraction {
	requester: String
	fields_requested: [String!]
	rows: String
	model_raw: String
	row_count: Int
	diagnostic: String
	provider: String
	model: String
	created_at: String
}
`

// llmCallSDL holds one completion-endpoint call for usage accounting.
const llmCallSDL = `
type LLMCall {
	request_id: String
	provider: String
	model: String
	prompt_tokens: Int
	completion_tokens: Int
	total_tokens: Int
	latency_ms: Int
	success: Boolean
	error_type: String
	created_at: String
}
`

// registry holds all schemas in initialization order.
var registry = []Schema{
	{Name: "Extraction", SDL: extractionSDL},
	{Name: "LLMCall", SDL: llmCallSDL},
}

// All returns all schemas in initialization order.
func All() []Schema {
	schemas := make([]Schema, len(registry))
	copy(schemas, registry)
	return schemas
}

// Get returns a single schema by name.
func Get(name string) (*Schema, error) {
	for _, s := range registry {
		if s.Name == name {
			out := s
			return &out, nil
		}
	}
	return nil, fmt.Errorf("schema not found: %s", name)
}

// Package extract implements the extraction pipeline: building a
// deterministic prompt from caller-supplied field names and raw page text,
// invoking a completion endpoint, and normalizing the free-form model reply
// into well-formed rows.
//
// The pipeline is stateless; every collaborator is injected and nothing is
// shared between requests.
package extract

// Row is one extracted record: a mapping from requested field name to
// extracted string value. Fields the model could not find hold an empty
// string, never null, and are never omitted.
type Row map[string]string

// Request describes one extraction.
// RawContent is opaque, unbounded-length text; Fields defines both the
// prompt headers and the output column order. Duplicates are legal.
type Request struct {
	Fields     []string
	RawContent string
	Requester  string
}

// Result is the outcome of one extraction.
// Zero rows is not an error: a degraded call (endpoint failure, unparsable
// model output) produces an empty Rows plus a Diagnostic, and RawModelText
// is kept verbatim for audit and later re-parsing.
type Result struct {
	Rows         []Row  `json:"rows"`
	RawModelText string `json:"raw_model_text"`
	Diagnostic   string `json:"diagnostic,omitempty"`

	// Call metadata for the audit record.
	Provider         string `json:"provider,omitempty"`
	Model            string `json:"model,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
	LatencyMs        int    `json:"latency_ms,omitempty"`
}

// Package providers contains the completion-endpoint clients used by the
// extraction pipeline. Clients implement LLMClient and are looked up through
// the Registry, which is rebuilt from configuration on hot reload.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// errNoChoices is returned when the completion endpoint answers with an
// empty choices array.
var errNoChoices = errors.New("no choices in response")

// Message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 60 * time.Second

// LLMClient is the interface for chat/completion requests.
type LLMClient interface {
	// Chat sends a chat completion request. Exactly one attempt is made;
	// retries, if wanted, belong to the caller.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openrouter").
	Name() string
}

// Message is a role-tagged chat message.
type Message struct {
	Role    string `json:"role"` // "system" or "user"
	Content string `json:"content"`
}

// ResponseFormat requests structured output from providers that support it.
type ResponseFormat struct {
	Type       string          `json:"type"` // "json_schema"
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	// Required
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	// Generation parameters
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Timeout     time.Duration

	// Structured output
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// ChatResult is the complete response from an LLM call.
// A degraded call (transport failure, non-success status, malformed
// response) sets Success=false and carries a diagnostic in ErrorMessage;
// the caller decides whether that is fatal.
type ChatResult struct {
	// Response content
	Content string `json:"content"`

	// Token counts
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Timing
	ExecutionTime time.Duration `json:"execution_time"`

	// Provider info
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	// Request tracking
	RequestID string `json:"request_id"`

	// Success/error
	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

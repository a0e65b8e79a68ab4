// Package llmcall records completion-endpoint calls for usage
// accounting. Every outbound call lands here, successful or not.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/scrapetab/scrapetab/internal/providers"
)

// Call is one recorded completion-endpoint call.
type Call struct {
	RequestID        string    `json:"request_id"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	LatencyMs        int       `json:"latency_ms"`
	Success          bool      `json:"success"`
	ErrorType        string    `json:"error_type,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// FromChatResult creates a Call from a ChatResult. Returns nil if the
// result is nil.
func FromChatResult(result *providers.ChatResult) *Call {
	if result == nil {
		return nil
	}

	requestID := result.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	return &Call{
		RequestID:        requestID,
		Provider:         result.Provider,
		Model:            result.ModelUsed,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,
		LatencyMs:        int(result.ExecutionTime.Milliseconds()),
		Success:          result.Success,
		ErrorType:        result.ErrorType,
		CreatedAt:        time.Now().UTC(),
	}
}

// ToMap converts the Call to a map for DefraDB insertion.
func (c *Call) ToMap() map[string]any {
	m := map[string]any{
		"request_id":        c.RequestID,
		"provider":          c.Provider,
		"model":             c.Model,
		"prompt_tokens":     c.PromptTokens,
		"completion_tokens": c.CompletionTokens,
		"total_tokens":      c.TotalTokens,
		"latency_ms":        c.LatencyMs,
		"success":           c.Success,
		"created_at":        c.CreatedAt.Format(time.RFC3339),
	}

	if c.ErrorType != "" {
		m["error_type"] = c.ErrorType
	}

	return m
}

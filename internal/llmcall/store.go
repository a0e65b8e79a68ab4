package llmcall

import (
	"context"
	"fmt"
	"time"

	"github.com/scrapetab/scrapetab/internal/defra"
)

const callFields = "_docID request_id provider model prompt_tokens completion_tokens total_tokens latency_ms success error_type created_at"

// Store provides access to call records in DefraDB.
type Store struct {
	client *defra.Client
}

// NewStore creates a new call store.
func NewStore(client *defra.Client) *Store {
	return &Store{client: client}
}

// QueryFilter specifies filters for listing calls.
type QueryFilter struct {
	Provider string
	Model    string
	Success  *bool
	Limit    int
	Offset   int
}

// List retrieves calls matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter QueryFilter) ([]Call, error) {
	qb := defra.NewQuery(Collection).
		Fields(callFields).
		OrderBy("created_at", "DESC")

	if filter.Provider != "" {
		qb.Filter("provider", filter.Provider)
	}
	if filter.Model != "" {
		qb.Filter("model", filter.Model)
	}
	if filter.Success != nil {
		qb.Filter("success", *filter.Success)
	}
	if filter.Limit > 0 {
		qb.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		qb.Offset(filter.Offset)
	}

	resp, err := qb.Execute(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("graphql error: %s", errMsg)
	}

	return parseCalls(resp.Data)
}

// Usage sums token counts over calls matching the filter. DefraDB has
// no aggregation, so the sum happens client-side.
func (s *Store) Usage(ctx context.Context, filter QueryFilter) (prompt, completion, total int, err error) {
	calls, err := s.List(ctx, filter)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, c := range calls {
		prompt += c.PromptTokens
		completion += c.CompletionTokens
		total += c.TotalTokens
	}
	return prompt, completion, total, nil
}

// parseCalls parses LLMCall entries from GraphQL response data.
func parseCalls(data map[string]any) ([]Call, error) {
	raw, ok := data[Collection]
	if !ok {
		return nil, nil
	}

	docs, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected %s type: %T", Collection, raw)
	}

	calls := make([]Call, 0, len(docs))
	for _, d := range docs {
		doc, ok := d.(map[string]any)
		if !ok {
			continue
		}

		call := Call{}
		if v, ok := doc["request_id"].(string); ok {
			call.RequestID = v
		}
		if v, ok := doc["provider"].(string); ok {
			call.Provider = v
		}
		if v, ok := doc["model"].(string); ok {
			call.Model = v
		}
		if v, ok := doc["prompt_tokens"].(float64); ok {
			call.PromptTokens = int(v)
		}
		if v, ok := doc["completion_tokens"].(float64); ok {
			call.CompletionTokens = int(v)
		}
		if v, ok := doc["total_tokens"].(float64); ok {
			call.TotalTokens = int(v)
		}
		if v, ok := doc["latency_ms"].(float64); ok {
			call.LatencyMs = int(v)
		}
		if v, ok := doc["success"].(bool); ok {
			call.Success = v
		}
		if v, ok := doc["error_type"].(string); ok {
			call.ErrorType = v
		}
		if v, ok := doc["created_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				call.CreatedAt = t
			}
		}

		calls = append(calls, call)
	}

	return calls, nil
}

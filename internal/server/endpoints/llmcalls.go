package endpoints

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/scrapetab/scrapetab/internal/api"
	"github.com/scrapetab/scrapetab/internal/llmcall"
	"github.com/scrapetab/scrapetab/internal/svcctx"
)

// LLMCallsResponse contains a list of completion calls.
type LLMCallsResponse struct {
	Calls []llmcall.Call `json:"calls"`
	Total int            `json:"total"`
}

// LLMUsageResponse contains aggregated token usage.
type LLMUsageResponse struct {
	Calls            int `json:"calls"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ListLLMCallsEndpoint handles GET /api/llmcalls.
type ListLLMCallsEndpoint struct{}

func (e *ListLLMCallsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/llmcalls", e.handler
}

func (e *ListLLMCallsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List completion calls
//	@Description	Get completion call history with optional filters
//	@Tags			llmcalls
//	@Produce		json
//	@Param			provider	query		string	false	"Filter by provider"
//	@Param			model		query		string	false	"Filter by model"
//	@Param			success		query		bool	false	"Filter by success status (true or false)"
//	@Param			limit		query		int		false	"Max results (default 100)"
//	@Param			offset		query		int		false	"Result offset"
//	@Success		200			{object}	LLMCallsResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Router			/api/llmcalls [get]
func (e *ListLLMCallsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.LLMCallsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "call store not initialized")
		return
	}

	filter, err := callFilterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	calls, err := store.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, LLMCallsResponse{Calls: calls, Total: len(calls)})
}

func (e *ListLLMCallsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		provider string
		model    string
		success  string
		limit    int
		offset   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List completion calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if provider != "" {
				q.Set("provider", provider)
			}
			if model != "" {
				q.Set("model", model)
			}
			if success != "" {
				q.Set("success", success)
			}
			q.Set("limit", strconv.Itoa(limit))
			if offset > 0 {
				q.Set("offset", strconv.Itoa(offset))
			}

			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp LLMCallsResponse
			if err := client.Get(ctx, "/api/llmcalls?"+q.Encode(), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Filter by provider")
	cmd.Flags().StringVar(&model, "model", "", "Filter by model")
	cmd.Flags().StringVar(&success, "success", "", "Filter by success (true or false)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum calls to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Calls to skip")
	return cmd
}

// LLMUsageEndpoint handles GET /api/llmcalls/usage.
type LLMUsageEndpoint struct{}

func (e *LLMUsageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/llmcalls/usage", e.handler
}

func (e *LLMUsageEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Token usage summary
//	@Description	Sum token usage over completion calls matching the filters
//	@Tags			llmcalls
//	@Produce		json
//	@Param			provider	query		string	false	"Filter by provider"
//	@Param			model		query		string	false	"Filter by model"
//	@Param			success		query		bool	false	"Filter by success status (true or false)"
//	@Success		200			{object}	LLMUsageResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Router			/api/llmcalls/usage [get]
func (e *LLMUsageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.LLMCallsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "call store not initialized")
		return
	}

	filter, err := callFilterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	calls, err := store.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := LLMUsageResponse{Calls: len(calls)}
	for _, c := range calls {
		resp.PromptTokens += c.PromptTokens
		resp.CompletionTokens += c.CompletionTokens
		resp.TotalTokens += c.TotalTokens
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *LLMUsageEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		provider string
		model    string
	)
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show aggregated token usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if provider != "" {
				q.Set("provider", provider)
			}
			if model != "" {
				q.Set("model", model)
			}

			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp LLMUsageResponse
			if err := client.Get(ctx, "/api/llmcalls/usage?"+q.Encode(), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Filter by provider")
	cmd.Flags().StringVar(&model, "model", "", "Filter by model")
	return cmd
}

// callFilterFromQuery builds a store filter from URL query parameters.
func callFilterFromQuery(q url.Values) (llmcall.QueryFilter, error) {
	filter := llmcall.QueryFilter{
		Provider: q.Get("provider"),
		Model:    q.Get("model"),
	}

	if v := q.Get("success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, fmt.Errorf("invalid success filter: %q must be true or false", v)
		}
		filter.Success = &b
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return filter, fmt.Errorf("invalid limit: %q must be an integer", v)
		}
		filter.Limit = limit
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}

	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			return filter, fmt.Errorf("invalid offset: %q must be an integer", v)
		}
		filter.Offset = offset
	}

	return filter, nil
}

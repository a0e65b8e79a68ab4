package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/scrapetab/scrapetab/internal/defra"
	"github.com/scrapetab/scrapetab/internal/extract"
	"github.com/scrapetab/scrapetab/internal/identity"
	"github.com/scrapetab/scrapetab/internal/llmcall"
	"github.com/scrapetab/scrapetab/internal/providers"
	"github.com/scrapetab/scrapetab/internal/records"
	"github.com/scrapetab/scrapetab/internal/svcctx"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFakeDefra returns a DefraDB stand-in that answers the health check
// and delegates GraphQL requests to the given handler.
func newFakeDefra(t *testing.T, graphql http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health-check", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /api/v0/graphql", graphql)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// newTestServices builds a service container backed by the fake DefraDB
// and a mock completion client.
func newTestServices(t *testing.T, defraURL string, mock *providers.MockClient) *svcctx.Services {
	t.Helper()

	client := defra.NewClient(defraURL)
	logger := testLogger()

	registry := providers.NewRegistry()
	registry.SetLogger(logger)
	registry.RegisterLLM(providers.MockClientName, mock)

	return &svcctx.Services{
		DefraClient: client,
		Registry:    registry,
		Extractor: extract.New(extract.Config{
			Client: mock,
			Logger: logger,
		}),
		Records:  records.NewStore(client, logger),
		LLMCalls: llmcall.NewStore(client),
		Identity: &identity.AnonymousResolver{},
		Logger:   logger,
	}
}

// do runs one request through an endpoint handler with services attached.
func do(t *testing.T, ep interface {
	Route() (string, string, http.HandlerFunc)
}, services *svcctx.Services, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	_, _, handler := ep.Route()
	if services != nil {
		req = req.WithContext(svcctx.WithServices(req.Context(), services))
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	rr := do(t, &HealthEndpoint{}, nil, httptest.NewRequest("GET", "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		server := newFakeDefra(t, func(w http.ResponseWriter, r *http.Request) {})
		services := newTestServices(t, server.URL, providers.NewMockClient())

		rr := do(t, &ReadyEndpoint{}, services, httptest.NewRequest("GET", "/ready", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
	})

	t.Run("not initialized", func(t *testing.T) {
		rr := do(t, &ReadyEndpoint{}, nil, httptest.NewRequest("GET", "/ready", nil))
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rr.Code)
		}
		var resp HealthResponse
		json.NewDecoder(rr.Body).Decode(&resp)
		if resp.Defra != "not_initialized" {
			t.Errorf("defra = %q", resp.Defra)
		}
	})

	t.Run("defra down", func(t *testing.T) {
		server := newFakeDefra(t, func(w http.ResponseWriter, r *http.Request) {})
		services := newTestServices(t, server.URL, providers.NewMockClient())
		server.Close()

		rr := do(t, &ReadyEndpoint{}, services, httptest.NewRequest("GET", "/ready", nil))
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rr.Code)
		}
	})
}

func TestStatusEndpoint(t *testing.T) {
	server := newFakeDefra(t, func(w http.ResponseWriter, r *http.Request) {})
	services := newTestServices(t, server.URL, providers.NewMockClient())

	rr := do(t, &StatusEndpoint{}, services, httptest.NewRequest("GET", "/status", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp StatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Server != "running" {
		t.Errorf("server = %q", resp.Server)
	}
	if resp.Identity != identity.StrategyAnonymous {
		t.Errorf("identity = %q", resp.Identity)
	}
	if len(resp.Providers) != 1 || resp.Providers[0] != providers.MockClientName {
		t.Errorf("providers = %v", resp.Providers)
	}
	if resp.Defra.Container != "external" {
		t.Errorf("container = %q", resp.Defra.Container)
	}
	if resp.Defra.Health != "healthy" {
		t.Errorf("health = %q", resp.Defra.Health)
	}
}

func TestExtractEndpoint(t *testing.T) {
	t.Run("successful extraction", func(t *testing.T) {
		var createSeen bool
		server := newFakeDefra(t, func(w http.ResponseWriter, r *http.Request) {
			var req defra.GQLRequest
			json.NewDecoder(r.Body).Decode(&req)
			if strings.Contains(req.Query, "create_Extraction") {
				createSeen = true
			}
			w.Write([]byte(`{"data":{"create_Extraction":[{"_docID":"bae-42"}]}}`))
		})

		mock := providers.NewMockClient()
		mock.ResponseText = `{"rows":[{"name":"Widget","price":"19.99"}]}`
		services := newTestServices(t, server.URL, mock)

		body := `{"userId":"alice","fields":["name","price"],"rawContent":"Widget $19.99"}`
		req := httptest.NewRequest("POST", "/api/extract", strings.NewReader(body))
		rr := do(t, &ExtractEndpoint{}, services, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
		}

		var resp ExtractResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Status != "success" {
			t.Errorf("status = %q", resp.Status)
		}
		if resp.UserID != "alice" {
			t.Errorf("userId = %q, want alice", resp.UserID)
		}
		if len(resp.Rows) != 1 || resp.Rows[0]["name"] != "Widget" {
			t.Errorf("rows = %+v", resp.Rows)
		}
		if resp.DocID != "bae-42" {
			t.Errorf("doc_id = %q", resp.DocID)
		}
		if !createSeen {
			t.Error("extraction was not persisted")
		}
	})

	t.Run("failed call yields no_rows with diagnostic", func(t *testing.T) {
		server := newFakeDefra(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":{"create_Extraction":[{"_docID":"bae-43"}]}}`))
		})

		mock := providers.NewMockClient()
		mock.ShouldFail = true
		services := newTestServices(t, server.URL, mock)

		body := `{"userId":"alice","fields":["name"],"rawContent":"text"}`
		req := httptest.NewRequest("POST", "/api/extract", strings.NewReader(body))
		rr := do(t, &ExtractEndpoint{}, services, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
		var resp ExtractResponse
		json.NewDecoder(rr.Body).Decode(&resp)
		if resp.Status != "no_rows" {
			t.Errorf("status = %q, want no_rows", resp.Status)
		}
		if !strings.HasPrefix(resp.Diagnostic, "Error:") {
			t.Errorf("diagnostic = %q", resp.Diagnostic)
		}
		if len(resp.Rows) != 0 {
			t.Errorf("rows = %+v, want empty", resp.Rows)
		}
	})

	t.Run("anonymous id minted when no claim", func(t *testing.T) {
		server := newFakeDefra(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":{"create_Extraction":[{"_docID":"bae-44"}]}}`))
		})
		mock := providers.NewMockClient()
		mock.ResponseText = `{"rows":[]}`
		services := newTestServices(t, server.URL, mock)

		body := `{"fields":["name"],"rawContent":"text"}`
		req := httptest.NewRequest("POST", "/api/extract", strings.NewReader(body))
		rr := do(t, &ExtractEndpoint{}, services, req)

		var resp ExtractResponse
		json.NewDecoder(rr.Body).Decode(&resp)
		if resp.UserID == "" {
			t.Error("expected generated requester id")
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/extract", strings.NewReader("{not json"))
		rr := do(t, &ExtractEndpoint{}, &svcctx.Services{}, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})

	t.Run("missing rawContent", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/extract", strings.NewReader(`{"fields":["name"]}`))
		rr := do(t, &ExtractEndpoint{}, &svcctx.Services{}, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/extract", strings.NewReader(`{"rawContent":"text"}`))
		rr := do(t, &ExtractEndpoint{}, &svcctx.Services{}, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})

	t.Run("identity resolver missing", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/extract", strings.NewReader(`{"rawContent":"x"}`))
		rr := do(t, &ExtractEndpoint{}, &svcctx.Services{}, req)
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rr.Code)
		}
	})

	t.Run("token verification failure", func(t *testing.T) {
		server := newFakeDefra(t, func(w http.ResponseWriter, r *http.Request) {})
		services := newTestServices(t, server.URL, providers.NewMockClient())
		services.Identity = identity.NewTokenResolver(failingVerifier{})

		body := `{"fields":["name"],"rawContent":"text"}`
		req := httptest.NewRequest("POST", "/api/extract", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer bad-token")
		rr := do(t, &ExtractEndpoint{}, services, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
	})
}

type failingVerifier struct{}

func (failingVerifier) Verify(_ context.Context, token string) (string, error) {
	return "", errors.New("token rejected")
}

func TestListExtractionsEndpoint(t *testing.T) {
	server := newFakeDefra(t, func(w http.ResponseWriter, r *http.Request) {
		var req defra.GQLRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Variables["v0"] != "alice" {
			t.Errorf("requester variable = %+v", req.Variables)
		}
		w.Write([]byte(`{"data":{"Extraction":[
			{"_docID":"bae-1","requester":"alice","fields_requested":["name"],"rows":"[{\"name\":\"A\"}]","model_raw":"raw","created_at":"2026-01-01T00:00:00Z"}
		]}}`))
	})
	services := newTestServices(t, server.URL, providers.NewMockClient())

	req := httptest.NewRequest("GET", "/api/extractions/alice", nil)
	req.SetPathValue("requester", "alice")
	rr := do(t, &ListExtractionsEndpoint{}, services, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp ExtractionsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UserID != "alice" || resp.Count != 1 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Records[0].Rows[0]["name"] != "A" {
		t.Errorf("rows = %+v", resp.Records[0].Rows)
	}
}

func TestGetExtractionEndpoint(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		server := newFakeDefra(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":{"Extraction":[]}}`))
		})
		services := newTestServices(t, server.URL, providers.NewMockClient())

		req := httptest.NewRequest("GET", "/api/extraction/bae-missing", nil)
		req.SetPathValue("docID", "bae-missing")
		rr := do(t, &GetExtractionEndpoint{}, services, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rr.Code)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		server := newFakeDefra(t, func(w http.ResponseWriter, r *http.Request) {})
		services := newTestServices(t, server.URL, providers.NewMockClient())

		req := httptest.NewRequest("GET", "/api/extraction/bad", nil)
		req.SetPathValue("docID", "no spaces allowed")
		rr := do(t, &GetExtractionEndpoint{}, services, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})
}

func TestExportExtractionsEndpoint(t *testing.T) {
	server := newFakeDefra(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"Extraction":[
			{"_docID":"bae-1","requester":"alice","fields_requested":["name","price"],"rows":"[{\"name\":\"A\",\"price\":\"1\"}]","model_raw":"raw","created_at":"2026-01-01T00:00:00Z"}
		]}}`))
	})
	services := newTestServices(t, server.URL, providers.NewMockClient())

	req := httptest.NewRequest("GET", "/api/extractions/alice/export", nil)
	req.SetPathValue("requester", "alice")
	rr := do(t, &ExportExtractionsEndpoint{}, services, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), rr.Body.String())
	}
	if lines[0] != "extracted_at,name,price" {
		t.Errorf("header = %q", lines[0])
	}
}

func TestListLLMCallsEndpoint(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		server := newFakeDefra(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":{"LLMCall":[
				{"_docID":"bae-1","request_id":"r1","provider":"openrouter","model":"deepseek/deepseek-r1","prompt_tokens":10,"completion_tokens":5,"total_tokens":15,"latency_ms":120,"success":true,"created_at":"2026-01-01T00:00:00Z"}
			]}}`))
		})
		services := newTestServices(t, server.URL, providers.NewMockClient())

		rr := do(t, &ListLLMCallsEndpoint{}, services, httptest.NewRequest("GET", "/api/llmcalls?provider=openrouter", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		var resp LLMCallsResponse
		json.NewDecoder(rr.Body).Decode(&resp)
		if resp.Total != 1 || resp.Calls[0].Provider != "openrouter" {
			t.Errorf("resp = %+v", resp)
		}
	})

	t.Run("invalid success filter", func(t *testing.T) {
		services := newTestServices(t, "http://unused.invalid", providers.NewMockClient())
		rr := do(t, &ListLLMCallsEndpoint{}, services, httptest.NewRequest("GET", "/api/llmcalls?success=maybe", nil))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})
}

func TestLLMUsageEndpoint(t *testing.T) {
	server := newFakeDefra(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"LLMCall":[
			{"_docID":"bae-1","request_id":"r1","provider":"openrouter","model":"m","prompt_tokens":10,"completion_tokens":5,"total_tokens":15,"latency_ms":1,"success":true,"created_at":"2026-01-01T00:00:00Z"},
			{"_docID":"bae-2","request_id":"r2","provider":"openrouter","model":"m","prompt_tokens":20,"completion_tokens":10,"total_tokens":30,"latency_ms":1,"success":true,"created_at":"2026-01-02T00:00:00Z"}
		]}}`))
	})
	services := newTestServices(t, server.URL, providers.NewMockClient())

	rr := do(t, &LLMUsageEndpoint{}, services, httptest.NewRequest("GET", "/api/llmcalls/usage", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp LLMUsageResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Calls != 2 || resp.PromptTokens != 30 || resp.CompletionTokens != 15 || resp.TotalTokens != 45 {
		t.Errorf("resp = %+v", resp)
	}
}

package schema

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/scrapetab/scrapetab/internal/defra"
)

func TestAll(t *testing.T) {
	schemas := All()
	if len(schemas) != 2 {
		t.Fatalf("got %d schemas, want 2", len(schemas))
	}

	for _, s := range schemas {
		if s.SDL == "" {
			t.Errorf("schema %s has empty SDL", s.Name)
		}
		if !strings.Contains(s.SDL, "type "+s.Name) {
			t.Errorf("schema %s SDL does not define its type", s.Name)
		}
	}
}

func TestGet(t *testing.T) {
	s, err := Get("Extraction")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !strings.Contains(s.SDL, "fields_requested") {
		t.Error("Extraction schema missing fields_requested")
	}
	if !strings.Contains(s.SDL, "model_raw") {
		t.Error("Extraction schema missing model_raw")
	}

	if _, err := Get("Nope"); err == nil {
		t.Error("expected error for unknown schema")
	}
}

func TestInitialize(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("applies all schemas", func(t *testing.T) {
		var applied []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v0/schema" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			body, _ := io.ReadAll(r.Body)
			applied = append(applied, string(body))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		if err := Initialize(context.Background(), defra.NewClient(server.URL), logger); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if len(applied) != 2 {
			t.Errorf("applied %d schemas, want 2", len(applied))
		}
	})

	t.Run("tolerates existing collections", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "collection already exists", http.StatusBadRequest)
		}))
		defer server.Close()

		if err := Initialize(context.Background(), defra.NewClient(server.URL), logger); err != nil {
			t.Errorf("Initialize() error = %v", err)
		}
	})

	t.Run("propagates real failures", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "malformed SDL", http.StatusBadRequest)
		}))
		defer server.Close()

		if err := Initialize(context.Background(), defra.NewClient(server.URL), logger); err == nil {
			t.Error("expected error for schema failure")
		}
	})
}

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/scrapetab/scrapetab/internal/config"
	"github.com/scrapetab/scrapetab/internal/home"
	"github.com/scrapetab/scrapetab/internal/providers"
	"github.com/scrapetab/scrapetab/internal/svcctx"
)

// newTestManager loads a config file pointing at an external DefraDB so
// no Docker manager is created.
func newTestManager(t *testing.T) *config.Manager {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "defra:\n  url: http://127.0.0.1:19181\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	mgr, err := config.NewManager(cfgPath)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return mgr
}

func newTestHome(t *testing.T) *home.Dir {
	t.Helper()
	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{Home: newTestHome(t)}); err == nil {
		t.Error("expected error without config manager")
	}
	if _, err := New(Config{ConfigManager: newTestManager(t)}); err == nil {
		t.Error("expected error without home directory")
	}
}

func TestNewExternalDefra(t *testing.T) {
	srv, err := New(Config{
		ListenAddress: "127.0.0.1:0",
		Home:          newTestHome(t),
		ConfigManager: newTestManager(t),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if srv.defraManager != nil {
		t.Error("expected no container manager for external DefraDB URL")
	}
	if srv.Running() {
		t.Error("server should not report running before Start")
	}
}

func TestRequireInit(t *testing.T) {
	srv, err := New(Config{
		Home:          newTestHome(t),
		ConfigManager: newTestManager(t),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	called := false
	handler := srv.requireInit(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	handler(rr, httptest.NewRequest("GET", "/api/extract", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
	if called {
		t.Error("handler should not run before initialization")
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("error body not JSON: %v", err)
	}
	if resp["error"] == "" {
		t.Error("expected error message")
	}

	srv.mu.Lock()
	srv.running = true
	srv.mu.Unlock()

	rr = httptest.NewRecorder()
	handler(rr, httptest.NewRequest("GET", "/api/extract", nil))
	if rr.Code != http.StatusOK || !called {
		t.Errorf("status = %d after init, called = %v", rr.Code, called)
	}
}

func TestWithServices(t *testing.T) {
	srv, err := New(Config{
		Home:          newTestHome(t),
		ConfigManager: newTestManager(t),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	srv.services = &svcctx.Services{}

	var got *svcctx.Services
	handler := srv.withServices(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = svcctx.ServicesFrom(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))
	if got != srv.services {
		t.Error("services not attached to request context")
	}
}

func TestRebuildExtractorSwapsSnapshot(t *testing.T) {
	mgr := newTestManager(t)
	srv, err := New(Config{
		Home:          newTestHome(t),
		ConfigManager: mgr,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	srv.registry.RegisterLLM("openrouter", providers.NewMockClient())

	srv.services = &svcctx.Services{}
	orig := srv.services

	srv.rebuildExtractor(mgr.Get())

	if srv.services == orig {
		t.Fatal("reload must swap in a fresh service container")
	}
	if orig.Extractor != nil {
		t.Error("previous snapshot must not be mutated")
	}
	if srv.services.Extractor == nil {
		t.Error("new snapshot missing the rebuilt extractor")
	}
}

// Config hot-reload may fire while requests are in flight; reads through
// the context-held snapshot must stay race-free under the race detector.
func TestRebuildExtractorConcurrentWithRequests(t *testing.T) {
	mgr := newTestManager(t)
	srv, err := New(Config{
		Home:          newTestHome(t),
		ConfigManager: mgr,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	srv.registry.RegisterLLM("openrouter", providers.NewMockClient())
	srv.services = &svcctx.Services{}
	srv.rebuildExtractor(mgr.Get())

	handler := srv.withServices(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if svcctx.ExtractorFrom(r.Context()) == nil {
			t.Error("extractor missing from request context")
		}
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			srv.rebuildExtractor(mgr.Get())
		}
	}()
	for i := 0; i < 100; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/extract", nil))
	}
	<-done
}

func TestPidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scrapetab.pid")

	if err := WritePidFile(path); err != nil {
		t.Fatalf("WritePidFile() error = %v", err)
	}

	pid, err := ReadPidFile(path)
	if err != nil {
		t.Fatalf("ReadPidFile() error = %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}
	if !IsProcessAlive(pid) {
		t.Error("own process should be alive")
	}

	RemovePidFile(path)
	if _, err := ReadPidFile(path); err == nil {
		t.Error("expected error after pid file removal")
	}
}

func TestPidFileInvalidContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scrapetab.pid")
	if err := os.WriteFile(path, []byte("not a pid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPidFile(path); err == nil {
		t.Error("expected error for garbage pid file")
	}
}

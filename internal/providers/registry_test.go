package providers

import (
	"context"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockClient()
		r.RegisterLLM("mock", mock)

		got, err := r.GetLLM("mock")
		if err != nil {
			t.Fatalf("GetLLM() error = %v", err)
		}
		if got != mock {
			t.Error("GetLLM() returned a different client")
		}
		if !r.HasLLM("mock") {
			t.Error("HasLLM() = false, want true")
		}
	})

	t.Run("get missing client", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.GetLLM("nope"); err == nil {
			t.Error("expected error for unregistered client")
		}
	})

	t.Run("unregister", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterLLM("mock", NewMockClient())
		r.UnregisterLLM("mock")
		if r.HasLLM("mock") {
			t.Error("client still registered after UnregisterLLM")
		}
	})

	t.Run("list", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterLLM("a", NewMockClient())
		r.RegisterLLM("b", NewMockClient())
		if got := len(r.ListLLM()); got != 2 {
			t.Errorf("ListLLM() returned %d names, want 2", got)
		}
	})
}

func TestRegistryReload(t *testing.T) {
	r := NewRegistry()
	r.RegisterLLM("stale", NewMockClient())

	r.Reload(RegistryConfig{
		LLMProviders: map[string]LLMProviderConfig{
			"deepseek": {
				Type:    OpenRouterName,
				Model:   "deepseek/deepseek-r1",
				APIKey:  "k",
				Enabled: true,
			},
			"disabled": {
				Type:    OpenRouterName,
				APIKey:  "k",
				Enabled: false,
			},
			"bogus": {
				Type:    "not-a-provider",
				Enabled: true,
			},
			"mock": {
				Type:    MockClientName,
				Enabled: true,
			},
		},
	})

	if r.HasLLM("stale") {
		t.Error("Reload should replace previously registered clients")
	}
	if !r.HasLLM("deepseek") {
		t.Error("enabled openrouter provider not registered")
	}
	if !r.HasLLM("mock") {
		t.Error("enabled mock provider not registered")
	}
	if r.HasLLM("disabled") {
		t.Error("disabled provider should be skipped")
	}
	if r.HasLLM("bogus") {
		t.Error("unknown provider type should be skipped")
	}

	client, err := r.GetLLM("mock")
	if err != nil {
		t.Fatalf("GetLLM() error = %v", err)
	}
	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !result.Success {
		t.Error("mock chat should succeed")
	}
}

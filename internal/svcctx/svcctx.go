// Package svcctx provides service context for dependency injection via
// context. Separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/scrapetab/scrapetab/internal/defra"
	"github.com/scrapetab/scrapetab/internal/extract"
	"github.com/scrapetab/scrapetab/internal/home"
	"github.com/scrapetab/scrapetab/internal/identity"
	"github.com/scrapetab/scrapetab/internal/llmcall"
	"github.com/scrapetab/scrapetab/internal/providers"
	"github.com/scrapetab/scrapetab/internal/records"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
// A Services value attached to a request is an immutable snapshot:
// reconfiguration swaps in a fresh struct rather than mutating fields.
type Services struct {
	DefraClient  *defra.Client
	DefraSink    *defra.Sink
	Registry     *providers.Registry
	Extractor    *extract.Extractor
	Records      *records.Store
	LLMCalls     *llmcall.Store
	CallRecorder *llmcall.Recorder
	Identity     identity.Resolver
	Logger       *slog.Logger
	Home         *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// DefraClientFrom extracts the DefraDB client from context.
func DefraClientFrom(ctx context.Context) *defra.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.DefraClient
	}
	return nil
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// ExtractorFrom extracts the extraction pipeline from context.
func ExtractorFrom(ctx context.Context) *extract.Extractor {
	if s := ServicesFrom(ctx); s != nil {
		return s.Extractor
	}
	return nil
}

// RecordsFrom extracts the extraction record store from context.
func RecordsFrom(ctx context.Context) *records.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Records
	}
	return nil
}

// LLMCallsFrom extracts the call store from context.
func LLMCallsFrom(ctx context.Context) *llmcall.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.LLMCalls
	}
	return nil
}

// CallRecorderFrom extracts the call recorder from context.
func CallRecorderFrom(ctx context.Context) *llmcall.Recorder {
	if s := ServicesFrom(ctx); s != nil {
		return s.CallRecorder
	}
	return nil
}

// IdentityFrom extracts the identity resolver from context.
func IdentityFrom(ctx context.Context) identity.Resolver {
	if s := ServicesFrom(ctx); s != nil {
		return s.Identity
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

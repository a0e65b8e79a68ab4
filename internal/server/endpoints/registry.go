package endpoints

import (
	"github.com/scrapetab/scrapetab/internal/api"
	"github.com/scrapetab/scrapetab/internal/defra"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	DefraManager    *defra.DockerManager
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{DefraManager: cfg.DefraManager},

		// Extraction endpoints
		&ExtractEndpoint{},
		&ListExtractionsEndpoint{},
		&GetExtractionEndpoint{},
		&ExportExtractionsEndpoint{},

		// LLM call history endpoints
		&ListLLMCallsEndpoint{},
		&LLMUsageEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}

// ExtractionCommands groups extraction history commands under an
// "extractions" subcommand.
func ExtractionCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListExtractionsEndpoint{},
		&GetExtractionEndpoint{},
		&ExportExtractionsEndpoint{},
	}
}

// LLMCallCommands groups call history commands under a "llmcalls"
// subcommand.
func LLMCallCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListLLMCallsEndpoint{},
		&LLMUsageEndpoint{},
	}
}

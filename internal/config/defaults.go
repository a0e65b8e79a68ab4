package config

import "github.com/scrapetab/scrapetab/internal/identity"

// DefaultConfig returns the built-in configuration. A config file and
// SCRAPETAB_* environment variables override these values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress: ":8080",
		},
		LLMProviders: map[string]LLMProviderConfig{
			"openrouter": {
				Type:           "openrouter",
				Model:          "deepseek/deepseek-r1",
				APIKey:         "${OPENROUTER_API_KEY}",
				TimeoutSeconds: 60,
				Enabled:        true,
			},
			"openai": {
				Type:           "openai",
				Model:          "gpt-4o-mini",
				APIKey:         "${OPENAI_API_KEY}",
				TimeoutSeconds: 60,
				Enabled:        false,
			},
		},
		Defaults: DefaultsConfig{
			LLMProvider:  "openrouter",
			StrictSchema: false,
			HistoryLimit: 100,
		},
		Defra: DefraConfig{
			ContainerName: "scrapetab-defra",
			HostPort:      "9181",
		},
		Identity: IdentityConfig{
			Strategy: identity.StrategyAnonymous,
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrapetab/scrapetab/internal/api"
	"github.com/scrapetab/scrapetab/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage scrapetab configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write the default configuration to ~/.scrapetab/config.yaml.

Edit the file afterwards to set provider API keys (or export the
OPENROUTER_API_KEY / OPENAI_API_KEY environment variables) and to pick
an identity strategy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}

		path := cfgFile
		if path == "" {
			path = h.ConfigPath()
		}

		if h.ConfigExists() && cfgFile == "" {
			return fmt.Errorf("config already exists at %s", path)
		}

		if err := config.WriteDefault(path); err != nil {
			return err
		}

		fmt.Printf("Wrote default config to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		return outputConfig(mgr.Get())
	},
}

// outputConfig prints the config with API keys redacted.
func outputConfig(cfg *config.Config) error {
	redacted := *cfg
	redacted.LLMProviders = make(map[string]config.LLMProviderConfig, len(cfg.LLMProviders))
	for name, pc := range cfg.LLMProviders {
		if pc.APIKey != "" {
			pc.APIKey = "[redacted]"
		}
		redacted.LLMProviders[name] = pc
	}
	return api.Output(redacted)
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

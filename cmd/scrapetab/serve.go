package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/scrapetab/scrapetab/internal/config"
	"github.com/scrapetab/scrapetab/internal/home"
	"github.com/scrapetab/scrapetab/internal/server"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Scrapetab server",
	Long: `Start the Scrapetab HTTP server.

This starts the HTTP API server and, unless an external DefraDB URL is
configured, the DefraDB container. When the server shuts down (via Ctrl+C
or SIGTERM), the container is also stopped unless defra.keep_alive is set.

The server provides:
  - /health - Basic server health check
  - /ready  - Readiness check (includes DefraDB status)

Examples:
  scrapetab serve                         # Listen on the configured address
  scrapetab serve --listen 0.0.0.0:3000   # Override the listen address`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		configMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		configMgr.WatchConfig()

		listen := serveListen
		if listen == "" {
			listen = configMgr.Get().Server.ListenAddress
		}

		srv, err := server.New(server.Config{
			ListenAddress: listen,
			Home:          h,
			ConfigManager: configMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		if err := server.WritePidFile(h.PidPath()); err != nil {
			logger.Warn("failed to write pid file", "path", h.PidPath(), "error", err)
		}
		defer server.RemovePidFile(h.PidPath())

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Address to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}

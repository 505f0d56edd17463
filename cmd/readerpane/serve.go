package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/julia-Lukaszewska/readerpane/internal/config"
	"github.com/julia-Lukaszewska/readerpane/internal/home"
	"github.com/julia-Lukaszewska/readerpane/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the readerpane server",
	Long: `Start the readerpane HTTP server.

The server provides:
  - /health - Basic server health check
  - /ready  - Readiness check (includes blob store status)

Examples:
  readerpane serve                    # Start on default port 8080
  readerpane serve --port 3000        # Start on custom port
  readerpane serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Load configuration with hot-reload support
		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfgMgr.WatchConfig()

		host := serveHost
		port := servePort
		if cfg := cfgMgr.Get(); cfg != nil {
			if !cmd.Flags().Changed("host") && cfg.Server.Host != "" {
				host = cfg.Server.Host
			}
			if !cmd.Flags().Changed("port") && cfg.Server.Port != "" {
				port = cfg.Server.Port
			}
		}

		// Create server
		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			Home:          h,
			ConfigManager: cfgMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}

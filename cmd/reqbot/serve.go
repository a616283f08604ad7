package main

import (
	"github.com/spf13/cobra"

	"github.com/rendis/reqbot/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the JSON API with session, chat, extraction, report, diagram rendering,
server-sent events and websocket chat endpoints, plus Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		stopPurge, err := a.startPurge(cmd.Context())
		if err != nil {
			return err
		}
		defer stopPurge()

		h := api.NewHandler(api.Deps{
			Service: a.service,
			Metrics: a.metrics.Handler(),
			Logger:  a.logger,
		})
		return api.Serve(cmd.Context(), cfg.Server.Addr, h, cfg.Server.ReadTimeout, cfg.Server.ShutdownTimeout, a.logger)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/rendis/reqbot/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server over stdio",
	Long: `Runs ReqBot as a Model Context Protocol server on stdin/stdout, exposing the
reqbot.chat, reqbot.extract, reqbot.report, reqbot.render_diagram and reqbot.session tools.
Logs go to stderr or the configured log file.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		stopPurge, err := a.startPurge(cmd.Context())
		if err != nil {
			return err
		}
		defer stopPurge()

		srv := mcp.NewReqbotServer(mcp.ReqbotServerDeps{
			Service: a.service,
			Logger:  a.logger,
			Version: version,
		})
		a.logger.Info("mcp server listening on stdio")
		return srv.Serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

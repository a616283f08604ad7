package main

import (
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <session-id>",
	Short: "Extract requirements from a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		reqs, err := a.service.Extract(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd.OutOrStdout(), reqs)
		}
		raw, _ := cmd.Flags().GetBool("raw")
		return writeMarkdown(cmd.OutOrStdout(), requirementsMarkdown(reqs), raw)
	},
}

func init() {
	extractCmd.Flags().Bool("json", false, "print requirements as JSON")
	extractCmd.Flags().Bool("raw", false, "print Markdown without terminal styling")
	rootCmd.AddCommand(extractCmd)
}

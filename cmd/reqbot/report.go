package main

import (
	"github.com/spf13/cobra"

	"github.com/rendis/reqbot/pkg/schema"
)

var reportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Generate the requirements report for a session",
	Long: `Runs the summary, diagram, cost and references sections concurrently from the
session's extracted requirements. A failing section is reported in place and does not
fail the command. Use --section to regenerate a single section.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		asJSON, _ := cmd.Flags().GetBool("json")
		raw, _ := cmd.Flags().GetBool("raw")

		if name, _ := cmd.Flags().GetString("section"); name != "" {
			sec, err := schema.ParseSection(name)
			if err != nil {
				return err
			}
			res, err := a.service.RetrySection(ctx, args[0], sec)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, res)
			}
			return writeMarkdown(out, sectionMarkdown(sec, res), raw)
		}

		rep, err := a.service.Report(ctx, args[0])
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(out, rep)
		}
		return writeMarkdown(out, reportMarkdown(rep), raw)
	},
}

func init() {
	reportCmd.Flags().String("section", "", "regenerate one section: summary, diagram, cost, references")
	reportCmd.Flags().Bool("json", false, "print the report as JSON")
	reportCmd.Flags().Bool("raw", false, "print Markdown without terminal styling")
	rootCmd.AddCommand(reportCmd)
}

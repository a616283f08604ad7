package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored elicitation sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.service.Sessions(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session's transcript and requirements",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.service.Session(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(out, sess)
		}
		fmt.Fprintf(out, "Session:  %s\nCreated:  %s\nUpdated:  %s\nMessages: %d\n\n",
			sess.ID, sess.CreatedAt.Format(time.RFC3339), sess.UpdatedAt.Format(time.RFC3339), len(sess.Messages))
		if t := sess.Transcript(); t != "" {
			fmt.Fprintln(out, t)
			fmt.Fprintln(out)
		}
		if len(sess.Requirements) > 0 {
			raw, _ := cmd.Flags().GetBool("raw")
			return writeMarkdown(out, requirementsMarkdown(sess.Requirements), raw)
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>...",
	Short: "Delete one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		failed := 0
		for _, id := range args {
			if err := a.service.DeleteSession(cmd.Context(), id); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing %s: %v\n", id, err)
				failed++
				continue
			}
			fmt.Fprintf(out, "Removed session %s\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d sessions could not be removed", failed, len(args))
		}
		return nil
	},
}

var sessionsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete sessions idle for longer than a duration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan <= 0 {
			olderThan = a.cfg.Storage.TTL
		}
		if olderThan <= 0 {
			return fmt.Errorf("--older-than must be positive when storage.ttl is unset")
		}
		n, err := a.service.Purge(cmd.Context(), time.Now().Add(-olderThan))
		if err != nil {
			return err
		}
		a.metrics.ObservePurge(n)
		fmt.Fprintf(cmd.OutOrStdout(), "Purged %d sessions idle for more than %s\n", n, olderThan)
		return nil
	},
}

func init() {
	sessionsShowCmd.Flags().Bool("json", false, "print the stored session as JSON")
	sessionsShowCmd.Flags().Bool("raw", false, "print Markdown without terminal styling")
	sessionsPurgeCmd.Flags().Duration("older-than", 0, "idle duration (default: storage.ttl)")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd, sessionsPurgeCmd)
	rootCmd.AddCommand(sessionsCmd)
}

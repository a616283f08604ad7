package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rendis/reqbot/internal/handoff"
	"github.com/rendis/reqbot/pkg/schema"
)

const chatHelp = `Commands:
  /extract     extract requirements from the conversation so far
  /report      generate the full report
  /transcript  print the conversation
  /help        show this help
  /quit        leave (also Ctrl-D)
`

// chatService is the part of the assistant the chat loop drives.
type chatService interface {
	Chat(ctx context.Context, id, message string) (string, error)
	Extract(ctx context.Context, id string) ([]schema.Requirement, error)
	Report(ctx context.Context, id string) (*schema.Report, error)
	Session(ctx context.Context, id string) (*handoff.Session, error)
}

var chatCmd = &cobra.Command{
	Use:   "chat [session-id]",
	Short: "Interview a stakeholder in the terminal",
	Long: `Starts an interactive elicitation conversation. Without a session ID a new session
is created. Lines starting with / are commands; type /help to list them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		var sess *handoff.Session
		if len(args) == 1 {
			sess, err = a.service.Session(ctx, args[0])
		} else {
			sess, err = a.service.CreateSession(ctx)
		}
		if err != nil {
			return err
		}

		raw, _ := cmd.Flags().GetBool("raw")
		in := cmd.InOrStdin()
		prompt := false
		if f, ok := in.(*os.File); ok {
			prompt = isTerminal(f)
		}
		return runChat(ctx, a.service, sess.ID, in, cmd.OutOrStdout(), chatOptions{prompt: prompt, raw: raw})
	},
}

type chatOptions struct {
	prompt bool
	raw    bool
}

// runChat reads one message per line until EOF or /quit. Failed turns are
// reported and the loop continues.
func runChat(ctx context.Context, svc chatService, id string, in io.Reader, out io.Writer, opts chatOptions) error {
	if opts.prompt {
		fmt.Fprintf(out, "Session %s. Type /help for commands.\n", id)
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if opts.prompt {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprint(out, chatHelp)
		case "/transcript":
			sess, err := svc.Session(ctx, id)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintln(out, sess.Transcript())
		case "/extract":
			reqs, err := svc.Extract(ctx, id)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "Extracted %d requirements.\n", len(reqs))
			if err := writeMarkdown(out, requirementsMarkdown(reqs), opts.raw); err != nil {
				return err
			}
		case "/report":
			rep, err := svc.Report(ctx, id)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			if err := writeMarkdown(out, reportMarkdown(rep), opts.raw); err != nil {
				return err
			}
		default:
			if strings.HasPrefix(line, "/") {
				fmt.Fprintf(out, "unknown command %s; type /help\n", line)
				continue
			}
			reply, err := svc.Chat(ctx, id, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "%s: %s\n", schema.RoleAI.Label(), reply)
		}
	}
}

func init() {
	chatCmd.Flags().Bool("raw", false, "print Markdown without terminal styling")
	rootCmd.AddCommand(chatCmd)
}

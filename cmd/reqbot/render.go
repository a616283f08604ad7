package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rendis/reqbot/internal/diagram"
)

var renderCmd = &cobra.Command{
	Use:   "render <diagram.json|->",
	Short: "Render a structured activity diagram",
	Long: `Renders a diagram JSON document ({"nodes": [...], "edges": [...]}) as Mermaid,
ASCII, SVG or PNG. Dangling edges are dropped and reported on stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		formatName, _ := cmd.Flags().GetString("format")
		out, payload, err := renderDiagram(cmd.Context(), data, formatName)
		if err != nil {
			return err
		}
		for _, w := range out.Diagnostics {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning (%s): %s\n", w.Code, w.Message)
		}

		outPath, _ := cmd.Flags().GetString("out")
		if outPath != "" {
			return os.WriteFile(outPath, payload, 0o644)
		}
		if f, ok := cmd.OutOrStdout().(*os.File); ok && out.Format == diagram.FormatPNG && isTerminal(f) {
			return fmt.Errorf("refusing to write PNG to a terminal; use --out")
		}
		_, err = cmd.OutOrStdout().Write(payload)
		return err
	},
}

// renderDiagram decodes and renders a diagram document, returning the
// rendered result and the bytes to emit.
func renderDiagram(ctx context.Context, data []byte, formatName string) (*diagram.Rendered, []byte, error) {
	format, err := diagram.ParseFormat(formatName)
	if err != nil {
		return nil, nil, err
	}
	var d diagram.Diagram
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, nil, fmt.Errorf("parse diagram: %w", err)
	}
	out, err := diagram.RenderFormat(ctx, &d, format)
	if err != nil {
		return nil, nil, err
	}
	if out.Image != nil {
		return out, out.Image, nil
	}
	return out, []byte(out.Markup), nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func init() {
	renderCmd.Flags().StringP("format", "f", "mermaid", "output format: mermaid, ascii, svg, png")
	renderCmd.Flags().StringP("out", "o", "", "write output to a file instead of stdout")
	rootCmd.AddCommand(renderCmd)
}

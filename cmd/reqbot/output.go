package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/rendis/reqbot/pkg/schema"
)

var sectionTitles = map[schema.Section]string{
	schema.SectionSummary:    "Executive Summary",
	schema.SectionDiagram:    "Activity Diagram",
	schema.SectionCost:       "Cost Estimation",
	schema.SectionReferences: "References",
}

// isTerminal reports whether f is attached to a TTY.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// writeMarkdown styles md for the terminal when w is a TTY and raw is
// false; otherwise it writes md unchanged.
func writeMarkdown(w io.Writer, md string, raw bool) error {
	f, ok := w.(*os.File)
	if raw || !ok || !isTerminal(f) {
		_, err := io.WriteString(w, md)
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// requirementsMarkdown renders requirements as one table per type, in
// report order. Types without requirements are skipped.
func requirementsMarkdown(reqs []schema.Requirement) string {
	var b strings.Builder
	grouped := schema.GroupRequirements(reqs)
	for _, t := range schema.RequirementTypes {
		items := grouped[t]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", t)
		b.WriteString("| ID | Description | Priority | Confidence |\n")
		b.WriteString("|----|-------------|----------|------------|\n")
		for _, r := range items {
			fmt.Fprintf(&b, "| %s | %s | %s | %.2f |\n",
				r.ID, strings.ReplaceAll(r.Description, "|", `\|`), r.Priority, r.ConfidenceScore)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// sectionMarkdown renders one section result under its heading. The
// diagram is fenced as mermaid; failures print their error instead.
func sectionMarkdown(sec schema.Section, res schema.SectionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", sectionTitles[sec])
	switch {
	case !res.OK():
		fmt.Fprintf(&b, "> Section unavailable: %s\n\n", res.Error)
	case sec == schema.SectionDiagram:
		b.WriteString("```mermaid\n")
		b.WriteString(strings.TrimSuffix(res.Content, "\n"))
		b.WriteString("\n```\n\n")
	default:
		b.WriteString(strings.TrimSpace(res.Content))
		b.WriteString("\n\n")
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "- warning (%s): %s\n", w.Code, w.Message)
	}
	if len(res.Warnings) > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

// reportMarkdown renders a full report as a Markdown document.
func reportMarkdown(rep *schema.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Requirements Report\n\nSession `%s`, generated %s.\n\n",
		rep.SessionID, rep.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))
	b.WriteString("## Requirements\n\n")
	b.WriteString(requirementsMarkdown(rep.Requirements))
	for _, sec := range schema.Sections {
		res, ok := rep.Sections[sec]
		if !ok {
			continue
		}
		b.WriteString(sectionMarkdown(sec, res))
	}
	return b.String()
}

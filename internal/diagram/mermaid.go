package diagram

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rendis/reqbot/pkg/schema"
)

// Format selects a renderer output.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatASCII   Format = "ascii"
	FormatPNG     Format = "png"
	FormatSVG     Format = "svg"
)

// ParseFormat validates a format name. Empty selects Mermaid.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatMermaid, nil
	case FormatMermaid, FormatASCII, FormatPNG, FormatSVG:
		return f, nil
	}
	return "", schema.NewErrorf(schema.ErrCodeValidation, "unknown diagram format %q", s)
}

// Rendered is the output of a successful render. Text formats fill Markup,
// image formats fill Image.
type Rendered struct {
	Format      Format                   `json:"format"`
	Markup      string                   `json:"markup,omitempty"`
	Image       []byte                   `json:"-"`
	Diagnostics []schema.ValidationIssue `json:"diagnostics,omitempty"`
}

// Render validates d and renders it as Mermaid flowchart markup.
func Render(d *Diagram) (*Rendered, error) {
	return RenderFormat(context.Background(), d, FormatMermaid)
}

// RenderFormat validates d and renders it in the requested format.
func RenderFormat(ctx context.Context, d *Diagram, format Format) (*Rendered, error) {
	p, err := Prepare(d)
	if err != nil {
		return nil, err
	}

	out := &Rendered{Format: format, Diagnostics: p.Diagnostics}
	switch format {
	case FormatMermaid, "":
		out.Format = FormatMermaid
		out.Markup = RenderMermaid(p)
	case FormatASCII:
		out.Markup = RenderASCII(p)
	case FormatPNG, FormatSVG:
		img, err := RenderImage(ctx, p, format)
		if err != nil {
			return nil, err
		}
		out.Image = img
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown diagram format %q", format)
	}
	return out, nil
}

// RenderMermaid renders a prepared diagram as a top-down Mermaid flowchart.
// The output has one header line, one line per node and one line per edge.
func RenderMermaid(p *Prepared) string {
	var b strings.Builder

	b.WriteString("flowchart TD\n")

	for _, node := range p.Nodes {
		b.WriteString("    ")
		b.WriteString(mermaidNodeDef(p.SafeID(node.ID), node))
		b.WriteByte('\n')
	}

	for _, edge := range p.Edges {
		label := ""
		if edge.Label != "" {
			label = fmt.Sprintf("|\"%s\"|", mermaidLabel(edge.Label))
		}
		b.WriteString(fmt.Sprintf("    %s -->%s %s\n", p.SafeID(edge.From), label, p.SafeID(edge.To)))
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the shape for its kind.
func mermaidNodeDef(id string, node Node) string {
	label := node.Label
	if strings.TrimSpace(label) == "" {
		label = node.ID
	}
	label = mermaidLabel(label)

	switch node.Kind {
	case NodeKindStart, NodeKindEnd:
		return fmt.Sprintf("%s([\"%s\"])", id, label)
	case NodeKindDecision:
		return fmt.Sprintf("%s{\"%s\"}", id, label)
	default: // action
		return fmt.Sprintf("%s[\"%s\"]", id, label)
	}
}

var lineBreaks = strings.NewReplacer("\r\n", "<br/>", "\n", "<br/>", "\r", "<br/>")

// mermaidLabel keeps every declaration on a single line.
func mermaidLabel(s string) string {
	return lineBreaks.Replace(s)
}

// mermaidReserved are words the flowchart grammar treats as keywords.
var mermaidReserved = map[string]bool{
	"end": true, "graph": true, "flowchart": true, "subgraph": true,
	"style": true, "classdef": true, "class": true, "click": true,
	"linkstyle": true, "direction": true, "default": true,
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
// Anything outside letters, digits and underscore becomes an underscore,
// and keywords get a trailing underscore.
func mermaidSafeID(id string) string {
	safe := strings.Map(func(r rune) rune {
		if r == '_' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return '_'
	}, id)
	if mermaidReserved[strings.ToLower(safe)] {
		safe += "_"
	}
	return safe
}

package diagram

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// RenderASCII renders a prepared diagram as a text preview for terminals.
// Nodes are laid out in rows by distance from the start node, followed by
// the list of transitions.
func RenderASCII(p *Prepared) string {
	var b strings.Builder

	nodes := make(map[string]Node, len(p.Nodes))
	for _, n := range p.Nodes {
		nodes[n.ID] = n
	}

	rows := levels(p)
	for i, row := range rows {
		boxes := make([]asciiBox, 0, len(row))
		for _, id := range row {
			boxes = append(boxes, makeBox(nodes[id]))
		}
		renderBoxRow(&b, boxes)
		if i < len(rows)-1 {
			renderConnector(&b, len(boxes))
		}
	}

	if len(p.Edges) > 0 {
		b.WriteString("\nTransitions:\n")
		for _, e := range p.Edges {
			if e.Label != "" {
				b.WriteString(fmt.Sprintf("  %s ─[%s]→ %s\n", e.From, firstLine(e.Label), e.To))
			} else {
				b.WriteString(fmt.Sprintf("  %s ─→ %s\n", e.From, e.To))
			}
		}
	}

	return b.String()
}

// asciiBox holds the rendered lines of a single box.
type asciiBox struct {
	lines []string
	width int
}

// boxChars are the corner and edge runes for one node kind.
type boxChars struct {
	tl, tr, bl, br, h, v string
}

var (
	squareBox  = boxChars{"┌", "┐", "└", "┘", "─", "│"}
	roundedBox = boxChars{"╭", "╮", "╰", "╯", "─", "│"}
	doubleBox  = boxChars{"╔", "╗", "╚", "╝", "═", "║"}
)

// makeBox creates a box for a node: rounded for start and end, double
// for decisions, square for actions.
func makeBox(node Node) asciiBox {
	label := firstLine(node.Label)
	if strings.TrimSpace(label) == "" {
		label = node.ID
	}

	chars := squareBox
	switch node.Kind {
	case NodeKindStart, NodeKindEnd:
		chars = roundedBox
	case NodeKindDecision:
		chars = doubleBox
		label = "◇ " + label
	}

	textLen := utf8.RuneCountInString(label)
	width := textLen + 4 // 2 border + 2 padding

	lines := []string{
		chars.tl + strings.Repeat(chars.h, width-2) + chars.tr,
		chars.v + " " + label + " " + chars.v,
		chars.bl + strings.Repeat(chars.h, width-2) + chars.br,
	}
	return asciiBox{lines: lines, width: width}
}

// firstLine returns only the first line of a multi-line label.
func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// renderBoxRow writes boxes side by side.
func renderBoxRow(b *strings.Builder, boxes []asciiBox) {
	if len(boxes) == 0 {
		return
	}

	maxHeight := 0
	for _, box := range boxes {
		maxHeight = max(maxHeight, len(box.lines))
	}

	for row := 0; row < maxHeight; row++ {
		for i, box := range boxes {
			if i > 0 {
				b.WriteString("  ")
			}
			if row < len(box.lines) {
				b.WriteString(box.lines[row])
			} else {
				b.WriteString(strings.Repeat(" ", box.width))
			}
		}
		b.WriteByte('\n')
	}
}

// renderConnector draws a vertical connector between rows.
func renderConnector(b *strings.Builder, boxCount int) {
	if boxCount == 0 {
		return
	}
	b.WriteString("       │\n")
	b.WriteString("       ▼\n")
}

package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// RenderImage renders a prepared diagram as a PNG or SVG image using graphviz.
func RenderImage(ctx context.Context, p *Prepared, format Format) ([]byte, error) {
	var gvFormat graphviz.Format
	switch format {
	case FormatPNG:
		gvFormat = graphviz.PNG
	case FormatSVG:
		gvFormat = graphviz.SVG
	default:
		return nil, fmt.Errorf("diagram: unsupported image format %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.TBRank)

	gvNodes := make(map[string]*cgraph.Node, len(p.Nodes))
	for _, node := range p.Nodes {
		gvNode, nErr := graph.CreateNodeByName(p.SafeID(node.ID))
		if nErr != nil {
			return nil, fmt.Errorf("diagram: create node %s: %w", node.ID, nErr)
		}
		label := node.Label
		if label == "" {
			label = node.ID
		}
		gvNode.SetLabel(label)
		applyNodeStyle(gvNode, node.Kind)
		gvNodes[node.ID] = gvNode
	}

	for _, edge := range p.Edges {
		e, eErr := graph.CreateEdgeByName("", gvNodes[edge.From], gvNodes[edge.To])
		if eErr != nil {
			return nil, fmt.Errorf("diagram: create edge %s -> %s: %w", edge.From, edge.To, eErr)
		}
		if edge.Label != "" {
			e.SetLabel(edge.Label)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render %s: %w", format, err)
	}

	return buf.Bytes(), nil
}

// applyNodeStyle sets the graphviz shape for a node kind.
func applyNodeStyle(gvNode *cgraph.Node, kind NodeKind) {
	switch kind {
	case NodeKindDecision:
		gvNode.SetShape(cgraph.DiamondShape)
	case NodeKindStart, NodeKindEnd:
		gvNode.SetShape(cgraph.BoxShape)
		gvNode.SetStyle(cgraph.RoundedNodeStyle)
	default:
		gvNode.SetShape(cgraph.BoxShape)
	}
}

package diagram

import (
	"fmt"

	"github.com/rendis/reqbot/pkg/schema"
)

// Advisory warning codes. They never make a diagram invalid.
const (
	WarnDecisionBranches = "DECISION_BRANCHES"
	WarnUnreachableNode  = "UNREACHABLE_NODE"
	WarnNoPathToEnd      = "NO_PATH_TO_END"
)

// Prepared is a diagram that passed structural validation. Labels are
// sanitized, dangling edges are removed and every node id has a
// Mermaid-safe counterpart. All renderers draw from a Prepared.
type Prepared struct {
	Nodes       []Node
	Edges       []Edge
	Diagnostics []schema.ValidationIssue

	safeIDs map[string]string
}

// SafeID returns the renderer identifier for a node id.
func (p *Prepared) SafeID(id string) string {
	return p.safeIDs[id]
}

// Prepare validates d and returns its render-ready form.
//
// An empty node list fails with EMPTY_DIAGRAM. Anything other than exactly
// one start node, zero end nodes, empty or duplicate ids and unknown kinds
// fail with MALFORMED_DIAGRAM. Edges pointing at unknown nodes are dropped
// and reported as DANGLING_EDGE diagnostics.
func Prepare(d *Diagram) (*Prepared, error) {
	if d == nil || len(d.Nodes) == 0 {
		return nil, schema.NewError(schema.ErrCodeEmptyDiagram, "diagram has no nodes")
	}

	safeIDs, result := checkNodes(d.Nodes)
	if err := result.ToError(); err != nil {
		return nil, err
	}

	p := &Prepared{
		Nodes:   make([]Node, len(d.Nodes)),
		Edges:   make([]Edge, 0, len(d.Edges)),
		safeIDs: safeIDs,
	}
	for i, n := range d.Nodes {
		p.Nodes[i] = Node{ID: n.ID, Label: SanitizeLabel(n.Label), Kind: n.Kind}
	}

	for i, e := range d.Edges {
		_, fromOK := safeIDs[e.From]
		_, toOK := safeIDs[e.To]
		if !fromOK || !toOK {
			result.AddWarning(fmt.Sprintf("edges[%d]", i), schema.ErrCodeDanglingEdge,
				fmt.Sprintf("edge %q -> %q references an unknown node and was dropped", e.From, e.To))
			continue
		}
		p.Edges = append(p.Edges, Edge{From: e.From, To: e.To, Label: SanitizeLabel(e.Label)})
	}

	result.Merge(checkFlow(p))
	p.Diagnostics = result.Warnings
	return p, nil
}

// checkNodes enforces the node-level invariants and assigns safe ids.
func checkNodes(nodes []Node) (map[string]string, *schema.ValidationResult) {
	result := &schema.ValidationResult{}
	issues := &schema.ValidationResult{}

	safeIDs := make(map[string]string, len(nodes))
	owners := make(map[string]string, len(nodes))
	starts, ends := 0, 0

	for i, n := range nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		switch n.Kind {
		case NodeKindStart:
			starts++
		case NodeKindEnd:
			ends++
		}

		if !n.Kind.Valid() {
			issues.AddError(path+".kind", schema.ErrCodeMalformedDiagram,
				fmt.Sprintf("node %q has unknown kind %q", n.ID, n.Kind))
		}
		if n.ID == "" {
			issues.AddError(path+".id", schema.ErrCodeMalformedDiagram, "node id is empty")
			continue
		}
		if _, dup := safeIDs[n.ID]; dup {
			issues.AddError(path+".id", schema.ErrCodeMalformedDiagram,
				fmt.Sprintf("duplicate node id %q", n.ID))
			continue
		}
		sid := mermaidSafeID(n.ID)
		if prev, taken := owners[sid]; taken {
			issues.AddError(path+".id", schema.ErrCodeMalformedDiagram,
				fmt.Sprintf("node ids %q and %q both map to identifier %q", prev, n.ID, sid))
			continue
		}
		safeIDs[n.ID] = sid
		owners[sid] = n.ID
	}

	if starts != 1 {
		result.AddError("nodes", schema.ErrCodeMalformedDiagram,
			fmt.Sprintf("diagram must have exactly one start node, found %d", starts))
	}
	if ends == 0 {
		result.AddError("nodes", schema.ErrCodeMalformedDiagram, "diagram must have at least one end node")
	}
	result.Merge(issues)

	return safeIDs, result
}

// checkFlow reports advisory shape problems: decisions with fewer than two
// outgoing edges, nodes unreachable from start, and reachable nodes with no
// path to an end node.
func checkFlow(p *Prepared) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	out := make(map[string][]string, len(p.Nodes))
	in := make(map[string][]string, len(p.Nodes))
	for _, e := range p.Edges {
		out[e.From] = append(out[e.From], e.To)
		in[e.To] = append(in[e.To], e.From)
	}

	var start string
	var ends []string
	for _, n := range p.Nodes {
		switch n.Kind {
		case NodeKindStart:
			start = n.ID
		case NodeKindEnd:
			ends = append(ends, n.ID)
		}
	}

	forward := reach([]string{start}, out)
	backward := reach(ends, in)

	for i, n := range p.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		if n.Kind == NodeKindDecision && len(out[n.ID]) < 2 {
			result.AddWarning(path, WarnDecisionBranches,
				fmt.Sprintf("decision %q has %d outgoing edges, expected at least 2", n.ID, len(out[n.ID])))
		}
		if !forward[n.ID] {
			result.AddWarning(path, WarnUnreachableNode,
				fmt.Sprintf("node %q is unreachable from the start node", n.ID))
			continue
		}
		if !backward[n.ID] {
			result.AddWarning(path, WarnNoPathToEnd,
				fmt.Sprintf("node %q has no path to an end node", n.ID))
		}
	}

	return result
}

// reach runs a BFS from roots over adj and returns the visited set.
func reach(roots []string, adj map[string][]string) map[string]bool {
	seen := make(map[string]bool, len(adj))
	queue := make([]string, 0, len(roots))
	for _, r := range roots {
		if !seen[r] {
			seen[r] = true
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range adj[node] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

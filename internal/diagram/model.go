package diagram

// NodeKind classifies a diagram node and selects its shape.
type NodeKind string

const (
	NodeKindStart    NodeKind = "start"
	NodeKindEnd      NodeKind = "end"
	NodeKindAction   NodeKind = "action"
	NodeKindDecision NodeKind = "decision"
)

// Valid reports whether k is one of the four known kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case NodeKindStart, NodeKindEnd, NodeKindAction, NodeKindDecision:
		return true
	}
	return false
}

// Diagram is the structured activity diagram produced by the oracle and
// consumed by every renderer. It is built per request and never mutated by
// the renderers.
type Diagram struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is a single vertex of the diagram.
type Node struct {
	ID    string   `json:"id" jsonschema:"minLength=1,description=Short unique token such as n1"`
	Label string   `json:"label" jsonschema:"description=Human readable step text without quotes or parentheses"`
	Kind  NodeKind `json:"kind" jsonschema:"enum=start,enum=end,enum=action,enum=decision"`
}

// Edge is a directed transition between two nodes.
type Edge struct {
	From  string `json:"from" jsonschema:"minLength=1"`
	To    string `json:"to" jsonschema:"minLength=1"`
	Label string `json:"label,omitempty" jsonschema:"description=Optional branch annotation such as Yes or No"`
}

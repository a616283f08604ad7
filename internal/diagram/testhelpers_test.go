package diagram

// validationFlow is the four-node start/decision/action/end diagram used
// across the renderer tests.
func validationFlow() *Diagram {
	return &Diagram{
		Nodes: []Node{
			{ID: "A", Kind: NodeKindStart, Label: "Start"},
			{ID: "B", Kind: NodeKindDecision, Label: "Valid input?"},
			{ID: "C", Kind: NodeKindAction, Label: "Process"},
			{ID: "D", Kind: NodeKindEnd, Label: "End"},
		},
		Edges: []Edge{
			{From: "A", To: "B"},
			{From: "B", To: "C", Label: "Yes"},
			{From: "B", To: "D", Label: "No"},
			{From: "C", To: "D"},
		},
	}
}

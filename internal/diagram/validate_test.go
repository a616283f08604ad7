package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diagnosticCodes(p *Prepared) []string {
	codes := make([]string, 0, len(p.Diagnostics))
	for _, d := range p.Diagnostics {
		codes = append(codes, d.Code)
	}
	return codes
}

func TestPrepareSanitizesOnce(t *testing.T) {
	d := validationFlow()
	d.Nodes[1].Label = `Is it "valid" (really)?`
	d.Edges[1].Label = "(Yes)"

	p, err := Prepare(d)
	require.NoError(t, err)
	assert.Equal(t, "Is it valid really?", p.Nodes[1].Label)
	assert.Equal(t, "Yes", p.Edges[1].Label)
}

func TestPrepareDecisionBranchWarning(t *testing.T) {
	d := &Diagram{
		Nodes: []Node{
			{ID: "s", Kind: NodeKindStart},
			{ID: "q", Kind: NodeKindDecision, Label: "Ok?"},
			{ID: "e", Kind: NodeKindEnd},
		},
		Edges: []Edge{{From: "s", To: "q"}, {From: "q", To: "e"}},
	}

	p, err := Prepare(d)
	require.NoError(t, err)
	assert.Equal(t, []string{WarnDecisionBranches}, diagnosticCodes(p))
}

func TestPrepareReachabilityWarnings(t *testing.T) {
	d := &Diagram{
		Nodes: []Node{
			{ID: "s", Kind: NodeKindStart},
			{ID: "a", Kind: NodeKindAction, Label: "Loop forever"},
			{ID: "orphan", Kind: NodeKindAction},
			{ID: "e", Kind: NodeKindEnd},
		},
		Edges: []Edge{{From: "s", To: "a"}, {From: "a", To: "a"}, {From: "s", To: "e"}},
	}

	p, err := Prepare(d)
	require.NoError(t, err)
	assert.Equal(t, []string{WarnNoPathToEnd, WarnUnreachableNode}, diagnosticCodes(p))
	assert.Equal(t, "nodes[1]", p.Diagnostics[0].Path)
	assert.Equal(t, "nodes[2]", p.Diagnostics[1].Path)
}

func TestPrepareErrorMessageNamesStartCount(t *testing.T) {
	_, err := Prepare(&Diagram{Nodes: []Node{
		{ID: "s1", Kind: NodeKindStart},
		{ID: "s2", Kind: NodeKindStart},
		{ID: "e", Kind: NodeKindEnd},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one start node, found 2")
}

func TestSanitizeLabelIdempotent(t *testing.T) {
	inputs := []string{
		`He said "go" (now)`,
		"plain text",
		`((("")))`,
		"keeps / slashes, [brackets] and {braces}",
		"",
	}
	for _, in := range inputs {
		once := SanitizeLabel(in)
		assert.Equal(t, once, SanitizeLabel(once), in)
		assert.NotContains(t, once, `"`)
		assert.NotContains(t, once, "(")
		assert.NotContains(t, once, ")")
	}
	assert.Equal(t, "keeps / slashes, [brackets] and {braces}", SanitizeLabel(inputs[3]))
}

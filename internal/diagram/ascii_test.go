package diagram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderASCII(t *testing.T) {
	p, err := Prepare(validationFlow())
	require.NoError(t, err)

	output := RenderASCII(p)
	assert.NotEmpty(t, output)

	// Box-drawing characters per kind.
	assert.Contains(t, output, "╭") // start/end
	assert.Contains(t, output, "╔") // decision
	assert.Contains(t, output, "┌") // action
	assert.Contains(t, output, "▼")

	assert.Contains(t, output, "◇ Valid input?")
	assert.Contains(t, output, "B ─[Yes]→ C")
	assert.Contains(t, output, "C ─→ D")

	// Start row precedes the decision row.
	assert.Less(t, strings.Index(output, "Start"), strings.Index(output, "Valid input?"))
}

func TestLevels(t *testing.T) {
	d := validationFlow()
	d.Nodes = append(d.Nodes, Node{ID: "X", Kind: NodeKindAction, Label: "Orphan"})

	p, err := Prepare(d)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"A"}, {"B"}, {"C", "D"}, {"X"}}, levels(p))
}

func TestMakeBoxWidth(t *testing.T) {
	box := makeBox(Node{ID: "n", Kind: NodeKindAction, Label: "Añadir"})
	assert.Equal(t, 10, box.width)
	assert.Len(t, box.lines, 3)
}

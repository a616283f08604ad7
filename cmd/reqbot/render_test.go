package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/reqbot/internal/assistant/assistanttest"
	"github.com/rendis/reqbot/internal/diagram"
	"github.com/rendis/reqbot/pkg/schema"
)

func TestRenderDiagram(t *testing.T) {
	ctx := context.Background()

	out, payload, err := renderDiagram(ctx, []byte(assistanttest.DiagramReply), "")
	require.NoError(t, err)
	assert.Equal(t, diagram.FormatMermaid, out.Format)
	assert.True(t, strings.HasPrefix(string(payload), "flowchart TD\n"))
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, schema.ErrCodeDanglingEdge, out.Diagnostics[0].Code)

	_, payload, err = renderDiagram(ctx, []byte(assistanttest.DiagramReply), "png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("\x89PNG")))

	_, _, err = renderDiagram(ctx, []byte(`{"nodes":[],"edges":[]}`), "ascii")
	assert.True(t, schema.IsCode(err, schema.ErrCodeEmptyDiagram))

	_, _, err = renderDiagram(ctx, []byte(assistanttest.DiagramReply), "gif")
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))

	_, _, err = renderDiagram(ctx, []byte(`{nodes`), "mermaid")
	assert.ErrorContains(t, err, "parse diagram")
}

func TestReadInput_Stdin(t *testing.T) {
	data, err := readInput(strings.NewReader("{}"), "-")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

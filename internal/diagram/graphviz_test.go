package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderImagePNG(t *testing.T) {
	p, err := Prepare(validationFlow())
	require.NoError(t, err)

	png, err := RenderImage(t.Context(), p, FormatPNG)
	require.NoError(t, err)
	require.NotEmpty(t, png)

	// PNG magic bytes: 0x89 P N G.
	assert.True(t, len(png) > 8, "PNG should be larger than header")
	assert.Equal(t, byte(0x89), png[0])
	assert.Equal(t, byte('P'), png[1])
	assert.Equal(t, byte('N'), png[2])
	assert.Equal(t, byte('G'), png[3])
}

func TestRenderImageSVG(t *testing.T) {
	out, err := RenderFormat(t.Context(), validationFlow(), FormatSVG)
	require.NoError(t, err)
	assert.Contains(t, string(out.Image), "<svg")
	assert.Contains(t, string(out.Image), "Valid input?")
}

func TestRenderImageRejectsTextFormat(t *testing.T) {
	p, err := Prepare(validationFlow())
	require.NoError(t, err)

	_, err = RenderImage(t.Context(), p, FormatMermaid)
	assert.Error(t, err)
}

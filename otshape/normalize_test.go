package otshape

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/require"
)

func normalizePlanFor(face Face, buf *Buffer) *Plan {
	buf.GuessSegmentProperties()
	return NewPlan(face, buf.Props, nil)
}

func TestNormalizeComposesForFontWithPrecomposed(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := newTestFace()
	face.addGlyph('e', 30, 450)
	face.addGlyph('é', 32, 450)
	buf := NewBuffer()
	buf.AddString("é")
	buf.setUnicodeProps()
	plan := normalizePlanFor(face, buf)

	otShapeNormalize(plan, buf, face)
	require.Len(t, buf.Info, 1, "e + combining acute recomposes")
	require.Equal(t, 'é', buf.Info[0].Codepoint)
}

func TestNormalizeKeepsDecomposedWithoutGlyph(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := newTestFace()
	face.addGlyph('e', 30, 450)
	face.addGlyph(0x0301, 31, 0)
	buf := NewBuffer()
	buf.AddString("é") // precomposed, but the font has no é glyph
	buf.setUnicodeProps()
	plan := normalizePlanFor(face, buf)

	otShapeNormalize(plan, buf, face)
	require.Len(t, buf.Info, 2, "é decomposes for a font without the precomposed glyph")
	require.Equal(t, 'e', buf.Info[0].Codepoint)
	require.Equal(t, rune(0x0301), buf.Info[1].Codepoint)
}

func TestNormalizeIdempotent(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := newTestFace()
	face.addGlyph('e', 30, 450)
	face.addGlyph('é', 32, 450)
	buf := NewBuffer()
	buf.AddString("é")
	buf.setUnicodeProps()
	plan := normalizePlanFor(face, buf)

	otShapeNormalize(plan, buf, face)
	snapshot := append([]GlyphInfo(nil), buf.Info...)
	otShapeNormalize(plan, buf, face)
	require.Equal(t, snapshot, buf.Info, "normalizing an already normalized buffer changes nothing")
}

func TestNormalizeMarkReordering(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := newTestFace()
	face.addGlyph('a', 12, 480)
	face.addGlyph(0x0301, 31, 0) // acute, ccc 230
	face.addGlyph(0x0323, 33, 0) // dot below, ccc 220
	buf := NewBuffer()
	buf.AddString("a\u0301\u0323") // acute before dot below: canonically misordered
	buf.setUnicodeProps()
	plan := normalizePlanFor(face, buf)

	otShapeNormalize(plan, buf, face)
	require.Len(t, buf.Info, 3)
	require.Equal(t, rune(0x0323), buf.Info[1].Codepoint, "lower class sorts first")
	require.Equal(t, rune(0x0301), buf.Info[2].Codepoint)
}

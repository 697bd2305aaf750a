package otshape

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/npillmayer/textshape/ot"
	"github.com/stretchr/testify/require"
)

func latinFace() *testFace {
	face := newTestFace()
	face.addGlyph(' ', 3, 250)
	face.addGlyph('A', 10, 600)
	face.addGlyph('V', 11, 580)
	face.addGlyph('a', 12, 480)
	face.addGlyph('b', 13, 500)
	face.addGlyph('f', 14, 300)
	face.addGlyph('i', 15, 250)
	return face
}

func TestShapeTrivialASCII(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := latinFace()
	buf := NewBuffer()
	buf.AddString("AV")

	ok := Shape(face, buf, nil)
	require.True(t, ok, "shaping should succeed")
	require.Equal(t, ContentTypeGlyphs, buf.ContentType())

	infos := buf.GlyphInfos()
	positions := buf.GlyphPositions()
	require.Len(t, infos, 2)
	require.Len(t, positions, 2)
	require.Equal(t, ot.GlyphIndex(10), infos[0].Glyph)
	require.Equal(t, ot.GlyphIndex(11), infos[1].Glyph)
	require.Equal(t, 0, infos[0].Cluster)
	require.Equal(t, 1, infos[1].Cluster)
	require.Equal(t, int32(600), positions[0].XAdvance)
	require.Equal(t, int32(580), positions[1].XAdvance)
}

func TestShapePairKerning(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := latinFace()
	face.tables[ot.T("GPOS")] = pairKernGPOS(10, 11, -80)
	buf := NewBuffer()
	buf.AddString("AV")

	require.True(t, Shape(face, buf, nil))
	positions := buf.GlyphPositions()
	require.Len(t, positions, 2)
	require.Equal(t, int32(600-80), positions[0].XAdvance)
	require.Equal(t, int32(580), positions[1].XAdvance)
}

func TestShapeLigature(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := latinFace()
	face.addGlyph(0xFB01, 20, 520) // need an advance for the ligature glyph
	face.tables[ot.T("GSUB")] = ligatureGSUB(14, 15, 20)
	buf := NewBuffer()
	buf.AddString("fi")

	require.True(t, Shape(face, buf, nil))
	infos := buf.GlyphInfos()
	require.Len(t, infos, 1, "f+i must ligate to one glyph")
	require.Equal(t, ot.GlyphIndex(20), infos[0].Glyph)
	require.Equal(t, 0, infos[0].Cluster)
	require.NotZero(t, infos[0].Mask&GlyphUnsafeToBreak, "ligature carries unsafe-to-break")
}

func TestShapeMarkAttachment(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := newTestFace()
	face.addGlyph('e', 30, 450)
	face.addGlyph(0x0301, 31, 200) // combining acute
	const baseX, baseY = 220, 520
	const markX, markY = 90, -30
	face.tables[ot.T("GPOS")] = markBaseGPOS(30, 31, baseX, baseY, markX, markY)

	buf := NewBuffer()
	buf.AddString("é")
	require.True(t, Shape(face, buf, nil))

	infos := buf.GlyphInfos()
	positions := buf.GlyphPositions()
	require.Len(t, infos, 2)
	require.Equal(t, 0, infos[0].Cluster)
	require.Equal(t, 0, infos[1].Cluster, "mark clusters with its base")
	require.Equal(t, int32(0), positions[1].XAdvance, "mark advance is zeroed")
	// the mark offset is the anchor delta, shifted back over the base
	// advance (the renderer's pen has already moved past the base)
	require.Equal(t, int32(baseX-markX-450), positions[1].XOffset)
	require.Equal(t, int32(baseY-markY), positions[1].YOffset)
}

func TestShapeRemoveDefaultIgnorables(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := latinFace()
	buf := NewBuffer()
	buf.AddString("a\u200Bb")
	buf.Flags |= BufferFlagRemoveDefaultIgnorables

	require.True(t, Shape(face, buf, nil))
	infos := buf.GlyphInfos()
	require.Len(t, infos, 2, "ZWSP must be removed")
	require.Equal(t, ot.GlyphIndex(12), infos[0].Glyph)
	require.Equal(t, ot.GlyphIndex(13), infos[1].Glyph)
	require.Equal(t, 0, infos[0].Cluster)
	require.Equal(t, 2, infos[1].Cluster, "clusters keep their original values")
}

func TestShapeRTLReversal(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := newTestFace()
	face.addGlyph(0x05D1, 40, 500) // bet
	face.addGlyph(0x05D3, 41, 480) // dalet
	buf := NewBuffer()
	buf.AddString("בד")

	require.True(t, Shape(face, buf, nil))
	require.Equal(t, RightToLeft, buf.Props.Direction, "direction guessed from script")
	infos := buf.GlyphInfos()
	require.Len(t, infos, 2)
	require.Equal(t, ot.GlyphIndex(41), infos[0].Glyph, "output is in visual order")
	require.Equal(t, ot.GlyphIndex(40), infos[1].Glyph)
	require.GreaterOrEqual(t, infos[0].Cluster, infos[1].Cluster, "clusters non-increasing for RTL")
}

func TestShapeDeterminism(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := latinFace()
	face.addGlyph(0xFB01, 20, 520)
	face.tables[ot.T("GSUB")] = ligatureGSUB(14, 15, 20)

	shapeOnce := func() ([]GlyphInfo, []GlyphPosition) {
		buf := NewBuffer()
		buf.AddString("fi fi AV")
		require.True(t, Shape(face, buf, nil))
		return buf.GlyphInfos(), buf.GlyphPositions()
	}
	info1, pos1 := shapeOnce()
	info2, pos2 := shapeOnce()
	require.Equal(t, info1, info2, "repeated shaping yields identical glyph infos")
	require.Equal(t, pos1, pos2, "repeated shaping yields identical positions")
}

func TestShapeEmptyBuffer(t *testing.T) {
	face := latinFace()
	buf := NewBuffer()
	require.True(t, Shape(face, buf, nil))
	require.Equal(t, ContentTypeGlyphs, buf.ContentType())
	require.Len(t, buf.GlyphInfos(), 0)
}

func TestShapeMisuseWrongContentType(t *testing.T) {
	face := latinFace()
	buf := NewBuffer()
	buf.AddString("ab")
	require.True(t, Shape(face, buf, nil))
	// shaping an already shaped buffer is a no-op failure
	require.False(t, Shape(face, buf, nil))
}

func TestShapeSpaceFallback(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := latinFace()
	buf := NewBuffer()
	buf.AddString("a\u2003b") // EM SPACE, not in the font

	require.True(t, Shape(face, buf, nil))
	positions := buf.GlyphPositions()
	require.Len(t, positions, 3)
	require.Equal(t, int32(face.upem), positions[1].XAdvance, "em space synthesizes one em")
}

func TestShapeUserFeatureDisablesLigature(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := latinFace()
	face.addGlyph(0xFB01, 20, 520)
	face.tables[ot.T("GSUB")] = ligatureGSUB(14, 15, 20)
	buf := NewBuffer()
	buf.AddString("fi")

	off := []Feature{{Tag: ot.T("liga"), Value: 0, Start: FeatureGlobalStart, End: FeatureGlobalEnd}}
	require.True(t, Shape(face, buf, off))
	require.Len(t, buf.GlyphInfos(), 2, "liga disabled by user feature")
}

func TestShapeAppendCommutativity(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := latinFace()

	whole := NewBuffer()
	whole.AddString("AVab")
	require.True(t, Shape(face, whole, nil))

	part := NewBuffer()
	a := NewBuffer()
	a.AddString("AV")
	b := NewBuffer()
	b.AddRunes([]rune("ab"), 2)
	part.Append(a, 0, a.Len())
	part.Append(b, 0, b.Len())
	require.True(t, Shape(face, part, nil))

	require.Equal(t, whole.GlyphInfos(), part.GlyphInfos(),
		"appending segments shapes like the concatenation")
}

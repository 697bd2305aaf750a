package otshape

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/npillmayer/textshape/ot"
	"github.com/stretchr/testify/require"
)

func TestArabicJoiningActions(t *testing.T) {
	buf := NewBuffer()
	buf.AddString("ببب") // beh beh beh, all dual-joining
	buf.setUnicodeProps()
	actions := arabicJoining(buf)
	require.Equal(t, []uint8{arabInit, arabMedi, arabFina}, actions)
}

func TestArabicJoiningIsolated(t *testing.T) {
	buf := NewBuffer()
	buf.AddString("ب ب") // two isolated behs
	buf.setUnicodeProps()
	actions := arabicJoining(buf)
	require.Equal(t, arabIsol, actions[0])
	require.Equal(t, arabNone, actions[1])
	require.Equal(t, arabIsol, actions[2])
}

func TestArabicJoiningRightJoiner(t *testing.T) {
	buf := NewBuffer()
	buf.AddString("با") // beh + alef: beh takes init, alef fina
	buf.setUnicodeProps()
	actions := arabicJoining(buf)
	require.Equal(t, arabInit, actions[0])
	require.Equal(t, arabFina, actions[1])
}

func TestArabicJoiningTransparentMarks(t *testing.T) {
	buf := NewBuffer()
	buf.AddString("بَب") // beh + fatha + beh: fatha is transparent
	buf.setUnicodeProps()
	actions := arabicJoining(buf)
	require.Equal(t, arabInit, actions[0])
	require.Equal(t, arabNone, actions[1], "marks take no joining action")
	require.Equal(t, arabFina, actions[2])
}

// A font with only presentation-form cmap entries and no GSUB exercises
// the fallback shaping path.
func arabicFallbackFace() *testFace {
	face := newTestFace()
	face.addGlyph(0x0644, 50, 400) // lam
	face.addGlyph(0x0627, 51, 300) // alef
	face.addGlyph(0x0628, 52, 450) // beh
	face.addGlyph(0xFE91, 53, 450) // beh initial
	face.addGlyph(0xFE90, 54, 450) // beh final
	face.addGlyph(0xFE8E, 55, 300) // alef final
	face.addGlyph(0xFEFB, 56, 600) // lam-alef isolated
	face.addGlyph(0xFEFC, 57, 600) // lam-alef final
	return face
}

func TestArabicFallbackLamAlef(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := arabicFallbackFace()
	buf := NewBuffer()
	buf.AddString("لا") // lam + alef

	require.True(t, Shape(face, buf, nil))
	infos := buf.GlyphInfos()
	require.Len(t, infos, 1, "lam+alef must form the lam-alef ligature")
	require.Equal(t, ot.GlyphIndex(56), infos[0].Glyph)
	require.Equal(t, 0, infos[0].Cluster, "ligature takes the lam's cluster")
}

func TestArabicFallbackPositionalForms(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := arabicFallbackFace()
	buf := NewBuffer()
	buf.AddString("بب") // beh beh → initial + final presentation forms

	require.True(t, Shape(face, buf, nil))
	infos := buf.GlyphInfos()
	require.Len(t, infos, 2)
	// output is in visual (reversed) order for RTL
	require.Equal(t, ot.GlyphIndex(54), infos[0].Glyph, "final form")
	require.Equal(t, ot.GlyphIndex(53), infos[1].Glyph, "initial form")
}

func TestArabicPresentationTable(t *testing.T) {
	form, ok := arabicPresentationFor(0x0628, arabInit)
	require.True(t, ok)
	require.Equal(t, rune(0xFE91), form)
	form, ok = arabicPresentationFor(0x0627, arabFina)
	require.True(t, ok)
	require.Equal(t, rune(0xFE8E), form)
	_, ok = arabicPresentationFor(0x0627, arabInit)
	require.False(t, ok, "alef cannot take an initial form")
}

package otshape

import (
	"github.com/npillmayer/textshape/ot"
)

// Synthetic faces for shaping tests: an in-memory Face implementation plus
// hand-assembled GSUB/GPOS table bytes, so tests need no font files.

type testFace struct {
	glyphs   map[rune]ot.GlyphIndex
	advances map[ot.GlyphIndex]int32
	extents  map[ot.GlyphIndex]GlyphExtents
	tables   map[ot.Tag][]byte
	upem     uint16
}

var _ Face = (*testFace)(nil)

func newTestFace() *testFace {
	return &testFace{
		glyphs:   make(map[rune]ot.GlyphIndex),
		advances: make(map[ot.GlyphIndex]int32),
		extents:  make(map[ot.GlyphIndex]GlyphExtents),
		tables:   make(map[ot.Tag][]byte),
		upem:     1000,
	}
}

// addGlyph maps a rune to a glyph with an advance.
func (f *testFace) addGlyph(r rune, g ot.GlyphIndex, advance int32) *testFace {
	f.glyphs[r] = g
	f.advances[g] = advance
	return f
}

func (f *testFace) HasTable(tag ot.Tag) bool  { return f.tables[tag] != nil }
func (f *testFace) Table(tag ot.Tag) []byte   { return f.tables[tag] }
func (f *testFace) UnitsPerEm() uint16        { return f.upem }
func (f *testFace) AdvanceH(g ot.GlyphIndex) int32 { return f.advances[g] }
func (f *testFace) AdvanceV(g ot.GlyphIndex) int32 { return -int32(f.upem) }

func (f *testFace) NominalGlyph(r rune) (ot.GlyphIndex, bool) {
	g, ok := f.glyphs[r]
	return g, ok
}

func (f *testFace) VariationGlyph(r, vs rune) (ot.GlyphIndex, bool) {
	return 0, false
}

func (f *testFace) SideBearingH(g ot.GlyphIndex) int32 { return 0 }
func (f *testFace) SideBearingV(g ot.GlyphIndex) int32 { return 0 }

func (f *testFace) GlyphExtents(g ot.GlyphIndex) (GlyphExtents, bool) {
	ext, ok := f.extents[g]
	return ext, ok
}

func (f *testFace) ContourPoint(g ot.GlyphIndex, pointIndex uint16) (int32, int32, bool) {
	return 0, 0, false
}

// --- Table byte builders ---------------------------------------------------

type tableBytes []byte

func (tb *tableBytes) u16(values ...uint16) {
	for _, v := range values {
		*tb = append(*tb, byte(v>>8), byte(v))
	}
}

func (tb *tableBytes) u32(v uint32) {
	*tb = append(*tb, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// layoutHeaderBytes assembles a GSUB/GPOS stream with one script (the
// given tag plus a default language system referencing feature 0), one
// feature, and one lookup whose subtable bytes are appended verbatim.
func layoutHeaderBytes(scriptTag, featureTag ot.Tag, lookupType uint16, subtable []byte) []byte {
	var b tableBytes
	b.u32(0x00010000) // version
	b.u16(10, 30, 44) // script list, feature list, lookup list offsets

	// script list at 10
	b.u16(1) // scriptCount
	b.u32(uint32(scriptTag))
	b.u16(8) // script table offset, relative to script list
	// script table at 18
	b.u16(4, 0) // defaultLangSys offset, langSysCount
	// langSys at 22
	b.u16(0, 0xFFFF, 1, 0) // lookupOrder, required, featureCount, index 0

	// feature list at 30
	b.u16(1) // featureCount
	b.u32(uint32(featureTag))
	b.u16(8) // feature table offset
	// feature table at 38
	b.u16(0, 1, 0) // params, lookupIndexCount, lookup index 0

	// lookup list at 44
	b.u16(1, 4) // lookupCount, lookup offset
	// lookup at 48
	b.u16(lookupType, 0, 1, 8) // type, flag, subtableCount, subtable offset
	// subtable at 56
	return append([]byte(b), subtable...)
}

// ligatureGSUB builds a GSUB with one 'liga' ligature first+second→lig.
func ligatureGSUB(first, second, lig ot.GlyphIndex) []byte {
	var sub tableBytes
	sub.u16(1)  // format
	sub.u16(18) // coverage offset
	sub.u16(1)  // ligSetCount
	sub.u16(8)  // ligatureSet offset
	// ligatureSet at +8
	sub.u16(1, 4) // ligatureCount, ligature offset
	// ligature at +12
	sub.u16(uint16(lig), 2, uint16(second)) // ligGlyph, compCount, component
	// coverage at +18
	sub.u16(1, 1, uint16(first))
	return layoutHeaderBytes(ot.T("latn"), ot.T("liga"), ot.GSUBTypeLigature, sub)
}

// pairKernGPOS builds a GPOS with one 'kern' pair adjustment
// (first,second) → xAdvance delta on the first glyph.
func pairKernGPOS(first, second ot.GlyphIndex, delta int16) []byte {
	var sub tableBytes
	sub.u16(1)      // format
	sub.u16(18)     // coverage offset
	sub.u16(0x0004) // valueFormat1: XAdvance
	sub.u16(0)      // valueFormat2
	sub.u16(1)      // pairSetCount
	sub.u16(12)     // pairSet offset
	// pairSet at +12
	sub.u16(1)                             // pairValueCount
	sub.u16(uint16(second), uint16(delta)) // second glyph, value1.xAdvance
	// coverage at +18
	sub.u16(1, 1, uint16(first))
	return layoutHeaderBytes(ot.T("latn"), ot.T("kern"), ot.GPOSTypePair, sub)
}

// markBaseGPOS builds a GPOS with one 'mark' mark-to-base attachment:
// the mark glyph anchors onto the base glyph with the given anchors.
func markBaseGPOS(base, mark ot.GlyphIndex, baseX, baseY, markX, markY int16) []byte {
	var sub tableBytes
	sub.u16(1)  // format
	sub.u16(12) // mark coverage offset
	sub.u16(18) // base coverage offset
	sub.u16(1)  // markClassCount
	sub.u16(24) // markArray offset
	sub.u16(36) // baseArray offset
	// mark coverage at +12
	sub.u16(1, 1, uint16(mark))
	// base coverage at +18
	sub.u16(1, 1, uint16(base))
	// markArray at +24
	sub.u16(1)    // markCount
	sub.u16(0, 6) // class, anchor offset (relative to markArray)
	// mark anchor at +30
	sub.u16(1, uint16(markX), uint16(markY))
	// baseArray at +36
	sub.u16(1, 4) // baseCount, anchor offset (relative to baseArray)
	// base anchor at +40
	sub.u16(1, uint16(baseX), uint16(baseY))
	return layoutHeaderBytes(ot.T("latn"), ot.T("mark"), ot.GPOSTypeMarkToBase, sub)
}

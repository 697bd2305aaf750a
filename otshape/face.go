package otshape

import "github.com/npillmayer/textshape/ot"

// Face is the read-only font view the shaper consumes. Implementations must
// be safe for concurrent read access; the shaper never mutates a face.
//
// Table returns the raw bytes of a top-level font table, or nil if the font
// does not carry it. Metric values are in font design units.
type Face interface {
	HasTable(tag ot.Tag) bool
	Table(tag ot.Tag) []byte
	NominalGlyph(r rune) (ot.GlyphIndex, bool)
	VariationGlyph(r rune, vs rune) (ot.GlyphIndex, bool)
	AdvanceH(g ot.GlyphIndex) int32
	AdvanceV(g ot.GlyphIndex) int32
	SideBearingH(g ot.GlyphIndex) int32
	SideBearingV(g ot.GlyphIndex) int32
	GlyphExtents(g ot.GlyphIndex) (GlyphExtents, bool)
	ContourPoint(g ot.GlyphIndex, pointIndex uint16) (x, y int32, ok bool)
	UnitsPerEm() uint16
}

// GlyphExtents describes the ink box of a glyph in font units.
type GlyphExtents struct {
	XBearing int32
	YBearing int32
	Width    int32
	Height   int32
}

// hasGlyph returns true if the face maps r to a real glyph.
func hasGlyph(face Face, r rune) bool {
	g, ok := face.NominalGlyph(r)
	return ok && g != NOTDEF
}

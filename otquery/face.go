package otquery

import (
	"bytes"
	"math"

	"github.com/go-text/typesetting/font"
	otloader "github.com/go-text/typesetting/font/opentype"
	"github.com/npillmayer/textshape/ot"
	"github.com/npillmayer/textshape/otshape"
)

// Face adapts a go-text/typesetting font to the shaper's Face interface.
// A Face is read-only and safe for concurrent use.
type Face struct {
	loader *otloader.Loader
	face   *font.Face
	upem   uint16
}

var _ otshape.Face = (*Face)(nil)

// FaceFromBinary parses a single OpenType font from raw bytes.
func FaceFromBinary(data []byte) (*Face, error) {
	reader := bytes.NewReader(data)
	loader, err := otloader.NewLoader(reader)
	if err != nil {
		return nil, err
	}
	ft, err := font.NewFont(loader)
	if err != nil {
		return nil, err
	}
	face := &Face{
		loader: loader,
		face:   &font.Face{Font: ft},
		upem:   ft.Upem(),
	}
	if face.upem == 0 {
		face.upem = 1000
	}
	tracer().Debugf("loaded face with %d units/em", face.upem)
	return face, nil
}

// HasTable returns true if the font carries the given table.
func (f *Face) HasTable(tag ot.Tag) bool {
	return f.Table(tag) != nil
}

// Table returns the raw bytes of a font table, or nil.
func (f *Face) Table(tag ot.Tag) []byte {
	data, err := f.loader.RawTable(otloader.Tag(tag))
	if err != nil {
		return nil
	}
	return data
}

// NominalGlyph maps a code point to a glyph index.
func (f *Face) NominalGlyph(r rune) (ot.GlyphIndex, bool) {
	gid, ok := f.face.NominalGlyph(r)
	if !ok {
		return 0, false
	}
	return ot.GlyphIndex(gid), true
}

// VariationGlyph maps a code point plus variation selector.
func (f *Face) VariationGlyph(r rune, vs rune) (ot.GlyphIndex, bool) {
	gid, ok := f.face.VariationGlyph(r, vs)
	if !ok {
		return 0, false
	}
	return ot.GlyphIndex(gid), true
}

// AdvanceH returns the horizontal advance of a glyph in font units.
func (f *Face) AdvanceH(g ot.GlyphIndex) int32 {
	return int32(math.Round(float64(f.face.HorizontalAdvance(font.GID(g)))))
}

// AdvanceV returns the vertical advance of a glyph in font units.
func (f *Face) AdvanceV(g ot.GlyphIndex) int32 {
	return int32(math.Round(float64(f.face.VerticalAdvance(font.GID(g)))))
}

// SideBearingH returns the horizontal side bearing of a glyph.
func (f *Face) SideBearingH(g ot.GlyphIndex) int32 {
	if ext, ok := f.GlyphExtents(g); ok {
		return ext.XBearing
	}
	return 0
}

// SideBearingV returns the vertical side bearing of a glyph.
func (f *Face) SideBearingV(g ot.GlyphIndex) int32 {
	if ext, ok := f.GlyphExtents(g); ok {
		return ext.YBearing
	}
	return 0
}

// GlyphExtents returns the ink box of a glyph.
func (f *Face) GlyphExtents(g ot.GlyphIndex) (otshape.GlyphExtents, bool) {
	ext, ok := f.face.GlyphExtents(font.GID(g))
	if !ok {
		return otshape.GlyphExtents{}, false
	}
	return otshape.GlyphExtents{
		XBearing: int32(math.Round(float64(ext.XBearing))),
		YBearing: int32(math.Round(float64(ext.YBearing))),
		Width:    int32(math.Round(float64(ext.Width))),
		Height:   int32(math.Round(float64(ext.Height))),
	}, true
}

// ContourPoint is not provided by the underlying font API; anchors
// tracking contour points fall back to their design coordinates.
func (f *Face) ContourPoint(g ot.GlyphIndex, pointIndex uint16) (int32, int32, bool) {
	return 0, 0, false
}

// UnitsPerEm returns the design units per em.
func (f *Face) UnitsPerEm() uint16 {
	return f.upem
}

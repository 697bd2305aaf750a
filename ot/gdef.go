package ot

// GDEF — the glyph definition table.

// GDEF glyph classes.
const (
	GDEFUnclassified   uint16 = 0
	GDEFBaseGlyph      uint16 = 1
	GDEFLigatureGlyph  uint16 = 2
	GDEFMarkGlyph      uint16 = 3
	GDEFComponentGlyph uint16 = 4
)

// GDEF is the parsed glyph definition table of a font. Attachment-point
// lists and ligature carets are not decoded; shaping does not consult them.
type GDEF struct {
	GlyphClassDef      ClassDef
	MarkAttachClassDef ClassDef
	MarkGlyphSets      []Coverage
}

// HasGlyphClasses returns true if the font assigns GDEF glyph classes.
func (g *GDEF) HasGlyphClasses() bool {
	return g != nil && !g.GlyphClassDef.IsEmpty()
}

// GlyphClass returns the GDEF class of glyph gid (0 if unclassified).
func (g *GDEF) GlyphClass(gid GlyphIndex) uint16 {
	if g == nil {
		return GDEFUnclassified
	}
	return g.GlyphClassDef.Class(gid)
}

// MarkAttachClass returns the mark attachment class of glyph gid.
func (g *GDEF) MarkAttachClass(gid GlyphIndex) uint16 {
	if g == nil {
		return 0
	}
	return g.MarkAttachClassDef.Class(gid)
}

// MarkSetCovers returns true if mark glyph set setIndex covers gid.
func (g *GDEF) MarkSetCovers(setIndex int, gid GlyphIndex) bool {
	if g == nil || setIndex < 0 || setIndex >= len(g.MarkGlyphSets) {
		return false
	}
	_, ok := g.MarkGlyphSets[setIndex].Index(gid)
	return ok
}

// ParseGDEF decodes a GDEF table from its binary form. Returns nil if the
// table is absent or unreadable.
func ParseGDEF(data []byte) *GDEF {
	if len(data) == 0 {
		return nil
	}
	b := binarySegm(data)
	minor, err := b.u16(2)
	if err != nil {
		tracer().Errorf("GDEF header unreadable: %v", err)
		return nil
	}
	gdef := &GDEF{}
	if cd, err := classDefAt(b, 4); err == nil {
		gdef.GlyphClassDef = cd
	}
	// attachListOffset at 6, ligCaretListOffset at 8: not decoded
	if cd, err := classDefAt(b, 10); err == nil {
		gdef.MarkAttachClassDef = cd
	}
	if minor >= 2 {
		if off, err := b.u16(12); err == nil && off != 0 && int(off) < len(b) {
			gdef.MarkGlyphSets = parseMarkGlyphSets(b[off:])
		}
	}
	return gdef
}

func parseMarkGlyphSets(b binarySegm) []Coverage {
	count, err := b.u16(2)
	if err != nil {
		return nil
	}
	sets := make([]Coverage, count)
	for i := 0; i < int(count); i++ {
		off, err := b.u32(4 + i*4)
		if err != nil || off == 0 || int(off) >= len(b) {
			continue
		}
		if cov, err := parseCoverage(b[off:]); err == nil {
			sets[i] = cov
		}
	}
	return sets
}

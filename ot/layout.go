package ot

import "sort"

// Common structures of the OpenType layout tables GSUB and GPOS: script and
// feature lists, lookup lists, coverage tables and class definitions.

// Lookup flag bits, as defined for the lookupFlag field of lookup tables.
const (
	LookupFlagRightToLeft         uint16 = 0x0001
	LookupFlagIgnoreBaseGlyphs    uint16 = 0x0002
	LookupFlagIgnoreLigatures     uint16 = 0x0004
	LookupFlagIgnoreMarks         uint16 = 0x0008
	LookupFlagUseMarkFilteringSet uint16 = 0x0010
	LookupFlagMarkAttachmentType  uint16 = 0xFF00
)

// --- Coverage --------------------------------------------------------------

// Coverage is a parsed coverage table. It maps glyph indices to coverage
// indices. Both binary formats (glyph list and range records) are hidden
// behind Index.
type Coverage struct {
	glyphs []GlyphIndex    // format 1, sorted by the font
	ranges []coverageRange // format 2
}

type coverageRange struct {
	first, last GlyphIndex
	startIndex  uint16
}

// Index returns the coverage index for glyph g, if g is covered.
func (c Coverage) Index(g GlyphIndex) (int, bool) {
	if c.glyphs != nil {
		i := sort.Search(len(c.glyphs), func(i int) bool { return c.glyphs[i] >= g })
		if i < len(c.glyphs) && c.glyphs[i] == g {
			return i, true
		}
		return 0, false
	}
	i := sort.Search(len(c.ranges), func(i int) bool { return c.ranges[i].last >= g })
	if i < len(c.ranges) && c.ranges[i].first <= g && g <= c.ranges[i].last {
		r := c.ranges[i]
		return int(r.startIndex) + int(g-r.first), true
	}
	return 0, false
}

// IsEmpty returns true if the coverage covers no glyphs at all.
func (c Coverage) IsEmpty() bool {
	return len(c.glyphs) == 0 && len(c.ranges) == 0
}

func parseCoverage(b binarySegm) (Coverage, error) {
	format, err := b.u16(0)
	if err != nil {
		return Coverage{}, err
	}
	switch format {
	case 1:
		count, err := b.u16(2)
		if err != nil {
			return Coverage{}, err
		}
		glyphs, err := b.glyphs(4, int(count))
		if err != nil {
			return Coverage{}, err
		}
		return Coverage{glyphs: glyphs}, nil
	case 2:
		count, err := b.u16(2)
		if err != nil {
			return Coverage{}, err
		}
		seg, err := b.view(4, int(count)*6)
		if err != nil {
			return Coverage{}, err
		}
		ranges := make([]coverageRange, count)
		for i := range ranges {
			ranges[i] = coverageRange{
				first:      GlyphIndex(u16(seg[i*6:])),
				last:       GlyphIndex(u16(seg[i*6+2:])),
				startIndex: u16(seg[i*6+4:]),
			}
		}
		return Coverage{ranges: ranges}, nil
	}
	return Coverage{}, errBufferBounds
}

// coverageAt parses a coverage table referenced by a 16-bit offset at
// position `at` within b, relative to the start of b.
func coverageAt(b binarySegm, at int) (Coverage, error) {
	off, err := b.u16(at)
	if err != nil || off == 0 {
		return Coverage{}, err
	}
	if int(off) >= len(b) {
		return Coverage{}, errBufferBounds
	}
	return parseCoverage(b[off:])
}

// --- Class definitions -----------------------------------------------------

// ClassDef is a parsed class definition table. Glyphs not assigned a class
// get class 0.
type ClassDef struct {
	startGlyph GlyphIndex
	classes    []uint16     // format 1
	ranges     []classRange // format 2
}

type classRange struct {
	first, last GlyphIndex
	class       uint16
}

// Class returns the class value for glyph g (0 if unassigned).
func (c ClassDef) Class(g GlyphIndex) uint16 {
	if c.classes != nil {
		if g >= c.startGlyph && int(g-c.startGlyph) < len(c.classes) {
			return c.classes[g-c.startGlyph]
		}
		return 0
	}
	i := sort.Search(len(c.ranges), func(i int) bool { return c.ranges[i].last >= g })
	if i < len(c.ranges) && c.ranges[i].first <= g && g <= c.ranges[i].last {
		return c.ranges[i].class
	}
	return 0
}

// IsEmpty returns true if the class definition has no entries at all.
func (c ClassDef) IsEmpty() bool {
	return len(c.classes) == 0 && len(c.ranges) == 0
}

func parseClassDef(b binarySegm) (ClassDef, error) {
	format, err := b.u16(0)
	if err != nil {
		return ClassDef{}, err
	}
	switch format {
	case 1:
		start, err := b.u16(2)
		if err != nil {
			return ClassDef{}, err
		}
		count, err := b.u16(4)
		if err != nil {
			return ClassDef{}, err
		}
		classes, err := b.u16s(6, int(count))
		if err != nil {
			return ClassDef{}, err
		}
		return ClassDef{startGlyph: GlyphIndex(start), classes: classes}, nil
	case 2:
		count, err := b.u16(2)
		if err != nil {
			return ClassDef{}, err
		}
		seg, err := b.view(4, int(count)*6)
		if err != nil {
			return ClassDef{}, err
		}
		ranges := make([]classRange, count)
		for i := range ranges {
			ranges[i] = classRange{
				first: GlyphIndex(u16(seg[i*6:])),
				last:  GlyphIndex(u16(seg[i*6+2:])),
				class: u16(seg[i*6+4:]),
			}
		}
		return ClassDef{ranges: ranges}, nil
	}
	return ClassDef{}, errBufferBounds
}

func classDefAt(b binarySegm, at int) (ClassDef, error) {
	off, err := b.u16(at)
	if err != nil || off == 0 {
		return ClassDef{}, err
	}
	if int(off) >= len(b) {
		return ClassDef{}, errBufferBounds
	}
	return parseClassDef(b[off:])
}

// --- Script and feature lists ----------------------------------------------

// LangSys is a language-system record: the set of feature indices active for
// a script/language pair.
type LangSys struct {
	RequiredFeature int // index into the feature list, -1 if none
	FeatureIndices  []uint16
}

// LangSysRecord associates a language tag with its language system.
type LangSysRecord struct {
	Tag     Tag
	LangSys *LangSys
}

// ScriptRecord is one entry of a script list.
type ScriptRecord struct {
	Tag            Tag
	DefaultLangSys *LangSys
	LangSys        []LangSysRecord
}

// FeatureRecord is one entry of a feature list.
type FeatureRecord struct {
	Tag           Tag
	LookupIndices []uint16
}

// LayoutHeader holds the script and feature lists common to GSUB and GPOS.
type LayoutHeader struct {
	Scripts  []ScriptRecord
	Features []FeatureRecord
}

// Script finds the script record for tag, or nil.
func (h *LayoutHeader) Script(tag Tag) *ScriptRecord {
	for i := range h.Scripts {
		if h.Scripts[i].Tag == tag {
			return &h.Scripts[i]
		}
	}
	return nil
}

// LangSysFor returns the language system for a language tag within a script,
// falling back to the script's default language system.
func (s *ScriptRecord) LangSysFor(tag Tag) *LangSys {
	if s == nil {
		return nil
	}
	if tag != 0 {
		for _, rec := range s.LangSys {
			if rec.Tag == tag {
				return rec.LangSys
			}
		}
	}
	return s.DefaultLangSys
}

func parseLangSys(b binarySegm) (*LangSys, error) {
	// lookupOrderOffset at 0 (reserved), requiredFeatureIndex at 2
	req, err := b.u16(2)
	if err != nil {
		return nil, err
	}
	count, err := b.u16(4)
	if err != nil {
		return nil, err
	}
	indices, err := b.u16s(6, int(count))
	if err != nil {
		return nil, err
	}
	ls := &LangSys{RequiredFeature: -1, FeatureIndices: indices}
	if req != 0xFFFF {
		ls.RequiredFeature = int(req)
	}
	return ls, nil
}

func parseScriptList(b binarySegm) ([]ScriptRecord, error) {
	count, err := b.u16(0)
	if err != nil {
		return nil, err
	}
	scripts := make([]ScriptRecord, 0, count)
	for i := 0; i < int(count); i++ {
		tag, err := b.u32(2 + i*6)
		if err != nil {
			return nil, err
		}
		off, err := b.u16(2 + i*6 + 4)
		if err != nil || off == 0 || int(off) >= len(b) {
			continue
		}
		script := b[off:]
		rec := ScriptRecord{Tag: Tag(tag)}
		if dflt, err := script.u16(0); err == nil && dflt != 0 && int(dflt) < len(script) {
			if ls, err := parseLangSys(script[dflt:]); err == nil {
				rec.DefaultLangSys = ls
			}
		}
		lsCount, err := script.u16(2)
		if err != nil {
			continue
		}
		for j := 0; j < int(lsCount); j++ {
			lsTag, err1 := script.u32(4 + j*6)
			lsOff, err2 := script.u16(4 + j*6 + 4)
			if err1 != nil || err2 != nil || lsOff == 0 || int(lsOff) >= len(script) {
				continue
			}
			if ls, err := parseLangSys(script[lsOff:]); err == nil {
				rec.LangSys = append(rec.LangSys, LangSysRecord{Tag: Tag(lsTag), LangSys: ls})
			}
		}
		scripts = append(scripts, rec)
	}
	return scripts, nil
}

func parseFeatureList(b binarySegm) ([]FeatureRecord, error) {
	count, err := b.u16(0)
	if err != nil {
		return nil, err
	}
	features := make([]FeatureRecord, 0, count)
	for i := 0; i < int(count); i++ {
		tag, err := b.u32(2 + i*6)
		if err != nil {
			return nil, err
		}
		off, err := b.u16(2 + i*6 + 4)
		if err != nil || off == 0 || int(off) >= len(b) {
			// keep feature indices stable even for defective entries
			features = append(features, FeatureRecord{Tag: Tag(tag)})
			continue
		}
		feature := b[off:]
		// featureParamsOffset at 0, lookupIndexCount at 2
		lkCount, err := feature.u16(2)
		if err != nil {
			features = append(features, FeatureRecord{Tag: Tag(tag)})
			continue
		}
		indices, err := feature.u16s(4, int(lkCount))
		if err != nil {
			indices = nil
		}
		features = append(features, FeatureRecord{Tag: Tag(tag), LookupIndices: indices})
	}
	return features, nil
}

// lookupHeader is the common front matter of a GSUB or GPOS lookup table.
type lookupHeader struct {
	lookupType       uint16
	flag             uint16
	markFilteringSet uint16
	subtables        []binarySegm
}

func parseLookupHeader(b binarySegm) (lookupHeader, error) {
	var hdr lookupHeader
	var err error
	if hdr.lookupType, err = b.u16(0); err != nil {
		return hdr, err
	}
	if hdr.flag, err = b.u16(2); err != nil {
		return hdr, err
	}
	count, err := b.u16(4)
	if err != nil {
		return hdr, err
	}
	for i := 0; i < int(count); i++ {
		off, err := b.u16(6 + i*2)
		if err != nil || off == 0 || int(off) >= len(b) {
			continue
		}
		hdr.subtables = append(hdr.subtables, b[off:])
	}
	if hdr.flag&LookupFlagUseMarkFilteringSet != 0 {
		if mfs, err := b.u16(6 + int(count)*2); err == nil {
			hdr.markFilteringSet = mfs
		}
	}
	return hdr, nil
}

// parseLayoutHeader decodes the version header of GSUB/GPOS and returns the
// script list, feature list and lookup list segments.
func parseLayoutHeader(b binarySegm) (header LayoutHeader, lookupList binarySegm, err error) {
	// majorVersion at 0, minorVersion at 2
	scriptsOff, err := b.u16(4)
	if err != nil {
		return header, nil, err
	}
	featuresOff, err := b.u16(6)
	if err != nil {
		return header, nil, err
	}
	lookupsOff, err := b.u16(8)
	if err != nil {
		return header, nil, err
	}
	if int(scriptsOff) < len(b) && scriptsOff != 0 {
		if scripts, err := parseScriptList(b[scriptsOff:]); err == nil {
			header.Scripts = scripts
		}
	}
	if int(featuresOff) < len(b) && featuresOff != 0 {
		if features, err := parseFeatureList(b[featuresOff:]); err == nil {
			header.Features = features
		}
	}
	if int(lookupsOff) < len(b) && lookupsOff != 0 {
		lookupList = b[lookupsOff:]
	}
	return header, lookupList, nil
}

// lookupSegments splits a lookup list into the segments of its lookups.
func lookupSegments(b binarySegm) []binarySegm {
	if b == nil {
		return nil
	}
	count, err := b.u16(0)
	if err != nil {
		return nil
	}
	segments := make([]binarySegm, int(count))
	for i := 0; i < int(count); i++ {
		off, err := b.u16(2 + i*2)
		if err != nil || off == 0 || int(off) >= len(b) {
			continue
		}
		segments[i] = b[off:]
	}
	return segments
}

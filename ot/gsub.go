package ot

// GSUB — the glyph substitution table.

// GSUB lookup types.
const (
	GSUBTypeSingle             uint16 = 1
	GSUBTypeMultiple           uint16 = 2
	GSUBTypeAlternate          uint16 = 3
	GSUBTypeLigature           uint16 = 4
	GSUBTypeContext            uint16 = 5
	GSUBTypeChainedContext     uint16 = 6
	GSUBTypeExtension          uint16 = 7
	GSUBTypeReverseChainSingle uint16 = 8
)

// GSUBSubtable is implemented by all parsed GSUB lookup subtables.
type GSUBSubtable interface {
	isGSUB()
}

// GSUBLookup is one parsed lookup of a GSUB table. Extension subtables are
// resolved at parse time; a GSUBLookup never has type GSUBTypeExtension.
type GSUBLookup struct {
	Type             uint16
	Flag             uint16
	MarkFilteringSet uint16
	Subtables        []GSUBSubtable
}

// GSUB is the parsed substitution table of a font.
type GSUB struct {
	LayoutHeader
	Lookups []*GSUBLookup
}

// SingleSubst1 substitutes glyphs by adding a delta to the glyph index.
type SingleSubst1 struct {
	Coverage Coverage
	Delta    int16
}

// SingleSubst2 substitutes glyphs through a parallel substitute array.
type SingleSubst2 struct {
	Coverage    Coverage
	Substitutes []GlyphIndex
}

// MultipleSubst replaces one glyph with a sequence of glyphs.
type MultipleSubst struct {
	Coverage  Coverage
	Sequences [][]GlyphIndex
}

// AlternateSubst offers alternate glyphs for a covered glyph; the feature
// value selects among them.
type AlternateSubst struct {
	Coverage   Coverage
	Alternates [][]GlyphIndex
}

// Ligature is one ligature rule: the covered first component is implied,
// Components holds the remaining ones.
type Ligature struct {
	Glyph      GlyphIndex
	Components []GlyphIndex
}

// LigatureSubst replaces a sequence of glyphs with a single ligature glyph.
// LigatureSets is indexed by the coverage index of the first component.
type LigatureSubst struct {
	Coverage     Coverage
	LigatureSets [][]Ligature
}

// ReverseChainSubst is a reverse chaining contextual single substitution.
type ReverseChainSubst struct {
	Coverage    Coverage
	Backtrack   []Coverage
	Lookahead   []Coverage
	Substitutes []GlyphIndex
}

func (SingleSubst1) isGSUB()      {}
func (SingleSubst2) isGSUB()      {}
func (MultipleSubst) isGSUB()     {}
func (AlternateSubst) isGSUB()    {}
func (LigatureSubst) isGSUB()     {}
func (ReverseChainSubst) isGSUB() {}
func (SequenceContext) isGSUB()   {}
func (ChainedContext) isGSUB()    {}

// ParseGSUB decodes a GSUB table from its binary form. Returns nil if the
// table is absent or too defective to use; individual malformed lookups are
// dropped with a trace message.
func ParseGSUB(data []byte) *GSUB {
	if len(data) == 0 {
		return nil
	}
	b := binarySegm(data)
	header, lookupList, err := parseLayoutHeader(b)
	if err != nil {
		tracer().Errorf("GSUB header unreadable: %v", err)
		return nil
	}
	gsub := &GSUB{LayoutHeader: header}
	for i, seg := range lookupSegments(lookupList) {
		lookup := parseGSUBLookup(seg)
		if lookup == nil {
			tracer().Infof("GSUB lookup %d dropped (malformed)", i)
			lookup = &GSUBLookup{} // keep indices stable
		}
		gsub.Lookups = append(gsub.Lookups, lookup)
	}
	return gsub
}

func parseGSUBLookup(b binarySegm) *GSUBLookup {
	if b == nil {
		return nil
	}
	hdr, err := parseLookupHeader(b)
	if err != nil {
		return nil
	}
	lookup := &GSUBLookup{
		Type:             hdr.lookupType,
		Flag:             hdr.flag,
		MarkFilteringSet: hdr.markFilteringSet,
	}
	for _, seg := range hdr.subtables {
		typ, sub := parseGSUBSubtable(hdr.lookupType, seg)
		if sub == nil {
			continue
		}
		lookup.Type = typ
		lookup.Subtables = append(lookup.Subtables, sub)
	}
	return lookup
}

// parseGSUBSubtable parses one subtable. For extension subtables the wrapped
// type is returned, so that the lookup carries the effective type.
func parseGSUBSubtable(lookupType uint16, b binarySegm) (uint16, GSUBSubtable) {
	if lookupType == GSUBTypeExtension {
		extType, err := b.u16(2)
		if err != nil {
			return lookupType, nil
		}
		extOff, err := b.u32(4)
		if err != nil || extOff == 0 || int(extOff) >= len(b) {
			return lookupType, nil
		}
		return parseGSUBSubtable(extType, b[extOff:])
	}
	var sub GSUBSubtable
	var err error
	switch lookupType {
	case GSUBTypeSingle:
		sub, err = parseSingleSubst(b)
	case GSUBTypeMultiple:
		sub, err = parseSequenceListSubst(b, false)
	case GSUBTypeAlternate:
		sub, err = parseSequenceListSubst(b, true)
	case GSUBTypeLigature:
		sub, err = parseLigatureSubst(b)
	case GSUBTypeContext:
		sub, err = parseSequenceContext(b)
	case GSUBTypeChainedContext:
		sub, err = parseChainedContext(b)
	case GSUBTypeReverseChainSingle:
		sub, err = parseReverseChainSubst(b)
	default:
		return lookupType, nil
	}
	if err != nil {
		return lookupType, nil
	}
	return lookupType, sub
}

func parseSingleSubst(b binarySegm) (GSUBSubtable, error) {
	format, err := b.u16(0)
	if err != nil {
		return nil, err
	}
	cov, err := coverageAt(b, 2)
	if err != nil {
		return nil, err
	}
	switch format {
	case 1:
		delta, err := b.i16(4)
		if err != nil {
			return nil, err
		}
		return SingleSubst1{Coverage: cov, Delta: delta}, nil
	case 2:
		count, err := b.u16(4)
		if err != nil {
			return nil, err
		}
		subst, err := b.glyphs(6, int(count))
		if err != nil {
			return nil, err
		}
		return SingleSubst2{Coverage: cov, Substitutes: subst}, nil
	}
	return nil, errBufferBounds
}

// parseSequenceListSubst covers Multiple (format 1) and Alternate (format 1)
// substitutions, which share their binary layout.
func parseSequenceListSubst(b binarySegm, alternate bool) (GSUBSubtable, error) {
	cov, err := coverageAt(b, 2)
	if err != nil {
		return nil, err
	}
	count, err := b.u16(4)
	if err != nil {
		return nil, err
	}
	sequences := make([][]GlyphIndex, count)
	for i := 0; i < int(count); i++ {
		off, err := b.u16(6 + i*2)
		if err != nil || off == 0 || int(off) >= len(b) {
			continue
		}
		seq := b[off:]
		glyphCount, err := seq.u16(0)
		if err != nil {
			continue
		}
		glyphs, err := seq.glyphs(2, int(glyphCount))
		if err != nil {
			continue
		}
		sequences[i] = glyphs
	}
	if alternate {
		return AlternateSubst{Coverage: cov, Alternates: sequences}, nil
	}
	return MultipleSubst{Coverage: cov, Sequences: sequences}, nil
}

func parseLigatureSubst(b binarySegm) (GSUBSubtable, error) {
	cov, err := coverageAt(b, 2)
	if err != nil {
		return nil, err
	}
	setCount, err := b.u16(4)
	if err != nil {
		return nil, err
	}
	sets := make([][]Ligature, setCount)
	for i := 0; i < int(setCount); i++ {
		off, err := b.u16(6 + i*2)
		if err != nil || off == 0 || int(off) >= len(b) {
			continue
		}
		set := b[off:]
		ligCount, err := set.u16(0)
		if err != nil {
			continue
		}
		for j := 0; j < int(ligCount); j++ {
			ligOff, err := set.u16(2 + j*2)
			if err != nil || ligOff == 0 || int(ligOff) >= len(set) {
				continue
			}
			lig := set[ligOff:]
			glyph, err1 := lig.u16(0)
			compCount, err2 := lig.u16(2)
			if err1 != nil || err2 != nil || compCount == 0 {
				continue
			}
			comps, err := lig.glyphs(4, int(compCount)-1)
			if err != nil {
				continue
			}
			sets[i] = append(sets[i], Ligature{Glyph: GlyphIndex(glyph), Components: comps})
		}
	}
	return LigatureSubst{Coverage: cov, LigatureSets: sets}, nil
}

func parseReverseChainSubst(b binarySegm) (GSUBSubtable, error) {
	cov, err := coverageAt(b, 2)
	if err != nil {
		return nil, err
	}
	pos := 4
	backtrack, pos, err := parseCoverageArray(b, pos)
	if err != nil {
		return nil, err
	}
	lookahead, pos, err := parseCoverageArray(b, pos)
	if err != nil {
		return nil, err
	}
	count, err := b.u16(pos)
	if err != nil {
		return nil, err
	}
	subst, err := b.glyphs(pos+2, int(count))
	if err != nil {
		return nil, err
	}
	return ReverseChainSubst{
		Coverage:    cov,
		Backtrack:   backtrack,
		Lookahead:   lookahead,
		Substitutes: subst,
	}, nil
}

// parseCoverageArray reads a count-prefixed array of coverage offsets at pos
// and returns the parsed coverages and the position after the array.
func parseCoverageArray(b binarySegm, pos int) ([]Coverage, int, error) {
	count, err := b.u16(pos)
	if err != nil {
		return nil, pos, err
	}
	coverages := make([]Coverage, count)
	for i := 0; i < int(count); i++ {
		cov, err := coverageAt(b, pos+2+i*2)
		if err != nil {
			return nil, pos, err
		}
		coverages[i] = cov
	}
	return coverages, pos + 2 + int(count)*2, nil
}

package ot

// GPOS — the glyph positioning table.

// GPOS lookup types.
const (
	GPOSTypeSingle         uint16 = 1
	GPOSTypePair           uint16 = 2
	GPOSTypeCursive        uint16 = 3
	GPOSTypeMarkToBase     uint16 = 4
	GPOSTypeMarkToLigature uint16 = 5
	GPOSTypeMarkToMark     uint16 = 6
	GPOSTypeContext        uint16 = 7
	GPOSTypeChainedContext uint16 = 8
	GPOSTypeExtension      uint16 = 9
)

// Value format bits of GPOS value records.
const (
	valueFormatXPlacement uint16 = 0x0001
	valueFormatYPlacement uint16 = 0x0002
	valueFormatXAdvance   uint16 = 0x0004
	valueFormatYAdvance   uint16 = 0x0008
	valueFormatDevices    uint16 = 0x00F0 // device/variation offsets, skipped
)

// GPOSSubtable is implemented by all parsed GPOS lookup subtables.
type GPOSSubtable interface {
	isGPOS()
}

// GPOSLookup is one parsed lookup of a GPOS table. Extension subtables are
// resolved at parse time.
type GPOSLookup struct {
	Type             uint16
	Flag             uint16
	MarkFilteringSet uint16
	Subtables        []GPOSSubtable
}

// GPOS is the parsed positioning table of a font.
type GPOS struct {
	LayoutHeader
	Lookups []*GPOSLookup
}

// ValueRecord is a positioning adjustment in design units. Device and
// variation-index entries are not interpreted.
type ValueRecord struct {
	XPlacement int16
	YPlacement int16
	XAdvance   int16
	YAdvance   int16
}

// IsZero returns true for the all-zero adjustment.
func (v ValueRecord) IsZero() bool {
	return v == ValueRecord{}
}

// Anchor is an attachment point in design units. If HasContourPoint is set,
// the anchor tracks the given contour point of the glyph outline.
type Anchor struct {
	X, Y            int16
	ContourPoint    uint16
	HasContourPoint bool
}

// SinglePos adjusts single glyph positions. Values is indexed by coverage
// index; a format 1 subtable holds one record shared by all covered glyphs.
type SinglePos struct {
	Coverage Coverage
	Values   []ValueRecord
}

// PairValue is one kerning-style pair adjustment of a format 1 pair subtable.
type PairValue struct {
	Second GlyphIndex
	Value1 ValueRecord
	Value2 ValueRecord
}

// PairPos1 positions glyph pairs through per-glyph pair sets.
type PairPos1 struct {
	Coverage Coverage
	PairSets [][]PairValue // indexed by coverage index of the first glyph
}

// PairPos2 positions glyph pairs through a class matrix.
type PairPos2 struct {
	Coverage    Coverage
	ClassDef1   ClassDef
	ClassDef2   ClassDef
	Class2Count uint16
	Values      [][2]ValueRecord // indexed by class1*Class2Count + class2
}

// EntryExit is a pair of cursive attachment anchors.
type EntryExit struct {
	Entry *Anchor
	Exit  *Anchor
}

// CursivePos chains cursively connecting glyphs.
type CursivePos struct {
	Coverage   Coverage
	EntryExits []EntryExit
}

// MarkRecord is one entry of a mark array.
type MarkRecord struct {
	Class  uint16
	Anchor Anchor
}

// MarkBasePos attaches mark glyphs to base glyphs.
type MarkBasePos struct {
	MarkCoverage Coverage
	BaseCoverage Coverage
	ClassCount   uint16
	Marks        []MarkRecord
	Bases        [][]*Anchor // [base coverage index][mark class]
}

// MarkLigPos attaches mark glyphs to ligature components.
type MarkLigPos struct {
	MarkCoverage     Coverage
	LigatureCoverage Coverage
	ClassCount       uint16
	Marks            []MarkRecord
	Ligatures        [][][]*Anchor // [lig coverage index][component][mark class]
}

// MarkMarkPos attaches mark glyphs to other marks.
type MarkMarkPos struct {
	Mark1Coverage Coverage
	Mark2Coverage Coverage
	ClassCount    uint16
	Marks         []MarkRecord
	Mark2s        [][]*Anchor // [mark2 coverage index][mark class]
}

func (SinglePos) isGPOS()   {}
func (PairPos1) isGPOS()    {}
func (PairPos2) isGPOS()    {}
func (CursivePos) isGPOS()  {}
func (MarkBasePos) isGPOS() {}
func (MarkLigPos) isGPOS()  {}
func (MarkMarkPos) isGPOS() {}

// ParseGPOS decodes a GPOS table from its binary form. Returns nil if the
// table is absent or too defective to use.
func ParseGPOS(data []byte) *GPOS {
	if len(data) == 0 {
		return nil
	}
	b := binarySegm(data)
	header, lookupList, err := parseLayoutHeader(b)
	if err != nil {
		tracer().Errorf("GPOS header unreadable: %v", err)
		return nil
	}
	gpos := &GPOS{LayoutHeader: header}
	for i, seg := range lookupSegments(lookupList) {
		lookup := parseGPOSLookup(seg)
		if lookup == nil {
			tracer().Infof("GPOS lookup %d dropped (malformed)", i)
			lookup = &GPOSLookup{}
		}
		gpos.Lookups = append(gpos.Lookups, lookup)
	}
	return gpos
}

func parseGPOSLookup(b binarySegm) *GPOSLookup {
	if b == nil {
		return nil
	}
	hdr, err := parseLookupHeader(b)
	if err != nil {
		return nil
	}
	lookup := &GPOSLookup{
		Type:             hdr.lookupType,
		Flag:             hdr.flag,
		MarkFilteringSet: hdr.markFilteringSet,
	}
	for _, seg := range hdr.subtables {
		typ, sub := parseGPOSSubtable(hdr.lookupType, seg)
		if sub == nil {
			continue
		}
		lookup.Type = typ
		lookup.Subtables = append(lookup.Subtables, sub)
	}
	return lookup
}

func parseGPOSSubtable(lookupType uint16, b binarySegm) (uint16, GPOSSubtable) {
	if lookupType == GPOSTypeExtension {
		extType, err := b.u16(2)
		if err != nil {
			return lookupType, nil
		}
		extOff, err := b.u32(4)
		if err != nil || extOff == 0 || int(extOff) >= len(b) {
			return lookupType, nil
		}
		return parseGPOSSubtable(extType, b[extOff:])
	}
	var sub GPOSSubtable
	var err error
	switch lookupType {
	case GPOSTypeSingle:
		sub, err = parseSinglePos(b)
	case GPOSTypePair:
		sub, err = parsePairPos(b)
	case GPOSTypeCursive:
		sub, err = parseCursivePos(b)
	case GPOSTypeMarkToBase:
		sub, err = parseMarkBasePos(b)
	case GPOSTypeMarkToLigature:
		sub, err = parseMarkLigPos(b)
	case GPOSTypeMarkToMark:
		sub, err = parseMarkMarkPos(b)
	case GPOSTypeContext:
		sub, err = parseSequenceContext(b)
	case GPOSTypeChainedContext:
		sub, err = parseChainedContext(b)
	default:
		return lookupType, nil
	}
	if err != nil {
		return lookupType, nil
	}
	return lookupType, sub
}

// valueRecordSize returns the byte size of a value record for a format.
func valueRecordSize(format uint16) int {
	size := 0
	for bit := uint16(0x0001); bit <= 0x0080; bit <<= 1 {
		if format&bit != 0 {
			size += 2
		}
	}
	return size
}

// parseValueRecord reads a value record at pos. Device offsets are consumed
// but not interpreted.
func parseValueRecord(b binarySegm, pos int, format uint16) (ValueRecord, error) {
	var v ValueRecord
	read := func() (int16, error) {
		n, err := b.i16(pos)
		pos += 2
		return n, err
	}
	var err error
	if format&valueFormatXPlacement != 0 {
		if v.XPlacement, err = read(); err != nil {
			return v, err
		}
	}
	if format&valueFormatYPlacement != 0 {
		if v.YPlacement, err = read(); err != nil {
			return v, err
		}
	}
	if format&valueFormatXAdvance != 0 {
		if v.XAdvance, err = read(); err != nil {
			return v, err
		}
	}
	if format&valueFormatYAdvance != 0 {
		if v.YAdvance, err = read(); err != nil {
			return v, err
		}
	}
	for bit := uint16(0x0010); bit <= 0x0080; bit <<= 1 {
		if format&bit != 0 {
			if _, err = read(); err != nil {
				return v, err
			}
		}
	}
	return v, nil
}

func parseAnchorAt(b binarySegm, at int) (*Anchor, error) {
	off, err := b.u16(at)
	if err != nil {
		return nil, err
	}
	if off == 0 || int(off) >= len(b) {
		return nil, nil
	}
	return parseAnchor(b[off:])
}

func parseAnchor(b binarySegm) (*Anchor, error) {
	format, err := b.u16(0)
	if err != nil {
		return nil, err
	}
	x, err := b.i16(2)
	if err != nil {
		return nil, err
	}
	y, err := b.i16(4)
	if err != nil {
		return nil, err
	}
	anchor := &Anchor{X: x, Y: y}
	if format == 2 {
		if pt, err := b.u16(6); err == nil {
			anchor.ContourPoint = pt
			anchor.HasContourPoint = true
		}
	}
	// format 3 carries device offsets, which we do not interpret
	return anchor, nil
}

func parseSinglePos(b binarySegm) (GPOSSubtable, error) {
	format, err := b.u16(0)
	if err != nil {
		return nil, err
	}
	cov, err := coverageAt(b, 2)
	if err != nil {
		return nil, err
	}
	valueFormat, err := b.u16(4)
	if err != nil {
		return nil, err
	}
	switch format {
	case 1:
		v, err := parseValueRecord(b, 6, valueFormat)
		if err != nil {
			return nil, err
		}
		return SinglePos{Coverage: cov, Values: []ValueRecord{v}}, nil
	case 2:
		count, err := b.u16(6)
		if err != nil {
			return nil, err
		}
		size := valueRecordSize(valueFormat)
		values := make([]ValueRecord, count)
		for i := range values {
			if values[i], err = parseValueRecord(b, 8+i*size, valueFormat); err != nil {
				return nil, err
			}
		}
		return SinglePos{Coverage: cov, Values: values}, nil
	}
	return nil, errBufferBounds
}

// Value returns the adjustment for a coverage index. Format 1 subtables are
// parsed into a single shared record.
func (s SinglePos) Value(coverageIndex int) ValueRecord {
	if len(s.Values) == 1 {
		return s.Values[0]
	}
	if coverageIndex < 0 || coverageIndex >= len(s.Values) {
		return ValueRecord{}
	}
	return s.Values[coverageIndex]
}

func parsePairPos(b binarySegm) (GPOSSubtable, error) {
	format, err := b.u16(0)
	if err != nil {
		return nil, err
	}
	cov, err := coverageAt(b, 2)
	if err != nil {
		return nil, err
	}
	valueFormat1, err := b.u16(4)
	if err != nil {
		return nil, err
	}
	valueFormat2, err := b.u16(6)
	if err != nil {
		return nil, err
	}
	size1 := valueRecordSize(valueFormat1)
	size2 := valueRecordSize(valueFormat2)
	switch format {
	case 1:
		setCount, err := b.u16(8)
		if err != nil {
			return nil, err
		}
		sets := make([][]PairValue, setCount)
		recSize := 2 + size1 + size2
		for i := 0; i < int(setCount); i++ {
			off, err := b.u16(10 + i*2)
			if err != nil || off == 0 || int(off) >= len(b) {
				continue
			}
			set := b[off:]
			pairCount, err := set.u16(0)
			if err != nil {
				continue
			}
			pairs := make([]PairValue, 0, pairCount)
			for j := 0; j < int(pairCount); j++ {
				pos := 2 + j*recSize
				second, err := set.u16(pos)
				if err != nil {
					break
				}
				v1, err := parseValueRecord(set, pos+2, valueFormat1)
				if err != nil {
					break
				}
				v2, err := parseValueRecord(set, pos+2+size1, valueFormat2)
				if err != nil {
					break
				}
				pairs = append(pairs, PairValue{Second: GlyphIndex(second), Value1: v1, Value2: v2})
			}
			sets[i] = pairs
		}
		return PairPos1{Coverage: cov, PairSets: sets}, nil
	case 2:
		cd1, err := classDefAt(b, 8)
		if err != nil {
			return nil, err
		}
		cd2, err := classDefAt(b, 10)
		if err != nil {
			return nil, err
		}
		class1Count, err := b.u16(12)
		if err != nil {
			return nil, err
		}
		class2Count, err := b.u16(14)
		if err != nil {
			return nil, err
		}
		recSize := size1 + size2
		values := make([][2]ValueRecord, int(class1Count)*int(class2Count))
		for i := range values {
			pos := 16 + i*recSize
			v1, err := parseValueRecord(b, pos, valueFormat1)
			if err != nil {
				return nil, err
			}
			v2, err := parseValueRecord(b, pos+size1, valueFormat2)
			if err != nil {
				return nil, err
			}
			values[i] = [2]ValueRecord{v1, v2}
		}
		return PairPos2{
			Coverage:    cov,
			ClassDef1:   cd1,
			ClassDef2:   cd2,
			Class2Count: class2Count,
			Values:      values,
		}, nil
	}
	return nil, errBufferBounds
}

func parseCursivePos(b binarySegm) (GPOSSubtable, error) {
	cov, err := coverageAt(b, 2)
	if err != nil {
		return nil, err
	}
	count, err := b.u16(4)
	if err != nil {
		return nil, err
	}
	entryExits := make([]EntryExit, count)
	for i := 0; i < int(count); i++ {
		entry, err := parseAnchorAt(b, 6+i*4)
		if err != nil {
			return nil, err
		}
		exit, err := parseAnchorAt(b, 6+i*4+2)
		if err != nil {
			return nil, err
		}
		entryExits[i] = EntryExit{Entry: entry, Exit: exit}
	}
	return CursivePos{Coverage: cov, EntryExits: entryExits}, nil
}

func parseMarkArrayAt(b binarySegm, at int) ([]MarkRecord, error) {
	off, err := b.u16(at)
	if err != nil || off == 0 || int(off) >= len(b) {
		return nil, err
	}
	ma := b[off:]
	count, err := ma.u16(0)
	if err != nil {
		return nil, err
	}
	marks := make([]MarkRecord, count)
	for i := 0; i < int(count); i++ {
		class, err := ma.u16(2 + i*4)
		if err != nil {
			return nil, err
		}
		anchor, err := parseAnchorAt(ma, 2+i*4+2)
		if err != nil {
			return nil, err
		}
		marks[i].Class = class
		if anchor != nil {
			marks[i].Anchor = *anchor
		}
	}
	return marks, nil
}

// parseAnchorMatrixAt reads a base/mark2 array: per row, classCount anchors.
func parseAnchorMatrixAt(b binarySegm, at int, classCount int) ([][]*Anchor, error) {
	off, err := b.u16(at)
	if err != nil || off == 0 || int(off) >= len(b) {
		return nil, err
	}
	m := b[off:]
	rowCount, err := m.u16(0)
	if err != nil {
		return nil, err
	}
	rows := make([][]*Anchor, rowCount)
	for i := 0; i < int(rowCount); i++ {
		row := make([]*Anchor, classCount)
		for j := 0; j < classCount; j++ {
			anchor, err := parseAnchorAt(m, 2+(i*classCount+j)*2)
			if err != nil {
				return nil, err
			}
			row[j] = anchor
		}
		rows[i] = row
	}
	return rows, nil
}

func parseMarkBasePos(b binarySegm) (GPOSSubtable, error) {
	markCov, err := coverageAt(b, 2)
	if err != nil {
		return nil, err
	}
	baseCov, err := coverageAt(b, 4)
	if err != nil {
		return nil, err
	}
	classCount, err := b.u16(6)
	if err != nil {
		return nil, err
	}
	marks, err := parseMarkArrayAt(b, 8)
	if err != nil {
		return nil, err
	}
	bases, err := parseAnchorMatrixAt(b, 10, int(classCount))
	if err != nil {
		return nil, err
	}
	return MarkBasePos{
		MarkCoverage: markCov,
		BaseCoverage: baseCov,
		ClassCount:   classCount,
		Marks:        marks,
		Bases:        bases,
	}, nil
}

func parseMarkLigPos(b binarySegm) (GPOSSubtable, error) {
	markCov, err := coverageAt(b, 2)
	if err != nil {
		return nil, err
	}
	ligCov, err := coverageAt(b, 4)
	if err != nil {
		return nil, err
	}
	classCount, err := b.u16(6)
	if err != nil {
		return nil, err
	}
	marks, err := parseMarkArrayAt(b, 8)
	if err != nil {
		return nil, err
	}
	off, err := b.u16(10)
	if err != nil || off == 0 || int(off) >= len(b) {
		return nil, errBufferBounds
	}
	ligArray := b[off:]
	ligCount, err := ligArray.u16(0)
	if err != nil {
		return nil, err
	}
	ligatures := make([][][]*Anchor, ligCount)
	for i := 0; i < int(ligCount); i++ {
		attachOff, err := ligArray.u16(2 + i*2)
		if err != nil || attachOff == 0 || int(attachOff) >= len(ligArray) {
			continue
		}
		attach := ligArray[attachOff:]
		compCount, err := attach.u16(0)
		if err != nil {
			continue
		}
		comps := make([][]*Anchor, compCount)
		for c := 0; c < int(compCount); c++ {
			row := make([]*Anchor, classCount)
			for j := 0; j < int(classCount); j++ {
				anchor, err := parseAnchorAt(attach, 2+(c*int(classCount)+j)*2)
				if err != nil {
					break
				}
				row[j] = anchor
			}
			comps[c] = row
		}
		ligatures[i] = comps
	}
	return MarkLigPos{
		MarkCoverage:     markCov,
		LigatureCoverage: ligCov,
		ClassCount:       classCount,
		Marks:            marks,
		Ligatures:        ligatures,
	}, nil
}

func parseMarkMarkPos(b binarySegm) (GPOSSubtable, error) {
	mark1Cov, err := coverageAt(b, 2)
	if err != nil {
		return nil, err
	}
	mark2Cov, err := coverageAt(b, 4)
	if err != nil {
		return nil, err
	}
	classCount, err := b.u16(6)
	if err != nil {
		return nil, err
	}
	marks, err := parseMarkArrayAt(b, 8)
	if err != nil {
		return nil, err
	}
	mark2s, err := parseAnchorMatrixAt(b, 10, int(classCount))
	if err != nil {
		return nil, err
	}
	return MarkMarkPos{
		Mark1Coverage: mark1Cov,
		Mark2Coverage: mark2Cov,
		ClassCount:    classCount,
		Marks:         marks,
		Mark2s:        mark2s,
	}, nil
}

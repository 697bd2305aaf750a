package ot

// AAT layout tables: morx (extended metamorphosis), kerx (extended kerning)
// and trak (tracking). Decoding is deliberately partial: we decode what the
// shaper can drive (non-contextual morx substitutions, kerx format 0 pair
// kerning, trak tracking values) and skip everything else defensively.
// Skipped subtables simply do not appear in the parsed view.

// --- AAT lookup tables -----------------------------------------------------

// aatLookup is a classic AAT lookup table mapping glyph ids to 16-bit
// values. Formats 0, 2, 4, 6 and 8 are supported.
type aatLookup struct {
	values   []uint16 // format 0 / 8
	first    GlyphIndex
	segments []aatLookupSegment // format 2 / 4
	segData  []uint16           // format 4 value arrays, flattened
	single   map[GlyphIndex]uint16
}

type aatLookupSegment struct {
	last, first GlyphIndex
	value       uint16 // value (fmt 2) or index into segData (fmt 4)
	isIndex     bool
}

func (l *aatLookup) lookup(g GlyphIndex) (uint16, bool) {
	if l == nil {
		return 0, false
	}
	if l.values != nil {
		if g < l.first || int(g-l.first) >= len(l.values) {
			return 0, false
		}
		return l.values[g-l.first], true
	}
	if l.single != nil {
		v, ok := l.single[g]
		return v, ok
	}
	for _, seg := range l.segments {
		if g >= seg.first && g <= seg.last {
			if !seg.isIndex {
				return seg.value, true
			}
			i := int(seg.value) + int(g-seg.first)
			if i < len(l.segData) {
				return l.segData[i], true
			}
			return 0, false
		}
	}
	return 0, false
}

func parseAATLookup(b binarySegm) *aatLookup {
	format, err := b.u16(0)
	if err != nil {
		return nil
	}
	switch format {
	case 0:
		// plain array for all glyphs; length is implied by the segment
		count := (len(b) - 2) / 2
		values, err := b.u16s(2, count)
		if err != nil {
			return nil
		}
		return &aatLookup{values: values, first: 0}
	case 2, 4:
		// binary-search header: unitSize, nUnits, searchRange,
		// entrySelector, rangeShift, then segments.
		unitSize, err1 := b.u16(2)
		nUnits, err2 := b.u16(4)
		if err1 != nil || err2 != nil || unitSize < 6 {
			return nil
		}
		look := &aatLookup{}
		base := 12
		for i := 0; i < int(nUnits); i++ {
			pos := base + i*int(unitSize)
			last, err1 := b.u16(pos)
			first, err2 := b.u16(pos + 2)
			value, err3 := b.u16(pos + 4)
			if err1 != nil || err2 != nil || err3 != nil {
				break
			}
			if last == 0xFFFF { // guard segment
				continue
			}
			seg := aatLookupSegment{
				last:    GlyphIndex(last),
				first:   GlyphIndex(first),
				isIndex: format == 4,
			}
			if format == 4 {
				// value is a byte offset from the lookup start to the
				// per-glyph value array; flatten it.
				n := int(last-first) + 1
				vals, err := b.u16s(int(value), n)
				if err != nil {
					continue
				}
				seg.value = uint16(len(look.segData))
				look.segData = append(look.segData, vals...)
			} else {
				seg.value = value
			}
			look.segments = append(look.segments, seg)
		}
		return look
	case 6:
		nUnits, err := b.u16(4)
		if err != nil {
			return nil
		}
		single := make(map[GlyphIndex]uint16, nUnits)
		base := 12
		for i := 0; i < int(nUnits); i++ {
			g, err1 := b.u16(base + i*4)
			v, err2 := b.u16(base + i*4 + 2)
			if err1 != nil || err2 != nil {
				break
			}
			if g == 0xFFFF {
				continue
			}
			single[GlyphIndex(g)] = v
		}
		return &aatLookup{single: single}
	case 8:
		first, err1 := b.u16(2)
		count, err2 := b.u16(4)
		if err1 != nil || err2 != nil {
			return nil
		}
		values, err := b.u16s(6, int(count))
		if err != nil {
			return nil
		}
		return &aatLookup{values: values, first: GlyphIndex(first)}
	}
	return nil
}

// --- morx ------------------------------------------------------------------

// MorxSubtableType identifies the decoded kind of a morx subtable.
type MorxSubtableType uint8

const (
	MorxNonContextual MorxSubtableType = 4
)

// MorxSubtable is one decoded morx subtable. Only non-contextual
// substitutions are decoded; state-machine subtables are skipped.
type MorxSubtable struct {
	Type         MorxSubtableType
	Vertical     bool
	FeatureFlags uint32
	substitution *aatLookup
}

// Substitute returns the replacement glyph for g, if the subtable has one.
func (s *MorxSubtable) Substitute(g GlyphIndex) (GlyphIndex, bool) {
	if s == nil || s.substitution == nil {
		return 0, false
	}
	v, ok := s.substitution.lookup(g)
	if !ok || v == 0xFFFF {
		return 0, false
	}
	return GlyphIndex(v), true
}

// MorxChain is one metamorphosis chain.
type MorxChain struct {
	DefaultFlags uint32
	Subtables    []MorxSubtable
}

// MorxTable is a parsed morx table.
type MorxTable struct {
	Chains []MorxChain
}

// HasSubstitutions returns true if any decoded chain carries a usable
// substitution subtable.
func (m *MorxTable) HasSubstitutions() bool {
	if m == nil {
		return false
	}
	for i := range m.Chains {
		if len(m.Chains[i].Subtables) > 0 {
			return true
		}
	}
	return false
}

// ParseMorx decodes a morx table. Returns nil if absent or unreadable.
func ParseMorx(data []byte) *MorxTable {
	if len(data) < 8 {
		return nil
	}
	b := binarySegm(data)
	nChains, err := b.u32(4)
	if err != nil || nChains == 0 || nChains > 32 {
		return nil
	}
	morx := &MorxTable{}
	pos := 8
	for c := 0; c < int(nChains) && pos+16 <= len(b); c++ {
		defaultFlags, err1 := b.u32(pos)
		chainLength, err2 := b.u32(pos + 4)
		nFeatures, err3 := b.u32(pos + 8)
		nSubtables, err4 := b.u32(pos + 12)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || chainLength == 0 {
			break
		}
		chain := MorxChain{DefaultFlags: defaultFlags}
		subPos := pos + 16 + int(nFeatures)*12
		for s := 0; s < int(nSubtables) && subPos+12 <= len(b); s++ {
			length, err1 := b.u32(subPos)
			coverage, err2 := b.u32(subPos + 4)
			featureFlags, err3 := b.u32(subPos + 8)
			if err1 != nil || err2 != nil || err3 != nil || length < 12 {
				break
			}
			typ := MorxSubtableType(coverage & 0xFF)
			if typ == MorxNonContextual && subPos+int(length) <= len(b) {
				look := parseAATLookup(b[subPos+12 : subPos+int(length)])
				if look != nil {
					chain.Subtables = append(chain.Subtables, MorxSubtable{
						Type:         typ,
						Vertical:     coverage&0x80000000 != 0,
						FeatureFlags: featureFlags,
						substitution: look,
					})
				}
			} else {
				tracer().Debugf("morx subtable type %d skipped", typ)
			}
			subPos += int(length)
		}
		morx.Chains = append(morx.Chains, chain)
		pos += int(chainLength)
	}
	if len(morx.Chains) == 0 {
		return nil
	}
	return morx
}

// --- kerx ------------------------------------------------------------------

// KerxSubtable is one decoded kerx subtable (format 0 pairs only; other
// formats are skipped).
type KerxSubtable struct {
	Vertical    bool
	CrossStream bool
	pairs       map[uint32]int16
}

// Kerning returns the kerning value for a glyph pair.
func (s *KerxSubtable) Kerning(left, right GlyphIndex) (int16, bool) {
	v, ok := s.pairs[uint32(left)<<16|uint32(right)]
	return v, ok
}

// KerxTable is a parsed kerx table.
type KerxTable struct {
	Subtables []KerxSubtable
}

// HasKerning returns true if any usable subtable was decoded.
func (k *KerxTable) HasKerning() bool {
	return k != nil && len(k.Subtables) > 0
}

// Kerning accumulates horizontal kerning for a glyph pair.
func (k *KerxTable) Kerning(left, right GlyphIndex) int16 {
	if k == nil {
		return 0
	}
	var sum int16
	for i := range k.Subtables {
		if k.Subtables[i].Vertical || k.Subtables[i].CrossStream {
			continue
		}
		if v, ok := k.Subtables[i].Kerning(left, right); ok {
			sum += v
		}
	}
	return sum
}

// ParseKerx decodes a kerx table. Returns nil if absent or unreadable.
func ParseKerx(data []byte) *KerxTable {
	if len(data) < 8 {
		return nil
	}
	b := binarySegm(data)
	nTables, err := b.u32(4)
	if err != nil || nTables == 0 || nTables > 64 {
		return nil
	}
	kerx := &KerxTable{}
	pos := 8
	for i := 0; i < int(nTables) && pos+12 <= len(b); i++ {
		length, err1 := b.u32(pos)
		coverage, err2 := b.u32(pos + 4)
		if err1 != nil || err2 != nil || length < 12 {
			break
		}
		format := coverage & 0xFF
		if format == 0 && pos+int(length) <= len(b) {
			sub := b[pos+12:]
			nPairs, err := sub.u32(0)
			if err == nil {
				pairs := make(map[uint32]int16, nPairs)
				base := 16 // nPairs + searchRange + entrySelector + rangeShift
				for j := 0; j < int(nPairs); j++ {
					l, err1 := sub.u16(base + j*6)
					r, err2 := sub.u16(base + j*6 + 2)
					v, err3 := sub.i16(base + j*6 + 4)
					if err1 != nil || err2 != nil || err3 != nil {
						break
					}
					pairs[uint32(l)<<16|uint32(r)] = v
				}
				if len(pairs) > 0 {
					kerx.Subtables = append(kerx.Subtables, KerxSubtable{
						Vertical:    coverage&0x80000000 != 0,
						CrossStream: coverage&0x40000000 != 0,
						pairs:       pairs,
					})
				}
			}
		} else {
			tracer().Debugf("kerx subtable format %d skipped", format)
		}
		pos += int(length)
	}
	if len(kerx.Subtables) == 0 {
		return nil
	}
	return kerx
}

// --- trak ------------------------------------------------------------------

// TrakEntry is one track of tracking values, per size.
type TrakEntry struct {
	Track  int32 // 16.16 fixed
	Sizes  []int32
	Values []int16 // per size, font units
}

// TrakData is the horizontal or vertical half of a trak table.
type TrakData struct {
	Entries []TrakEntry
}

// TrakTable is a parsed trak table.
type TrakTable struct {
	Horizontal TrakData
	Vertical   TrakData
}

// TrackingFor returns the tracking value of the neutral track (0.0) for a
// point size (16.16 fixed), using the nearest size entry.
func (d *TrakData) TrackingFor(ptSize int32) (int16, bool) {
	if d == nil {
		return 0, false
	}
	for _, e := range d.Entries {
		if e.Track != 0 || len(e.Values) == 0 {
			continue
		}
		best, bestDist := 0, int32(-1)
		for i, size := range e.Sizes {
			dist := size - ptSize
			if dist < 0 {
				dist = -dist
			}
			if bestDist < 0 || dist < bestDist {
				best, bestDist = i, dist
			}
		}
		if best < len(e.Values) {
			return e.Values[best], true
		}
	}
	return 0, false
}

// ParseTrak decodes a trak table. Returns nil if absent or unreadable.
func ParseTrak(data []byte) *TrakTable {
	if len(data) < 12 {
		return nil
	}
	b := binarySegm(data)
	horizOff, err1 := b.u16(6)
	vertOff, err2 := b.u16(8)
	if err1 != nil || err2 != nil {
		return nil
	}
	trak := &TrakTable{}
	if horizOff != 0 && int(horizOff) < len(b) {
		trak.Horizontal = parseTrakData(b, int(horizOff))
	}
	if vertOff != 0 && int(vertOff) < len(b) {
		trak.Vertical = parseTrakData(b, int(vertOff))
	}
	if len(trak.Horizontal.Entries) == 0 && len(trak.Vertical.Entries) == 0 {
		return nil
	}
	return trak
}

func parseTrakData(b binarySegm, pos int) TrakData {
	data := TrakData{}
	nTracks, err1 := b.u16(pos)
	nSizes, err2 := b.u16(pos + 2)
	sizeOff, err3 := b.u32(pos + 4)
	if err1 != nil || err2 != nil || err3 != nil {
		return data
	}
	sizes := make([]int32, nSizes)
	for i := range sizes {
		v, err := b.u32(int(sizeOff) + i*4)
		if err != nil {
			return data
		}
		sizes[i] = int32(v)
	}
	for t := 0; t < int(nTracks); t++ {
		entryPos := pos + 8 + t*8
		track, err1 := b.u32(entryPos)
		valueOff, err2 := b.u16(entryPos + 6)
		if err1 != nil || err2 != nil {
			break
		}
		values := make([]int16, nSizes)
		ok := true
		for i := range values {
			v, err := b.i16(int(valueOff) + i*2)
			if err != nil {
				ok = false
				break
			}
			values[i] = v
		}
		if !ok {
			continue
		}
		data.Entries = append(data.Entries, TrakEntry{
			Track:  int32(track),
			Sizes:  sizes,
			Values: values,
		})
	}
	return data
}

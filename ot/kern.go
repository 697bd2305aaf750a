package ot

// The legacy 'kern' table. Only horizontal kerning subtables are decoded
// (format 0 pair lists and format 2 class matrices); others are skipped.
// Both the OpenType (version 0) and the Apple (version 1) table headers are
// recognized.

// KernTable is a parsed legacy kern table.
type KernTable struct {
	Subtables []KernSubtable
}

// KernSubtable is one horizontal kerning subtable.
type KernSubtable struct {
	CrossStream bool
	pairs       map[uint32]int16 // format 0
	left        ClassDef         // format 2 (class values pre-divided)
	right       ClassDef
	rowWidth    int
	matrix      []int16
}

// Kerning returns the kerning adjustment for a glyph pair in this subtable.
func (s *KernSubtable) Kerning(left, right GlyphIndex) (int16, bool) {
	if s.pairs != nil {
		v, ok := s.pairs[uint32(left)<<16|uint32(right)]
		return v, ok
	}
	if s.matrix != nil {
		l := int(s.left.Class(left))
		r := int(s.right.Class(right))
		i := l + r
		if i >= 0 && i < len(s.matrix) {
			return s.matrix[i], s.matrix[i] != 0
		}
	}
	return 0, false
}

// HasKerning returns true if the table carries any usable subtable.
func (k *KernTable) HasKerning() bool {
	return k != nil && len(k.Subtables) > 0
}

// Kerning returns the accumulated horizontal kerning for a glyph pair.
func (k *KernTable) Kerning(left, right GlyphIndex) int16 {
	if k == nil {
		return 0
	}
	var sum int16
	for i := range k.Subtables {
		if v, ok := k.Subtables[i].Kerning(left, right); ok {
			sum += v
		}
	}
	return sum
}

// ParseKern decodes a legacy kern table. Returns nil if absent or
// unreadable.
func ParseKern(data []byte) *KernTable {
	if len(data) < 4 {
		return nil
	}
	b := binarySegm(data)
	version, _ := b.u16(0)
	kern := &KernTable{}
	if version == 0 {
		// OpenType header: uint16 version, uint16 nTables
		n, err := b.u16(2)
		if err != nil {
			return nil
		}
		pos := 4
		for i := 0; i < int(n) && pos+6 <= len(b); i++ {
			length, err := b.u16(pos + 2)
			if err != nil || length == 0 {
				break
			}
			coverage, err := b.u16(pos + 4)
			if err != nil {
				break
			}
			// coverage bits: 0 horizontal, 2 cross-stream; format in high byte
			horizontal := coverage&0x0001 != 0
			crossStream := coverage&0x0004 != 0
			format := coverage >> 8
			if horizontal {
				if sub := parseKernSubtable(b, pos, pos+6, int(format), crossStream); sub != nil {
					kern.Subtables = append(kern.Subtables, *sub)
				}
			}
			pos += int(length)
		}
	} else if version == 1 {
		// Apple header: uint32 version (0x00010000), uint32 nTables
		n, err := b.u32(4)
		if err != nil {
			return nil
		}
		pos := 8
		for i := 0; i < int(n) && pos+8 <= len(b); i++ {
			length, err := b.u32(pos)
			if err != nil || length == 0 {
				break
			}
			coverage, err := b.u16(pos + 4)
			if err != nil {
				break
			}
			// Apple coverage bits: 0x8000 vertical, 0x4000 cross-stream;
			// format in low byte.
			vertical := coverage&0x8000 != 0
			crossStream := coverage&0x4000 != 0
			format := coverage & 0x00FF
			if !vertical {
				if sub := parseKernSubtable(b, pos, pos+8, int(format), crossStream); sub != nil {
					kern.Subtables = append(kern.Subtables, *sub)
				}
			}
			pos += int(length)
		}
	} else {
		return nil
	}
	if len(kern.Subtables) == 0 {
		return nil
	}
	return kern
}

func parseKernSubtable(b binarySegm, subStart, pos int, format int, crossStream bool) *KernSubtable {
	switch format {
	case 0:
		nPairs, err := b.u16(pos)
		if err != nil {
			return nil
		}
		pairs := make(map[uint32]int16, nPairs)
		base := pos + 8 // skip searchRange, entrySelector, rangeShift
		for i := 0; i < int(nPairs); i++ {
			left, err1 := b.u16(base + i*6)
			right, err2 := b.u16(base + i*6 + 2)
			value, err3 := b.i16(base + i*6 + 4)
			if err1 != nil || err2 != nil || err3 != nil {
				break
			}
			pairs[uint32(left)<<16|uint32(right)] = value
		}
		if len(pairs) == 0 {
			return nil
		}
		return &KernSubtable{CrossStream: crossStream, pairs: pairs}
	case 2:
		// Class-based matrix with byte offsets relative to the subtable
		// start. Values in the class tables are pre-multiplied offsets.
		rowWidth, err := b.u16(pos)
		if err != nil {
			return nil
		}
		leftOff, err1 := b.u16(pos + 2)
		rightOff, err2 := b.u16(pos + 4)
		arrayOff, err3 := b.u16(pos + 6)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil
		}
		// The offsets are relative to the start of the subtable, header
		// included (6 bytes for OT, 8 for Apple); out-of-range references
		// are rejected.
		subBase := subStart
		left := parseKernClassTable(b, subBase+int(leftOff))
		right := parseKernClassTable(b, subBase+int(rightOff))
		if int(arrayOff) >= len(b)-subBase {
			return nil
		}
		// Class values are byte offsets from the subtable start (the left
		// class values already include the kerning-array base). We keep the
		// whole subtable as an int16 array so that class sums index it
		// directly.
		count := (len(b) - subBase) / 2
		matrix := make([]int16, count)
		for i := range matrix {
			v, err := b.i16(subBase + i*2)
			if err != nil {
				break
			}
			matrix[i] = v
		}
		return &KernSubtable{
			CrossStream: crossStream,
			left:        left,
			right:       right,
			rowWidth:    int(rowWidth),
			matrix:      matrix,
		}
	}
	return nil
}

// parseKernClassTable reads a kern format-2 class table: firstGlyph,
// glyphCount, then per-glyph class values (already scaled offsets, which we
// halve into matrix indices).
func parseKernClassTable(b binarySegm, pos int) ClassDef {
	first, err1 := b.u16(pos)
	count, err2 := b.u16(pos + 2)
	if err1 != nil || err2 != nil {
		return ClassDef{}
	}
	values, err := b.u16s(pos+4, int(count))
	if err != nil {
		return ClassDef{}
	}
	classes := make([]uint16, len(values))
	for i, v := range values {
		classes[i] = v / 2
	}
	return ClassDef{startGlyph: GlyphIndex(first), classes: classes}
}

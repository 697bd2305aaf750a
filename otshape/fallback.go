package otshape

// Fallback positioning for fonts without (usable) GPOS: marks are attached
// to their base glyph using glyph extents and combining classes, and
// Unicode space variants get synthetic widths.

// recategorizeCombiningClass normalizes exotic combining classes to the
// basic positional ones the fallback positioner understands.
func recategorizeCombiningClass(r rune, cc uint8) uint8 {
	if cc >= 200 {
		// attached classes position like their detached counterparts
		switch cc {
		case 200, 202, 218, 222, 233: // below variants
			return ccBelow
		case 214, 216, 228, 230, 232, 234: // above variants
			return ccAbove
		}
		return cc
	}
	// fixed-position classes of Hebrew, Arabic, Syriac, Thai/Lao and
	// Tibetan behave like generic below/above marks for fallback purposes
	switch {
	case cc == 9: // virama
		return ccBelow
	case cc >= 10 && cc <= 25: // Hebrew points (modified classes)
		return ccBelow
	case cc >= 26 && cc <= 35: // Arabic vowels
		if r == 0x0670 { // superscript alef
			return ccAbove
		}
		if cc >= 28 && cc <= 33 {
			return ccAbove
		}
		return ccBelow
	case cc == 36: // Syriac alaph
		return ccAbove
	case cc == 103 || cc == 118: // Thai/Lao below vowels
		return ccBelow
	case cc == 107 || cc == 122: // Thai/Lao tone marks
		return ccAbove
	case cc >= 129 && cc <= 132: // Tibetan vowels
		if cc == 130 {
			return ccAbove
		}
		return ccBelow
	}
	return cc
}

// fallbackMarkPositionRecategorizeMarks rewrites mark combining classes
// before GSUB so that the fallback positioner sees stable classes.
func fallbackMarkPositionRecategorizeMarks(buf *Buffer) {
	for i := range buf.Info {
		if buf.Info[i].genCat == nonSpacingMark {
			buf.Info[i].ccc = recategorizeCombiningClass(buf.Info[i].Codepoint, buf.Info[i].ccc)
		}
	}
}

// zeroMarkWidthsByGdef zeroes mark advances; with adjustOffsets the mark is
// shifted so it hangs over the previous glyph.
func zeroMarkWidthsByGdef(buf *Buffer, adjustOffsets bool) {
	for i := range buf.Info {
		if !buf.Info[i].isMark() {
			continue
		}
		pos := &buf.Pos[i]
		if adjustOffsets {
			pos.XOffset -= pos.XAdvance
			pos.YOffset -= pos.YAdvance
		}
		pos.XAdvance = 0
		pos.YAdvance = 0
	}
}

// zeroMarkWidthsByUnicode is the same policy keyed on the Unicode general
// category instead of GDEF classes.
func zeroMarkWidthsByUnicode(buf *Buffer, adjustOffsets bool) {
	for i := range buf.Info {
		if !buf.Info[i].isUnicodeMark() {
			continue
		}
		pos := &buf.Pos[i]
		if adjustOffsets {
			pos.XOffset -= pos.XAdvance
			pos.YOffset -= pos.YAdvance
		}
		pos.XAdvance = 0
		pos.YAdvance = 0
	}
}

// fallbackMarkPosition synthesizes mark attachment for the whole buffer:
// each run of marks is positioned against its preceding base glyph.
func fallbackMarkPosition(plan *Plan, face Face, buf *Buffer, adjustOffsets bool) {
	_ = adjustOffsets
	start := 0
	for i := 1; i < len(buf.Info); i++ {
		if !buf.Info[i].isUnicodeMark() {
			fallbackMarksCluster(plan, face, buf, start, i)
			start = i
		}
	}
	fallbackMarksCluster(plan, face, buf, start, len(buf.Info))
}

// fallbackMarksCluster positions the marks of one base+marks cluster.
func fallbackMarksCluster(plan *Plan, face Face, buf *Buffer, start, end int) {
	if end-start < 2 {
		return
	}
	base := start
	if buf.Info[base].isUnicodeMark() {
		return // broken cluster, nothing to attach to
	}
	baseExtents, ok := face.GlyphExtents(buf.Info[base].Glyph)
	if !ok {
		// synthesize from metrics
		baseExtents = GlyphExtents{
			XBearing: 0,
			YBearing: int32(face.UnitsPerEm()),
			Width:    face.AdvanceH(buf.Info[base].Glyph),
			Height:   -int32(face.UnitsPerEm()),
		}
	}
	baseExtents.XBearing += buf.Pos[base].XOffset
	baseExtents.YBearing += buf.Pos[base].YOffset

	xAccumulated := int32(0)
	for i := base + 1; i < end; i++ {
		xAccumulated += buf.Pos[i-1].XAdvance
		if !buf.Info[i].isUnicodeMark() {
			continue
		}
		markExtents, ok := face.GlyphExtents(buf.Info[i].Glyph)
		if !ok {
			continue
		}
		pos := &buf.Pos[i]
		cc := buf.Info[i].ccc

		// center the mark horizontally over the base ink box
		pos.XOffset = baseExtents.XBearing +
			(baseExtents.Width-markExtents.Width)/2 - markExtents.XBearing - xAccumulated

		switch cc {
		case ccBelow:
			pos.YOffset = baseExtents.YBearing + baseExtents.Height -
				(markExtents.YBearing + markExtents.Height)
			pos.YOffset -= markExtents.Height / 8
		case ccAbove:
			pos.YOffset = baseExtents.YBearing - markExtents.YBearing
			pos.YOffset += markExtents.Height / 8
			if pos.YOffset < 0 {
				pos.YOffset = 0
			}
		default:
			continue
		}
		pos.XAdvance = 0
		pos.YAdvance = 0

		// stack: grow the base box so following marks stack outward
		switch cc {
		case ccBelow:
			baseExtents.Height -= markExtents.Height
		case ccAbove:
			baseExtents.YBearing += markExtents.Height
			baseExtents.Height -= markExtents.Height
		}
	}
}

// fallbackSpaces assigns synthetic advances to Unicode space variants the
// font cannot map.
func fallbackSpaces(face Face, buf *Buffer) {
	horizontal := buf.Props.Direction.isHorizontal()
	upem := int32(face.UnitsPerEm())
	for i := range buf.Info {
		st := buf.Info[i].spaceType
		if st == spaceNot {
			continue
		}
		var advance int32
		switch st {
		case space, spaceNarrow:
			if g, ok := face.NominalGlyph(' '); ok {
				advance = face.AdvanceH(g)
			} else {
				advance = upem / 2
			}
			if st == spaceNarrow {
				advance /= 3
			}
		case spaceEm:
			advance = upem
		case spaceEm2:
			advance = upem / 2
		case spaceEm3:
			advance = upem / 3
		case spaceEm4:
			advance = upem / 4
		case spaceEm6:
			advance = upem / 6
		case spaceEm16:
			advance = upem / 16
		case space4Em18:
			advance = upem * 4 / 18
		case spaceFigure:
			if g, ok := face.NominalGlyph('0'); ok {
				advance = face.AdvanceH(g)
			} else {
				advance = upem / 2
			}
		case spacePunctuation:
			if g, ok := face.NominalGlyph('.'); ok {
				advance = face.AdvanceH(g)
			} else {
				advance = upem / 4
			}
		default:
			continue
		}
		if horizontal {
			buf.Pos[i].XAdvance = advance
		} else {
			buf.Pos[i].YAdvance = -advance
		}
	}
}

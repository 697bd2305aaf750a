package otshape

// Shared machinery of the syllable-driven shapers (Indic, Khmer, Myanmar,
// USE): syllable tagging and dotted-circle insertion for broken syllables.

// setSyllables tags glyphs [start,end) with a syllable value combining a
// running serial and the syllable type.
func setSyllables(buf *Buffer, start, end int, serial *uint8, syllableType uint8) {
	value := *serial<<4 | syllableType&0x0F
	for i := start; i < end; i++ {
		buf.Info[i].syllable = value
	}
	*serial++
	if *serial == 16 {
		*serial = 1
	}
}

// syllableRange returns the bounds of the syllable containing index i.
func syllableRange(buf *Buffer, i int) (int, int) {
	syllable := buf.Info[i].syllable
	start, end := i, i+1
	for start > 0 && buf.Info[start-1].syllable == syllable {
		start--
	}
	for end < len(buf.Info) && buf.Info[end].syllable == syllable {
		end++
	}
	return start, end
}

// forEachSyllable calls fn for every maximal same-syllable span.
func forEachSyllable(buf *Buffer, fn func(start, end int)) {
	start := 0
	for start < len(buf.Info) {
		syllable := buf.Info[start].syllable
		end := start + 1
		for end < len(buf.Info) && buf.Info[end].syllable == syllable {
			end++
		}
		fn(start, end)
		start = end
	}
}

// syllabicInsertDottedCircles inserts a dotted-circle glyph into every
// broken syllable, after an optional leading repha.
func syllabicInsertDottedCircles(face Face, buf *Buffer, brokenSyllableType,
	dottedCircleCategory uint8, rephaCategory int, dottedCirclePosition int,
) bool {
	if buf.Flags&BufferFlagDoNotInsertDottedCircle != 0 {
		return false
	}
	if buf.scratchFlags&bsfHasBrokenSyllable == 0 {
		return false
	}
	dottedCircleGlyph, ok := face.NominalGlyph(0x25CC)
	if !ok {
		return false
	}
	dottedCircle := GlyphInfo{
		Codepoint:       0x25CC,
		Glyph:           dottedCircleGlyph,
		complexCategory: dottedCircleCategory,
	}
	dottedCircle.genCat = uniGeneralCategory(0x25CC)
	if dottedCirclePosition != -1 {
		dottedCircle.complexAux = uint8(dottedCirclePosition)
	}

	buf.clearOutput()
	buf.idx = 0
	var lastSyllable uint8
	for buf.idx < len(buf.Info) && !buf.failed {
		syllable := buf.cur(0).syllable
		if lastSyllable != syllable && syllable&0x0F == brokenSyllableType {
			lastSyllable = syllable
			ginfo := dottedCircle
			ginfo.Cluster = buf.cur(0).Cluster
			ginfo.Mask = buf.cur(0).Mask
			ginfo.syllable = buf.cur(0).syllable
			// insert the dotted circle after a possible repha
			if rephaCategory != -1 {
				for buf.idx < len(buf.Info) &&
					lastSyllable == buf.cur(0).syllable &&
					buf.cur(0).complexCategory == uint8(rephaCategory) {
					buf.nextGlyph()
				}
			}
			buf.outputInfo(ginfo)
		} else {
			buf.nextGlyph()
		}
	}
	buf.swapBuffers()
	return true
}

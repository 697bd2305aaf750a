package otshape

// The Thai/Lao shaping engine. Thai and Lao need no OpenType positional
// features, but SARA AM decomposes into NIKHAHIT + SARA AA with the
// nikhahit reordered before any preceding tone marks.

type shaperThai struct {
	complexShaperNil
}

var _ ShapingEngine = shaperThai{}

func (shaperThai) Name() string { return "thai" }

func (shaperThai) MarksBehavior() (ZeroWidthMarksMode, bool) {
	return ZeroWidthMarksByGDEFLate, false
}

func (shaperThai) NormalizationPreference() NormalizationMode { return nmAuto }

func isSaraAm(r rune) bool     { return r == 0x0E33 || r == 0x0EB3 }
func nikhahitFor(r rune) rune  { return r - 0x0E33 + 0x0E4D }
func saraAaFor(r rune) rune    { return r - 0x0E33 + 0x0E32 }
func isToneMarkThai(r rune) bool {
	// Thai and Lao tone marks and the marks that position like them
	return (0x0E34 <= r && r <= 0x0E37) || (0x0E47 <= r && r <= 0x0E4E) ||
		(0x0EB4 <= r && r <= 0x0EB7) || (0x0EBB <= r && r <= 0x0ECD)
}

// PreprocessText decomposes SARA AM and floats the nikhahit leftwards over
// adjacent tone marks, keeping clusters merged.
//
// This resembles the nikhahit-reordering described in the Unicode book,
// section on Thai rendering.
func (shaperThai) PreprocessText(plan *Plan, buf *Buffer, face Face) {
	buf.clearOutput()
	buf.idx = 0
	for buf.idx < len(buf.Info) && !buf.failed {
		r := buf.Info[buf.idx].Codepoint
		if !isSaraAm(r) {
			buf.nextGlyph()
			continue
		}

		// decompose: NIKHAHIT + SARA AA, cluster shared
		nikhahit := nikhahitFor(r)
		saraAa := saraAaFor(r)
		buf.replaceGlyphs(1, []rune{nikhahit, saraAa}, nil)
		if buf.outLen >= 2 {
			for _, at := range []int{buf.outLen - 2, buf.outLen - 1} {
				info := &buf.outInfo[at]
				info.genCat = uniGeneralCategory(info.Codepoint)
				info.ccc = uniModifiedCombiningClass(info.Codepoint)
			}
		}

		// float the nikhahit over preceding tone marks
		nikhahitAt := buf.outLen - 2
		start := nikhahitAt
		for start > 0 && isToneMarkThai(buf.outInfo[start-1].Codepoint) {
			start--
		}
		if start < nikhahitAt {
			nk := buf.outInfo[nikhahitAt]
			copy(buf.outInfo[start+1:nikhahitAt+1], buf.outInfo[start:nikhahitAt])
			buf.outInfo[start] = nk
			buf.mergeOutClusters(start, buf.outLen)
		}
	}
	buf.swapBuffers()
}

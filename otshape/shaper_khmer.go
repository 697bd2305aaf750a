package otshape

import "github.com/npillmayer/textshape/ot"

// The Khmer shaping engine: coeng-based consonant stacking, register
// shifters, and pre-base vowel reordering. Split vowels are decomposed by
// the normalizer via the Decompose hook.

// Khmer categories, stored in complexCategory.
const (
	kcX uint8 = iota
	kcC       // consonant
	kcV       // independent vowel
	kcM       // dependent vowel
	kcMPre    // pre-base dependent vowel
	kcH       // coeng
	kcRS      // register shifter
	kcSM      // sign
	kcZWJ
	kcZWNJ
	kcPlaceholder
	kcDottedCircle
)

// Khmer syllable types.
const (
	khmerConsonantSyllable uint8 = iota
	khmerBrokenCluster
	khmerNonKhmerCluster
)

func khmerCategoryFor(r rune) uint8 {
	switch {
	case r == 0x200C:
		return kcZWNJ
	case r == 0x200D:
		return kcZWJ
	case r == 0x25CC:
		return kcDottedCircle
	case r >= 0x1780 && r <= 0x17A2:
		return kcC
	case r >= 0x17A3 && r <= 0x17B3:
		return kcV
	case r >= 0x17C1 && r <= 0x17C3: // e, ae, ai: render before the base
		return kcMPre
	case r >= 0x17B6 && r <= 0x17C5:
		return kcM
	case r == 0x17C6: // nikahit
		return kcSM
	case r == 0x17C7 || r == 0x17C8:
		return kcSM
	case r == 0x17C9 || r == 0x17CA: // muusikatoan, triisap
		return kcRS
	case r >= 0x17CB && r <= 0x17D1:
		return kcSM
	case r == 0x17D2: // coeng
		return kcH
	case r == 0x17DD:
		return kcSM
	case r >= 0x17E0 && r <= 0x17E9:
		return kcPlaceholder
	}
	return kcX
}

type shaperKhmer struct {
	complexShaperNil
}

var _ ShapingEngine = shaperKhmer{}

type khmerPlanData struct {
	prefMask GlyphMask
	blwfMask GlyphMask
	abvfMask GlyphMask
	pstfMask GlyphMask
	cfarMask GlyphMask
}

func (shaperKhmer) Name() string { return "khmer" }

func (shaperKhmer) MarksBehavior() (ZeroWidthMarksMode, bool) {
	return ZeroWidthMarksNone, false
}

func (shaperKhmer) NormalizationPreference() NormalizationMode {
	return nmComposedDiacriticsNoShortCircuit
}

// Decompose splits the Khmer split vowels into their pre-base part and the
// remainder, which is not a canonical decomposition.
func (shaperKhmer) Decompose(c *normalizeContext, ab rune) (rune, rune, bool) {
	switch ab {
	case 0x17BE, 0x17BF, 0x17C0, 0x17C4, 0x17C5:
		return 0x17C1, ab, true
	}
	return c.decomposeUnicode(ab)
}

// Compose keeps marks apart so the split vowels stay split.
func (shaperKhmer) Compose(c *normalizeContext, a, b rune) (rune, bool) {
	if uniGeneralCategory(a).isMark() {
		return 0, false
	}
	return c.composeUnicode(a, b)
}

func (shaperKhmer) CollectFeatures(planner *shapePlanner) {
	mb := planner.mapBuilder
	mb.enableFeatureExt(ot.T("locl"), ffPerSyllable, 1)
	mb.enableFeatureExt(ot.T("ccmp"), ffPerSyllable, 1)

	mb.addGSUBPause(khmerSetupSyllables)
	mb.addGSUBPause(khmerReorder)
	for _, tag := range []ot.Tag{ot.T("pref"), ot.T("blwf"), ot.T("abvf"), ot.T("pstf"), ot.T("cfar")} {
		mb.addFeatureExt(tag, ffManualJoiners|ffPerSyllable, 1)
	}
	mb.addGSUBPause(nil)
	for _, tag := range []ot.Tag{ot.T("pres"), ot.T("abvs"), ot.T("blws"), ot.T("psts")} {
		mb.enableFeatureExt(tag, ffManualJoiners|ffPerSyllable, 1)
	}
}

func (shaperKhmer) OverrideFeatures(planner *shapePlanner) {
	// 'liga' is off by default for Khmer; 'clig' stays on.
	planner.mapBuilder.addFeatureExt(ot.T("liga"), ffGlobal, 0)
}

func (shaperKhmer) InitPlan(plan *Plan) {
	plan.shaperData = &khmerPlanData{
		prefMask: plan.map_.getMask1(ot.T("pref")),
		blwfMask: plan.map_.getMask1(ot.T("blwf")),
		abvfMask: plan.map_.getMask1(ot.T("abvf")),
		pstfMask: plan.map_.getMask1(ot.T("pstf")),
		cfarMask: plan.map_.getMask1(ot.T("cfar")),
	}
}

func (shaperKhmer) SetupMasks(plan *Plan, buf *Buffer, face Face) {
	for i := range buf.Info {
		buf.Info[i].complexCategory = khmerCategoryFor(buf.Info[i].Codepoint)
	}
}

func khmerSetupSyllables(plan *Plan, face Face, buf *Buffer) {
	var serial uint8 = 1
	n := len(buf.Info)
	cat := func(j int) uint8 {
		if j >= n {
			return kcX
		}
		return buf.Info[j].complexCategory
	}
	i := 0
	for i < n {
		start := i
		var syllableType uint8
		if cat(i) == kcC || cat(i) == kcV || cat(i) == kcPlaceholder || cat(i) == kcDottedCircle {
			// consonant syllable: base (coeng C | RS | M | SM)*
			i++
			for i < n {
				switch cat(i) {
				case kcH:
					if i+1 < n && (cat(i+1) == kcC || cat(i+1) == kcV) {
						i += 2
					} else {
						i++
					}
					continue
				case kcRS, kcM, kcMPre, kcSM, kcZWJ, kcZWNJ:
					i++
					continue
				}
				break
			}
			syllableType = khmerConsonantSyllable
		} else if cat(i) == kcM || cat(i) == kcMPre || cat(i) == kcSM || cat(i) == kcRS || cat(i) == kcH {
			for i < n {
				c := cat(i)
				if c == kcM || c == kcMPre || c == kcSM || c == kcRS || c == kcH {
					i++
					continue
				}
				break
			}
			syllableType = khmerBrokenCluster
			buf.scratchFlags |= bsfHasBrokenSyllable
		} else {
			i++
			syllableType = khmerNonKhmerCluster
		}
		setSyllables(buf, start, i, &serial, syllableType)
	}
	syllabicInsertDottedCircles(face, buf, khmerBrokenCluster, kcDottedCircle, -1, -1)
}

// khmerReorder moves pre-base vowels (and coeng+Ro) to the front of their
// syllable and assigns the subjoined feature masks.
func khmerReorder(plan *Plan, face Face, buf *Buffer) {
	data, _ := plan.shaperData.(*khmerPlanData)
	if data == nil {
		return
	}
	forEachSyllable(buf, func(start, end int) {
		info := buf.Info

		// masks for coeng-consonant pairs
		for i := start; i < end-1; i++ {
			if info[i].complexCategory != kcH {
				continue
			}
			next := &info[i+1]
			if next.complexCategory != kcC && next.complexCategory != kcV {
				continue
			}
			mask := data.blwfMask
			if next.Codepoint == 0x179A { // Ro is pre-base
				mask = data.prefMask
			}
			info[i].Mask |= mask
			next.Mask |= mask
		}
		// every register shifter takes abvf, whatever vowel the base carries
		for i := start; i < end; i++ {
			if info[i].complexCategory == kcRS {
				info[i].Mask |= data.abvfMask
			}
		}

		// move coeng+Ro to the syllable start
		for i := start + 1; i+1 < end; i++ {
			if info[i].complexCategory != kcH || info[i+1].Codepoint != 0x179A {
				continue
			}
			buf.mergeClusters(start, i+2)
			coeng, ro := info[i], info[i+1]
			copy(info[start+2:i+2], info[start:i])
			info[start], info[start+1] = coeng, ro
		}

		// move pre-base vowels to the syllable start
		for i := start + 1; i < end; i++ {
			if info[i].complexCategory != kcMPre {
				continue
			}
			buf.mergeClusters(start, i+1)
			pre := info[i]
			copy(info[start+1:i+1], info[start:i])
			info[start] = pre
		}
	})
}

package otshape

import "github.com/npillmayer/textshape/ot"

// The Universal Shaping Engine: category-driven cluster formation and
// reordering for the many lesser-spread complex scripts. The
// classification here is computed from general Unicode properties plus a
// small set of per-category overrides, rather than from the full USE
// category data file.

// USE categories (a working subset), stored in complexCategory.
const (
	useO    uint8 = iota // other
	useB                 // base
	useN                 // numeral treated as base
	useGB                // generic base (placeholder, dotted circle)
	useH                 // halant
	useZWNJ
	useZWJ
	useVPre // pre-base vowel
	useVAbv
	useVBlw
	useVPst
	useSM // syllable modifier
	useCS // consonant with stacker
	useR  // repha
	useSub
)

// USE syllable types.
const (
	useStandardCluster uint8 = iota
	useBrokenCluster
	useNonCluster
)

// viramas of the USE scripts this engine sees most; anything with CCC 9
// also qualifies.
var useViramas = map[rune]bool{
	0x1B44: true, // Balinese adeg adeg
	0xA9C0: true, // Javanese pangkon
	0x1714: true, // Tagalog
	0x1734: true, // Hanunoo pamudpod
	0x17D2: true, // Khmer coeng (when routed here)
	0x1A60: true, // Tai Tham sakot
	0xA806: true, // Syloti Nagri hasanta
	0x110B9: true,
	0x111C0: true,
	0x11442: true,
}

// pre-base vowels of common USE scripts
var usePreBaseVowels = map[rune]bool{
	0x1B3E: true, 0x1B3F: true, // Balinese
	0xA9BA: true, 0xA9BB: true, // Javanese taling
	0x19B5: true, 0x19B6: true, 0x19B7: true, 0x19BA: true, // New Tai Lue
	0xAA2F: true, 0xAA30: true, // Cham
	0x103C: true, // (defensive: medial ra routed via Myanmar normally)
	0x1084: true,
}

func useCategoryFor(r rune) uint8 {
	switch {
	case r == 0x200C:
		return useZWNJ
	case r == 0x200D:
		return useZWJ
	case r == 0x25CC:
		return useGB
	case r == 0x00A0 || (r >= 0x2010 && r <= 0x2014):
		return useGB
	case useViramas[r] || uniCombiningClass(r) == 9:
		return useH
	case usePreBaseVowels[r]:
		return useVPre
	}
	gc := uniGeneralCategory(r)
	switch gc {
	case nonSpacingMark, enclosingMark:
		switch uniCombiningClass(r) {
		case ccAbove:
			return useVAbv
		case ccBelow:
			return useVBlw
		}
		return useVAbv
	case spacingMark:
		return useVPst
	case modifierLetter:
		return useSM
	}
	if gc.isLetter() {
		return useB
	}
	if gc == decimalNumber || gc == otherNumber {
		return useGB
	}
	return useO
}

type shaperUSE struct {
	complexShaperNil
}

var _ ShapingEngine = shaperUSE{}

func (shaperUSE) Name() string { return "use" }

func (shaperUSE) MarksBehavior() (ZeroWidthMarksMode, bool) {
	return ZeroWidthMarksByGDEFEarly, false
}

func (shaperUSE) NormalizationPreference() NormalizationMode {
	return nmComposedDiacriticsNoShortCircuit
}

var useBasicFeatures = []ot.Tag{
	ot.T("akhn"),
	ot.T("rphf"),
	ot.T("pref"),
	ot.T("rkrf"),
	ot.T("abvf"),
	ot.T("blwf"),
	ot.T("half"),
	ot.T("pstf"),
	ot.T("vatu"),
	ot.T("cjct"),
}

var useTopographicalFeatures = []ot.Tag{
	ot.T("isol"),
	ot.T("init"),
	ot.T("medi"),
	ot.T("fina"),
}

var useOtherFeatures = []ot.Tag{
	ot.T("abvs"),
	ot.T("blws"),
	ot.T("haln"),
	ot.T("pres"),
	ot.T("psts"),
}

func (shaperUSE) CollectFeatures(planner *shapePlanner) {
	mb := planner.mapBuilder
	mb.enableFeatureExt(ot.T("locl"), ffPerSyllable, 1)
	mb.enableFeatureExt(ot.T("ccmp"), ffPerSyllable, 1)

	mb.addGSUBPause(useSetupSyllables)
	for _, tag := range useBasicFeatures {
		mb.enableFeatureExt(tag, ffManualZWJ|ffPerSyllable, 1)
	}
	mb.addGSUBPause(useReorder)
	for _, tag := range useTopographicalFeatures {
		mb.addFeatureExt(tag, ffManualZWJ, 1)
	}
	for _, tag := range useOtherFeatures {
		mb.enableFeatureExt(tag, ffManualZWJ|ffPerSyllable, 1)
	}
}

func (shaperUSE) SetupMasks(plan *Plan, buf *Buffer, face Face) {
	for i := range buf.Info {
		buf.Info[i].complexCategory = useCategoryFor(buf.Info[i].Codepoint)
	}
}

// Compose keeps marks decomposed so cluster formation sees them.
func (shaperUSE) Compose(c *normalizeContext, a, b rune) (rune, bool) {
	if uniGeneralCategory(a).isMark() {
		return 0, false
	}
	return c.composeUnicode(a, b)
}

func useSetupSyllables(plan *Plan, face Face, buf *Buffer) {
	var serial uint8 = 1
	n := len(buf.Info)
	cat := func(j int) uint8 {
		if j >= n {
			return useO
		}
		return buf.Info[j].complexCategory
	}
	i := 0
	for i < n {
		start := i
		var syllableType uint8
		switch cat(i) {
		case useB, useGB, useCS:
			// standard cluster: base (halant base)* vowels* modifiers*
			i++
			for i < n {
				switch cat(i) {
				case useH:
					i++
					if i < n && (cat(i) == useB || cat(i) == useCS) {
						i++
					}
					continue
				case useVPre, useVAbv, useVBlw, useVPst, useSM, useZWJ, useZWNJ, useSub:
					i++
					continue
				}
				break
			}
			syllableType = useStandardCluster
		case useVPre, useVAbv, useVBlw, useVPst, useH, useSM:
			for i < n {
				c := cat(i)
				if c == useVPre || c == useVAbv || c == useVBlw || c == useVPst ||
					c == useH || c == useSM {
					i++
					continue
				}
				break
			}
			syllableType = useBrokenCluster
			buf.scratchFlags |= bsfHasBrokenSyllable
		default:
			i++
			syllableType = useNonCluster
		}
		setSyllables(buf, start, i, &serial, syllableType)
	}
	syllabicInsertDottedCircles(face, buf, useBrokenCluster, useGB, int(useR), -1)
}

// useReorder moves pre-base vowels to the start of each cluster; rephas
// are not moved.
func useReorder(plan *Plan, face Face, buf *Buffer) {
	forEachSyllable(buf, func(start, end int) {
		info := buf.Info
		if info[start].syllable&0x0F == useNonCluster {
			return
		}
		// move VPre glyphs to the cluster start
		for i := start + 1; i < end; i++ {
			if info[i].complexCategory != useVPre {
				continue
			}
			buf.mergeClusters(start, i+1)
			pre := info[i]
			copy(info[start+1:i+1], info[start:i])
			info[start] = pre
		}
	})
}

package otshape

import "github.com/npillmayer/textshape/ot"

// The Myanmar shaping engine: kinzi detection, medial handling, and
// pre-base vowel reordering per the mym2 specification.

// Myanmar categories.
const (
	mcX uint8 = iota
	mcC       // consonant
	mcV       // independent vowel
	mcM       // dependent vowel (above/below/post)
	mcMPre    // vowel sign E, renders before the cluster
	mcMedial  // medial consonant sign
	mcAsat    // asat (visible virama)
	mcH       // invisible virama
	mcSM      // anusvara, visarga, dot below, tone marks
	mcZWJ
	mcZWNJ
	mcPlaceholder
	mcDottedCircle
)

// Myanmar syllable types.
const (
	myanmarConsonantSyllable uint8 = iota
	myanmarBrokenCluster
	myanmarNonMyanmarCluster
)

func myanmarCategoryFor(r rune) uint8 {
	switch {
	case r == 0x200C:
		return mcZWNJ
	case r == 0x200D:
		return mcZWJ
	case r == 0x25CC:
		return mcDottedCircle
	case (r >= 0x1000 && r <= 0x102A) || (r >= 0x1050 && r <= 0x1055) ||
		(r >= 0x105A && r <= 0x105D) || r == 0x1061 || r == 0x1065 || r == 0x1066 ||
		(r >= 0x106E && r <= 0x1070) || (r >= 0x1075 && r <= 0x1081) || r == 0x108E:
		if r >= 0x1021 && r <= 0x102A {
			return mcV
		}
		return mcC
	case r == 0x1031: // vowel sign E
		return mcMPre
	case (r >= 0x102B && r <= 0x1030) || (r >= 0x1032 && r <= 0x1035) ||
		(r >= 0x1056 && r <= 0x1059) || (r >= 0x1062 && r <= 0x1064) ||
		(r >= 0x1067 && r <= 0x106D) || (r >= 0x1071 && r <= 0x1074) ||
		(r >= 0x1083 && r <= 0x1086) || (r >= 0x109C && r <= 0x109D):
		return mcM
	case r >= 0x103B && r <= 0x103E: // medials ya, ra, wa, ha
		return mcMedial
	case r == 0x103A:
		return mcAsat
	case r == 0x1039:
		return mcH
	case r == 0x1036 || r == 0x1037 || r == 0x1038 ||
		(r >= 0x1087 && r <= 0x108D) || r == 0x108F || (r >= 0x1090 && r <= 0x1099) ||
		(r >= 0x109A && r <= 0x109B):
		if r >= 0x1090 && r <= 0x1099 { // digits
			return mcPlaceholder
		}
		return mcSM
	case r >= 0x1040 && r <= 0x1049:
		return mcPlaceholder
	}
	return mcX
}

type shaperMyanmar struct {
	complexShaperNil
}

var _ ShapingEngine = shaperMyanmar{}

func (shaperMyanmar) Name() string { return "myanmar" }

func (shaperMyanmar) MarksBehavior() (ZeroWidthMarksMode, bool) {
	return ZeroWidthMarksByGDEFEarly, false
}

func (shaperMyanmar) NormalizationPreference() NormalizationMode {
	return nmComposedDiacriticsNoShortCircuit
}

var myanmarBasicFeatures = []ot.Tag{
	ot.T("rphf"),
	ot.T("pref"),
	ot.T("blwf"),
	ot.T("pstf"),
}

var myanmarOtherFeatures = []ot.Tag{
	ot.T("pres"),
	ot.T("abvs"),
	ot.T("blws"),
	ot.T("psts"),
}

func (shaperMyanmar) CollectFeatures(planner *shapePlanner) {
	mb := planner.mapBuilder
	mb.enableFeatureExt(ot.T("locl"), ffPerSyllable, 1)
	mb.enableFeatureExt(ot.T("ccmp"), ffPerSyllable, 1)

	mb.addGSUBPause(myanmarSetupSyllables)
	mb.addGSUBPause(myanmarReorder)
	for _, tag := range myanmarBasicFeatures {
		mb.enableFeatureExt(tag, ffManualZWJ|ffPerSyllable, 1)
		mb.addGSUBPause(nil)
	}
	for _, tag := range myanmarOtherFeatures {
		mb.enableFeatureExt(tag, ffManualZWJ|ffPerSyllable, 1)
	}
}

func (shaperMyanmar) SetupMasks(plan *Plan, buf *Buffer, face Face) {
	for i := range buf.Info {
		buf.Info[i].complexCategory = myanmarCategoryFor(buf.Info[i].Codepoint)
	}
}

func myanmarSetupSyllables(plan *Plan, face Face, buf *Buffer) {
	var serial uint8 = 1
	n := len(buf.Info)
	cat := func(j int) uint8 {
		if j >= n {
			return mcX
		}
		return buf.Info[j].complexCategory
	}
	i := 0
	for i < n {
		start := i
		var syllableType uint8
		switch cat(i) {
		case mcC, mcV, mcPlaceholder, mcDottedCircle:
			// consonant syllable:
			//   (kinzi)? base (H base | asat | medial | vowel | sign)*
			i++
			for i < n {
				switch cat(i) {
				case mcH:
					if i+1 < n && cat(i+1) == mcC {
						i += 2
						continue
					}
					i++
					continue
				case mcAsat, mcMedial, mcM, mcMPre, mcSM, mcZWJ, mcZWNJ:
					i++
					continue
				}
				break
			}
			syllableType = myanmarConsonantSyllable
		case mcM, mcMPre, mcSM, mcAsat, mcMedial, mcH:
			for i < n {
				c := cat(i)
				if c == mcM || c == mcMPre || c == mcSM || c == mcAsat || c == mcMedial || c == mcH {
					i++
					continue
				}
				break
			}
			syllableType = myanmarBrokenCluster
			buf.scratchFlags |= bsfHasBrokenSyllable
		default:
			i++
			syllableType = myanmarNonMyanmarCluster
		}
		setSyllables(buf, start, i, &serial, syllableType)
	}
	syllabicInsertDottedCircles(face, buf, myanmarBrokenCluster, mcDottedCircle, -1, -1)
}

// myanmarReorder tags kinzi sequences for rphf, medial Ra for pref, and
// moves the vowel sign E to the front of its syllable.
func myanmarReorder(plan *Plan, face Face, buf *Buffer) {
	rphfMask := plan.map_.getMask1(ot.T("rphf"))
	prefMask := plan.map_.getMask1(ot.T("pref"))
	blwfMask := plan.map_.getMask1(ot.T("blwf"))
	pstfMask := plan.map_.getMask1(ot.T("pstf"))

	forEachSyllable(buf, func(start, end int) {
		info := buf.Info

		// kinzi: NGA + asat + virama at the syllable start
		if end-start >= 3 &&
			info[start].Codepoint == 0x1004 &&
			info[start+1].complexCategory == mcAsat &&
			info[start+2].complexCategory == mcH {
			for j := start; j < start+3; j++ {
				info[j].Mask |= rphfMask
			}
		}

		for i := start; i < end; i++ {
			switch info[i].Codepoint {
			case 0x103C: // medial Ra renders before the base
				info[i].Mask |= prefMask
			case 0x103D, 0x103E: // medial Wa, Ha render below
				info[i].Mask |= blwfMask
			case 0x103B: // medial Ya renders after
				info[i].Mask |= pstfMask
			}
		}

		// move the vowel sign E before the syllable
		for i := start + 1; i < end; i++ {
			if info[i].complexCategory != mcMPre {
				continue
			}
			buf.mergeClusters(start, i+1)
			pre := info[i]
			copy(info[start+1:i+1], info[start:i])
			info[start] = pre
		}
	})
}

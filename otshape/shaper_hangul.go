package otshape

import "github.com/npillmayer/textshape/ot"

// The Hangul shaping engine: composes and decomposes jamo sequences to
// whatever the font can render, and tags jamo with the ljmo/vjmo/tjmo
// feature masks.

const (
	lBase  = 0x1100 // leading consonants
	vBase  = 0x1161 // vowels
	tBase  = 0x11A7 // trailing consonants
	sBase  = 0xAC00 // precomposed syllables
	lCount = 19
	vCount = 21
	tCount = 28
	nCount = vCount * tCount
	sCount = lCount * nCount
)

func isL(r rune) bool { return (r >= 0x1100 && r <= 0x115F) || (r >= 0xA960 && r <= 0xA97C) }
func isV(r rune) bool { return (r >= 0x1160 && r <= 0x11A7) || (r >= 0xD7B0 && r <= 0xD7C6) }
func isT(r rune) bool { return (r >= 0x11A8 && r <= 0x11FF) || (r >= 0xD7CB && r <= 0xD7FB) }

func isCombinedS(r rune) bool { return r >= sBase && r < sBase+sCount }

func isCombiningL(r rune) bool { return r >= lBase && r < lBase+lCount }
func isCombiningV(r rune) bool { return r >= vBase && r < vBase+vCount }
func isCombiningT(r rune) bool { return r >= tBase+1 && r < tBase+tCount }

// jamo feature classes, stored in complexAux during preprocessing
const (
	hangulNone uint8 = iota
	hangulLJMO
	hangulVJMO
	hangulTJMO
)

type hangulPlanData struct {
	maskArray [4]GlyphMask
}

type shaperHangul struct {
	complexShaperNil
}

var _ ShapingEngine = shaperHangul{}

func (shaperHangul) Name() string { return "hangul" }

func (shaperHangul) MarksBehavior() (ZeroWidthMarksMode, bool) {
	return ZeroWidthMarksNone, false
}

// Hangul does its own composition in preprocessing.
func (shaperHangul) NormalizationPreference() NormalizationMode { return nmNone }

func (shaperHangul) CollectFeatures(planner *shapePlanner) {
	mb := planner.mapBuilder
	mb.addFeature(ot.T("ljmo"))
	mb.addFeature(ot.T("vjmo"))
	mb.addFeature(ot.T("tjmo"))
}

func (shaperHangul) OverrideFeatures(planner *shapePlanner) {
	// Uniscribe does not apply calt for Hangul, and some fonts rely on
	// that to avoid unwanted substitutions.
	planner.mapBuilder.addFeatureExt(ot.T("calt"), ffGlobal, 0)
}

func (shaperHangul) InitPlan(plan *Plan) {
	data := &hangulPlanData{}
	data.maskArray[hangulLJMO] = plan.map_.getMask1(ot.T("ljmo"))
	data.maskArray[hangulVJMO] = plan.map_.getMask1(ot.T("vjmo"))
	data.maskArray[hangulTJMO] = plan.map_.getMask1(ot.T("tjmo"))
	plan.shaperData = data
}

// PreprocessText composes jamo runs into precomposed syllables where the
// font has them, and decomposes precomposed syllables the font lacks.
func (shaperHangul) PreprocessText(plan *Plan, buf *Buffer, face Face) {
	buf.clearOutput()
	buf.idx = 0
	for buf.idx < len(buf.Info) && !buf.failed {
		r := buf.Info[buf.idx].Codepoint

		if isCombinedS(r) {
			// decompose if the font cannot render the syllable
			if hasGlyph(face, r) {
				buf.nextGlyph()
				markJamo(buf, hangulNone)
				continue
			}
			sIndex := r - sBase
			l := lBase + sIndex/nCount
			v := vBase + (sIndex%nCount)/tCount
			t := tBase + sIndex%tCount
			hasT := sIndex%tCount != 0
			if hasGlyph(face, l) && hasGlyph(face, v) && (!hasT || hasGlyph(face, t)) {
				if hasT {
					buf.replaceGlyphs(1, []rune{l, v, t}, nil)
					tagOutJamo(buf, 3)
				} else {
					buf.replaceGlyphs(1, []rune{l, v}, nil)
					tagOutJamo(buf, 2)
				}
				continue
			}
			buf.nextGlyph()
			continue
		}

		if isCombiningL(r) && buf.idx+1 < len(buf.Info) {
			v := buf.Info[buf.idx+1].Codepoint
			if isCombiningV(v) {
				// <L,V> or <L,V,T>
				lIndex := r - lBase
				vIndex := v - vBase
				tIndex := rune(0)
				consumed := 2
				if buf.idx+2 < len(buf.Info) && isCombiningT(buf.Info[buf.idx+2].Codepoint) {
					tIndex = buf.Info[buf.idx+2].Codepoint - tBase
					consumed = 3
				}
				s := sBase + (lIndex*vCount+vIndex)*tCount + tIndex
				if hasGlyph(face, s) {
					buf.replaceGlyphs(consumed, []rune{s}, nil)
					markOutJamo(buf, 1, hangulNone)
					continue
				}
			}
		}

		buf.nextGlyph()
		switch {
		case isL(r):
			markJamo(buf, hangulLJMO)
		case isV(r):
			markJamo(buf, hangulVJMO)
		case isT(r):
			markJamo(buf, hangulTJMO)
		default:
			markJamo(buf, hangulNone)
		}
	}
	buf.swapBuffers()
}

// markJamo tags the most recently emitted glyph.
func markJamo(buf *Buffer, class uint8) {
	markOutJamo(buf, 1, class)
}

func markOutJamo(buf *Buffer, n int, class uint8) {
	for i := buf.outLen - n; i < buf.outLen; i++ {
		if i >= 0 {
			buf.outInfo[i].complexAux = class
		}
	}
}

// tagOutJamo tags the last n emitted glyphs as L, V(, T) in order.
func tagOutJamo(buf *Buffer, n int) {
	classes := [3]uint8{hangulLJMO, hangulVJMO, hangulTJMO}
	for i := 0; i < n; i++ {
		at := buf.outLen - n + i
		if at >= 0 {
			buf.outInfo[at].complexAux = classes[i]
		}
	}
}

// SetupMasks ORs the jamo feature masks assigned during preprocessing.
func (shaperHangul) SetupMasks(plan *Plan, buf *Buffer, face Face) {
	data, _ := plan.shaperData.(*hangulPlanData)
	if data == nil {
		return
	}
	for i := range buf.Info {
		class := buf.Info[i].complexAux
		if class != hangulNone && int(class) < len(data.maskArray) {
			buf.Info[i].Mask |= data.maskArray[class]
		}
	}
}

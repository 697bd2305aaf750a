package otshape

import (
	tslang "github.com/go-text/typesetting/language"
	"github.com/npillmayer/textshape/ot"
)

// The Arabic shaping engine: joining analysis driving the positional
// features init/medi/fina/isol (plus the Syriac extensions), modifier
// combining mark reordering, tatweel stretching, and fallback shaping via
// Unicode presentation forms when the font has no Arabic layout features.

// Joining types (Unicode ArabicShaping.txt), plus the two joining groups
// the state machine distinguishes.
const (
	joiningTypeU uint8 = iota // non-joining
	joiningTypeL              // left-joining
	joiningTypeR              // right-joining
	joiningTypeD              // dual-joining
	joiningGroupAlaph
	joiningGroupDalathRish
	numStateMachineCols
	joiningTypeT // transparent
	joiningTypeC // join-causing
)

type arabicRange struct {
	first, last rune
	jt          uint8
}

// arabicJoiningRanges is a compact joining-type table for the Arabic and
// Syriac blocks. Characters not listed fall back to their general category
// (marks and format controls are transparent, all else non-joining).
var arabicJoiningRanges = []arabicRange{
	{0x0620, 0x0620, joiningTypeD},
	{0x0622, 0x0625, joiningTypeR},
	{0x0626, 0x0626, joiningTypeD},
	{0x0627, 0x0627, joiningTypeR},
	{0x0628, 0x0628, joiningTypeD},
	{0x0629, 0x0629, joiningTypeR},
	{0x062A, 0x062E, joiningTypeD},
	{0x062F, 0x0632, joiningTypeR},
	{0x0633, 0x063F, joiningTypeD},
	{0x0640, 0x0640, joiningTypeC}, // tatweel
	{0x0641, 0x0647, joiningTypeD},
	{0x0648, 0x0648, joiningTypeR},
	{0x0649, 0x064A, joiningTypeD},
	{0x066E, 0x066F, joiningTypeD},
	{0x0671, 0x0673, joiningTypeR},
	{0x0674, 0x0674, joiningTypeU},
	{0x0675, 0x0677, joiningTypeR},
	{0x0678, 0x0687, joiningTypeD},
	{0x0688, 0x0699, joiningTypeR},
	{0x069A, 0x06BF, joiningTypeD},
	{0x06C0, 0x06C0, joiningTypeR},
	{0x06C1, 0x06C2, joiningTypeD},
	{0x06C3, 0x06CB, joiningTypeR},
	{0x06CC, 0x06CC, joiningTypeD},
	{0x06CD, 0x06CD, joiningTypeR},
	{0x06CE, 0x06CE, joiningTypeD},
	{0x06CF, 0x06CF, joiningTypeR},
	{0x06D0, 0x06D1, joiningTypeD},
	{0x06D2, 0x06D3, joiningTypeR},
	{0x06D5, 0x06D5, joiningTypeR},
	{0x06EE, 0x06EF, joiningTypeR},
	{0x06FA, 0x06FC, joiningTypeD},
	{0x06FF, 0x06FF, joiningTypeD},
	// Syriac
	{0x0710, 0x0710, joiningGroupAlaph},
	{0x0712, 0x0714, joiningTypeD},
	{0x0715, 0x0716, joiningGroupDalathRish},
	{0x0717, 0x0719, joiningTypeR},
	{0x071A, 0x071D, joiningTypeD},
	{0x071E, 0x071E, joiningGroupDalathRish},
	{0x071F, 0x0727, joiningTypeD},
	{0x0728, 0x0728, joiningTypeR},
	{0x0729, 0x0729, joiningTypeD},
	{0x072A, 0x072A, joiningGroupDalathRish},
	{0x072B, 0x072B, joiningTypeD},
	{0x072C, 0x072C, joiningGroupDalathRish},
	{0x072D, 0x072F, joiningTypeD},
	{0x074D, 0x074D, joiningTypeR},
	{0x074E, 0x0758, joiningTypeD},
	{0x0759, 0x075B, joiningTypeR},
	{0x075C, 0x076A, joiningTypeD},
	{0x076B, 0x076C, joiningTypeR},
	{0x076D, 0x0770, joiningTypeD},
	{0x0771, 0x0771, joiningTypeR},
	{0x0772, 0x0772, joiningTypeD},
	{0x0773, 0x0774, joiningTypeR},
	{0x0775, 0x0777, joiningTypeD},
	{0x0778, 0x0779, joiningTypeR},
	{0x077A, 0x077F, joiningTypeD},
	// Arabic Extended-A
	{0x08A0, 0x08A9, joiningTypeD},
	{0x08AA, 0x08AC, joiningTypeR},
	{0x08AD, 0x08AD, joiningTypeU},
	{0x08AE, 0x08AE, joiningTypeR},
	{0x08AF, 0x08B0, joiningTypeD},
	{0x08B1, 0x08B2, joiningTypeR},
	{0x08B3, 0x08B8, joiningTypeD},
	{0x08B9, 0x08B9, joiningTypeR},
	{0x08BA, 0x08C7, joiningTypeD},
	// joiner controls
	{0x200C, 0x200C, joiningTypeU}, // ZWNJ breaks joining
	{0x200D, 0x200D, joiningTypeC}, // ZWJ causes joining
}

// arabicJoiningType returns the joining type of a code point.
func arabicJoiningType(r rune, genCat generalCategory) uint8 {
	for _, rg := range arabicJoiningRanges {
		if r >= rg.first && r <= rg.last {
			return rg.jt
		}
	}
	switch genCat {
	case nonSpacingMark, enclosingMark, format:
		return joiningTypeT
	}
	return joiningTypeU
}

// Arabic shaping actions, doubling as indices into the feature mask array.
const (
	arabIsol uint8 = iota
	arabFina
	arabFin2
	arabFin3
	arabMedi
	arabMed2
	arabInit
	arabNone
	arabNumFeatures = arabNone

	// postprocessing actions for the stretching feature, stored in the
	// same per-glyph slot after GSUB
	arabStchFixed     = arabNone + 1
	arabStchRepeating = arabNone + 2
)

var arabicFeatureTags = [arabNumFeatures]ot.Tag{
	ot.T("isol"),
	ot.T("fina"),
	ot.T("fin2"),
	ot.T("fin3"),
	ot.T("medi"),
	ot.T("med2"),
	ot.T("init"),
}

type arabicStateEntry struct {
	prevAction uint8
	currAction uint8
	nextState  uint8
}

// The Arabic joining state machine, indexed by [state][joining column].
var arabicStateTable = [7][numStateMachineCols]arabicStateEntry{
	// state 0: prev was U, not willing to join
	{{arabNone, arabNone, 0}, {arabNone, arabIsol, 2}, {arabNone, arabIsol, 1}, {arabNone, arabIsol, 2}, {arabNone, arabIsol, 1}, {arabNone, arabIsol, 6}},
	// state 1: prev was R or isol/alaph, not willing to join
	{{arabNone, arabNone, 0}, {arabNone, arabIsol, 2}, {arabNone, arabIsol, 1}, {arabNone, arabIsol, 2}, {arabNone, arabFin2, 5}, {arabNone, arabIsol, 6}},
	// state 2: prev was D/L in isol form, willing to join
	{{arabNone, arabNone, 0}, {arabNone, arabIsol, 2}, {arabInit, arabFina, 1}, {arabInit, arabFina, 3}, {arabInit, arabFina, 4}, {arabInit, arabFina, 6}},
	// state 3: prev was D in fina form, willing to join
	{{arabNone, arabNone, 0}, {arabNone, arabIsol, 2}, {arabMedi, arabFina, 1}, {arabMedi, arabFina, 3}, {arabMedi, arabFina, 4}, {arabMedi, arabFina, 6}},
	// state 4: prev was fina alaph, not willing to join
	{{arabNone, arabNone, 0}, {arabNone, arabIsol, 2}, {arabMed2, arabIsol, 1}, {arabMed2, arabIsol, 2}, {arabMed2, arabFin2, 5}, {arabMed2, arabIsol, 6}},
	// state 5: prev was fin2/fin3 alaph, not willing to join
	{{arabNone, arabNone, 0}, {arabNone, arabIsol, 2}, {arabIsol, arabIsol, 1}, {arabIsol, arabIsol, 2}, {arabIsol, arabFin2, 5}, {arabIsol, arabIsol, 6}},
	// state 6: prev was dalath/rish, not willing to join
	{{arabNone, arabNone, 0}, {arabNone, arabIsol, 2}, {arabNone, arabIsol, 1}, {arabNone, arabIsol, 2}, {arabNone, arabFin3, 5}, {arabNone, arabIsol, 6}},
}

// shaperArabic is the engine for Arabic, Syriac and other joining scripts.
type shaperArabic struct {
	complexShaperNil
}

var _ ShapingEngine = shaperArabic{}

// arabicPlanData is attached to the plan by InitPlan.
type arabicPlanData struct {
	maskArray  [arabNumFeatures]GlyphMask
	doFallback bool
}

func (shaperArabic) Name() string { return "arabic" }

func (shaperArabic) MarksBehavior() (ZeroWidthMarksMode, bool) {
	return ZeroWidthMarksByGDEFLate, true
}

func (shaperArabic) NormalizationPreference() NormalizationMode { return nmAuto }

func (sa shaperArabic) CollectFeatures(planner *shapePlanner) {
	mb := planner.mapBuilder

	// The stretching feature runs first; its results are recorded between
	// the pauses and materialized in postprocessing.
	mb.enableFeature(ot.T("stch"))
	mb.addGSUBPause(recordStch)

	mb.enableFeatureExt(ot.T("ccmp"), ffManualZWJ, 1)
	mb.enableFeatureExt(ot.T("locl"), ffManualZWJ, 1)
	mb.addGSUBPause(nil)

	for _, tag := range arabicFeatureTags {
		mb.addFeatureExt(tag, ffManualZWJ|ffHasFallback, 1)
		mb.addGSUBPause(nil)
	}

	mb.enableFeatureExt(ot.T("rlig"), ffManualZWJ|ffHasFallback, 1)
	mb.addGSUBPause(arabicFallbackShape)
	mb.enableFeatureExt(ot.T("calt"), ffManualZWJ, 1)
	mb.addGSUBPause(nil)
	mb.enableFeatureExt(ot.T("mset"), ffManualZWJ, 1)
}

func (sa shaperArabic) InitPlan(plan *Plan) {
	data := &arabicPlanData{}
	for action, tag := range arabicFeatureTags {
		data.maskArray[action] = plan.map_.getMask1(tag)
		if plan.map_.needsFallback(tag) {
			data.doFallback = true
		}
	}
	// fallback shaping only makes sense for Arabic proper
	data.doFallback = data.doFallback && plan.props.Script == tslang.Arabic
	plan.shaperData = data
}

func arabicData(plan *Plan) *arabicPlanData {
	data, _ := plan.shaperData.(*arabicPlanData)
	return data
}

// SetupMasks runs the joining state machine and ORs the per-action feature
// masks into the glyphs. The action is parked in complexAux for fallback
// shaping.
func (sa shaperArabic) SetupMasks(plan *Plan, buf *Buffer, face Face) {
	data := arabicData(plan)
	if data == nil {
		return
	}
	actions := arabicJoining(buf)
	for i, action := range actions {
		buf.Info[i].complexAux = action
		if action < arabNumFeatures {
			buf.Info[i].Mask |= data.maskArray[action]
		}
	}
}

// arabicJoining computes the joining action for every glyph, honoring the
// pre-context for the run-initial state.
func arabicJoining(buf *Buffer) []uint8 {
	actions := make([]uint8, len(buf.Info))
	state := uint8(0)
	prevIndex := -1

	// pre-context primes the state machine
	for i := len(buf.preContext) - 1; i >= 0; i-- {
		r := buf.preContext[i]
		jt := arabicJoiningType(r, uniGeneralCategory(r))
		if jt == joiningTypeT {
			continue
		}
		col := joiningColumn(jt)
		state = arabicStateTable[state][col].nextState
		break
	}

	for i := range buf.Info {
		actions[i] = arabNone
		jt := arabicJoiningType(buf.Info[i].Codepoint, buf.Info[i].genCat)
		if jt == joiningTypeT {
			continue
		}
		entry := &arabicStateTable[state][joiningColumn(jt)]
		if entry.prevAction != arabNone && prevIndex >= 0 {
			actions[prevIndex] = entry.prevAction
			buf.unsafeToBreak(prevIndex, i+1)
		}
		actions[i] = entry.currAction
		prevIndex = i
		state = entry.nextState
	}
	return actions
}

// joiningColumn maps a joining type to its state machine column.
// Join-causing characters behave like dual-joining ones.
func joiningColumn(jt uint8) uint8 {
	if jt == joiningTypeC {
		return joiningTypeD
	}
	return jt
}

// --- Mark reordering -------------------------------------------------------

// Arabic modifier combining marks, which must precede other marks of the
// same class. See Unicode TR53.
var arabicModifierCombiningMarks = map[rune]bool{
	0x0654: true, // HAMZA ABOVE
	0x0655: true, // HAMZA BELOW
	0x0658: true, // MARK NOON GHUNNA
	0x06DC: true, // SMALL HIGH SEEN
	0x06E3: true, // SMALL LOW SEEN
	0x06E7: true, // SMALL HIGH YEH
	0x06E8: true, // SMALL HIGH NOON
	0x08CA: true, // SMALL HIGH FARSI YEH
	0x08CB: true, // SMALL HIGH YEH BARREE WITH TWO DOTS BELOW
	0x08CD: true, // SMALL HIGH ZAH
	0x08CE: true, // LARGE ROUND DOT ABOVE
	0x08CF: true, // LARGE ROUND DOT BELOW
	0x08D3: true, // SMALL LOW WAW
	0x08F3: true, // SMALL HIGH WAW
}

// ReorderMarks moves modifier combining marks of class 220/230 to the front
// of their mark run and renumbers their class so they stay put.
func (sa shaperArabic) ReorderMarks(plan *Plan, buf *Buffer, start, end int) {
	info := buf.Info
	i := start
	for _, cc := range []uint8{220, 230} {
		for i < end && infoCC(&info[i]) < cc {
			i++
		}
		if i == end {
			break
		}
		if infoCC(&info[i]) > cc {
			continue
		}
		j := i
		for j < end && infoCC(&info[j]) == cc && arabicModifierCombiningMarks[info[j].Codepoint] {
			j++
		}
		if i == j {
			continue
		}
		buf.mergeClusters(start, j)
		// rotate the MCM block to the start of the sequence
		tmp := make([]GlyphInfo, j-i)
		copy(tmp, info[i:j])
		copy(info[start+(j-i):], info[start:i])
		copy(info[start:], tmp)

		// new classes 22/26 sort before all Arabic mark classes
		newCC := uint8(22)
		if cc == 230 {
			newCC = 26
		}
		for k := start; k < start+(j-i); k++ {
			info[k].ccc = newCC
		}
		start += j - i
		i = j
	}
}

// --- Fallback shaping ------------------------------------------------------

// arabicPresentationForm describes the presentation forms of one Arabic
// letter: isol, fina, init, medi (zero where not applicable).
type arabicPresentationForm struct {
	letter rune
	forms  [4]rune // indexed isol, fina, init, medi
}

func dualForms(letter, base rune) arabicPresentationForm {
	return arabicPresentationForm{letter, [4]rune{base, base + 1, base + 2, base + 3}}
}

func rightForms(letter, base rune) arabicPresentationForm {
	return arabicPresentationForm{letter, [4]rune{base, base + 1, 0, 0}}
}

// Presentation Forms-B for the basic Arabic letters.
var arabicShapingForms = []arabicPresentationForm{
	{0x0621, [4]rune{0xFE80, 0, 0, 0}}, // hamza
	rightForms(0x0622, 0xFE81),         // alef madda
	rightForms(0x0623, 0xFE83),         // alef hamza above
	rightForms(0x0624, 0xFE85),         // waw hamza
	rightForms(0x0625, 0xFE87),         // alef hamza below
	dualForms(0x0626, 0xFE89),          // yeh hamza
	rightForms(0x0627, 0xFE8D),         // alef
	dualForms(0x0628, 0xFE8F),          // beh
	rightForms(0x0629, 0xFE93),         // teh marbuta
	dualForms(0x062A, 0xFE95),          // teh
	dualForms(0x062B, 0xFE99),          // theh
	dualForms(0x062C, 0xFE9D),          // jeem
	dualForms(0x062D, 0xFEA1),          // hah
	dualForms(0x062E, 0xFEA5),          // khah
	rightForms(0x062F, 0xFEA9),         // dal
	rightForms(0x0630, 0xFEAB),         // thal
	rightForms(0x0631, 0xFEAD),         // reh
	rightForms(0x0632, 0xFEAF),         // zain
	dualForms(0x0633, 0xFEB1),          // seen
	dualForms(0x0634, 0xFEB5),          // sheen
	dualForms(0x0635, 0xFEB9),          // sad
	dualForms(0x0636, 0xFEBD),          // dad
	dualForms(0x0637, 0xFEC1),          // tah
	dualForms(0x0638, 0xFEC5),          // zah
	dualForms(0x0639, 0xFEC9),          // ain
	dualForms(0x063A, 0xFECD),          // ghain
	dualForms(0x0641, 0xFED1),          // feh
	dualForms(0x0642, 0xFED5),          // qaf
	dualForms(0x0643, 0xFED9),          // kaf
	dualForms(0x0644, 0xFEDD),          // lam
	dualForms(0x0645, 0xFEE1),          // meem
	dualForms(0x0646, 0xFEE5),          // noon
	dualForms(0x0647, 0xFEE9),          // heh
	rightForms(0x0648, 0xFEED),         // waw
	rightForms(0x0649, 0xFEEF),         // alef maksura
	dualForms(0x064A, 0xFEF1),          // yeh
}

// lam-alef ligatures: alef variant → (isolated, final) ligature forms
var arabicLamAlefLigatures = map[rune][2]rune{
	0x0622: {0xFEF5, 0xFEF6}, // lam + alef madda
	0x0623: {0xFEF7, 0xFEF8}, // lam + alef hamza above
	0x0625: {0xFEF9, 0xFEFA}, // lam + alef hamza below
	0x0627: {0xFEFB, 0xFEFC}, // lam + alef
}

// arabicPresentationFor returns the presentation form of a letter under a
// joining action.
func arabicPresentationFor(r rune, action uint8) (rune, bool) {
	var formIndex int
	switch action {
	case arabIsol:
		formIndex = 0
	case arabFina, arabFin2, arabFin3:
		formIndex = 1
	case arabInit:
		formIndex = 2
	case arabMedi, arabMed2:
		formIndex = 3
	default:
		return 0, false
	}
	for _, pf := range arabicShapingForms {
		if pf.letter == r {
			if form := pf.forms[formIndex]; form != 0 {
				return form, true
			}
			return 0, false
		}
	}
	return 0, false
}

// arabicFallbackShape substitutes presentation forms and lam-alef
// ligatures in place of the font's missing positional features. Runs as a
// GSUB pause after rlig.
func arabicFallbackShape(plan *Plan, face Face, buf *Buffer) {
	data := arabicData(plan)
	if data == nil || !data.doFallback {
		return
	}
	// positional forms
	info := buf.Info
	for i := range info {
		action := info[i].complexAux
		if form, ok := arabicPresentationFor(info[i].Codepoint, action); ok && hasGlyph(face, form) {
			if g, ok := face.NominalGlyph(form); ok {
				info[i].Codepoint = form
				info[i].Glyph = g
				info[i].glyphProps |= glyphPropSubstituted
			}
		}
	}
	// lam-alef ligatures: lam followed by alef (visual order is logical
	// order here; the buffer is in native RTL logical order)
	buf.clearOutput()
	buf.idx = 0
	for buf.idx < len(buf.Info) && !buf.failed {
		cur := &buf.Info[buf.idx]
		if buf.idx+1 < len(buf.Info) && isLamLike(cur.Codepoint) {
			next := &buf.Info[buf.idx+1]
			if ligs, ok := arabicLamAlefLigatures[baseAlefFor(next.Codepoint)]; ok {
				// the ligature takes the isolated form when the lam is not
				// joined to the right, the final form otherwise
				form := ligs[1]
				if cur.complexAux == arabIsol || cur.complexAux == arabInit {
					form = ligs[0]
				}
				if g, ok := face.NominalGlyph(form); ok {
					buf.mergeClusters(buf.idx, buf.idx+2)
					info := buf.Info[buf.idx]
					info.Codepoint = form
					info.Glyph = g
					info.glyphProps |= glyphPropSubstituted | glyphPropLigated
					buf.outputInfo(info)
					buf.unsafeToBreakFromOutbuffer(buf.outLen-1, buf.idx+2)
					buf.idx += 2
					continue
				}
			}
		}
		buf.nextGlyph()
	}
	buf.swapBuffers()
}

// isLamLike matches lam and its presentation forms produced above.
func isLamLike(r rune) bool {
	return r == 0x0644 || (r >= 0xFEDD && r <= 0xFEE0)
}

// baseAlefFor maps alef presentation forms back to their base letter.
func baseAlefFor(r rune) rune {
	switch {
	case r == 0x0622 || r == 0xFE81 || r == 0xFE82:
		return 0x0622
	case r == 0x0623 || r == 0xFE83 || r == 0xFE84:
		return 0x0623
	case r == 0x0625 || r == 0xFE87 || r == 0xFE88:
		return 0x0625
	case r == 0x0627 || r == 0xFE8D || r == 0xFE8E:
		return 0x0627
	}
	return r
}

// --- Stretching (tatweel) --------------------------------------------------

// recordStch notes glyphs multiplied by the stch feature; postprocessing
// stretches them.
func recordStch(plan *Plan, face Face, buf *Buffer) {
	if plan.map_.getMask1(ot.T("stch")) == 0 {
		return
	}
	for i := range buf.Info {
		info := &buf.Info[i]
		if !info.isMultiplied() {
			continue
		}
		if info.ligComp()%2 != 0 {
			info.complexAux = arabStchRepeating
		} else {
			info.complexAux = arabStchFixed
		}
		buf.scratchFlags |= bsfArabicHasStch
	}
}

// PostprocessGlyphs applies the recorded stretching.
func (sa shaperArabic) PostprocessGlyphs(plan *Plan, buf *Buffer, face Face) {
	applyStch(buf, face)
}

// applyStch distributes repeating tatweel-like segments over the space the
// surrounding context leaves, two passes: measure, then cut.
func applyStch(buf *Buffer, face Face) {
	if buf.scratchFlags&bsfArabicHasStch == 0 {
		return
	}
	rtl := buf.Props.Direction == RightToLeft
	if !rtl {
		buf.Reverse()
	}

	const (
		stepMeasure = iota
		stepCut
	)
	extraGlyphsNeeded := 0
	originalCount := len(buf.Info)

	for step := stepMeasure; step <= stepCut; step++ {
		count := originalCount
		newLen := count + extraGlyphsNeeded
		j := newLen
		for i := count; i > 0; i-- {
			action := buf.Info[i-1].complexAux
			if action != arabStchFixed && action != arabStchRepeating {
				if step == stepCut {
					j--
					buf.Info[j] = buf.Info[i-1]
					buf.Pos[j] = buf.Pos[i-1]
				}
				continue
			}

			var wTotal, wFixed, wRepeating int32
			var nRepeating int
			end := i
			for i > 0 {
				action := buf.Info[i-1].complexAux
				if action != arabStchFixed && action != arabStchRepeating {
					break
				}
				i--
				width := face.AdvanceH(buf.Info[i].Glyph)
				if action == arabStchFixed {
					wFixed += width
				} else {
					wRepeating += width
					nRepeating++
				}
			}
			start := i
			context := i
			for context > 0 {
				prev := &buf.Info[context-1]
				if prev.complexAux == arabStchFixed || prev.complexAux == arabStchRepeating {
					break
				}
				if !prev.isDefaultIgnorable() && !arabicIsWordCategory(prev.genCat) {
					break
				}
				context--
				wTotal += buf.Pos[context].XAdvance
			}
			i++

			nCopies := 0
			wRemaining := wTotal - wFixed
			if wRemaining > wRepeating && wRepeating > 0 {
				nCopies = int(wRemaining/wRepeating) - 1
			}
			var extraRepeatOverlap int32
			shortfall := wRemaining - wRepeating*int32(nCopies+1)
			if shortfall > 0 && nRepeating > 0 {
				nCopies++
				excess := int32(nCopies+1)*wRepeating - wRemaining
				if excess > 0 {
					extraRepeatOverlap = excess / int32(nCopies*nRepeating)
					wRemaining = 0
				}
			}

			if step == stepMeasure {
				extraGlyphsNeeded += nCopies * nRepeating
				continue
			}
			xOffset := wRemaining / 2
			for k := end; k > start; k-- {
				width := face.AdvanceH(buf.Info[k-1].Glyph)
				repeat := 1
				if buf.Info[k-1].complexAux == arabStchRepeating {
					repeat += nCopies
				}
				buf.Pos[k-1].XAdvance = 0
				for n := 0; n < repeat; n++ {
					if rtl {
						xOffset -= width
						if n > 0 {
							xOffset += extraRepeatOverlap
						}
					}
					j--
					buf.Info[j] = buf.Info[k-1]
					buf.Pos[j] = buf.Pos[k-1]
					buf.Pos[j].XOffset = xOffset
					if !rtl {
						xOffset += width
						if n > 0 {
							xOffset -= extraRepeatOverlap
						}
					}
				}
			}
		}
		if step == stepMeasure {
			if extraGlyphsNeeded == 0 {
				break
			}
			if !buf.ensure(originalCount + extraGlyphsNeeded) {
				if !rtl {
					buf.Reverse()
				}
				return
			}
			buf.Info = append(buf.Info, make([]GlyphInfo, extraGlyphsNeeded)...)
			buf.Pos = append(buf.Pos, make([]GlyphPosition, extraGlyphsNeeded)...)
		} else {
			buf.Info = buf.Info[:newLen]
			buf.Pos = buf.Pos[:newLen]
		}
	}

	if !rtl {
		buf.Reverse()
	}
}

// arabicIsWordCategory matches the general categories the stretching
// context may span.
func arabicIsWordCategory(gc generalCategory) bool {
	switch gc {
	case unassigned, privateUse, modifierLetter, otherLetter,
		spacingMark, enclosingMark, nonSpacingMark,
		decimalNumber, letterNumber, otherNumber,
		currencySymbol, modifierSymbol, mathSymbol, otherSymbol:
		return true
	}
	return false
}

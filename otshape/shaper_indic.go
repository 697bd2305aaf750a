package otshape

import (
	"github.com/npillmayer/textshape/ot"
)

// The Indic shaping engine: Devanagari-family syllable analysis, base
// detection, reordering of pre-base matras and reph, and per-syllable
// feature masks.

// Indic character categories, stored in complexCategory.
const (
	icX uint8 = iota // other
	icC              // consonant
	icV              // independent vowel
	icN              // nukta
	icH              // halant/virama
	icZWNJ
	icZWJ
	icM  // matra (dependent vowel)
	icSM // syllable modifier (anusvara, visarga)
	icA  // vedic sign
	icPlaceholder
	icDottedCircle
	icRa // Ra, candidate for reph formation
	icCS // consonant with stacker
	icSymbol
	icRepha // script-encoded repha
)

// Indic positions, stored in complexAux.
const (
	posStart uint8 = iota
	posRaToBecomeReph
	posPreM
	posPreC
	posBaseC
	posAfterMain
	posAboveC
	posBeforeSub
	posBelowC
	posAfterSub
	posBeforePost
	posPostC
	posAfterPost
	posSMVD
	posEnd
)

// Indic syllable types.
const (
	indicConsonantSyllable uint8 = iota
	indicVowelSyllable
	indicStandaloneCluster
	indicSymbolCluster
	indicBrokenCluster
	indicNonIndicCluster
)

// isIndicBlock returns true for the nine main Indic blocks plus Sinhala.
func isIndicBlock(r rune) bool {
	return (r >= 0x0900 && r <= 0x0DFF)
}

// The main Indic blocks share one layout; classification works on the
// offset within the block, with per-script exceptions handled afterwards.
func indicCategoryFor(r rune) uint8 {
	switch r {
	case 0x200C:
		return icZWNJ
	case 0x200D:
		return icZWJ
	case 0x25CC:
		return icDottedCircle
	case 0x0A51, 0x0A75, 0x0B44, 0x0B62, 0x0B63:
		return icM
	case 0x0D4E: // Malayalam dot reph
		return icRepha
	}
	if r == 0x00A0 || (r >= 0x2010 && r <= 0x2014) {
		return icPlaceholder
	}
	if !isIndicBlock(r) {
		return icX
	}
	offset := (r - 0x0900) & 0x7F
	switch {
	case offset <= 0x03: // various signs
		if offset == 0x00 {
			return icSM
		}
		return icSM
	case offset >= 0x04 && offset <= 0x14: // independent vowels
		return icV
	case offset >= 0x15 && offset <= 0x39: // consonants
		if isIndicRa(r) {
			return icRa
		}
		return icC
	case offset == 0x3C:
		return icN
	case offset == 0x3D: // avagraha
		return icSymbol
	case offset >= 0x3E && offset <= 0x4C:
		return icM
	case offset == 0x4D:
		return icH
	case offset >= 0x51 && offset <= 0x57: // vedic and stress signs
		return icA
	case offset >= 0x58 && offset <= 0x5F:
		if isIndicRa(r) {
			return icRa
		}
		return icC
	case offset >= 0x60 && offset <= 0x61: // vocalic R/L
		return icV
	case offset >= 0x62 && offset <= 0x63:
		return icM
	case offset >= 0x66 && offset <= 0x6F: // digits
		return icPlaceholder
	case offset >= 0x70:
		return icX
	}
	return icX
}

// isIndicRa identifies the Ra consonant of each script, which may form a
// reph.
func isIndicRa(r rune) bool {
	switch r {
	case 0x0930, // Devanagari
		0x09B0, 0x09F0, // Bengali
		0x0A30, // Gurmukhi
		0x0AB0, // Gujarati
		0x0B30, // Oriya
		0x0BB0, // Tamil
		0x0C30, // Telugu
		0x0CB0, // Kannada
		0x0D30, // Malayalam
		0x0DBB: // Sinhala
		return true
	}
	return false
}

// Pre-base matras across the blocks; everything with a "left" visual
// position.
var indicPreBaseMatras = map[rune]bool{
	0x093F: true, 0x094E: true, // Devanagari i, prishthamatra e
	0x09BF: true, 0x09C7: true, 0x09C8: true, // Bengali
	0x0A3F: true, // Gurmukhi
	0x0ABF: true, // Gujarati
	0x0B47: true, // Oriya
	0x0BC6: true, 0x0BC7: true, 0x0BC8: true, // Tamil
	0x0D46: true, 0x0D47: true, 0x0D48: true, // Malayalam
	0x0DD9: true, 0x0DDA: true, 0x0DDB: true, // Sinhala
}

// Below-base matras.
var indicBelowBaseMatras = map[rune]bool{
	0x0941: true, 0x0942: true, 0x0943: true, 0x0944: true,
	0x09C1: true, 0x09C2: true, 0x09C3: true, 0x09C4: true,
	0x0A41: true, 0x0A42: true,
	0x0AC1: true, 0x0AC2: true, 0x0AC3: true, 0x0AC4: true,
	0x0B41: true, 0x0B42: true, 0x0B43: true, 0x0B44: true,
	0x0C56: true,
	0x0CC2: true,
	0x0D43: true, 0x0D44: true,
	0x0DD4: true, 0x0DD6: true,
}

// Above-base matras.
var indicAboveBaseMatras = map[rune]bool{
	0x0945: true, 0x0946: true, 0x0947: true, 0x0948: true, 0x0955: true,
	0x0A47: true, 0x0A48: true, 0x0A4B: true, 0x0A4C: true,
	0x0AC5: true, 0x0AC7: true, 0x0AC8: true,
	0x0B3F: true, 0x0B56: true,
	0x0BC0: true,
	0x0C3E: true, 0x0C3F: true, 0x0C40: true, 0x0C46: true, 0x0C47: true,
	0x0C4A: true, 0x0C4B: true, 0x0C4C: true,
	0x0CBF: true, 0x0CC6: true,
	0x0DD2: true, 0x0DD3: true,
}

// indicMatraPosition assigns a visual position to a matra.
func indicMatraPosition(r rune) uint8 {
	switch {
	case indicPreBaseMatras[r]:
		return posPreM
	case indicBelowBaseMatras[r]:
		return posBelowC
	case indicAboveBaseMatras[r]:
		return posAboveC
	}
	return posPostC
}

func isIndicConsonant(cat uint8) bool {
	switch cat {
	case icC, icCS, icRa, icV, icPlaceholder, icDottedCircle:
		return true
	}
	return false
}

func isIndicJoiner(cat uint8) bool { return cat == icZWJ || cat == icZWNJ }

func isIndicHalantOrNukta(cat uint8) bool { return cat == icH || cat == icN }

// --- Engine ----------------------------------------------------------------

type shaperIndic struct {
	complexShaperNil
}

var _ ShapingEngine = shaperIndic{}

type indicPlanData struct {
	rphfMask GlyphMask
	prefMask GlyphMask
	blwfMask GlyphMask
	halfMask GlyphMask
	pstfMask GlyphMask
	initMask GlyphMask
	maskBase GlyphMask // nukt/akhn/rkrf/vatu/cjct, applied globally
}

func (shaperIndic) Name() string { return "indic" }

func (shaperIndic) MarksBehavior() (ZeroWidthMarksMode, bool) {
	return ZeroWidthMarksNone, false
}

// Indic prefers fully decomposed input so that nukta handling sees its
// parts.
func (shaperIndic) NormalizationPreference() NormalizationMode { return nmDecomposed }

// Decompose blocks the script-specific composition exclusions.
func (shaperIndic) Decompose(c *normalizeContext, ab rune) (rune, rune, bool) {
	switch ab {
	case 0x0931, 0x09DC, 0x09DD, 0x0B94:
		return 0, 0, false
	}
	return c.decomposeUnicode(ab)
}

// Compose avoids recomposing marks onto bases.
func (shaperIndic) Compose(c *normalizeContext, a, b rune) (rune, bool) {
	if uniGeneralCategory(a).isMark() {
		return 0, false
	}
	return c.composeUnicode(a, b)
}

var indicBasicFeatures = []ot.Tag{
	ot.T("nukt"),
	ot.T("akhn"),
	ot.T("rphf"),
	ot.T("rkrf"),
	ot.T("pref"),
	ot.T("blwf"),
	ot.T("abvf"),
	ot.T("half"),
	ot.T("pstf"),
	ot.T("vatu"),
	ot.T("cjct"),
}

var indicPresentationFeatures = []ot.Tag{
	ot.T("init"),
	ot.T("pres"),
	ot.T("abvs"),
	ot.T("blws"),
	ot.T("psts"),
	ot.T("haln"),
}

func (shaperIndic) CollectFeatures(planner *shapePlanner) {
	mb := planner.mapBuilder
	mb.enableFeatureExt(ot.T("locl"), ffPerSyllable, 1)
	mb.enableFeatureExt(ot.T("ccmp"), ffPerSyllable, 1)

	mb.addGSUBPause(indicSetupSyllables)
	mb.addGSUBPause(indicInitialReordering)
	for _, tag := range indicBasicFeatures {
		switch tag {
		case ot.T("rphf"), ot.T("pref"), ot.T("blwf"), ot.T("half"), ot.T("pstf"):
			mb.addFeatureExt(tag, ffManualJoiners|ffPerSyllable, 1)
		default:
			mb.enableFeatureExt(tag, ffManualJoiners|ffPerSyllable, 1)
		}
	}
	mb.addGSUBPause(indicFinalReordering)
	for _, tag := range indicPresentationFeatures {
		if tag == ot.T("init") {
			mb.addFeatureExt(tag, ffManualJoiners|ffPerSyllable, 1)
			continue
		}
		mb.enableFeatureExt(tag, ffManualJoiners|ffPerSyllable, 1)
	}
}

func (shaperIndic) InitPlan(plan *Plan) {
	data := &indicPlanData{
		rphfMask: plan.map_.getMask1(ot.T("rphf")),
		prefMask: plan.map_.getMask1(ot.T("pref")),
		blwfMask: plan.map_.getMask1(ot.T("blwf")),
		halfMask: plan.map_.getMask1(ot.T("half")),
		pstfMask: plan.map_.getMask1(ot.T("pstf")),
		initMask: plan.map_.getMask1(ot.T("init")),
	}
	plan.shaperData = data
}

func indicData(plan *Plan) *indicPlanData {
	data, _ := plan.shaperData.(*indicPlanData)
	return data
}

// SetupMasks classifies every glyph; syllable analysis and mask assignment
// run in the GSUB pauses.
func (shaperIndic) SetupMasks(plan *Plan, buf *Buffer, face Face) {
	for i := range buf.Info {
		info := &buf.Info[i]
		info.complexCategory = indicCategoryFor(info.Codepoint)
		switch info.complexCategory {
		case icM:
			info.complexAux = indicMatraPosition(info.Codepoint)
		case icSM, icA:
			info.complexAux = posSMVD
		default:
			info.complexAux = posBaseC
		}
	}
}

// --- Syllable scanning -----------------------------------------------------

// indicSetupSyllables tags syllables; runs as the first GSUB pause.
func indicSetupSyllables(plan *Plan, face Face, buf *Buffer) {
	var serial uint8 = 1
	i := 0
	n := len(buf.Info)
	cat := func(j int) uint8 {
		if j >= n {
			return icX
		}
		return buf.Info[j].complexCategory
	}
	for i < n {
		start := i
		syllableType, end := scanIndicSyllable(cat, i, n)
		if end == start { // non-Indic
			end = start + 1
			syllableType = indicNonIndicCluster
		}
		if syllableType == indicBrokenCluster {
			buf.scratchFlags |= bsfHasBrokenSyllable
		}
		setSyllables(buf, start, end, &serial, syllableType)
		i = end
	}
	syllabicInsertDottedCircles(face, buf, indicBrokenCluster, icDottedCircle,
		int(icRepha), int(posEnd))
}

// scanIndicSyllable matches one syllable starting at i; returns its type
// and end (end == i means no Indic syllable starts here).
func scanIndicSyllable(cat func(int) uint8, i, n int) (uint8, int) {
	start := i

	// cn: consonant followed by optional nuktas (no joiner in between)
	consonantGroup := func(j int) int {
		if j < n && isIndicConsonant(cat(j)) && cat(j) != icPlaceholder && cat(j) != icDottedCircle && cat(j) != icV {
			j++
			for j < n && cat(j) == icN {
				j++
			}
			return j
		}
		return -1
	}
	// halant group: optional nukta, halant, optional joiner
	halantGroup := func(j int) int {
		if j < n && cat(j) == icN {
			j++
		}
		if j < n && cat(j) == icH {
			j++
			if j < n && isIndicJoiner(cat(j)) {
				j++
			}
			return j
		}
		return -1
	}
	matras := func(j int) int {
		for j < n && (cat(j) == icM || cat(j) == icN ||
			(isIndicJoiner(cat(j)) && j+1 < n && cat(j+1) == icM)) {
			j++
		}
		if j < n && cat(j) == icH {
			j++
		}
		return j
	}
	tail := func(j int) int {
		for j < n && (cat(j) == icSM || cat(j) == icA) {
			j++
		}
		return j
	}

	// optional leading repha or consonant-with-stacker
	if cat(i) == icRepha || cat(i) == icCS {
		i++
	}

	if j := consonantGroup(i); j >= 0 {
		// consonant syllable: (cn halant)* cn (halant | matras) tail
		i = j
		for {
			save := i
			if h := halantGroup(i); h >= 0 {
				if k := consonantGroup(h); k >= 0 {
					i = k
					continue
				}
				i = h
				break
			}
			i = save
			break
		}
		i = matras(i)
		i = tail(i)
		return indicConsonantSyllable, i
	}

	if cat(i) == icV {
		// vowel syllable
		i++
		for i < n && cat(i) == icN {
			i++
		}
		for {
			if h := halantGroup(i); h >= 0 {
				if k := consonantGroup(h); k >= 0 {
					i = k
					continue
				}
				i = h
			}
			break
		}
		i = matras(i)
		i = tail(i)
		return indicVowelSyllable, i
	}

	if cat(i) == icPlaceholder || cat(i) == icDottedCircle {
		i++
		i = matras(i)
		i = tail(i)
		return indicStandaloneCluster, i
	}

	if cat(i) == icSymbol {
		i++
		i = tail(i)
		return indicSymbolCluster, i
	}

	// broken cluster: matras/halants/marks without a base
	j := i
	for {
		if h := halantGroup(j); h >= 0 {
			if k := consonantGroup(h); k >= 0 {
				j = k
				continue
			}
			j = h
		}
		break
	}
	j = matras(j)
	j = tail(j)
	if j > start {
		return indicBrokenCluster, j
	}
	return indicNonIndicCluster, start
}

// --- Initial reordering ----------------------------------------------------

// indicInitialReordering finds the base consonant of each syllable,
// assigns positions, reorders to visual pre-base order and sets the
// per-glyph basic-feature masks.
func indicInitialReordering(plan *Plan, face Face, buf *Buffer) {
	data := indicData(plan)
	if data == nil {
		return
	}
	forEachSyllable(buf, func(start, end int) {
		syllableType := buf.Info[start].syllable & 0x0F
		switch syllableType {
		case indicConsonantSyllable, indicBrokenCluster, indicStandaloneCluster:
			indicReorderSyllable(data, buf, start, end)
		}
	})
}

func indicReorderSyllable(data *indicPlanData, buf *Buffer, start, end int) {
	info := buf.Info

	// 1. Find the base consonant: the last consonant of the syllable after
	// a leading reph. Consonants that could take below-base or post-base
	// forms are not skipped, so the last consonant is always the base.
	base := end
	hasReph := false

	i := start
	// a leading Ra+Halant (+consonant) forms a reph
	if data.rphfMask != 0 && i+1 < end &&
		info[i].complexCategory == icRa && info[i+1].complexCategory == icH &&
		i+2 < end && isIndicConsonant(info[i+2].complexCategory) {
		hasReph = true
		i += 2
	}
	for j := end - 1; j >= i; j-- {
		if isIndicConsonant(info[j].complexCategory) {
			base = j
			break
		}
	}
	if base == end {
		// no consonant: broken cluster, everything positions after a
		// virtual base at start
		base = start
	}

	// 2. Assign positions.
	for j := start; j < end; j++ {
		cat := info[j].complexCategory
		switch {
		case j < base && isIndicConsonant(cat):
			info[j].complexAux = posPreC
		case j == base:
			info[j].complexAux = posBaseC
		case cat == icM:
			info[j].complexAux = indicMatraPosition(info[j].Codepoint)
		case cat == icH:
			// halant positions with the consonant it follows
			if j > start {
				info[j].complexAux = info[j-1].complexAux
			}
		case cat == icSM || cat == icA:
			info[j].complexAux = posSMVD
		case j > base:
			info[j].complexAux = posBelowC
		}
	}
	if hasReph {
		info[start].complexAux = posRaToBecomeReph
		if start+1 < end {
			info[start+1].complexAux = posRaToBecomeReph
		}
	}

	// 3. Sort by position, stable, and keep clusters merged.
	buf.mergeClusters(start, end)
	buf.sortRange(start, end, func(a, b *GlyphInfo) bool {
		return a.complexAux < b.complexAux
	})

	// 4. Feature masks.
	for j := start; j < end; j++ {
		switch info[j].complexAux {
		case posRaToBecomeReph:
			info[j].Mask |= data.rphfMask
		case posPreC, posPreM:
			if isIndicConsonant(info[j].complexCategory) || info[j].complexCategory == icH {
				info[j].Mask |= data.halfMask
			}
		case posBelowC:
			if j != findBase(info, start, end) {
				info[j].Mask |= data.blwfMask
			}
		case posPostC:
			if isIndicConsonant(info[j].complexCategory) {
				info[j].Mask |= data.pstfMask
			}
		}
	}
}

func findBase(info []GlyphInfo, start, end int) int {
	for j := start; j < end; j++ {
		if info[j].complexAux == posBaseC {
			return j
		}
	}
	return start
}

// --- Final reordering ------------------------------------------------------

// indicFinalReordering runs after the basic GSUB features: the reph (if it
// did not ligate) moves after the base, and pre-base matras move to the
// front of the syllable.
func indicFinalReordering(plan *Plan, face Face, buf *Buffer) {
	data := indicData(plan)
	if data == nil || len(buf.Info) == 0 {
		return
	}
	forEachSyllable(buf, func(start, end int) {
		indicFinalReorderSyllable(data, buf, start, end)
	})
	// 'init' applies to syllable-initial pre-base matras
	if data.initMask != 0 {
		info := buf.Info
		for i := range info {
			if info[i].complexAux == posPreM &&
				(i == 0 || !uniGeneralCategory(info[i-1].Codepoint).isLetter()) {
				info[i].Mask |= data.initMask
			}
		}
	}
}

func indicFinalReorderSyllable(data *indicPlanData, buf *Buffer, start, end int) {
	info := buf.Info

	// move pre-base matras to the start of the syllable (before the base
	// and any half forms)
	base := findBase(info, start, end)
	for i := base + 1; i < end; i++ {
		if info[i].complexAux == posPreM {
			buf.mergeClusters(start, i+1)
			pre := info[i]
			copy(info[start+1:i+1], info[start:i])
			info[start] = pre
			base++
		}
	}

	// a reph that did not ligate into the base moves right after the base
	if start < end && info[start].complexAux == posRaToBecomeReph && !info[start].isLigated() {
		newPos := base
		if newPos > start && newPos < end {
			buf.mergeClusters(start, newPos+1)
			reph := info[start]
			copy(info[start:newPos], info[start+1:newPos+1])
			info[newPos] = reph
		}
	}
}

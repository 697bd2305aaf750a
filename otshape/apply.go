package otshape

import (
	"github.com/npillmayer/textshape/ot"
)

// The GSUB/GPOS lookup engine: a cursor-driven apply context with a
// skipping iterator honoring lookup flags, GDEF classes, joiner controls
// and per-glyph feature masks; subtable matching for all substitution and
// positioning lookup types; and nested-lookup recursion for contextual
// rules.

// maxNestingLevel caps contextual lookup recursion.
const maxNestingLevel = 64

// maxContextLength caps the size of a context match.
const maxContextLength = 64

type otApplyContext struct {
	table int // tableGSUB or tableGPOS
	face  Face
	plan  *Plan
	buf   *Buffer

	lookupMask       GlyphMask
	lookupFlag       uint16
	markFilteringSet int
	autoZWNJ         bool
	autoZWJ          bool
	random           bool
	perSyllable      bool

	nestingLevel int
	newSyllables int // -1 unless a syllabic pause asked for tagging
}

func newOtApplyContext(table int, plan *Plan, face Face, buf *Buffer) *otApplyContext {
	return &otApplyContext{
		table:            table,
		face:             face,
		plan:             plan,
		buf:              buf,
		lookupMask:       ^glyphFlagsDefined,
		markFilteringSet: -1,
		autoZWNJ:         true,
		autoZWJ:          true,
		nestingLevel:     maxNestingLevel,
		newSyllables:     -1,
	}
}

func (c *otApplyContext) setLookupProps(flag uint16, markFilteringSet uint16) {
	c.lookupFlag = flag
	c.markFilteringSet = -1
	if flag&ot.LookupFlagUseMarkFilteringSet != 0 {
		if int(markFilteringSet) < len(c.plan.gdefMarkGlyphSets()) {
			c.markFilteringSet = int(markFilteringSet)
		} else {
			c.lookupFlag &^= ot.LookupFlagUseMarkFilteringSet
		}
	}
}

func (p *Plan) gdefMarkGlyphSets() []ot.Coverage {
	if p.gdef == nil {
		return nil
	}
	return p.gdef.MarkGlyphSets
}

// checkGlyphProperty applies the lookup-flag class filters to a glyph.
func (c *otApplyContext) checkGlyphProperty(info *GlyphInfo) bool {
	props := info.glyphProps
	ignore := c.lookupFlag & (ot.LookupFlagIgnoreBaseGlyphs |
		ot.LookupFlagIgnoreLigatures | ot.LookupFlagIgnoreMarks)
	if uint16(props)&ignore != 0 {
		return false
	}
	if props&glyphPropMark != 0 {
		if c.lookupFlag&ot.LookupFlagUseMarkFilteringSet != 0 {
			return c.plan.gdef.MarkSetCovers(c.markFilteringSet, info.Glyph)
		}
		if attachType := c.lookupFlag & ot.LookupFlagMarkAttachmentType; attachType != 0 {
			return uint16(info.glyphProps)>>8 == attachType>>8
		}
	}
	return true
}

type skipResult uint8

const (
	skipNo skipResult = iota
	skipYes
	skipMaybe
)

// maySkip decides whether the iterator may pass over a glyph.
func (c *otApplyContext) maySkip(info *GlyphInfo, contextMatch bool) skipResult {
	if !c.checkGlyphProperty(info) {
		return skipYes
	}
	if info.isDefaultIgnorable() && !info.isLigated() {
		ignoreZWNJ := c.table == tableGPOS || (contextMatch && c.autoZWNJ)
		ignoreZWJ := contextMatch || c.autoZWJ
		ignoreHidden := c.table == tableGPOS
		if (ignoreZWNJ || !info.isZWNJ()) &&
			(ignoreZWJ || !info.isZWJ()) &&
			(ignoreHidden || !info.isHiddenIgnorable()) {
			return skipMaybe
		}
	}
	return skipNo
}

// mayMatch tests mask (and syllable) constraints for a glyph at a match
// position.
func (c *otApplyContext) mayMatch(info *GlyphInfo, contextMatch bool, syllable uint8) bool {
	if !contextMatch && info.Mask&c.lookupMask == 0 {
		return false
	}
	if c.perSyllable && syllable != 0 && info.syllable != syllable {
		return false
	}
	return true
}

// matchFunc tests a glyph id against a match value (glyph id, class value
// or coverage index, depending on the rule format).
type matchFunc func(g ot.GlyphIndex, value uint16) bool

func matchGlyphFunc(g ot.GlyphIndex, value uint16) bool { return g == ot.GlyphIndex(value) }

func matchClassFunc(cd ot.ClassDef) matchFunc {
	return func(g ot.GlyphIndex, value uint16) bool { return cd.Class(g) == value }
}

func matchCoverageFunc(coverages []ot.Coverage) matchFunc {
	return func(g ot.GlyphIndex, value uint16) bool {
		if int(value) >= len(coverages) {
			return false
		}
		_, ok := coverages[value].Index(g)
		return ok
	}
}

// --- Skipping iterator -----------------------------------------------------

// skippingIterator walks the buffer honoring the skip rules. Forward
// iteration runs on the in side from the cursor; backward iteration runs on
// the backtrack side (the out side during a substitution pass).
type skippingIterator struct {
	c            *otApplyContext
	contextMatch bool
	matcher      matchFunc
	values       []uint16
	syllable     uint8

	idx int // current position (in-side index forward, backtrack index backward)
}

func (c *otApplyContext) iterInput() *skippingIterator {
	syllable := uint8(0)
	if c.buf.idx < len(c.buf.Info) {
		syllable = c.buf.Info[c.buf.idx].syllable
	}
	return &skippingIterator{c: c, contextMatch: false, syllable: syllable, idx: c.buf.idx}
}

func (c *otApplyContext) iterContext() *skippingIterator {
	return &skippingIterator{c: c, contextMatch: true, idx: c.buf.idx}
}

// reset positions the iterator at index.
func (it *skippingIterator) reset(index int) { it.idx = index }

// matchAt classifies the glyph at a buffer position against the current
// match value.
func (it *skippingIterator) matchAt(info *GlyphInfo, value uint16) (match bool, skip skipResult) {
	skip = it.c.maySkip(info, it.contextMatch)
	if skip == skipYes {
		return false, skip
	}
	if !it.c.mayMatch(info, it.contextMatch, it.syllable) {
		return false, skipYes
	}
	if it.matcher != nil && !it.matcher(info.Glyph, value) {
		if skip == skipMaybe {
			return false, skipYes // skippable non-match
		}
		return false, skipNo
	}
	if skip == skipMaybe {
		// matches, so do not skip after all
		skip = skipNo
	}
	return true, skip
}

// next advances to the next matching glyph on the in side. Returns the
// index or -1. unsafeFrom, when non-nil, receives the left boundary of any
// skipped-over region for unsafe-to-break bookkeeping.
func (it *skippingIterator) next(value uint16, unsafeFrom *int) int {
	buf := it.c.buf
	for i := it.idx + 1; i < len(buf.Info); i++ {
		info := &buf.Info[i]
		match, skip := it.matchAt(info, value)
		if match {
			it.idx = i
			return i
		}
		if skip == skipNo {
			if unsafeFrom != nil {
				*unsafeFrom = it.idx + 1
			}
			return -1
		}
	}
	if unsafeFrom != nil {
		*unsafeFrom = it.idx + 1
	}
	return -1
}

// prev steps to the previous matching glyph on the backtrack side.
func (it *skippingIterator) prev(value uint16, unsafeTo *int) int {
	buf := it.c.buf
	for i := it.idx - 1; i >= 0; i-- {
		info := buf.backtrackInfo(i)
		if info == nil {
			break
		}
		match, skip := it.matchAt(info, value)
		if match {
			it.idx = i
			return i
		}
		if skip == skipNo {
			if unsafeTo != nil {
				*unsafeTo = it.idx
			}
			return -1
		}
	}
	if unsafeTo != nil {
		*unsafeTo = it.idx
	}
	return -1
}

// --- Input/backtrack/lookahead matching ------------------------------------

// matchedInput is the result of matchInput.
type matchedInput struct {
	len        int // glyphs matched on the in side, including the first
	positions  [maxContextLength]int
	end        int // in-side index just past the last matched glyph
	totalComps int
}

// matchInput matches inputCount values (excluding the first glyph, which
// sits at the cursor and is already known to match) against the buffer.
func (c *otApplyContext) matchInput(inputCount int, matcher matchFunc, values []uint16) (matchedInput, bool) {
	var m matchedInput
	if inputCount+1 > maxContextLength {
		return m, false
	}
	buf := c.buf
	it := c.iterInput()
	it.matcher = matcher
	it.reset(buf.idx)

	m.positions[0] = buf.idx
	m.len = 1

	// Ligature tracking: all matched glyphs must belong to the same
	// ligature component context for ligatures to be well-formed.
	first := &buf.Info[buf.idx]
	ligID := first.ligID()
	ligComp := first.ligComp()
	totalComps := first.ligNumComps()

	for i := 0; i < inputCount; i++ {
		inx := it.next(values[i], nil)
		if inx < 0 {
			return m, false
		}
		info := &buf.Info[inx]
		if ligID != 0 || info.ligID() != 0 {
			if info.ligID() == ligID {
				// same ligature context: components must agree unless one
				// side is the ligature itself
				if ligComp != 0 && info.ligComp() != 0 && ligComp != info.ligComp() {
					return m, false
				}
			} else if info.ligComp() != 0 {
				return m, false
			}
		}
		totalComps += info.ligNumComps() - 1
		m.positions[m.len] = inx
		m.len++
	}
	m.end = it.idx + 1
	m.totalComps = totalComps + 1
	return m, true
}

// matchBacktrack matches count values leftwards from the cursor.
func (c *otApplyContext) matchBacktrack(count int, matcher matchFunc, values []uint16) (int, bool) {
	it := c.iterContext()
	it.matcher = matcher
	it.reset(c.buf.backtrackLen())
	for i := 0; i < count; i++ {
		if it.prev(values[i], nil) < 0 {
			return 0, false
		}
	}
	return it.idx, true
}

// matchLookahead matches count values rightwards from offset glyphs past
// the cursor.
func (c *otApplyContext) matchLookahead(count int, matcher matchFunc, values []uint16, startIndex int) (int, bool) {
	it := c.iterContext()
	it.matcher = matcher
	it.reset(startIndex - 1)
	for i := 0; i < count; i++ {
		if it.next(values[i], nil) < 0 {
			return 0, false
		}
	}
	return it.idx + 1, true
}

// --- Nested lookups --------------------------------------------------------

// recurse applies a nested lookup at the current cursor.
func (c *otApplyContext) recurse(lookupIndex int) bool {
	if c.nestingLevel == 0 {
		return false
	}
	c.nestingLevel--
	defer func() { c.nestingLevel++ }()

	savedFlag := c.lookupFlag
	savedMFS := c.markFilteringSet
	defer func() {
		c.lookupFlag = savedFlag
		c.markFilteringSet = savedMFS
	}()

	if c.table == tableGSUB {
		if c.plan.gsub == nil || lookupIndex >= len(c.plan.gsub.Lookups) {
			return false
		}
		lookup := c.plan.gsub.Lookups[lookupIndex]
		c.setLookupProps(lookup.Flag, lookup.MarkFilteringSet)
		return c.applyGSUBSubtables(lookup)
	}
	if c.plan.gpos == nil || lookupIndex >= len(c.plan.gpos.Lookups) {
		return false
	}
	lookup := c.plan.gpos.Lookups[lookupIndex]
	c.setLookupProps(lookup.Flag, lookup.MarkFilteringSet)
	return c.applyGPOSSubtables(lookup)
}

// applyNestedLookups runs the sequence-lookup records of a matched context,
// adjusting match positions as nested lookups edit the buffer.
func (c *otApplyContext) applyNestedLookups(m *matchedInput, lookups []ot.SequenceLookup) {
	buf := c.buf
	count := m.len

	bl := buf.backtrackLen()
	end := bl + m.end - buf.idx
	delta := bl - buf.idx
	var positions [maxContextLength]int
	copy(positions[:], m.positions[:count])
	for j := 0; j < count; j++ {
		positions[j] += delta
	}

	for _, rec := range lookups {
		idx := int(rec.SequenceIndex)
		if idx >= count {
			continue
		}
		origLen := buf.backtrackLen() + buf.lookaheadLen()
		if !buf.moveTo(positions[idx]) {
			break
		}
		if c.nestingLevel == 0 {
			break
		}
		if !c.recurse(int(rec.LookupIndex)) {
			continue
		}
		newLen := buf.backtrackLen() + buf.lookaheadLen()
		d := newLen - origLen
		if d == 0 {
			continue
		}
		// the recursed lookup changed the buffer length; adjust positions
		end += d
		if end < positions[idx] {
			d += positions[idx] - end
			end = positions[idx]
		}
		next := idx + 1
		if d > 0 {
			if d+count > maxContextLength {
				break
			}
		} else {
			if next-count > d {
				d = next - count
			}
			next -= d
		}
		copy(positions[next+d:count+d], positions[next:count])
		next += d
		count += d
		for j := idx + 1; j < next; j++ {
			positions[j] = positions[j-1] + 1
		}
		for ; next < count; next++ {
			positions[next] += d
		}
	}
	buf.moveTo(end)
}

// --- GSUB application ------------------------------------------------------

// substituteLookup runs one GSUB lookup over the whole buffer.
func (c *otApplyContext) substituteLookup(lookup *ot.GSUBLookup, lm lookupMap) {
	if lookup == nil || len(lookup.Subtables) == 0 || c.buf.failed {
		return
	}
	c.lookupMask = lm.mask
	c.autoZWNJ = lm.autoZWNJ
	c.autoZWJ = lm.autoZWJ
	c.random = lm.random
	c.perSyllable = lm.perSyllable
	c.setLookupProps(lookup.Flag, lookup.MarkFilteringSet)

	buf := c.buf
	if lookup.Type == ot.GSUBTypeReverseChainSingle {
		// reverse lookups apply in place, back to front
		for i := len(buf.Info) - 1; i >= 0; i-- {
			buf.idx = i
			if c.shouldSkipCurrent() {
				continue
			}
			c.applyGSUBSubtables(lookup)
		}
		buf.idx = 0
		return
	}

	buf.clearOutput()
	buf.idx = 0
	for buf.idx < len(buf.Info) && !buf.failed {
		if c.shouldSkipCurrent() {
			buf.nextGlyph()
			continue
		}
		if !c.applyGSUBSubtables(lookup) {
			buf.nextGlyph()
		}
	}
	buf.swapBuffers()
}

// shouldSkipCurrent applies mask and skip rules to the cursor glyph.
func (c *otApplyContext) shouldSkipCurrent() bool {
	info := &c.buf.Info[c.buf.idx]
	if info.Mask&c.lookupMask == 0 {
		return true
	}
	return c.maySkip(info, false) == skipYes
}

// applyGSUBSubtables tries each subtable at the cursor; first match wins.
func (c *otApplyContext) applyGSUBSubtables(lookup *ot.GSUBLookup) bool {
	for _, sub := range lookup.Subtables {
		if c.applyGSUBSubtable(sub) {
			return true
		}
	}
	return false
}

func (c *otApplyContext) applyGSUBSubtable(sub ot.GSUBSubtable) bool {
	buf := c.buf
	g := buf.Info[buf.idx].Glyph
	switch st := sub.(type) {
	case ot.SingleSubst1:
		if _, ok := st.Coverage.Index(g); !ok {
			return false
		}
		c.replaceSubstituted(ot.GlyphIndex(int(g) + int(st.Delta)))
		return true

	case ot.SingleSubst2:
		inx, ok := st.Coverage.Index(g)
		if !ok || inx >= len(st.Substitutes) {
			return false
		}
		c.replaceSubstituted(st.Substitutes[inx])
		return true

	case ot.MultipleSubst:
		inx, ok := st.Coverage.Index(g)
		if !ok || inx >= len(st.Sequences) {
			return false
		}
		seq := st.Sequences[inx]
		if len(seq) == 0 {
			// deleting a glyph via an empty sequence
			buf.deleteGlyph()
			return true
		}
		if len(seq) == 1 {
			c.replaceSubstituted(seq[0])
			return true
		}
		orig := buf.Info[buf.idx]
		for i, sg := range seq {
			info := orig
			info.Glyph = sg
			info.glyphProps |= glyphPropSubstituted | glyphPropMultiplied
			info.setLigPropsForComponent(i)
			c.setGlyphClass(&info)
			buf.outputInfo(info)
		}
		buf.skipGlyph()
		return true

	case ot.AlternateSubst:
		inx, ok := st.Coverage.Index(g)
		if !ok || inx >= len(st.Alternates) || len(st.Alternates[inx]) == 0 {
			return false
		}
		alts := st.Alternates[inx]
		altIndex := 0
		if c.random {
			altIndex = int(buf.nextRandom() % uint32(len(alts)))
		} else {
			// feature value selects the alternate, 1-based
			shiftedMask := buf.Info[buf.idx].Mask & c.lookupMask
			value := int(shiftedMask / (c.lookupMask & (^c.lookupMask + 1)))
			if value > 0 {
				altIndex = value - 1
			}
		}
		if altIndex >= len(alts) {
			return false
		}
		c.replaceSubstituted(alts[altIndex])
		return true

	case ot.LigatureSubst:
		inx, ok := st.Coverage.Index(g)
		if !ok || inx >= len(st.LigatureSets) {
			return false
		}
		for _, lig := range st.LigatureSets[inx] {
			if c.applyLigature(lig) {
				return true
			}
		}
		return false

	case ot.SequenceContext:
		return c.applyContext(&st)

	case ot.ChainedContext:
		return c.applyChainedContext(&st)

	case ot.ReverseChainSubst:
		inx, ok := st.Coverage.Index(g)
		if !ok || inx >= len(st.Substitutes) {
			return false
		}
		if _, ok := c.matchBacktrack(len(st.Backtrack), matchCoverageFunc(st.Backtrack), coverageIndices(len(st.Backtrack))); !ok {
			return false
		}
		if _, ok := c.matchLookahead(len(st.Lookahead), matchCoverageFunc(st.Lookahead), coverageIndices(len(st.Lookahead)), buf.idx+1); !ok {
			return false
		}
		info := &buf.Info[buf.idx]
		info.Glyph = st.Substitutes[inx]
		info.glyphProps |= glyphPropSubstituted
		c.setGlyphClass(info)
		return true
	}
	return false
}

// coverageIndices builds the identity value array 0..n-1 for coverage
// matchers.
func coverageIndices(n int) []uint16 {
	values := make([]uint16, n)
	for i := range values {
		values[i] = uint16(i)
	}
	return values
}

// replaceSubstituted emits a single-glyph substitution.
func (c *otApplyContext) replaceSubstituted(g ot.GlyphIndex) {
	buf := c.buf
	info := buf.Info[buf.idx]
	info.Glyph = g
	info.glyphProps |= glyphPropSubstituted
	c.setGlyphClass(&info)
	buf.outInfo = append(buf.outInfo, info)
	buf.outLen++
	buf.idx++
}

// setGlyphClass refreshes the GDEF class bits of a substituted glyph.
func (c *otApplyContext) setGlyphClass(info *GlyphInfo) {
	if c.plan.gdef.HasGlyphClasses() {
		info.glyphProps = info.glyphProps&glyphPropPreserve | glyphPropsFromGDEF(c.plan.gdef, info.Glyph)
	}
}

// glyphPropsFromGDEF maps a GDEF class (plus mark attachment class) to
// glyph property bits.
func glyphPropsFromGDEF(gdef *ot.GDEF, g ot.GlyphIndex) uint16 {
	switch gdef.GlyphClass(g) {
	case ot.GDEFBaseGlyph:
		return glyphPropBase
	case ot.GDEFLigatureGlyph:
		return glyphPropLigature
	case ot.GDEFMarkGlyph:
		return glyphPropMark | gdef.MarkAttachClass(g)<<8
	}
	return 0
}

// applyLigature matches the remaining components of a ligature at the
// cursor and, on success, merges the matched glyphs into the ligature
// glyph.
func (c *otApplyContext) applyLigature(lig ot.Ligature) bool {
	buf := c.buf
	count := len(lig.Components) + 1
	values := make([]uint16, len(lig.Components))
	for i, comp := range lig.Components {
		values[i] = uint16(comp)
	}
	m, ok := c.matchInput(len(lig.Components), matchGlyphFunc, values)
	if !ok {
		return false
	}
	if count == 1 {
		c.replaceSubstituted(lig.Glyph)
		return true
	}

	// A ligature of marks stays a mark; otherwise the result is a base-ish
	// ligature carrying component bookkeeping for mark attachment.
	isMarkLigature := true
	for i := 0; i < m.len; i++ {
		if !buf.Info[m.positions[i]].isMark() {
			isMarkLigature = false
			break
		}
	}
	isLigature := !isMarkLigature
	ligID := uint8(0)
	if isLigature {
		ligID = buf.allocateLigID()
	}
	lastLigID := buf.Info[buf.idx].ligID()
	lastNumComps := buf.Info[buf.idx].ligNumComps()
	compsSoFar := lastNumComps

	if isLigature {
		buf.mergeClusters(buf.idx, m.end)
		buf.unsafeToBreak(buf.idx, m.end)
	}

	// emit the ligature glyph in place of the first component
	info := buf.Info[buf.idx]
	info.Glyph = lig.Glyph
	info.glyphProps |= glyphPropSubstituted | glyphPropLigated
	if isLigature {
		info.setLigPropsForLigature(ligID, m.totalComps)
	}
	c.setGlyphClass(&info)
	buf.outInfo = append(buf.outInfo, info)
	buf.outLen++
	buf.idx++

	// consume the remaining components; marks between them travel to the
	// out side with updated ligature bookkeeping
	for i := 1; i < m.len; i++ {
		for buf.idx < m.positions[i] {
			if isLigature {
				markInfo := &buf.Info[buf.idx]
				thisComp := markInfo.ligComp()
				if thisComp == 0 {
					thisComp = uint8(lastNumComps)
				}
				newLigComp := compsSoFar - lastNumComps + int(minU8(thisComp, uint8(lastNumComps)))
				markInfo.setLigPropsForMark(ligID, newLigComp)
			}
			buf.nextGlyph()
		}
		lastLigID = buf.Info[buf.idx].ligID()
		lastNumComps = buf.Info[buf.idx].ligNumComps()
		compsSoFar += lastNumComps
		buf.skipGlyph() // the component is swallowed by the ligature
	}

	// re-adjust components of any marks following the ligature
	if isLigature && lastLigID != 0 {
		for i := buf.idx; i < len(buf.Info); i++ {
			if buf.Info[i].ligID() != lastLigID {
				break
			}
			thisComp := buf.Info[i].ligComp()
			if thisComp == 0 {
				break
			}
			newLigComp := compsSoFar - lastNumComps + int(minU8(thisComp, uint8(lastNumComps)))
			buf.Info[i].setLigPropsForMark(ligID, newLigComp)
		}
	}
	return true
}

func minU8(a, b uint8) uint8 {
	if a < b {
		return a
	}
	return b
}

// --- Contextual subtables --------------------------------------------------

func (c *otApplyContext) applyContext(ctx *ot.SequenceContext) bool {
	buf := c.buf
	g := buf.Info[buf.idx].Glyph
	switch ctx.Format {
	case 1:
		inx, ok := ctx.Coverage.Index(g)
		if !ok || inx >= len(ctx.Rules) {
			return false
		}
		for _, rule := range ctx.Rules[inx] {
			if m, ok := c.matchInput(len(rule.Input), matchGlyphFunc, rule.Input); ok {
				c.contextMatched(&m, rule.Lookups)
				return true
			}
		}
	case 2:
		if _, ok := ctx.Coverage.Index(g); !ok {
			return false
		}
		class := ctx.ClassDef.Class(g)
		if int(class) >= len(ctx.Rules) {
			return false
		}
		matcher := matchClassFunc(ctx.ClassDef)
		for _, rule := range ctx.Rules[class] {
			if m, ok := c.matchInput(len(rule.Input), matcher, rule.Input); ok {
				c.contextMatched(&m, rule.Lookups)
				return true
			}
		}
	case 3:
		if len(ctx.Coverages) == 0 {
			return false
		}
		if _, ok := ctx.Coverages[0].Index(g); !ok {
			return false
		}
		matcher := matchCoverageFunc(ctx.Coverages)
		values := coverageIndices(len(ctx.Coverages))
		if m, ok := c.matchInput(len(ctx.Coverages)-1, matcher, values[1:]); ok {
			c.contextMatched(&m, ctx.Lookups)
			return true
		}
	}
	return false
}

func (c *otApplyContext) applyChainedContext(ctx *ot.ChainedContext) bool {
	buf := c.buf
	g := buf.Info[buf.idx].Glyph
	switch ctx.Format {
	case 1:
		inx, ok := ctx.Coverage.Index(g)
		if !ok || inx >= len(ctx.Rules) {
			return false
		}
		for i := range ctx.Rules[inx] {
			rule := &ctx.Rules[inx][i]
			if c.applyChainedRule(rule, matchGlyphFunc, matchGlyphFunc, matchGlyphFunc) {
				return true
			}
		}
	case 2:
		if _, ok := ctx.Coverage.Index(g); !ok {
			return false
		}
		class := ctx.InputClassDef.Class(g)
		if int(class) >= len(ctx.Rules) {
			return false
		}
		for i := range ctx.Rules[class] {
			rule := &ctx.Rules[class][i]
			if c.applyChainedRule(rule,
				matchClassFunc(ctx.BacktrackClassDef),
				matchClassFunc(ctx.InputClassDef),
				matchClassFunc(ctx.LookaheadClassDef)) {
				return true
			}
		}
	case 3:
		if len(ctx.InputCoverages) == 0 {
			return false
		}
		if _, ok := ctx.InputCoverages[0].Index(g); !ok {
			return false
		}
		m, ok := c.matchInput(len(ctx.InputCoverages)-1,
			matchCoverageFunc(ctx.InputCoverages), coverageIndices(len(ctx.InputCoverages))[1:])
		if !ok {
			return false
		}
		if _, ok := c.matchBacktrack(len(ctx.BacktrackCoverages),
			matchCoverageFunc(ctx.BacktrackCoverages), coverageIndices(len(ctx.BacktrackCoverages))); !ok {
			return false
		}
		if _, ok := c.matchLookahead(len(ctx.LookaheadCoverages),
			matchCoverageFunc(ctx.LookaheadCoverages), coverageIndices(len(ctx.LookaheadCoverages)), m.end); !ok {
			return false
		}
		c.contextMatched(&m, ctx.Lookups)
		return true
	}
	return false
}

func (c *otApplyContext) applyChainedRule(rule *ot.ChainedSequenceRule, btMatcher, inMatcher, laMatcher matchFunc) bool {
	m, ok := c.matchInput(len(rule.Input), inMatcher, rule.Input)
	if !ok {
		return false
	}
	if _, ok := c.matchBacktrack(len(rule.Backtrack), btMatcher, rule.Backtrack); !ok {
		return false
	}
	if _, ok := c.matchLookahead(len(rule.Lookahead), laMatcher, rule.Lookahead, m.end); !ok {
		return false
	}
	c.contextMatched(&m, rule.Lookups)
	return true
}

// contextMatched marks the matched span unsafe to break and applies the
// nested lookups.
func (c *otApplyContext) contextMatched(m *matchedInput, lookups []ot.SequenceLookup) {
	c.buf.unsafeToBreak(c.buf.idx, m.end)
	if c.table == tableGSUB {
		c.applyNestedLookups(m, lookups)
		return
	}
	// GPOS positioning is in place; apply nested lookups at their
	// positions directly.
	buf := c.buf
	for _, rec := range lookups {
		if int(rec.SequenceIndex) >= m.len {
			continue
		}
		buf.idx = m.positions[rec.SequenceIndex]
		c.recurse(int(rec.LookupIndex))
	}
	buf.idx = m.end
}

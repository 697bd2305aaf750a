package otshape

import (
	"github.com/npillmayer/textshape/ot"
)

// GPOS application: single and pair adjustments, cursive chaining, mark
// attachment, and the final offset propagation along attachment chains.

// positionLookup runs one GPOS lookup over the whole buffer, in place.
func (c *otApplyContext) positionLookup(lookup *ot.GPOSLookup, lm lookupMap) {
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
	buf.idx = 0
	for buf.idx < len(buf.Info) {
		if c.shouldSkipCurrent() {
			buf.idx++
			continue
		}
		if !c.applyGPOSSubtables(lookup) {
			buf.idx++
		}
	}
	buf.idx = 0
}

func (c *otApplyContext) applyGPOSSubtables(lookup *ot.GPOSLookup) bool {
	for _, sub := range lookup.Subtables {
		if c.applyGPOSSubtable(sub) {
			return true
		}
	}
	return false
}

// applyValue adds a value record to a position. Horizontal advances apply
// in horizontal layout only, and vice versa.
func (c *otApplyContext) applyValue(v ot.ValueRecord, pos *GlyphPosition) {
	pos.XOffset += int32(v.XPlacement)
	pos.YOffset += int32(v.YPlacement)
	if c.buf.Props.Direction.isHorizontal() {
		pos.XAdvance += int32(v.XAdvance)
	} else {
		pos.YAdvance += int32(v.YAdvance)
	}
}

func (c *otApplyContext) applyGPOSSubtable(sub ot.GPOSSubtable) bool {
	buf := c.buf
	g := buf.Info[buf.idx].Glyph
	switch st := sub.(type) {
	case ot.SinglePos:
		inx, ok := st.Coverage.Index(g)
		if !ok {
			return false
		}
		c.applyValue(st.Value(inx), &buf.Pos[buf.idx])
		buf.idx++
		return true

	case ot.PairPos1:
		inx, ok := st.Coverage.Index(g)
		if !ok || inx >= len(st.PairSets) {
			return false
		}
		it := c.iterInput()
		var unsafeFrom int
		second := it.next(0, &unsafeFrom)
		if second < 0 {
			buf.unsafeToBreak(buf.idx, unsafeFrom+1)
			return false
		}
		for _, pair := range st.PairSets[inx] {
			if pair.Second != buf.Info[second].Glyph {
				continue
			}
			c.applyValue(pair.Value1, &buf.Pos[buf.idx])
			c.applyValue(pair.Value2, &buf.Pos[second])
			buf.unsafeToBreak(buf.idx, second+1)
			if pair.Value2.IsZero() {
				buf.idx = second
			} else {
				buf.idx = second + 1
			}
			return true
		}
		buf.unsafeToBreak(buf.idx, second+1)
		return false

	case ot.PairPos2:
		if _, ok := st.Coverage.Index(g); !ok {
			return false
		}
		it := c.iterInput()
		var unsafeFrom int
		second := it.next(0, &unsafeFrom)
		if second < 0 {
			buf.unsafeToBreak(buf.idx, unsafeFrom+1)
			return false
		}
		c1 := st.ClassDef1.Class(g)
		c2 := st.ClassDef2.Class(buf.Info[second].Glyph)
		i := int(c1)*int(st.Class2Count) + int(c2)
		if i >= len(st.Values) {
			return false
		}
		v := st.Values[i]
		buf.unsafeToBreak(buf.idx, second+1)
		if v[0].IsZero() && v[1].IsZero() {
			return false
		}
		c.applyValue(v[0], &buf.Pos[buf.idx])
		c.applyValue(v[1], &buf.Pos[second])
		if v[1].IsZero() {
			buf.idx = second
		} else {
			buf.idx = second + 1
		}
		return true

	case ot.CursivePos:
		return c.applyCursive(st)

	case ot.MarkBasePos:
		return c.applyMarkBase(st)

	case ot.MarkLigPos:
		return c.applyMarkLig(st)

	case ot.MarkMarkPos:
		return c.applyMarkMark(st)

	case ot.SequenceContext:
		return c.applyContext(&st)

	case ot.ChainedContext:
		return c.applyChainedContext(&st)
	}
	return false
}

// anchorCoords resolves an anchor, tracking the glyph outline point if the
// anchor asks for one.
func (c *otApplyContext) anchorCoords(a *ot.Anchor, g ot.GlyphIndex) (int32, int32) {
	if a == nil {
		return 0, 0
	}
	if a.HasContourPoint {
		if x, y, ok := c.face.ContourPoint(g, a.ContourPoint); ok {
			return x, y
		}
	}
	return int32(a.X), int32(a.Y)
}

func (c *otApplyContext) applyCursive(st ot.CursivePos) bool {
	buf := c.buf
	thisIndex := buf.idx
	inx, ok := st.Coverage.Index(buf.Info[thisIndex].Glyph)
	if !ok || inx >= len(st.EntryExits) {
		return false
	}
	thisRecord := st.EntryExits[inx]
	if thisRecord.Entry == nil {
		return false
	}

	// find the previous glyph eligible for cursive chaining (backward over
	// the in side; cursive runs in place)
	prevIndex := -1
	for i := thisIndex - 1; i >= 0; i-- {
		if c.maySkip(&buf.Info[i], false) == skipNo {
			prevIndex = i
			break
		}
	}
	if prevIndex < 0 {
		return false
	}
	prevInx, ok := st.Coverage.Index(buf.Info[prevIndex].Glyph)
	if !ok || prevInx >= len(st.EntryExits) || st.EntryExits[prevInx].Exit == nil {
		buf.unsafeToBreak(prevIndex, thisIndex+1)
		return false
	}

	exitX, exitY := c.anchorCoords(st.EntryExits[prevInx].Exit, buf.Info[prevIndex].Glyph)
	entryX, entryY := c.anchorCoords(thisRecord.Entry, buf.Info[thisIndex].Glyph)

	pos := buf.Pos
	direction := buf.Props.Direction
	switch direction {
	case LeftToRight:
		pos[prevIndex].XAdvance = exitX + pos[prevIndex].XOffset
		d := entryX + pos[thisIndex].XOffset
		pos[thisIndex].XAdvance -= d
		pos[thisIndex].XOffset -= d
	case RightToLeft:
		d := exitX + pos[prevIndex].XOffset
		pos[prevIndex].XAdvance -= d
		pos[prevIndex].XOffset -= d
		pos[thisIndex].XAdvance = entryX + pos[thisIndex].XOffset
	case TopToBottom:
		pos[prevIndex].YAdvance = exitY + pos[prevIndex].YOffset
		d := entryY + pos[thisIndex].YOffset
		pos[thisIndex].YAdvance -= d
		pos[thisIndex].YOffset -= d
	case BottomToTop:
		d := exitY + pos[prevIndex].YOffset
		pos[prevIndex].YAdvance -= d
		pos[prevIndex].YOffset -= d
		pos[thisIndex].YAdvance = entryY + pos[thisIndex].YOffset
	}

	// cross-stream offset: the child glyph rides on the parent
	child := thisIndex
	parent := prevIndex
	xOffset := entryX - exitX
	yOffset := entryY - exitY
	if c.lookupFlag&ot.LookupFlagRightToLeft == 0 {
		// parent/child swap for left-to-right attachment order
		parent, child = child, parent
		xOffset = -xOffset
		yOffset = -yOffset
	}
	pos[child].attachChain = int16(parent - child)
	pos[child].attachType = attachTypeCursive
	if direction.isHorizontal() {
		pos[child].YOffset = yOffset
	} else {
		pos[child].XOffset = xOffset
	}

	buf.unsafeToBreak(prevIndex, thisIndex+1)
	buf.idx++
	return true
}

// attachMark positions a mark glyph against a base anchor and records the
// attachment chain.
func (c *otApplyContext) attachMark(markRecord ot.MarkRecord, baseAnchor *ot.Anchor,
	markIndex, baseIndex int,
) bool {
	if baseAnchor == nil {
		return false
	}
	buf := c.buf
	baseX, baseY := c.anchorCoords(baseAnchor, buf.Info[baseIndex].Glyph)
	markX, markY := c.anchorCoords(&markRecord.Anchor, buf.Info[markIndex].Glyph)

	buf.unsafeToBreak(baseIndex, markIndex+1)
	pos := &buf.Pos[markIndex]
	pos.XOffset = baseX - markX
	pos.YOffset = baseY - markY
	pos.attachChain = int16(baseIndex - markIndex)
	pos.attachType = attachTypeMark
	buf.idx++
	return true
}

// prevNonMark finds the attachment base for a mark at the cursor, skipping
// other marks.
func (c *otApplyContext) prevNonMark(from int) int {
	buf := c.buf
	for i := from - 1; i >= 0; i-- {
		if !buf.Info[i].isMark() {
			return i
		}
	}
	return -1
}

func (c *otApplyContext) applyMarkBase(st ot.MarkBasePos) bool {
	buf := c.buf
	markIndex := buf.idx
	markInx, ok := st.MarkCoverage.Index(buf.Info[markIndex].Glyph)
	if !ok || markInx >= len(st.Marks) {
		return false
	}
	baseIndex := c.prevNonMark(markIndex)
	if baseIndex < 0 {
		return false
	}
	baseInx, ok := st.BaseCoverage.Index(buf.Info[baseIndex].Glyph)
	if !ok || baseInx >= len(st.Bases) {
		return false
	}
	mark := st.Marks[markInx]
	if int(mark.Class) >= int(st.ClassCount) || int(mark.Class) >= len(st.Bases[baseInx]) {
		return false
	}
	return c.attachMark(mark, st.Bases[baseInx][mark.Class], markIndex, baseIndex)
}

func (c *otApplyContext) applyMarkLig(st ot.MarkLigPos) bool {
	buf := c.buf
	markIndex := buf.idx
	markInx, ok := st.MarkCoverage.Index(buf.Info[markIndex].Glyph)
	if !ok || markInx >= len(st.Marks) {
		return false
	}
	ligIndex := c.prevNonMark(markIndex)
	if ligIndex < 0 {
		return false
	}
	ligInx, ok := st.LigatureCoverage.Index(buf.Info[ligIndex].Glyph)
	if !ok || ligInx >= len(st.Ligatures) {
		return false
	}
	comps := st.Ligatures[ligInx]
	if len(comps) == 0 {
		return false
	}
	// pick the component the mark belongs to, via ligature bookkeeping
	compCount := len(comps)
	compIndex := compCount - 1
	ligID := buf.Info[ligIndex].ligID()
	markComp := int(buf.Info[markIndex].ligComp())
	if ligID != 0 && ligID == buf.Info[markIndex].ligID() && markComp > 0 {
		if markComp-1 < compCount {
			compIndex = markComp - 1
		}
	}
	mark := st.Marks[markInx]
	if int(mark.Class) >= len(comps[compIndex]) {
		return false
	}
	return c.attachMark(mark, comps[compIndex][mark.Class], markIndex, ligIndex)
}

func (c *otApplyContext) applyMarkMark(st ot.MarkMarkPos) bool {
	buf := c.buf
	mark1Index := buf.idx
	mark1Inx, ok := st.Mark1Coverage.Index(buf.Info[mark1Index].Glyph)
	if !ok || mark1Inx >= len(st.Marks) {
		return false
	}
	// the immediately preceding glyph must be a mark
	mark2Index := mark1Index - 1
	if mark2Index < 0 || !buf.Info[mark2Index].isMark() {
		return false
	}
	// marks must belong to the same ligature component
	id1, id2 := buf.Info[mark1Index].ligID(), buf.Info[mark2Index].ligID()
	comp1, comp2 := buf.Info[mark1Index].ligComp(), buf.Info[mark2Index].ligComp()
	good := id1 == id2 && (id1 == 0 || comp1 == comp2)
	if !good {
		return false
	}
	mark2Inx, ok := st.Mark2Coverage.Index(buf.Info[mark2Index].Glyph)
	if !ok || mark2Inx >= len(st.Mark2s) {
		return false
	}
	mark := st.Marks[mark1Inx]
	if int(mark.Class) >= len(st.Mark2s[mark2Inx]) {
		return false
	}
	return c.attachMark(mark, st.Mark2s[mark2Inx][mark.Class], mark1Index, mark2Index)
}

// --- Offset finishing ------------------------------------------------------

// positionFinishOffsets propagates attachment chains into final offsets:
// a mark inherits its base's offset plus the advances between them; a
// cursive child inherits the cross-stream offset of its parent.
func positionFinishOffsets(buf *Buffer) {
	pos := buf.Pos
	direction := buf.Props.Direction
	for i := range pos {
		if pos[i].attachChain != 0 {
			propagateAttachment(buf, i, direction, make(map[int]bool))
		}
	}
}

func propagateAttachment(buf *Buffer, i int, direction Direction, visited map[int]bool) {
	pos := buf.Pos
	chain := int(pos[i].attachChain)
	if chain == 0 || visited[i] {
		return
	}
	visited[i] = true
	pos[i].attachChain = 0
	j := i + chain
	if j < 0 || j >= len(pos) {
		return
	}
	propagateAttachment(buf, j, direction, visited)

	switch pos[i].attachType {
	case attachTypeMark:
		pos[i].XOffset += pos[j].XOffset
		pos[i].YOffset += pos[j].YOffset
		if direction.isForward() { // mark after base
			for k := j; k < i; k++ {
				pos[i].XOffset -= pos[k].XAdvance
				pos[i].YOffset -= pos[k].YAdvance
			}
		} else { // mark before base once the backward run is reversed
			for k := j + 1; k < i+1; k++ {
				pos[i].XOffset += pos[k].XAdvance
				pos[i].YOffset += pos[k].YAdvance
			}
		}
	case attachTypeCursive:
		if direction.isHorizontal() {
			pos[i].YOffset += pos[j].YOffset
		} else {
			pos[i].XOffset += pos[j].XOffset
		}
	}
}

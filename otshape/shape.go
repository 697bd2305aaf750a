package otshape

import (
	"github.com/npillmayer/textshape/ot"
)

// The shape driver: orchestrates plan → setup → substitute → position →
// cleanup for one buffer.

// Shape shapes the Unicode content of buf for face, using a cached or
// freshly compiled plan. It returns true iff shaping succeeded: no
// allocation failure occurred and the buffer now holds glyphs.
//
// The buffer must hold Unicode content; segment properties are guessed
// from the content where unset.
func Shape(face Face, buf *Buffer, userFeatures []Feature) bool {
	if face == nil || buf == nil {
		return false
	}
	if len(buf.Info) == 0 {
		buf.contentType = ContentTypeGlyphs
		buf.clearPositions()
		return true
	}
	if buf.contentType != ContentTypeUnicode {
		tracer().Errorf("shape called with non-Unicode buffer content")
		return false
	}
	buf.GuessSegmentProperties()
	plan := planFor(face, buf.Props, userFeatures)
	return plan.Execute(face, buf, userFeatures)
}

// Execute runs a compiled plan over a buffer. The plan must have been
// compiled for the buffer's segment properties.
func (plan *Plan) Execute(face Face, buf *Buffer, userFeatures []Feature) bool {
	c := &shapeContext{
		plan:         plan,
		face:         face,
		buf:          buf,
		userFeatures: userFeatures,
	}
	c.shape()
	return buf.AllocationSuccessful() && buf.contentType == ContentTypeGlyphs
}

type shapeContext struct {
	plan         *Plan
	face         Face
	buf          *Buffer
	userFeatures []Feature

	targetDirection Direction
}

func (c *shapeContext) shape() {
	buf := c.buf
	buf.scratchFlags = bsfDefault
	if buf.MaxLen == 0 {
		// growth guard proportional to the input, as in the original
		if max := len(buf.Info) * maxLenFactor; max > maxLenMin {
			buf.MaxLen = max
		} else {
			buf.MaxLen = maxLenMin
		}
	}
	buf.maxOps = len(buf.Info) * maxOpsFactor
	if buf.maxOps < maxOpsMin {
		buf.maxOps = maxOpsMin
	}

	// save the original direction, we use it later
	c.targetDirection = buf.Props.Direction

	buf.resetMasks(c.plan.map_.globalMask)
	buf.setUnicodeProps()
	c.insertDottedCircle()
	buf.formClusters()
	buf.ensureNativeDirection()

	c.plan.shaper.PreprocessText(c.plan, buf, c.face)

	c.substitutePre()
	c.position()
	c.substitutePost()

	c.propagateFlags()

	buf.Props.Direction = c.targetDirection
	buf.maxOps = maxOpsDefault
	if buf.AllocationSuccessful() {
		buf.contentType = ContentTypeGlyphs
	}
}

// insertDottedCircle inserts U+25CC at the start of a buffer that begins
// with a standalone mark, so broken clusters render visibly.
func (c *shapeContext) insertDottedCircle() {
	buf := c.buf
	if buf.Flags&BufferFlagDoNotInsertDottedCircle != 0 ||
		buf.Flags&BufferFlagBOT == 0 ||
		len(buf.preContext) > 0 ||
		len(buf.Info) == 0 ||
		!buf.Info[0].isUnicodeMark() {
		return
	}
	if !hasGlyph(c.face, 0x25CC) {
		return
	}
	if !buf.ensure(len(buf.Info) + 1) {
		return
	}
	dottedcircle := GlyphInfo{
		Codepoint: 0x25CC,
		Mask:      buf.Info[0].Mask,
		Cluster:   buf.Info[0].Cluster,
	}
	dottedcircle.genCat = uniGeneralCategory(0x25CC)
	dottedcircle.ccc = uniModifiedCombiningClass(0x25CC)
	buf.Info = append([]GlyphInfo{dottedcircle}, buf.Info...)
}

// --- Substitution ----------------------------------------------------------

// vertCharFor maps punctuation to vertical presentation forms for fonts
// without a 'vert' feature.
func vertCharFor(u rune) rune {
	switch u >> 8 {
	case 0x20:
		switch u {
		case 0x2013:
			return 0xfe32 // EN DASH
		case 0x2014:
			return 0xfe31 // EM DASH
		case 0x2025:
			return 0xfe30 // TWO DOT LEADER
		case 0x2026:
			return 0xfe19 // HORIZONTAL ELLIPSIS
		}
	case 0x30:
		switch u {
		case 0x3001:
			return 0xfe11 // IDEOGRAPHIC COMMA
		case 0x3002:
			return 0xfe12 // IDEOGRAPHIC FULL STOP
		case 0x3008:
			return 0xfe3f // LEFT ANGLE BRACKET
		case 0x3009:
			return 0xfe40 // RIGHT ANGLE BRACKET
		case 0x300a:
			return 0xfe3d // LEFT DOUBLE ANGLE BRACKET
		case 0x300b:
			return 0xfe3e // RIGHT DOUBLE ANGLE BRACKET
		case 0x300c:
			return 0xfe41 // LEFT CORNER BRACKET
		case 0x300d:
			return 0xfe42 // RIGHT CORNER BRACKET
		case 0x300e:
			return 0xfe43 // LEFT WHITE CORNER BRACKET
		case 0x300f:
			return 0xfe44 // RIGHT WHITE CORNER BRACKET
		case 0x3010:
			return 0xfe3b // LEFT BLACK LENTICULAR BRACKET
		case 0x3011:
			return 0xfe3c // RIGHT BLACK LENTICULAR BRACKET
		case 0x3014:
			return 0xfe39 // LEFT TORTOISE SHELL BRACKET
		case 0x3015:
			return 0xfe3a // RIGHT TORTOISE SHELL BRACKET
		case 0x3016:
			return 0xfe17 // LEFT WHITE LENTICULAR BRACKET
		case 0x3017:
			return 0xfe18 // RIGHT WHITE LENTICULAR BRACKET
		}
	case 0xfe:
		if u == 0xfe4f {
			return 0xfe34 // WAVY LOW LINE
		}
	case 0xff:
		switch u {
		case 0xff01:
			return 0xfe15 // FULLWIDTH EXCLAMATION MARK
		case 0xff08:
			return 0xfe35 // FULLWIDTH LEFT PARENTHESIS
		case 0xff09:
			return 0xfe36 // FULLWIDTH RIGHT PARENTHESIS
		case 0xff0c:
			return 0xfe10 // FULLWIDTH COMMA
		case 0xff1a:
			return 0xfe13 // FULLWIDTH COLON
		case 0xff1b:
			return 0xfe14 // FULLWIDTH SEMICOLON
		case 0xff1f:
			return 0xfe16 // FULLWIDTH QUESTION MARK
		case 0xff3b:
			return 0xfe47 // FULLWIDTH LEFT SQUARE BRACKET
		case 0xff3d:
			return 0xfe48 // FULLWIDTH RIGHT SQUARE BRACKET
		case 0xff3f:
			return 0xfe33 // FULLWIDTH LOW LINE
		case 0xff5b:
			return 0xfe37 // FULLWIDTH LEFT CURLY BRACKET
		case 0xff5d:
			return 0xfe38 // FULLWIDTH RIGHT CURLY BRACKET
		}
	}
	return u
}

// rotateChars mirrors characters for backward runs and substitutes
// vertical forms for vertical runs.
func (c *shapeContext) rotateChars() {
	info := c.buf.Info
	if c.targetDirection.isBackward() {
		rtlmMask := c.plan.rtlmMask
		for i := range info {
			mirrored := uniMirror(info[i].Codepoint)
			if mirrored != info[i].Codepoint && hasGlyph(c.face, mirrored) {
				info[i].Codepoint = mirrored
			} else {
				info[i].Mask |= rtlmMask
			}
		}
	}
	if c.targetDirection.isVertical() && !c.plan.hasVert {
		for i := range info {
			vert := vertCharFor(info[i].Codepoint)
			if vert != info[i].Codepoint && hasGlyph(c.face, vert) {
				info[i].Codepoint = vert
			}
		}
	}
}

// setupMasksFraction assigns numr/frac/dnom masks around U+2044.
func (c *shapeContext) setupMasksFraction() {
	buf := c.buf
	if buf.scratchFlags&bsfHasNonASCII == 0 || !c.plan.hasFrac {
		return
	}
	var preMask, postMask GlyphMask
	if buf.Props.Direction.isForward() {
		preMask = c.plan.numrMask | c.plan.fracMask
		postMask = c.plan.fracMask | c.plan.dnomMask
	} else {
		preMask = c.plan.fracMask | c.plan.dnomMask
		postMask = c.plan.numrMask | c.plan.fracMask
	}
	info := buf.Info
	count := len(info)
	for i := 0; i < count; i++ {
		if info[i].Codepoint != 0x2044 { // FRACTION SLASH
			continue
		}
		start, end := i, i+1
		for start > 0 && info[start-1].genCat == decimalNumber {
			start--
		}
		for end < count && info[end].genCat == decimalNumber {
			end++
		}
		if start == i || end == i+1 {
			continue // not a fraction after all
		}
		buf.unsafeToBreak(start, end)
		for j := start; j < i; j++ {
			info[j].Mask |= preMask
		}
		info[i].Mask |= c.plan.fracMask
		for j := i + 1; j < end; j++ {
			info[j].Mask |= postMask
		}
		i = end - 1
	}
}

// setupMasks combines the driver's mask setup with the shaper's and the
// user's range features.
func (c *shapeContext) setupMasks() {
	buf := c.buf
	c.setupMasksFraction()
	c.plan.shaper.SetupMasks(c.plan, buf, c.face)
	for _, feature := range c.userFeatures {
		if feature.isGlobal() {
			continue
		}
		mask, shift := c.plan.map_.getMask(feature.Tag)
		buf.setMasks(GlyphMask(feature.Value)<<shift, mask, feature.Start, feature.End)
	}
}

// mapGlyphs maps code points to glyph indices, resolving variation
// selector pairs.
func (c *shapeContext) mapGlyphs() {
	buf := c.buf
	info := buf.Info
	buf.clearOutput()
	buf.idx = 0
	for buf.idx < len(buf.Info) && !buf.failed {
		r := info[buf.idx].Codepoint
		if isVariationSelector(r) && buf.idx > 0 {
			// already handled with its base below; drop the selector
			buf.deleteGlyph()
			continue
		}
		var g ot.GlyphIndex
		ok := false
		if buf.idx+1 < len(buf.Info) && isVariationSelector(info[buf.idx+1].Codepoint) {
			if vg, vok := c.face.VariationGlyph(r, info[buf.idx+1].Codepoint); vok {
				g, ok = vg, true
			}
		}
		if !ok {
			g, ok = c.face.NominalGlyph(r)
		}
		if !ok {
			if info[buf.idx].spaceType != spaceNot {
				// keep the space fallback; render with the space glyph
				g, _ = c.face.NominalGlyph(' ')
			} else {
				info[buf.idx].spaceType = spaceNot
				g = NOTDEF
			}
		} else if info[buf.idx].spaceType != spaceNot {
			// the font knows this space, no fallback needed
			info[buf.idx].spaceType = spaceNot
		}
		buf.replaceGlyphIndex(g)
	}
	buf.swapBuffers()
}

// synthesizeGlyphClasses assigns glyph classes from Unicode categories for
// fonts without GDEF classes. Default ignorables are never marks, so
// lookup-flag skipping cannot hide them from context matching.
func synthesizeGlyphClasses(buf *Buffer) {
	info := buf.Info
	for i := range info {
		class := glyphPropMark
		if info[i].genCat != nonSpacingMark || info[i].isDefaultIgnorable() {
			class = glyphPropBase
		}
		info[i].glyphProps = class
	}
}

// setGlyphClassesFromGDEF caches GDEF classes on the glyph infos.
func (c *shapeContext) setGlyphClassesFromGDEF() {
	info := c.buf.Info
	for i := range info {
		info[i].glyphProps = glyphPropsFromGDEF(c.plan.gdef, info[i].Glyph)
	}
}

// substitutePre runs normalization, mask setup, glyph mapping and the GSUB
// (or morx) pass.
func (c *shapeContext) substitutePre() {
	buf := c.buf
	c.rotateChars()
	otShapeNormalize(c.plan, buf, c.face)
	c.setupMasks()

	if c.plan.fallbackMarkPositioning {
		fallbackMarkPositionRecategorizeMarks(buf)
	}

	c.mapGlyphs()
	if buf.failed {
		return
	}

	if c.plan.fallbackGlyphClasses {
		synthesizeGlyphClasses(buf)
	} else {
		c.setGlyphClassesFromGDEF()
	}

	if c.plan.applyMorx {
		applyMorx(c.plan, buf)
		return
	}
	c.substituteGSUB()
}

// substituteGSUB walks the GSUB stages of the plan.
func (c *shapeContext) substituteGSUB() {
	buf := c.buf
	if c.plan.gsub == nil {
		// still run the pauses, shapers rely on them
		for _, stage := range c.plan.map_.stages[tableGSUB] {
			if stage.pause != nil {
				stage.pause(c.plan, c.face, buf)
			}
		}
		return
	}
	ctx := newOtApplyContext(tableGSUB, c.plan, c.face, buf)
	for stageIndex, stage := range c.plan.map_.stages[tableGSUB] {
		for _, lm := range c.plan.map_.stageLookups(tableGSUB, stageIndex) {
			if int(lm.index) >= len(c.plan.gsub.Lookups) {
				continue
			}
			ctx.substituteLookup(c.plan.gsub.Lookups[lm.index], lm)
			if buf.failed {
				return
			}
		}
		if stage.pause != nil {
			stage.pause(c.plan, c.face, buf)
		}
	}
}

// --- Positioning -----------------------------------------------------------

// positionDefault initializes advances and offsets from face metrics.
func (c *shapeContext) positionDefault() {
	buf := c.buf
	info := buf.Info
	pos := buf.Pos
	if buf.Props.Direction.isHorizontal() {
		for i := range info {
			pos[i].XAdvance = c.face.AdvanceH(info[i].Glyph)
			pos[i].YAdvance = 0
			pos[i].XOffset, pos[i].YOffset = 0, 0
		}
	} else {
		for i := range info {
			pos[i].XAdvance = 0
			pos[i].YAdvance = c.face.AdvanceV(info[i].Glyph)
			pos[i].XOffset, pos[i].YOffset = 0, 0
		}
	}
	if buf.scratchFlags&bsfHasSpaceFallback != 0 {
		fallbackSpaces(c.face, buf)
	}
}

// zeroWidthDefaultIgnorables hides default ignorables by zeroing their
// metrics (they keep their glyph until hideDefaultIgnorables runs).
func zeroWidthDefaultIgnorables(buf *Buffer) {
	if buf.scratchFlags&bsfHasDefaultIgnorables == 0 ||
		buf.Flags&BufferFlagPreserveDefaultIgnorables != 0 ||
		buf.Flags&BufferFlagRemoveDefaultIgnorables != 0 {
		return
	}
	pos := buf.Pos
	for i := range buf.Info {
		if buf.Info[i].isDefaultIgnorable() {
			pos[i].XAdvance, pos[i].YAdvance, pos[i].XOffset, pos[i].YOffset = 0, 0, 0, 0
		}
	}
}

// hideDefaultIgnorables substitutes the invisible glyph for default
// ignorables, or removes them entirely.
func (c *shapeContext) hideDefaultIgnorables() {
	buf := c.buf
	if buf.scratchFlags&bsfHasDefaultIgnorables == 0 ||
		buf.Flags&BufferFlagPreserveDefaultIgnorables != 0 {
		return
	}
	invisible := buf.Invisible
	ok := invisible != 0
	if !ok {
		invisible, ok = c.face.NominalGlyph(' ')
	}
	if buf.Flags&BufferFlagRemoveDefaultIgnorables == 0 && ok {
		info := buf.Info
		for i := range info {
			if info[i].isDefaultIgnorable() {
				info[i].Glyph = invisible
			}
		}
		return
	}
	buf.deleteGlyphsInplace(func(info *GlyphInfo) bool {
		return info.isDefaultIgnorable()
	})
}

func (c *shapeContext) positionComplex() {
	buf := c.buf

	// If the font has no GPOS and direction is forward, zeroing mark
	// widths shifts the mark so it hangs over the previous glyph. For
	// backward direction the shift happens through the final reversal.
	adjustOffsetsWhenZeroing := c.plan.adjustMarkPositioningWhenZeroing &&
		buf.Props.Direction.isForward()

	markBehavior, _ := c.plan.shaper.MarksBehavior()

	if c.plan.zeroMarks {
		switch markBehavior {
		case ZeroWidthMarksByGDEFEarly:
			zeroMarkWidthsByGdef(buf, adjustOffsetsWhenZeroing)
		case ZeroWidthMarksByUnicodeEarly:
			zeroMarkWidthsByUnicode(buf, adjustOffsetsWhenZeroing)
		}
	}

	if c.plan.applyGpos {
		ctx := newOtApplyContext(tableGPOS, c.plan, c.face, buf)
		for stageIndex, stage := range c.plan.map_.stages[tableGPOS] {
			for _, lm := range c.plan.map_.stageLookups(tableGPOS, stageIndex) {
				if int(lm.index) >= len(c.plan.gpos.Lookups) {
					continue
				}
				ctx.positionLookup(c.plan.gpos.Lookups[lm.index], lm)
			}
			if stage.pause != nil {
				stage.pause(c.plan, c.face, buf)
			}
		}
	} else if c.plan.applyKern {
		applyLegacyKern(c.plan, buf)
	}
	if c.plan.applyKerx {
		applyKerx(c.plan, buf)
	}

	if c.plan.zeroMarks {
		switch markBehavior {
		case ZeroWidthMarksByGDEFLate:
			zeroMarkWidthsByGdef(buf, adjustOffsetsWhenZeroing)
		case ZeroWidthMarksByUnicodeLate:
			zeroMarkWidthsByUnicode(buf, adjustOffsetsWhenZeroing)
		case ZeroWidthMarksAdvances:
			zeroMarkWidthsByGdef(buf, false)
		}
	}

	zeroWidthDefaultIgnorables(buf)
	positionFinishOffsets(buf)

	if c.plan.fallbackMarkPositioning {
		fallbackMarkPosition(c.plan, c.face, buf, adjustOffsetsWhenZeroing)
	}
}

func (c *shapeContext) position() {
	buf := c.buf
	if buf.failed {
		return
	}
	buf.clearPositions()
	c.positionDefault()
	c.positionComplex()
	if c.plan.applyTrak {
		applyTrak(c.plan, buf)
	}
	if buf.Props.Direction.isBackward() {
		buf.Reverse()
	}
}

// substitutePost hides ignorables and lets the shaper postprocess.
func (c *shapeContext) substitutePost() {
	if c.buf.failed {
		return
	}
	c.hideDefaultIgnorables()
	c.plan.shaper.PostprocessGlyphs(c.plan, c.buf, c.face)
}

// propagateFlags makes cluster-level glyph flags uniform across each
// cluster, so that a cluster is unsafe-to-break if any of its glyphs is.
func (c *shapeContext) propagateFlags() {
	buf := c.buf
	if buf.scratchFlags&bsfHasGlyphFlags == 0 {
		return
	}
	info := buf.Info
	iter := buf.clusterIteratorAt(0)
	for start, end := iter.next(); start < len(info); start, end = iter.next() {
		var mask GlyphMask
		for i := start; i < end; i++ {
			mask |= info[i].Mask & glyphFlagsDefined
		}
		if mask == 0 {
			continue
		}
		for i := start; i < end; i++ {
			info[i].Mask |= mask
		}
	}
}

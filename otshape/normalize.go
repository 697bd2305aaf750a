package otshape

// The normalizer rewrites the buffer's Unicode content into the form the
// shaper prefers: canonical decomposition limited by what the font can
// render, mark reordering by modified combining class, and optional
// recomposition of diacritics.

// maxCombiningMarks caps the length of mark runs that get reordered, to
// avoid quadratic work on pathological input.
const maxCombiningMarks = 32

// normalizeContext is handed to shaper decompose/compose hooks.
type normalizeContext struct {
	plan        *Plan
	buf         *Buffer
	face        Face
	hasGposMark bool
}

// decomposeUnicode is the default decomposition, via the normalization
// backend.
func (c *normalizeContext) decomposeUnicode(ab rune) (rune, rune, bool) {
	return defaultNormBackend.decompose(ab)
}

// composeUnicode is the default composition, via the normalization backend.
func (c *normalizeContext) composeUnicode(a, b rune) (rune, bool) {
	return defaultNormBackend.compose(a, b)
}

// otShapeNormalize is the entry point of the normalization pass.
func otShapeNormalize(plan *Plan, buf *Buffer, face Face) {
	if len(buf.Info) == 0 {
		return
	}
	mode := plan.shaper.NormalizationPreference()
	if mode == nmAuto {
		if plan.hasGposMark {
			// the font knows how to attach marks, keep things decomposed
			mode = nmDecomposed
		} else {
			mode = nmComposedDiacritics
		}
	}
	if mode == nmNone {
		return
	}
	ctx := &normalizeContext{plan: plan, buf: buf, face: face, hasGposMark: plan.hasGposMark}

	alwaysShortCircuit := mode == nmNone
	mightShortCircuit := alwaysShortCircuit ||
		(mode != nmDecomposed && mode != nmComposedDiacriticsNoShortCircuit)

	// Phase 1: decompose. Runs of simple (markless) characters may
	// short-circuit on a composed glyph the font has; clusters containing
	// marks always decompose fully so that mark reordering sees them.
	info := buf.Info
	out := make([]GlyphInfo, 0, len(info)+4)
	i := 0
	count := len(info)
	for i < count {
		end := i + 1
		for end < count && !info[end].isUnicodeMark() {
			end++
		}
		if end < count {
			end-- // leave one base for the marks to cluster with
		}
		for i < end {
			decomposeCurrent(ctx, &out, &info[i], mightShortCircuit)
			i++
		}
		if i >= count {
			break
		}
		end = i + 1
		for end < count && info[end].isUnicodeMark() {
			end++
		}
		for i < end {
			decomposeCurrent(ctx, &out, &info[i], alwaysShortCircuit)
			i++
		}
	}
	if !ctx.buf.ensure(len(out)) {
		return
	}
	buf.Info = out

	// Phase 2: reorder marks by modified combining class (stable).
	count = len(buf.Info)
	i = 0
	for i < count {
		if infoCC(&buf.Info[i]) == 0 {
			i++
			continue
		}
		start := i
		for i < count && infoCC(&buf.Info[i]) != 0 {
			i++
		}
		if i-start > maxCombiningMarks {
			continue
		}
		buf.sortRangeWithClusters(start, i, func(a, b *GlyphInfo) bool {
			return infoCC(a) < infoCC(b)
		})
		plan.shaper.ReorderMarks(plan, buf, start, i)
	}

	// Phase 2b: unhide CGJ between marks in canonical order, so that GSUB
	// context matching can see it.
	info = buf.Info
	for i := 1; i+1 < len(info); i++ {
		if info[i].Codepoint == 0x034F {
			ccBefore := infoCC(&info[i-1])
			ccAfter := infoCC(&info[i+1])
			if ccAfter == 0 || ccBefore <= ccAfter {
				info[i].uprops &^= upropHidden
			}
		}
	}

	// Phase 3: recompose.
	if mode != nmComposedDiacritics && mode != nmComposedDiacriticsNoShortCircuit {
		return
	}
	recompose(ctx)
}

// decomposeCurrent appends the (possibly decomposed) rendition of one glyph
// info to out.
func decomposeCurrent(c *normalizeContext, out *[]GlyphInfo, info *GlyphInfo, shortCircuit bool) {
	if shortCircuit && hasGlyph(c.face, info.Codepoint) {
		*out = append(*out, *info)
		return
	}
	if decomposed := decomposeRecursive(c, info, info.Codepoint); decomposed != nil {
		*out = append(*out, decomposed...)
		return
	}
	if isVariationSelector(info.Codepoint) {
		// variation selectors are resolved during glyph mapping
		*out = append(*out, *info)
		return
	}
	*out = append(*out, *info)
}

// decomposeRecursive decomposes r as deeply as the font supports. Returns
// nil if no usable decomposition exists.
func decomposeRecursive(c *normalizeContext, template *GlyphInfo, r rune) []GlyphInfo {
	a, b, ok := c.plan.shaper.Decompose(c, r)
	if !ok || (b != 0 && !hasGlyph(c.face, b)) {
		return nil
	}
	var result []GlyphInfo
	if rec := decomposeRecursive(c, template, a); rec != nil {
		result = rec
	} else if hasGlyph(c.face, a) {
		info := *template
		info.Codepoint = a
		info.genCat = uniGeneralCategory(a)
		info.ccc = uniModifiedCombiningClass(a)
		result = []GlyphInfo{info}
	} else {
		return nil
	}
	if b != 0 {
		info := *template
		info.Codepoint = b
		info.genCat = uniGeneralCategory(b)
		info.ccc = uniModifiedCombiningClass(b)
		result = append(result, info)
	}
	return result
}

// recompose merges starter+mark pairs back into composed characters the
// font can render, honoring the shaper's compose filter.
func recompose(c *normalizeContext) {
	buf := c.buf
	info := buf.Info
	if len(info) < 2 {
		return
	}
	out := make([]GlyphInfo, 0, len(info))
	out = append(out, info[0])
	starter := 0
	for i := 1; i < len(info); i++ {
		ccc := infoCC(&info[i])
		if ccc == 0 {
			out = append(out, info[i])
			starter = len(out) - 1
			continue
		}
		// blocked if an intervening mark has the same or higher class
		blocked := false
		if starter < len(out)-1 {
			if infoCC(&out[len(out)-1]) >= ccc {
				blocked = true
			}
		}
		if !blocked {
			if composed, ok := c.plan.shaper.Compose(c, out[starter].Codepoint, info[i].Codepoint); ok &&
				hasGlyph(c.face, composed) {
				cluster := out[starter].Cluster
				if info[i].Cluster < cluster {
					cluster = info[i].Cluster
				}
				out[starter].Codepoint = composed
				out[starter].Cluster = cluster
				out[starter].genCat = uniGeneralCategory(composed)
				out[starter].ccc = uniModifiedCombiningClass(composed)
				continue
			}
		}
		out = append(out, info[i])
	}
	buf.Info = out
}

// infoCC returns the effective (possibly shaper-overridden) combining class
// of a glyph.
func infoCC(info *GlyphInfo) uint8 {
	return info.ccc
}

// sortRangeWithClusters is sortRange with cluster merging on moves, as mark
// reordering requires.
func (b *Buffer) sortRangeWithClusters(start, end int, less func(a, c *GlyphInfo) bool) {
	for i := start + 1; i < end; i++ {
		j := i
		for j > start && less(&b.Info[i], &b.Info[j-1]) {
			j--
		}
		if j == i {
			continue
		}
		b.mergeClusters(j, i+1)
		tmp := b.Info[i]
		copy(b.Info[j+1:i+1], b.Info[j:i])
		b.Info[j] = tmp
	}
}

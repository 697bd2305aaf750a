package otshape

// Legacy and AAT fallbacks: kern-table kerning, kerx kerning, morx
// non-contextual substitution and trak tracking, used when OpenType
// equivalents are absent or the plan prefers them.

// applyLegacyKern adds pair kerning from the legacy kern table to the
// horizontal advances. Kerning only applies between glyphs that both carry
// the kern feature mask and skips marks with zero advance.
func applyLegacyKern(plan *Plan, buf *Buffer) {
	if plan.kern == nil || len(buf.Info) < 2 {
		return
	}
	mask := plan.kernMask
	info := buf.Info
	pos := buf.Pos
	i := 0
	for i < len(info)-1 {
		if mask != 0 && info[i].Mask&mask == 0 {
			i++
			continue
		}
		// find the next kernable glyph, skipping zero-width marks
		j := i + 1
		for j < len(info) && info[j].isMark() && pos[j].XAdvance == 0 {
			j++
		}
		if j >= len(info) {
			break
		}
		if mask == 0 || info[j].Mask&mask != 0 {
			kern := int32(plan.kern.Kerning(info[i].Glyph, info[j].Glyph))
			if kern != 0 {
				kern1 := kern / 2
				kern2 := kern - kern1
				pos[i].XAdvance += kern1
				pos[j].XAdvance += kern2
				pos[j].XOffset += kern2
				buf.unsafeToBreak(i, j+1)
			}
		}
		i = j
	}
}

// applyKerx adds pair kerning from the kerx table.
func applyKerx(plan *Plan, buf *Buffer) {
	if plan.kerx == nil || len(buf.Info) < 2 {
		return
	}
	info := buf.Info
	pos := buf.Pos
	for i := 0; i+1 < len(info); i++ {
		kern := int32(plan.kerx.Kerning(info[i].Glyph, info[i+1].Glyph))
		if kern == 0 {
			continue
		}
		pos[i].XAdvance += kern
		buf.unsafeToBreak(i, i+2)
	}
}

// applyMorx runs the decoded morx substitution chains over the buffer, in
// place of GSUB.
func applyMorx(plan *Plan, buf *Buffer) {
	if plan.morx == nil {
		return
	}
	for ci := range plan.morx.Chains {
		chain := &plan.morx.Chains[ci]
		flags := chain.DefaultFlags
		for si := range chain.Subtables {
			sub := &chain.Subtables[si]
			if sub.Vertical != buf.Props.Direction.isVertical() {
				continue
			}
			if sub.FeatureFlags != 0 && sub.FeatureFlags&flags == 0 {
				continue
			}
			for i := range buf.Info {
				if g, ok := sub.Substitute(buf.Info[i].Glyph); ok {
					buf.Info[i].Glyph = g
					buf.Info[i].glyphProps |= glyphPropSubstituted
				}
			}
		}
	}
}

// applyTrak applies tracking to all advances. Tracking values are defined
// per point size; shaping in font units uses the neutral track at a nominal
// 12pt reading size.
func applyTrak(plan *Plan, buf *Buffer) {
	if plan.trak == nil {
		return
	}
	const nominalSize = 12 << 16 // 16.16 fixed
	if buf.Props.Direction.isHorizontal() {
		value, ok := plan.trak.Horizontal.TrackingFor(nominalSize)
		if !ok {
			return
		}
		for i := range buf.Pos {
			buf.Pos[i].XAdvance += int32(value)
		}
	} else {
		value, ok := plan.trak.Vertical.TrackingFor(nominalSize)
		if !ok {
			return
		}
		for i := range buf.Pos {
			buf.Pos[i].YAdvance += int32(value)
		}
	}
}

package ot

// Contextual lookup subtables, shared between GSUB (types 5/6) and
// GPOS (types 7/8).

// SequenceLookup is a nested lookup applied at a matched input position.
type SequenceLookup struct {
	SequenceIndex uint16
	LookupIndex   uint16
}

// SequenceRule is one rule of a format 1 or 2 sequence context. Input holds
// glyph ids (format 1) or class values (format 2) for the input sequence
// excluding its first glyph.
type SequenceRule struct {
	Input   []uint16
	Lookups []SequenceLookup
}

// SequenceContext is a parsed contextual subtable (formats 1–3).
type SequenceContext struct {
	Format    uint16
	Coverage  Coverage         // formats 1 and 2: coverage of the first glyph
	Rules     [][]SequenceRule // format 1: rule sets per coverage index
	ClassDef  ClassDef         // format 2
	Coverages []Coverage       // format 3: one coverage per input position
	Lookups   []SequenceLookup // format 3
}

// ChainedSequenceRule is one rule of a format 1 or 2 chained context.
type ChainedSequenceRule struct {
	Backtrack []uint16
	Input     []uint16 // excluding the first glyph
	Lookahead []uint16
	Lookups   []SequenceLookup
}

// ChainedContext is a parsed chained contextual subtable (formats 1–3).
type ChainedContext struct {
	Format             uint16
	Coverage           Coverage
	Rules              [][]ChainedSequenceRule
	BacktrackClassDef  ClassDef
	InputClassDef      ClassDef
	LookaheadClassDef  ClassDef
	BacktrackCoverages []Coverage
	InputCoverages     []Coverage
	LookaheadCoverages []Coverage
	Lookups            []SequenceLookup
}

func (ChainedContext) isGPOS()  {}
func (SequenceContext) isGPOS() {}

func parseSequenceLookups(b binarySegm, pos int, count int) ([]SequenceLookup, error) {
	seg, err := b.view(pos, count*4)
	if err != nil {
		return nil, err
	}
	lookups := make([]SequenceLookup, count)
	for i := range lookups {
		lookups[i] = SequenceLookup{
			SequenceIndex: u16(seg[i*4:]),
			LookupIndex:   u16(seg[i*4+2:]),
		}
	}
	return lookups, nil
}

func parseSequenceContext(b binarySegm) (SequenceContext, error) {
	format, err := b.u16(0)
	if err != nil {
		return SequenceContext{}, err
	}
	ctx := SequenceContext{Format: format}
	switch format {
	case 1, 2:
		cov, err := coverageAt(b, 2)
		if err != nil {
			return ctx, err
		}
		ctx.Coverage = cov
		pos := 4
		if format == 2 {
			cd, err := classDefAt(b, 4)
			if err != nil {
				return ctx, err
			}
			ctx.ClassDef = cd
			pos = 6
		}
		setCount, err := b.u16(pos)
		if err != nil {
			return ctx, err
		}
		ctx.Rules = make([][]SequenceRule, setCount)
		for i := 0; i < int(setCount); i++ {
			off, err := b.u16(pos + 2 + i*2)
			if err != nil || off == 0 || int(off) >= len(b) {
				continue
			}
			ctx.Rules[i] = parseSequenceRuleSet(b[off:])
		}
		return ctx, nil
	case 3:
		glyphCount, err := b.u16(2)
		if err != nil {
			return ctx, err
		}
		lookupCount, err := b.u16(4)
		if err != nil {
			return ctx, err
		}
		ctx.Coverages = make([]Coverage, glyphCount)
		for i := 0; i < int(glyphCount); i++ {
			cov, err := coverageAt(b, 6+i*2)
			if err != nil {
				return ctx, err
			}
			ctx.Coverages[i] = cov
		}
		lookups, err := parseSequenceLookups(b, 6+int(glyphCount)*2, int(lookupCount))
		if err != nil {
			return ctx, err
		}
		ctx.Lookups = lookups
		return ctx, nil
	}
	return ctx, errBufferBounds
}

func parseSequenceRuleSet(b binarySegm) []SequenceRule {
	count, err := b.u16(0)
	if err != nil {
		return nil
	}
	var rules []SequenceRule
	for i := 0; i < int(count); i++ {
		off, err := b.u16(2 + i*2)
		if err != nil || off == 0 || int(off) >= len(b) {
			continue
		}
		rule := b[off:]
		glyphCount, err1 := rule.u16(0)
		lookupCount, err2 := rule.u16(2)
		if err1 != nil || err2 != nil || glyphCount == 0 {
			continue
		}
		input, err := rule.u16s(4, int(glyphCount)-1)
		if err != nil {
			continue
		}
		lookups, err := parseSequenceLookups(rule, 4+(int(glyphCount)-1)*2, int(lookupCount))
		if err != nil {
			continue
		}
		rules = append(rules, SequenceRule{Input: input, Lookups: lookups})
	}
	return rules
}

func parseChainedContext(b binarySegm) (ChainedContext, error) {
	format, err := b.u16(0)
	if err != nil {
		return ChainedContext{}, err
	}
	ctx := ChainedContext{Format: format}
	switch format {
	case 1, 2:
		cov, err := coverageAt(b, 2)
		if err != nil {
			return ctx, err
		}
		ctx.Coverage = cov
		pos := 4
		if format == 2 {
			if ctx.BacktrackClassDef, err = classDefAt(b, 4); err != nil {
				return ctx, err
			}
			if ctx.InputClassDef, err = classDefAt(b, 6); err != nil {
				return ctx, err
			}
			if ctx.LookaheadClassDef, err = classDefAt(b, 8); err != nil {
				return ctx, err
			}
			pos = 10
		}
		setCount, err := b.u16(pos)
		if err != nil {
			return ctx, err
		}
		ctx.Rules = make([][]ChainedSequenceRule, setCount)
		for i := 0; i < int(setCount); i++ {
			off, err := b.u16(pos + 2 + i*2)
			if err != nil || off == 0 || int(off) >= len(b) {
				continue
			}
			ctx.Rules[i] = parseChainedRuleSet(b[off:])
		}
		return ctx, nil
	case 3:
		pos := 2
		if ctx.BacktrackCoverages, pos, err = parseCoverageArray(b, pos); err != nil {
			return ctx, err
		}
		if ctx.InputCoverages, pos, err = parseCoverageArray(b, pos); err != nil {
			return ctx, err
		}
		if ctx.LookaheadCoverages, pos, err = parseCoverageArray(b, pos); err != nil {
			return ctx, err
		}
		lookupCount, err := b.u16(pos)
		if err != nil {
			return ctx, err
		}
		lookups, err := parseSequenceLookups(b, pos+2, int(lookupCount))
		if err != nil {
			return ctx, err
		}
		ctx.Lookups = lookups
		return ctx, nil
	}
	return ctx, errBufferBounds
}

func parseChainedRuleSet(b binarySegm) []ChainedSequenceRule {
	count, err := b.u16(0)
	if err != nil {
		return nil
	}
	var rules []ChainedSequenceRule
	for i := 0; i < int(count); i++ {
		off, err := b.u16(2 + i*2)
		if err != nil || off == 0 || int(off) >= len(b) {
			continue
		}
		rule := b[off:]
		pos := 0
		btCount, err := rule.u16(pos)
		if err != nil {
			continue
		}
		backtrack, err := rule.u16s(pos+2, int(btCount))
		if err != nil {
			continue
		}
		pos += 2 + int(btCount)*2
		inCount, err := rule.u16(pos)
		if err != nil || inCount == 0 {
			continue
		}
		input, err := rule.u16s(pos+2, int(inCount)-1)
		if err != nil {
			continue
		}
		pos += 2 + (int(inCount)-1)*2
		laCount, err := rule.u16(pos)
		if err != nil {
			continue
		}
		lookahead, err := rule.u16s(pos+2, int(laCount))
		if err != nil {
			continue
		}
		pos += 2 + int(laCount)*2
		lkCount, err := rule.u16(pos)
		if err != nil {
			continue
		}
		lookups, err := parseSequenceLookups(rule, pos+2, int(lkCount))
		if err != nil {
			continue
		}
		rules = append(rules, ChainedSequenceRule{
			Backtrack: backtrack,
			Input:     input,
			Lookahead: lookahead,
			Lookups:   lookups,
		})
	}
	return rules
}

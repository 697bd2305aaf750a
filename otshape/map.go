package otshape

import (
	"math/bits"
	"sort"

	"github.com/npillmayer/textshape/ot"
)

// The feature/lookup map: accumulates feature requests from the driver, the
// selected shaping engine and the user, resolves them against the font's
// GSUB and GPOS feature lists, and compiles an ordered, stage-partitioned
// lookup schedule with per-feature mask bits.

// Table indices into the two-table arrays of the map.
const (
	tableGSUB = 0
	tableGPOS = 1
)

// featureFlags qualify how a requested feature is to be applied.
type featureFlags uint16

const (
	ffNone   featureFlags = 0
	ffGlobal featureFlags = 1 << iota
	ffHasFallback
	ffManualZWNJ
	ffManualZWJ
	ffGlobalSearch
	ffRandom
	ffPerSyllable
)

const (
	ffManualJoiners       = ffManualZWNJ | ffManualZWJ
	ffGlobalManualJoiners = ffGlobal | ffManualJoiners
	ffGlobalHasFallback   = ffGlobal | ffHasFallback
)

// otMapMaxValue is the largest feature value representable in a mask run.
const otMapMaxValue = 0xFFFFFFFF

// Feature is a user-requested feature with an application range.
// End == FeatureGlobalEnd means "to end of buffer".
type Feature struct {
	Tag   ot.Tag
	Value uint32
	Start int
	End   int
}

// Global feature range bounds.
const (
	FeatureGlobalStart = 0
	FeatureGlobalEnd   = int(^uint(0) >> 1)
)

// isGlobal returns true if the feature applies to the whole buffer.
func (f Feature) isGlobal() bool {
	return f.Start == FeatureGlobalStart && f.End == FeatureGlobalEnd
}

type featureInfo struct {
	tag          ot.Tag
	seq          int // sequence number for stable sorting
	maxValue     uint32
	flags        featureFlags
	defaultValue uint32 // for non-global features, a value of 0 disables
	stage        [2]int
}

// pauseFunc is invoked between lookup stages of a table.
type pauseFunc func(plan *Plan, face Face, buf *Buffer)

type stageEntry struct {
	index int // of first lookup of the *next* stage
	pause pauseFunc
}

// otMapBuilder accumulates feature requests before compilation.
type otMapBuilder struct {
	gsub *ot.GSUB
	gpos *ot.GPOS

	chosenScript [2]ot.Tag
	foundScript  [2]bool
	scriptIndex  [2]int
	langIndex    [2]*ot.LangSys

	currentStage [2]int
	featureInfos []featureInfo
	stages       [2][]stageEntry
}

func newOtMapBuilder(gsub *ot.GSUB, gpos *ot.GPOS, props SegmentProperties) *otMapBuilder {
	mb := &otMapBuilder{gsub: gsub, gpos: gpos}
	scriptTags := allTagsFromScript(props.Script)
	langTags := tagsFromLanguage(props.Language)

	for table := 0; table < 2; table++ {
		var header *ot.LayoutHeader
		if table == tableGSUB && gsub != nil {
			header = &gsub.LayoutHeader
		} else if table == tableGPOS && gpos != nil {
			header = &gpos.LayoutHeader
		}
		mb.chosenScript[table] = ot.DFLT
		if header == nil {
			continue
		}
		script, found := selectScript(header, scriptTags)
		mb.chosenScript[table] = script
		mb.foundScript[table] = found
		if rec := header.Script(script); rec != nil {
			mb.langIndex[table] = selectLanguage(rec, langTags)
		}
	}
	return mb
}

// selectScript picks the first candidate script present in the font,
// falling back to DFLT, 'dflt' and 'latn'.
func selectScript(header *ot.LayoutHeader, candidates []ot.Tag) (ot.Tag, bool) {
	for _, tag := range candidates {
		if header.Script(tag) != nil {
			return tag, true
		}
	}
	for _, tag := range []ot.Tag{ot.DFLT, ot.DfltLang, ot.T("latn")} {
		if header.Script(tag) != nil {
			return tag, false
		}
	}
	return ot.DFLT, false
}

func selectLanguage(script *ot.ScriptRecord, candidates []ot.Tag) *ot.LangSys {
	for _, tag := range candidates {
		for _, rec := range script.LangSys {
			if rec.Tag == tag {
				return rec.LangSys
			}
		}
	}
	// some fonts mistakenly list 'dflt' as a language
	for _, rec := range script.LangSys {
		if rec.Tag == ot.DfltLang {
			return rec.LangSys
		}
	}
	return script.DefaultLangSys
}

// addFeatureExt requests a feature with explicit value and flags.
func (mb *otMapBuilder) addFeatureExt(tag ot.Tag, flags featureFlags, value uint32) {
	if tag == 0 {
		return
	}
	info := featureInfo{
		tag:      tag,
		seq:      len(mb.featureInfos),
		maxValue: value,
		flags:    flags,
		stage:    [2]int{mb.currentStage[tableGSUB], mb.currentStage[tableGPOS]},
	}
	if flags&ffGlobal != 0 {
		info.defaultValue = value
	}
	mb.featureInfos = append(mb.featureInfos, info)
}

// addFeature requests a feature that is off by default (default value 0);
// it applies to the glyphs whose masks are set for it.
func (mb *otMapBuilder) addFeature(tag ot.Tag) {
	mb.addFeatureExt(tag, ffNone, 1)
}

// enableFeature requests a feature that applies globally.
func (mb *otMapBuilder) enableFeature(tag ot.Tag) {
	mb.addFeatureExt(tag, ffGlobal, 1)
}

func (mb *otMapBuilder) enableFeatureExt(tag ot.Tag, flags featureFlags, value uint32) {
	mb.addFeatureExt(tag, ffGlobal|flags, value)
}

func (mb *otMapBuilder) hasFeature(tag ot.Tag) bool {
	for table := 0; table < 2; table++ {
		if mb.findFeatureIndex(table, tag) >= 0 {
			return true
		}
	}
	return false
}

// addGSUBPause closes the current GSUB stage with a pause hook.
func (mb *otMapBuilder) addGSUBPause(fn pauseFunc) {
	mb.addPause(tableGSUB, fn)
}

func (mb *otMapBuilder) addPause(table int, fn pauseFunc) {
	mb.stages[table] = append(mb.stages[table], stageEntry{
		index: mb.currentStage[table],
		pause: fn,
	})
	mb.currentStage[table]++
}

func (mb *otMapBuilder) header(table int) *ot.LayoutHeader {
	if table == tableGSUB {
		if mb.gsub == nil {
			return nil
		}
		return &mb.gsub.LayoutHeader
	}
	if mb.gpos == nil {
		return nil
	}
	return &mb.gpos.LayoutHeader
}

// findFeatureIndex finds a feature by tag within the selected language
// system of a table, including its required feature. It does not scan the
// whole font; findFeatureIndexGlobal does.
func (mb *otMapBuilder) findFeatureIndex(table int, tag ot.Tag) int {
	header := mb.header(table)
	if header == nil {
		return -1
	}
	lsys := mb.langIndex[table]
	if lsys != nil {
		for _, fi := range lsys.FeatureIndices {
			if int(fi) < len(header.Features) && header.Features[fi].Tag == tag {
				return int(fi)
			}
		}
		if lsys.RequiredFeature >= 0 && lsys.RequiredFeature < len(header.Features) &&
			header.Features[lsys.RequiredFeature].Tag == tag {
			return lsys.RequiredFeature
		}
	}
	return -1
}

// findFeatureIndexGlobal scans the whole feature list, disregarding the
// script/language system. Used for ffGlobalSearch features like 'vert'.
func (mb *otMapBuilder) findFeatureIndexGlobal(table int, tag ot.Tag) int {
	header := mb.header(table)
	if header == nil {
		return -1
	}
	for i := range header.Features {
		if header.Features[i].Tag == tag {
			return i
		}
	}
	return -1
}

// --- Compiled map ----------------------------------------------------------

type featureMap struct {
	tag           ot.Tag
	index         [2]int // feature index per table, -1 if absent
	stage         [2]int
	shift         uint8
	mask          GlyphMask
	mask1         GlyphMask // mask for value 1, for quick tests
	needsFallback bool
	autoZWNJ      bool
	autoZWJ       bool
	random        bool
	perSyllable   bool
}

type lookupMap struct {
	index       uint16
	mask        GlyphMask
	autoZWNJ    bool
	autoZWJ     bool
	random      bool
	perSyllable bool
}

type stageMap struct {
	lastLookup int // exclusive
	pause      pauseFunc
}

// otMap is the compiled feature/lookup schedule of a plan. It is immutable
// after compile.
type otMap struct {
	chosenScript [2]ot.Tag
	foundScript  [2]bool

	globalMask GlyphMask
	features   []featureMap // sorted by tag
	lookups    [2][]lookupMap
	stages     [2][]stageMap
}

func (m *otMap) findFeature(tag ot.Tag) *featureMap {
	i := sort.Search(len(m.features), func(i int) bool { return m.features[i].tag >= tag })
	if i < len(m.features) && m.features[i].tag == tag {
		return &m.features[i]
	}
	return nil
}

// getMask returns the mask and shift for a feature tag.
func (m *otMap) getMask(tag ot.Tag) (GlyphMask, uint8) {
	if f := m.findFeature(tag); f != nil {
		return f.mask, f.shift
	}
	return 0, 0
}

// getMask1 returns the one-bit mask of a feature, 0 if absent.
func (m *otMap) getMask1(tag ot.Tag) GlyphMask {
	if f := m.findFeature(tag); f != nil {
		return f.mask1
	}
	return 0
}

func (m *otMap) needsFallback(tag ot.Tag) bool {
	if f := m.findFeature(tag); f != nil {
		return f.needsFallback
	}
	return false
}

func (m *otMap) featureStage(table int, tag ot.Tag) int {
	if f := m.findFeature(tag); f != nil {
		return f.stage[table]
	}
	return 0x7FFFFFFF
}

// stageLookups returns the lookups of one stage.
func (m *otMap) stageLookups(table, stage int) []lookupMap {
	if stage < 0 || stage >= len(m.stages[table]) {
		return nil
	}
	start := 0
	if stage > 0 {
		start = m.stages[table][stage-1].lastLookup
	}
	return m.lookups[table][start:m.stages[table][stage].lastLookup]
}

// compile resolves the collected features against the font and builds the
// lookup schedule.
func (mb *otMapBuilder) compile(m *otMap) {
	m.chosenScript = mb.chosenScript
	m.foundScript = mb.foundScript

	// close the last stage of both tables
	for table := 0; table < 2; table++ {
		mb.addPause(table, nil)
	}

	// sort features by tag, merging duplicate requests
	sort.SliceStable(mb.featureInfos, func(i, j int) bool {
		a, b := &mb.featureInfos[i], &mb.featureInfos[j]
		if a.tag != b.tag {
			return a.tag < b.tag
		}
		return a.seq < b.seq
	})
	// Merge duplicate requests: a later global request (user features come
	// last) overrides value and default; a later non-global request turns
	// the feature non-global and widens the value range.
	j := 0
	for i := 1; i < len(mb.featureInfos); i++ {
		a, b := &mb.featureInfos[j], &mb.featureInfos[i]
		if a.tag != b.tag {
			j++
			mb.featureInfos[j] = *b
			continue
		}
		if b.flags&ffGlobal != 0 {
			a.flags |= ffGlobal
			a.maxValue = b.maxValue
			a.defaultValue = b.defaultValue
		} else {
			a.flags &^= ffGlobal
			if a.maxValue < b.maxValue {
				a.maxValue = b.maxValue
			}
		}
		a.flags |= b.flags & ffHasFallback
		a.stage[tableGSUB] = minInt(a.stage[tableGSUB], b.stage[tableGSUB])
		a.stage[tableGPOS] = minInt(a.stage[tableGPOS], b.stage[tableGPOS])
	}
	if len(mb.featureInfos) > 0 {
		mb.featureInfos = mb.featureInfos[:j+1]
	}

	// Allocate mask bits. The bits covered by glyphFlagsDefined are
	// reserved for glyph flags; the next bit is the shared "global" bit
	// that every glyph carries, and feature values are packed above it.
	globalBitShift := uint8(bits.OnesCount32(uint32(glyphFlagsDefined)))
	globalBitMask := GlyphMask(1) << globalBitShift
	nextBit := uint(globalBitShift) + 1
	m.globalMask = globalBitMask

	var required [2]int
	for table := 0; table < 2; table++ {
		required[table] = -1
		if lsys := mb.langIndex[table]; lsys != nil {
			required[table] = lsys.RequiredFeature
		}
	}

	for _, info := range mb.featureInfos {
		var bitsNeeded uint
		if info.flags&ffGlobal != 0 && info.maxValue == 1 {
			bitsNeeded = 0 // uses the global bit
		} else {
			bitsNeeded = uint(bits.Len32(uint32(info.maxValue)))
			if bitsNeeded > 8 {
				bitsNeeded = 8
			}
		}
		if info.maxValue == 0 || nextBit+bitsNeeded >= 32 {
			continue // feature disabled or out of mask bits
		}
		var featIndex [2]int
		found := false
		for table := 0; table < 2; table++ {
			featIndex[table] = -1
			if info.flags&ffGlobalSearch != 0 {
				featIndex[table] = mb.findFeatureIndexGlobal(table, info.tag)
			} else {
				featIndex[table] = mb.findFeatureIndex(table, info.tag)
			}
			found = found || featIndex[table] >= 0
		}
		if !found && info.flags&ffHasFallback == 0 {
			continue
		}
		fm := featureMap{
			tag:           info.tag,
			index:         featIndex,
			stage:         info.stage,
			needsFallback: !found,
			autoZWNJ:      info.flags&ffManualZWNJ == 0,
			autoZWJ:       info.flags&ffManualZWJ == 0,
			random:        info.flags&ffRandom != 0,
			perSyllable:   info.flags&ffPerSyllable != 0,
		}
		if info.flags&ffGlobal != 0 && info.maxValue == 1 {
			fm.shift = globalBitShift
			fm.mask = globalBitMask
		} else {
			fm.shift = uint8(nextBit)
			fm.mask = GlyphMask(uint32(1)<<(nextBit+bitsNeeded) - uint32(1)<<nextBit)
			nextBit += bitsNeeded
			m.globalMask |= (GlyphMask(info.defaultValue) << fm.shift) & fm.mask
		}
		fm.mask1 = (GlyphMask(1) << fm.shift) & fm.mask
		m.features = append(m.features, fm)
	}
	// keep findFeature's binary search valid
	sort.SliceStable(m.features, func(i, j int) bool { return m.features[i].tag < m.features[j].tag })

	// collect lookups per table and stage
	for table := 0; table < 2; table++ {
		header := mb.header(table)
		stageCount := mb.currentStage[table]
		for stage := 0; stage < stageCount; stage++ {
			start := len(m.lookups[table])
			if header != nil {
				if req := required[table]; req >= 0 && stage == 0 {
					mb.collectLookups(m, table, req, globalBitMask, true, true, false, false)
				}
				for i := range m.features {
					f := &m.features[i]
					if f.index[table] < 0 || f.stage[table] != stage {
						continue
					}
					mb.collectLookups(m, table, f.index[table], f.mask, f.autoZWNJ, f.autoZWJ, f.random, f.perSyllable)
				}
			}
			// sort this stage's lookups by index and merge duplicates
			lookups := m.lookups[table][start:]
			sort.SliceStable(lookups, func(i, j int) bool { return lookups[i].index < lookups[j].index })
			k := 0
			for i := range lookups {
				if k > 0 && lookups[i].index == lookups[k-1].index {
					lookups[k-1].mask |= lookups[i].mask
					lookups[k-1].autoZWNJ = lookups[k-1].autoZWNJ && lookups[i].autoZWNJ
					lookups[k-1].autoZWJ = lookups[k-1].autoZWJ && lookups[i].autoZWJ
					continue
				}
				lookups[k] = lookups[i]
				k++
			}
			m.lookups[table] = m.lookups[table][:start+k]
			var pause pauseFunc
			if stage < len(mb.stages[table]) {
				pause = mb.stages[table][stage].pause
			}
			m.stages[table] = append(m.stages[table], stageMap{
				lastLookup: len(m.lookups[table]),
				pause:      pause,
			})
		}
	}
}

func (mb *otMapBuilder) collectLookups(m *otMap, table, featureIndex int, mask GlyphMask,
	autoZWNJ, autoZWJ, random, perSyllable bool,
) {
	header := mb.header(table)
	if header == nil || featureIndex < 0 || featureIndex >= len(header.Features) {
		return
	}
	for _, li := range header.Features[featureIndex].LookupIndices {
		m.lookups[table] = append(m.lookups[table], lookupMap{
			index:       li,
			mask:        mask,
			autoZWNJ:    autoZWNJ,
			autoZWJ:     autoZWJ,
			random:      random,
			perSyllable: perSyllable,
		})
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

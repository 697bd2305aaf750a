package otshape

import (
	"fmt"
	"unicode/utf8"

	"github.com/npillmayer/textshape/ot"
)

// GlyphMask is the per-glyph feature bit set. The low bit is reserved for
// the unsafe-to-break glyph flag; feature masks are allocated from bit 1
// upwards by the map builder.
type GlyphMask uint32

// GlyphUnsafeToBreak marks a glyph whose preceding cluster boundary cannot
// be used as a line break without re-shaping.
const GlyphUnsafeToBreak GlyphMask = 0x00000001

// glyphFlagsDefined is the set of mask bits that are glyph flags rather
// than feature bits.
const glyphFlagsDefined GlyphMask = GlyphUnsafeToBreak

// ContentType describes what a buffer currently holds.
type ContentType uint8

const (
	ContentTypeInvalid ContentType = iota
	ContentTypeUnicode             // code points, before shaping
	ContentTypeGlyphs              // glyph indices and positions, after shaping
)

// ClusterLevel selects the cluster merging policy.
type ClusterLevel uint8

const (
	// ClusterLevelMonotoneGraphemes merges continuation characters into
	// their base and keeps clusters monotone. The default.
	ClusterLevelMonotoneGraphemes ClusterLevel = iota
	// ClusterLevelMonotoneCharacters keeps marks in their own clusters but
	// still enforces monotone cluster values.
	ClusterLevelMonotoneCharacters
	// ClusterLevelCharacters performs no merging beyond what individual
	// substitutions require.
	ClusterLevelCharacters
)

func (cl ClusterLevel) isMonotone() bool {
	return cl == ClusterLevelMonotoneGraphemes || cl == ClusterLevelMonotoneCharacters
}

func (cl ClusterLevel) isGraphemes() bool {
	return cl == ClusterLevelMonotoneGraphemes
}

// BufferFlags control buffer behavior during shaping, set by the caller
// before Shape.
type BufferFlags uint16

const (
	BufferFlagDefault BufferFlags = 0
	// BufferFlagBOT indicates beginning of text (affects joining shapes).
	BufferFlagBOT BufferFlags = 1 << iota
	// BufferFlagEOT indicates end of text.
	BufferFlagEOT
	// BufferFlagPreserveDefaultIgnorables keeps default-ignorable glyphs
	// visible; wins over remove.
	BufferFlagPreserveDefaultIgnorables
	// BufferFlagRemoveDefaultIgnorables removes default-ignorable glyphs
	// from the output.
	BufferFlagRemoveDefaultIgnorables
	// BufferFlagDoNotInsertDottedCircle suppresses dotted-circle insertion
	// for broken clusters.
	BufferFlagDoNotInsertDottedCircle
)

type bufferScratchFlags uint16

const (
	bsfDefault              bufferScratchFlags = 0
	bsfHasNonASCII          bufferScratchFlags = 1 << iota
	bsfHasDefaultIgnorables
	bsfHasSpaceFallback
	bsfHasGlyphFlags
	bsfHasBrokenSyllable
	bsfArabicHasStch
)

// Glyph property bits derived from GDEF classes and substitution history.
const (
	glyphPropBase        uint16 = 0x02
	glyphPropLigature    uint16 = 0x04
	glyphPropMark        uint16 = 0x08
	glyphPropSubstituted uint16 = 0x10
	glyphPropLigated     uint16 = 0x20
	glyphPropMultiplied  uint16 = 0x40
	glyphPropPreserve           = glyphPropSubstituted | glyphPropLigated | glyphPropMultiplied
)

// Unicode property bits kept per glyph.
const (
	upropIgnorable    uint8 = 0x01
	upropHidden       uint8 = 0x02
	upropZWNJ         uint8 = 0x04
	upropZWJ          uint8 = 0x08
	upropContinuation uint8 = 0x10
)

// GlyphInfo is one element of the buffer's working array. Before shaping
// Codepoint holds a Unicode scalar; after shaping Glyph holds a glyph index.
//
// The lower-case fields are scratch space with phase-local meaning:
// genCat/ccc/uprops/spaceType are set during shaping setup and stay valid
// throughout; glyphProps and ligProps belong to the GSUB/GPOS engine;
// syllable, complexCategory and complexAux belong to the selected complex
// shaper between its preprocess and postprocess hooks.
type GlyphInfo struct {
	Codepoint rune
	Glyph     ot.GlyphIndex
	Mask      GlyphMask
	Cluster   int

	genCat    generalCategory
	ccc       uint8 // modified combining class
	uprops    uint8
	spaceType spaceFallback

	glyphProps uint16
	ligProps   uint8

	syllable        uint8
	complexCategory uint8
	complexAux      uint8
}

func (g *GlyphInfo) isDefaultIgnorable() bool {
	return g.uprops&upropIgnorable != 0 && !g.isLigated()
}

func (g *GlyphInfo) isHiddenIgnorable() bool  { return g.uprops&upropHidden != 0 }
func (g *GlyphInfo) isZWNJ() bool             { return g.uprops&upropZWNJ != 0 }
func (g *GlyphInfo) isZWJ() bool              { return g.uprops&upropZWJ != 0 }
func (g *GlyphInfo) isJoiner() bool           { return g.uprops&(upropZWNJ|upropZWJ) != 0 }
func (g *GlyphInfo) isContinuation() bool     { return g.uprops&upropContinuation != 0 }
func (g *GlyphInfo) isUnicodeMark() bool      { return g.genCat.isMark() }
func (g *GlyphInfo) isMark() bool             { return g.glyphProps&glyphPropMark != 0 }
func (g *GlyphInfo) isBaseGlyph() bool        { return g.glyphProps&glyphPropBase != 0 }
func (g *GlyphInfo) isLigatureGlyph() bool    { return g.glyphProps&glyphPropLigature != 0 }
func (g *GlyphInfo) isSubstituted() bool      { return g.glyphProps&glyphPropSubstituted != 0 }
func (g *GlyphInfo) isLigated() bool          { return g.glyphProps&glyphPropLigated != 0 }
func (g *GlyphInfo) isMultiplied() bool       { return g.glyphProps&glyphPropMultiplied != 0 }
func (g *GlyphInfo) isLigatedOrMultiplied() bool {
	return g.glyphProps&(glyphPropLigated|glyphPropMultiplied) != 0
}

func (g *GlyphInfo) clearSubstituted() {
	g.glyphProps &^= glyphPropSubstituted | glyphPropLigated | glyphPropMultiplied
}

// Ligature property accessors. Bit layout: bits 7–5 lig id, bit 4 marks the
// ligature glyph itself, bits 3–0 the component index (or count).
const ligPropIsBase uint8 = 0x10

func (g *GlyphInfo) ligID() uint8 { return g.ligProps >> 5 }

func (g *GlyphInfo) ligComp() uint8 {
	if g.ligProps&ligPropIsBase != 0 {
		return 0
	}
	return g.ligProps & 0x0F
}

func (g *GlyphInfo) ligNumComps() int {
	if g.glyphProps&glyphPropLigature != 0 && g.ligProps&ligPropIsBase != 0 {
		return int(g.ligProps & 0x0F)
	}
	return 1
}

func (g *GlyphInfo) setLigPropsForLigature(ligID uint8, numComps int) {
	g.ligProps = ligID<<5 | ligPropIsBase | uint8(numComps&0x0F)
}

func (g *GlyphInfo) setLigPropsForMark(ligID uint8, ligComp int) {
	g.ligProps = ligID<<5 | uint8(ligComp&0x0F)
}

func (g *GlyphInfo) setLigPropsForComponent(comp int) {
	g.ligProps = uint8(comp & 0x0F)
}

// String renders a glyph info for trace output.
func (g GlyphInfo) String() string {
	if g.Glyph != 0 || g.Codepoint == 0 {
		return fmt.Sprintf("[gid %d @%d]", g.Glyph, g.Cluster)
	}
	return fmt.Sprintf("[%#U @%d]", g.Codepoint, g.Cluster)
}

// GlyphPosition holds the positioning result for one glyph, in font units.
// attachChain and attachType record mark/cursive attachment until offsets
// are finalized at the end of positioning.
type GlyphPosition struct {
	XAdvance int32
	YAdvance int32
	XOffset  int32
	YOffset  int32

	attachChain int16
	attachType  uint8
}

// Attachment types recorded during GPOS.
const (
	attachTypeNone    uint8 = 0
	attachTypeMark    uint8 = 1
	attachTypeCursive uint8 = 2
)

// Buffer is the double-sided working array of the shaper: glyph infos plus
// positions, with cluster tracking and unsafe-to-break bookkeeping. A Buffer
// is exclusively owned during shaping and must not be shared concurrently.
type Buffer struct {
	Props        SegmentProperties
	Flags        BufferFlags
	ClusterLevel ClusterLevel

	// Replacement is substituted for ill-formed UTF-8 input (default
	// U+FFFD). Invisible, when non-zero, replaces hidden default
	// ignorables instead of the space glyph.
	Replacement rune
	Invisible   ot.GlyphIndex

	// MaxLen caps buffer growth; exceeding it sets the sticky
	// allocation-failed state. Zero means the default cap.
	MaxLen int

	Info []GlyphInfo
	Pos  []GlyphPosition

	contentType ContentType

	// The out side of the double buffer.
	outInfo    []GlyphInfo
	outLen     int
	haveOutput bool
	idx        int // read cursor on the in side

	preContext  []rune
	postContext []rune

	serial       uint8
	random       uint32
	maxOps       int
	scratchFlags bufferScratchFlags
	failed       bool // sticky allocation failure
}

const (
	maxLenDefault = 0x3FFFFFFF
	maxOpsDefault = 0x1FFFFFFF
	maxLenFactor  = 64
	maxLenMin     = 16384
	maxOpsFactor  = 1024
	maxOpsMin     = 16384
)

// NewBuffer creates an empty buffer with default settings.
func NewBuffer() *Buffer {
	return &Buffer{
		Replacement: 0xFFFD,
		random:      1,
		maxOps:      maxOpsDefault,
	}
}

// Len returns the number of glyphs on the buffer's in side.
func (b *Buffer) Len() int { return len(b.Info) }

// ContentType returns what the buffer currently holds.
func (b *Buffer) ContentType() ContentType { return b.contentType }

// SetContentType sets the buffer content type; used by callers that fill
// Info manually.
func (b *Buffer) SetContentType(ct ContentType) { b.contentType = ct }

// AllocationSuccessful reports false once any operation exceeded the
// buffer's growth cap. All operations on a failed buffer are no-ops.
func (b *Buffer) AllocationSuccessful() bool { return !b.failed }

// OutLength returns the current length of the out side during a pass.
func (b *Buffer) OutLength() int { return b.outLen }

// Index returns the read cursor on the in side.
func (b *Buffer) Index() int { return b.idx }

// SetIndex positions the read cursor; intended for diagnostic tooling.
func (b *Buffer) SetIndex(i int) {
	if i >= 0 && i <= len(b.Info) {
		b.idx = i
	}
}

// Allocated returns the capacity of the in side.
func (b *Buffer) Allocated() int { return cap(b.Info) }

// ScratchFlags exposes the transient shaping flags for diagnostics.
func (b *Buffer) ScratchFlags() uint16 { return uint16(b.scratchFlags) }

// SetScratchFlags overrides the transient shaping flags.
func (b *Buffer) SetScratchFlags(flags uint16) { b.scratchFlags = bufferScratchFlags(flags) }

// NormalizeGlyphs brings the glyphs of each cluster into a canonical order,
// so that identical shaping results compare equal regardless of the
// in-cluster emission order. Content type must be Glyphs.
func (b *Buffer) NormalizeGlyphs() {
	if b.contentType != ContentTypeGlyphs || len(b.Pos) != len(b.Info) {
		return
	}
	iter := b.clusterIteratorAt(0)
	for start, end := iter.next(); start < len(b.Info); start, end = iter.next() {
		// stable insertion sort by glyph index within the cluster
		for i := start + 1; i < end; i++ {
			j := i
			for j > start && b.Info[i].Glyph < b.Info[j-1].Glyph {
				j--
			}
			if j == i {
				continue
			}
			info := b.Info[i]
			pos := b.Pos[i]
			copy(b.Info[j+1:i+1], b.Info[j:i])
			copy(b.Pos[j+1:i+1], b.Pos[j:i])
			b.Info[j] = info
			b.Pos[j] = pos
		}
	}
}

// GlyphInfos returns the shaped glyph array.
func (b *Buffer) GlyphInfos() []GlyphInfo { return b.Info }

// GlyphPositions returns the positions array, valid once content type is
// ContentTypeGlyphs.
func (b *Buffer) GlyphPositions() []GlyphPosition { return b.Pos }

// ClearContents removes all glyphs but keeps properties and flags.
func (b *Buffer) ClearContents() {
	b.Info = b.Info[:0]
	b.Pos = b.Pos[:0]
	b.outInfo = nil
	b.outLen = 0
	b.idx = 0
	b.haveOutput = false
	b.contentType = ContentTypeInvalid
	b.preContext = b.preContext[:0]
	b.postContext = b.postContext[:0]
	b.scratchFlags = bsfDefault
	b.serial = 0
	b.failed = false
}

// Reset restores the buffer to its initial state.
func (b *Buffer) Reset() {
	b.ClearContents()
	b.Props = SegmentProperties{}
	b.Flags = BufferFlagDefault
	b.ClusterLevel = ClusterLevelMonotoneGraphemes
	b.Replacement = 0xFFFD
	b.Invisible = 0
	b.random = 1
	b.maxOps = maxOpsDefault
}

// maxAllowedLen returns the effective growth cap.
func (b *Buffer) maxAllowedLen() int {
	if b.MaxLen > 0 {
		return b.MaxLen
	}
	return maxLenDefault
}

// ensure checks that the buffer may grow to size glyphs; on cap overflow it
// sets the sticky failure state and returns false.
func (b *Buffer) ensure(size int) bool {
	if b.failed {
		return false
	}
	if size > b.maxAllowedLen() {
		tracer().Errorf("buffer exceeds maximum length %d", b.maxAllowedLen())
		b.failed = true
		return false
	}
	return true
}

// PreAllocate grows the underlying arrays to hold at least size glyphs.
func (b *Buffer) PreAllocate(size int) bool {
	if !b.ensure(size) {
		return false
	}
	if cap(b.Info) < size {
		info := make([]GlyphInfo, len(b.Info), size)
		copy(info, b.Info)
		b.Info = info
	}
	return true
}

// Add appends a single code point with an explicit cluster value.
func (b *Buffer) Add(codepoint rune, cluster int) {
	if !b.ensure(len(b.Info) + 1) {
		return
	}
	b.Info = append(b.Info, GlyphInfo{Codepoint: codepoint, Cluster: cluster})
	b.contentType = ContentTypeUnicode
}

// AddRunes appends runes of text; clusters count from clusterOffset by rune
// index.
func (b *Buffer) AddRunes(text []rune, clusterOffset int) {
	if !b.ensure(len(b.Info) + len(text)) {
		return
	}
	for i, r := range text {
		b.Info = append(b.Info, GlyphInfo{Codepoint: r, Cluster: clusterOffset + i})
	}
	b.contentType = ContentTypeUnicode
}

// AddString appends the runes of s, clusters counting from 0.
func (b *Buffer) AddString(s string) {
	b.AddRunes([]rune(s), 0)
}

// AddUTF8 appends itemLength bytes of text starting at itemOffset.
// Ill-formed sequences become the replacement code point. Cluster values
// are byte offsets into text. Bytes outside the item window provide
// pre-/post-context for joining-sensitive shaping.
func (b *Buffer) AddUTF8(text []byte, itemOffset, itemLength int) {
	if itemOffset < 0 || itemOffset > len(text) {
		return
	}
	if itemLength < 0 || itemOffset+itemLength > len(text) {
		itemLength = len(text) - itemOffset
	}
	// context before the item
	if len(b.Info) == 0 {
		pre := text[:itemOffset]
		for len(pre) > 0 && len(b.preContext) < 5 {
			r, size := utf8.DecodeLastRune(pre)
			if r == utf8.RuneError && size <= 1 {
				break
			}
			b.preContext = append(b.preContext, r)
			pre = pre[:len(pre)-size]
		}
	}
	segment := text[itemOffset : itemOffset+itemLength]
	pos := 0
	for pos < len(segment) {
		r, size := utf8.DecodeRune(segment[pos:])
		if r == utf8.RuneError && size == 1 {
			r = b.Replacement
		}
		b.Add(r, itemOffset+pos)
		pos += size
	}
	// context after the item
	post := text[itemOffset+itemLength:]
	for len(post) > 0 && len(b.postContext) < 5 {
		r, size := utf8.DecodeRune(post)
		if r == utf8.RuneError && size <= 1 {
			break
		}
		b.postContext = append(b.postContext, r)
		post = post[size:]
	}
}

// Append copies glyphs [start,end) of src onto b. Both buffers must hold
// the same content type.
func (b *Buffer) Append(src *Buffer, start, end int) {
	if src == nil || start >= end || start < 0 || end > len(src.Info) {
		return
	}
	if !b.ensure(len(b.Info) + (end - start)) {
		return
	}
	if b.contentType == ContentTypeInvalid {
		b.contentType = src.contentType
	}
	b.Info = append(b.Info, src.Info[start:end]...)
	if src.contentType == ContentTypeGlyphs && len(src.Pos) == len(src.Info) {
		b.Pos = append(b.Pos, src.Pos[start:end]...)
	}
}

// GuessSegmentProperties fills in unset segment properties from the buffer
// content: script from the first character with a real script, direction
// from the script.
func (b *Buffer) GuessSegmentProperties() {
	if b.Props.Script == 0 {
		for i := range b.Info {
			script := lookupScript(b.Info[i].Codepoint)
			if script != 0 && script != scriptCommon && script != scriptInherited {
				b.Props.Script = script
				break
			}
		}
	}
	if b.Props.Direction == DirectionInvalid {
		b.Props.Direction = scriptHorizontalDirection(b.Props.Script)
	}
}

// --- Masks -----------------------------------------------------------------

// resetMasks sets every glyph's mask to mask.
func (b *Buffer) resetMasks(mask GlyphMask) {
	for i := range b.Info {
		b.Info[i].Mask = mask
	}
}

// addMasks ORs mask into every glyph.
func (b *Buffer) addMasks(mask GlyphMask) {
	for i := range b.Info {
		b.Info[i].Mask |= mask
	}
}

// setMasks sets value under mask for glyphs whose cluster lies in
// [clusterStart, clusterEnd).
func (b *Buffer) setMasks(value, mask GlyphMask, clusterStart, clusterEnd int) {
	if mask == 0 {
		return
	}
	value &= mask
	for i := range b.Info {
		if b.Info[i].Cluster >= clusterStart && b.Info[i].Cluster < clusterEnd {
			b.Info[i].Mask = (b.Info[i].Mask &^ mask) | value
		}
	}
}

// --- Cluster handling ------------------------------------------------------

// mergeClusters assigns the minimum cluster value to glyphs [start,end) on
// the in side, extending the range to cluster boundaries. Under
// non-monotone cluster levels only unsafe-to-break bookkeeping happens.
func (b *Buffer) mergeClusters(start, end int) {
	if end-start < 2 || start < 0 || end > len(b.Info) {
		return
	}
	if !b.ClusterLevel.isMonotone() {
		b.unsafeToBreak(start, end)
		return
	}
	cluster := b.Info[start].Cluster
	for i := start + 1; i < end; i++ {
		if b.Info[i].Cluster < cluster {
			cluster = b.Info[i].Cluster
		}
	}
	// extend to cluster boundaries
	for start > 0 && b.Info[start-1].Cluster == b.Info[start].Cluster {
		start--
	}
	for end < len(b.Info) && b.Info[end-1].Cluster == b.Info[end].Cluster {
		end++
	}
	for i := start; i < end; i++ {
		b.setCluster(&b.Info[i], cluster)
	}
}

// mergeOutClusters is mergeClusters on the out side.
func (b *Buffer) mergeOutClusters(start, end int) {
	if !b.ClusterLevel.isMonotone() {
		return
	}
	if end-start < 2 || start < 0 || end > b.outLen {
		return
	}
	cluster := b.outInfo[start].Cluster
	for i := start + 1; i < end; i++ {
		if b.outInfo[i].Cluster < cluster {
			cluster = b.outInfo[i].Cluster
		}
	}
	for start > 0 && b.outInfo[start-1].Cluster == b.outInfo[start].Cluster {
		start--
	}
	for end < b.outLen && b.outInfo[end-1].Cluster == b.outInfo[end].Cluster {
		end++
	}
	for i := start; i < end; i++ {
		b.setCluster(&b.outInfo[i], cluster)
	}
}

// setCluster rewrites a glyph's cluster, carrying the unsafe-to-break flag.
func (b *Buffer) setCluster(info *GlyphInfo, cluster int) {
	if info.Cluster != cluster {
		info.Mask |= GlyphUnsafeToBreak
		b.scratchFlags |= bsfHasGlyphFlags
	}
	info.Cluster = cluster
}

// unsafeToBreak marks glyphs [start,end) — extended to cluster boundaries —
// as unsafe to break.
func (b *Buffer) unsafeToBreak(start, end int) {
	if start < 0 {
		start = 0
	}
	if end > len(b.Info) {
		end = len(b.Info)
	}
	if start >= end {
		return
	}
	for start > 0 && b.Info[start-1].Cluster == b.Info[start].Cluster {
		start--
	}
	for end < len(b.Info) && b.Info[end-1].Cluster == b.Info[end].Cluster {
		end++
	}
	for i := start; i < end; i++ {
		b.Info[i].Mask |= GlyphUnsafeToBreak
	}
	b.scratchFlags |= bsfHasGlyphFlags
}

// unsafeToBreakFromOutbuffer marks the span reaching from an out-side
// position across the in-side cursor, used while a substitution pass is in
// flight.
func (b *Buffer) unsafeToBreakFromOutbuffer(outStart, inEnd int) {
	if !b.haveOutput {
		b.unsafeToBreak(outStart, inEnd)
		return
	}
	if outStart < 0 {
		outStart = 0
	}
	if inEnd > len(b.Info) {
		inEnd = len(b.Info)
	}
	for i := outStart; i < b.outLen; i++ {
		b.outInfo[i].Mask |= GlyphUnsafeToBreak
	}
	for i := b.idx; i < inEnd; i++ {
		b.Info[i].Mask |= GlyphUnsafeToBreak
	}
	b.scratchFlags |= bsfHasGlyphFlags
}

// ResetClusters renumbers clusters monotonically from 0 by glyph index.
func (b *Buffer) ResetClusters() {
	for i := range b.Info {
		b.Info[i].Cluster = i
	}
}

// --- Reversal --------------------------------------------------------------

// Reverse reverses the glyph order of the whole buffer.
func (b *Buffer) Reverse() {
	b.ReverseRange(0, len(b.Info))
}

// ReverseRange reverses glyphs in [start,end).
func (b *Buffer) ReverseRange(start, end int) {
	if end-start < 2 || start < 0 || end > len(b.Info) {
		return
	}
	for i, j := start, end-1; i < j; i, j = i+1, j-1 {
		b.Info[i], b.Info[j] = b.Info[j], b.Info[i]
	}
	if len(b.Pos) >= end {
		for i, j := start, end-1; i < j; i, j = i+1, j-1 {
			b.Pos[i], b.Pos[j] = b.Pos[j], b.Pos[i]
		}
	}
}

// ReverseClusters reverses the buffer but keeps the glyphs of each cluster
// in order.
func (b *Buffer) ReverseClusters() {
	count := len(b.Info)
	if count == 0 {
		return
	}
	start := 0
	for i := 1; i < count; i++ {
		if b.Info[i].Cluster != b.Info[i-1].Cluster {
			b.ReverseRange(start, i)
			start = i
		}
	}
	b.ReverseRange(start, count)
	b.Reverse()
}

// --- The out side ----------------------------------------------------------

// clearOutput initializes the out side for a substitution pass.
func (b *Buffer) clearOutput() {
	b.haveOutput = true
	b.idx = 0
	b.outLen = 0
	if cap(b.outInfo) < len(b.Info) {
		b.outInfo = make([]GlyphInfo, 0, len(b.Info)+8)
	} else {
		b.outInfo = b.outInfo[:0]
	}
}

// cur returns the glyph at the read cursor plus i (on the in side).
func (b *Buffer) cur(i int) *GlyphInfo {
	return &b.Info[b.idx+i]
}

// prev returns the last glyph written to the out side.
func (b *Buffer) prev() *GlyphInfo {
	if b.outLen == 0 {
		return &b.Info[0]
	}
	return &b.outInfo[b.outLen-1]
}

// backtrackLen is the number of glyphs available for backtrack matching.
func (b *Buffer) backtrackLen() int {
	if b.haveOutput {
		return b.outLen
	}
	return b.idx
}

// backtrackInfo returns the glyph at backtrack position pos.
func (b *Buffer) backtrackInfo(pos int) *GlyphInfo {
	if b.haveOutput {
		if pos < 0 || pos >= b.outLen {
			return nil
		}
		return &b.outInfo[pos]
	}
	if pos < 0 || pos >= len(b.Info) {
		return nil
	}
	return &b.Info[pos]
}

// lookaheadLen is the number of glyphs from the cursor to the end of input.
func (b *Buffer) lookaheadLen() int {
	return len(b.Info) - b.idx
}

// nextGlyph copies the current glyph to the out side and advances.
func (b *Buffer) nextGlyph() {
	if b.failed {
		return
	}
	if b.haveOutput {
		b.outInfo = append(b.outInfo, b.Info[b.idx])
		b.outLen++
	}
	b.idx++
}

// nextGlyphs copies n glyphs to the out side.
func (b *Buffer) nextGlyphs(n int) {
	for i := 0; i < n && b.idx < len(b.Info); i++ {
		b.nextGlyph()
	}
}

// skipGlyph advances the cursor without emitting.
func (b *Buffer) skipGlyph() {
	b.idx++
}

// replaceGlyph consumes one input glyph and emits one with code point r.
func (b *Buffer) replaceGlyph(r rune) {
	b.replaceGlyphs(1, []rune{r}, nil)
}

// replaceGlyphIndex consumes one input glyph and emits glyph index g.
func (b *Buffer) replaceGlyphIndex(g ot.GlyphIndex) {
	if b.failed {
		return
	}
	info := b.Info[b.idx]
	info.Glyph = g
	b.outInfo = append(b.outInfo, info)
	b.outLen++
	b.idx++
}

// replaceGlyphs consumes numIn input glyphs and emits the given code points
// or glyph indices (exactly one of runes/glyphs is non-nil). The cluster of
// all outputs is the minimum cluster of the consumed inputs.
func (b *Buffer) replaceGlyphs(numIn int, runes []rune, glyphs []ot.GlyphIndex) {
	if b.failed {
		return
	}
	numOut := len(runes)
	if runes == nil {
		numOut = len(glyphs)
	}
	if numIn <= 0 || b.idx+numIn > len(b.Info) {
		return
	}
	if numIn > 1 || numOut > 1 {
		b.mergeClusters(b.idx, b.idx+numIn)
	}
	orig := b.Info[b.idx]
	for i := 0; i < numOut; i++ {
		info := orig
		if runes != nil {
			info.Codepoint = runes[i]
			info.Glyph = 0
		} else {
			info.Glyph = glyphs[i]
		}
		b.outInfo = append(b.outInfo, info)
		b.outLen++
	}
	b.idx += numIn
}

// outputGlyphIndex emits a glyph with index g without consuming input. The
// emitted glyph copies the current glyph's properties.
func (b *Buffer) outputGlyphIndex(g ot.GlyphIndex) {
	if b.failed {
		return
	}
	var info GlyphInfo
	if b.idx < len(b.Info) {
		info = b.Info[b.idx]
	} else if b.outLen > 0 {
		info = b.outInfo[b.outLen-1]
	}
	info.Glyph = g
	b.outInfo = append(b.outInfo, info)
	b.outLen++
}

// outputRune emits a code point without consuming input.
func (b *Buffer) outputRune(r rune) {
	if b.failed {
		return
	}
	var info GlyphInfo
	if b.idx < len(b.Info) {
		info = b.Info[b.idx]
	} else if b.outLen > 0 {
		info = b.outInfo[b.outLen-1]
	}
	info.Codepoint = r
	info.Glyph = 0
	b.outInfo = append(b.outInfo, info)
	b.outLen++
}

// outputInfo emits a fully prepared glyph info without consuming input.
func (b *Buffer) outputInfo(info GlyphInfo) {
	if b.failed {
		return
	}
	b.outInfo = append(b.outInfo, info)
	b.outLen++
}

// deleteGlyph removes the current glyph, merging its cluster into a
// neighbor.
func (b *Buffer) deleteGlyph() {
	cluster := b.Info[b.idx].Cluster
	if b.idx+1 < len(b.Info) && cluster == b.Info[b.idx+1].Cluster {
		// cluster survives in the next glyph
		b.skipGlyph()
		return
	}
	if b.outLen > 0 {
		// merge backward
		if cluster < b.outInfo[b.outLen-1].Cluster {
			old := b.outInfo[b.outLen-1].Cluster
			for i := b.outLen; i > 0 && b.outInfo[i-1].Cluster == old; i-- {
				b.setCluster(&b.outInfo[i-1], cluster)
			}
		}
		b.skipGlyph()
		return
	}
	if b.idx+1 < len(b.Info) {
		// merge forward
		b.mergeClusters(b.idx, b.idx+2)
	}
	b.skipGlyph()
}

// swapBuffers ends a substitution pass: pending input is flushed to the out
// side, which becomes the new in side.
func (b *Buffer) swapBuffers() {
	if b.failed {
		return
	}
	assert(b.haveOutput, "swapBuffers without active out side")
	for b.idx < len(b.Info) {
		b.nextGlyph()
	}
	b.Info, b.outInfo = b.outInfo[:b.outLen], b.Info[:0]
	b.haveOutput = false
	b.outLen = 0
	b.idx = 0
}

// shiftForward makes room before the cursor by shifting the remaining input.
func (b *Buffer) shiftForward(count int) bool {
	assert(b.haveOutput, "shiftForward without active out side")
	oldLen := len(b.Info)
	if !b.ensure(oldLen + count) {
		return false
	}
	b.Info = append(b.Info, make([]GlyphInfo, count)...)
	copy(b.Info[b.idx+count:], b.Info[b.idx:oldLen])
	if b.idx+count > oldLen {
		for j := oldLen; j < b.idx+count; j++ {
			b.Info[j] = GlyphInfo{}
		}
	}
	b.idx += count
	return true
}

// moveTo moves the working position to out-side index i, copying or
// rewinding glyphs as needed.
func (b *Buffer) moveTo(i int) bool {
	if b.failed {
		return false
	}
	if !b.haveOutput {
		assert(i <= len(b.Info), "moveTo position out of bounds")
		b.idx = i
		return true
	}
	if b.outLen < i {
		count := i - b.outLen
		if b.idx+count > len(b.Info) {
			return false
		}
		b.nextGlyphs(count)
	} else if b.outLen > i {
		count := b.outLen - i
		if b.idx < count && !b.shiftForward(count-b.idx) {
			return false
		}
		b.idx -= count
		b.outLen -= count
		copy(b.Info[b.idx:b.idx+count], b.outInfo[b.outLen:b.outLen+count])
		b.outInfo = b.outInfo[:b.outLen]
	}
	return true
}

// deleteGlyphsInplace removes glyphs matching filter after positioning,
// keeping Info and Pos aligned and merging clusters.
func (b *Buffer) deleteGlyphsInplace(filter func(*GlyphInfo) bool) {
	j := 0
	count := len(b.Info)
	for i := 0; i < count; i++ {
		if filter(&b.Info[i]) {
			cluster := b.Info[i].Cluster
			if i+1 < count && cluster == b.Info[i+1].Cluster {
				continue // cluster survives
			}
			if j > 0 {
				if cluster < b.Info[j-1].Cluster {
					old := b.Info[j-1].Cluster
					for k := j; k > 0 && b.Info[k-1].Cluster == old; k-- {
						b.setCluster(&b.Info[k-1], cluster)
					}
				}
				continue
			}
			if i+1 < count {
				b.mergeClusters(i, i+2)
			}
			continue
		}
		if j != i {
			b.Info[j] = b.Info[i]
			if len(b.Pos) == count {
				b.Pos[j] = b.Pos[i]
			}
		}
		j++
	}
	b.Info = b.Info[:j]
	if len(b.Pos) >= j {
		b.Pos = b.Pos[:j]
	}
}

// clearPositions (re)allocates the positions array to match Info.
func (b *Buffer) clearPositions() {
	if cap(b.Pos) < len(b.Info) {
		b.Pos = make([]GlyphPosition, len(b.Info))
		return
	}
	b.Pos = b.Pos[:len(b.Info)]
	for i := range b.Pos {
		b.Pos[i] = GlyphPosition{}
	}
}

// --- Sorting ---------------------------------------------------------------

// sortRange performs a stable insertion sort of Info[start:end) with the
// given ordering. Used for mark reordering, where runs are tiny.
func (b *Buffer) sortRange(start, end int, less func(a, c *GlyphInfo) bool) {
	for i := start + 1; i < end; i++ {
		j := i
		for j > start && less(&b.Info[i], &b.Info[j-1]) {
			j--
		}
		if j == i {
			continue
		}
		// rotate Info[j:i+1] right by one
		tmp := b.Info[i]
		copy(b.Info[j+1:i+1], b.Info[j:i])
		b.Info[j] = tmp
	}
}

// allocateLigID hands out a fresh (non-zero, 3 bit) ligature id.
func (b *Buffer) allocateLigID() uint8 {
	b.serial++
	ligID := b.serial & 0x07
	if ligID == 0 {
		b.serial++
		ligID = b.serial & 0x07
	}
	return ligID
}

// nextRandom steps the minstd PRNG used for the 'rand' feature.
func (b *Buffer) nextRandom() uint32 {
	b.random = uint32((uint64(b.random) * 48271) % 2147483647)
	return b.random
}

// --- Cluster iteration -----------------------------------------------------

// clusterIterator walks maximal same-cluster spans of the in side.
type clusterIterator struct {
	buffer *Buffer
	start  int
}

func (b *Buffer) clusterIteratorAt(start int) *clusterIterator {
	return &clusterIterator{buffer: b, start: start}
}

// next returns the next cluster span [start,end); start == len(Info) when
// iteration is done.
func (ci *clusterIterator) next() (int, int) {
	info := ci.buffer.Info
	start := ci.start
	if start >= len(info) {
		return len(info), len(info)
	}
	cluster := info[start].Cluster
	end := start + 1
	for end < len(info) && info[end].Cluster == cluster {
		end++
	}
	ci.start = end
	return start, end
}

// --- Unicode setup ---------------------------------------------------------

// setUnicodeProps computes per-glyph Unicode properties and buffer scratch
// flags. Runs once at the start of shaping.
func (b *Buffer) setUnicodeProps() {
	info := b.Info
	for i := 0; i < len(info); i++ {
		r := info[i].Codepoint
		info[i].genCat = uniGeneralCategory(r)
		info[i].ccc = uniModifiedCombiningClass(r)
		info[i].uprops = 0
		info[i].spaceType = spaceNot
		if r >= 0x80 {
			b.scratchFlags |= bsfHasNonASCII
		}
		cont := info[i].genCat.isMark()
		if isZWJ(r) {
			info[i].uprops |= upropZWJ
			cont = true
			// an Extended_Pictographic after ZWJ continues the grapheme
			if i+1 < len(info) && isExtendedPictographic(info[i+1].Codepoint) {
				info[i+1].uprops |= upropContinuation
			}
		}
		if isZWNJ(r) {
			info[i].uprops |= upropZWNJ
		}
		if isDefaultIgnorable(r) {
			info[i].uprops |= upropIgnorable
			b.scratchFlags |= bsfHasDefaultIgnorables
			if isHiddenIgnorable(r) {
				info[i].uprops |= upropHidden
			}
		}
		if info[i].genCat == spaceSeparator || r == 0x00A0 {
			if st := spaceFallbackType(r); st != spaceNot {
				info[i].spaceType = st
				b.scratchFlags |= bsfHasSpaceFallback
			}
		}
		// Emoji modifiers, tags and Kana voicing marks continue a grapheme.
		if (0x1F3FB <= r && r <= 0x1F3FF) || (0xE0020 <= r && r <= 0xE007F) ||
			r == 0xFF9E || r == 0xFF9F {
			cont = true
		}
		if i > 0 && 0x1F1E6 <= r && r <= 0x1F1FF &&
			0x1F1E6 <= info[i-1].Codepoint && info[i-1].Codepoint <= 0x1F1FF &&
			!info[i-1].isContinuation() {
			cont = true // second half of a regional-indicator pair
		}
		if cont {
			info[i].uprops |= upropContinuation
		}
	}
}

// formClusters merges grapheme groups (base plus continuations) under
// grapheme-aligned cluster levels, and marks them unsafe to break
// otherwise.
func (b *Buffer) formClusters() {
	n := len(b.Info)
	if n < 2 {
		return
	}
	start := 0
	for i := 1; i < n; i++ {
		if b.Info[i].isContinuation() {
			continue
		}
		if i > start+1 {
			if b.ClusterLevel.isGraphemes() {
				b.mergeClusters(start, i)
			} else {
				b.unsafeToBreak(start, i)
			}
		}
		start = i
	}
	if n > start+1 {
		if b.ClusterLevel.isGraphemes() {
			b.mergeClusters(start, n)
		} else {
			b.unsafeToBreak(start, n)
		}
	}
}

// ensureNativeDirection reverses the buffer if the requested direction is
// not the script's native horizontal direction, so that shaping always sees
// glyphs in logical-to-visual native order.
func (b *Buffer) ensureNativeDirection() {
	direction := b.Props.Direction
	horiDirection := scriptHorizontalDirection(b.Props.Script)
	if (direction.isHorizontal() && direction != horiDirection && horiDirection != DirectionInvalid) ||
		(direction.isVertical() && direction != TopToBottom) {
		b.ReverseClusters()
		b.Props.Direction = b.Props.Direction.reverse()
	}
}

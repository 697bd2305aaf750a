package otshape

import (
	tslang "github.com/go-text/typesetting/language"
	"github.com/npillmayer/textshape/ot"
)

// Complex shapers: script-specific shaping engines selected at plan-compile
// time. Every engine is a capability set — feature collection, text
// pre-/postprocessing, normalization hooks, mask setup, mark handling —
// with no-op defaults provided by complexShaperNil.

// ZeroWidthMarksMode selects when and how mark advances are zeroed.
type ZeroWidthMarksMode uint8

const (
	ZeroWidthMarksNone ZeroWidthMarksMode = iota
	ZeroWidthMarksByGDEFEarly
	ZeroWidthMarksByGDEFLate
	ZeroWidthMarksByUnicodeEarly
	ZeroWidthMarksByUnicodeLate
	ZeroWidthMarksAdvances
)

// NormalizationMode is a shaper's normalization preference.
type NormalizationMode uint8

const (
	nmAuto NormalizationMode = iota
	nmNone
	nmDecomposed
	nmComposedDiacritics
	nmComposedDiacriticsNoShortCircuit
)

// ShapingEngine is the capability set of a complex shaper. Engines are
// stateless; per-plan data lives on the Plan (set up in InitPlan).
type ShapingEngine interface {
	Name() string

	// Plan-time hooks.
	CollectFeatures(planner *shapePlanner)
	OverrideFeatures(planner *shapePlanner)
	InitPlan(plan *Plan)
	GposTag() ot.Tag
	MarksBehavior() (ZeroWidthMarksMode, bool) // zeroing mode, fallback positioning
	NormalizationPreference() NormalizationMode

	// Normalization hooks.
	Decompose(c *normalizeContext, ab rune) (a, b rune, ok bool)
	Compose(c *normalizeContext, a, b rune) (ab rune, ok bool)
	ReorderMarks(plan *Plan, buf *Buffer, start, end int)

	// Shaping hooks.
	PreprocessText(plan *Plan, buf *Buffer, face Face)
	SetupMasks(plan *Plan, buf *Buffer, face Face)
	PostprocessGlyphs(plan *Plan, buf *Buffer, face Face)
}

// complexShaperNil provides no-ops; shapers embed it to reduce boilerplate.
type complexShaperNil struct{}

func (complexShaperNil) CollectFeatures(*shapePlanner)  {}
func (complexShaperNil) OverrideFeatures(*shapePlanner) {}
func (complexShaperNil) InitPlan(*Plan)                 {}
func (complexShaperNil) GposTag() ot.Tag                { return 0 }

func (complexShaperNil) Decompose(c *normalizeContext, ab rune) (rune, rune, bool) {
	return c.decomposeUnicode(ab)
}

func (complexShaperNil) Compose(c *normalizeContext, a, b rune) (rune, bool) {
	return c.composeUnicode(a, b)
}

func (complexShaperNil) ReorderMarks(*Plan, *Buffer, int, int)      {}
func (complexShaperNil) PreprocessText(*Plan, *Buffer, Face)        {}
func (complexShaperNil) SetupMasks(*Plan, *Buffer, Face)            {}
func (complexShaperNil) PostprocessGlyphs(*Plan, *Buffer, Face)     {}

// complexShaperDefault is the engine for scripts without special needs.
type complexShaperDefault struct {
	complexShaperNil

	// if dumb, no mark advance zeroing and no fallback positioning; used
	// when AAT substitution drives the buffer.
	dumb bool
	// composedDiacritics forces recomposition even for scripts that would
	// otherwise short-circuit (Tibetan and friends).
	composedDiacritics bool
}

var _ ShapingEngine = complexShaperDefault{}

func (cs complexShaperDefault) Name() string { return "default" }

func (cs complexShaperDefault) MarksBehavior() (ZeroWidthMarksMode, bool) {
	if cs.dumb {
		return ZeroWidthMarksNone, false
	}
	return ZeroWidthMarksByGDEFLate, true
}

func (cs complexShaperDefault) NormalizationPreference() NormalizationMode {
	if cs.dumb {
		return nmNone
	}
	if cs.composedDiacritics {
		return nmComposedDiacriticsNoShortCircuit
	}
	return nmAuto
}

// scripts driven by the Universal Shaping Engine
var useScripts = map[tslang.Script]bool{
	tslang.Balinese:     true,
	tslang.Batak:        true,
	tslang.Brahmi:       true,
	tslang.Buginese:     true,
	tslang.Buhid:        true,
	tslang.Chakma:       true,
	tslang.Cham:         true,
	tslang.Grantha:      true,
	tslang.Hanunoo:      true,
	tslang.Javanese:     true,
	tslang.Kaithi:       true,
	tslang.Kayah_Li:     true,
	tslang.Kharoshthi:   true,
	tslang.Khojki:       true,
	tslang.Khudawadi:    true,
	tslang.Lepcha:       true,
	tslang.Limbu:        true,
	tslang.Mahajani:     true,
	tslang.Meetei_Mayek: true,
	tslang.Modi:         true,
	tslang.Newa:         true,
	tslang.Rejang:       true,
	tslang.Saurashtra:   true,
	tslang.Sharada:      true,
	tslang.Siddham:      true,
	tslang.Sundanese:    true,
	tslang.Syloti_Nagri: true,
	tslang.Tagalog:      true,
	tslang.Tagbanwa:     true,
	tslang.Tai_Le:       true,
	tslang.Tai_Tham:     true,
	tslang.Tai_Viet:     true,
	tslang.Takri:        true,
	tslang.Tirhuta:      true,
}

// scripts shaped by the Arabic joining machinery
var arabicLikeScripts = map[tslang.Script]bool{
	tslang.Arabic:          true,
	tslang.Syriac:          true,
	tslang.Mongolian:       true,
	tslang.Nko:             true,
	tslang.Phags_Pa:        true,
	tslang.Mandaic:         true,
	tslang.Manichaean:      true,
	tslang.Psalter_Pahlavi: true,
	tslang.Adlam:           true,
	tslang.Hanifi_Rohingya: true,
	tslang.Sogdian:         true,
}

var indicScripts = map[tslang.Script]bool{
	tslang.Bengali:    true,
	tslang.Devanagari: true,
	tslang.Gujarati:   true,
	tslang.Gurmukhi:   true,
	tslang.Kannada:    true,
	tslang.Malayalam:  true,
	tslang.Oriya:      true,
	tslang.Tamil:      true,
	tslang.Telugu:     true,
	tslang.Sinhala:    true,
}

// categorizeComplex selects the shaping engine for a planner. The choice
// depends on the script and on whether the font actually carries layout
// rules for it — a font without Indic features shapes Indic text with the
// default engine (plus dotted circles), matching the original behavior.
func (planner *shapePlanner) categorizeComplex() ShapingEngine {
	script := planner.props.Script
	chosenGSUB := planner.mapBuilder.chosenScript[tableGSUB]

	switch {
	case arabicLikeScripts[script]:
		// For Arabic itself always use the Arabic shaper, to get joining
		// fallback shaping; for the other joining scripts only when the
		// font knows the script.
		if script == tslang.Arabic || planner.mapBuilder.foundScript[tableGSUB] {
			return shaperArabic{}
		}
		return complexShaperDefault{}
	case script == tslang.Thai || script == tslang.Lao:
		return shaperThai{}
	case script == tslang.Hangul:
		return shaperHangul{}
	case script == tslang.Hebrew:
		return shaperHebrew{}
	case script == tslang.Tibetan:
		return complexShaperDefault{composedDiacritics: true}
	case script == tslang.Khmer:
		if useOT2Script(chosenGSUB, planner.mapBuilder.foundScript[tableGSUB]) {
			return shaperKhmer{}
		}
		return complexShaperDefault{}
	case script == tslang.Myanmar:
		if chosenGSUB == ot.T("mym2") {
			return shaperMyanmar{}
		}
		return complexShaperDefault{}
	case indicScripts[script]:
		if useOT2Script(chosenGSUB, planner.mapBuilder.foundScript[tableGSUB]) {
			return shaperIndic{}
		}
		return complexShaperDefault{}
	case useScripts[script]:
		if planner.mapBuilder.foundScript[tableGSUB] {
			return shaperUSE{}
		}
		return complexShaperDefault{}
	}
	return complexShaperDefault{}
}

// useOT2Script reports whether the chosen GSUB script warrants the full
// syllabic machinery (an explicitly supported script, old or new spec).
func useOT2Script(chosen ot.Tag, found bool) bool {
	return found && chosen != ot.DFLT
}

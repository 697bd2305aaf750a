package otshape

import (
	"reflect"
	"sort"
	"sync"

	"github.com/npillmayer/textshape/ot"
)

// The shaping plan: everything that can be precomputed for a (face, segment
// properties, user features) triple. Plans are immutable after compile and
// safe to share between concurrent shape calls.

// Plan is a compiled shaping plan.
type Plan struct {
	props  SegmentProperties
	shaper ShapingEngine
	map_   otMap

	// parsed font tables, shared by all executions of the plan
	gsub *ot.GSUB
	gpos *ot.GPOS
	gdef *ot.GDEF
	kern *ot.KernTable
	kerx *ot.KerxTable
	morx *ot.MorxTable
	trak *ot.TrakTable

	fracMask GlyphMask
	numrMask GlyphMask
	dnomMask GlyphMask
	rtlmMask GlyphMask
	kernMask GlyphMask
	trakMask GlyphMask

	requestedKerning  bool
	requestedTracking bool

	hasFrac                          bool
	hasVert                          bool
	hasGposMark                      bool
	zeroMarks                        bool
	fallbackGlyphClasses             bool
	fallbackMarkPositioning          bool
	adjustMarkPositioningWhenZeroing bool

	applyGpos bool
	applyKern bool
	applyKerx bool
	applyMorx bool
	applyTrak bool

	// shaperData holds per-shaper plan data created by InitPlan (Arabic
	// mask arrays, Indic configuration, …).
	shaperData any
}

// Props returns the segment properties the plan was compiled for.
func (p *Plan) Props() SegmentProperties { return p.props }

// FeatureMask1 returns the one-bit mask of a compiled feature.
func (p *Plan) FeatureMask1(tag ot.Tag) GlyphMask { return p.map_.getMask1(tag) }

// FeatureNeedsFallback reports whether a requested feature found no support
// in the font.
func (p *Plan) FeatureNeedsFallback(tag ot.Tag) bool { return p.map_.needsFallback(tag) }

// shapePlanner drives plan compilation.
type shapePlanner struct {
	face  Face
	props SegmentProperties

	gsub *ot.GSUB
	gpos *ot.GPOS
	gdef *ot.GDEF

	mapBuilder *otMapBuilder
	shaper     ShapingEngine

	scriptZeroMarks               ZeroWidthMarksMode
	scriptFallbackMarkPositioning bool
}

// Feature-request surface handed to complex shapers during CollectFeatures
// and OverrideFeatures.

func (planner *shapePlanner) enableFeature(tag ot.Tag) { planner.mapBuilder.enableFeature(tag) }

func (planner *shapePlanner) enableFeatureExt(tag ot.Tag, flags featureFlags, value uint32) {
	planner.mapBuilder.enableFeatureExt(tag, flags, value)
}

func (planner *shapePlanner) addFeature(tag ot.Tag) { planner.mapBuilder.addFeature(tag) }

func (planner *shapePlanner) addFeatureExt(tag ot.Tag, flags featureFlags, value uint32) {
	planner.mapBuilder.addFeatureExt(tag, flags, value)
}

func (planner *shapePlanner) addGSUBPause(fn pauseFunc) { planner.mapBuilder.addGSUBPause(fn) }

func (planner *shapePlanner) hasFeature(tag ot.Tag) bool { return planner.mapBuilder.hasFeature(tag) }

func newShapePlanner(face Face, props SegmentProperties) *shapePlanner {
	planner := &shapePlanner{
		face:  face,
		props: props,
		gsub:  ot.ParseGSUB(face.Table(ot.T("GSUB"))),
		gpos:  ot.ParseGPOS(face.Table(ot.T("GPOS"))),
		gdef:  ot.ParseGDEF(face.Table(ot.T("GDEF"))),
	}
	planner.mapBuilder = newOtMapBuilder(planner.gsub, planner.gpos, props)
	planner.shaper = planner.categorizeComplex()
	zwm, fallback := planner.shaper.MarksBehavior()
	planner.scriptZeroMarks = zwm
	planner.scriptFallbackMarkPositioning = fallback
	return planner
}

var (
	commonFeatures = [...]struct {
		tag   ot.Tag
		flags featureFlags
	}{
		{ot.T("abvm"), ffGlobal},
		{ot.T("blwm"), ffGlobal},
		{ot.T("ccmp"), ffGlobal},
		{ot.T("locl"), ffGlobal},
		{ot.T("mark"), ffGlobalManualJoiners},
		{ot.T("mkmk"), ffGlobalManualJoiners},
		{ot.T("rlig"), ffGlobal},
	}

	horizontalFeatures = [...]struct {
		tag   ot.Tag
		flags featureFlags
	}{
		{ot.T("calt"), ffGlobal},
		{ot.T("clig"), ffGlobal},
		{ot.T("curs"), ffGlobal},
		{ot.T("dist"), ffGlobal},
		{ot.T("kern"), ffGlobalHasFallback},
		{ot.T("liga"), ffGlobal},
		{ot.T("rclt"), ffGlobal},
	}
)

// collectFeatures gathers the driver's default features, the shaper's
// script features and the user's requests into the map builder.
func (planner *shapePlanner) collectFeatures(userFeatures []Feature) {
	mb := planner.mapBuilder

	mb.enableFeature(ot.T("rvrn"))
	mb.addGSUBPause(nil)

	switch planner.props.Direction {
	case LeftToRight:
		mb.enableFeature(ot.T("ltra"))
		mb.enableFeature(ot.T("ltrm"))
	case RightToLeft:
		mb.enableFeature(ot.T("rtla"))
		mb.addFeature(ot.T("rtlm"))
	}

	// automatic fractions
	mb.addFeature(ot.T("frac"))
	mb.addFeature(ot.T("numr"))
	mb.addFeature(ot.T("dnom"))

	// 'rand' needs a full value range for alternate selection
	mb.enableFeatureExt(ot.T("rand"), ffRandom, otMapMaxValue)

	planner.shaper.CollectFeatures(planner)

	for _, feat := range commonFeatures {
		mb.addFeatureExt(feat.tag, feat.flags, 1)
	}
	if planner.props.Direction.isHorizontal() {
		for _, feat := range horizontalFeatures {
			mb.addFeatureExt(feat.tag, feat.flags, 1)
		}
	} else {
		// find a 'vert' feature wherever the font lists it
		mb.enableFeatureExt(ot.T("vert"), ffGlobalSearch, 1)
	}

	for _, f := range userFeatures {
		flags := ffNone
		if f.isGlobal() {
			flags = ffGlobal
		}
		mb.addFeatureExt(f.Tag, flags, f.Value)
	}

	planner.shaper.OverrideFeatures(planner)
}

// compile finalizes the plan: the lookup map, the behavior flags, and the
// legacy/AAT decisions.
func (planner *shapePlanner) compile(plan *Plan, userFeatures []Feature) {
	plan.props = planner.props
	plan.shaper = planner.shaper
	plan.gsub = planner.gsub
	plan.gpos = planner.gpos
	plan.gdef = planner.gdef

	planner.mapBuilder.compile(&plan.map_)

	plan.fracMask = plan.map_.getMask1(ot.T("frac"))
	plan.numrMask = plan.map_.getMask1(ot.T("numr"))
	plan.dnomMask = plan.map_.getMask1(ot.T("dnom"))
	plan.hasFrac = plan.fracMask != 0 || (plan.numrMask != 0 && plan.dnomMask != 0)

	plan.rtlmMask = plan.map_.getMask1(ot.T("rtlm"))
	plan.hasVert = plan.map_.getMask1(ot.T("vert")) != 0

	plan.kernMask = plan.map_.getMask1(ot.T("kern"))
	plan.requestedKerning = plan.kernMask != 0
	for _, f := range userFeatures {
		if f.Tag == ot.T("kern") && f.Value == 0 && f.isGlobal() {
			plan.requestedKerning = false
		}
		if f.Tag == ot.T("trak") && f.Value != 0 {
			plan.requestedTracking = true
		}
	}

	// decide who provides glyph classes: GDEF or synthesized from Unicode
	plan.fallbackGlyphClasses = !plan.gdef.HasGlyphClasses()

	// decide who does substitution: GSUB or morx
	plan.morx = ot.ParseMorx(planner.face.Table(ot.T("morx")))
	preferMorx := plan.gsub == nil || len(plan.gsub.Lookups) == 0
	plan.applyMorx = preferMorx && plan.morx.HasSubstitutions()
	if plan.applyMorx {
		// AAT substitution runs the dumbest pipeline
		plan.shaper = complexShaperDefault{dumb: true}
	}

	// decide who does positioning: GPOS, kerx, or legacy kern
	gposTag := plan.shaper.GposTag()
	disableGpos := gposTag != 0 && gposTag != plan.map_.chosenScript[tableGPOS]
	plan.applyGpos = plan.gpos != nil && len(plan.gpos.Lookups) > 0 && !disableGpos

	gposHasKern := false
	if f := plan.map_.findFeature(ot.T("kern")); f != nil && f.index[tableGPOS] >= 0 {
		gposHasKern = true
	}
	if plan.requestedKerning && !(plan.applyGpos && gposHasKern) {
		plan.kerx = ot.ParseKerx(planner.face.Table(ot.T("kerx")))
		if plan.kerx.HasKerning() {
			plan.applyKerx = true
		} else {
			plan.kern = ot.ParseKern(planner.face.Table(ot.T("kern")))
			plan.applyKern = plan.kern.HasKerning()
		}
	}
	if plan.requestedTracking {
		plan.trak = ot.ParseTrak(planner.face.Table(ot.T("trak")))
		plan.applyTrak = plan.trak != nil
	}

	plan.zeroMarks = planner.scriptZeroMarks != ZeroWidthMarksNone && !plan.applyMorx
	plan.hasGposMark = plan.map_.getMask1(ot.T("mark")) != 0

	plan.adjustMarkPositioningWhenZeroing = !plan.applyGpos && !plan.applyKerx
	plan.fallbackMarkPositioning = plan.adjustMarkPositioningWhenZeroing &&
		planner.scriptFallbackMarkPositioning

	plan.shaper.InitPlan(plan)
}

// NewPlan compiles a shaping plan for a face, segment properties and user
// features. The plan is immutable and may be shared.
func NewPlan(face Face, props SegmentProperties, userFeatures []Feature) *Plan {
	planner := newShapePlanner(face, props)
	planner.collectFeatures(userFeatures)
	plan := &Plan{}
	planner.compile(plan, userFeatures)
	tracer().Debugf("compiled shaping plan for script %s, shaper %s",
		plan.map_.chosenScript[tableGSUB], plan.shaper.Name())
	return plan
}

// --- Plan caching ----------------------------------------------------------

type planCacheKey struct {
	direction Direction
	script    uint32
	language  string
	features  string
}

type planCache struct {
	mu    sync.Mutex
	plans map[planCacheKey]*Plan
}

var planCaches sync.Map // Face → *planCache

func cacheKeyFor(props SegmentProperties, features []Feature) planCacheKey {
	key := planCacheKey{
		direction: props.Direction,
		script:    uint32(props.Script),
		language:  props.Language.normalize(),
	}
	if len(features) > 0 {
		fs := append([]Feature(nil), features...)
		sort.Slice(fs, func(i, j int) bool { return fs[i].Tag < fs[j].Tag })
		var sb []byte
		for _, f := range fs {
			sb = append(sb, byte(f.Tag>>24), byte(f.Tag>>16), byte(f.Tag>>8), byte(f.Tag),
				byte(f.Value>>24), byte(f.Value>>16), byte(f.Value>>8), byte(f.Value),
				byte(f.Start>>24), byte(f.Start>>16), byte(f.Start>>8), byte(f.Start),
				byte(f.End>>24), byte(f.End>>16), byte(f.End>>8), byte(f.End))
		}
		key.features = string(sb)
	}
	return key
}

// planFor returns a cached plan or compiles a new one. Face implementations
// must be comparable for caching to apply; otherwise a fresh plan is
// compiled per call.
func planFor(face Face, props SegmentProperties, features []Feature) *Plan {
	if !reflect.TypeOf(face).Comparable() {
		return NewPlan(face, props, features)
	}
	cacheAny, _ := planCaches.LoadOrStore(face, &planCache{})
	cache := cacheAny.(*planCache)
	key := cacheKeyFor(props, features)
	cache.mu.Lock()
	if plan, ok := cache.plans[key]; ok {
		cache.mu.Unlock()
		return plan
	}
	cache.mu.Unlock()
	plan := NewPlan(face, props, features)
	cache.mu.Lock()
	if cache.plans == nil {
		cache.plans = make(map[planCacheKey]*Plan)
	}
	cache.plans[key] = plan
	cache.mu.Unlock()
	return plan
}

package otshape

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/npillmayer/textshape/ot"
	"github.com/stretchr/testify/require"
)

func TestMapCompileGlobalBit(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := newTestFace()
	face.addGlyph('f', 14, 300)
	face.addGlyph('i', 15, 250)
	face.tables[ot.T("GSUB")] = ligatureGSUB(14, 15, 20)

	plan := NewPlan(face, SegmentProperties{Direction: LeftToRight}, nil)
	ligaMask := plan.map_.getMask1(ot.T("liga"))
	require.NotZero(t, ligaMask, "liga resolves against the synthetic font")
	require.NotZero(t, plan.map_.globalMask&ligaMask, "global features share the global bit")
	require.Zero(t, ligaMask&glyphFlagsDefined, "feature masks stay clear of glyph flags")
}

func TestMapLookupCollected(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := newTestFace()
	face.tables[ot.T("GSUB")] = ligatureGSUB(14, 15, 20)

	plan := NewPlan(face, SegmentProperties{Direction: LeftToRight}, nil)
	total := 0
	for stage := range plan.map_.stages[tableGSUB] {
		total += len(plan.map_.stageLookups(tableGSUB, stage))
	}
	require.Equal(t, 1, total, "exactly one lookup collected, duplicates merged")
}

func TestMapStagesArePartition(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := newTestFace()
	face.tables[ot.T("GSUB")] = ligatureGSUB(14, 15, 20)

	plan := NewPlan(face, SegmentProperties{Direction: LeftToRight}, nil)
	for table := 0; table < 2; table++ {
		last := 0
		for _, stage := range plan.map_.stages[table] {
			require.GreaterOrEqual(t, stage.lastLookup, last)
			last = stage.lastLookup
		}
		require.Equal(t, len(plan.map_.lookups[table]), last)
	}
}

func TestMapFeatureAbsentInFont(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := newTestFace() // no layout tables at all
	plan := NewPlan(face, SegmentProperties{Direction: LeftToRight}, []Feature{
		{Tag: ot.T("smcp"), Value: 1, Start: FeatureGlobalStart, End: FeatureGlobalEnd},
	})
	require.Zero(t, plan.map_.getMask1(ot.T("smcp")), "absent features contribute no mask bits")
}

func TestMapUserFeatureValueMask(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.shaper")
	defer teardown()
	face := newTestFace()
	face.tables[ot.T("GSUB")] = ligatureGSUB(14, 15, 20)

	// a ranged feature request forces a dedicated mask with room for the
	// value
	plan := NewPlan(face, SegmentProperties{Direction: LeftToRight}, []Feature{
		{Tag: ot.T("liga"), Value: 1, Start: 0, End: 1},
	})
	mask, shift := plan.map_.getMask(ot.T("liga"))
	require.NotZero(t, mask)
	require.NotZero(t, shift, "ranged features get their own mask bits")
}

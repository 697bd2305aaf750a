package ot

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/require"
)

type bb []byte

func (b *bb) u16(values ...uint16) {
	for _, v := range values {
		*b = append(*b, byte(v>>8), byte(v))
	}
}

func (b *bb) u32(v uint32) {
	*b = append(*b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func TestCoverageFormat1(t *testing.T) {
	var b bb
	b.u16(1, 3, 10, 20, 30)
	cov, err := parseCoverage(binarySegm(b))
	require.NoError(t, err)
	inx, ok := cov.Index(20)
	require.True(t, ok)
	require.Equal(t, 1, inx)
	_, ok = cov.Index(25)
	require.False(t, ok)
}

func TestCoverageFormat2(t *testing.T) {
	var b bb
	b.u16(2, 2)
	b.u16(10, 14, 0) // range 10–14 → coverage 0–4
	b.u16(20, 22, 5) // range 20–22 → coverage 5–7
	cov, err := parseCoverage(binarySegm(b))
	require.NoError(t, err)
	inx, ok := cov.Index(12)
	require.True(t, ok)
	require.Equal(t, 2, inx)
	inx, ok = cov.Index(21)
	require.True(t, ok)
	require.Equal(t, 6, inx)
	_, ok = cov.Index(15)
	require.False(t, ok)
}

func TestClassDefFormats(t *testing.T) {
	var b bb
	b.u16(1, 10, 3, 7, 0, 7)
	cd, err := parseClassDef(binarySegm(b))
	require.NoError(t, err)
	require.Equal(t, uint16(7), cd.Class(10))
	require.Equal(t, uint16(0), cd.Class(11))
	require.Equal(t, uint16(7), cd.Class(12))
	require.Equal(t, uint16(0), cd.Class(99))

	var b2 bb
	b2.u16(2, 1)
	b2.u16(5, 9, 3)
	cd2, err := parseClassDef(binarySegm(b2))
	require.NoError(t, err)
	require.Equal(t, uint16(3), cd2.Class(7))
	require.Equal(t, uint16(0), cd2.Class(10))
}

// buildMinimalGSUB assembles a complete GSUB with one single-substitution
// lookup (delta format).
func buildMinimalGSUB(delta int16) []byte {
	var b bb
	b.u32(0x00010000)
	b.u16(10, 30, 44)
	// script list
	b.u16(1)
	b.u32(uint32(T("latn")))
	b.u16(8)
	b.u16(4, 0)            // script: defaultLangSys, langSysCount
	b.u16(0, 0xFFFF, 1, 0) // langSys
	// feature list
	b.u16(1)
	b.u32(uint32(T("liga")))
	b.u16(8)
	b.u16(0, 1, 0)
	// lookup list
	b.u16(1, 4)
	b.u16(GSUBTypeSingle, 0, 1, 8)
	// single subst format 1 at offset 56
	b.u16(1, 6, uint16(delta))
	b.u16(1, 1, 42) // coverage: format 1, one glyph, glyph 42
	return b
}

func TestParseGSUBMinimal(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.ot")
	defer teardown()
	gsub := ParseGSUB(buildMinimalGSUB(3))
	require.NotNil(t, gsub)
	require.Len(t, gsub.Scripts, 1)
	require.Equal(t, T("latn"), gsub.Scripts[0].Tag)
	require.NotNil(t, gsub.Scripts[0].DefaultLangSys)
	require.Equal(t, -1, gsub.Scripts[0].DefaultLangSys.RequiredFeature)
	require.Len(t, gsub.Features, 1)
	require.Equal(t, T("liga"), gsub.Features[0].Tag)
	require.Len(t, gsub.Lookups, 1)
	require.Equal(t, GSUBTypeSingle, gsub.Lookups[0].Type)
	require.Len(t, gsub.Lookups[0].Subtables, 1)
	single, ok := gsub.Lookups[0].Subtables[0].(SingleSubst1)
	require.True(t, ok)
	require.Equal(t, int16(3), single.Delta)
	inx, ok := single.Coverage.Index(42)
	require.True(t, ok)
	require.Equal(t, 0, inx)
}

func TestParseGSUBMalformed(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.ot")
	defer teardown()
	require.Nil(t, ParseGSUB(nil))
	require.Nil(t, ParseGSUB([]byte{0, 1}))
	// a truncated table parses defensively to an empty-but-valid view
	data := buildMinimalGSUB(3)
	gsub := ParseGSUB(data[:50])
	if gsub != nil {
		require.NotNil(t, gsub.Lookups)
	}
}

func TestParseKernFormat0(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.ot")
	defer teardown()
	var b bb
	b.u16(0, 1)     // version, nTables
	b.u16(0, 20, 1) // subtable version, length, coverage (horizontal, format 0)
	b.u16(1, 0, 0, 0)    // nPairs, searchRange, entrySelector, rangeShift
	negVal := int16(-50)
	b.u16(10, 11, uint16(negVal))
	kern := ParseKern(b)
	require.NotNil(t, kern)
	require.True(t, kern.HasKerning())
	require.Equal(t, int16(-50), kern.Kerning(10, 11))
	require.Equal(t, int16(0), kern.Kerning(11, 10))
}

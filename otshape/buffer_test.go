package otshape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferAddUTF8(t *testing.T) {
	buf := NewBuffer()
	text := []byte("a\xffé") // ill-formed byte in the middle
	buf.AddUTF8(text, 0, len(text))

	require.Equal(t, ContentTypeUnicode, buf.ContentType())
	require.Len(t, buf.Info, 3)
	require.Equal(t, 'a', buf.Info[0].Codepoint)
	require.Equal(t, rune(0xFFFD), buf.Info[1].Codepoint, "ill-formed bytes become the replacement")
	require.Equal(t, 'é', buf.Info[2].Codepoint)
	// clusters are byte offsets for UTF-8 input
	require.Equal(t, 0, buf.Info[0].Cluster)
	require.Equal(t, 1, buf.Info[1].Cluster)
	require.Equal(t, 2, buf.Info[2].Cluster)
}

func TestBufferAddUTF8Context(t *testing.T) {
	buf := NewBuffer()
	text := []byte("abcdef")
	buf.AddUTF8(text, 2, 2)
	require.Len(t, buf.Info, 2)
	require.Equal(t, 'c', buf.Info[0].Codepoint)
	require.Len(t, buf.preContext, 2)
	require.Equal(t, 'b', buf.preContext[0], "pre-context is in reverse order")
	require.Len(t, buf.postContext, 2)
	require.Equal(t, 'e', buf.postContext[0])
}

func TestBufferMergeClustersMinimum(t *testing.T) {
	buf := NewBuffer()
	buf.AddRunes([]rune("abcd"), 0)
	buf.mergeClusters(1, 3)
	require.Equal(t, 0, buf.Info[0].Cluster)
	require.Equal(t, 1, buf.Info[1].Cluster)
	require.Equal(t, 1, buf.Info[2].Cluster, "merged to minimum of range")
	require.Equal(t, 3, buf.Info[3].Cluster)
}

func TestBufferMergeClustersNonMonotoneLevel(t *testing.T) {
	buf := NewBuffer()
	buf.ClusterLevel = ClusterLevelCharacters
	buf.AddRunes([]rune("abc"), 0)
	buf.mergeClusters(0, 3)
	// no merging, but the range is flagged unsafe to break
	require.Equal(t, 1, buf.Info[1].Cluster)
	require.NotZero(t, buf.Info[1].Mask&GlyphUnsafeToBreak)
}

func TestBufferReverseClusters(t *testing.T) {
	buf := NewBuffer()
	buf.AddRunes([]rune("abcd"), 0)
	// clusters: 0 0 1 2 — "ab" forms one cluster
	buf.Info[1].Cluster = 0
	buf.Info[2].Cluster = 1
	buf.Info[3].Cluster = 2
	buf.ReverseClusters()
	require.Equal(t, 'd', buf.Info[0].Codepoint)
	require.Equal(t, 'c', buf.Info[1].Codepoint)
	require.Equal(t, 'a', buf.Info[2].Codepoint, "cluster-internal order preserved")
	require.Equal(t, 'b', buf.Info[3].Codepoint)
}

func TestBufferResetClusters(t *testing.T) {
	buf := NewBuffer()
	buf.AddRunes([]rune("abc"), 5)
	buf.ResetClusters()
	for i := range buf.Info {
		require.Equal(t, i, buf.Info[i].Cluster)
	}
}

func TestBufferUnsafeToBreakExtendsToClusterBoundaries(t *testing.T) {
	buf := NewBuffer()
	buf.AddRunes([]rune("abcd"), 0)
	buf.Info[0].Cluster = 0
	buf.Info[1].Cluster = 0
	buf.Info[2].Cluster = 2
	buf.Info[3].Cluster = 2
	buf.unsafeToBreak(1, 3)
	for i := 0; i < 4; i++ {
		require.NotZero(t, buf.Info[i].Mask&GlyphUnsafeToBreak, "glyph %d", i)
	}
}

func TestBufferAllocationFailureIsSticky(t *testing.T) {
	buf := NewBuffer()
	buf.MaxLen = 4
	buf.AddRunes([]rune("abcd"), 0)
	require.True(t, buf.AllocationSuccessful())
	buf.Add('e', 4)
	require.False(t, buf.AllocationSuccessful(), "growth past MaxLen fails")
	buf.Add('f', 5)
	require.Len(t, buf.Info, 4, "operations on a failed buffer are no-ops")
}

func TestBufferOutputRoundtrip(t *testing.T) {
	buf := NewBuffer()
	buf.AddRunes([]rune("abc"), 0)
	buf.clearOutput()
	buf.nextGlyph()
	buf.replaceGlyphs(2, []rune{'x'}, nil)
	buf.swapBuffers()
	require.Len(t, buf.Info, 2)
	require.Equal(t, 'a', buf.Info[0].Codepoint)
	require.Equal(t, 'x', buf.Info[1].Codepoint)
	require.Equal(t, 1, buf.Info[1].Cluster, "n-to-one keeps the minimum cluster")
}

func TestBufferMoveTo(t *testing.T) {
	buf := NewBuffer()
	buf.AddRunes([]rune("abcd"), 0)
	buf.clearOutput()
	require.True(t, buf.moveTo(3))
	require.Equal(t, 3, buf.outLen)
	require.True(t, buf.moveTo(1), "rewinding moves glyphs back to the in side")
	require.Equal(t, 1, buf.outLen)
	require.Equal(t, 1, buf.idx)
	buf.swapBuffers()
	require.Len(t, buf.Info, 4)
	require.Equal(t, 'a', buf.Info[0].Codepoint)
	require.Equal(t, 'd', buf.Info[3].Codepoint)
}

func TestBufferAppend(t *testing.T) {
	a := NewBuffer()
	a.AddRunes([]rune("ab"), 0)
	b := NewBuffer()
	b.AddRunes([]rune("cd"), 0)
	a.Append(b, 0, 2)
	require.Len(t, a.Info, 4)
	require.Equal(t, 'd', a.Info[3].Codepoint)
}

func TestBufferGuessSegmentProperties(t *testing.T) {
	buf := NewBuffer()
	buf.AddString("שלום")
	buf.GuessSegmentProperties()
	require.Equal(t, RightToLeft, buf.Props.Direction)
}

package blockbuf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteBlockAppendAndFlushThreshold(t *testing.T) {
	b := NewWriteBlock(10)
	require.True(t, b.IsEmpty())
	require.True(t, b.ContentLoaded)

	b.Append([]byte("hello"))
	require.False(t, b.IsEmpty())
	require.False(t, b.NeedsFlush(5))
	require.True(t, b.NeedsFlush(6))

	b.Append([]byte("oops!"))
	require.Equal(t, []byte("hello"), b.Content[b.Lines[0].Offset:b.Lines[0].Offset+b.Lines[0].Length])
	require.Equal(t, []byte("oops!"), b.Content[b.Lines[1].Offset:b.Lines[1].Offset+b.Lines[1].Length])
}

func TestFitsRejectsOversizeLine(t *testing.T) {
	b := NewWriteBlock(4)
	require.True(t, b.Fits(4))
	require.False(t, b.Fits(5))
	require.False(t, b.NeedsFlush(100)) // empty block never needs flush for its first line
}

func TestResetForNextClearsButKeepsCapacity(t *testing.T) {
	b := NewWriteBlock(16)
	b.Append([]byte("line one"))
	origCap := cap(b.Content)

	b.ResetForNext(1, 256, 1)
	require.True(t, b.IsEmpty())
	require.Equal(t, int64(1), b.Idx)
	require.Equal(t, uint64(256), b.Offset)
	require.Equal(t, uint64(1), b.FirstLine)
	require.Equal(t, origCap, cap(b.Content))
}

func TestReadBlockStartsUnassigned(t *testing.T) {
	b := NewReadBlock(64, 8)
	require.Equal(t, int64(-1), b.Idx)
	require.False(t, b.ContentLoaded)

	b.Reset()
	require.Equal(t, int64(-1), b.Idx)
	require.False(t, b.ContentLoaded)
}

func TestGrowContentPreservesCapacityWhenSufficient(t *testing.T) {
	b := NewReadBlock(100, 8)
	before := cap(b.Content)
	b.GrowContent(50)
	require.Equal(t, before, cap(b.Content))
	require.Len(t, b.Content, 0)

	b.GrowContent(1000)
	require.GreaterOrEqual(t, cap(b.Content), 1000)
}

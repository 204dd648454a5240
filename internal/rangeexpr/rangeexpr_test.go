package rangeexpr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const nLines = 100

func linesOf(t *testing.T, sel string) []uint64 {
	t.Helper()
	r, err := Parse(sel)
	require.NoError(t, err)
	got, err := r.Lines(nLines)
	require.NoError(t, err)
	return got
}

func TestSingleLineSelector(t *testing.T) {
	require.Equal(t, []uint64{12}, linesOf(t, "12"))
}

func TestNegativeSingleLineSelector(t *testing.T) {
	require.Equal(t, []uint64{99}, linesOf(t, "-1"))
}

func TestInvalidSingleLine(t *testing.T) {
	r, err := Parse("500")
	require.NoError(t, err)
	_, err = r.Lines(nLines)
	require.Error(t, err)
}

func TestRangeStartEnd(t *testing.T) {
	got := linesOf(t, "0:5")
	require.Equal(t, []uint64{0, 1, 2, 3, 4}, got)
}

func TestRangeNegativeStart(t *testing.T) {
	got := linesOf(t, "-10:")
	require.Equal(t, []uint64{90, 91, 92, 93, 94, 95, 96, 97, 98, 99}, got)
}

func TestRangeOpenStart(t *testing.T) {
	got := linesOf(t, ":100:3")
	require.Equal(t, []uint64{0, 3, 6, 9}, got[:4])
}

func TestRangeFullReverse(t *testing.T) {
	got := linesOf(t, "::-1")
	require.Len(t, got, nLines)
	require.Equal(t, uint64(99), got[0])
	require.Equal(t, uint64(0), got[len(got)-1])
}

func TestInvalidSelectorSyntax(t *testing.T) {
	_, err := Parse("1:2:3:4")
	require.Error(t, err)

	_, err = Parse("abc")
	require.Error(t, err)
}

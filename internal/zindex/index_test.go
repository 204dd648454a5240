package zindex

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshkosher/bioio/internal/blockbuf"
	"github.com/oshkosher/bioio/internal/codec"
)

func TestGetLineBlockBinarySearch(t *testing.T) {
	tables := Tables{
		Blocks:      make([]BlockEntry, 4),
		BlockStarts: []uint64{10, 25, 40},
	}

	cases := []struct {
		line uint64
		want uint64
	}{
		{0, 0}, {9, 0},
		{10, 1}, {24, 1},
		{25, 2}, {39, 2},
		{40, 3}, {1000, 3},
	}
	for _, c := range cases {
		require.Equal(t, c.want, tables.GetLineBlock(c.line), "line %d", c.line)
	}
}

func TestGetLineBlockSingleBlock(t *testing.T) {
	tables := Tables{Blocks: []BlockEntry{{}}}
	require.Equal(t, uint64(0), tables.GetLineBlock(0))
	require.Equal(t, uint64(0), tables.GetLineBlock(500))
}

func TestBlockLineCount(t *testing.T) {
	tables := Tables{
		Blocks:      make([]BlockEntry, 3),
		BlockStarts: []uint64{10, 25},
	}
	require.Equal(t, uint64(10), tables.BlockLineCount(0, 30))
	require.Equal(t, uint64(15), tables.BlockLineCount(1, 30))
	require.Equal(t, uint64(5), tables.BlockLineCount(2, 30))
}

func TestCompressedLengthXRoundTrip(t *testing.T) {
	x := MakeCompressedLengthX(12345, true)
	require.Equal(t, uint64(12345), BlockEntry{CompressedLengthX: x}.CompressedLen())
	require.True(t, BlockEntry{CompressedLengthX: x}.DirCompressed())

	x = MakeCompressedLengthX(12345, false)
	require.Equal(t, uint64(12345), BlockEntry{CompressedLengthX: x}.CompressedLen())
	require.False(t, BlockEntry{CompressedLengthX: x}.DirCompressed())
}

func TestLineDirectoryRoundTripUncompressedBelowTwoEntries(t *testing.T) {
	pool := codec.NewPool()
	lines := []blockbuf.Line{{Offset: 0, Length: 5}}

	var buf tempWriter
	size, compressed, err := WriteLineDirectory(&buf, pool, lines)
	require.NoError(t, err)
	require.False(t, compressed)
	require.Equal(t, uint64(len(buf.data)), size)

	got, n, err := ReadLineDirectory(&buf, pool, len(lines), compressed)
	require.NoError(t, err)
	require.Equal(t, lines, got)
	require.Equal(t, size, n)
}

func TestLineDirectoryCompressesRepetitiveEntries(t *testing.T) {
	pool := codec.NewPool()
	lines := make([]blockbuf.Line, 200)
	for i := range lines {
		lines[i] = blockbuf.Line{Offset: uint64(i * 80), Length: 80}
	}

	var buf tempWriter
	size, compressed, err := WriteLineDirectory(&buf, pool, lines)
	require.NoError(t, err)
	require.True(t, compressed)
	require.Less(t, size, uint64(len(lines)*lineEntrySize))

	got, n, err := ReadLineDirectory(&buf, pool, len(lines), compressed)
	require.NoError(t, err)
	require.Equal(t, lines, got)
	require.Equal(t, size, n)
}

func TestWriteReadTablesCompressedRoundTrip(t *testing.T) {
	pool := codec.NewPool()
	tables := Tables{
		Blocks: []BlockEntry{
			{Offset: 256, CompressedLengthX: 100, DecompressedLength: 400},
			{Offset: 356, CompressedLengthX: 120, DecompressedLength: 500},
		},
		BlockStarts: []uint64{10},
	}

	f, err := os.CreateTemp(t.TempDir(), "zindex")
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, WriteCompressedTables(f, pool, tables))

	fi, err := f.Stat()
	require.NoError(t, err)

	if _, err := f.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	got, err := ReadTables(f, pool, len(tables.Blocks), 0, uint64(fi.Size()), true)
	require.NoError(t, err)
	require.Equal(t, tables, got)
}

// tempWriter is a minimal growable buffer standing in for the in-memory
// io.Writer/io.Reader a block's line directory is written to and read back
// from during a single block's commit.
type tempWriter struct {
	data []byte
	pos  int
}

func (w *tempWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *tempWriter) Read(p []byte) (int, error) {
	n := copy(p, w.data[w.pos:])
	w.pos += n
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

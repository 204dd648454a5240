package zheader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{
		DataOffset:      256,
		IndexOffset:     4096,
		Lines:           1000,
		Blocks:          3,
		MaxLen:          512,
		IndexCompressed: true,
	}

	buf := Encode(h)
	require.Len(t, buf, Size)

	got, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestEncodeDecodeEmptyFile(t *testing.T) {
	h := Header{DataOffset: 256, IndexOffset: 256}

	got, err := Decode(Encode(h))
	require.NoError(t, err)
	require.Equal(t, uint64(0), got.Lines)
	require.Equal(t, uint64(0), got.Blocks)
}

func TestDecodeRejectsIncompleteHeader(t *testing.T) {
	h := Header{DataOffset: 0, IndexOffset: 0}
	_, err := Decode(Encode(h))
	require.ErrorIs(t, err, ErrFormat)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := make([]byte, Size)
	copy(buf, "not a zlines file\n")
	_, err := Decode(buf)
	require.ErrorIs(t, err, ErrFormat)
}

func TestDecodeRejectsUnknownAlg(t *testing.T) {
	buf := make([]byte, Size)
	copy(buf, "zline v2.0\ndata_offset 256\nindex_offset 300\nlines 0\nblocks 0\nmaxlen 0\nalg fgzip\n\n")
	for i := len("zline v2.0\ndata_offset 256\nindex_offset 300\nlines 0\nblocks 0\nmaxlen 0\nalg fgzip\n\n"); i < Size-1; i++ {
		buf[i] = ' '
	}
	buf[Size-1] = '\n'
	_, err := Decode(buf)
	require.ErrorIs(t, err, ErrFormat)
}

func TestDecodeRejectsUnknownField(t *testing.T) {
	buf := make([]byte, Size)
	text := "zline v2.0\nbogus_field 1\n\n"
	copy(buf, text)
	for i := len(text); i < Size-1; i++ {
		buf[i] = ' '
	}
	buf[Size-1] = '\n'
	_, err := Decode(buf)
	require.ErrorIs(t, err, ErrFormat)
}

// Package zindex implements the two parallel index arrays that let a
// reader locate the block containing any line without scanning the file:
// the per-block index (offset, compressed length with a directory-
// compressed flag, decompressed length) and the first-line array. It also
// implements the per-block line-directory compress-or-not policy and the
// whole-index "zi" compression used when the file is closed.
package zindex

import (
	"bytes"
	"encoding/binary"
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/oshkosher/bioio/internal/blockbuf"
	"github.com/oshkosher/bioio/internal/codec"
)

// dirCompressedFlag is the top bit of a BlockEntry's CompressedLengthX,
// set when that block's line directory is stored codec-compressed.
const dirCompressedFlag = uint64(1) << 63

// blockEntrySize is the on-disk size, in bytes, of one BlockEntry.
const blockEntrySize = 24

// lineEntrySize is the on-disk size, in bytes, of one line-directory entry.
const lineEntrySize = 16

// BlockEntry is one block's record in the block index.
type BlockEntry struct {
	Offset             uint64
	CompressedLengthX  uint64
	DecompressedLength uint64
}

// CompressedLen returns the compressed content length, with the directory-
// compressed flag bit masked off.
func (e BlockEntry) CompressedLen() uint64 {
	return e.CompressedLengthX &^ dirCompressedFlag
}

// DirCompressed reports whether this block's line directory is stored
// codec-compressed.
func (e BlockEntry) DirCompressed() bool {
	return e.CompressedLengthX&dirCompressedFlag != 0
}

// MakeCompressedLengthX packs a compressed content length and the
// directory-compressed flag into a single field.
func MakeCompressedLengthX(length uint64, dirCompressed bool) uint64 {
	if dirCompressed {
		return length | dirCompressedFlag
	}
	return length
}

// Tables holds the two parallel index arrays for a file.
type Tables struct {
	Blocks      []BlockEntry
	BlockStarts []uint64
}

// GetLineBlock returns the index of the block containing the given line:
// the smallest b such that line_idx < BlockStarts[b], or the last block
// if none qualifies.
func (t *Tables) GetLineBlock(lineIdx uint64) uint64 {
	if len(t.Blocks) <= 1 {
		return 0
	}
	b := sort.Search(len(t.BlockStarts), func(i int) bool {
		return t.BlockStarts[i] > lineIdx
	})
	if b == len(t.BlockStarts) {
		return uint64(len(t.Blocks) - 1)
	}
	return uint64(b)
}

// BlockLineCount returns the number of lines stored in block b, derived
// from the gaps between consecutive first-line entries (and the total
// line count for the last block, which has no following entry).
func (t *Tables) BlockLineCount(b int, totalLines uint64) uint64 {
	start := uint64(0)
	if b > 0 {
		start = t.BlockStarts[b-1]
	}
	end := totalLines
	if b < len(t.BlockStarts) {
		end = t.BlockStarts[b]
	}
	return end - start
}

// EncodeBlocks renders a block-index array as little-endian binary.
func EncodeBlocks(blocks []BlockEntry) []byte {
	buf := make([]byte, len(blocks)*blockEntrySize)
	for i, e := range blocks {
		o := i * blockEntrySize
		binary.LittleEndian.PutUint64(buf[o:], e.Offset)
		binary.LittleEndian.PutUint64(buf[o+8:], e.CompressedLengthX)
		binary.LittleEndian.PutUint64(buf[o+16:], e.DecompressedLength)
	}
	return buf
}

// DecodeBlocks parses count BlockEntry records from buf.
func DecodeBlocks(buf []byte, count int) ([]BlockEntry, error) {
	if len(buf) != count*blockEntrySize {
		return nil, errors.New("zindex: block index size mismatch")
	}
	blocks := make([]BlockEntry, count)
	for i := range blocks {
		o := i * blockEntrySize
		blocks[i] = BlockEntry{
			Offset:             binary.LittleEndian.Uint64(buf[o:]),
			CompressedLengthX:  binary.LittleEndian.Uint64(buf[o+8:]),
			DecompressedLength: binary.LittleEndian.Uint64(buf[o+16:]),
		}
	}
	return blocks, nil
}

// EncodeUint64s renders a first-line array as little-endian binary.
func EncodeUint64s(vals []uint64) []byte {
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], v)
	}
	return buf
}

// DecodeUint64s parses count uint64s from buf.
func DecodeUint64s(buf []byte, count int) ([]uint64, error) {
	if len(buf) != count*8 {
		return nil, errors.New("zindex: first-line array size mismatch")
	}
	vals := make([]uint64, count)
	for i := range vals {
		vals[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}
	return vals, nil
}

// EncodeLines renders a block's line directory as little-endian binary.
func EncodeLines(lines []blockbuf.Line) []byte {
	buf := make([]byte, len(lines)*lineEntrySize)
	for i, l := range lines {
		o := i * lineEntrySize
		binary.LittleEndian.PutUint64(buf[o:], l.Offset)
		binary.LittleEndian.PutUint64(buf[o+8:], l.Length)
	}
	return buf
}

// DecodeLines parses count line-directory entries from buf.
func DecodeLines(buf []byte, count int) ([]blockbuf.Line, error) {
	if len(buf) != count*lineEntrySize {
		return nil, errors.New("zindex: line directory size mismatch")
	}
	lines := make([]blockbuf.Line, count)
	for i := range lines {
		o := i * lineEntrySize
		lines[i] = blockbuf.Line{
			Offset: binary.LittleEndian.Uint64(buf[o:]),
			Length: binary.LittleEndian.Uint64(buf[o+8:]),
		}
	}
	return lines, nil
}

// WriteLineDirectory writes a block's line directory to w, choosing
// between a codec-compressed form (an 8-byte size prefix followed by
// compressed bytes) and a raw form: directories with fewer than two
// entries are never compressed, and compression is only used when it
// beats the raw size even after the 8-byte prefix. It returns the number
// of bytes written to w and whether the compressed form was chosen.
func WriteLineDirectory(w io.Writer, pool *codec.Pool, lines []blockbuf.Line) (onDiskSize uint64, compressed bool, err error) {
	raw := EncodeLines(lines)

	if len(lines) >= 2 {
		var compBuf bytes.Buffer
		n, cerr := pool.CompressToFile(&compBuf, raw)
		if cerr != nil {
			return 0, false, errors.Wrap(cerr, "compressing line directory")
		}
		if n+8 < int64(len(raw)) {
			var sizeBuf [8]byte
			binary.LittleEndian.PutUint64(sizeBuf[:], uint64(n))
			if _, err := w.Write(sizeBuf[:]); err != nil {
				return 0, false, errors.Wrap(err, "writing line directory size")
			}
			if _, err := w.Write(compBuf.Bytes()); err != nil {
				return 0, false, errors.Wrap(err, "writing compressed line directory")
			}
			return uint64(8 + n), true, nil
		}
	}

	if _, err := w.Write(raw); err != nil {
		return 0, false, errors.Wrap(err, "writing line directory")
	}
	return uint64(len(raw)), false, nil
}

// ReadLineDirectory reads a block's line directory from r, given whether
// it was stored compressed (from the owning BlockEntry's flag bit). It
// returns the decoded lines and the number of on-disk bytes consumed.
func ReadLineDirectory(r io.Reader, pool *codec.Pool, count int, compressed bool) ([]blockbuf.Line, uint64, error) {
	rawSize := count * lineEntrySize

	if !compressed {
		raw := make([]byte, rawSize)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, 0, errors.Wrap(err, "reading line directory")
		}
		lines, err := DecodeLines(raw, count)
		return lines, uint64(rawSize), err
	}

	var sizeBuf [8]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return nil, 0, errors.Wrap(err, "reading line directory size")
	}
	compressedLen := int64(binary.LittleEndian.Uint64(sizeBuf[:]))

	raw := make([]byte, rawSize)
	n, err := pool.DecompressFromFile(r, raw, compressedLen, 0)
	if err != nil {
		return nil, 0, errors.Wrap(err, "decompressing line directory")
	}
	if n != rawSize {
		return nil, 0, errors.New("zindex: line directory decompressed to unexpected size")
	}
	lines, err := DecodeLines(raw, count)
	return lines, uint64(8 + compressedLen), err
}

// WriteCompressedTables streams the block index and first-line array
// through the codec into w (which must support Seek, to patch in the two
// size fields after the fact), the "zi" whole-index policy: 16 bytes are
// reserved up front for the two compressed sizes, the arrays are
// streamed, and the reserved bytes are then rewritten.
func WriteCompressedTables(w io.WriteSeeker, pool *codec.Pool, t Tables) error {
	start, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Wrap(err, "seeking to index start")
	}

	if _, err := w.Write(make([]byte, 16)); err != nil {
		return errors.Wrap(err, "reserving index size header")
	}

	blocksN, err := pool.CompressToFile(w, EncodeBlocks(t.Blocks))
	if err != nil {
		return errors.Wrap(err, "compressing block index")
	}

	startsN, err := pool.CompressToFile(w, EncodeUint64s(t.BlockStarts))
	if err != nil {
		return errors.Wrap(err, "compressing first-line array")
	}

	end, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Wrap(err, "locating end of index")
	}

	if _, err := w.Seek(start, io.SeekStart); err != nil {
		return errors.Wrap(err, "seeking back to index size header")
	}
	var sizes [16]byte
	binary.LittleEndian.PutUint64(sizes[0:8], uint64(blocksN))
	binary.LittleEndian.PutUint64(sizes[8:16], uint64(startsN))
	if _, err := w.Write(sizes[:]); err != nil {
		return errors.Wrap(err, "writing index size header")
	}

	if _, err := w.Seek(end, io.SeekStart); err != nil {
		return errors.Wrap(err, "restoring file position after index")
	}
	return nil
}

// WriteRawTables writes the block index and first-line array
// uncompressed, back to back.
func WriteRawTables(w io.Writer, t Tables) error {
	if _, err := w.Write(EncodeBlocks(t.Blocks)); err != nil {
		return errors.Wrap(err, "writing block index")
	}
	if _, err := w.Write(EncodeUint64s(t.BlockStarts)); err != nil {
		return errors.Wrap(err, "writing first-line array")
	}
	return nil
}

// ReadTables loads the index tables for a file with blockCount blocks,
// decompressing if compressed is set. fileSize is used to validate
// declared compressed sizes are consistent with the file's actual size.
func ReadTables(r io.Reader, pool *codec.Pool, blockCount int, indexOffset, fileSize uint64, compressed bool) (Tables, error) {
	startsCount := 0
	if blockCount > 1 {
		startsCount = blockCount - 1
	}

	if !compressed {
		blocksRaw := make([]byte, blockCount*blockEntrySize)
		if _, err := io.ReadFull(r, blocksRaw); err != nil {
			return Tables{}, errors.Wrap(err, "reading block index")
		}
		blocks, err := DecodeBlocks(blocksRaw, blockCount)
		if err != nil {
			return Tables{}, err
		}

		startsRaw := make([]byte, startsCount*8)
		if _, err := io.ReadFull(r, startsRaw); err != nil {
			return Tables{}, errors.Wrap(err, "reading first-line array")
		}
		starts, err := DecodeUint64s(startsRaw, startsCount)
		if err != nil {
			return Tables{}, err
		}
		return Tables{Blocks: blocks, BlockStarts: starts}, nil
	}

	var sizes [16]byte
	if _, err := io.ReadFull(r, sizes[:]); err != nil {
		return Tables{}, errors.Wrap(err, "reading index size header")
	}
	blocksCompLen := binary.LittleEndian.Uint64(sizes[0:8])
	startsCompLen := binary.LittleEndian.Uint64(sizes[8:16])

	if indexOffset+16+blocksCompLen+startsCompLen != fileSize {
		return Tables{}, errors.New("zindex: declared compressed index sizes inconsistent with file size")
	}

	blocksRaw := make([]byte, blockCount*blockEntrySize)
	n, err := pool.DecompressFromFile(r, blocksRaw, int64(blocksCompLen), 0)
	if err != nil {
		return Tables{}, errors.Wrap(err, "decompressing block index")
	}
	if n != len(blocksRaw) {
		return Tables{}, errors.New("zindex: block index decompressed to unexpected size")
	}
	blocks, err := DecodeBlocks(blocksRaw, blockCount)
	if err != nil {
		return Tables{}, err
	}

	startsRaw := make([]byte, startsCount*8)
	n, err = pool.DecompressFromFile(r, startsRaw, int64(startsCompLen), 0)
	if err != nil {
		return Tables{}, errors.Wrap(err, "decompressing first-line array")
	}
	if n != len(startsRaw) {
		return Tables{}, errors.New("zindex: first-line array decompressed to unexpected size")
	}
	starts, err := DecodeUint64s(startsRaw, startsCount)
	if err != nil {
		return Tables{}, err
	}

	return Tables{Blocks: blocks, BlockStarts: starts}, nil
}

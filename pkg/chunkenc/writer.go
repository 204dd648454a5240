package chunkenc

import (
	"github.com/pkg/errors"

	"github.com/oshkosher/bioio/internal/blockbuf"
	"github.com/oshkosher/bioio/internal/zindex"
)

// AddLine appends a line's bytes to the file, returning its assigned line
// index. Lines are accepted verbatim: no newline is assumed, stripped, or
// added, and the caller decides how to split its input into lines — an
// explicit []byte rather than a NUL-terminated C string, so an embedded
// NUL byte is just another byte.
//
// A line that does not fit in an empty block (longer than the configured
// block size) becomes its own single-line block, flushed immediately and
// never held in the write-side accumulator.
func (f *File) AddLine(data []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, ErrClosed
	}
	if f.mode != modeBuilding {
		return 0, ErrReadOnly
	}

	if !f.writeBlock.Fits(len(data)) && f.writeBlock.IsEmpty() {
		return f.commitOversizeLineLocked(data)
	}

	if f.writeBlock.NeedsFlush(len(data)) {
		if err := f.flushBlockLocked(); err != nil {
			return 0, err
		}
	}

	if !f.writeBlock.Fits(len(data)) && f.writeBlock.IsEmpty() {
		return f.commitOversizeLineLocked(data)
	}

	lineIdx := f.lineCount
	f.writeBlock.Append(data)
	f.lineCount++
	if uint64(len(data)) > f.maxLineLen {
		f.maxLineLen = uint64(len(data))
	}
	return lineIdx, nil
}

// flushBlockLocked writes the current write-side accumulator to disk as a
// complete block, records its index entries, and resets the accumulator
// to begin the next block. Called both when a block fills up and from
// Close to flush a final partial block.
func (f *File) flushBlockLocked() error {
	b := f.writeBlock
	firstLine := f.lineCount - uint64(len(b.Lines))
	b.FirstLine = firstLine

	if err := f.commitBlockLocked(b); err != nil {
		return err
	}

	nextIdx := b.Idx + 1
	b.ResetForNext(nextIdx, f.writeCursor, f.lineCount)
	return nil
}

// commitOversizeLineLocked builds a single-line block around data (too
// large to share a block with any other line) and writes it directly,
// bypassing the accumulator entirely.
func (f *File) commitOversizeLineLocked(data []byte) (uint64, error) {
	lineIdx := f.lineCount

	b := &blockbuf.Block{
		Idx:       int64(f.blockCount),
		Offset:    f.writeCursor,
		FirstLine: lineIdx,
		Lines:     []blockbuf.Line{{Offset: 0, Length: uint64(len(data))}},
		Content:   data,
	}

	if err := f.commitBlockLocked(b); err != nil {
		return 0, err
	}

	// The accumulator was empty going into this call and stays empty; it
	// only needs its position bookkeeping advanced past the oversize
	// block just committed in its place. The next line added will be
	// lineIdx+1, now that lineIdx itself has been committed.
	f.writeBlock.ResetForNext(int64(f.blockCount), f.writeCursor, lineIdx+1)

	f.lineCount++
	if uint64(len(data)) > f.maxLineLen {
		f.maxLineLen = uint64(len(data))
	}
	return lineIdx, nil
}

// commitBlockLocked writes one block's on-disk form (its line directory,
// then its content) at the current write cursor, appends its entries to
// the index tables, and advances the write cursor past it. b.Lines and
// b.Content must already be final; the caller is responsible for
// resetting or discarding b afterward.
func (f *File) commitBlockLocked(b *blockbuf.Block) error {
	if _, err := f.f.Seek(int64(f.writeCursor), 0); err != nil {
		return errors.Wrap(err, "seeking to write cursor")
	}

	dirSize, dirCompressed, err := zindex.WriteLineDirectory(f.f, f.pool, b.Lines)
	if err != nil {
		return err
	}

	compressedLen, err := f.pool.CompressToFile(f.f, b.Content)
	if err != nil {
		return errors.Wrap(err, "compressing block content")
	}

	f.tables.Blocks = append(f.tables.Blocks, zindex.BlockEntry{
		Offset:             b.Offset,
		CompressedLengthX:  zindex.MakeCompressedLengthX(uint64(compressedLen), dirCompressed),
		DecompressedLength: uint64(len(b.Content)),
	})
	if f.blockCount > 0 {
		f.tables.BlockStarts = append(f.tables.BlockStarts, b.FirstLine)
	}

	f.writeCursor = b.Offset + dirSize + uint64(compressedLen)
	f.blockCount++
	f.metrics.BlockFlushed(compressedLen, int64(len(b.Content)))
	f.logDebug("msg", "flushed block", "block", b.Idx, "lines", len(b.Lines), "compressed_bytes", compressedLen, "raw_bytes", len(b.Content))

	return nil
}

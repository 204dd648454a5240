package chunkenc

import (
	"io"

	"github.com/pkg/errors"

	"github.com/oshkosher/bioio/internal/blockbuf"
	"github.com/oshkosher/bioio/internal/zindex"
)

// LineCount returns the number of lines committed to the file so far. In
// BUILDING mode this includes lines appended but not yet flushed to disk.
func (f *File) LineCount() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lineCount
}

// MaxLineLength returns the length, in bytes, of the longest line added
// so far.
func (f *File) MaxLineLength() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxLineLen
}

// BlockCount returns the number of complete blocks committed so far.
func (f *File) BlockCount() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blockCount
}

// IndexOffset returns the file offset of the block index, valid only
// after Close (or on a file opened for reading).
func (f *File) IndexOffset() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indexOffset
}

// LineLength returns the byte length of line lineIdx without copying its
// content.
func (f *File) LineLength(lineIdx uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrClosed
	}
	block, lineInBlock, err := f.locateLineLocked(lineIdx)
	if err != nil {
		return 0, err
	}
	return block.Lines[lineInBlock].Length, nil
}

// GetLine returns a freshly allocated copy of line lineIdx's bytes. No
// terminator is added or assumed; the returned slice is exactly the bytes
// originally passed to AddLine.
func (f *File) GetLine(lineIdx uint64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	block, lineInBlock, err := f.locateLineLocked(lineIdx)
	if err != nil {
		return nil, err
	}
	n := int(block.Lines[lineInBlock].Length)
	dst := make([]byte, n)
	if _, err := f.copyLineBytesLocked(block, lineInBlock, dst, 0); err != nil {
		return nil, err
	}
	return dst, nil
}

// GetLineSlice copies up to len(buf) bytes of line lineIdx, starting at
// byte offset within the line, into buf, and returns the number of bytes
// written. No terminator is added; a read that runs past the end of the
// line is silently truncated to fit, and offset >= the line's length
// yields zero bytes with no error. For an oversize single-line block,
// this lets a caller fetch a slice out of the middle of a huge line
// without decompressing bytes before offset into memory twice, since the
// underlying stream is simply skipped forward to it.
func (f *File) GetLineSlice(lineIdx uint64, buf []byte, offset uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrClosed
	}
	block, lineInBlock, err := f.locateLineLocked(lineIdx)
	if err != nil {
		return 0, err
	}
	lineLen := block.Lines[lineInBlock].Length
	if offset >= lineLen {
		return 0, nil
	}
	n := int(lineLen - offset)
	if n > len(buf) {
		n = len(buf)
	}
	return f.copyLineBytesLocked(block, lineInBlock, buf[:n], offset)
}

// LineDetails reports which block a line lives in and its offset and
// length within that block's content arena, for introspection tooling
// (the CLI driver's "details -l" report).
func (f *File) LineDetails(lineIdx uint64) (blockIdx, offset, length uint64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, 0, 0, ErrClosed
	}
	block, lineInBlock, err := f.locateLineLocked(lineIdx)
	if err != nil {
		return 0, 0, 0, err
	}
	line := block.Lines[lineInBlock]
	return uint64(block.Idx), line.Offset, line.Length, nil
}

// BlockOffset returns the file offset where block b's on-disk form
// begins.
func (f *File) BlockOffset(b uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b >= f.blockCount {
		return 0, ErrBlockOutOfRange
	}
	return f.tables.Blocks[b].Offset, nil
}

// BlockSizeOriginal returns block b's decompressed (original) content
// size in bytes.
func (f *File) BlockSizeOriginal(b uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b >= f.blockCount {
		return 0, ErrBlockOutOfRange
	}
	return f.tables.Blocks[b].DecompressedLength, nil
}

// BlockSizeCompressed returns block b's on-disk compressed content size
// in bytes (excluding its line directory).
func (f *File) BlockSizeCompressed(b uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b >= f.blockCount {
		return 0, ErrBlockOutOfRange
	}
	return f.tables.Blocks[b].CompressedLen(), nil
}

// BlockLineCount returns the number of lines stored in block b.
func (f *File) BlockLineCount(b uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b >= f.blockCount {
		return 0, ErrBlockOutOfRange
	}
	return f.tables.BlockLineCount(int(b), f.flushedLineCountLocked()), nil
}

// flushedLineCountLocked returns the number of lines stored in committed
// blocks. While BUILDING, lines still held in the write-side accumulator
// belong to no committed block and are excluded. Caller must hold f.mu.
func (f *File) flushedLineCountLocked() uint64 {
	if f.mode == modeBuilding {
		return f.writeBlock.FirstLine
	}
	return f.lineCount
}

// locateLineLocked resolves lineIdx to the in-memory block that holds it
// (the write-side accumulator if the line hasn't been flushed yet, the
// read-block cache otherwise) and that line's position within it. Caller
// must hold f.mu.
func (f *File) locateLineLocked(lineIdx uint64) (*blockbuf.Block, int, error) {
	if lineIdx >= f.lineCount {
		return nil, 0, ErrLineOutOfRange
	}

	if f.mode == modeBuilding && lineIdx >= f.writeBlock.FirstLine {
		return f.writeBlock, int(lineIdx - f.writeBlock.FirstLine), nil
	}

	blockIdx := f.tables.GetLineBlock(lineIdx)
	if f.readBlock.Idx != int64(blockIdx) {
		f.metrics.ReadCacheMiss()
		f.logDebug("msg", "read cache miss", "block", blockIdx)
		if err := f.loadBlockLocked(blockIdx); err != nil {
			return nil, 0, err
		}
	} else {
		f.metrics.ReadCacheHit()
	}

	return f.readBlock, int(lineIdx - f.readBlock.FirstLine), nil
}

// loadBlockLocked loads block blockIdx's metadata, and content when the
// block is cacheable, into the read-block slot. An oversize single-line
// block is never decompressed into the cache here; its content is
// streamed fresh from disk on every access by copyLineBytesLocked
// instead.
func (f *File) loadBlockLocked(blockIdx uint64) error {
	entry := f.tables.Blocks[blockIdx]
	lineCount := f.tables.BlockLineCount(int(blockIdx), f.flushedLineCountLocked())

	var firstLine uint64
	if blockIdx > 0 {
		firstLine = f.tables.BlockStarts[blockIdx-1]
	}

	oversize := lineCount == 1 && entry.DecompressedLength > DefaultBlockSize

	return f.withRestoredCursor(func() error {
		if _, err := f.f.Seek(int64(entry.Offset), io.SeekStart); err != nil {
			return errors.Wrap(err, "seeking to block")
		}

		lines, dirSize, err := zindex.ReadLineDirectory(f.f, f.pool, int(lineCount), entry.DirCompressed())
		if err != nil {
			return err
		}

		if oversize {
			f.readBlock.Reset()
			f.readBlock.Idx = int64(blockIdx)
			f.readBlock.Offset = entry.Offset
			f.readBlock.FirstLine = firstLine
			f.readBlock.Lines = append(f.readBlock.Lines[:0], lines...)
			f.readBlock.LineIndexSize = dirSize
			f.readBlock.ContentLoaded = false
			return nil
		}

		f.readBlock.GrowContent(int(entry.DecompressedLength))
		content := f.readBlock.Content[:entry.DecompressedLength]
		n, err := f.pool.DecompressFromFile(f.f, content, int64(entry.CompressedLen()), 0)
		if err != nil {
			return err
		}
		if uint64(n) != entry.DecompressedLength {
			return errors.New("zlines: block decompressed to unexpected size")
		}

		f.readBlock.Content = content
		f.readBlock.GrowLines(len(lines))
		f.readBlock.Lines = append(f.readBlock.Lines[:0], lines...)
		f.readBlock.LineIndexSize = dirSize
		f.readBlock.Idx = int64(blockIdx)
		f.readBlock.Offset = entry.Offset
		f.readBlock.FirstLine = firstLine
		f.readBlock.ContentLoaded = true
		return nil
	})
}

// copyLineBytesLocked copies up to len(dst) bytes of the line at
// lineInBlock within block, starting lineOffset bytes into that line,
// into dst. For a cached block this is a plain slice copy; for an
// uncached oversize block it decompresses directly from disk, skipping
// past the block's line directory and the line's byte offset plus
// lineOffset, so repeated reads of the same huge line never grow the
// read-block cache.
func (f *File) copyLineBytesLocked(block *blockbuf.Block, lineInBlock int, dst []byte, lineOffset uint64) (int, error) {
	line := block.Lines[lineInBlock]

	if block.ContentLoaded {
		start := line.Offset + lineOffset
		n := copy(dst, block.Content[start:start+line.Length-lineOffset])
		return n, nil
	}

	entry := f.tables.Blocks[uint64(block.Idx)]
	contentStart := block.Offset + block.LineIndexSize
	var n int
	err := f.withRestoredCursor(func() error {
		if _, err := f.f.Seek(int64(contentStart), io.SeekStart); err != nil {
			return errors.Wrap(err, "seeking to oversize block content")
		}
		var derr error
		n, derr = f.pool.DecompressFromFile(f.f, dst, int64(entry.CompressedLen()), int64(line.Offset+lineOffset))
		if derr != nil {
			return errors.Wrap(derr, "streaming oversize line")
		}
		return nil
	})
	return n, err
}

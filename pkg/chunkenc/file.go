// Package chunkenc implements the zlines container: a compact,
// random-access store for a very large collection of text lines, packed
// into fixed-size blocks that are individually compressed.
//
// Its block-cutting, pooled-codec, and single-active-block design
// generalizes a chunk encoder built for a fixed small number of
// time-series chunks per stream into an arbitrarily large, line-indexed,
// randomly-read file: blocks are flushed on content-size overflow rather
// than entry count, a binary-searchable first-line index replaces time
// bounds, and a single-slot read-block cache replaces per-query iterator
// construction.
package chunkenc

import (
	"io"
	"os"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/oshkosher/bioio/internal/blockbuf"
	"github.com/oshkosher/bioio/internal/codec"
	"github.com/oshkosher/bioio/internal/metrics"
	"github.com/oshkosher/bioio/internal/zheader"
	"github.com/oshkosher/bioio/internal/zindex"
)

// DefaultBlockSize is the content-byte capacity a write-side block uses
// when CreateWithBlockSize is not given an explicit size.
const DefaultBlockSize = 4 * 1024 * 1024

// maxBlockSize is the block-size ceiling this format allows.
const maxBlockSize = 1 << 31

type fileMode int

const (
	modeClosed fileMode = iota
	modeBuilding
	modeReading
)

// File is a zlines container, in one of three states: BUILDING (created
// with Create/CreateWithBlockSize, accepting AddLine), READING (opened
// with Open, read-only), or CLOSED. Reader queries (LineCount, GetLine,
// ...) are legal in both BUILDING and READING; AddLine is legal only in
// BUILDING. All methods are safe for concurrent use by a single goroutine
// at a time — the zlines format has no internal parallelism, and a File
// does not attempt to synchronize against itself beyond guarding its own
// state transitions.
type File struct {
	mu sync.Mutex

	f      *os.File
	path   string
	mode   fileMode
	closed bool

	pool    *codec.Pool
	metrics *metrics.Metrics
	logger  kitlog.Logger

	dataOffset      uint64
	indexOffset     uint64
	lineCount       uint64
	blockCount      uint64
	maxLineLen      uint64
	indexCompressed bool

	blockSize int

	// writeCursor is the file offset at which the next block write will
	// begin. It always points just past the last committed block's
	// on-disk bytes. Reader operations that seek elsewhere during a
	// build restore the OS file position to writeCursor before
	// returning, via withRestoredCursor.
	writeCursor uint64

	writeBlock *blockbuf.Block
	readBlock  *blockbuf.Block

	tables zindex.Tables
}

// Create opens path for writing with the default block size.
func Create(path string, opts ...Option) (*File, error) {
	return CreateWithBlockSize(path, DefaultBlockSize, opts...)
}

// CreateWithBlockSize truncates or creates path for writing, using
// blockSize as the content-byte capacity of each block. blockSize == 0
// selects DefaultBlockSize; blockSize > 2^31 is rejected.
func CreateWithBlockSize(path string, blockSize int, opts ...Option) (*File, error) {
	if blockSize < 0 || blockSize > maxBlockSize {
		return nil, ErrBlockSizeTooLarge
	}
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}

	osf, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "creating zlines file")
	}

	f := &File{
		f:               osf,
		path:            path,
		mode:            modeBuilding,
		pool:            codec.NewPool(),
		dataOffset:      zheader.Size,
		indexCompressed: true,
		blockSize:       blockSize,
		writeCursor:     zheader.Size,
	}
	for _, opt := range opts {
		opt(f)
	}

	if err := f.writeHeaderLocked(); err != nil {
		osf.Close()
		os.Remove(path)
		return nil, err
	}

	f.writeBlock = blockbuf.NewWriteBlock(blockSize)
	f.writeBlock.Offset = zheader.Size
	f.readBlock = blockbuf.NewReadBlock(blockSize, 64)

	return f, nil
}

// Open opens an existing zlines file for reading. Read is an alias kept
// for symmetry with the ZlineFile_read naming of the format it implements.
func Open(path string, opts ...Option) (*File, error) {
	osf, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening zlines file")
	}

	fi, err := osf.Stat()
	if err != nil {
		osf.Close()
		return nil, errors.Wrap(err, "stat-ing zlines file")
	}
	fileSize := uint64(fi.Size())

	headerBuf := make([]byte, zheader.Size)
	if _, err := io.ReadFull(io.NewSectionReader(osf, 0, int64(zheader.Size)), headerBuf); err != nil {
		osf.Close()
		return nil, errors.Wrap(err, "reading zlines header")
	}
	h, err := zheader.Decode(headerBuf)
	if err != nil {
		osf.Close()
		return nil, err
	}

	f := &File{
		f:               osf,
		path:            path,
		mode:            modeReading,
		pool:            codec.NewPool(),
		dataOffset:      h.DataOffset,
		indexOffset:     h.IndexOffset,
		lineCount:       h.Lines,
		blockCount:      h.Blocks,
		maxLineLen:      h.MaxLen,
		indexCompressed: h.IndexCompressed,
	}
	for _, opt := range opts {
		opt(f)
	}

	if _, err := osf.Seek(int64(h.IndexOffset), io.SeekStart); err != nil {
		osf.Close()
		return nil, errors.Wrap(err, "seeking to index")
	}

	tables, err := zindex.ReadTables(osf, f.pool, int(h.Blocks), h.IndexOffset, fileSize, h.IndexCompressed)
	if err != nil {
		osf.Close()
		return nil, err
	}
	f.tables = tables

	var maxDec, maxLines uint64
	for b := range tables.Blocks {
		if tables.Blocks[b].DecompressedLength > maxDec {
			maxDec = tables.Blocks[b].DecompressedLength
		}
		if n := tables.BlockLineCount(b, h.Lines); n > maxLines {
			maxLines = n
		}
	}
	f.readBlock = blockbuf.NewReadBlock(int(maxDec), int(maxLines))

	return f, nil
}

// Read is an alias for Open, kept for naming symmetry with ZlineFile_read.
func Read(path string, opts ...Option) (*File, error) {
	return Open(path, opts...)
}

// Close finalizes a BUILDING file (flushing any pending block, writing
// the index tables and rewriting the header) or releases a READING file's
// resources. It is idempotent: a second Close is a safe no-op.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	if f.mode == modeReading {
		f.mode = modeClosed
		return f.f.Close()
	}

	if !f.writeBlock.IsEmpty() {
		if err := f.flushBlockLocked(); err != nil {
			return err
		}
	}

	padSize := (8 - f.writeCursor%8) % 8
	f.indexOffset = f.writeCursor + padSize
	if padSize > 0 {
		if _, err := f.f.Seek(int64(f.writeCursor), io.SeekStart); err != nil {
			return errors.Wrap(err, "seeking to pad")
		}
		if _, err := f.f.Write(make([]byte, padSize)); err != nil {
			return errors.Wrap(err, "writing index alignment pad")
		}
	} else {
		if _, err := f.f.Seek(int64(f.indexOffset), io.SeekStart); err != nil {
			return errors.Wrap(err, "seeking to index")
		}
	}

	if f.indexCompressed {
		if err := zindex.WriteCompressedTables(f.f, f.pool, f.tables); err != nil {
			return err
		}
	} else {
		if err := zindex.WriteRawTables(f.f, f.tables); err != nil {
			return err
		}
	}

	if err := f.writeHeaderLocked(); err != nil {
		return err
	}

	f.mode = modeClosed
	return f.f.Close()
}

func (f *File) writeHeaderLocked() error {
	h := zheader.Header{
		DataOffset:      f.dataOffset,
		IndexOffset:     f.indexOffset,
		Lines:           f.lineCount,
		Blocks:          f.blockCount,
		MaxLen:          f.maxLineLen,
		IndexCompressed: f.indexCompressed,
	}
	if _, err := f.f.WriteAt(zheader.Encode(h), 0); err != nil {
		return errors.Wrap(err, "writing header")
	}
	return nil
}

// withRestoredCursor runs fn, which may seek the underlying file however
// it needs to service a read, then restores the OS file position to
// writeCursor if the file is currently BUILDING: a reader operation
// interleaved with a build must never leave the writer's next write
// landing in the wrong place.
func (f *File) withRestoredCursor(fn func() error) error {
	if f.mode != modeBuilding {
		return fn()
	}
	err := fn()
	if _, serr := f.f.Seek(int64(f.writeCursor), io.SeekStart); serr != nil && err == nil {
		err = errors.Wrap(serr, "restoring write cursor")
	}
	return err
}

// logDebug emits one diagnostic log line through the attached logger, if
// any. It never influences control flow; a File with no logger attached
// pays nothing for these call sites.
func (f *File) logDebug(keyvals ...interface{}) {
	if f.logger == nil {
		return
	}
	f.logger.Log(keyvals...)
}

// Package blockbuf implements the in-memory block: the byte arena that
// holds line contents plus its growable line directory. A Block serves two
// roles depending on which side of a File owns it — write-side accumulator
// (bounded by a configured capacity, reset on every flush) or read-side
// cache (sized once, at open, to the largest block in the file, and
// replaced wholesale on every cache miss).
package blockbuf

// Line locates one line's bytes within a block's content arena.
type Line struct {
	Offset uint64
	Length uint64
}

// Block is an in-memory block: a block index identifier, the file offset
// where its on-disk form begins, the index of its first line, a line
// directory, and the concatenated content bytes those lines point into.
type Block struct {
	// Idx is -1 for an unassigned read-cache block, >= 0 for a real block.
	Idx int64

	Offset    uint64
	FirstLine uint64

	Lines []Line

	Content []byte

	// Capacity is the content-byte budget for a write-side block. Zero
	// for read-side blocks, which grow Content on demand up to the
	// largest decompressed block size observed in the file's index.
	Capacity int

	// LineIndexSize is the number of on-disk bytes the line directory for
	// this block occupies (compressed or not). Set by the reader when it
	// loads a block.
	LineIndexSize uint64

	// ContentLoaded distinguishes a block whose Content genuinely holds
	// its (possibly zero-length) bytes from one whose single oversize
	// line was deliberately left uncached and must be streamed from disk
	// on every access. False only for that oversize case.
	ContentLoaded bool
}

// NewWriteBlock returns an empty write-side accumulator with the given
// content capacity.
func NewWriteBlock(capacity int) *Block {
	return &Block{
		Idx:           0,
		Content:       make([]byte, 0, capacity),
		Lines:         make([]Line, 0, 64),
		Capacity:      capacity,
		ContentLoaded: true,
	}
}

// NewReadBlock returns an empty read-side cache block, pre-sized to hold
// the largest block observed in a file's index.
func NewReadBlock(contentCap, lineCap int) *Block {
	return &Block{
		Idx:           -1,
		Content:       make([]byte, 0, contentCap),
		Lines:         make([]Line, 0, lineCap),
		ContentLoaded: false,
	}
}

// IsEmpty reports whether the block has no lines appended.
func (b *Block) IsEmpty() bool {
	return len(b.Lines) == 0
}

// NeedsFlush reports whether appending a line of the given length would
// overflow the block's content capacity, given the block already holds at
// least one line. A block with nothing in it never needs a flush merely to
// accept its first line, however large.
func (b *Block) NeedsFlush(length int) bool {
	return len(b.Content) > 0 && len(b.Content)+length > b.Capacity
}

// Fits reports whether a line of the given length can be appended to this
// block's content arena without exceeding its capacity.
func (b *Block) Fits(length int) bool {
	return length <= b.Capacity
}

// Append records a new line at the current end of the content arena and
// copies its bytes in.
func (b *Block) Append(data []byte) {
	b.Lines = append(b.Lines, Line{Offset: uint64(len(b.Content)), Length: uint64(len(data))})
	b.Content = append(b.Content, data...)
}

// ResetForNext clears the block's lines and content in place (retaining
// the underlying arrays) and advances it to represent the next block,
// whose first line will be firstLine. Callers must pass the line index
// the next AddLine will assign, not zero: locateLineLocked routes a read
// to the write-side accumulator whenever the requested line index is >=
// FirstLine, so a stale FirstLine would misroute reads of already-flushed
// lines back into the (differently-positioned) new accumulator.
func (b *Block) ResetForNext(idx int64, offset uint64, firstLine uint64) {
	b.Idx = idx
	b.Offset = offset
	b.FirstLine = firstLine
	b.Lines = b.Lines[:0]
	b.Content = b.Content[:0]
	b.LineIndexSize = 0
	b.ContentLoaded = true
}

// Reset clears a read-side block back to "unassigned" so the next load is
// treated as a cache miss.
func (b *Block) Reset() {
	b.Idx = -1
	b.Lines = b.Lines[:0]
	b.Content = b.Content[:0]
	b.LineIndexSize = 0
	b.ContentLoaded = false
}

// GrowContent ensures Content has capacity for at least n bytes, growing
// (and replacing) the backing array if necessary. Used on the read side
// where the largest block size is only known after the index is loaded.
func (b *Block) GrowContent(n int) {
	if cap(b.Content) < n {
		b.Content = make([]byte, 0, n)
	} else {
		b.Content = b.Content[:0]
	}
}

// GrowLines ensures Lines has capacity for at least n entries.
func (b *Block) GrowLines(n int) {
	if cap(b.Lines) < n {
		b.Lines = make([]Line, 0, n)
	} else {
		b.Lines = b.Lines[:0]
	}
}

package chunkenc

import "github.com/pkg/errors"

// Sentinel errors a caller can compare against with errors.Is. I/O,
// format, and codec errors are wrapped with github.com/pkg/errors at the
// point they're observed instead, since they always carry
// operation-specific context worth keeping.
var (
	// ErrClosed is returned by any operation on a File after Close.
	ErrClosed = errors.New("zlines: file is closed")

	// ErrReadOnly is returned by AddLine on a File opened for reading.
	ErrReadOnly = errors.New("zlines: file is not open for writing")

	// ErrLineOutOfRange is returned by a line query whose index is >=
	// LineCount.
	ErrLineOutOfRange = errors.New("zlines: line index out of range")

	// ErrBlockOutOfRange is returned by a block introspection query whose
	// index is >= BlockCount.
	ErrBlockOutOfRange = errors.New("zlines: block index out of range")

	// ErrBlockSizeTooLarge is returned when a requested block size
	// exceeds the 2^31 byte ceiling.
	ErrBlockSizeTooLarge = errors.New("zlines: block size too large")
)

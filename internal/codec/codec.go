// Package codec wraps a streaming compression engine behind the narrow
// init_stream/step/end_stream shape the zlines format asks for: a bounded
// input buffer, a bounded output buffer, and tolerance for partial output on
// every step. It is the only package in this module that imports a
// compression library directly; everything above it only sees byte slices
// and io.Writer/io.Reader.
//
// The concrete engine is zstd at a fixed compression level (3), matching the
// "fzstd" algorithm identifier recorded in the zlines file header. The Pool
// type mirrors the WriterPool/ReaderPool indirection used elsewhere in this
// lineage for multi-algorithm chunk formats, even though this format only
// ever dispatches to one algorithm — so a second codec could be added later
// without changing any caller.
package codec

import (
	"bufio"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// streamBufSize is the internal buffer size used while streaming a block
// through the codec.
const streamBufSize = 8 * 1024

// level is the fixed zstd compression level this format always uses.
const level = 3

// Pool supplies reusable zstd encoders and decoders. Encoders/decoders are
// expensive to set up, so both are pooled and Reset onto a new
// io.Writer/io.Reader per use instead of being recreated.
type Pool struct {
	encPool sync.Pool
	decPool sync.Pool
}

// NewPool returns a ready-to-use Pool.
func NewPool() *Pool {
	return &Pool{}
}

func (p *Pool) getEncoder(w io.Writer) (*zstd.Encoder, error) {
	if v := p.encPool.Get(); v != nil {
		enc := v.(*zstd.Encoder)
		enc.Reset(w)
		return enc, nil
	}
	return zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
	)
}

func (p *Pool) putEncoder(enc *zstd.Encoder) {
	p.encPool.Put(enc)
}

func (p *Pool) getDecoder(r io.Reader) (*zstd.Decoder, error) {
	if v := p.decPool.Get(); v != nil {
		dec := v.(*zstd.Decoder)
		if err := dec.Reset(r); err != nil {
			return nil, err
		}
		return dec, nil
	}
	return zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
}

func (p *Pool) putDecoder(dec *zstd.Decoder) {
	dec.Reset(nil)
	p.decPool.Put(dec)
}

// MaxCompressedSize returns an upper bound on the compressed size of an
// n-byte input, in the shape of ZSTD_compressBound: enough headroom that a
// caller can size an output buffer before compressing, without calling into
// the codec first.
func MaxCompressedSize(n int) int64 {
	const sizeLimit = 128 * 1024
	bound := int64(n) + int64(n)>>8 + 64
	if n < sizeLimit {
		bound += (sizeLimit - int64(n)) >> 11
	}
	return bound
}

// countingWriter tracks exactly how many bytes have passed through Write,
// so CompressToFile can report the number of bytes it wrote to dst even
// though the zstd encoder buffers and flushes output on its own schedule.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// CompressToFile streams src through the codec into dst at dst's current
// position. It writes in streamBufSize chunks and calls Close (the
// end_stream equivalent) once all input has been fed in, so the trailing
// frame bytes land immediately after the preceding output. It returns the
// exact number of bytes written to dst.
func (p *Pool) CompressToFile(dst io.Writer, src []byte) (int64, error) {
	cw := &countingWriter{w: dst}
	enc, err := p.getEncoder(cw)
	if err != nil {
		return 0, errors.Wrap(err, "creating compressor")
	}
	defer p.putEncoder(enc)

	for off := 0; off < len(src); {
		end := off + streamBufSize
		if end > len(src) {
			end = len(src)
		}
		if _, err := enc.Write(src[off:end]); err != nil {
			return cw.n, errors.Wrap(err, "compressing block")
		}
		off = end
	}

	if err := enc.Close(); err != nil {
		return cw.n, errors.Wrap(err, "finishing compressed stream")
	}

	return cw.n, nil
}

// DecompressFromFile reads at most compressedLen bytes from src at its
// current position, decompresses them, discards the first skip
// decompressed bytes, then copies decompressed bytes into dst until dst is
// full or the input is exhausted. It returns the number of bytes written to
// dst. The caller is responsible for knowing the expected output size;
// dst is filled and no more.
func (p *Pool) DecompressFromFile(src io.Reader, dst []byte, compressedLen, skip int64) (int, error) {
	lr := io.LimitReader(src, compressedLen)
	dec, err := p.getDecoder(bufio.NewReaderSize(lr, streamBufSize))
	if err != nil {
		return 0, errors.Wrap(err, "creating decompressor")
	}
	defer p.putDecoder(dec)

	if skip > 0 {
		if _, err := io.CopyN(io.Discard, dec, skip); err != nil {
			return 0, errors.Wrap(err, "skipping decompressed bytes")
		}
	}

	n, err := io.ReadFull(dec, dst)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return n, errors.Wrap(err, "decompressing block")
	}
	return n, nil
}

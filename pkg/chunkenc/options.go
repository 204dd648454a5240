package chunkenc

import (
	kitlog "github.com/go-kit/log"

	"github.com/oshkosher/bioio/internal/metrics"
)

// Option configures a File at Create/Open time. The library takes
// functional options rather than a config struct, generalizing the
// teacher's explicit-parameter constructors (NewMemChunkSize(enc,
// blockSize, targetSize)) to this format's larger option surface.
type Option func(*File)

// WithMetrics registers Prometheus counters (blocks flushed, bytes
// compressed, read-cache hit/miss) on the File. Omit this option (the
// default) to pay nothing for instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *File) { f.metrics = m }
}

// WithLogger attaches a structured logger the File uses for
// diagnostic-level logging of its own operations (block flushes, read
// cache misses). It is never consulted to decide control flow.
func WithLogger(l kitlog.Logger) Option {
	return func(f *File) { f.logger = l }
}

// WithIndexCompression overrides whether the block index and first-line
// array are stored codec-compressed (the "zi" header flag). Only
// meaningful when creating a file; defaults to true.
func WithIndexCompression(enabled bool) Option {
	return func(f *File) { f.indexCompressed = enabled }
}

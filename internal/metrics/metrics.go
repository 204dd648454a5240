// Package metrics exposes optional, nil-safe Prometheus instrumentation
// for a zlines file: counters for blocks cut and bytes compressed. A nil
// *Metrics (the default returned by New(nil)) is a pure no-op, so library
// consumers who never register a Prometheus registry pay nothing for it.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters a File reports to, when registered.
type Metrics struct {
	blocksFlushed   prometheus.Counter
	bytesCompressed prometheus.Counter
	bytesRaw        prometheus.Counter
	readCacheHits   prometheus.Counter
	readCacheMisses prometheus.Counter
}

// New registers zlines counters with reg and returns a Metrics handle. If
// reg is nil, the returned Metrics is safe to use but records nothing.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		blocksFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zlines_blocks_flushed_total",
			Help: "Number of blocks flushed to disk.",
		}),
		bytesCompressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zlines_bytes_compressed_total",
			Help: "Number of compressed bytes written for block content.",
		}),
		bytesRaw: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zlines_bytes_raw_total",
			Help: "Number of uncompressed line bytes appended.",
		}),
		readCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zlines_read_cache_hits_total",
			Help: "Number of get_line calls served from the read-block cache.",
		}),
		readCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zlines_read_cache_misses_total",
			Help: "Number of get_line calls that loaded a new block.",
		}),
	}
	reg.MustRegister(
		m.blocksFlushed, m.bytesCompressed, m.bytesRaw,
		m.readCacheHits, m.readCacheMisses,
	)
	return m
}

func (m *Metrics) BlockFlushed(compressedBytes, rawBytes int64) {
	if m == nil {
		return
	}
	m.blocksFlushed.Inc()
	m.bytesCompressed.Add(float64(compressedBytes))
	m.bytesRaw.Add(float64(rawBytes))
}

func (m *Metrics) ReadCacheHit() {
	if m == nil {
		return
	}
	m.readCacheHits.Inc()
}

func (m *Metrics) ReadCacheMiss() {
	if m == nil {
		return
	}
	m.readCacheMisses.Inc()
}

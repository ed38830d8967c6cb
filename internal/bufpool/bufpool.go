// Package bufpool provides size-tiered byte-buffer reuse for the ingest
// request-body read path. Each buffer is single-owner for the life of
// one request (read, validated, normalized into a LogEntry, then
// returned) and never shared across goroutines, unlike the bus's
// published frame payloads, which are intentionally never pooled.
package bufpool

import "sync"

// Pool holds three size tiers of reusable byte slices, sized around
// typical single-entry, small-batch, and large-batch ingest bodies.
type Pool struct {
	small  sync.Pool // 4KB
	medium sync.Pool // 16KB
	large  sync.Pool // 64KB
}

func New() *Pool {
	return &Pool{
		small: sync.Pool{
			New: func() any { buf := make([]byte, 0, 4096); return &buf },
		},
		medium: sync.Pool{
			New: func() any { buf := make([]byte, 0, 16384); return &buf },
		},
		large: sync.Pool{
			New: func() any { buf := make([]byte, 0, 65536); return &buf },
		},
	}
}

// Get returns a zero-length buffer with capacity at least size (best
// effort -- callers that exceed the tier's capacity just grow it).
func (p *Pool) Get(size int) *[]byte {
	var pool *sync.Pool
	switch {
	case size <= 4096:
		pool = &p.small
	case size <= 16384:
		pool = &p.medium
	default:
		pool = &p.large
	}

	buf := pool.Get().(*[]byte)
	*buf = (*buf)[:0]
	return buf
}

// Put returns buf to the tier matching its capacity. Buffers that grew
// past 64KB are dropped rather than pooled, so one oversized request
// doesn't permanently inflate the pool's steady-state memory.
func (p *Pool) Put(buf *[]byte) {
	if buf == nil {
		return
	}
	switch c := cap(*buf); {
	case c <= 4096:
		p.small.Put(buf)
	case c <= 16384:
		p.medium.Put(buf)
	case c <= 65536:
		p.large.Put(buf)
	}
}

// Package idpool hands out opaque, high-entropy identifiers with
// amortized O(1) latency by pre-generating them in batches on a
// background goroutine, keeping id generation off the hot ingest path.
package idpool

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const idByteLen = 16 // uuid.UUID is 16 bytes; ~128 bits of entropy, well above the 64-bit floor

// Pool maintains a target population of pre-generated identifiers.
type Pool struct {
	log zerolog.Logger

	target    int
	threshold int
	batch     int

	mu  sync.Mutex
	buf []string

	refilling atomic.Bool
}

// New constructs a Pool and performs its initial synchronous fill so the
// first GetID calls have a population to draw from.
func New(log zerolog.Logger, target, threshold, batch int) *Pool {
	if target <= 0 {
		target = 1000
	}
	if threshold <= 0 {
		threshold = 200
	}
	if batch <= 0 {
		batch = 500
	}
	p := &Pool{
		log:       log.With().Str("component", "idpool").Logger(),
		target:    target,
		threshold: threshold,
		batch:     batch,
	}
	p.buf = generate(target)
	return p
}

// GetID returns one identifier in constant time. When the population
// drops below the refill threshold, a background refill is scheduled
// (at most one in flight at a time). If the pool is empty, an id is
// synthesized in-line -- an explicit fallback, not a bug.
func (p *Pool) GetID() string {
	p.mu.Lock()
	var id string
	n := len(p.buf)
	if n > 0 {
		id = p.buf[n-1]
		p.buf = p.buf[:n-1]
		n--
	}
	needsRefill := n < p.threshold
	p.mu.Unlock()

	if id == "" {
		p.log.Debug().Msg("pool empty, synthesizing id on hot path")
		id = newID()
	}

	if needsRefill && p.refilling.CompareAndSwap(false, true) {
		go p.refill()
	}

	return id
}

func (p *Pool) refill() {
	defer p.refilling.Store(false)

	fresh := generate(p.batch)

	p.mu.Lock()
	p.buf = append(p.buf, fresh...)
	if len(p.buf) > p.target {
		p.buf = p.buf[len(p.buf)-p.target:]
	}
	p.mu.Unlock()
}

// Len reports the current population, for tests and /api/stats.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

func generate(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = newID()
	}
	return out
}

func newID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

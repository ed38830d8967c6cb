// Package shutdown coordinates graceful server shutdown: wait up to a
// grace period for live connections to drain, then force-close whatever
// remains and release singletons in reverse acquisition order. The
// coordinator does not itself stop new requests or signal subscribers
// before that wait; it only polls the live connection count.
package shutdown

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Coordinator runs the drain-then-release sequence exactly once.
type Coordinator struct {
	log         zerolog.Logger
	gracePeriod time.Duration

	activeConns    func() int
	disconnectAll  func() int
	releaseInOrder []func()

	started atomic.Bool
}

func New(log zerolog.Logger, gracePeriod time.Duration, activeConns func() int, disconnectAll func() int) *Coordinator {
	if gracePeriod <= 0 {
		gracePeriod = 30 * time.Second
	}
	return &Coordinator{
		log:           log.With().Str("component", "shutdown").Logger(),
		gracePeriod:   gracePeriod,
		activeConns:   activeConns,
		disconnectAll: disconnectAll,
	}
}

// OnRelease registers a cleanup step to run, in reverse registration
// order, after draining completes. Call before Run.
func (c *Coordinator) OnRelease(fn func()) {
	c.releaseInOrder = append(c.releaseInOrder, fn)
}

// Run polls the live connection count once a second until it reaches zero
// or the grace period ends, then force-closes any stragglers and runs every
// registered release step in reverse order. Idempotent: a second call,
// sequential or concurrent, returns immediately.
func (c *Coordinator) Run(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}

	c.log.Info().Int("active_connections", c.activeConns()).Msg("shutdown: draining")

	drainCtx, cancel := context.WithTimeout(ctx, c.gracePeriod)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

drain:
	for {
		select {
		case <-drainCtx.Done():
			break drain
		case <-ticker.C:
			remaining := c.activeConns()
			if remaining == 0 {
				c.log.Info().Msg("shutdown: all connections drained")
				break drain
			}
			c.log.Info().Int("remaining", remaining).Msg("shutdown: waiting for connections to drain")
		}
	}

	if remaining := c.activeConns(); remaining > 0 {
		c.log.Warn().Int("remaining", remaining).Msg("shutdown: grace period expired, force closing")
		c.disconnectAll()
	}

	for i := len(c.releaseInOrder) - 1; i >= 0; i-- {
		c.releaseInOrder[i]()
	}

	c.log.Info().Msg("shutdown: complete")
}

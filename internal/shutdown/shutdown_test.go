package shutdown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunReleasesInReverseOrder(t *testing.T) {
	c := New(zerolog.Nop(), time.Second, func() int { return 0 }, func() int { return 0 })

	var order []int
	c.OnRelease(func() { order = append(order, 1) })
	c.OnRelease(func() { order = append(order, 2) })
	c.OnRelease(func() { order = append(order, 3) })

	c.Run(context.Background())

	want := []int{3, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRunStopsDrainingOnceConnectionsReachZero(t *testing.T) {
	var remaining atomic.Int64
	remaining.Store(2)

	c := New(zerolog.Nop(), 5*time.Second,
		func() int { return int(remaining.Load()) },
		func() int { return 0 })

	go func() {
		time.Sleep(20 * time.Millisecond)
		remaining.Store(0)
	}()

	start := time.Now()
	c.Run(context.Background())
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Run took %v, expected to exit promptly once connections drained", elapsed)
	}
}

func TestRunForceDisconnectsAfterGracePeriodExpires(t *testing.T) {
	var disconnectCalled atomic.Bool

	c := New(zerolog.Nop(), 50*time.Millisecond,
		func() int { return 1 }, // never drains on its own
		func() int { disconnectCalled.Store(true); return 1 })

	c.Run(context.Background())

	if !disconnectCalled.Load() {
		t.Fatal("expected disconnectAll to be called once the grace period expired")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	var releaseCount atomic.Int64
	c := New(zerolog.Nop(), time.Second, func() int { return 0 }, func() int { return 0 })
	c.OnRelease(func() { releaseCount.Add(1) })

	c.Run(context.Background())
	c.Run(context.Background())

	if got := releaseCount.Load(); got != 1 {
		t.Fatalf("release ran %d times, want 1 (Run should be idempotent)", got)
	}
}

func TestNewDefaultsGracePeriod(t *testing.T) {
	c := New(zerolog.Nop(), 0, func() int { return 0 }, func() int { return 0 })
	if c.gracePeriod != 30*time.Second {
		t.Fatalf("gracePeriod = %v, want 30s default", c.gracePeriod)
	}
}

// Package health samples process-level resource usage for the /health
// and /api/stats endpoints. It reuses the teacher's gopsutil-based
// sampling technique but drops its dynamic-limit decision logic: this
// server reports resource state, it does not throttle admission on it
// (that is connmanager's job, driven by static caps).
package health

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is the point-in-time resource reading returned to callers.
type Snapshot struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	Goroutines    int     `json:"goroutines"`
	MemoryRSSMB   float64 `json:"memory_rss_mb"`
	CPUPercent    float64 `json:"cpu_percent"`
}

// Sampler periodically measures host-wide CPU usage and this process's
// RSS and caches the last reading, so request-serving goroutines only
// read the cached value and never call into gopsutil themselves.
type Sampler struct {
	startedAt time.Time
	proc      *process.Process

	mu   sync.RWMutex
	last Snapshot
}

func New() *Sampler {
	s := &Sampler{startedAt: time.Now()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		s.proc = proc
	}
	return s
}

// Run samples at interval until stop is closed. The first sample is
// synchronous so an immediate /health call after startup is not empty.
func (s *Sampler) Run(interval time.Duration, stop <-chan struct{}) {
	s.sample()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sample()
		case <-stop:
			return
		}
	}
}

func (s *Sampler) sample() {
	snap := Snapshot{
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
	}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		snap.CPUPercent = pct[0]
	}

	if s.proc != nil {
		if info, err := s.proc.MemoryInfo(); err == nil {
			snap.MemoryRSSMB = float64(info.RSS) / 1024 / 1024
		}
	}

	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()
}

// Snapshot returns the most recent reading, refreshing the uptime field
// live since that one is cheap to compute on every call.
func (s *Sampler) Snapshot() Snapshot {
	s.mu.RLock()
	snap := s.last
	s.mu.RUnlock()
	snap.UptimeSeconds = time.Since(s.startedAt).Seconds()
	return snap
}

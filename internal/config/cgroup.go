package config

import (
	"os"
	"strconv"
	"strings"
)

// memoryLimit returns the container memory limit in bytes, checking
// cgroup v2 first and falling back to v1. Returns 0 when no limit is
// detected (unconstrained host, or not running under cgroups at all).
func memoryLimit() int64 {
	if data, err := os.ReadFile("/sys/fs/cgroup/memory.max"); err == nil {
		limitStr := strings.TrimSpace(string(data))
		if limitStr != "max" {
			if v, err := strconv.ParseInt(limitStr, 10, 64); err == nil {
				return v
			}
		}
	}

	if data, err := os.ReadFile("/sys/fs/cgroup/memory/memory.limit_in_bytes"); err == nil {
		limitStr := strings.TrimSpace(string(data))
		if v, err := strconv.ParseInt(limitStr, 10, 64); err == nil {
			return v
		}
	}

	return 0
}

// bytesPerSubscriber estimates the steady-state memory cost of one SSE
// subscriber: the bounded frame queue (maxQueueSize slots at an assumed
// ~500 byte average frame) plus struct/mutex overhead. This server has no
// per-subscriber replay buffer, so the estimate is considerably lighter
// than a reliability-oriented WebSocket hub's per-connection cost.
const bytesPerSubscriber = 1000*500 + 2*1024 // ~502KB

// DefaultMaxConnections computes a safe MAX_CONNECTIONS default from the
// detected container memory limit, reserving headroom for the Go runtime
// itself. Returns a conservative flat default when no cgroup limit is
// detected.
func DefaultMaxConnections() int {
	limit := memoryLimit()
	if limit == 0 {
		return 10000
	}

	const runtimeOverheadBytes = 128 * 1024 * 1024
	available := limit - runtimeOverheadBytes
	if available < 0 {
		available = limit / 2
	}

	maxConns := int(available / bytesPerSubscriber)
	if maxConns < 100 {
		maxConns = 100
	}
	if maxConns > 200000 {
		maxConns = 200000
	}
	return maxConns
}

package httpapi

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"github.com/mood-agency/logbroker/internal/apierr"
)

type channelView struct {
	Name         string  `json:"name"`
	LogCount     int64   `json:"logCount"`
	Subscribers  int     `json:"subscribers"`
	LastActivity float64 `json:"lastActivitySecondsAgo"`
}

// handleChannels implements GET /api/channels: a snapshot of every
// registered channel with its log count, live subscriber count, and
// idle time.
func (s *server) handleChannels(w http.ResponseWriter, r *http.Request) {
	names := s.registry.Names()
	views := make([]channelView, 0, len(names))
	for _, name := range names {
		info, ok := s.registry.Get(name)
		if !ok {
			continue
		}
		views = append(views, channelView{
			Name:         name,
			LogCount:     info.LogCount(),
			Subscribers:  s.conns.CountForChannel(name),
			LastActivity: time.Since(info.LastActivity()).Seconds(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": views})
}

const (
	minGeneratedKeyLength     = 16
	maxGeneratedKeyLength     = 64
	defaultGeneratedKeyLength = 32
)

// handleGenerateKey implements GET /api/generate-key?length=n: a
// stateless helper that mints a random, base64url-encoded key for an
// operator to configure as API_KEY out of band. The broker itself never
// persists generated keys.
func (s *server) handleGenerateKey(w http.ResponseWriter, r *http.Request) {
	length := defaultGeneratedKeyLength
	if raw := r.URL.Query().Get("length"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			length = n
		}
	}
	if length < minGeneratedKeyLength {
		length = minGeneratedKeyLength
	}
	if length > maxGeneratedKeyLength {
		length = maxGeneratedKeyLength
	}

	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		writeAPIError(w, apierr.New(apierr.KindServiceUnavailable, "failed to generate key"))
		return
	}
	key := base64.RawURLEncoding.EncodeToString(raw)
	writeJSON(w, http.StatusOK, map[string]any{"key": key})
}

// handleStats implements GET /api/stats: process health plus connection
// and channel directory counts.
func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.health.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"uptimeSeconds":   snap.UptimeSeconds,
		"goroutines":      snap.Goroutines,
		"memoryRssMb":     snap.MemoryRSSMB,
		"cpuPercent":      snap.CPUPercent,
		"connections":     s.conns.Count(),
		"channels":        len(s.registry.Names()),
		"idPoolAvailable": s.ids.Len(),
		"droppedMessages": s.conns.TotalDroppedMessages(),
		"bytesSent":       s.conns.TotalBytesSent(),
	})
}

// handleDisconnect implements POST /api/logs/disconnect: force-closes
// every subscriber of one channel. Does not affect the channel's
// counters or its existence in the registry.
func (s *server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		writeAPIError(w, apierr.BadRequest("channel query parameter is required"))
		return
	}
	count := s.conns.DisconnectChannel(channel)
	writeJSON(w, http.StatusOK, map[string]any{"channel": channel, "closedConnections": count})
}

// handleClear implements DELETE /api/logs: resets a channel's (or every
// channel's, if unspecified) log counter. Live subscribers are
// untouched -- this only affects counters reported by /api/channels.
func (s *server) handleClear(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	s.registry.ResetCounters(channel)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "channel": channel})
}

// handleHealth implements GET /health: unauthenticated liveness/readiness
// probe.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.health.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"uptime":      snap.UptimeSeconds,
		"goroutines":  snap.Goroutines,
		"memoryRssMb": snap.MemoryRSSMB,
		"cpuPercent":  snap.CPUPercent,
		"connections": s.conns.Count(),
		"channels":    len(s.registry.Names()),
	})
}

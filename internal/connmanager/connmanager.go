// Package connmanager is the admission-control and subscriber-directory
// component: it enforces the global and per-client connection caps, the
// ingest burst limiter, and maintains the channel-indexed fan-out table
// the bus reads from. Removal here and removal from the fan-out table
// happen under the same lock, so the bus never sees a half-removed
// subscriber.
package connmanager

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mood-agency/logbroker/internal/apierr"
	"github.com/mood-agency/logbroker/internal/bus"
)

// ActivityReporter is implemented by subscriber.Runtime; it lets the
// manager's staleness sweep find connections that stopped flushing
// frames without going through a full close, and lets /api/stats surface
// the process-wide drop/throughput counters without the manager knowing
// anything about SSE framing.
type ActivityReporter interface {
	LastActivity() time.Time
	DroppedMessages() int64
	BytesSent() int64
}

type entry struct {
	sink      bus.Sink
	channel   string
	clientKey string
	activity  ActivityReporter
	close     func()
	createdAt time.Time
}

// Config mirrors the admission knobs in §6/SPEC_FULL.
type Config struct {
	MaxConnections      int
	MaxConnectionsPerIP int
	AdmissionBurst      int
	AdmissionWindow     time.Duration
	StaleTimeout        time.Duration
}

// Manager is the subscriber directory and admission gate.
type Manager struct {
	cfg Config

	ingest *rate.Limiter

	mu          sync.RWMutex
	subscribers map[string]*entry
	byChannel   map[string]map[string]struct{}
	byClientKey map[string]int
}

func New(cfg Config) *Manager {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 10000
	}
	if cfg.MaxConnectionsPerIP <= 0 {
		cfg.MaxConnectionsPerIP = 100
	}
	if cfg.AdmissionBurst <= 0 {
		cfg.AdmissionBurst = 200
	}
	if cfg.AdmissionWindow <= 0 {
		cfg.AdmissionWindow = time.Second
	}
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = 45 * time.Second
	}

	every := cfg.AdmissionWindow / time.Duration(cfg.AdmissionBurst)
	return &Manager{
		cfg:         cfg,
		ingest:      rate.NewLimiter(rate.Every(every), cfg.AdmissionBurst),
		subscribers: make(map[string]*entry),
		byChannel:   make(map[string]map[string]struct{}),
		byClientKey: make(map[string]int),
	}
}

// AllowIngest reports whether an incoming POST /api/logs request may
// proceed past the global burst gate. This is independent of, and
// stricter than, the per-client token-bucket limiter.
func (m *Manager) AllowIngest() bool {
	return m.ingest.Allow()
}

// Admit checks the global and per-client-key connection caps without
// registering anything. Call Register after the caller has actually
// accepted the connection.
func (m *Manager) Admit(clientKey string) *apierr.Error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.subscribers) >= m.cfg.MaxConnections {
		return apierr.ServiceUnavailable("server at connection capacity", 5)
	}
	if m.byClientKey[clientKey] >= m.cfg.MaxConnectionsPerIP {
		return apierr.ServiceUnavailable("too many connections from this client", 5)
	}
	return nil
}

// Register adds a subscriber to the directory and its channel's fan-out
// set. closeFn is invoked by the staleness sweep to tear down a dead
// connection; it must be idempotent.
func (m *Manager) Register(id, channel, clientKey string, sink bus.Sink, activity ActivityReporter, closeFn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &entry{
		sink:      sink,
		channel:   channel,
		clientKey: clientKey,
		activity:  activity,
		close:     closeFn,
		createdAt: time.Now(),
	}
	m.subscribers[id] = e
	m.byClientKey[clientKey]++

	set, ok := m.byChannel[channel]
	if !ok {
		set = make(map[string]struct{})
		m.byChannel[channel] = set
	}
	set[id] = struct{}{}
}

// Remove drops a subscriber from the directory and its channel's fan-out
// set. Safe to call more than once for the same id.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(id)
}

func (m *Manager) removeLocked(id string) {
	e, ok := m.subscribers[id]
	if !ok {
		return
	}
	delete(m.subscribers, id)

	m.byClientKey[e.clientKey]--
	if m.byClientKey[e.clientKey] <= 0 {
		delete(m.byClientKey, e.clientKey)
	}

	if set, ok := m.byChannel[e.channel]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(m.byChannel, e.channel)
		}
	}
}

// SubscribersFor implements bus.SubscriberIndex.
func (m *Manager) SubscribersFor(channel string) []bus.Sink {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.byChannel[channel]
	if !ok {
		return nil
	}
	sinks := make([]bus.Sink, 0, len(set))
	for id := range set {
		sinks = append(sinks, m.subscribers[id].sink)
	}
	return sinks
}

// AllSinks implements bus.SubscriberIndex.
func (m *Manager) AllSinks() []bus.Sink {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sinks := make([]bus.Sink, 0, len(m.subscribers))
	for _, e := range m.subscribers {
		sinks = append(sinks, e.sink)
	}
	return sinks
}

// Count returns the number of live subscribers across all channels.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers)
}

// CountForChannel returns the number of live subscribers of one channel.
func (m *Manager) CountForChannel(channel string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byChannel[channel])
}

// TotalDroppedMessages sums every live subscriber's backpressure drop
// counter, for /api/stats.
func (m *Manager) TotalDroppedMessages() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for _, e := range m.subscribers {
		if e.activity != nil {
			total += e.activity.DroppedMessages()
		}
	}
	return total
}

// TotalBytesSent sums every live subscriber's flushed-bytes counter, for
// /api/stats.
func (m *Manager) TotalBytesSent() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for _, e := range m.subscribers {
		if e.activity != nil {
			total += e.activity.BytesSent()
		}
	}
	return total
}

// SweepStale closes and removes every subscriber whose activity reporter
// has been silent longer than the configured stale timeout, returning how
// many were disconnected.
func (m *Manager) SweepStale() int {
	cutoff := time.Now().Add(-m.cfg.StaleTimeout)

	m.mu.Lock()
	var stale []string
	for id, e := range m.subscribers {
		if e.activity != nil && e.activity.LastActivity().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		if e, ok := m.subscribers[id]; ok && e.close != nil {
			e.close()
		}
		m.removeLocked(id)
	}
	m.mu.Unlock()

	return len(stale)
}

// DisconnectChannel closes and removes every subscriber of one channel,
// used by the disconnect control endpoint.
func (m *Manager) DisconnectChannel(channel string) int {
	m.mu.Lock()
	set, ok := m.byChannel[channel]
	var ids []string
	if ok {
		ids = make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		if e, ok := m.subscribers[id]; ok && e.close != nil {
			e.close()
		}
		m.removeLocked(id)
	}
	m.mu.Unlock()
	return len(ids)
}

// DisconnectAll closes and removes every subscriber, used during
// shutdown drain.
func (m *Manager) DisconnectAll() int {
	m.mu.Lock()
	ids := make([]string, 0, len(m.subscribers))
	for id := range m.subscribers {
		ids = append(ids, id)
	}
	for _, id := range ids {
		if e, ok := m.subscribers[id]; ok && e.close != nil {
			e.close()
		}
		m.removeLocked(id)
	}
	m.mu.Unlock()
	return len(ids)
}

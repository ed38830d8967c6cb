// Package channelregistry tracks named channels, their activity
// timestamps and log counters, enforcing a cap (LRU eviction) and a TTL
// (idle expiry). The reserved "default" channel lives outside the cache
// entirely so it is structurally immune to both.
package channelregistry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/rs/zerolog"

	"github.com/mood-agency/logbroker/internal/model"
)

// Info mirrors the spec's ChannelInfo record. LastActivity and LogCount
// are updated atomically so reads don't need the registry's lock.
type Info struct {
	Name       string
	CreatedAt  time.Time
	lastActive atomic.Int64 // unix nanos
	logCount   atomic.Int64
}

func (i *Info) LastActivity() time.Time { return time.Unix(0, i.lastActive.Load()) }
func (i *Info) LogCount() int64         { return i.logCount.Load() }

func newInfo(name string) *Info {
	info := &Info{Name: name, CreatedAt: time.Now()}
	info.lastActive.Store(time.Now().UnixNano())
	return info
}

// OnChannelAdded is invoked (outside the registry's own lock) the first
// time a channel name is registered.
type OnChannelAdded func(name string)

// Registry is the channel directory. maxChannels and ttl come from
// Config.MaxChannels / Config.ChannelTTL. Cap enforcement (LRU) and idle
// expiry (TTL) are delegated to the otter cache; a side index of live
// names is kept alongside it for Names()/ResetCounters(""), since the
// cache itself exposes no iteration primitive.
type Registry struct {
	log zerolog.Logger

	cache *otter.Cache[string, *Info]

	mu    sync.RWMutex
	names map[string]struct{}
	def   *Info // the reserved "default" channel, outside the cache

	onAdded OnChannelAdded
}

func New(log zerolog.Logger, maxChannels int, ttl time.Duration, onAdded OnChannelAdded) (*Registry, error) {
	cache, err := otter.New(&otter.Options[string, *Info]{
		MaximumSize:      maxChannels,
		ExpiryCalculator: otter.ExpiryWriting[string, *Info](ttl),
	})
	if err != nil {
		return nil, err
	}
	r := &Registry{
		log:     log.With().Str("component", "channelregistry").Logger(),
		cache:   cache,
		names:   make(map[string]struct{}),
		def:     newInfo(model.DefaultChannel),
		onAdded: onAdded,
	}
	return r, nil
}

// Register creates the channel on first use (emitting channelAdded) or
// bumps its activity timestamp and log count if it already exists.
// Eviction of the LRU non-reserved entry to stay under the cap is handled
// by the underlying cache's MaximumSize policy.
func (r *Registry) Register(name string) *Info {
	if name == model.DefaultChannel || name == "" {
		r.def.lastActive.Store(time.Now().UnixNano())
		r.def.logCount.Add(1)
		return r.def
	}

	if info, ok := r.cache.GetIfPresent(name); ok {
		info.lastActive.Store(time.Now().UnixNano())
		info.logCount.Add(1)
		r.cache.Set(name, info) // restart the write-based TTL from this activity
		return info
	}

	info := newInfo(name)
	info.logCount.Add(1)
	r.insert(name, info)
	return info
}

// Touch bumps activity without incrementing the log counter -- used when
// a subscriber explicitly subscribes to a channel rather than a log being
// published to it.
func (r *Registry) Touch(name string) *Info {
	if name == model.DefaultChannel || name == "" {
		r.def.lastActive.Store(time.Now().UnixNano())
		return r.def
	}
	if info, ok := r.cache.GetIfPresent(name); ok {
		info.lastActive.Store(time.Now().UnixNano())
		r.cache.Set(name, info) // restart the write-based TTL from this activity
		return info
	}

	info := newInfo(name)
	r.insert(name, info)
	return info
}

// Get returns one channel's Info, if it is currently registered.
func (r *Registry) Get(name string) (*Info, bool) {
	if name == model.DefaultChannel || name == "" {
		return r.def, true
	}
	return r.cache.GetIfPresent(name)
}

func (r *Registry) insert(name string, info *Info) {
	r.cache.Set(name, info)

	r.mu.Lock()
	r.names[name] = struct{}{}
	r.mu.Unlock()

	if r.onAdded != nil {
		r.onAdded(name)
	}
}

// Names returns a snapshot of every registered channel name, "default"
// first. Entries evicted or expired since they were last observed here
// are pruned lazily.
func (r *Registry) Names() []string {
	r.mu.RLock()
	candidates := make([]string, 0, len(r.names))
	for name := range r.names {
		candidates = append(candidates, name)
	}
	r.mu.RUnlock()

	names := []string{model.DefaultChannel}
	var stale []string
	for _, name := range candidates {
		if _, ok := r.cache.GetIfPresent(name); ok {
			names = append(names, name)
		} else {
			stale = append(stale, name)
		}
	}

	if len(stale) > 0 {
		r.mu.Lock()
		for _, name := range stale {
			delete(r.names, name)
		}
		r.mu.Unlock()
	}

	return names
}

// ResetCounters zeroes the log counter for one channel, or every channel
// when name is empty. Used by DELETE /logs.
func (r *Registry) ResetCounters(name string) {
	if name == "" {
		r.def.logCount.Store(0)
		for _, n := range r.Names() {
			if n == model.DefaultChannel {
				continue
			}
			if info, ok := r.cache.GetIfPresent(n); ok {
				info.logCount.Store(0)
			}
		}
		return
	}
	if name == model.DefaultChannel {
		r.def.logCount.Store(0)
		return
	}
	if info, ok := r.cache.GetIfPresent(name); ok {
		info.logCount.Store(0)
	}
}

// CleanupExpired prunes the side name index of every channel the cache no
// longer holds. otter's ExpiryWriting calculator expires individual
// entries on its own; this sweep only clears their names so Names()
// doesn't keep reporting channels that expired between observations.
// Channels still present in the cache are left untouched.
func (r *Registry) CleanupExpired() {
	r.mu.Lock()
	stale := make([]string, 0, len(r.names))
	for name := range r.names {
		stale = append(stale, name)
	}
	r.mu.Unlock()

	for _, name := range stale {
		if _, ok := r.cache.GetIfPresent(name); !ok {
			r.mu.Lock()
			delete(r.names, name)
			r.mu.Unlock()
		}
	}
}

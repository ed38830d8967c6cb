// Package bus is the pub/sub core: it serializes a published entry
// exactly once and fans it out to every subscriber of the target
// channel, never blocking on a slow subscriber and never performing I/O
// itself -- all I/O lives in the subscriber runtime's writer goroutine.
//
// The two near-duplicate delivery mechanisms the distillation carried
// (one emitting in-process events, one calling an external pub/sub
// client) collapse into this one Bus: the in-process fan-out below is
// canonical, and an optional NATS sink can be wired in as a secondary,
// best-effort backend without touching Publish's contract.
package bus

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/mood-agency/logbroker/internal/model"
	"github.com/mood-agency/logbroker/internal/workerpool"
)

// Sink is anything that can receive a fan-out frame without blocking the
// bus. subscriber.Runtime implements it.
type Sink interface {
	Enqueue(frame model.Frame)
}

// SubscriberIndex is the read side of the connection directory the bus
// needs: per-channel fan-out lists and the global subscriber list (for
// channelAdded, which every live subscriber receives regardless of which
// channel it follows).
type SubscriberIndex interface {
	SubscribersFor(channel string) []Sink
	AllSinks() []Sink
}

// SecondarySink is an optional out-of-process fan-out backend (NATS).
// PublishEntry must not block or panic; the bus treats it as best-effort.
type SecondarySink interface {
	PublishEntry(channel string, payload []byte) error
}

// Bus routes published entries to subscribers. It holds no subscriber
// state of its own -- SubscriberIndex is the connection manager's
// directory, accessed read-only here.
type Bus struct {
	log   zerolog.Logger
	index SubscriberIndex

	secondary SecondarySink
	async     *workerpool.Pool
}

func New(log zerolog.Logger, index SubscriberIndex, secondary SecondarySink, async *workerpool.Pool) *Bus {
	return &Bus{
		log:       log.With().Str("component", "bus").Logger(),
		index:     index,
		secondary: secondary,
		async:     async,
	}
}

// Publish serializes entry once and delivers it as a single `log` frame
// to every subscriber of entry.Channel.
func (b *Bus) Publish(entry *model.LogEntry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		// PublishInternal: should be impossible post-normalization.
		// Logged and swallowed so one malformed entry can't halt the bus.
		b.log.Error().Err(err).Str("channel", entry.Channel).Msg("entry serialization failed")
		return
	}

	frame := model.Frame{Kind: model.FrameKindLog, ID: entry.ID, Payload: payload}
	b.fanOut(entry.Channel, frame)
	b.sendSecondary(entry.Channel, payload)
}

// PublishBatch partitions entries by channel (preserving relative order
// within each partition) and ships each partition as one `batch` frame,
// so a mixed-channel batch never crosses between channels' subscribers.
func (b *Bus) PublishBatch(entries []*model.LogEntry) {
	order := make([]string, 0, 4)
	partitions := make(map[string][]*model.LogEntry)
	for _, entry := range entries {
		if _, ok := partitions[entry.Channel]; !ok {
			order = append(order, entry.Channel)
		}
		partitions[entry.Channel] = append(partitions[entry.Channel], entry)
	}

	for _, channel := range order {
		group := partitions[channel]
		payload, err := json.Marshal(model.BatchPayload{Logs: group})
		if err != nil {
			b.log.Error().Err(err).Str("channel", channel).Msg("batch serialization failed")
			continue
		}
		frame := model.Frame{Kind: model.FrameKindBatch, ID: group[0].ID, Payload: payload}
		b.fanOut(channel, frame)
		b.sendSecondary(channel, payload)
	}
}

// NotifyChannelAdded fans out a channelAdded frame to every live
// subscriber, regardless of channel.
func (b *Bus) NotifyChannelAdded(name string) {
	payload, err := json.Marshal(model.ChannelAddedPayload{Channel: name})
	if err != nil {
		b.log.Error().Err(err).Msg("channelAdded serialization failed")
		return
	}
	frame := model.Frame{Kind: model.FrameKindChannelAdded, ID: "channel-" + name, Payload: payload}
	for _, sink := range b.index.AllSinks() {
		sink.Enqueue(frame)
	}
}

func (b *Bus) fanOut(channel string, frame model.Frame) {
	for _, sink := range b.index.SubscribersFor(channel) {
		sink.Enqueue(frame)
	}
}

func (b *Bus) sendSecondary(channel string, payload []byte) {
	if b.secondary == nil || b.async == nil {
		return
	}
	b.async.Submit(func() {
		if err := b.secondary.PublishEntry(channel, payload); err != nil {
			b.log.Debug().Err(err).Str("channel", channel).Msg("secondary publish failed")
		}
	})
}

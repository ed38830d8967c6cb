// Package subscriber owns the per-connection side of an SSE stream: a
// bounded, drop-oldest frame queue and the writer goroutine that drains
// it onto the wire. One Runtime exists per open GET /api/logs/stream
// connection; the bus sees it only through the bus.Sink interface, and
// the connection manager through bus.Sink, connmanager.ActivityReporter
// and its Close method.
package subscriber

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mood-agency/logbroker/internal/model"
)

// Config controls queue depth and heartbeat cadence. Zero values fall
// back to the documented defaults.
type Config struct {
	QueueSize         int
	HeartbeatInterval time.Duration
}

// Runtime is one subscriber's bounded frame queue plus SSE writer.
// Enqueue is safe to call from any goroutine (the bus calls it from
// whichever request goroutine is publishing); Run must be called once,
// from the HTTP handler goroutine that owns w.
type Runtime struct {
	id  string
	log zerolog.Logger

	w       http.ResponseWriter
	flusher http.Flusher

	heartbeat time.Duration

	mu    sync.Mutex
	queue []model.Frame
	cap   int
	wake  chan struct{}

	lastActive atomic.Int64 // unix nanos, bumped on every successful write and heartbeat

	dropped atomic.Int64
	sent    atomic.Int64

	closeOnce sync.Once
	closed    chan struct{}
}

// New constructs a Runtime. w must support http.Flusher (guaranteed by
// net/http's ResponseWriter for real connections); flushing is required
// for SSE to stream incrementally rather than buffer.
func New(id string, log zerolog.Logger, w http.ResponseWriter, cfg Config) (*Runtime, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 15 * time.Second
	}

	r := &Runtime{
		id:        id,
		log:       log.With().Str("component", "subscriber").Str("subscriber_id", id).Logger(),
		w:         w,
		flusher:   flusher,
		heartbeat: cfg.HeartbeatInterval,
		cap:       cfg.QueueSize,
		wake:      make(chan struct{}, 1),
		closed:    make(chan struct{}),
	}
	r.lastActive.Store(time.Now().UnixNano())
	return r, nil
}

// ID returns the subscriber's stable identifier.
func (r *Runtime) ID() string { return r.id }

// Enqueue appends frame to the queue, dropping the oldest queued frame
// when at capacity so one slow subscriber never blocks the publisher and
// never grows without bound. A closed Runtime silently discards frames.
func (r *Runtime) Enqueue(frame model.Frame) {
	r.mu.Lock()
	select {
	case <-r.closed:
		r.mu.Unlock()
		return
	default:
	}

	if len(r.queue) >= r.cap {
		r.queue = r.queue[1:]
		r.dropped.Add(1)
	}
	r.queue = append(r.queue, frame)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// LastActivity reports the last time a frame or heartbeat was written
// without error to this subscriber's buffered stream, for connmanager's
// staleness sweep.
func (r *Runtime) LastActivity() time.Time {
	return time.Unix(0, r.lastActive.Load())
}

// DroppedMessages reports how many frames this subscriber's queue has
// discarded under backpressure since it attached.
func (r *Runtime) DroppedMessages() int64 {
	return r.dropped.Load()
}

// BytesSent reports the cumulative payload bytes this subscriber has had
// flushed to the wire.
func (r *Runtime) BytesSent() int64 {
	return r.sent.Load()
}

// Run drains the queue onto the wire until ctx is cancelled (the request
// context, cancelled on client disconnect) or Close is called. It sends
// the initial attach frames first, synchronously, before entering the
// steady-state loop.
func (r *Runtime) Run(ctx context.Context, bw *bufio.Writer, initial []model.Frame) error {
	for _, frame := range initial {
		if err := r.writeFrame(bw, frame); err != nil {
			return err
		}
	}
	r.flush(bw)

	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return ctx.Err()
		case <-r.closed:
			return nil
		case <-ticker.C:
			if err := r.writeFrame(bw, model.Frame{Kind: model.FrameKindPing, ID: "heartbeat"}); err != nil {
				return err
			}
			r.flush(bw)
		case <-r.wake:
			for {
				frame, ok := r.dequeue()
				if !ok {
					break
				}
				if err := r.writeFrame(bw, frame); err != nil {
					return err
				}
			}
			r.flush(bw)
		}
	}
}

func (r *Runtime) dequeue() (model.Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return model.Frame{}, false
	}
	frame := r.queue[0]
	r.queue = r.queue[1:]
	return frame, true
}

func (r *Runtime) writeFrame(bw *bufio.Writer, frame model.Frame) error {
	if _, err := fmt.Fprintf(bw, "event: %s\n", frame.Kind); err != nil {
		return err
	}
	if frame.ID != "" {
		if _, err := fmt.Fprintf(bw, "id: %s\n", frame.ID); err != nil {
			return err
		}
	}
	if len(frame.Payload) > 0 {
		if _, err := fmt.Fprintf(bw, "data: %s\n\n", frame.Payload); err != nil {
			return err
		}
	} else {
		if _, err := bw.WriteString("data: {}\n\n"); err != nil {
			return err
		}
	}
	r.lastActive.Store(time.Now().UnixNano())
	r.sent.Add(int64(len(frame.Payload)))
	return nil
}

func (r *Runtime) flush(bw *bufio.Writer) {
	_ = bw.Flush()
	r.flusher.Flush()
}

// Close idempotently marks the Runtime closed; Enqueue becomes a no-op
// and a blocked Run returns.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() {
		close(r.closed)
	})
}

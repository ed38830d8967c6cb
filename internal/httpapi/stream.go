package httpapi

import (
	"bufio"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/mood-agency/logbroker/internal/apierr"
	"github.com/mood-agency/logbroker/internal/model"
	"github.com/mood-agency/logbroker/internal/ratelimit"
	"github.com/mood-agency/logbroker/internal/subscriber"
)

// handleStream implements GET /api/logs/stream: it opens an SSE
// connection, admits it against the global/per-client caps, sends the
// initial attach sequence (ping, channel snapshot), then blocks for the
// life of the connection relaying fan-out frames.
func (s *server) handleStream(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		writeAPIError(w, apierr.BadRequest("Channel parameter is required"))
		return
	}

	clientKey := ratelimit.ClientKey(r, s.cfg.TrustProxy)
	if apiErr := s.conns.Admit(clientKey); apiErr != nil {
		s.metrics.ConnectionsFailed.WithLabelValues(string(apiErr.Kind)).Inc()
		writeAPIError(w, apiErr)
		return
	}

	id := uuid.NewString()
	runtime, err := subscriber.New(id, s.log, w, subscriber.Config{
		QueueSize:         s.cfg.MaxQueueSize,
		HeartbeatInterval: s.cfg.HeartbeatInterval,
	})
	if err != nil {
		writeAPIError(w, apierr.New(apierr.KindServiceUnavailable, "streaming not supported"))
		return
	}

	s.registry.Touch(channel)
	s.conns.Register(id, channel, clientKey, runtime, runtime, runtime.Close)
	defer s.conns.Remove(id)

	s.metrics.ConnectionsTotal.Inc()
	s.metrics.ConnectionsActive.Inc()
	defer s.metrics.ConnectionsActive.Dec()

	writeSSEHeaders(w)

	names := s.registry.Names()
	snapshot, _ := json.Marshal(model.ChannelsSnapshot{Channels: names})
	initial := []model.Frame{
		{Kind: model.FrameKindPing, ID: "init"},
		{Kind: model.FrameKindChannels, ID: "channels", Payload: snapshot},
	}

	bw := bufio.NewWriter(w)
	if err := runtime.Run(r.Context(), bw, initial); err != nil {
		s.log.Debug().Err(err).Str("subscriber_id", id).Msg("stream ended")
	}
}

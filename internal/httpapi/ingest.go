package httpapi

import (
	"bytes"
	"io"
	"net/http"

	"github.com/mood-agency/logbroker/internal/apierr"
	"github.com/mood-agency/logbroker/internal/model"
	"github.com/mood-agency/logbroker/internal/ratelimit"
	"github.com/mood-agency/logbroker/internal/validate"
)

// handleIngest implements POST /api/logs: validate, normalize, publish.
// A single JSON object is one entry; a `{"logs": [...]}` envelope is a
// batch, partitioned by channel before fan-out.
func (s *server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !s.conns.AllowIngest() {
		s.metrics.IngestRejected.WithLabelValues("burst_limited").Inc()
		writeAPIError(w, apierr.ServiceUnavailable("ingest burst limit exceeded", 1))
		return
	}

	if s.cfg.EnableRateLimit {
		key := ratelimit.ClientKey(r, s.cfg.TrustProxy)
		if !s.limiter.TryConsume(key) {
			s.metrics.IngestRejected.WithLabelValues("rate_limited").Inc()
			retryAfter := int(s.limiter.RetryAfter(key).Seconds()) + 1
			writeAPIError(w, apierr.RateLimited(retryAfter, s.cfg.RateLimitMax))
			return
		}
	}

	// Request-level default channel: X-Channel header wins over the
	// channel query param; either is overridden per-entry by a record's
	// own channel field during normalization.
	defaultChannel := r.Header.Get("X-Channel")
	if defaultChannel == "" {
		defaultChannel = r.URL.Query().Get("channel")
	}
	if defaultChannel == "" {
		defaultChannel = model.DefaultChannel
	}

	buf := s.bufs.Get(s.cfg.MaxSingleLogSize)
	defer s.bufs.Put(buf)

	bb := bytes.NewBuffer((*buf)[:0])
	if _, err := io.Copy(bb, http.MaxBytesReader(w, r.Body, s.cfg.MaxPayloadSize+1)); err != nil {
		s.metrics.IngestRejected.WithLabelValues("too_large").Inc()
		writeAPIError(w, apierr.PayloadTooLarge("request body exceeds the configured limit"))
		return
	}
	body := bb.Bytes()

	limits := validate.Limits{
		MaxPayloadSize:   s.cfg.MaxPayloadSize,
		MaxBatchSize:     s.cfg.MaxBatchSize,
		MaxSingleLogSize: s.cfg.MaxSingleLogSize,
	}
	result, apiErr := validate.Validate(body, limits)
	if apiErr != nil {
		s.metrics.IngestRejected.WithLabelValues(string(apiErr.Kind)).Inc()
		writeAPIError(w, apiErr)
		return
	}

	s.metrics.IngestTotal.Inc()

	if result.Batch {
		entries := make([]*model.LogEntry, 0, len(result.Entries))
		for _, raw := range result.Entries {
			entry, err := s.normalizer.Normalize(raw, defaultChannel)
			if err != nil {
				continue
			}
			s.registry.Register(entry.Channel)
			entries = append(entries, entry)
		}
		if len(entries) == 0 {
			writeAPIError(w, apierr.BadRequest("no valid entries in batch"))
			return
		}
		s.metrics.EntriesAccepted.Add(float64(len(entries)))
		s.bus.PublishBatch(entries)
		writeJSON(w, http.StatusCreated, map[string]any{"received": len(entries), "channel": defaultChannel})
		return
	}

	entry, err := s.normalizer.Normalize(result.Single, defaultChannel)
	if err != nil {
		writeAPIError(w, apierr.InvalidJSON())
		return
	}
	s.registry.Register(entry.Channel)
	s.metrics.EntriesAccepted.Inc()
	s.bus.Publish(entry)
	writeJSON(w, http.StatusCreated, map[string]any{"received": 1, "channel": defaultChannel})
}

package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/mood-agency/logbroker/internal/bus"
	"github.com/mood-agency/logbroker/internal/channelregistry"
	"github.com/mood-agency/logbroker/internal/config"
	"github.com/mood-agency/logbroker/internal/connmanager"
	"github.com/mood-agency/logbroker/internal/health"
	"github.com/mood-agency/logbroker/internal/idpool"
	"github.com/mood-agency/logbroker/internal/metrics"
	"github.com/mood-agency/logbroker/internal/normalize"
	"github.com/mood-agency/logbroker/internal/ratelimit"
)

func newTestHandler(t *testing.T, mutate func(*config.Config)) http.Handler {
	t.Helper()

	cfg := config.Config{
		MaxChannels:          100,
		ChannelTTL:           time.Hour,
		MaxQueueSize:         16,
		HeartbeatInterval:    time.Hour,
		MaxConnections:       100,
		MaxConnectionsPerIP:  100,
		StaleTimeout:         time.Minute,
		AdmissionBurst:       1000,
		AdmissionBurstWindow: time.Second,
		MaxPayloadSize:       1 << 20,
		MaxBatchSize:         100,
		MaxSingleLogSize:     1 << 16,
		EnableRateLimit:      false,
		RateLimitMax:         1000,
		RateLimitWindow:      time.Minute,
		CORSOrigin:           "*",
	}
	if mutate != nil {
		mutate(&cfg)
	}

	log := zerolog.Nop()
	ids := idpool.New(log, 8, 2, 8)
	registry, err := channelregistry.New(log, cfg.MaxChannels, cfg.ChannelTTL, nil)
	if err != nil {
		t.Fatalf("channelregistry.New: %v", err)
	}
	conns := connmanager.New(connmanager.Config{
		MaxConnections:      cfg.MaxConnections,
		MaxConnectionsPerIP: cfg.MaxConnectionsPerIP,
		AdmissionBurst:      cfg.AdmissionBurst,
		AdmissionWindow:     cfg.AdmissionBurstWindow,
		StaleTimeout:        cfg.StaleTimeout,
	})
	logBus := bus.New(log, conns, nil, nil)
	normalizer := normalize.New(ids)
	limiter := ratelimit.New(ratelimit.Config{MaxRequests: cfg.RateLimitMax, Window: cfg.RateLimitWindow})
	t.Cleanup(limiter.Stop)
	met := metrics.New(prometheus.NewRegistry())
	sampler := health.New()

	return New(Deps{
		Log:        log,
		Config:     cfg,
		Normalizer: normalizer,
		Registry:   registry,
		Bus:        logBus,
		Conns:      conns,
		Limiter:    limiter,
		Metrics:    met,
		Health:     sampler,
		IDs:        ids,
	})
}

func TestHandleIngestSingleEntry(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/logs", bytes.NewBufferString(`{"msg":"hello"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if decoded["received"] != float64(1) {
		t.Errorf("received = %v, want 1", decoded["received"])
	}
	if decoded["channel"] != "default" {
		t.Errorf("channel = %v, want default", decoded["channel"])
	}
}

func TestHandleIngestHonorsXChannelHeaderOverQueryAndDefault(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/logs?channel=from-query", bytes.NewBufferString(`{"msg":"hello"}`))
	req.Header.Set("X-Channel", "from-header")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if decoded["channel"] != "from-header" {
		t.Fatalf("channel = %v, want from-header (header must win over query)", decoded["channel"])
	}
}

func TestHandleIngestEntryChannelOverridesRequestDefault(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/logs", bytes.NewBufferString(`{"msg":"hello","channel":"alerts"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// The echoed "channel" is the request-level default, not the entry's
	// own channel -- a per-entry override never affects this field.
	var decoded map[string]any
	json.Unmarshal(rec.Body.Bytes(), &decoded)
	if decoded["channel"] != "default" {
		t.Fatalf("channel = %v, want default (echoed value is the request default, not the entry's)", decoded["channel"])
	}
}

func TestHandleIngestBatch(t *testing.T) {
	h := newTestHandler(t, nil)

	body := `{"logs":[{"msg":"a"},{"msg":"b"},{"msg":"c"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/logs", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var decoded map[string]any
	json.Unmarshal(rec.Body.Bytes(), &decoded)
	if decoded["received"] != float64(3) {
		t.Errorf("received = %v, want 3", decoded["received"])
	}
}

func TestHandleIngestRejectsInvalidJSON(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/logs", bytes.NewBufferString(`not json`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleIngestRejectsOversizedPayload(t *testing.T) {
	h := newTestHandler(t, func(c *config.Config) { c.MaxPayloadSize = 10 })

	req := httptest.NewRequest(http.MethodPost, "/api/logs", bytes.NewBufferString(`{"msg":"this is way too long for the limit"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, http.StatusRequestEntityTooLarge, rec.Body.String())
	}
}

func TestHandleChannelsListsDefaultChannel(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/channels", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"default"`) {
		t.Fatalf("body = %s, want it to list the default channel", rec.Body.String())
	}
}

func TestHandleGenerateKeyReturnsOpaqueKey(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/generate-key", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	key, _ := decoded["key"].(string)
	want := base64.RawURLEncoding.EncodedLen(32)
	if len(key) != want {
		t.Fatalf("key = %q (len %d), want len %d (base64url of 32 random bytes)", key, len(key), want)
	}
}

func TestHandleGenerateKeyClampsLength(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/generate-key?length=4", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	json.Unmarshal(rec.Body.Bytes(), &decoded)
	key, _ := decoded["key"].(string)
	if got, want := len(key), base64.RawURLEncoding.EncodedLen(16); got != want {
		t.Fatalf("key len = %d, want %d (length=4 clamped up to the 16-byte floor)", got, want)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/generate-key?length=4096", nil)
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)

	var decoded2 map[string]any
	json.Unmarshal(rec2.Body.Bytes(), &decoded2)
	key2, _ := decoded2["key"].(string)
	if got, want := len(key2), base64.RawURLEncoding.EncodedLen(64); got != want {
		t.Fatalf("key len = %d, want %d (length=4096 clamped down to the 64-byte ceiling)", got, want)
	}
}

func TestHandleStatsReportsConnectionsAndChannels(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if decoded["connections"] != float64(0) {
		t.Errorf("connections = %v, want 0", decoded["connections"])
	}
	if decoded["droppedMessages"] != float64(0) {
		t.Errorf("droppedMessages = %v, want 0", decoded["droppedMessages"])
	}
	if decoded["bytesSent"] != float64(0) {
		t.Errorf("bytesSent = %v, want 0", decoded["bytesSent"])
	}
}

func TestHandleDisconnectRequiresChannelParam(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/logs/disconnect", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleDisconnectReportsClosedConnections(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/logs/disconnect?channel=alerts", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var decoded map[string]any
	json.Unmarshal(rec.Body.Bytes(), &decoded)
	if decoded["channel"] != "alerts" {
		t.Errorf("channel = %v, want alerts", decoded["channel"])
	}
	if decoded["closedConnections"] != float64(0) {
		t.Errorf("closedConnections = %v, want 0", decoded["closedConnections"])
	}
}

func TestHandleClearResetsChannelCounter(t *testing.T) {
	h := newTestHandler(t, nil)

	ingest := httptest.NewRequest(http.MethodPost, "/api/logs", bytes.NewBufferString(`{"msg":"hi","channel":"alerts"}`))
	h.ServeHTTP(httptest.NewRecorder(), ingest)

	clear := httptest.NewRequest(http.MethodDelete, "/api/logs?channel=alerts", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, clear)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var decoded map[string]any
	json.Unmarshal(rec.Body.Bytes(), &decoded)
	if decoded["success"] != true {
		t.Errorf("success = %v, want true", decoded["success"])
	}
	if decoded["channel"] != "alerts" {
		t.Errorf("channel = %v, want alerts", decoded["channel"])
	}
}

func TestHandleHealthIsUnauthenticatedEvenWithAPIKeyRequired(t *testing.T) {
	h := newTestHandler(t, func(c *config.Config) {
		c.RequireAPIKey = true
		c.APIKey = "secret"
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireAPIKeyRejectsMissingKey(t *testing.T) {
	h := newTestHandler(t, func(c *config.Config) {
		c.RequireAPIKey = true
		c.APIKey = "secret"
	})

	req := httptest.NewRequest(http.MethodGet, "/api/channels", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAPIKeyAcceptsCorrectKey(t *testing.T) {
	h := newTestHandler(t, func(c *config.Config) {
		c.RequireAPIKey = true
		c.APIKey = "secret"
	})

	req := httptest.NewRequest(http.MethodGet, "/api/channels", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireAPIKeyAcceptsQueryParamFallback(t *testing.T) {
	h := newTestHandler(t, func(c *config.Config) {
		c.RequireAPIKey = true
		c.APIKey = "secret"
	})

	req := httptest.NewRequest(http.MethodGet, "/api/channels?apiKey=secret", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestRequireAPIKeyGatesOnKeyConfiguredRegardlessOfRequireFlag(t *testing.T) {
	h := newTestHandler(t, func(c *config.Config) {
		c.RequireAPIKey = false // left at its default
		c.APIKey = "secret"     // but a key IS configured
	})

	req := httptest.NewRequest(http.MethodGet, "/api/channels", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d; a configured key must be enforced even when REQUIRE_API_KEY is false", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAPIKeyServiceUnavailableWhenRequiredButUnconfigured(t *testing.T) {
	h := newTestHandler(t, func(c *config.Config) {
		c.RequireAPIKey = true
		c.APIKey = ""
	})

	req := httptest.NewRequest(http.MethodGet, "/api/channels", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestRequireAPIKeyOpenWhenNeitherConfiguredNorRequired(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/channels", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestCORSPreflightIsAnsweredWithoutReachingHandlers(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/channels", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want *", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestSecurityHeadersPresentOnEveryResponse(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected X-Content-Type-Options: nosniff")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected X-Frame-Options: DENY")
	}
	if rec.Header().Get("Referrer-Policy") != "strict-origin-when-cross-origin" {
		t.Error("expected Referrer-Policy: strict-origin-when-cross-origin")
	}
	if rec.Header().Get("Content-Security-Policy") != "" {
		t.Error("expected no Content-Security-Policy outside production mode")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("expected no Strict-Transport-Security without X-Forwarded-Proto: https")
	}
}

func TestSecurityHeadersAddsCSPInProductionAndHSTSBehindTLSProxy(t *testing.T) {
	h := newTestHandler(t, func(c *config.Config) { c.Production = true })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("expected a Content-Security-Policy in production mode")
	}
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("expected Strict-Transport-Security behind an X-Forwarded-Proto: https proxy")
	}
}

func TestRequestIDHeaderIsEchoedAndGeneratedWhenAbsent(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected a generated request id header")
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.Header.Set(requestIDHeader, "fixed-id")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)

	if got := rec2.Header().Get(requestIDHeader); got != "fixed-id" {
		t.Fatalf("request id = %q, want fixed-id to be echoed back", got)
	}
}

func TestHandleStreamAdmitsAndDeliversInitialFrames(t *testing.T) {
	h := newTestHandler(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/logs/stream?channel=alerts", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for !strings.Contains(rec.Body.String(), "event: ping") {
		select {
		case <-deadline:
			cancel()
			t.Fatal("timed out waiting for the initial ping frame")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", rec.Header().Get("Content-Type"))
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after context cancellation")
	}
}

func TestHandleStreamRejectsOverGlobalCap(t *testing.T) {
	h := newTestHandler(t, func(c *config.Config) { c.MaxConnections = 1 })

	ctx1, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	req1 := httptest.NewRequest(http.MethodGet, "/api/logs/stream?channel=alerts", nil).WithContext(ctx1)
	req1.RemoteAddr = "10.0.0.9:1111"
	rec1 := httptest.NewRecorder()
	go h.ServeHTTP(rec1, req1)

	deadline := time.After(2 * time.Second)
	for !strings.Contains(rec1.Body.String(), "event: ping") {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for first connection to attach")
		case <-time.After(5 * time.Millisecond):
		}
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/logs/stream?channel=alerts", nil)
	req2.RemoteAddr = "10.0.0.10:2222"
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)

	if rec2.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d; body=%s", rec2.Code, http.StatusServiceUnavailable, rec2.Body.String())
	}
}

func TestHandleStreamRejectsOverPerClientCap(t *testing.T) {
	h := newTestHandler(t, func(c *config.Config) { c.MaxConnectionsPerIP = 1 })

	ctx1, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	req1 := httptest.NewRequest(http.MethodGet, "/api/logs/stream?channel=alerts", nil).WithContext(ctx1)
	req1.RemoteAddr = "10.0.0.5:1111"
	rec1 := httptest.NewRecorder()
	go h.ServeHTTP(rec1, req1)

	deadline := time.After(2 * time.Second)
	for !strings.Contains(rec1.Body.String(), "event: ping") {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for first connection to attach")
		case <-time.After(5 * time.Millisecond):
		}
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/logs/stream?channel=alerts", nil)
	req2.RemoteAddr = "10.0.0.5:2222"
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)

	if rec2.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d; body=%s", rec2.Code, http.StatusServiceUnavailable, rec2.Body.String())
	}
}

func TestHandleStreamRequiresChannelParam(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/logs/stream", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded["error"] != "Channel parameter is required" {
		t.Fatalf(`error = %v, want "Channel parameter is required"`, decoded["error"])
	}
}

func TestHandleIngestRateLimitedResponseCarriesRateLimitHeaders(t *testing.T) {
	h := newTestHandler(t, func(c *config.Config) {
		c.EnableRateLimit = true
		c.RateLimitMax = 1
		c.RateLimitWindow = time.Minute
	})

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/logs", bytes.NewBufferString(`{"msg":"hello"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := post(); rec.Code != http.StatusCreated {
		t.Fatalf("first request status = %d, want %d", rec.Code, http.StatusCreated)
	}

	rec := post()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want %d; body=%s", rec.Code, http.StatusTooManyRequests, rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected a Retry-After header")
	}
	if rec.Header().Get("X-RateLimit-Limit") != "1" {
		t.Errorf("X-RateLimit-Limit = %q, want 1", rec.Header().Get("X-RateLimit-Limit"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", rec.Header().Get("X-RateLimit-Remaining"))
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("expected an X-RateLimit-Reset header")
	}
}

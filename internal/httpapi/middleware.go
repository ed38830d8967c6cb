package httpapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mood-agency/logbroker/internal/apierr"
)

var nosniffVal = []string{"nosniff"}
var denyVal = []string{"DENY"}
var referrerPolicyVal = []string{"strict-origin-when-cross-origin"}
var cspVal = []string{"default-src 'self'"}

const requestIDHeader = "X-Request-Id"

// statusWriter captures the status code written so the logging
// middleware can record it; it also forwards Flush so SSE streaming
// keeps working through the middleware chain.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.wroteHeader = true
	}
	return sw.ResponseWriter.Write(b)
}

func (sw *statusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

var statusWriterPool = sync.Pool{
	New: func() any { return &statusWriter{status: http.StatusOK} },
}

// securityHeaders sets the headers required on every response. In
// production mode it also sends a restrictive Content-Security-Policy;
// whenever the request arrives via a proxy that terminated TLS (signaled
// by X-Forwarded-Proto: https), it adds Strict-Transport-Security.
func securityHeaders(production bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h["X-Content-Type-Options"] = nosniffVal
			h["X-Frame-Options"] = denyVal
			h["Referrer-Policy"] = referrerPolicyVal
			if production {
				h["Content-Security-Policy"] = cspVal
			}
			if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
				h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("panic recovered")
					writeAPIError(w, apierr.New(apierr.KindServiceUnavailable, "internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogging(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := statusWriterPool.Get().(*statusWriter)
			sw.ResponseWriter = w
			sw.status = http.StatusOK
			sw.wroteHeader = false

			next.ServeHTTP(sw, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Str("request_id", w.Header().Get(requestIDHeader)).
				Msg("request")

			sw.ResponseWriter = nil
			statusWriterPool.Put(sw)
		})
	}
}

// cors reflects a single configured origin (or "*") and answers
// preflight requests without delegating them to the route handlers.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAPIKey enforces the shared key independent of RequireAPIKey:
// whenever Config.APIKey is non-empty, every request must carry it via
// the X-API-Key header or the apiKey query param, or the request is
// rejected with 401. RequireAPIKey only controls what happens when no
// key is configured at all: left false, the surface stays open (a
// development-mode default); set true with no key configured, every
// request is refused with 503, since the operator asked for auth that
// was never actually set up.
func requireAPIKey(key string, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				if required {
					writeAPIError(w, apierr.ServiceUnavailable("API key required but not configured", 0))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			supplied := r.Header.Get("X-API-Key")
			if supplied == "" {
				supplied = r.URL.Query().Get("apiKey")
			}
			if supplied != key {
				writeAPIError(w, apierr.Unauthorized("missing or invalid API key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

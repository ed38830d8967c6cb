package httpapi

import "net/http"

// Pre-allocated header value slices, mirroring the direct map-assignment
// idiom used elsewhere in the pack to skip Header.Set's canonicalization
// and slice allocation on the streaming hot path.
var (
	sseContentType = []string{"text/event-stream"}
	sseCacheCtrl   = []string{"no-cache"}
	sseConnection  = []string{"keep-alive"}
	sseAccelBuf    = []string{"no"}
)

// writeSSEHeaders sets the response headers for a streaming connection
// and flushes the status line so the client's connection opens
// immediately rather than waiting for the first frame.
func writeSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h["Content-Type"] = sseContentType
	h["Cache-Control"] = sseCacheCtrl
	h["Connection"] = sseConnection
	h["X-Accel-Buffering"] = sseAccelBuf
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

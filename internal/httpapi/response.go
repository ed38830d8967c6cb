package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mood-agency/logbroker/internal/apierr"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeAPIError renders a typed error as the response body, setting
// Retry-After and (for rate limiting) the X-RateLimit-* headers when the
// error kind carries them.
func writeAPIError(w http.ResponseWriter, err *apierr.Error) {
	if err.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(err.RetryAfter))
	}
	if err.Kind == apierr.KindRateLimited {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(err.RateLimitLimit))
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.Itoa(err.RetryAfter))
	}

	// BadRequest carries no fixed label -- its "error" field is the
	// specific missing-input message itself (e.g. "Channel parameter is
	// required"), not a generic "Bad Request".
	if err.Kind == apierr.KindBadRequest {
		writeJSON(w, err.Status(), map[string]any{"error": err.Error()})
		return
	}

	body := map[string]any{"error": err.Label()}
	if err.Kind == apierr.KindRateLimited {
		body["retryAfter"] = err.RetryAfter
	}
	if err.Message != "" {
		body["message"] = err.Error()
	}
	writeJSON(w, err.Status(), body)
}

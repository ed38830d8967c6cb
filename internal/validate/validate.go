// Package validate enforces the ingest payload, batch, and per-entry size
// bounds before anything is parsed into a canonical log entry.
package validate

import (
	"encoding/json"
	"strconv"

	"github.com/mood-agency/logbroker/internal/apierr"
)

// Limits mirrors the Validator config in the component design.
type Limits struct {
	MaxPayloadSize   int64
	MaxBatchSize     int
	MaxSingleLogSize int
}

// Result is the validated body, stashed for the handler to consume
// without re-parsing: either a single raw JSON object or a batch of them.
type Result struct {
	Batch   bool
	Single  json.RawMessage
	Entries []json.RawMessage
}

// Validate runs the four checks from §4.2 in order and returns the
// validated, un-reparsed body on success.
func Validate(raw []byte, limits Limits) (*Result, *apierr.Error) {
	if int64(len(raw)) > limits.MaxPayloadSize {
		return nil, apierr.PayloadTooLarge("Payload exceeds maximum size")
	}

	var probe struct {
		Logs []json.RawMessage `json:"logs"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		// Either valid JSON that does not fit the probe (a non-object
		// body, or a "logs" field that is not an array), which falls
		// through to the single-entry path, or genuinely malformed JSON.
		// Distinguish by trying a bare decode before giving up.
		var any interface{}
		if err2 := json.Unmarshal(raw, &any); err2 != nil {
			return nil, apierr.InvalidJSON()
		}
	}

	if probe.Logs != nil {
		if len(probe.Logs) > limits.MaxBatchSize {
			return nil, apierr.PayloadTooLarge("Batch size exceeds maximum of entries allowed")
		}
		for i, entry := range probe.Logs {
			if len(entry) > limits.MaxSingleLogSize {
				return nil, apierr.PayloadTooLarge(entryTooLargeMessage(i))
			}
		}
		return &Result{Batch: true, Entries: probe.Logs}, nil
	}

	if len(raw) > limits.MaxSingleLogSize {
		return nil, apierr.PayloadTooLarge("Log entry exceeds maximum size")
	}
	return &Result{Batch: false, Single: json.RawMessage(raw)}, nil
}

func entryTooLargeMessage(index int) string {
	return "Batch entry exceeds maximum size at index " + strconv.Itoa(index)
}

// Package model defines the canonical log entry, the field names read
// from incoming producer records, and the small set of values that flow
// between the ingestion and fan-out halves of the broker.
package model

// Level is a producer-supplied severity. Only six values map to a known
// label; anything else is treated as "info".
type Level int

const (
	LevelTrace Level = 10
	LevelDebug Level = 20
	LevelInfo  Level = 30
	LevelWarn  Level = 40
	LevelError Level = 50
	LevelFatal Level = 60
)

var levelLabels = map[Level]string{
	LevelTrace: "trace",
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelFatal: "fatal",
}

// LabelOf returns the canonical label for a level, defaulting to "info"
// for any value outside the six recognized levels.
func LabelOf(level Level) string {
	if label, ok := levelLabels[level]; ok {
		return label
	}
	return "info"
}

// Reserved field names that never appear inside LogEntry.Data -- they are
// either promoted to a named field or consumed during normalization.
const (
	FieldLevel     = "level"
	FieldTime      = "time"
	FieldMsg       = "msg"
	FieldMessage   = "message"
	FieldNamespace = "namespace"
	FieldName      = "name"
	FieldChannel   = "channel"
	FieldEncrypted = "encrypted"
)

// EncryptedPlaceholder is substituted for Msg when an entry carries an
// opaque encrypted payload instead of plaintext fields.
const EncryptedPlaceholder = "[Encrypted]"

// DefaultChannel is the one channel that always exists and is immune to
// eviction and TTL expiry.
const DefaultChannel = "default"

// LogEntry is the canonical, normalized shape every subscriber receives.
type LogEntry struct {
	ID            string         `json:"id"`
	Level         Level          `json:"level"`
	LevelLabel    string         `json:"levelLabel"`
	Time          int64          `json:"time"`
	Msg           string         `json:"msg"`
	Namespace     string         `json:"namespace,omitempty"`
	Channel       string         `json:"channel"`
	Data          map[string]any `json:"data"`
	Encrypted     bool           `json:"encrypted,omitempty"`
	EncryptedData string         `json:"encryptedData,omitempty"`
}


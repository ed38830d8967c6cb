// Package normalize maps heterogeneous producer records -- the output of
// whatever logging library happened to be on the wire, plain objects or
// opaque encrypted blobs -- onto one canonical model.LogEntry shape.
//
// gjson is used instead of a strict encoding/json struct because the
// whole point of this component is to tolerate producer schemas it has
// never seen: unrecognized fields must flow into Data rather than being
// rejected.
package normalize

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"

	"github.com/mood-agency/logbroker/internal/idpool"
	"github.com/mood-agency/logbroker/internal/model"
)

// Normalizer turns raw producer JSON into a canonical LogEntry, drawing
// ids from a shared Pool.
type Normalizer struct {
	ids *idpool.Pool
}

func New(ids *idpool.Pool) *Normalizer {
	return &Normalizer{ids: ids}
}

// Normalize maps one raw JSON record to a canonical entry. defaultChannel
// is used when the record carries no channel field of its own.
func (n *Normalizer) Normalize(raw []byte, defaultChannel string) (*model.LogEntry, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errInvalidRecord
	}
	parsed := gjson.ParseBytes(raw)

	if enc := parsed.Get(model.FieldEncrypted); enc.Exists() && enc.Type == gjson.String {
		channel := parsed.Get(model.FieldChannel).String()
		if channel == "" {
			channel = defaultChannel
		}
		return n.normalizeEncrypted(enc.String(), channel), nil
	}

	return n.normalizePlain(raw, parsed, defaultChannel)
}

func (n *Normalizer) normalizeEncrypted(blob, channel string) *model.LogEntry {
	return &model.LogEntry{
		ID:            n.ids.GetID(),
		Level:         model.LevelInfo,
		LevelLabel:    model.LabelOf(model.LevelInfo),
		Time:          nowMillis(),
		Msg:           model.EncryptedPlaceholder,
		Channel:       channel,
		Data:          map[string]any{},
		Encrypted:     true,
		EncryptedData: blob,
	}
}

func (n *Normalizer) normalizePlain(raw []byte, parsed gjson.Result, defaultChannel string) (*model.LogEntry, error) {
	level := model.LevelInfo
	if lv := parsed.Get(model.FieldLevel); lv.Exists() && lv.Type == gjson.Number {
		level = model.Level(lv.Int())
	}

	ts := nowMillis()
	if tv := parsed.Get(model.FieldTime); tv.Exists() && tv.Type == gjson.Number {
		ts = tv.Int()
	}

	msg := parsed.Get(model.FieldMsg).String()
	if msg == "" {
		msg = parsed.Get(model.FieldMessage).String()
	}

	namespace := parsed.Get(model.FieldNamespace).String()
	if namespace == "" {
		namespace = parsed.Get(model.FieldName).String()
	}

	channel := parsed.Get(model.FieldChannel).String()
	if channel == "" {
		channel = defaultChannel
	}

	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	for _, key := range []string{
		model.FieldLevel, model.FieldTime, model.FieldMsg, model.FieldMessage,
		model.FieldNamespace, model.FieldName, model.FieldChannel,
	} {
		delete(data, key)
	}

	return &model.LogEntry{
		ID:         n.ids.GetID(),
		Level:      level,
		LevelLabel: model.LabelOf(level),
		Time:       ts,
		Msg:        msg,
		Namespace:  namespace,
		Channel:    channel,
		Data:       data,
	}, nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

type normalizeError string

func (e normalizeError) Error() string { return string(e) }

const errInvalidRecord = normalizeError("invalid record")

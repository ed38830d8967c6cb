// Package natssink adapts a NATS connection to bus.SecondarySink,
// letting the broker mirror its fan-out onto NATS subjects for external
// consumers when NATS_URL is configured. It is optional: the in-process
// bus fan-out works identically with or without it.
package natssink

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// Sink publishes entries onto a "logbroker.logs.<channel>" subject.
type Sink struct {
	conn *nats.Conn
}

func Connect(url string) (*Sink, error) {
	conn, err := nats.Connect(url, nats.MaxReconnects(5), nats.ReconnectWait(2e9))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Sink{conn: conn}, nil
}

// PublishEntry implements bus.SecondarySink.
func (s *Sink) PublishEntry(channel string, payload []byte) error {
	return s.conn.Publish(subject(channel), payload)
}

func subject(channel string) string {
	return "logbroker.logs." + channel
}

// Connected reports whether the underlying connection is currently up.
func (s *Sink) Connected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// Close closes the connection without draining pending messages.
func (s *Sink) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

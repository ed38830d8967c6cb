package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewDefaultsToInfoOnBadLevel(t *testing.T) {
	log := New(Options{Level: "not-a-level", Format: "json"})
	if log.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("GetLevel() = %v, want InfoLevel", log.GetLevel())
	}
}

func TestNewJSONOutputIncludesServiceField(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	stdout := os.Stdout
	os.Stdout = w
	log := New(Options{Level: "info", Format: "json"})
	os.Stdout = stdout

	log.Info().Msg("hello")
	w.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("read captured output: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["service"] != "logbroker" {
		t.Errorf("service = %v, want logbroker", decoded["service"])
	}
	if decoded["message"] != "hello" {
		t.Errorf("message = %v, want hello", decoded["message"])
	}
}

func TestNewRespectsDebugLevel(t *testing.T) {
	log := New(Options{Level: "debug", Format: "json"})
	if log.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("GetLevel() = %v, want DebugLevel", log.GetLevel())
	}
}

func TestNewConsoleFormatBuildsUsableLogger(t *testing.T) {
	log := New(Options{Level: "info", Format: "console"})
	// Console writer formatting is validated by zerolog itself; this just
	// confirms New doesn't panic and produces a usable logger for either
	// format option.
	if strings.ToLower(log.GetLevel().String()) != "info" {
		t.Fatalf("GetLevel() = %v, want info", log.GetLevel())
	}
}

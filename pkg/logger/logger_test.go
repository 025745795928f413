package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: WarnLevel, Output: &buf})

	log.Debug("hidden debug")
	log.Info("hidden info")
	log.Warn("shown warn", "actor", "op-1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("below-level messages leaked: %q", out)
	}
	if !strings.Contains(out, "shown warn") || !strings.Contains(out, "op-1") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: InfoLevel, Output: &buf, JSON: true})

	log.Info("task started", "task", "abc")
	if !strings.Contains(buf.String(), `"task":"abc"`) {
		t.Errorf("expected JSON key/value, got %q", buf.String())
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: InfoLevel, Output: &buf}).With("component", "sweep")

	log.Info("pass done")
	if !strings.Contains(buf.String(), "sweep") {
		t.Errorf("expected bound field, got %q", buf.String())
	}
}

func TestNopDiscards(t *testing.T) {
	// Must not panic.
	Nop().Info("dropped", "k", "v")
}

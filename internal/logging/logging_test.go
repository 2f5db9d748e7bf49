package logging

import (
	"bytes"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSetupLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := setup(&buf, "WARN", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { setup(&bytes.Buffer{}, "info", false) })

	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("expected info message to be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("expected warn message in output")
	}
}

func TestSetupVerboseForcesDebug(t *testing.T) {
	var buf bytes.Buffer
	if err := setup(&buf, "error", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { setup(&bytes.Buffer{}, "info", false) })

	if log.GetLevel() != log.DebugLevel {
		t.Errorf("expected debug level, got %v", log.GetLevel())
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if err := setup(&bytes.Buffer{}, "chatty", false); err == nil {
		t.Error("expected error for unknown level")
	}
}

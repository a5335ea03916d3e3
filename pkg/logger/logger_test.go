package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWriter(&buf); err != nil {
		t.Fatalf("InitWriter: %v", err)
	}
	if err := SetLevelString("info"); err != nil {
		t.Fatalf("SetLevelString: %v", err)
	}

	Named("aggregator").Info(context.Background(), "platform refreshed",
		String("platform", "github"), Int("repos", 3), Error(errors.New("boom")))

	out := buf.String()
	for _, want := range []string{"platform refreshed", "platform=github", "repos=3", "component=aggregator", "error=boom", "source="} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWriter(&buf); err != nil {
		t.Fatalf("InitWriter: %v", err)
	}
	if err := SetLevelString("warn"); err != nil {
		t.Fatalf("SetLevelString: %v", err)
	}
	defer func() { _ = SetLevelString("info") }()

	Get().Debug(context.Background(), "hidden")
	Get().Info(context.Background(), "hidden too")
	Get().Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("expected warn record, got %q", out)
	}
}

func TestSetLevelStringRejectsUnknown(t *testing.T) {
	if err := SetLevelString("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNopLogger(t *testing.T) {
	l := Nop().Named("x")
	l.Info(context.Background(), "nothing")
	l.Error(context.Background(), "nothing", Error(errors.New("e")))
}

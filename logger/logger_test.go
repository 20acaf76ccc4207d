package logger

import (
	"bytes"
	"os"
	"testing"
)

func reset() {
	SetVerbose(false)
	SetTimestamps(true)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetTimestamps(false)
	SetVerbose(true)

	Debug("RETRIEVER: %d candidates", 8)

	if got := buf.String(); got != "[DEBUG] RETRIEVER: 8 candidates\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("hidden")
	Section("hidden")

	if buf.Len() > 0 {
		t.Errorf("expected no output when verbose is disabled, got %q", buf.String())
	}
}

func TestLevels_AlwaysWritten(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetTimestamps(false)

	Info("SERVICE: %s", "ready")
	Warn("embedding slow")
	Error("store down")

	want := "[INFO] SERVICE: ready\n[WARN] embedding slow\n[ERROR] store down\n"
	if got := buf.String(); got != want {
		t.Errorf("unexpected output:\n%q\nwant\n%q", got, want)
	}
}

func TestSection(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Section("Retrieval")

	if got := buf.String(); got != "\n=== Retrieval ===\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

package terminal

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestSpinnerDefaults(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinnerWithOutput(&buf, "thinking")

	if s.message != "thinking" {
		t.Errorf("message = %q", s.message)
	}
	if s.out != &buf {
		t.Error("spinner ignored the supplied writer")
	}
	if len(s.frames) == 0 || len(SpinnerFrames) == 0 {
		t.Error("spinner needs a non-empty frame set")
	}
}

func TestSpinnerElapsed(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinnerWithOutput(&buf, "thinking")

	if got := s.Elapsed(); got != 0 {
		t.Errorf("Elapsed before Start = %v, want 0", got)
	}

	s.Start()
	defer s.Stop()
	time.Sleep(50 * time.Millisecond)

	if got := s.Elapsed(); got < 40*time.Millisecond {
		t.Errorf("Elapsed = %v after sleeping 50ms", got)
	}
}

func TestSpinnerRendersAndClears(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinnerWithOutput(&buf, "thinking")

	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()
	// Give a frame that raced Stop time to finish before reading.
	time.Sleep(10 * time.Millisecond)

	out := buf.String()
	if !strings.Contains(out, "thinking") {
		t.Errorf("spinner never rendered its message: %q", out)
	}
	if !strings.Contains(out, "\r\033[K") {
		t.Errorf("Stop should clear the line: %q", out)
	}
}

func TestSpinnerMessageSwap(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinnerWithOutput(&buf, "thinking")

	s.Start()
	s.SetMessage("importing schedule")
	time.Sleep(200 * time.Millisecond)
	s.Stop()
	time.Sleep(10 * time.Millisecond)

	if out := buf.String(); !strings.Contains(out, "importing schedule") {
		t.Errorf("frames after SetMessage should carry the new message: %q", out)
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinnerWithOutput(&buf, "thinking")

	s.Stop()
	n := buf.Len()
	s.Stop()

	if buf.Len() != n {
		t.Error("repeat Stop should write nothing")
	}
}

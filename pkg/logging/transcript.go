package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const transcriptDay = "2006-01-02"

// TranscriptLogger keeps a plain-text record of advisor exchanges, one
// file per calendar day. The structured log stays readable because the
// full prompt and raw completion land here instead.
type TranscriptLogger struct {
	mu     sync.Mutex
	dir    string
	day    string
	path   string
	out    *os.File
	closed bool
}

// NewTranscriptLogger creates a transcript logger writing to dir. Files
// are named advisor-YYYY-MM-DD.log and appended across runs.
func NewTranscriptLogger(dir string) (*TranscriptLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	l := &TranscriptLogger{dir: dir}
	if err := l.openDay(time.Now().Format(transcriptDay)); err != nil {
		return nil, err
	}
	return l, nil
}

// WriteExchange appends one prompt/completion pair. After Close it is
// a no-op, so a shutdown race cannot fail a suggestion.
func (l *TranscriptLogger) WriteExchange(model, prompt, response string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}

	now := time.Now()
	out, err := l.sink(now)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "\n=== [%s] model=%s ===\n>>> %s\n<<< %s\n",
		now.Format("15:04:05"), model, prompt, response)
	return err
}

// Path returns the file currently written to. It stays valid after
// Close so callers can read back what was recorded.
func (l *TranscriptLogger) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// Close closes the current file. Later writes are dropped.
func (l *TranscriptLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.out == nil {
		return nil
	}
	err := l.out.Close()
	l.out = nil
	return err
}

// sink hands back the file for now's calendar day, rolling over to a
// fresh one when the date has changed since the last write.
func (l *TranscriptLogger) sink(now time.Time) (*os.File, error) {
	if day := now.Format(transcriptDay); l.out == nil || day != l.day {
		if err := l.openDay(day); err != nil {
			return nil, err
		}
	}
	return l.out, nil
}

func (l *TranscriptLogger) openDay(day string) error {
	if l.out != nil {
		l.out.Close()
		l.out = nil
	}

	path := filepath.Join(l.dir, "advisor-"+day+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open transcript log: %w", err)
	}
	l.out, l.path, l.day = f, path, day
	return nil
}

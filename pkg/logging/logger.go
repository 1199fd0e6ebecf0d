package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level is event severity. Events below a logger's minimum level are
// discarded before touching disk.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// rank orders levels for the minimum-level filter. Unknown levels rank
// lowest.
func (lv Level) rank() int {
	switch lv {
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 0
	}
}

// Category names the subsystem an event came from.
type Category string

const (
	CategoryDetector  Category = "detector"
	CategoryAdvisor   Category = "advisor"
	CategoryResolver  Category = "resolver"
	CategoryExecutor  Category = "executor"
	CategorySession   Category = "session"
	CategoryState     Category = "state"
	CategoryQuery     Category = "query"
	CategorySkillbook Category = "skillbook"
	CategoryImport    Category = "import"
	CategoryServer    Category = "server"
	CategoryBus       Category = "bus"
	CategoryConfig    Category = "config"
)

// Event is one structured log record, stored as a single JSON line.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Category  Category       `json:"category"`
	EventType string         `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// Logger appends events to a per-session JSONL file, with errors and
// advisory model calls copied into shared feeds so each can be audited
// without replaying whole sessions. Log and the level helpers tolerate
// a nil receiver, so optional logging needs no guards at call sites.
type Logger struct {
	mu        sync.Mutex
	sessionID string
	minLevel  Level

	session *os.File
	errlog  *os.File
	advisor *os.File
}

// NewLogger opens the log set under baseDir: sessions/<sessionID>.jsonl
// plus the shared errors.jsonl and advisor.jsonl feeds. Files are
// opened for append, so restarting a session continues its log.
func NewLogger(baseDir, sessionID string) (*Logger, error) {
	sessionsDir := filepath.Join(baseDir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	l := &Logger{sessionID: sessionID, minLevel: LevelInfo}
	var err error
	l.session, err = openAppend(filepath.Join(sessionsDir, sessionID+".jsonl"))
	if err != nil {
		return nil, err
	}
	l.errlog, err = openAppend(filepath.Join(baseDir, "errors.jsonl"))
	if err != nil {
		l.Close()
		return nil, err
	}
	l.advisor, err = openAppend(filepath.Join(baseDir, "advisor.jsonl"))
	if err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	return f, nil
}

// SetMinLevel raises or lowers the severity floor for this logger.
func (l *Logger) SetMinLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// SessionID reports the session this logger writes under.
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

// Log routes one event to every file it belongs to. A zero Timestamp
// and empty SessionID are filled in here, so call sites only say what
// happened.
func (l *Logger) Log(event Event) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.shouldLog(event.Level) {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal log event: %w", err)
	}
	line = append(line, '\n')

	for _, f := range l.routes(event) {
		if f == nil {
			continue
		}
		if _, err := f.Write(line); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(f.Name()), err)
		}
	}
	return nil
}

// routes picks destinations: always the session log, plus the error
// feed for errors and the advisor feed for advisory model traffic.
func (l *Logger) routes(event Event) []*os.File {
	files := []*os.File{l.session}
	if event.Level == LevelError {
		files = append(files, l.errlog)
	}
	if event.Category == CategoryAdvisor {
		files = append(files, l.advisor)
	}
	return files
}

func (l *Logger) shouldLog(level Level) bool {
	return level.rank() >= l.minLevel.rank()
}

func (l *Logger) emit(level Level, category Category, eventType, message string, details map[string]any) error {
	return l.Log(Event{
		Level:     level,
		Category:  category,
		EventType: eventType,
		Message:   message,
		Details:   details,
	})
}

// Debug logs at debug level.
func (l *Logger) Debug(category Category, eventType, message string, details map[string]any) error {
	return l.emit(LevelDebug, category, eventType, message, details)
}

// Info logs at info level.
func (l *Logger) Info(category Category, eventType, message string, details map[string]any) error {
	return l.emit(LevelInfo, category, eventType, message, details)
}

// Warn logs at warn level.
func (l *Logger) Warn(category Category, eventType, message string, details map[string]any) error {
	return l.emit(LevelWarn, category, eventType, message, details)
}

// Error logs at error level.
func (l *Logger) Error(category Category, eventType, message string, details map[string]any) error {
	return l.emit(LevelError, category, eventType, message, details)
}

// Close releases the log files. Safe on a nil logger and on one whose
// construction failed partway.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for _, f := range []*os.File{l.session, l.errlog, l.advisor} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReadRecentEvents returns the last count events from a JSONL log.
// Lines that fail to parse, such as a torn write from a crashed
// process, are skipped rather than aborting the read.
func ReadRecentEvents(logPath string, count int) ([]Event, error) {
	file, err := os.Open(logPath)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	if len(events) > count {
		events = events[len(events)-count:]
	}
	return events, nil
}

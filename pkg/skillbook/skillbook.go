// Package skillbook persists lightweight usage learning: how often each
// intent kind resolves, which schedule days, time ranges and class
// titles recur, and a capped journal of recent interactions. Callers
// treat every write as best-effort; a broken skillbook never blocks the
// pipeline, and a nil *Book is a working no-op.
package skillbook

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/odvcencio/focusboard/pkg/intent"
)

//go:embed schema.sql
var schemaSQL string

// defaultHistoryCap bounds the interaction journal unless the caller
// asks for a different cap.
const defaultHistoryCap = 500

// Pattern category names, also the `kind` column values.
const (
	PatternDays       = "days"
	PatternTimeRanges = "time_ranges"
	PatternTitles     = "titles"
)

// Book is the SQLite-backed skillbook.
type Book struct {
	db      *sql.DB
	history int
}

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	Apply   func(db *sql.DB) error
}

// migrations is the ordered list of all migrations.
var migrations = []Migration{
	{1, "initial_schema", func(db *sql.DB) error { return nil }}, // Base schema from schemaSQL
}

// Open creates or opens the skillbook database at dbPath with the
// default interaction journal cap.
func Open(dbPath string) (*Book, error) {
	return OpenWithHistory(dbPath, 0)
}

// OpenWithHistory opens the skillbook with a custom journal cap. Zero
// or negative means the default.
func OpenWithHistory(dbPath string, history int) (*Book, error) {
	if history <= 0 {
		history = defaultHistoryCap
	}
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating skillbook directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening skillbook: %w", err)
	}

	// SQLite allows one writer at a time; WAL keeps readers unblocked.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating skillbook: %w", err)
	}

	return &Book{db: db, history: history}, nil
}

// Close closes the database.
func (b *Book) Close() error {
	if b == nil {
		return nil
	}
	return b.db.Close()
}

func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply base schema: %w", err)
	}

	currentVersion, err := getSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}
		if err := m.Apply(db); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := db.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			m.Version, m.Name,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func getSchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return 0, nil
		}
		return 0, err
	}
	return version, nil
}

// RecordInteraction bumps the running count for an intent kind and
// appends a journal row, trimming the journal to its cap.
func (b *Book) RecordInteraction(kind intent.Kind, payload map[string]any) error {
	if b == nil {
		return nil
	}

	encoded := "{}"
	if len(payload) > 0 {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding interaction payload: %w", err)
		}
		encoded = string(data)
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("starting interaction tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO intent_counts (intent, count) VALUES (?, 1)
		ON CONFLICT(intent) DO UPDATE SET count = count + 1
	`, string(kind)); err != nil {
		return fmt.Errorf("bumping intent count: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO interactions (intent, payload) VALUES (?, ?)`,
		string(kind), encoded,
	); err != nil {
		return fmt.Errorf("recording interaction: %w", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM interactions
		WHERE id NOT IN (SELECT id FROM interactions ORDER BY id DESC LIMIT ?)
	`, b.history); err != nil {
		return fmt.Errorf("trimming interaction journal: %w", err)
	}

	return tx.Commit()
}

// LearnClassPatterns updates the learned day, time-range and title
// counters from a batch of classes.
func (b *Book) LearnClassPatterns(entries []intent.ClassEntry) error {
	if b == nil || len(entries) == 0 {
		return nil
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("starting pattern tx: %w", err)
	}
	defer tx.Rollback()

	bump := func(kind, value string) error {
		_, err := tx.Exec(`
			INSERT INTO patterns (kind, value, count) VALUES (?, ?, 1)
			ON CONFLICT(kind, value) DO UPDATE SET count = count + 1
		`, kind, value)
		return err
	}

	for _, entry := range entries {
		for _, day := range entry.Days {
			if day == "" {
				continue
			}
			if err := bump(PatternDays, day); err != nil {
				return fmt.Errorf("learning day pattern: %w", err)
			}
		}
		if entry.StartTime != "" && entry.EndTime != "" {
			if err := bump(PatternTimeRanges, entry.StartTime+"-"+entry.EndTime); err != nil {
				return fmt.Errorf("learning time pattern: %w", err)
			}
		}
		if title := strings.TrimSpace(entry.Title); title != "" {
			if err := bump(PatternTitles, title); err != nil {
				return fmt.Errorf("learning title pattern: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Pattern is one learned value with its occurrence count.
type Pattern struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Report holds the most common learned patterns per category.
type Report struct {
	Days       []Pattern `json:"days"`
	TimeRanges []Pattern `json:"time_ranges"`
	Titles     []Pattern `json:"titles"`
}

// TopPatterns returns the limit most common values in each category.
func (b *Book) TopPatterns(limit int) (Report, error) {
	if b == nil {
		return Report{}, nil
	}
	if limit <= 0 {
		limit = 3
	}

	report := Report{}
	var err error
	if report.Days, err = b.topFor(PatternDays, limit); err != nil {
		return Report{}, err
	}
	if report.TimeRanges, err = b.topFor(PatternTimeRanges, limit); err != nil {
		return Report{}, err
	}
	if report.Titles, err = b.topFor(PatternTitles, limit); err != nil {
		return Report{}, err
	}
	return report, nil
}

func (b *Book) topFor(kind string, limit int) ([]Pattern, error) {
	rows, err := b.db.Query(`
		SELECT value, count FROM patterns
		WHERE kind = ?
		ORDER BY count DESC, value ASC
		LIMIT ?
	`, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("querying %s patterns: %w", kind, err)
	}
	defer rows.Close()

	var out []Pattern
	for rows.Next() {
		var p Pattern
		if err := rows.Scan(&p.Value, &p.Count); err != nil {
			return nil, fmt.Errorf("scanning %s pattern: %w", kind, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// IntentCounts returns the running total per intent kind.
func (b *Book) IntentCounts() (map[string]int, error) {
	if b == nil {
		return map[string]int{}, nil
	}

	rows, err := b.db.Query(`SELECT intent, count FROM intent_counts`)
	if err != nil {
		return nil, fmt.Errorf("querying intent counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scanning intent count: %w", err)
		}
		counts[name] = count
	}
	return counts, rows.Err()
}

// Interaction is one journal row.
type Interaction struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"ts"`
	Intent    string          `json:"intent"`
	Payload   json.RawMessage `json:"payload"`
}

// RecentInteractions returns the newest limit journal rows, newest
// first.
func (b *Book) RecentInteractions(limit int) ([]Interaction, error) {
	if b == nil {
		return nil, nil
	}
	if limit <= 0 || limit > b.history {
		limit = b.history
	}

	rows, err := b.db.Query(`
		SELECT id, ts, intent, payload FROM interactions
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var it Interaction
		var payload string
		if err := rows.Scan(&it.ID, &it.Timestamp, &it.Intent, &payload); err != nil {
			return nil, fmt.Errorf("scanning interaction: %w", err)
		}
		it.Payload = json.RawMessage(payload)
		out = append(out, it)
	}
	return out, rows.Err()
}

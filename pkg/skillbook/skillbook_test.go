package skillbook

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/odvcencio/focusboard/pkg/intent"
)

func setupTestBook(t *testing.T) *Book {
	t.Helper()
	book, err := Open(filepath.Join(t.TempDir(), "skillbook.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { book.Close() })
	return book
}

func classEntries() []intent.ClassEntry {
	return []intent.ClassEntry{
		{Title: "Physics", Days: []string{"mon", "wed"}, StartTime: "10:00", EndTime: "11:00"},
		{Title: "Math", Days: []string{"mon"}, StartTime: "10:00", EndTime: "11:00"},
		{Title: "Physics", Days: []string{"fri"}, StartTime: "14:00", EndTime: "16:00"},
	}
}

func TestOpenAppliesSchema(t *testing.T) {
	book := setupTestBook(t)

	version, err := getSchemaVersion(book.db)
	if err != nil {
		t.Fatalf("getSchemaVersion() error: %v", err)
	}
	if version != 1 {
		t.Errorf("schema version = %d, want 1", version)
	}
}

func TestRecordInteractionCounts(t *testing.T) {
	book := setupTestBook(t)

	for i := 0; i < 3; i++ {
		if err := book.RecordInteraction(intent.KindTask, nil); err != nil {
			t.Fatalf("RecordInteraction() error: %v", err)
		}
	}
	if err := book.RecordInteraction(intent.KindClass, nil); err != nil {
		t.Fatalf("RecordInteraction() error: %v", err)
	}

	counts, err := book.IntentCounts()
	if err != nil {
		t.Fatalf("IntentCounts() error: %v", err)
	}
	if counts["task"] != 3 {
		t.Errorf("task count = %d, want 3", counts["task"])
	}
	if counts["class"] != 1 {
		t.Errorf("class count = %d, want 1", counts["class"])
	}
}

func TestRecordInteractionJournal(t *testing.T) {
	book := setupTestBook(t)

	if err := book.RecordInteraction(intent.KindTask, map[string]any{"title": "Homework"}); err != nil {
		t.Fatalf("RecordInteraction() error: %v", err)
	}
	if err := book.RecordInteraction(intent.KindQuery, nil); err != nil {
		t.Fatalf("RecordInteraction() error: %v", err)
	}

	recent, err := book.RecentInteractions(10)
	if err != nil {
		t.Fatalf("RecentInteractions() error: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d interactions, want 2", len(recent))
	}
	// Newest first.
	if recent[0].Intent != "query" || recent[1].Intent != "task" {
		t.Errorf("wrong order: %s, %s", recent[0].Intent, recent[1].Intent)
	}

	var payload map[string]any
	if err := json.Unmarshal(recent[1].Payload, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload["title"] != "Homework" {
		t.Errorf("payload title = %v", payload["title"])
	}
	if string(recent[0].Payload) != "{}" {
		t.Errorf("empty payload stored as %s, want {}", recent[0].Payload)
	}
}

func TestJournalTrimmedToCap(t *testing.T) {
	book, err := OpenWithHistory(filepath.Join(t.TempDir(), "skillbook.db"), 25)
	if err != nil {
		t.Fatalf("OpenWithHistory() error: %v", err)
	}
	t.Cleanup(func() { book.Close() })

	// Seed past the cap directly, then one real insert triggers the trim.
	tx, err := book.db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 45; i++ {
		if _, err := tx.Exec(`INSERT INTO interactions (intent, payload) VALUES ('chat', '{}')`); err != nil {
			t.Fatal(err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	if err := book.RecordInteraction(intent.KindTask, nil); err != nil {
		t.Fatalf("RecordInteraction() error: %v", err)
	}

	var count int
	if err := book.db.QueryRow(`SELECT COUNT(*) FROM interactions`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 25 {
		t.Errorf("journal holds %d rows, want 25", count)
	}

	// The newest row survived the trim.
	recent, err := book.RecentInteractions(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].Intent != "task" {
		t.Errorf("newest row = %+v, want the task interaction", recent)
	}
}

func TestOpenUsesDefaultCap(t *testing.T) {
	book := setupTestBook(t)

	if book.history != defaultHistoryCap {
		t.Errorf("history cap = %d, want %d", book.history, defaultHistoryCap)
	}
}

func TestLearnClassPatterns(t *testing.T) {
	book := setupTestBook(t)

	if err := book.LearnClassPatterns(classEntries()); err != nil {
		t.Fatalf("LearnClassPatterns() error: %v", err)
	}

	report, err := book.TopPatterns(3)
	if err != nil {
		t.Fatalf("TopPatterns() error: %v", err)
	}

	if len(report.Days) == 0 || report.Days[0].Value != "mon" || report.Days[0].Count != 2 {
		t.Errorf("top day = %+v, want mon x2", report.Days)
	}
	if len(report.TimeRanges) == 0 || report.TimeRanges[0].Value != "10:00-11:00" || report.TimeRanges[0].Count != 2 {
		t.Errorf("top time range = %+v, want 10:00-11:00 x2", report.TimeRanges)
	}
	if len(report.Titles) == 0 || report.Titles[0].Value != "Physics" || report.Titles[0].Count != 2 {
		t.Errorf("top title = %+v, want Physics x2", report.Titles)
	}
}

func TestLearnClassPatternsSkipsBlankFields(t *testing.T) {
	book := setupTestBook(t)

	err := book.LearnClassPatterns([]intent.ClassEntry{
		{Title: "  ", Days: []string{""}, StartTime: "", EndTime: "11:00"},
	})
	if err != nil {
		t.Fatalf("LearnClassPatterns() error: %v", err)
	}

	report, err := book.TopPatterns(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Days) != 0 || len(report.TimeRanges) != 0 || len(report.Titles) != 0 {
		t.Errorf("blank fields were learned: %+v", report)
	}
}

func TestTopPatternsHonorsLimit(t *testing.T) {
	book := setupTestBook(t)

	var entries []intent.ClassEntry
	for _, day := range []string{"mon", "tue", "wed", "thu", "fri"} {
		entries = append(entries, intent.ClassEntry{
			Title: "X", Days: []string{day}, StartTime: "09:00", EndTime: "10:00",
		})
	}
	if err := book.LearnClassPatterns(entries); err != nil {
		t.Fatal(err)
	}

	report, err := book.TopPatterns(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Days) != 3 {
		t.Errorf("got %d day patterns, want 3", len(report.Days))
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skillbook.db")

	book, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := book.RecordInteraction(intent.KindClass, nil); err != nil {
		t.Fatal(err)
	}
	if err := book.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer reopened.Close()

	counts, err := reopened.IntentCounts()
	if err != nil {
		t.Fatal(err)
	}
	if counts["class"] != 1 {
		t.Errorf("class count after reopen = %d, want 1", counts["class"])
	}
}

func TestNilBookIsNoop(t *testing.T) {
	var book *Book

	if err := book.RecordInteraction(intent.KindTask, nil); err != nil {
		t.Errorf("nil RecordInteraction() error: %v", err)
	}
	if err := book.LearnClassPatterns(classEntries()); err != nil {
		t.Errorf("nil LearnClassPatterns() error: %v", err)
	}
	if _, err := book.TopPatterns(3); err != nil {
		t.Errorf("nil TopPatterns() error: %v", err)
	}
	if _, err := book.IntentCounts(); err != nil {
		t.Errorf("nil IntentCounts() error: %v", err)
	}
	if err := book.Close(); err != nil {
		t.Errorf("nil Close() error: %v", err)
	}
}

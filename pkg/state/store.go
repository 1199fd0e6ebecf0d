// Package state persists the user's productivity document: tasks,
// scheduled classes, XP progression, and focus history. One JSON file
// backs the whole document; every mutation saves atomically.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odvcencio/focusboard/pkg/logging"
)

// TypeClass marks a task that represents a recurring scheduled class.
const TypeClass = "class"

// Schedule describes when a class meets.
type Schedule struct {
	Days  []string `json:"days"`
	Start string   `json:"start"`
	End   string   `json:"end"`
}

// Subtask is a checklist item under a task. XPGiven guards against
// awarding completion XP twice for the same item in one day.
type Subtask struct {
	Title   string `json:"title"`
	Done    bool   `json:"done"`
	XPGiven bool   `json:"xp_given"`
}

// Task is one entry in the document. Type is empty for personal tasks
// and TypeClass for classes; classes carry a Schedule instead of a
// deadline.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type,omitempty"`
	Done      bool      `json:"done"`
	Deadline  string    `json:"deadline,omitempty"`
	Schedule  *Schedule `json:"schedule,omitempty"`
	Subtasks  []Subtask `json:"subtasks"`
	CreatedAt string    `json:"created_at,omitempty"`
}

// DayHistory summarizes one calendar day.
type DayHistory struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	XPGained  int `json:"xp_gained"`
}

// FocusDay aggregates focus timer activity for one calendar day.
type FocusDay struct {
	TotalSeconds int `json:"total_seconds"`
	Sessions     int `json:"sessions"`
}

// Document is the complete persisted state.
type Document struct {
	Level         int                   `json:"level"`
	XP            int                   `json:"xp"`
	Streak        int                   `json:"streak"`
	LastDate      string                `json:"last_date"`
	Tasks         []Task                `json:"tasks"`
	History       map[string]DayHistory `json:"history"`
	FocusSessions map[string]FocusDay   `json:"focus_sessions"`
}

// Store owns the document file. All access goes through the store so
// concurrent sessions observe a consistent document.
type Store struct {
	path   string
	logger *logging.Logger

	mu  sync.Mutex
	doc *Document
	now func() time.Time
}

// NewStore creates a store for the document at path. Call Load before
// first use.
func NewStore(path string, logger *logging.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger,
		now:    time.Now,
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document from disk, creating a fresh default document
// when no file exists yet. Missing or malformed fields from older
// versions are repaired in place.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Reload re-reads the document from disk. On failure the in-memory
// document is kept, so a half-written external edit cannot wipe state.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.doc = defaultDocument()
		if err := s.saveLocked(); err != nil {
			return fmt.Errorf("creating state file: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading state file: %w", err)
	}

	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("parsing state file %s: %w", s.path, err)
	}

	repaired := repairDocument(doc)
	s.doc = doc

	if repaired {
		s.logger.Info(logging.CategoryState, "document_repaired", "state document migrated", map[string]any{
			"path": s.path,
		})
		if err := s.saveLocked(); err != nil {
			return fmt.Errorf("saving repaired state: %w", err)
		}
	}
	return nil
}

func defaultDocument() *Document {
	return &Document{
		Level:         1,
		XP:            0,
		Streak:        0,
		LastDate:      "",
		Tasks:         []Task{},
		History:       map[string]DayHistory{},
		FocusSessions: map[string]FocusDay{},
	}
}

// repairDocument normalizes a loaded document and reports whether
// anything had to change.
func repairDocument(doc *Document) bool {
	repaired := false

	if doc.Level < 1 {
		doc.Level = 1
		repaired = true
	}
	if doc.XP < 0 {
		doc.XP = 0
		repaired = true
	}
	if doc.Tasks == nil {
		doc.Tasks = []Task{}
		repaired = true
	}
	if doc.History == nil {
		doc.History = map[string]DayHistory{}
		repaired = true
	}
	if doc.FocusSessions == nil {
		doc.FocusSessions = map[string]FocusDay{}
		repaired = true
	}

	// Every task needs a stable ID.
	for i := range doc.Tasks {
		if doc.Tasks[i].ID == "" {
			doc.Tasks[i].ID = uuid.NewString()
			repaired = true
		}
		if doc.Tasks[i].Subtasks == nil {
			doc.Tasks[i].Subtasks = []Subtask{}
			repaired = true
		}
	}
	return repaired
}

// Save writes the document to disk atomically.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if s.doc == nil {
		return fmt.Errorf("state: document not loaded")
	}

	data, err := json.MarshalIndent(s.doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	// Write-then-rename so a crash mid-write never truncates the
	// document.
	tmp, err := os.CreateTemp(dir, ".data-*.json")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("setting state file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

func (s *Store) ensureLoadedLocked() error {
	if s.doc == nil {
		return fmt.Errorf("state: document not loaded")
	}
	return nil
}

func (s *Store) todayLocked() string {
	return s.now().Format("2006-01-02")
}

// Document returns a deep copy of the current document.
func (s *Store) Document() (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return Document{}, err
	}
	return copyDocument(s.doc), nil
}

// Stats returns the current level and XP.
func (s *Store) Stats() (level, xp int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return 0, 0, err
	}
	return s.doc.Level, s.doc.XP, nil
}

// Tasks returns a copy of all tasks.
func (s *Store) Tasks() ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return nil, err
	}
	return copyTasks(s.doc.Tasks), nil
}

// Classes returns a copy of all class tasks sorted by start time.
func (s *Store) Classes() ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return nil, err
	}
	var classes []Task
	for _, t := range s.doc.Tasks {
		if t.Type == TypeClass {
			classes = append(classes, t)
		}
	}
	classes = copyTasks(classes)
	sort.SliceStable(classes, func(i, j int) bool {
		return startOf(classes[i]) < startOf(classes[j])
	})
	return classes, nil
}

func startOf(t Task) string {
	if t.Schedule == nil {
		return ""
	}
	return t.Schedule.Start
}

// AppendTask adds a personal task and saves. The title must be
// non-empty after trimming.
func (s *Store) AppendTask(title, deadline string) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, fmt.Errorf("state: task title is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return Task{}, err
	}

	task := Task{
		ID:        uuid.NewString(),
		Title:     title,
		Done:      false,
		Deadline:  deadline,
		Subtasks:  []Subtask{},
		CreatedAt: s.todayLocked(),
	}
	s.doc.Tasks = append(s.doc.Tasks, task)

	// Keep today's running total in step with the task list.
	today := s.todayLocked()
	if entry, ok := s.doc.History[today]; ok {
		entry.Total = len(s.doc.Tasks)
		s.doc.History[today] = entry
	}

	if err := s.saveLocked(); err != nil {
		return Task{}, err
	}
	return task, nil
}

// AppendClass adds a class with its weekly schedule and saves.
func (s *Store) AppendClass(title string, days []string, start, end string) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, fmt.Errorf("state: class title is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return Task{}, err
	}

	task := Task{
		ID:    uuid.NewString(),
		Title: title,
		Type:  TypeClass,
		Done:  false,
		Schedule: &Schedule{
			Days:  append([]string{}, days...),
			Start: start,
			End:   end,
		},
		Subtasks:  []Subtask{},
		CreatedAt: s.todayLocked(),
	}
	s.doc.Tasks = append(s.doc.Tasks, task)

	if err := s.saveLocked(); err != nil {
		return Task{}, err
	}
	return task, nil
}

// DeleteTask removes a task by ID and saves.
func (s *Store) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return err
	}

	idx := -1
	for i := range s.doc.Tasks {
		if s.doc.Tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("state: no task with id %s", id)
	}
	s.doc.Tasks = append(s.doc.Tasks[:idx], s.doc.Tasks[idx+1:]...)

	today := s.todayLocked()
	if entry, ok := s.doc.History[today]; ok {
		entry.Total = len(s.doc.Tasks)
		s.doc.History[today] = entry
	}

	return s.saveLocked()
}

// AddSubtask appends a checklist item to the task with the given ID.
func (s *Store) AddSubtask(taskID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("state: subtask title is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return err
	}

	task := s.findTaskLocked(taskID)
	if task == nil {
		return fmt.Errorf("state: no task with id %s", taskID)
	}
	task.Subtasks = append(task.Subtasks, Subtask{Title: title})
	return s.saveLocked()
}

// ToggleSubtask marks a checklist item done or not done. First-time
// completion awards XP split evenly across the task's subtasks; a task
// is done when every subtask is.
func (s *Store) ToggleSubtask(taskID string, subIndex int, done bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return err
	}

	task := s.findTaskLocked(taskID)
	if task == nil {
		return fmt.Errorf("state: no task with id %s", taskID)
	}
	if subIndex < 0 || subIndex >= len(task.Subtasks) {
		return fmt.Errorf("state: subtask index %d out of range", subIndex)
	}

	sub := &task.Subtasks[subIndex]
	if sub.Done == done {
		return nil
	}
	sub.Done = done

	if done && !sub.XPGiven {
		gain := XPPerTask(len(s.doc.Tasks)) / float64(max(1, len(task.Subtasks)))
		s.doc.XP += int(gain)
		sub.XPGiven = true
	}

	recalcTaskDone(task)
	applyLevelUps(s.doc)
	s.touchHistoryLocked(0)
	return s.saveLocked()
}

func (s *Store) findTaskLocked(id string) *Task {
	for i := range s.doc.Tasks {
		if s.doc.Tasks[i].ID == id {
			return &s.doc.Tasks[i]
		}
	}
	return nil
}

// recalcTaskDone derives a task's done flag from its subtasks. A task
// with no subtasks is never auto-completed.
func recalcTaskDone(task *Task) {
	if len(task.Subtasks) == 0 {
		task.Done = false
		return
	}
	for _, sub := range task.Subtasks {
		if !sub.Done {
			task.Done = false
			return
		}
	}
	task.Done = true
}

// TouchHistory refreshes today's history entry from the current task
// list and adds xpGained to the day's running XP total.
func (s *Store) TouchHistory(xpGained int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return err
	}
	s.touchHistoryLocked(xpGained)
	return s.saveLocked()
}

func (s *Store) touchHistoryLocked(xpGained int) {
	today := s.todayLocked()
	entry := s.doc.History[today]

	completed := 0
	for _, t := range s.doc.Tasks {
		if t.Done {
			completed++
		}
	}
	entry.Completed = completed
	entry.Total = len(s.doc.Tasks)
	entry.XPGained += xpGained
	s.doc.History[today] = entry
}

// ResetForNewDay clears completion flags when the calendar date has
// advanced since the document was last touched. Reports whether a
// reset ran.
func (s *Store) ResetForNewDay() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return false, err
	}

	today := s.todayLocked()
	if _, ok := s.doc.History[today]; !ok {
		s.doc.History[today] = DayHistory{Total: len(s.doc.Tasks)}
	}

	if s.doc.LastDate == today {
		return false, nil
	}

	for i := range s.doc.Tasks {
		s.doc.Tasks[i].Done = false
		for j := range s.doc.Tasks[i].Subtasks {
			s.doc.Tasks[i].Subtasks[j].Done = false
			s.doc.Tasks[i].Subtasks[j].XPGiven = false
		}
	}
	s.doc.LastDate = today

	if err := s.saveLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// LogFocusSession records a completed focus timer run and awards XP at
// one point per five minutes. Sessions under a minute are ignored.
// Returns the XP gained.
func (s *Store) LogFocusSession(seconds int) (int, error) {
	if seconds < minFocusSeconds {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return 0, err
	}

	today := s.todayLocked()
	day := s.doc.FocusSessions[today]
	day.TotalSeconds += seconds
	day.Sessions++
	s.doc.FocusSessions[today] = day

	gained := seconds / focusXPInterval
	s.doc.XP += gained
	s.touchHistoryLocked(gained)
	applyLevelUps(s.doc)

	if err := s.saveLocked(); err != nil {
		return 0, err
	}
	return gained, nil
}

func copyDocument(doc *Document) Document {
	out := Document{
		Level:         doc.Level,
		XP:            doc.XP,
		Streak:        doc.Streak,
		LastDate:      doc.LastDate,
		Tasks:         copyTasks(doc.Tasks),
		History:       make(map[string]DayHistory, len(doc.History)),
		FocusSessions: make(map[string]FocusDay, len(doc.FocusSessions)),
	}
	for k, v := range doc.History {
		out.History[k] = v
	}
	for k, v := range doc.FocusSessions {
		out.FocusSessions[k] = v
	}
	return out
}

func copyTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t
		out[i].Subtasks = append([]Subtask{}, t.Subtasks...)
		if t.Schedule != nil {
			sched := *t.Schedule
			sched.Days = append([]string{}, t.Schedule.Days...)
			out[i].Schedule = &sched
		}
	}
	return out
}

// Package executor performs the one approved mutation behind an
// Execute outcome. It holds no classification logic and makes no
// decisions: the resolver has already ruled, and the executor's only
// job is to apply the write, feed the skillbook, announce the event
// and phrase the confirmation. Only a persistence failure is an error;
// skillbook and bus trouble is logged and swallowed.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/odvcencio/focusboard/pkg/bus"
	"github.com/odvcencio/focusboard/pkg/detector"
	"github.com/odvcencio/focusboard/pkg/intent"
	"github.com/odvcencio/focusboard/pkg/logging"
	"github.com/odvcencio/focusboard/pkg/skillbook"
	"github.com/odvcencio/focusboard/pkg/state"
)

const (
	defaultTaskTitle  = "New Task"
	defaultClassTitle = "New Class"
	defaultClassTime  = "00:00"

	emptyImportMessage = "No classes found in the file."
)

// Executor applies mutations to the state document.
type Executor struct {
	store         *state.Store
	book          *skillbook.Book
	events        bus.MessageBus
	subjectPrefix string
	logger        *logging.Logger
}

// New assembles an executor. book may be nil (skillbook disabled) and
// events may be nil (no bus); both degrade to silent no-ops.
func New(store *state.Store, book *skillbook.Book, events bus.MessageBus, subjectPrefix string, logger *logging.Logger) *Executor {
	return &Executor{
		store:         store,
		book:          book,
		events:        events,
		subjectPrefix: subjectPrefix,
		logger:        logger,
	}
}

// Execute dispatches one approved mutation and returns the user-facing
// confirmation. Chat and query outcomes never arrive here; a kind
// without a mutation is a programming error, not user input.
func (e *Executor) Execute(ctx context.Context, out intent.Execute) (string, error) {
	switch out.Intent.Kind {
	case intent.KindTask:
		return e.addTask(ctx, out.Intent)
	case intent.KindClass:
		return e.addClass(ctx, out.Intent)
	case intent.KindScheduleImport:
		return e.importSchedule(ctx, out.Intent)
	default:
		return "", fmt.Errorf("intent kind %q has no mutation", out.Intent.Kind)
	}
}

func (e *Executor) addTask(ctx context.Context, c intent.Candidate) (string, error) {
	title := strings.TrimSpace(c.Fields.Title)
	if title == "" {
		title = defaultTaskTitle
	}

	task, err := e.store.AppendTask(title, c.Fields.Deadline)
	if err != nil {
		return "", err
	}

	// The task record is durable at this point; the daily aggregate is
	// derived bookkeeping, so its failure must not unwind the add.
	if err := e.store.TouchHistory(0); err != nil {
		e.logger.Warn(logging.CategoryExecutor, "history_touch_failed", "daily history not refreshed", map[string]any{
			"error": err.Error(),
		})
	}

	e.recordInteraction(intent.KindTask, map[string]any{
		"title":    title,
		"deadline": c.Fields.Deadline,
	})
	e.publish(ctx, bus.SubjectTaskAdded, map[string]any{
		"id":       task.ID,
		"title":    title,
		"deadline": c.Fields.Deadline,
	})

	return fmt.Sprintf("✅ Added task: **%s**", title), nil
}

func (e *Executor) addClass(ctx context.Context, c intent.Candidate) (string, error) {
	title := strings.TrimSpace(c.Fields.Title)
	if title == "" {
		title = defaultClassTitle
	}
	start := c.Fields.StartTime
	if start == "" {
		start = defaultClassTime
	}
	end := c.Fields.EndTime
	if end == "" {
		end = defaultClassTime
	}

	task, err := e.store.AppendClass(title, c.Fields.Days, start, end)
	if err != nil {
		return "", err
	}

	e.learnPatterns([]intent.ClassEntry{{
		Title:     title,
		Days:      c.Fields.Days,
		StartTime: start,
		EndTime:   end,
	}})
	e.recordInteraction(intent.KindClass, map[string]any{
		"title": title,
		"days":  c.Fields.Days,
	})
	e.publish(ctx, bus.SubjectClassAdded, map[string]any{
		"id":    task.ID,
		"title": title,
		"days":  c.Fields.Days,
		"start": start,
		"end":   end,
	})

	return fmt.Sprintf("✅ Added class: **%s** (%s %s-%s)",
		title, strings.Join(c.Fields.Days, ", "), start, end), nil
}

func (e *Executor) importSchedule(ctx context.Context, c intent.Candidate) (string, error) {
	if len(c.Fields.Entries) == 0 {
		return emptyImportMessage, nil
	}

	var added []intent.ClassEntry
	skipped := 0
	for _, raw := range c.Fields.Entries {
		entry, ok := normalizeEntry(raw)
		if !ok {
			skipped++
			e.logger.Warn(logging.CategoryImport, "entry_skipped", "schedule entry is incomplete", map[string]any{
				"title": raw.Title,
				"days":  raw.Days,
				"start": raw.StartTime,
				"end":   raw.EndTime,
			})
			continue
		}
		if _, err := e.store.AppendClass(entry.Title, entry.Days, entry.StartTime, entry.EndTime); err != nil {
			return "", err
		}
		added = append(added, entry)
	}

	e.learnPatterns(added)
	e.recordInteraction(intent.KindScheduleImport, map[string]any{
		"added":   len(added),
		"skipped": skipped,
	})
	e.publish(ctx, bus.SubjectScheduleImported, map[string]any{
		"count":   len(added),
		"skipped": skipped,
	})

	return fmt.Sprintf("✅ Successfully added %d classes from the file to your Weekly Routine!", len(added)), nil
}

// normalizeEntry canonicalizes an imported class and reports whether it
// is complete enough to store.
func normalizeEntry(e intent.ClassEntry) (intent.ClassEntry, bool) {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		e.Title = "Class"
	}
	e.Days = detector.NormalizeDays(e.Days)
	e.StartTime = detector.NormalizeTime(e.StartTime)
	e.EndTime = detector.NormalizeTime(e.EndTime)

	if len(e.Days) == 0 || !detector.ValidTime(e.StartTime) || !detector.ValidTime(e.EndTime) {
		return e, false
	}
	return e, true
}

func (e *Executor) recordInteraction(kind intent.Kind, payload map[string]any) {
	if err := e.book.RecordInteraction(kind, payload); err != nil {
		e.logger.Warn(logging.CategoryExecutor, "interaction_record_failed", "skillbook record skipped", map[string]any{
			"kind":  string(kind),
			"error": err.Error(),
		})
	}
}

func (e *Executor) learnPatterns(entries []intent.ClassEntry) {
	if len(entries) == 0 {
		return
	}
	if err := e.book.LearnClassPatterns(entries); err != nil {
		e.logger.Warn(logging.CategoryExecutor, "pattern_learn_failed", "skillbook patterns skipped", map[string]any{
			"entries": len(entries),
			"error":   err.Error(),
		})
	}
}

func (e *Executor) publish(ctx context.Context, subject string, payload map[string]any) {
	if e.events == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	full := bus.Join(e.subjectPrefix, subject)
	if err := e.events.Publish(ctx, full, data); err != nil {
		e.logger.Warn(logging.CategoryBus, "publish_failed", "mutation event not delivered", map[string]any{
			"subject": full,
			"error":   err.Error(),
		})
	}
}

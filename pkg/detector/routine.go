package detector

import (
	"strings"
	"unicode/utf8"

	"github.com/odvcencio/focusboard/pkg/intent"
)

// ParseRoutine scans free-form schedule text line by line and returns
// the classes it can recognize. A line counts as a class when it
// carries both a time range and at least one day token; everything
// else on the line becomes the title. Lines that don't qualify are
// skipped, so headers and decoration in exported timetables fall away
// naturally.
func ParseRoutine(text string) []intent.ClassEntry {
	var entries []intent.ClassEntry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if entry, ok := parseRoutineLine(line); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

func parseRoutineLine(line string) (intent.ClassEntry, bool) {
	start, end := ExtractTimeRange(line)
	if start == "" {
		return intent.ClassEntry{}, false
	}

	days := ExtractDays(line)
	if len(days) == 0 {
		return intent.ClassEntry{}, false
	}

	cleaned := timeRangePattern.ReplaceAllString(line, "")
	var subject []string
	for _, w := range strings.Fields(cleaned) {
		if _, ok := NormalizeDay(w); ok {
			continue
		}
		if utf8.RuneCountInString(w) <= 1 {
			continue
		}
		subject = append(subject, w)
	}

	title := strings.Trim(strings.Join(subject, " "), titleTrimCutset)
	if title == "" {
		title = "Class"
	}

	return intent.ClassEntry{
		Title:     titleCase(title),
		Days:      days,
		StartTime: start,
		EndTime:   end,
	}, true
}

package query

import (
	"sort"
	"strings"
	"time"

	"github.com/odvcencio/focusboard/pkg/state"
)

// WeekOrder lists schedule day codes in display order.
var WeekOrder = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// DayCode returns the lowercase three-letter day code schedules use.
func DayCode(t time.Time) string {
	return strings.ToLower(t.Format("Mon"))
}

// TodayPersonalTasks returns personal tasks visible today: those with
// no deadline, or a deadline matching today's date.
func TodayPersonalTasks(doc state.Document, now time.Time) []state.Task {
	today := now.Format("2006-01-02")
	var out []state.Task
	for _, t := range doc.Tasks {
		if t.Type == state.TypeClass {
			continue
		}
		if t.Deadline == "" || t.Deadline == today {
			out = append(out, t)
		}
	}
	return out
}

// TodayClasses returns classes that meet today and are not already
// completed, sorted by start time.
func TodayClasses(doc state.Document, now time.Time) []state.Task {
	day := DayCode(now)
	var out []state.Task
	for _, t := range doc.Tasks {
		if t.Type != state.TypeClass || t.Schedule == nil || t.Done {
			continue
		}
		if !containsDay(t.Schedule.Days, day) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Schedule.Start < out[j].Schedule.Start
	})
	return out
}

// WeeklyClasses groups every class by the days it meets. A class
// meeting three days appears under all three. Iterate with WeekOrder
// for a stable display order.
func WeeklyClasses(doc state.Document) map[string][]state.Task {
	week := make(map[string][]state.Task, len(WeekOrder))
	for _, day := range WeekOrder {
		week[day] = nil
	}
	for _, t := range doc.Tasks {
		if t.Type != state.TypeClass || t.Schedule == nil {
			continue
		}
		for _, day := range t.Schedule.Days {
			if _, ok := week[day]; ok {
				week[day] = append(week[day], t)
			}
		}
	}
	return week
}

// CurrentClass returns the class in session right now, if any: one of
// today's classes whose start..end window contains the current time of
// day, endpoints included.
func CurrentClass(doc state.Document, now time.Time) (state.Task, bool) {
	nowMin := now.Hour()*60 + now.Minute()
	for _, t := range TodayClasses(doc, now) {
		start, okStart := minutesOfDay(t.Schedule.Start)
		end, okEnd := minutesOfDay(t.Schedule.End)
		if !okStart || !okEnd {
			continue
		}
		if start <= nowMin && nowMin <= end {
			return t, true
		}
	}
	return state.Task{}, false
}

// minutesOfDay parses an HH:MM clock value as minutes since midnight.
func minutesOfDay(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

func containsDay(days []string, day string) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

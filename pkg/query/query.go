// Package query answers read-only questions about the user's data. It
// never mutates the document: every answer is formatted from a snapshot
// of the state store.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/odvcencio/focusboard/pkg/intent"
	"github.com/odvcencio/focusboard/pkg/state"
)

const tipsMessage = "💡 **Productivity Tips:**\n\n" +
	"1. 🍅 Use Pomodoro Technique (25 min work, 5 min break)\n" +
	"2. 📝 Break big tasks into smaller subtasks\n" +
	"3. 🎯 Focus on one task at a time\n" +
	"4. 📅 Plan your day the night before\n" +
	"5. 🏃 Take regular breaks to stay fresh"

const generalMessage = "I'm not sure what you're asking. Try asking about:\n" +
	"• Your XP and level\n" +
	"• Today's schedule\n" +
	"• Upcoming classes\n" +
	"• Weekly routine"

// Answerer resolves query actions against the state store.
type Answerer struct {
	store *state.Store
	now   func() time.Time
}

// New creates an answerer backed by store.
func New(store *state.Store) *Answerer {
	return &Answerer{store: store, now: time.Now}
}

// Answer produces the response for a query action. Unrecognized actions
// get the general hint message rather than an error: a query can never
// fail the user, only inform less precisely.
func (a *Answerer) Answer(action string) (string, error) {
	doc, err := a.store.Document()
	if err != nil {
		return "", err
	}
	now := a.now()

	switch action {
	case intent.ActionXP:
		return formatXP(doc), nil
	case intent.ActionNextClass:
		return formatUpcoming(doc, now), nil
	case intent.ActionTodayTasks:
		return formatToday(doc, now), nil
	case intent.ActionWeeklyClasses:
		return formatWeekly(doc), nil
	case intent.ActionStats:
		return formatStats(doc, now), nil
	case intent.ActionTips:
		return tipsMessage, nil
	default:
		return generalMessage, nil
	}
}

func levelProgress(doc state.Document) (xp, needed, pct int) {
	needed = state.LevelXP
	xp = doc.XP
	if needed > 0 {
		pct = xp * 100 / needed
	}
	return xp, needed, pct
}

func formatXP(doc state.Document) string {
	xp, needed, pct := levelProgress(doc)
	return fmt.Sprintf("📊 **Your XP:**\n⭐ Level %d\n✨ %d / %d XP (%d%%)",
		doc.Level, xp, needed, pct)
}

func formatStats(doc state.Document, now time.Time) string {
	xp, needed, pct := levelProgress(doc)

	weeklyCount := 0
	for _, classes := range WeeklyClasses(doc) {
		weeklyCount += len(classes)
	}

	lines := []string{
		"📊 **Your Stats:**",
		fmt.Sprintf("⭐ **Level %d**", doc.Level),
		fmt.Sprintf("✨ XP: %d / %d (%d%%)", xp, needed, pct),
		fmt.Sprintf("📚 Weekly Classes: %d", weeklyCount),
		fmt.Sprintf("📝 Today's Tasks: %d", len(TodayPersonalTasks(doc, now))),
	}
	return strings.Join(lines, "\n")
}

func formatToday(doc state.Document, now time.Time) string {
	classes := TodayClasses(doc, now)
	if len(classes) == 0 {
		return "🎉 No classes scheduled for today!"
	}
	lines := []string{"📅 **Today's Classes:**"}
	for _, c := range classes {
		lines = append(lines, fmt.Sprintf("• **%s** - %s - %s",
			c.Title, c.Schedule.Start, c.Schedule.End))
	}
	return strings.Join(lines, "\n")
}

func formatUpcoming(doc state.Document, now time.Time) string {
	classes := TodayClasses(doc, now)
	if len(classes) == 0 {
		return "🎉 No upcoming classes today!"
	}
	if len(classes) > 3 {
		classes = classes[:3]
	}
	lines := []string{"📅 **Upcoming Classes:**"}
	for i, c := range classes {
		lines = append(lines, fmt.Sprintf("%d. **%s** - %s to %s",
			i+1, c.Title, c.Schedule.Start, c.Schedule.End))
	}
	return strings.Join(lines, "\n")
}

func formatWeekly(doc state.Document) string {
	week := WeeklyClasses(doc)
	lines := []string{"📚 **Weekly Classes:**"}
	for _, day := range WeekOrder {
		classes := week[day]
		if len(classes) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("\n**%s:**", strings.ToUpper(day)))
		for _, c := range classes {
			lines = append(lines, fmt.Sprintf("  • %s: %s-%s",
				c.Title, c.Schedule.Start, c.Schedule.End))
		}
	}
	return strings.Join(lines, "\n")
}

// Package detector is the deterministic first layer of intent
// resolution. It classifies user text with regular expressions and
// token heuristics only: no network calls, no state reads, no side
// effects. Its output is a non-empty list of candidates for the
// resolver to judge.
package detector

import (
	"regexp"
	"strings"
	"time"

	"github.com/odvcencio/focusboard/pkg/intent"
)

// Question patterns. Matching text can never be a task or class.
var questionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(what|when|how|why|where|whose|which|who)\s`),
	regexp.MustCompile(`^(show|tell|list|get)\s`),
	regexp.MustCompile(`\?$`),
	regexp.MustCompile(`^(is|are|can|could|would)\s`),
}

// Keyword-to-action table for questions, checked in order. First
// containment wins, so the more specific phrases sit above the
// single-word catches.
var queryActions = []struct {
	keyword string
	action  string
}{
	{"xp", intent.ActionXP},
	{"level", intent.ActionXP},
	{"exp", intent.ActionXP},
	{"progress", intent.ActionStats},
	{"next class", intent.ActionNextClass},
	{"class today", intent.ActionTodayTasks},
	{"schedule", intent.ActionTodayTasks},
	{"what do i have", intent.ActionTodayTasks},
	{"what's today", intent.ActionTodayTasks},
	{"tasks today", intent.ActionTodayTasks},
	{"week", intent.ActionWeeklyClasses},
	{"weekly", intent.ActionWeeklyClasses},
	{"stat", intent.ActionStats},
	{"performance", intent.ActionStats},
	{"productivity", intent.ActionTips},
	{"tip", intent.ActionTips},
	{"advice", intent.ActionTips},
	{"suggestion", intent.ActionTips},
}

// Clarification presets for class mentions that lack schedule details.
const classDetailQuestion = "What days and time is this class?"

var classDetailOptions = []string{"Mon Wed 10-11", "Tue Thu 14-16", "Daily 9-10"}

// Detector holds the clock used for relative due dates. The zero value
// is not usable; construct with New.
type Detector struct {
	now func() time.Time
}

// New returns a ready Detector.
func New() *Detector {
	return &Detector{now: time.Now}
}

// Detect classifies text into one or two candidates. The list is never
// empty: anything that is not a question and carries no class structure
// falls back to a task candidate with a chat alternative.
func (d *Detector) Detect(text string) []intent.Candidate {
	lower := strings.ToLower(strings.TrimSpace(text))

	// Questions short-circuit everything else.
	if isQuestion(lower) {
		return []intent.Candidate{{
			Kind:       intent.KindQuery,
			Confidence: 1.0,
			Source:     intent.SourceDeterministic,
			Fields:     intent.Fields{Action: queryAction(lower)},
		}}
	}

	hasDays := dayPattern.MatchString(lower)
	hasTime := timeRangePattern.MatchString(lower)

	switch {
	case hasDays && hasTime:
		// Day tokens plus a time range is class structure.
		start, end := ExtractTimeRange(text)
		return []intent.Candidate{{
			Kind:       intent.KindClass,
			Confidence: 0.7,
			Source:     intent.SourceHeuristic,
			Fields: intent.Fields{
				Title:     ClassTitle(text),
				Days:      ExtractDays(lower),
				StartTime: start,
				EndTime:   end,
			},
		}}

	case hasDays || strings.Contains(lower, "class") || strings.Contains(lower, "lecture"):
		// A class mention without the full day+time structure needs
		// the schedule details before anything can be added.
		c := intent.Candidate{
			Kind:               intent.KindClass,
			Confidence:         0.5,
			Source:             intent.SourceHeuristic,
			NeedsClarification: true,
			Question:           classDetailQuestion,
			Options:            append([]string{}, classDetailOptions...),
		}
		if hasDays {
			c.Fields.Days = ExtractDays(lower)
		}
		return []intent.Candidate{c}

	default:
		return []intent.Candidate{
			{
				Kind:       intent.KindTask,
				Confidence: 0.6,
				Source:     intent.SourceHeuristic,
				Fields: intent.Fields{
					Title:    TaskTitle(text),
					Deadline: ExtractDate(text, d.now()),
				},
			},
			{
				Kind:       intent.KindChat,
				Confidence: 0.4,
				Source:     intent.SourceHeuristic,
			},
		}
	}
}

func isQuestion(lower string) bool {
	for _, p := range questionPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

func queryAction(lower string) string {
	for _, qa := range queryActions {
		if strings.Contains(lower, qa.keyword) {
			return qa.action
		}
	}
	return intent.ActionGeneral
}

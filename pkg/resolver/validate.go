package resolver

import (
	"strings"

	"github.com/odvcencio/focusboard/pkg/detector"
	"github.com/odvcencio/focusboard/pkg/intent"
)

// Confidence thresholds. Winners at or above AutoExecuteThreshold act
// without asking; between the two the resolver asks a contextual
// question; below ClarifyThreshold it falls back to safe chat.
const (
	AutoExecuteThreshold = 0.85
	ClarifyThreshold     = 0.60

	// fullCertainty is the cutoff under which Execute outcomes still ask
	// the UI for confirmation.
	fullCertainty = 0.95

	// queryOverrideConfidence short-circuits scoring for near-certain
	// questions. Queries never mutate, so acting on them is always safe.
	queryOverrideConfidence = 0.9

	// contextualTemplateCutoff bounds the canned medium-band questions.
	contextualTemplateCutoff = 0.75
)

// pickWinner scores candidates and returns the best. Score is the raw
// confidence plus a deterministic-query boost and a small advisory
// extraction bonus; the first seen wins ties, so detector candidates
// outrank an advisory twin.
func pickWinner(candidates []intent.Candidate) intent.Candidate {
	if len(candidates) == 0 {
		return intent.Candidate{
			Kind:       intent.KindChat,
			Confidence: 0.5,
			Source:     intent.SourceHeuristic,
		}
	}

	best := candidates[0]
	bestScore := candidateScore(best)
	for _, c := range candidates[1:] {
		if s := candidateScore(c); s > bestScore {
			best = c
			bestScore = s
		}
	}
	return best
}

func candidateScore(c intent.Candidate) float64 {
	score := c.Confidence
	// Query detection is deterministic and read-only, so trust it over
	// anything the advisory layer proposes.
	if c.Kind == intent.KindQuery &&
		(c.Source == intent.SourceDeterministic || c.Source == intent.SourceHeuristic) {
		score += 0.2
	}
	// The advisory layer extracts structured fields better than the
	// regex fallbacks.
	if c.Source == intent.SourceAdvisory &&
		(c.Kind == intent.KindTask || c.Kind == intent.KindClass) {
		score += 0.05
	}
	return score
}

// validation messages
const (
	taskTitleQuestion  = "I need a clearer task title. What exactly do you want to add?"
	classMissingPrefix = "To add a class, I need: "
	classMissingSuffix = ". Could you provide these details?"
	timeFormatQuestion = "Time format looks wrong. Please use HH:MM format (e.g., 10:00 or 14:30)"
)

var (
	taskTitleOptions    = []string{"Math homework", "Read chapter 5", "Prepare for exam"}
	classMissingOptions = []string{"Mon Wed 10-11", "Tue Thu 14-16", "Daily 9-10"}
	timeFormatOptions   = []string{"10:00-11:00", "14:30-16:00"}
)

// validate applies the hard rules a candidate must satisfy before it
// may execute. The returned Clarify carries the violation when ok is
// false. Queries and chat are structurally valid: they never mutate.
func validate(c intent.Candidate) (intent.Clarify, bool) {
	switch c.Kind {
	case intent.KindTask:
		if len(strings.TrimSpace(c.Fields.Title)) < 2 {
			return intent.Clarify{
				Question: taskTitleQuestion,
				Options:  append([]string{}, taskTitleOptions...),
			}, false
		}

	case intent.KindClass:
		var missing []string
		if len(c.Fields.Days) == 0 {
			missing = append(missing, "days")
		}
		if c.Fields.StartTime == "" {
			missing = append(missing, "start time")
		}
		if c.Fields.EndTime == "" {
			missing = append(missing, "end time")
		}
		if len(missing) > 0 {
			return intent.Clarify{
				Question: classMissingPrefix + strings.Join(missing, ", ") + classMissingSuffix,
				Options:  append([]string{}, classMissingOptions...),
			}, false
		}
		if !detector.ValidTime(c.Fields.StartTime) || !detector.ValidTime(c.Fields.EndTime) {
			return intent.Clarify{
				Question: timeFormatQuestion,
				Options:  append([]string{}, timeFormatOptions...),
			}, false
		}
	}
	return intent.Clarify{}, true
}

// medium-band clarification templates
const (
	taskTemplateQuestion  = "Would you like me to add this as a task, or was that just a note?"
	classTemplateQuestion = "It looks like you're mentioning a class. Should I add it to your schedule?"
)

var (
	taskTemplateOptions  = []string{"Add as task", "Just a note", "Help me phrase it"}
	classTemplateOptions = []string{"Add to schedule", "Just info", "Ask for details"}
)

// contextualClarification builds the medium-confidence question for a
// candidate: its own question when it flagged one, else a canned
// template for barely-confident tasks and classes. ok is false when no
// question applies and the caller should fall back to the low band.
func contextualClarification(c intent.Candidate) (intent.Clarify, bool) {
	if c.NeedsClarification && c.Question != "" {
		return intent.Clarify{
			Question: c.Question,
			Options:  append([]string{}, c.Options...),
		}, true
	}

	if c.Confidence < contextualTemplateCutoff {
		switch c.Kind {
		case intent.KindTask:
			return intent.Clarify{
				Question: taskTemplateQuestion,
				Options:  append([]string{}, taskTemplateOptions...),
			}, true
		case intent.KindClass:
			return intent.Clarify{
				Question: classTemplateQuestion,
				Options:  append([]string{}, classTemplateOptions...),
			}, true
		}
	}
	return intent.Clarify{}, false
}

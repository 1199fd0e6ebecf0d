package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/focusboard/pkg/detector"
	"github.com/odvcencio/focusboard/pkg/intent"
	"github.com/odvcencio/focusboard/pkg/session"
)

// stubSuggester returns a fixed candidate, or nil to simulate the
// advisory layer being down.
type stubSuggester struct {
	candidate *intent.Candidate
	calls     int
}

func (s *stubSuggester) Suggest(ctx context.Context, text string) *intent.Candidate {
	s.calls++
	if s.candidate == nil {
		return nil
	}
	c := *s.candidate
	return &c
}

// stubAnswerer records the dispatched action.
type stubAnswerer struct {
	lastAction string
	calls      int
}

func (s *stubAnswerer) Answer(action string) (string, error) {
	s.calls++
	s.lastAction = action
	return "answer:" + action, nil
}

type fixture struct {
	resolver *Resolver
	suggest  *stubSuggester
	answer   *stubAnswerer
	pending  *session.Store
}

func newFixture(advisory *intent.Candidate) *fixture {
	f := &fixture{
		suggest: &stubSuggester{candidate: advisory},
		answer:  &stubAnswerer{},
		pending: session.NewStore(time.Minute),
	}
	f.resolver = New(detector.New(), f.suggest, f.answer, f.pending, nil)
	return f
}

func advisoryCandidate(kind intent.Kind, conf float64, fields intent.Fields) *intent.Candidate {
	return &intent.Candidate{
		Kind:       kind,
		Confidence: conf,
		Source:     intent.SourceAdvisory,
		Fields:     fields,
	}
}

func TestQuestionsNeverExecute(t *testing.T) {
	f := newFixture(nil)

	for _, text := range []string{
		"What do I have today?",
		"how much xp do I have",
		"show my stats",
		"is physics today?",
	} {
		out, err := f.resolver.Resolve(context.Background(), text, "s1")
		require.NoError(t, err, text)
		_, isRespond := out.(intent.Respond)
		assert.True(t, isRespond, "question %q must get a Respond, got %T", text, out)
	}
}

func TestTodayQueryDispatchesAction(t *testing.T) {
	f := newFixture(nil)

	out, err := f.resolver.Resolve(context.Background(), "What do I have today?", "s1")
	require.NoError(t, err)

	resp, ok := out.(intent.Respond)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "answer:today_tasks", resp.Message)
	assert.Equal(t, intent.ActionTodayTasks, f.answer.lastAction)
}

func TestCompleteClassExecutesImmediately(t *testing.T) {
	f := newFixture(nil)

	out, err := f.resolver.Resolve(context.Background(), "Physics class Mon Wed 10-11", "s1")
	require.NoError(t, err)

	exec, ok := out.(intent.Execute)
	require.True(t, ok, "complete class must execute, got %T", out)
	assert.Equal(t, intent.KindClass, exec.Intent.Kind)
	assert.Equal(t, "Physics", exec.Intent.Fields.Title)
	assert.Equal(t, []string{"mon", "wed"}, exec.Intent.Fields.Days)
	assert.Equal(t, "10:00", exec.Intent.Fields.StartTime)
	assert.Equal(t, "11:00", exec.Intent.Fields.EndTime)
	assert.True(t, exec.RequiresConfirmation, "0.7 confidence still confirms")
}

func TestSuggesterOutageChangesNothing(t *testing.T) {
	inputs := []string{
		"Physics class Mon Wed 10-11",
		"What do I have today?",
		"class",
	}

	for _, text := range inputs {
		healthy := newFixture(advisoryCandidate(intent.KindChat, 0.3, intent.Fields{}))
		down := newFixture(nil)

		a, err := healthy.resolver.Resolve(context.Background(), text, "s1")
		require.NoError(t, err)
		b, err := down.resolver.Resolve(context.Background(), text, "s1")
		require.NoError(t, err)

		assert.IsType(t, a, b, "outcome type diverged for %q", text)
	}
}

func TestBareClassMentionClarifiesWithMissingFields(t *testing.T) {
	f := newFixture(nil)

	out, err := f.resolver.Resolve(context.Background(), "class", "s1")
	require.NoError(t, err)

	clar, ok := out.(intent.Clarify)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "To add a class, I need: days, start time, end time. Could you provide these details?", clar.Question)
	assert.Equal(t, []string{"Mon Wed 10-11", "Tue Thu 14-16", "Daily 9-10"}, clar.Options)

	// The candidates are parked for the follow-up.
	_, ok = f.pending.Take("s1")
	assert.True(t, ok, "validation clarify must persist pending state")
}

func TestDayWithoutTimeClarifiesNamingTimesOnly(t *testing.T) {
	f := newFixture(nil)

	out, err := f.resolver.Resolve(context.Background(), "gym on monday", "s1")
	require.NoError(t, err)

	clar, ok := out.(intent.Clarify)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "To add a class, I need: start time, end time. Could you provide these details?", clar.Question)
}

func TestShortTaskTitleClarifies(t *testing.T) {
	f := newFixture(advisoryCandidate(intent.KindTask, 0.9, intent.Fields{Title: "x"}))

	out, err := f.resolver.Resolve(context.Background(), "x", "s1")
	require.NoError(t, err)

	clar, ok := out.(intent.Clarify)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, taskTitleQuestion, clar.Question)
	assert.Equal(t, []string{"Math homework", "Read chapter 5", "Prepare for exam"}, clar.Options)
}

func TestMalformedTimeClarifies(t *testing.T) {
	f := newFixture(advisoryCandidate(intent.KindClass, 0.9, intent.Fields{
		Title: "Physics", Days: []string{"mon"}, StartTime: "10:00", EndTime: "99:99",
	}))

	out, err := f.resolver.Resolve(context.Background(), "physics monday evening", "s1")
	require.NoError(t, err)

	clar, ok := out.(intent.Clarify)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, timeFormatQuestion, clar.Question)
}

func TestHighConfidenceAdvisoryTaskExecutes(t *testing.T) {
	t.Run("below full certainty confirms", func(t *testing.T) {
		f := newFixture(advisoryCandidate(intent.KindTask, 0.9, intent.Fields{Title: "Email professor"}))

		out, err := f.resolver.Resolve(context.Background(), "remind me to email the professor", "s1")
		require.NoError(t, err)

		exec, ok := out.(intent.Execute)
		require.True(t, ok, "got %T", out)
		assert.Equal(t, "Email professor", exec.Intent.Fields.Title)
		assert.True(t, exec.RequiresConfirmation)
	})

	t.Run("full certainty skips confirmation", func(t *testing.T) {
		f := newFixture(advisoryCandidate(intent.KindTask, 0.96, intent.Fields{Title: "Email professor"}))

		out, err := f.resolver.Resolve(context.Background(), "remind me to email the professor", "s1")
		require.NoError(t, err)

		exec, ok := out.(intent.Execute)
		require.True(t, ok, "got %T", out)
		assert.False(t, exec.RequiresConfirmation)
	})
}

func TestAdvisoryQueryOverride(t *testing.T) {
	f := newFixture(advisoryCandidate(intent.KindQuery, 0.95, intent.Fields{Action: intent.ActionXP}))

	// Not phrased as a question, so the detector sees a task; the
	// near-certain advisory query still wins via the override.
	out, err := f.resolver.Resolve(context.Background(), "my xp please", "s1")
	require.NoError(t, err)

	resp, ok := out.(intent.Respond)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "answer:xp", resp.Message)
}

func TestMediumConfidenceTaskAsksTemplate(t *testing.T) {
	f := newFixture(nil)

	out, err := f.resolver.Resolve(context.Background(), "buy groceries", "s1")
	require.NoError(t, err)

	clar, ok := out.(intent.Clarify)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, taskTemplateQuestion, clar.Question)
	assert.Equal(t, []string{"Add as task", "Just a note", "Help me phrase it"}, clar.Options)

	p, ok := f.pending.Take("s1")
	require.True(t, ok)
	assert.Equal(t, "buy groceries", p.OriginalText)
	assert.NotEmpty(t, p.Candidates)
}

func TestMediumConfidenceChatFallsToHelp(t *testing.T) {
	// An advisory chat at 0.8 wins the scoring but is above the
	// template cutoff, so no contextual question applies.
	f := newFixture(advisoryCandidate(intent.KindChat, 0.8, intent.Fields{}))

	out, err := f.resolver.Resolve(context.Background(), "hmm interesting weather", "s1")
	require.NoError(t, err)

	resp, ok := out.(intent.Respond)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, helpMessage, resp.Message)
}

func TestHighConfidenceChatResponds(t *testing.T) {
	f := newFixture(advisoryCandidate(intent.KindChat, 0.9, intent.Fields{}))

	out, err := f.resolver.Resolve(context.Background(), "hello there", "s1")
	require.NoError(t, err)

	resp, ok := out.(intent.Respond)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, chatReply, resp.Message)
}

func TestLowConfidenceNonChatAsksRephrase(t *testing.T) {
	// "lecture" pulls the detector into its 0.5 class branch; a weak
	// advisory task outscores it but lands under the clarify floor.
	f := newFixture(advisoryCandidate(intent.KindTask, 0.55, intent.Fields{Title: "Review lecture notes"}))

	out, err := f.resolver.Resolve(context.Background(), "lecture notes", "s1")
	require.NoError(t, err)

	clar, ok := out.(intent.Clarify)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, rephraseQuestion, clar.Question)

	// The safe floor never parks state.
	_, ok = f.pending.Take("s1")
	assert.False(t, ok)
}

func TestCandidateOwnQuestionPreferred(t *testing.T) {
	adv := advisoryCandidate(intent.KindTask, 0.7, intent.Fields{Title: "Call the bank"})
	adv.NeedsClarification = true
	adv.Question = "Should I set a reminder for this?"
	adv.Options = []string{"Yes, remind me", "No thanks"}
	f := newFixture(adv)

	out, err := f.resolver.Resolve(context.Background(), "i should call the bank", "s1")
	require.NoError(t, err)

	clar, ok := out.(intent.Clarify)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "Should I set a reminder for this?", clar.Question)
	assert.Equal(t, []string{"Yes, remind me", "No thanks"}, clar.Options)
}

func TestPendingAffirmativeExecutesStoredCandidate(t *testing.T) {
	f := newFixture(nil)

	out, err := f.resolver.Resolve(context.Background(), "buy groceries", "s1")
	require.NoError(t, err)
	require.IsType(t, intent.Clarify{}, out)

	out, err = f.resolver.Resolve(context.Background(), "yes", "s1")
	require.NoError(t, err)

	exec, ok := out.(intent.Execute)
	require.True(t, ok, "affirmative reply must execute, got %T", out)
	assert.Equal(t, intent.KindTask, exec.Intent.Kind)
	assert.Equal(t, "Buy Groceries", exec.Intent.Fields.Title)
	assert.True(t, exec.RequiresConfirmation, "clarified execution always confirms")

	// Entry is consumed.
	_, ok = f.pending.Take("s1")
	assert.False(t, ok)
}

func TestPendingNegativeLeavesDataAlone(t *testing.T) {
	f := newFixture(nil)

	_, err := f.resolver.Resolve(context.Background(), "buy groceries", "s1")
	require.NoError(t, err)

	out, err := f.resolver.Resolve(context.Background(), "no, cancel that", "s1")
	require.NoError(t, err)

	resp, ok := out.(intent.Respond)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, keepDataMessage, resp.Message)

	_, ok = f.pending.Take("s1")
	assert.False(t, ok)
}

func TestPendingAffirmativeRevalidatesStoredCandidate(t *testing.T) {
	f := newFixture(nil)

	// "class" parks an incomplete class candidate.
	_, err := f.resolver.Resolve(context.Background(), "class", "s1")
	require.NoError(t, err)

	out, err := f.resolver.Resolve(context.Background(), "yes", "s1")
	require.NoError(t, err)

	clar, ok := out.(intent.Clarify)
	require.True(t, ok, "incomplete candidate cannot execute on a yes, got %T", out)
	assert.Contains(t, clar.Question, "To add a class, I need:")

	// Entry is re-stored so the user can still supply the details.
	_, ok = f.pending.Take("s1")
	assert.True(t, ok)
}

func TestPendingUnclearReplyReasksWithRoundCap(t *testing.T) {
	f := newFixture(nil)

	_, err := f.resolver.Resolve(context.Background(), "class", "s1")
	require.NoError(t, err)

	// Option-keyword replies that are neither affirmative nor negative
	// re-ask, twice.
	for i := 0; i < 2; i++ {
		out, err := f.resolver.Resolve(context.Background(), "mon and wed 10-11", "s1")
		require.NoError(t, err)

		clar, ok := out.(intent.Clarify)
		require.True(t, ok, "round %d: got %T", i, out)
		assert.Equal(t, unclearReplyQuestion, clar.Question)
	}

	// The third unclear reply drops the entry and processes fresh:
	// day tokens plus a time range now parse as a complete class.
	out, err := f.resolver.Resolve(context.Background(), "mon and wed 10-11", "s1")
	require.NoError(t, err)

	exec, ok := out.(intent.Execute)
	require.True(t, ok, "round cap must reprocess as fresh input, got %T", out)
	assert.Equal(t, intent.KindClass, exec.Intent.Kind)
	assert.Equal(t, []string{"mon", "wed"}, exec.Intent.Fields.Days)
	assert.Equal(t, "10:00", exec.Intent.Fields.StartTime)
}

func TestPendingSupersededByUnrelatedInput(t *testing.T) {
	f := newFixture(nil)

	_, err := f.resolver.Resolve(context.Background(), "class", "s1")
	require.NoError(t, err)

	// No option keywords, no affirmative/negative words: fresh input.
	out, err := f.resolver.Resolve(context.Background(), "how much xp do i have?", "s1")
	require.NoError(t, err)

	resp, ok := out.(intent.Respond)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "answer:xp", resp.Message)

	// The old entry did not survive.
	_, ok = f.pending.Take("s1")
	assert.False(t, ok)
}

func TestSessionsDoNotSharePendingState(t *testing.T) {
	f := newFixture(nil)

	_, err := f.resolver.Resolve(context.Background(), "buy groceries", "alice")
	require.NoError(t, err)

	// A "yes" from a different session has nothing to confirm and is
	// treated as its own input.
	out, err := f.resolver.Resolve(context.Background(), "yes", "bob")
	require.NoError(t, err)
	_, isExecute := out.(intent.Execute)
	assert.False(t, isExecute, "bob must not execute alice's candidate")

	// Alice's entry is still there.
	out, err = f.resolver.Resolve(context.Background(), "yes", "alice")
	require.NoError(t, err)
	assert.IsType(t, intent.Execute{}, out)
}

func TestPickWinnerBoostsAndTies(t *testing.T) {
	deterministicQuery := intent.Candidate{Kind: intent.KindQuery, Confidence: 0.7, Source: intent.SourceDeterministic}
	advisoryTask := intent.Candidate{Kind: intent.KindTask, Confidence: 0.9, Source: intent.SourceAdvisory}

	// 0.7 + 0.2 < 0.9 + 0.05: the advisory task wins.
	winner := pickWinner([]intent.Candidate{deterministicQuery, advisoryTask})
	assert.Equal(t, intent.KindTask, winner.Kind)

	// Equal scores: first seen wins.
	first := intent.Candidate{Kind: intent.KindTask, Confidence: 0.6, Source: intent.SourceHeuristic}
	second := intent.Candidate{Kind: intent.KindChat, Confidence: 0.6, Source: intent.SourceHeuristic}
	winner = pickWinner([]intent.Candidate{first, second})
	assert.Equal(t, intent.KindTask, winner.Kind)

	// Empty input falls back to low-confidence chat.
	winner = pickWinner(nil)
	assert.Equal(t, intent.KindChat, winner.Kind)
}

func TestExecuteClassDaysAreCanonical(t *testing.T) {
	f := newFixture(nil)

	out, err := f.resolver.Resolve(context.Background(), "Math class monday wednesday friday 9-10", "s1")
	require.NoError(t, err)

	exec, ok := out.(intent.Execute)
	require.True(t, ok, "got %T", out)

	seen := map[string]bool{}
	valid := map[string]bool{"mon": true, "tue": true, "wed": true, "thu": true, "fri": true, "sat": true, "sun": true}
	for _, d := range exec.Intent.Fields.Days {
		assert.True(t, valid[d], "day %q is not a canonical code", d)
		assert.False(t, seen[d], "day %q duplicated", d)
		seen[d] = true
	}
}

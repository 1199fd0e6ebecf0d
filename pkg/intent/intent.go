// Package intent defines the core types passed between the detection,
// suggestion, resolution, and execution layers: candidate classifications
// of user input, the pending state carried across a clarification
// round-trip, and the resolver's outcome variants.
package intent

import "time"

// Kind classifies what the user is asking the assistant to do.
type Kind string

const (
	// KindQuery is a read-only question about existing data.
	KindQuery Kind = "query"
	// KindTask is a request to add a task.
	KindTask Kind = "task"
	// KindClass is a request to add a recurring scheduled class.
	KindClass Kind = "class"
	// KindChat is conversational input with no data mutation.
	KindChat Kind = "chat"
	// KindScheduleImport is a bulk import of classes from file content.
	KindScheduleImport Kind = "schedule_import"
)

// Valid reports whether k is one of the recognized kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindQuery, KindTask, KindClass, KindChat, KindScheduleImport:
		return true
	}
	return false
}

// Mutating reports whether executing this kind writes user data.
func (k Kind) Mutating() bool {
	return k == KindTask || k == KindClass || k == KindScheduleImport
}

// Source records which layer produced a candidate. It is used for
// tie-breaking and scoring adjustments, never to raise trust beyond the
// candidate's own confidence.
type Source string

const (
	SourceDeterministic Source = "deterministic"
	SourceAdvisory      Source = "advisory"
	SourceHeuristic     Source = "heuristic-default"
)

// Fields holds the structured data extracted for a candidate. Which
// fields are populated depends on the candidate's kind: QUERY uses
// Action, TASK uses Title and Deadline, CLASS uses Title, Days and the
// time pair, SCHEDULE_IMPORT uses Entries.
type Fields struct {
	Title     string   `json:"title,omitempty"`
	Days      []string `json:"days,omitempty"`
	StartTime string   `json:"start_time,omitempty"`
	EndTime   string   `json:"end_time,omitempty"`
	// Deadline is a due date in YYYY-MM-DD form, when one was found.
	Deadline string `json:"deadline,omitempty"`
	// Action names the query to answer (xp, stats, today_tasks, ...).
	Action string `json:"action,omitempty"`
	// Entries carries parsed classes for a schedule import.
	Entries []ClassEntry `json:"entries,omitempty"`
}

// ClassEntry is one normalized class line from an imported schedule.
type ClassEntry struct {
	Title     string   `json:"title"`
	Days      []string `json:"days"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
}

// Candidate is one proposed classification of a piece of user input.
// Candidates are immutable once created: the detector and suggester
// construct them, the resolver consumes them within a single resolution
// cycle or parks them in a Pending entry.
type Candidate struct {
	Kind       Kind    `json:"kind"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
	Fields     Fields  `json:"fields"`

	// NeedsClarification marks a candidate that already knows it is
	// missing required detail. Question and Options carry the suggested
	// follow-up for the user.
	NeedsClarification bool     `json:"needs_clarification,omitempty"`
	Question           string   `json:"question,omitempty"`
	Options            []string `json:"options,omitempty"`
}

// Pending is the state carried across a clarification round-trip. It is
// keyed by session identifier and owned exclusively by that session's
// entry; at most one Pending exists per session at a time.
type Pending struct {
	OriginalText string      `json:"original_text"`
	Candidates   []Candidate `json:"candidates"`
	Question     string      `json:"question_asked"`
	Options      []string    `json:"reply_options"`
	CreatedAt    time.Time   `json:"created_at"`
	// Rounds counts how many ambiguous replies this entry has survived.
	Rounds int `json:"rounds"`
}

// Outcome is the resolver's sole return contract. Exactly one concrete
// variant is returned per call; callers branch exhaustively on the type.
type Outcome interface {
	outcome()
}

// Execute instructs the executor to perform the winning intent.
type Execute struct {
	Intent Candidate
	// RequiresConfirmation asks the UI to confirm before side effects
	// become visible. Set whenever the winning confidence is below the
	// full-certainty cutoff.
	RequiresConfirmation bool
}

// Clarify asks the user a follow-up question before anything executes.
type Clarify struct {
	Question string
	Options  []string
}

// Respond answers the user directly with no data mutation.
type Respond struct {
	Message string
}

func (Execute) outcome() {}
func (Clarify) outcome() {}
func (Respond) outcome() {}

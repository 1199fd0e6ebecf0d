// Package resolver is the authority layer: it alone decides whether a
// piece of input executes, asks for clarification, or gets a direct
// answer. Detection and advisory layers only propose; every proposal
// passes the hard rules and confidence thresholds here first.
package resolver

import (
	"context"
	"strings"

	"github.com/odvcencio/focusboard/pkg/detector"
	"github.com/odvcencio/focusboard/pkg/intent"
	"github.com/odvcencio/focusboard/pkg/logging"
	"github.com/odvcencio/focusboard/pkg/session"
)

// maxClarifyRounds bounds how often an unclear reply re-asks before the
// pending entry is dropped and the text processes as fresh input.
const maxClarifyRounds = 3

// fixed responses
const (
	chatReply = "I'm here to help! You can ask me about your schedule, add tasks or classes, or check your stats."

	helpMessage = "I'm not sure what you mean. Try:\n" +
		"• 'What do I have today?'\n" +
		"• 'Add math homework'\n" +
		"• 'Physics class Mon Wed 10-11'\n" +
		"• 'How much XP do I have?'"

	rephraseQuestion = "I'm not quite sure what you want. Could you rephrase?"

	keepDataMessage = "Got it! I'll leave your data as is. Is there anything else I can help with?"

	unclearReplyQuestion = "I'm not sure what you mean. Could you clarify?"
)

var (
	rephraseOptions     = []string{"Add as task", "Add as class", "Just tell me"}
	unclearReplyOptions = []string{"Yes, add it", "No, cancel", "Just information"}

	affirmativeWords = []string{"add", "yes", "sure", "task"}
	negativeWords    = []string{"no", "not", "cancel", "just"}
)

// Suggester is the advisory layer contract: one candidate or nil.
type Suggester interface {
	Suggest(ctx context.Context, text string) *intent.Candidate
}

// QueryAnswerer resolves read-only query actions into messages.
type QueryAnswerer interface {
	Answer(action string) (string, error)
}

// Resolver coordinates detection, advice, validation and thresholds
// into a single outcome per input.
type Resolver struct {
	detector      *detector.Detector
	suggester     Suggester
	queries       QueryAnswerer
	pending       *session.Store
	logger        *logging.Logger
	clarifyRounds int
}

// New assembles a resolver. suggester may be a disabled advisor client;
// it must never be nil (use advisor.New with a disabled config).
func New(det *detector.Detector, suggester Suggester, queries QueryAnswerer, pending *session.Store, logger *logging.Logger) *Resolver {
	return &Resolver{
		detector:      det,
		suggester:     suggester,
		queries:       queries,
		pending:       pending,
		logger:        logger,
		clarifyRounds: maxClarifyRounds,
	}
}

// SetMaxClarifyRounds overrides how many unclear replies are tolerated
// before a pending entry is dropped. Values below 1 keep the default.
func (r *Resolver) SetMaxClarifyRounds(n int) {
	if n >= 1 {
		r.clarifyRounds = n
	}
}

// Resolve processes one piece of user input for a session and returns
// exactly one outcome. The error path is reserved for state reads
// failing under a query; classification itself cannot fail.
func (r *Resolver) Resolve(ctx context.Context, text, sessionID string) (intent.Outcome, error) {
	lower := strings.ToLower(strings.TrimSpace(text))

	// A pending clarification owns the next reply. Take is atomic, so a
	// racing request for the same session processes as fresh input.
	if p, ok := r.pending.Take(sessionID); ok {
		if looksLikeReply(lower, p.Options) {
			return r.resolvePendingReply(ctx, text, lower, sessionID, p)
		}
		// Unrelated input supersedes the question; the entry stays
		// discarded.
		r.logger.Debug(logging.CategoryResolver, "pending_superseded", "pending clarification dropped for fresh input", map[string]any{
			"session_id": sessionID,
			"question":   p.Question,
		})
	}

	return r.resolveFresh(ctx, text, sessionID)
}

func (r *Resolver) resolveFresh(ctx context.Context, text, sessionID string) (intent.Outcome, error) {
	candidates := r.detector.Detect(text)
	if s := r.suggester.Suggest(ctx, text); s != nil {
		candidates = append(candidates, *s)
	}

	// Near-certain questions skip scoring entirely: answering is always
	// safe, and the detector's question patterns do not misfire.
	for _, c := range candidates {
		if c.Kind == intent.KindQuery && c.Confidence >= queryOverrideConfidence {
			return r.respondToQuery(c)
		}
	}

	winner := pickWinner(candidates)
	r.logger.Debug(logging.CategoryResolver, "winner_selected", "candidate won scoring", map[string]any{
		"session_id": sessionID,
		"kind":       string(winner.Kind),
		"confidence": winner.Confidence,
		"source":     string(winner.Source),
		"candidates": len(candidates),
	})

	if clarify, ok := validate(winner); !ok {
		// Keep the candidates around so a "yes" after the user supplies
		// details can still land on them.
		r.storePending(sessionID, text, candidates, clarify)
		return clarify, nil
	}

	// A class with complete day+start+end structure is deterministic
	// evidence; it executes no matter which band the confidence fell in.
	if winner.Kind == intent.KindClass {
		return intent.Execute{
			Intent:               winner,
			RequiresConfirmation: winner.Confidence < fullCertainty,
		}, nil
	}

	switch c := winner.Confidence; {
	case c >= AutoExecuteThreshold:
		switch {
		case winner.Kind == intent.KindQuery:
			return r.respondToQuery(winner)
		case winner.Kind.Mutating():
			return intent.Execute{
				Intent:               winner,
				RequiresConfirmation: c < fullCertainty,
			}, nil
		default:
			return intent.Respond{Message: chatReply}, nil
		}

	case c >= ClarifyThreshold:
		clarify, ok := contextualClarification(winner)
		if !ok {
			return r.lowConfidence(winner), nil
		}
		r.storePending(sessionID, text, candidates, clarify)
		return clarify, nil

	default:
		return r.lowConfidence(winner), nil
	}
}

// lowConfidence is the safe floor: chat gets usage hints, anything else
// a generic rephrase. No pending state, nothing to follow up on.
func (r *Resolver) lowConfidence(winner intent.Candidate) intent.Outcome {
	if winner.Kind == intent.KindChat {
		return intent.Respond{Message: helpMessage}
	}
	return intent.Clarify{
		Question: rephraseQuestion,
		Options:  append([]string{}, rephraseOptions...),
	}
}

func (r *Resolver) respondToQuery(c intent.Candidate) (intent.Outcome, error) {
	message, err := r.queries.Answer(c.Fields.Action)
	if err != nil {
		return nil, err
	}
	return intent.Respond{Message: message}, nil
}

func (r *Resolver) storePending(sessionID, text string, candidates []intent.Candidate, clarify intent.Clarify) {
	r.pending.Put(sessionID, intent.Pending{
		OriginalText: text,
		Candidates:   candidates,
		Question:     clarify.Question,
		Options:      clarify.Options,
	})
}

// looksLikeReply reports whether text answers a stored clarification:
// it contains one of the first two words of any offered option, or an
// affirmative or negative keyword.
func looksLikeReply(lower string, options []string) bool {
	for _, opt := range options {
		words := strings.Fields(strings.ToLower(opt))
		if len(words) > 2 {
			words = words[:2]
		}
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
	}
	return containsAny(lower, affirmativeWords) || containsAny(lower, negativeWords)
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// resolvePendingReply turns a clarification answer into an outcome.
// Affirmatives land on the best stored mutating candidate; negatives
// drop the whole thing; anything else re-asks up to the round cap.
func (r *Resolver) resolvePendingReply(ctx context.Context, text, lower, sessionID string, p intent.Pending) (intent.Outcome, error) {
	r.logger.Debug(logging.CategoryResolver, "pending_reply", "processing clarification reply", map[string]any{
		"session_id": sessionID,
		"rounds":     p.Rounds,
	})

	if containsAny(lower, affirmativeWords) {
		if best, ok := bestMutating(p.Candidates); ok {
			if clarify, valid := validate(best); !valid {
				// Still missing details; hold on to the entry so the
				// next answer can complete it.
				r.pending.Put(sessionID, p)
				recordRoundTrip("incomplete")
				return clarify, nil
			}
			recordRoundTrip("accepted")
			return intent.Execute{Intent: best, RequiresConfirmation: true}, nil
		}
	}

	if containsAny(lower, negativeWords) {
		recordRoundTrip("declined")
		return intent.Respond{Message: keepDataMessage}, nil
	}

	if p.Rounds+1 >= r.clarifyRounds {
		r.logger.Debug(logging.CategoryResolver, "pending_dropped", "clarification round cap reached", map[string]any{
			"session_id": sessionID,
		})
		recordRoundTrip("abandoned")
		return r.resolveFresh(ctx, text, sessionID)
	}

	p.Rounds++
	r.pending.Put(sessionID, p)
	recordRoundTrip("reasked")
	return intent.Clarify{
		Question: unclearReplyQuestion,
		Options:  append([]string{}, unclearReplyOptions...),
	}, nil
}

// bestMutating picks the highest-confidence task or class candidate.
func bestMutating(candidates []intent.Candidate) (intent.Candidate, bool) {
	var best intent.Candidate
	found := false
	for _, c := range candidates {
		if c.Kind != intent.KindTask && c.Kind != intent.KindClass {
			continue
		}
		if !found || c.Confidence > best.Confidence {
			best = c
			found = true
		}
	}
	return best, found
}

// Package pipeline wires detection, advice, resolution and execution
// into the single Process entry point every surface calls. The REPL,
// the one-shot command and the HTTP API all hand raw text to Process
// and branch on the outcome tag of the Reply; nothing else in the
// program mutates user data.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/odvcencio/focusboard/pkg/detector"
	"github.com/odvcencio/focusboard/pkg/executor"
	"github.com/odvcencio/focusboard/pkg/intent"
	"github.com/odvcencio/focusboard/pkg/logging"
	"github.com/odvcencio/focusboard/pkg/resolver"
	"github.com/odvcencio/focusboard/pkg/session"
	"github.com/odvcencio/focusboard/pkg/telemetry"
)

// Outcome tags a Reply so callers can branch without type switching.
type Outcome string

const (
	// OutcomeExecute means a mutation was applied and Message carries
	// its confirmation.
	OutcomeExecute Outcome = "execute"
	// OutcomeClarify means the pipeline needs more information;
	// Message carries the question and Options suggested replies.
	OutcomeClarify Outcome = "clarify"
	// OutcomeRespond means a read-only answer or conversational reply.
	OutcomeRespond Outcome = "respond"
)

// Reply is the pipeline's answer to one processed input.
type Reply struct {
	Outcome Outcome
	Message string

	// Options suggests replies for clarify outcomes.
	Options []string

	// Kind names the mutation applied on execute outcomes.
	Kind intent.Kind

	// RequiresConfirmation is set on execute outcomes performed below
	// full certainty, so surfaces can invite a correction.
	RequiresConfirmation bool
}

// Deps collects the pipeline's collaborators. Detector, Queries,
// Pending and Executor are required; Suggester, Hub and Logger may be
// nil and degrade to no advice, no events and no logs.
type Deps struct {
	Detector  *detector.Detector
	Suggester resolver.Suggester
	Queries   resolver.QueryAnswerer
	Pending   *session.Store
	Executor  *executor.Executor
	Hub       *telemetry.Hub
	Logger    *logging.Logger

	// MaxClarifyRounds caps re-asks per pending entry; zero keeps the
	// resolver default.
	MaxClarifyRounds int
}

// Pipeline owns one resolver and one executor. Safe for concurrent use.
type Pipeline struct {
	resolver *resolver.Resolver
	executor *executor.Executor
	hub      *telemetry.Hub
	logger   *logging.Logger
}

// New composes the pipeline. The suggester is wrapped so every
// advisory request is counted and surfaced on the hub before the
// resolver sees its result.
func New(deps Deps) *Pipeline {
	suggest := deps.Suggester
	if suggest == nil {
		suggest = silentSuggester{}
	}
	observed := &observedSuggester{inner: suggest, hub: deps.Hub}

	res := resolver.New(deps.Detector, observed, deps.Queries, deps.Pending, deps.Logger)
	res.SetMaxClarifyRounds(deps.MaxClarifyRounds)

	return &Pipeline{
		resolver: res,
		executor: deps.Executor,
		hub:      deps.Hub,
		logger:   deps.Logger,
	}
}

// Process resolves one input and applies its outcome. An empty
// sessionID falls back to the stable local identifier so a terminal
// conversation survives restarts.
func (p *Pipeline) Process(ctx context.Context, text, sessionID string) (Reply, error) {
	if sessionID == "" {
		sessionID = session.DefaultSessionID()
	}

	ctx, span := telemetry.StartSpan(ctx, "pipeline.process")
	defer span.End()
	telemetry.SetAttributes(ctx,
		telemetry.AttrSessionID.String(sessionID),
		telemetry.AttrInputBytes.Int(len(text)),
	)

	started := time.Now()
	p.hub.Publish(telemetry.Event{
		Type:      telemetry.EventResolutionStarted,
		SessionID: sessionID,
		Data:      map[string]any{"text": text},
	})

	outcome, err := p.resolver.Resolve(ctx, text, sessionID)
	if err != nil {
		return p.fail(ctx, sessionID, started, fmt.Errorf("resolve: %w", err))
	}

	var reply Reply
	switch o := outcome.(type) {
	case intent.Respond:
		reply = Reply{Outcome: OutcomeRespond, Message: o.Message}
	case intent.Clarify:
		reply = Reply{Outcome: OutcomeClarify, Message: o.Question, Options: o.Options}
	case intent.Execute:
		reply, err = p.apply(ctx, o, sessionID)
		if err != nil {
			return p.fail(ctx, sessionID, started, err)
		}
	default:
		return p.fail(ctx, sessionID, started, fmt.Errorf("unhandled outcome %T", outcome))
	}

	telemetry.SetAttributes(ctx, telemetry.AttrOutcome.String(string(reply.Outcome)))
	recordResolution(string(reply.Outcome), time.Since(started))
	p.hub.Publish(telemetry.Event{
		Type:      telemetry.EventResolutionCompleted,
		SessionID: sessionID,
		Data:      map[string]any{"outcome": string(reply.Outcome)},
	})
	return reply, nil
}

// apply runs a mutation through the executor and reports its fate on
// the hub. The executor's confirmation message becomes the Reply.
func (p *Pipeline) apply(ctx context.Context, out intent.Execute, sessionID string) (Reply, error) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.execute")
	defer span.End()
	telemetry.SetAttributes(ctx,
		telemetry.AttrIntentKind.String(string(out.Intent.Kind)),
		telemetry.AttrConfidence.Float64(out.Intent.Confidence),
	)

	message, err := p.executor.Execute(ctx, out)
	if err != nil {
		telemetry.RecordError(ctx, err)
		p.hub.Publish(telemetry.Event{
			Type:      telemetry.EventExecutionFailed,
			SessionID: sessionID,
			Data: map[string]any{
				"kind":  string(out.Intent.Kind),
				"error": err.Error(),
			},
		})
		return Reply{}, fmt.Errorf("apply %s: %w", out.Intent.Kind, err)
	}

	recordExecution(string(out.Intent.Kind))
	p.hub.Publish(telemetry.Event{
		Type:      telemetry.EventExecutionApplied,
		SessionID: sessionID,
		Data:      map[string]any{"kind": string(out.Intent.Kind)},
	})

	return Reply{
		Outcome:              OutcomeExecute,
		Message:              message,
		Kind:                 out.Intent.Kind,
		RequiresConfirmation: out.RequiresConfirmation,
	}, nil
}

func (p *Pipeline) fail(ctx context.Context, sessionID string, started time.Time, err error) (Reply, error) {
	telemetry.RecordError(ctx, err)
	recordResolution("error", time.Since(started))
	p.logger.Error(logging.CategoryResolver, "process_failed", err.Error(), map[string]any{
		"session_id": sessionID,
	})
	p.hub.Publish(telemetry.Event{
		Type:      telemetry.EventResolutionCompleted,
		SessionID: sessionID,
		Data:      map[string]any{"outcome": "error", "error": err.Error()},
	})
	return Reply{}, err
}

package pipeline

import (
	"context"

	"github.com/odvcencio/focusboard/pkg/intent"
	"github.com/odvcencio/focusboard/pkg/resolver"
	"github.com/odvcencio/focusboard/pkg/telemetry"
)

// observedSuggester decorates the advisory client with metrics, hub
// events and a span. It never alters the suggestion itself; a nil
// result stays nil so outages remain invisible to the resolver.
type observedSuggester struct {
	inner resolver.Suggester
	hub   *telemetry.Hub
}

func (s *observedSuggester) Suggest(ctx context.Context, text string) *intent.Candidate {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.suggest")
	defer span.End()

	c := s.inner.Suggest(ctx, text)
	if c == nil {
		recordAdvisory("silent")
		s.hub.Publish(telemetry.Event{Type: telemetry.EventAdvisorySilent})
		return nil
	}

	telemetry.SetAttributes(ctx,
		telemetry.AttrIntentKind.String(string(c.Kind)),
		telemetry.AttrConfidence.Float64(c.Confidence),
	)
	recordAdvisory("suggested")
	s.hub.Publish(telemetry.Event{
		Type: telemetry.EventAdvisorySuggested,
		Data: map[string]any{
			"kind":       string(c.Kind),
			"confidence": c.Confidence,
		},
	})
	return c
}

// silentSuggester stands in when no advisory client is configured.
type silentSuggester struct{}

func (silentSuggester) Suggest(context.Context, string) *intent.Candidate { return nil }

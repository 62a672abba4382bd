package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"idregistry/internal/access/models"
	id "idregistry/pkg/domain"
)

// Authorize decides whether caller may register right now. Pause takes
// precedence over the gate. It never mutates state.
func (s *Service) Authorize(ctx context.Context, caller id.Identity) (models.Decision, error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "authorize", caller)
	defer span.End()

	state, err := s.load(ctx)
	if err != nil {
		return models.Decision{}, s.fail(span, "authorize", err)
	}
	decision := state.Authorize(caller)
	span.SetAttributes(attribute.String("registry.decision", decision.Outcome()))
	if s.metrics != nil {
		s.metrics.ObserveDecision(decision, start)
	}
	if !decision.Allowed {
		s.logger.DebugContext(ctx, "registration denied",
			"registry_id", s.registryID,
			"caller", caller.String(),
			"reason", decision.Reason,
		)
	}
	return decision, nil
}

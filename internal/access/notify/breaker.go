package notify

import (
	"context"
	"log/slog"

	"idregistry/internal/access/models"
	dErrors "idregistry/pkg/domain-errors"
	"idregistry/pkg/platform/circuit"
)

// BreakerNotifier fails fast while a downstream sink is known to be down, so
// mutations are rejected immediately instead of waiting on broker timeouts.
// It never drops a notification: an open circuit is still a delivery failure.
type BreakerNotifier struct {
	next    Notifier
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewBreakerNotifier(next Notifier, breaker *circuit.Breaker, logger *slog.Logger) *BreakerNotifier {
	return &BreakerNotifier{next: next, breaker: breaker, logger: logger}
}

func (b *BreakerNotifier) Notify(ctx context.Context, n models.Notification) error {
	if !b.breaker.Allow() {
		return dErrors.New(dErrors.CodeUnavailable, b.breaker.Name()+" notifications unavailable")
	}

	if err := b.next.Notify(ctx, n); err != nil {
		if _, change := b.breaker.RecordFailure(); change.Opened {
			b.logger.WarnContext(ctx, "notification circuit opened",
				"sink", b.breaker.Name(),
				"error", err,
			)
		}
		return err
	}

	if _, change := b.breaker.RecordSuccess(); change.Closed {
		b.logger.InfoContext(ctx, "notification circuit closed", "sink", b.breaker.Name())
	}
	return nil
}

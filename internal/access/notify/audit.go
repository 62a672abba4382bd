package notify

import (
	"context"
	"strconv"

	"idregistry/internal/access/models"
	audit "idregistry/pkg/platform/audit"
	"idregistry/pkg/requestcontext"
)

// Emitter persists audit events. compliance.Publisher satisfies it.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// AuditNotifier records every notification in the audit trail, enriched with
// the request metadata carried by ctx.
type AuditNotifier struct {
	emitter Emitter
}

func NewAuditNotifier(emitter Emitter) *AuditNotifier {
	return &AuditNotifier{emitter: emitter}
}

func (a *AuditNotifier) Notify(ctx context.Context, n models.Notification) error {
	return a.emitter.Emit(ctx, ToAuditEvent(ctx, n))
}

// ToAuditEvent flattens a notification into an audit record.
func ToAuditEvent(ctx context.Context, n models.Notification) audit.Event {
	event := audit.Event{
		ID:         n.ID,
		RegistryID: n.RegistryID.String(),
		Sequence:   n.Sequence,
		Action:     string(n.Event.Name()),
		Caller:     n.Caller.String(),
		RequestID:  requestcontext.RequestID(ctx),
		ClientIP:   requestcontext.ClientIP(ctx),
		UserAgent:  requestcontext.UserAgent(ctx),
		Timestamp:  n.OccurredAt,
	}
	switch e := n.Event.(type) {
	case models.OwnershipTransferred:
		event.Subject = e.NewOwner.String()
		event.Detail = "previous_owner=" + e.PreviousOwner.String()
	case models.ChangeTrustedCaller:
		event.Subject = e.NewCaller.String()
	case models.PauseChanged:
		event.Detail = "paused=" + strconv.FormatBool(e.Paused)
	}
	return event
}

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one entry in a registry's audit trail. It records a committed
// access-control change together with the request that caused it.
type Event struct {
	ID         uuid.UUID
	RegistryID string
	Sequence   int64
	Action     string
	Caller     string
	// Subject is the identity the action was about (new owner, new trusted
	// caller). Empty for actions without one.
	Subject   string
	Detail    string
	RequestID string
	ClientIP  string
	UserAgent string
	Timestamp time.Time
}

// Store persists audit events. Append must join an ambient transaction when
// the context carries one.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByRegistry(ctx context.Context, registryID string, limit int) ([]Event, error)
	ListByActions(ctx context.Context, registryID string, actions []string, limit int) ([]Event, error)
}

// DefaultListLimit caps list queries when the caller passes a non-positive limit.
const DefaultListLimit = 100

// MaxListLimit is the largest page a list query returns.
const MaxListLimit = 1000

// NormalizeLimit clamps limit into [1, MaxListLimit].
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	id "idregistry/pkg/domain"
)

// EventName identifies a notification type. Names match the registry's
// published event vocabulary.
type EventName string

const (
	EventOwnershipTransferred EventName = "OwnershipTransferred"
	EventChangeTrustedCaller  EventName = "ChangeTrustedCaller"
	EventDisableTrustedOnly   EventName = "DisableTrustedOnly"
	EventPauseChanged         EventName = "PauseChanged"
)

// Event is the payload of a notification.
type Event interface {
	Name() EventName
}

// OwnershipTransferred carries the full before/after pair for audit reconstruction.
type OwnershipTransferred struct {
	PreviousOwner id.Identity `json:"previous_owner"`
	NewOwner      id.Identity `json:"new_owner"`
}

func (OwnershipTransferred) Name() EventName { return EventOwnershipTransferred }

type ChangeTrustedCaller struct {
	NewCaller id.Identity `json:"new_caller"`
}

func (ChangeTrustedCaller) Name() EventName { return EventChangeTrustedCaller }

type DisableTrustedOnly struct{}

func (DisableTrustedOnly) Name() EventName { return EventDisableTrustedOnly }

type PauseChanged struct {
	Paused bool `json:"paused"`
}

func (PauseChanged) Name() EventName { return EventPauseChanged }

// Notification wraps an event with the mutation it belongs to. Sequence is the
// state version the mutation produced, so ordering by Sequence is mutation order.
type Notification struct {
	ID         uuid.UUID
	RegistryID RegistryID
	Sequence   int64
	Caller     id.Identity
	OccurredAt time.Time
	Event      Event
}

// NewNotification stamps an event for the state it was produced against.
func NewNotification(state *State, caller id.Identity, event Event) Notification {
	return Notification{
		ID:         uuid.New(),
		RegistryID: state.RegistryID,
		Sequence:   state.Version,
		Caller:     caller,
		OccurredAt: state.UpdatedAt,
		Event:      event,
	}
}

type notificationJSON struct {
	ID         uuid.UUID   `json:"id"`
	RegistryID RegistryID  `json:"registry_id"`
	Sequence   int64       `json:"sequence"`
	Caller     id.Identity `json:"caller"`
	OccurredAt time.Time   `json:"occurred_at"`
	Event      EventName   `json:"event"`
	Payload    Event       `json:"payload"`
}

func (n Notification) MarshalJSON() ([]byte, error) {
	return json.Marshal(notificationJSON{
		ID:         n.ID,
		RegistryID: n.RegistryID,
		Sequence:   n.Sequence,
		Caller:     n.Caller,
		OccurredAt: n.OccurredAt,
		Event:      n.Event.Name(),
		Payload:    n.Event,
	})
}

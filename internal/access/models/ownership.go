package models

import (
	id "idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
)

// Ownership holds the administrator and the two-step transfer candidate.
//
// Invariants:
//   - Owner is never the null identity after construction
//   - PendingOwner is cleared on completion and replaced on every new request
//   - Only the pending owner can complete a transfer; the owner cannot force it
type Ownership struct {
	Owner        id.Identity `json:"owner"`
	PendingOwner id.Identity `json:"pending_owner"`
}

// NewOwnership creates ownership with no pending transfer.
func NewOwnership(owner id.Identity) (Ownership, error) {
	if owner.IsZero() {
		return Ownership{}, dErrors.New(dErrors.CodeInvalidAddress, "owner cannot be the null identity")
	}
	return Ownership{Owner: owner, PendingOwner: id.ZeroIdentity}, nil
}

// IsOwner reports whether caller is the current owner.
func (o Ownership) IsOwner(caller id.Identity) bool {
	return !caller.IsZero() && caller.Equal(o.Owner)
}

// HasPendingOwner reports whether a transfer is awaiting acceptance.
func (o Ownership) HasPendingOwner() bool {
	return !o.PendingOwner.IsZero()
}

// RequireOwner is the guard at the top of every owner-only operation.
func (o Ownership) RequireOwner(caller id.Identity) error {
	if !o.IsOwner(caller) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the owner")
	}
	return nil
}

// CanRequestTransfer validates a transfer nomination.
func (o Ownership) CanRequestTransfer(caller, candidate id.Identity) error {
	if err := o.RequireOwner(caller); err != nil {
		return err
	}
	if candidate.IsZero() {
		return dErrors.New(dErrors.CodeInvalidAddress, "candidate cannot be the null identity")
	}
	return nil
}

// ApplyRequestTransfer records the candidate, replacing any earlier one.
// Call CanRequestTransfer first.
func (o *Ownership) ApplyRequestTransfer(candidate id.Identity) {
	o.PendingOwner = candidate
}

// CanCompleteTransfer validates an acceptance. Acceptance belongs to the
// pending owner alone, so the current owner is rejected like anyone else.
func (o Ownership) CanCompleteTransfer(caller id.Identity) error {
	if !o.HasPendingOwner() || caller.IsZero() || !caller.Equal(o.PendingOwner) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the pending owner")
	}
	return nil
}

// ApplyCompleteTransfer promotes the pending owner and returns the change.
// Call CanCompleteTransfer first.
func (o *Ownership) ApplyCompleteTransfer() OwnershipTransferred {
	event := OwnershipTransferred{PreviousOwner: o.Owner, NewOwner: o.PendingOwner}
	o.Owner = o.PendingOwner
	o.PendingOwner = id.ZeroIdentity
	return event
}

// DirectTransfer is the single-step transfer, which is always refused: a typo
// would hand administration to an address that can never act.
func (o Ownership) DirectTransfer(_ id.Identity, _ id.Identity) error {
	return dErrors.New(dErrors.CodeUnauthorized, "single-step ownership transfer is disabled")
}

package models

import (
	"regexp"
	"time"

	id "idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
)

var registryIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// RegistryID names one independent registry instance.
type RegistryID string

// ParseRegistryID validates a registry name from configuration or a request.
func ParseRegistryID(s string) (RegistryID, error) {
	if !registryIDPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "registry id must be 1-63 lower-case alphanumerics, '-' or '_'")
	}
	return RegistryID(s), nil
}

func (r RegistryID) String() string {
	return string(r)
}

// State is the access-control aggregate for one registry. Ownership is the
// authorization root: every mutation of Gate or Pause is checked against it at
// the moment of the call.
//
// Version increases by one on every committed mutation and doubles as the
// notification sequence number.
type State struct {
	RegistryID RegistryID
	Ownership  Ownership
	Gate       Gate
	Pause      Pause
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewState creates a registry with the given owner and trusted caller, gated
// and unpaused.
func NewState(registryID RegistryID, owner, trusted id.Identity, now time.Time) (*State, error) {
	ownership, err := NewOwnership(owner)
	if err != nil {
		return nil, err
	}
	gate, err := NewGated(trusted)
	if err != nil {
		return nil, err
	}
	return &State{
		RegistryID: registryID,
		Ownership:  ownership,
		Gate:       gate,
		Pause:      Pause{},
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Clone returns a working copy. All fields are values, so a shallow copy is
// independent of the original.
func (s *State) Clone() *State {
	c := *s
	return &c
}

// Touch records a committed mutation.
func (s *State) Touch(now time.Time) {
	s.Version++
	s.UpdatedAt = now
}

// Authorize composes the pause guard and the gate. Pause wins over everything.
func (s *State) Authorize(caller id.Identity) Decision {
	if s.Pause.Paused {
		return Deny(DenyReasonPaused)
	}
	if !s.Gate.MayRegister(caller) {
		return Deny(DenyReasonGated)
	}
	return Allow()
}

// Snapshot is the flat, serialisable view of State used by stores and the API.
type Snapshot struct {
	RegistryID    RegistryID  `json:"registry_id"`
	Owner         id.Identity `json:"owner"`
	PendingOwner  id.Identity `json:"pending_owner"`
	TrustedCaller id.Identity `json:"trusted_caller"`
	GatePhase     GatePhase   `json:"gate_phase"`
	GateOpen      bool        `json:"gate_open"`
	Paused        bool        `json:"paused"`
	Version       int64       `json:"version"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{
		RegistryID:    s.RegistryID,
		Owner:         s.Ownership.Owner,
		PendingOwner:  s.Ownership.PendingOwner,
		TrustedCaller: s.Gate.TrustedCaller(),
		GatePhase:     s.Gate.Phase(),
		GateOpen:      s.Gate.IsOpen(),
		Paused:        s.Pause.Paused,
		Version:       s.Version,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// Restore rebuilds State from a snapshot, re-checking the invariants that
// persisted data must still satisfy.
func (s Snapshot) Restore() (*State, error) {
	if s.Owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "persisted owner is the null identity")
	}
	gate, err := RestoreGate(s.GatePhase, s.TrustedCaller)
	if err != nil {
		return nil, err
	}
	pending := s.PendingOwner
	if pending.IsZero() {
		pending = id.ZeroIdentity
	}
	return &State{
		RegistryID: s.RegistryID,
		Ownership:  Ownership{Owner: s.Owner, PendingOwner: pending},
		Gate:       gate,
		Pause:      Pause{Paused: s.Paused},
		Version:    s.Version,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}, nil
}

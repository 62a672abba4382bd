package models

import (
	id "idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
)

// GatePhase names the two states of the trusted-caller gate.
type GatePhase string

const (
	GatePhaseGated GatePhase = "gated"
	GatePhaseOpen  GatePhase = "open"
)

// Gate is the one-way bootstrap restriction. It is a closed sum: Gated is the
// initial state and Opened is terminal. No method on Opened returns a Gated,
// so nothing after Open can restore trusted-only registration.
type Gate interface {
	Phase() GatePhase
	IsOpen() bool
	TrustedCaller() id.Identity
	// MayRegister is true when open or when caller is the trusted caller.
	MayRegister(caller id.Identity) bool
	// WithTrustedCaller replaces the trusted caller, keeping the phase.
	WithTrustedCaller(caller id.Identity) (Gate, error)
	// Open moves the gate to its terminal state.
	Open() Gate

	sealed()
}

// Gated restricts registration to a single trusted caller.
// Invariant: Caller is never the null identity.
type Gated struct {
	Caller id.Identity
}

// NewGated constructs the initial gate state.
func NewGated(trusted id.Identity) (Gated, error) {
	if trusted.IsZero() {
		return Gated{}, dErrors.New(dErrors.CodeInvalidAddress, "trusted caller cannot be the null identity")
	}
	return Gated{Caller: trusted}, nil
}

func (g Gated) Phase() GatePhase           { return GatePhaseGated }
func (g Gated) IsOpen() bool               { return false }
func (g Gated) TrustedCaller() id.Identity { return g.Caller }
func (g Gated) Open() Gate                 { return Opened{Caller: g.Caller} }
func (Gated) sealed()                      {}

func (g Gated) MayRegister(caller id.Identity) bool {
	return !caller.IsZero() && caller.Equal(g.Caller)
}

func (g Gated) WithTrustedCaller(caller id.Identity) (Gate, error) {
	next, err := NewGated(caller)
	if err != nil {
		return nil, err
	}
	return next, nil
}

// Opened lets anyone attempt registration. The last trusted caller is retained
// for queries and may still be replaced.
type Opened struct {
	Caller id.Identity
}

func (o Opened) Phase() GatePhase               { return GatePhaseOpen }
func (o Opened) IsOpen() bool                   { return true }
func (o Opened) TrustedCaller() id.Identity     { return o.Caller }
func (o Opened) Open() Gate                     { return o }
func (o Opened) MayRegister(_ id.Identity) bool { return true }
func (Opened) sealed()                          {}

func (o Opened) WithTrustedCaller(caller id.Identity) (Gate, error) {
	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidAddress, "trusted caller cannot be the null identity")
	}
	return Opened{Caller: caller}, nil
}

// RestoreGate rebuilds a gate from persisted fields. Stores use it when loading;
// it is not a transition.
func RestoreGate(phase GatePhase, trusted id.Identity) (Gate, error) {
	switch phase {
	case GatePhaseOpen:
		return Opened{Caller: trusted}, nil
	case GatePhaseGated:
		gated, err := NewGated(trusted)
		if err != nil {
			return nil, err
		}
		return gated, nil
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown gate phase: "+string(phase))
	}
}

package models

import dErrors "idregistry/pkg/domain-errors"

// Pause is the reversible operational halt. Unlike the gate it toggles freely.
type Pause struct {
	Paused bool `json:"paused"`
}

func (p Pause) CanPause() error {
	if p.Paused {
		return dErrors.New(dErrors.CodeAlreadyInState, "registry is already paused")
	}
	return nil
}

func (p *Pause) ApplyPause() PauseChanged {
	p.Paused = true
	return PauseChanged{Paused: true}
}

func (p Pause) CanUnpause() error {
	if !p.Paused {
		return dErrors.New(dErrors.CodeAlreadyInState, "registry is not paused")
	}
	return nil
}

func (p *Pause) ApplyUnpause() PauseChanged {
	p.Paused = false
	return PauseChanged{Paused: false}
}

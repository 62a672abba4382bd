package service

import (
	"context"

	"idregistry/internal/access/models"
	id "idregistry/pkg/domain"
)

// SetTrustedCaller replaces the trusted caller. It is allowed after the gate
// has been opened; the gate stays open.
func (s *Service) SetTrustedCaller(ctx context.Context, caller, newCaller id.Identity) (*models.State, error) {
	return s.execute(ctx, "set_trusted_caller", caller, func(state *models.State) (models.Event, error) {
		if err := state.Ownership.RequireOwner(caller); err != nil {
			return nil, err
		}
		gate, err := state.Gate.WithTrustedCaller(newCaller)
		if err != nil {
			return nil, err
		}
		state.Gate = gate
		return models.ChangeTrustedCaller{NewCaller: newCaller}, nil
	})
}

// Open permanently lifts the trusted-caller restriction. Opening an already
// open gate succeeds and notifies again.
func (s *Service) Open(ctx context.Context, caller id.Identity) (*models.State, error) {
	return s.execute(ctx, "open_gate", caller, func(state *models.State) (models.Event, error) {
		if err := state.Ownership.RequireOwner(caller); err != nil {
			return nil, err
		}
		state.Gate = state.Gate.Open()
		return models.DisableTrustedOnly{}, nil
	})
}

func (s *Service) MayRegister(ctx context.Context, caller id.Identity) (bool, error) {
	state, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	return state.Gate.MayRegister(caller), nil
}

func (s *Service) TrustedCaller(ctx context.Context) (id.Identity, error) {
	state, err := s.load(ctx)
	if err != nil {
		return id.ZeroIdentity, err
	}
	return state.Gate.TrustedCaller(), nil
}

func (s *Service) IsOpen(ctx context.Context) (bool, error) {
	state, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	return state.Gate.IsOpen(), nil
}

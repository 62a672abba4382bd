package service

import (
	"context"

	"idregistry/internal/access/models"
	id "idregistry/pkg/domain"
)

func (s *Service) Pause(ctx context.Context, caller id.Identity) (*models.State, error) {
	return s.execute(ctx, "pause", caller, func(state *models.State) (models.Event, error) {
		if err := state.Ownership.RequireOwner(caller); err != nil {
			return nil, err
		}
		if err := state.Pause.CanPause(); err != nil {
			return nil, err
		}
		return state.Pause.ApplyPause(), nil
	})
}

func (s *Service) Unpause(ctx context.Context, caller id.Identity) (*models.State, error) {
	return s.execute(ctx, "unpause", caller, func(state *models.State) (models.Event, error) {
		if err := state.Ownership.RequireOwner(caller); err != nil {
			return nil, err
		}
		if err := state.Pause.CanUnpause(); err != nil {
			return nil, err
		}
		return state.Pause.ApplyUnpause(), nil
	})
}

func (s *Service) IsPaused(ctx context.Context) (bool, error) {
	state, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	return state.Pause.Paused, nil
}

package service

import (
	"context"

	"idregistry/internal/access/models"
	id "idregistry/pkg/domain"
)

// RequestTransfer nominates candidate as pending owner. Only the owner may
// call it; a second request overwrites the first. No notification is emitted.
func (s *Service) RequestTransfer(ctx context.Context, caller, candidate id.Identity) (*models.State, error) {
	return s.execute(ctx, "request_transfer", caller, func(state *models.State) (models.Event, error) {
		if err := state.Ownership.CanRequestTransfer(caller, candidate); err != nil {
			return nil, err
		}
		state.Ownership.ApplyRequestTransfer(candidate)
		return nil, nil
	})
}

// CompleteTransfer lets the pending owner accept ownership.
func (s *Service) CompleteTransfer(ctx context.Context, caller id.Identity) (*models.State, error) {
	return s.execute(ctx, "complete_transfer", caller, func(state *models.State) (models.Event, error) {
		if err := state.Ownership.CanCompleteTransfer(caller); err != nil {
			return nil, err
		}
		return state.Ownership.ApplyCompleteTransfer(), nil
	})
}

// DirectTransfer is the single-step transfer path. It is disabled: every call
// fails with Unauthorized and nothing is read or written.
func (s *Service) DirectTransfer(ctx context.Context, caller, candidate id.Identity) error {
	ctx, span := s.startSpan(ctx, "direct_transfer", caller)
	defer span.End()

	err := models.Ownership{}.DirectTransfer(caller, candidate)
	s.logger.WarnContext(ctx, "direct ownership transfer refused",
		"registry_id", s.registryID,
		"caller", caller.String(),
		"candidate", candidate.String(),
	)
	return s.fail(span, "direct_transfer", err)
}

func (s *Service) IsOwner(ctx context.Context, caller id.Identity) (bool, error) {
	state, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	return state.Ownership.IsOwner(caller), nil
}

func (s *Service) Owner(ctx context.Context) (id.Identity, error) {
	state, err := s.load(ctx)
	if err != nil {
		return id.ZeroIdentity, err
	}
	return state.Ownership.Owner, nil
}

// PendingOwner returns the nominated owner, or the null identity when no
// transfer is in progress.
func (s *Service) PendingOwner(ctx context.Context) (id.Identity, error) {
	state, err := s.load(ctx)
	if err != nil {
		return id.ZeroIdentity, err
	}
	return state.Ownership.PendingOwner, nil
}

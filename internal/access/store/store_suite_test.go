package store

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/suite"

	"idregistry/internal/access/models"
	id "idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	"idregistry/pkg/platform/sentinel"
)

var (
	testOwner     = id.MustParseIdentity("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	testTrusted   = id.MustParseIdentity("0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb")
	testCandidate = id.MustParseIdentity("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
)

// registryStore is the contract every backend satisfies.
type registryStore interface {
	Create(ctx context.Context, state *models.State) error
	Load(ctx context.Context, registryID models.RegistryID) (*models.State, error)
	Execute(ctx context.Context, registryID models.RegistryID, fn func(ctx context.Context, state *models.State) error) (*models.State, error)
}

// contractSuite holds behaviour shared by the in-memory, Postgres and Redis
// stores. Backend suites embed it and set store in SetupTest.
type contractSuite struct {
	suite.Suite
	store registryStore
	ctx   context.Context
}

func (s *contractSuite) newState(registryID models.RegistryID) *models.State {
	state, err := models.NewState(registryID, testOwner, testTrusted, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return state
}

func (s *contractSuite) TestCreateAndLoad() {
	s.Run("loads what was created", func() {
		state := s.newState("create-load")
		s.Require().NoError(s.store.Create(s.ctx, state))

		loaded, err := s.store.Load(s.ctx, "create-load")
		s.Require().NoError(err)
		s.Equal(testOwner, loaded.Ownership.Owner)
		s.Equal(testTrusted, loaded.Gate.TrustedCaller())
		s.False(loaded.Gate.IsOpen())
		s.False(loaded.Pause.Paused)
		s.True(loaded.Ownership.PendingOwner.IsZero())
	})

	s.Run("rejects a duplicate registry", func() {
		state := s.newState("duplicate")
		s.Require().NoError(s.store.Create(s.ctx, state))
		s.ErrorIs(s.store.Create(s.ctx, state), sentinel.ErrConflict)
	})

	s.Run("returns ErrNotFound for an unknown registry", func() {
		_, err := s.store.Load(s.ctx, "missing")
		s.ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.Execute(s.ctx, "missing", func(context.Context, *models.State) error { return nil })
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *contractSuite) TestExecute() {
	s.Run("commits the working copy when fn succeeds", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newState("commit")))

		updated, err := s.store.Execute(s.ctx, "commit", func(_ context.Context, st *models.State) error {
			st.Ownership.ApplyRequestTransfer(testCandidate)
			st.Gate = st.Gate.Open()
			st.Pause.ApplyPause()
			st.Touch(time.Now().UTC())
			return nil
		})
		s.Require().NoError(err)
		s.Equal(int64(2), updated.Version)

		loaded, err := s.store.Load(s.ctx, "commit")
		s.Require().NoError(err)
		s.Equal(testCandidate, loaded.Ownership.PendingOwner)
		s.True(loaded.Gate.IsOpen())
		s.True(loaded.Pause.Paused)
		s.Equal(int64(2), loaded.Version)
	})

	s.Run("discards the working copy when fn fails", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newState("rollback")))
		refusal := dErrors.New(dErrors.CodeUnauthorized, "caller is not the owner")

		_, err := s.store.Execute(s.ctx, "rollback", func(_ context.Context, st *models.State) error {
			st.Pause.ApplyPause()
			st.Touch(time.Now().UTC())
			return refusal
		})
		s.True(errors.Is(err, refusal))

		loaded, err := s.store.Load(s.ctx, "rollback")
		s.Require().NoError(err)
		s.False(loaded.Pause.Paused)
		s.Equal(int64(1), loaded.Version)
	})

	s.Run("loaded state is a copy", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newState("copy")))
		loaded, err := s.store.Load(s.ctx, "copy")
		s.Require().NoError(err)
		loaded.Pause.ApplyPause()

		again, err := s.store.Load(s.ctx, "copy")
		s.Require().NoError(err)
		s.False(again.Pause.Paused)
	})
}

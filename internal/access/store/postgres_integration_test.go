//go:build integration

package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idregistry/internal/access/models"
	"idregistry/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	contractSuite
	postgres *containers.PostgresContainer
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(EnsureSchema(context.Background(), s.postgres.DB))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "registry_access"))
	s.store = NewPostgres(s.postgres.DB)
}

// TestRowLockSerializesWriters verifies that SELECT ... FOR UPDATE makes
// concurrent Execute calls apply one after another.
func (s *PostgresStoreSuite) TestRowLockSerializesWriters() {
	s.Require().NoError(s.store.Create(s.ctx, s.newState("race")))

	const writers = 20
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, "race", func(_ context.Context, st *models.State) error {
				st.Touch(time.Now().UTC())
				return nil
			})
			if err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load())
	loaded, err := s.store.Load(s.ctx, "race")
	s.Require().NoError(err)
	s.Equal(int64(1+writers), loaded.Version)
}

// TestGateColumnIsMonotonic verifies the UPDATE cannot clear gate_open even if
// a caller hands it a gated state.
func (s *PostgresStoreSuite) TestGateColumnIsMonotonic() {
	s.Require().NoError(s.store.Create(s.ctx, s.newState("ratchet")))
	_, err := s.store.Execute(s.ctx, "ratchet", func(_ context.Context, st *models.State) error {
		st.Gate = st.Gate.Open()
		st.Touch(time.Now().UTC())
		return nil
	})
	s.Require().NoError(err)

	_, err = s.store.Execute(s.ctx, "ratchet", func(_ context.Context, st *models.State) error {
		gated, err := models.NewGated(testTrusted)
		if err != nil {
			return err
		}
		st.Gate = gated
		st.Touch(time.Now().UTC())
		return nil
	})
	s.Require().NoError(err)

	loaded, err := s.store.Load(s.ctx, "ratchet")
	s.Require().NoError(err)
	s.True(loaded.Gate.IsOpen())
}

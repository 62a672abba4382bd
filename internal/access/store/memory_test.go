package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idregistry/internal/access/models"
)

type InMemoryStoreSuite struct {
	contractSuite
	mem *InMemory
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.mem = NewInMemory()
	s.store = s.mem
	s.ctx = context.Background()
}

// TestConcurrentExecuteIsSerialized verifies no increment is lost when many
// writers race on one registry.
func (s *InMemoryStoreSuite) TestConcurrentExecuteIsSerialized() {
	s.Require().NoError(s.store.Create(s.ctx, s.newState("race")))

	const writers = 64
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, "race", func(_ context.Context, st *models.State) error {
				st.Touch(time.Now())
				return nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	loaded, err := s.store.Load(s.ctx, "race")
	s.Require().NoError(err)
	s.Equal(int64(1+writers), loaded.Version)
}

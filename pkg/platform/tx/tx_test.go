package tx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrom(t *testing.T) {
	t.Run("absent transaction", func(t *testing.T) {
		_, ok := From(context.Background())
		assert.False(t, ok)
	})

	t.Run("nil transaction is not stored", func(t *testing.T) {
		ctx := WithTx(context.Background(), nil)
		_, ok := From(ctx)
		assert.False(t, ok)
	})

	t.Run("falls back to the database", func(t *testing.T) {
		db := &sql.DB{}
		assert.Same(t, db, ExecutorFrom(context.Background(), db))
	})
}

func TestQueue(t *testing.T) {
	t.Run("absent queue", func(t *testing.T) {
		_, ok := QueueFrom(context.Background())
		assert.False(t, ok)
		_, ok = QueueFrom(WithQueue(context.Background(), nil))
		assert.False(t, ok)
	})

	t.Run("applies queued commands to the pipeline", func(t *testing.T) {
		ctx := WithQueue(context.Background(), &Queue{})
		q, ok := QueueFrom(ctx)
		require.True(t, ok)

		q.Add(func(ctx context.Context, pipe redis.Pipeliner) { pipe.Set(ctx, "a", "1", 0) })
		q.Add(func(ctx context.Context, pipe redis.Pipeliner) { pipe.LPush(ctx, "b", "2") })
		assert.Equal(t, 2, q.Len())

		// Commands are only buffered on a pipeline, so no server is needed.
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
		t.Cleanup(func() { _ = client.Close() })
		pipe := client.TxPipeline()
		q.Apply(ctx, pipe)

		assert.Equal(t, 2, pipe.Len())
	})
}

package tx

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

type queueKey struct{}

// Queue collects Redis commands that must be applied in the MULTI/EXEC of the
// enclosing store transaction. They are discarded when that transaction does
// not commit.
type Queue struct {
	mu   sync.Mutex
	cmds []func(ctx context.Context, pipe redis.Pipeliner)
}

// WithQueue stores q in context for downstream Redis stores.
func WithQueue(ctx context.Context, q *Queue) context.Context {
	if q == nil {
		return ctx
	}
	return context.WithValue(ctx, queueKey{}, q)
}

// QueueFrom extracts the Redis command queue from context if present.
func QueueFrom(ctx context.Context) (*Queue, bool) {
	q, ok := ctx.Value(queueKey{}).(*Queue)
	return q, ok
}

func (q *Queue) Add(cmd func(ctx context.Context, pipe redis.Pipeliner)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cmds = append(q.cmds, cmd)
}

// Apply queues every collected command on pipe, in the order they were added.
func (q *Queue) Apply(ctx context.Context, pipe redis.Pipeliner) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, cmd := range q.cmds {
		cmd(ctx, pipe)
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cmds)
}

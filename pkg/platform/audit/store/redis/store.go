// Package redis keeps each registry's audit trail in a capped Redis list,
// newest event at the head.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	audit "idregistry/pkg/platform/audit"
	txcontext "idregistry/pkg/platform/tx"
)

const (
	keyPrefix        = "registry:audit:"
	defaultMaxEvents = 10000
)

type Store struct {
	client    *redis.Client
	maxEvents int64
}

type Option func(*Store)

// WithMaxEvents caps the list length; older events are trimmed on append.
func WithMaxEvents(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEvents = n
		}
	}
}

func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, maxEvents: defaultMaxEvents}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type record struct {
	ID         uuid.UUID `json:"id"`
	RegistryID string    `json:"registry_id"`
	Sequence   int64     `json:"sequence"`
	Action     string    `json:"action"`
	Caller     string    `json:"caller"`
	Subject    string    `json:"subject,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func eventsKey(registryID string) string {
	return keyPrefix + registryID
}

// Append joins the registry store's MULTI/EXEC when ctx carries a tx.Queue,
// so the event is written only if the state change commits.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(record(event))
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	key := eventsKey(event.RegistryID)
	write := func(ctx context.Context, pipe redis.Pipeliner) {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, s.maxEvents-1)
	}

	if queue, ok := txcontext.QueueFrom(ctx); ok {
		queue.Add(write)
		return nil
	}
	if _, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		write(ctx, pipe)
		return nil
	}); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByRegistry returns the most recent events first.
func (s *Store) ListByRegistry(ctx context.Context, registryID string, limit int) ([]audit.Event, error) {
	limit = audit.NormalizeLimit(limit)
	raw, err := s.client.LRange(ctx, eventsKey(registryID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return decode(raw, nil, limit)
}

// ListByActions scans the capped list and keeps the newest matching events.
func (s *Store) ListByActions(ctx context.Context, registryID string, actions []string, limit int) ([]audit.Event, error) {
	raw, err := s.client.LRange(ctx, eventsKey(registryID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list audit events by action: %w", err)
	}
	return decode(raw, actions, audit.NormalizeLimit(limit))
}

func decode(raw []string, actions []string, limit int) ([]audit.Event, error) {
	out := make([]audit.Event, 0, min(limit, len(raw)))
	for _, item := range raw {
		if len(out) == limit {
			break
		}
		var rec record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode audit event: %w", err)
		}
		if actions != nil && !slices.Contains(actions, rec.Action) {
			continue
		}
		out = append(out, audit.Event(rec))
	}
	return out, nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"idregistry/internal/access/models"
	"idregistry/pkg/platform/sentinel"
	txcontext "idregistry/pkg/platform/tx"
)

const registryKeyPrefix = "registry:access:"

// RedisStore keeps each registry as a JSON snapshot under one key. Execute uses
// WATCH/MULTI: a concurrent writer from another process aborts the transaction
// and the call fails with ErrConflict rather than retrying. Commands that stores
// queue on the context's tx.Queue during fn run in the same EXEC.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func registryKey(registryID models.RegistryID) string {
	return registryKeyPrefix + string(registryID)
}

func (s *RedisStore) Create(ctx context.Context, state *models.State) error {
	payload, err := json.Marshal(state.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal registry state: %w", err)
	}
	created, err := s.client.SetNX(ctx, registryKey(state.RegistryID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("create registry state: %w", err)
	}
	if !created {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, registryID models.RegistryID) (*models.State, error) {
	raw, err := s.client.Get(ctx, registryKey(registryID)).Bytes()
	return decodeState(raw, err)
}

func (s *RedisStore) Execute(ctx context.Context, registryID models.RegistryID, fn func(ctx context.Context, state *models.State) error) (*models.State, error) {
	key := registryKey(registryID)
	var committed *models.State

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		working, err := decodeState(tx.Get(ctx, key).Bytes())
		if err != nil {
			return err
		}
		queue := &txcontext.Queue{}
		if err := fn(txcontext.WithQueue(ctx, queue), working); err != nil {
			return err
		}
		payload, err := json.Marshal(working.Snapshot())
		if err != nil {
			return fmt.Errorf("marshal registry state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			queue.Apply(ctx, pipe)
			return nil
		})
		if err != nil {
			return err
		}
		committed = working
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, fmt.Errorf("%w: registry %s changed concurrently", sentinel.ErrConflict, registryID)
	}
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func decodeState(raw []byte, err error) (*models.State, error) {
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load registry state: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrInvalidState, err)
	}
	state, err := snap.Restore()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrInvalidState, err)
	}
	return state, nil
}

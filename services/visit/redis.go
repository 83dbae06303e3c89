package visit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"linklock/pkg/rediskey"

	"github.com/redis/go-redis/v9"
)

// saveAttempts bounds the optimistic-lock retry loop on contended sessions.
const saveAttempts = 5

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func (s *redisStore) Get(ctx context.Context, visitID string) (*Visit, error) {
	data, err := s.client.Get(ctx, rediskey.BuildVisitKey(visitID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read visit session: %w", err)
	}

	var visit Visit
	if err := json.Unmarshal(data, &visit); err != nil {
		return nil, fmt.Errorf("failed to decode visit session: %w", err)
	}
	return &visit, nil
}

// Save writes the session under WATCH: the stored copy is re-read and
// merged inside the transaction, so a concurrent writer invalidates this
// attempt instead of being silently overwritten. Save also refreshes the
// TTL so an active visit outlives a slow visitor.
func (s *redisStore) Save(ctx context.Context, visit *Visit) error {
	key := rediskey.BuildVisitKey(visit.ID)

	for attempt := 0; attempt < saveAttempts; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			merged := visit

			data, err := tx.Get(ctx, key).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if err == nil {
				var current Visit
				if err := json.Unmarshal(data, &current); err != nil {
					return fmt.Errorf("failed to decode visit session: %w", err)
				}
				merged = merge(&current, visit)
			}

			payload, err := json.Marshal(merged)
			if err != nil {
				return fmt.Errorf("failed to encode visit session: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, s.ttl)
				return nil
			})
			return err
		}, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("failed to write visit session: %w", err)
	}

	return fmt.Errorf("failed to write visit session: key %s contended", key)
}

func (s *redisStore) Delete(ctx context.Context, visitID string) error {
	if err := s.client.Del(ctx, rediskey.BuildVisitKey(visitID)).Err(); err != nil {
		return fmt.Errorf("failed to delete visit session: %w", err)
	}
	return nil
}

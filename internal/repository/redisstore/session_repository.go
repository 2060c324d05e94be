package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"querymate-be/internal/repository/contract"
	"querymate-be/pkg/store"
)

const (
	sessionKeyPrefix = "querymate:context-session:"
	defaultTTL       = 24 * time.Hour
)

// SessionRepository stores sessions in Redis so several API instances can
// share them. Updates use WATCH/MULTI/EXEC against the Version field.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

var _ contract.ContextSessionRepository = (*SessionRepository)(nil)

func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &SessionRepository{client: client, ttl: ttl}
}

func (r *SessionRepository) Create(ctx context.Context, session *store.ContextSession) error {
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	session.Version = 1

	val, err := json.Marshal(session)
	if err != nil {
		return err
	}

	ok, err := r.client.SetNX(ctx, r.key(session.UserID), val, r.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrSessionExists
	}
	return nil
}

// Get refreshes the TTL on every read; GETEX reads and extends in one
// command.
func (r *SessionRepository) Get(ctx context.Context, userID string) (*store.ContextSession, error) {
	val, err := r.client.GetEx(ctx, r.key(userID), r.ttl).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session store.ContextSession
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Update(ctx context.Context, session *store.ContextSession) error {
	key := r.key(session.UserID)

	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return store.ErrSessionNotFound
		}
		if err != nil {
			return err
		}

		var stored store.ContextSession
		if err := json.Unmarshal([]byte(val), &stored); err != nil {
			return err
		}
		if stored.Version != session.Version {
			return store.ErrVersionConflict
		}

		next := session.Clone()
		next.Version++
		next.UpdatedAt = time.Now()
		newVal, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newVal, r.ttl)
			return nil
		})
		if errors.Is(err, redis.TxFailedErr) {
			return store.ErrVersionConflict
		}
		if err != nil {
			return err
		}

		session.Version = next.Version
		session.UpdatedAt = next.UpdatedAt
		return nil
	}, key)
}

func (r *SessionRepository) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}

func (r *SessionRepository) key(userID string) string {
	return sessionKeyPrefix + userID
}

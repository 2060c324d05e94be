package memory

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"querymate-be/internal/repository/contract"
	"querymate-be/pkg/store"
)

type SessionRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

var _ contract.ContextSessionRepository = (*SessionRepository)(nil)

// NewSessionRepository keeps sessions for ttl after their last access and
// purges expired entries every 10 minutes.
func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepository{
		cache: cache.New(ttl, 10*time.Minute),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (r *SessionRepository) Create(ctx context.Context, session *store.ContextSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.cache.Get(session.UserID); found {
		return store.ErrSessionExists
	}
	now := r.now()
	session.CreatedAt = now
	session.UpdatedAt = now
	session.Version = 1
	r.cache.Set(session.UserID, session.Clone(), r.ttl)
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, userID string) (*store.ContextSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.cache.Get(userID)
	if !found {
		return nil, nil
	}
	stored := x.(*store.ContextSession)
	// sliding expiry
	r.cache.Set(userID, stored, r.ttl)
	return stored.Clone(), nil
}

func (r *SessionRepository) Update(ctx context.Context, session *store.ContextSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.cache.Get(session.UserID)
	if !found {
		return store.ErrSessionNotFound
	}
	if x.(*store.ContextSession).Version != session.Version {
		return store.ErrVersionConflict
	}
	session.Version++
	session.UpdatedAt = r.now()
	r.cache.Set(session.UserID, session.Clone(), r.ttl)
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, userID string) error {
	r.cache.Delete(userID)
	return nil
}

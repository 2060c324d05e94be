package contract

import (
	"context"

	"querymate-be/pkg/store"
)

// ContextSessionRepository persists interview sessions keyed by user.
type ContextSessionRepository interface {
	// Create stores a new session at Version 1. Returns store.ErrSessionExists
	// if the user already has one.
	Create(ctx context.Context, session *store.ContextSession) error
	// Get returns nil, nil when the user has no session.
	Get(ctx context.Context, userID string) (*store.ContextSession, error)
	// Update checks Version, bumps it and persists. Returns
	// store.ErrVersionConflict or store.ErrSessionNotFound.
	Update(ctx context.Context, session *store.ContextSession) error
	Delete(ctx context.Context, userID string) error
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

// ContextDocument is the committed business context of one user.
type ContextDocument struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApiKey is the single active widget credential of one user.
type ApiKey struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Key       string
	Digest    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type WidgetSettings struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Settings  map[string]string
	UpdatedAt time.Time
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

// User owns one context document, one api key and one widget configuration.
type User struct {
	Id           uuid.UUID
	Email        string
	PasswordHash string
	LastLoginAt  *time.Time
	CreatedAt    time.Time
}

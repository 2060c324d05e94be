package contract

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"querymate-be/internal/entity"
	"querymate-be/internal/repository/specification"
)

// ErrDuplicate is returned when an insert hits a unique index.
var ErrDuplicate = errors.New("record already exists")

// UserRepository stores dashboard accounts. Emails are unique and stored
// lower-cased.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	RecordLogin(ctx context.Context, userId uuid.UUID, at time.Time) error
}

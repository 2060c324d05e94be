package contract

import (
	"context"

	"querymate-be/internal/entity"
	"querymate-be/internal/repository/specification"
)

// ContextDocumentRepository keeps exactly one document per user.
type ContextDocumentRepository interface {
	// Upsert replaces the user's document in a single statement.
	Upsert(ctx context.Context, doc *entity.ContextDocument) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ContextDocument, error)
}

// ApiKeyRepository keeps exactly one active key per user.
type ApiKeyRepository interface {
	Upsert(ctx context.Context, key *entity.ApiKey) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ApiKey, error)
}

type WidgetSettingsRepository interface {
	Upsert(ctx context.Context, settings *entity.WidgetSettings) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.WidgetSettings, error)
}

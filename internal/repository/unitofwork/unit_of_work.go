package unitofwork

import (
	"context"

	"querymate-be/internal/repository/contract"
)

// UnitOfWork groups the repositories of one request. Repositories obtained
// inside Transaction share its database transaction.
type UnitOfWork interface {
	Transaction(ctx context.Context, fn func(tx UnitOfWork) error) error

	UserRepository() contract.UserRepository
	ContextDocumentRepository() contract.ContextDocumentRepository
	ApiKeyRepository() contract.ApiKeyRepository
	WidgetSettingsRepository() contract.WidgetSettingsRepository
}

// RepositoryFactory hands out a fresh unit of work per request.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}

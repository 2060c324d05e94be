package unitofwork

import (
	"context"

	"gorm.io/gorm"

	"querymate-be/internal/repository/contract"
	"querymate-be/internal/repository/implementation"
)

type gormFactory struct {
	db *gorm.DB
}

func NewRepositoryFactory(db *gorm.DB) RepositoryFactory {
	return &gormFactory{db: db}
}

func (f *gormFactory) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return &UnitOfWorkImpl{db: f.db}
}

type UnitOfWorkImpl struct {
	db *gorm.DB
}

// Transaction commits when fn returns nil and rolls back otherwise. Nested
// calls become savepoints.
func (u *UnitOfWorkImpl) Transaction(ctx context.Context, fn func(tx UnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UnitOfWorkImpl{db: tx})
	})
}

func (u *UnitOfWorkImpl) UserRepository() contract.UserRepository {
	return implementation.NewUserRepository(u.db)
}

func (u *UnitOfWorkImpl) ContextDocumentRepository() contract.ContextDocumentRepository {
	return implementation.NewContextDocumentRepository(u.db)
}

func (u *UnitOfWorkImpl) ApiKeyRepository() contract.ApiKeyRepository {
	return implementation.NewApiKeyRepository(u.db)
}

func (u *UnitOfWorkImpl) WidgetSettingsRepository() contract.WidgetSettingsRepository {
	return implementation.NewWidgetSettingsRepository(u.db)
}

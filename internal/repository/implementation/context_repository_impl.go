package implementation

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"querymate-be/internal/entity"
	"querymate-be/internal/mapper"
	"querymate-be/internal/model"
	"querymate-be/internal/repository/contract"
	"querymate-be/internal/repository/specification"
)

// upsertOnUser replaces the row owned by the same user_id.
func upsertOnUser(columns ...string) clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(append(columns, "updated_at")),
	}
}

type ContextDocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ContextMapper
}

func NewContextDocumentRepository(db *gorm.DB) contract.ContextDocumentRepository {
	return &ContextDocumentRepositoryImpl{db: db, mapper: mapper.NewContextMapper()}
}

func (r *ContextDocumentRepositoryImpl) Upsert(ctx context.Context, doc *entity.ContextDocument) error {
	m := r.mapper.DocumentToModel(doc)
	if err := r.db.WithContext(ctx).Clauses(upsertOnUser("content")).Create(m).Error; err != nil {
		return err
	}
	*doc = *r.mapper.DocumentToEntity(m)
	return nil
}

func (r *ContextDocumentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ContextDocument, error) {
	var m model.ContextDocument
	if err := applySpecifications(r.db.WithContext(ctx), specs...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.DocumentToEntity(&m), nil
}

type ApiKeyRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ContextMapper
}

func NewApiKeyRepository(db *gorm.DB) contract.ApiKeyRepository {
	return &ApiKeyRepositoryImpl{db: db, mapper: mapper.NewContextMapper()}
}

func (r *ApiKeyRepositoryImpl) Upsert(ctx context.Context, key *entity.ApiKey) error {
	m := r.mapper.ApiKeyToModel(key)
	if err := r.db.WithContext(ctx).Clauses(upsertOnUser("key", "digest")).Create(m).Error; err != nil {
		return err
	}
	*key = *r.mapper.ApiKeyToEntity(m)
	return nil
}

func (r *ApiKeyRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ApiKey, error) {
	var m model.ApiKey
	if err := applySpecifications(r.db.WithContext(ctx), specs...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ApiKeyToEntity(&m), nil
}

type WidgetSettingsRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ContextMapper
}

func NewWidgetSettingsRepository(db *gorm.DB) contract.WidgetSettingsRepository {
	return &WidgetSettingsRepositoryImpl{db: db, mapper: mapper.NewContextMapper()}
}

func (r *WidgetSettingsRepositoryImpl) Upsert(ctx context.Context, settings *entity.WidgetSettings) error {
	m, err := r.mapper.WidgetSettingsToModel(settings)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Clauses(upsertOnUser("settings")).Create(m).Error; err != nil {
		return err
	}
	out, err := r.mapper.WidgetSettingsToEntity(m)
	if err != nil {
		return err
	}
	*settings = *out
	return nil
}

func (r *WidgetSettingsRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.WidgetSettings, error) {
	var m model.WidgetSettings
	if err := applySpecifications(r.db.WithContext(ctx), specs...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.WidgetSettingsToEntity(&m)
}

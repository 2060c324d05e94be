package mapper

import (
	"encoding/json"

	"gorm.io/datatypes"

	"querymate-be/internal/entity"
	"querymate-be/internal/model"
)

// ContextMapper converts between GORM rows and domain entities for every
// table QueryMate persists.
type ContextMapper struct{}

func NewContextMapper() *ContextMapper {
	return &ContextMapper{}
}

func (m *ContextMapper) UserToEntity(u *model.User) *entity.User {
	if u == nil {
		return nil
	}
	return &entity.User{
		Id:           u.Id,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
	}
}

func (m *ContextMapper) UserToModel(u *entity.User) *model.User {
	if u == nil {
		return nil
	}
	return &model.User{
		Id:           u.Id,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
	}
}

func (m *ContextMapper) DocumentToEntity(d *model.ContextDocument) *entity.ContextDocument {
	if d == nil {
		return nil
	}
	return &entity.ContextDocument{
		Id:        d.Id,
		UserId:    d.UserId,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (m *ContextMapper) DocumentToModel(d *entity.ContextDocument) *model.ContextDocument {
	if d == nil {
		return nil
	}
	return &model.ContextDocument{
		Id:        d.Id,
		UserId:    d.UserId,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (m *ContextMapper) ApiKeyToEntity(k *model.ApiKey) *entity.ApiKey {
	if k == nil {
		return nil
	}
	return &entity.ApiKey{
		Id:        k.Id,
		UserId:    k.UserId,
		Key:       k.Key,
		Digest:    k.Digest,
		CreatedAt: k.CreatedAt,
		UpdatedAt: k.UpdatedAt,
	}
}

func (m *ContextMapper) ApiKeyToModel(k *entity.ApiKey) *model.ApiKey {
	if k == nil {
		return nil
	}
	return &model.ApiKey{
		Id:        k.Id,
		UserId:    k.UserId,
		Key:       k.Key,
		Digest:    k.Digest,
		CreatedAt: k.CreatedAt,
		UpdatedAt: k.UpdatedAt,
	}
}

func (m *ContextMapper) WidgetSettingsToEntity(w *model.WidgetSettings) (*entity.WidgetSettings, error) {
	if w == nil {
		return nil, nil
	}
	settings := make(map[string]string)
	if len(w.Settings) > 0 {
		if err := json.Unmarshal(w.Settings, &settings); err != nil {
			return nil, err
		}
	}
	return &entity.WidgetSettings{
		Id:        w.Id,
		UserId:    w.UserId,
		Settings:  settings,
		UpdatedAt: w.UpdatedAt,
	}, nil
}

func (m *ContextMapper) WidgetSettingsToModel(w *entity.WidgetSettings) (*model.WidgetSettings, error) {
	if w == nil {
		return nil, nil
	}
	settings := w.Settings
	if settings == nil {
		settings = map[string]string{}
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, err
	}
	return &model.WidgetSettings{
		Id:        w.Id,
		UserId:    w.UserId,
		Settings:  datatypes.JSON(raw),
		UpdatedAt: w.UpdatedAt,
	}, nil
}

package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"querymate-be/internal/constant"
	"querymate-be/internal/entity"
	"querymate-be/internal/pkg/logger"
	"querymate-be/internal/repository/specification"
	"querymate-be/internal/repository/unitofwork"
	"querymate-be/pkg/keylock"
)

type IWidgetSettingsService interface {
	GetSettings(ctx context.Context, userId uuid.UUID) (map[string]string, error)
	// UpdateSettings replaces the stored blob; last write wins.
	UpdateSettings(ctx context.Context, userId uuid.UUID, settings map[string]string) (map[string]string, error)
}

type widgetSettingsService struct {
	uowFactory unitofwork.RepositoryFactory
	locker     *keylock.Locker
	logger     logger.ILogger
}

func NewWidgetSettingsService(uowFactory unitofwork.RepositoryFactory, locker *keylock.Locker, logger logger.ILogger) IWidgetSettingsService {
	return &widgetSettingsService{
		uowFactory: uowFactory,
		locker:     locker,
		logger:     logger,
	}
}

// WithDefaults overlays stored values on the default settings.
func WithDefaults(stored map[string]string) map[string]string {
	out := make(map[string]string, len(constant.DefaultWidgetSettings)+len(stored))
	for k, v := range constant.DefaultWidgetSettings {
		out[k] = v
	}
	for k, v := range stored {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func (s *widgetSettingsService) GetSettings(ctx context.Context, userId uuid.UUID) (map[string]string, error) {
	found, err := s.uowFactory.NewUnitOfWork(ctx).WidgetSettingsRepository().FindOne(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, fmt.Errorf("load widget settings: %w", err)
	}
	if found == nil {
		return WithDefaults(nil), nil
	}
	return WithDefaults(found.Settings), nil
}

func (s *widgetSettingsService) UpdateSettings(ctx context.Context, userId uuid.UUID, settings map[string]string) (map[string]string, error) {
	unlock, err := s.locker.Lock(ctx, keylock.Key(keylock.ResourceWidget, userId.String()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	record := &entity.WidgetSettings{
		Id:       uuid.New(),
		UserId:   userId,
		Settings: settings,
	}
	if err := s.uowFactory.NewUnitOfWork(ctx).WidgetSettingsRepository().Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("save widget settings: %w", err)
	}

	s.logger.Info(constant.LogModuleWidget, "Widget settings updated", map[string]interface{}{
		"user_id": userId.String(),
		"keys":    len(settings),
	})
	return WithDefaults(record.Settings), nil
}

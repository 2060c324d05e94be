package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"querymate-be/internal/constant"
	"querymate-be/internal/dto"
	"querymate-be/internal/entity"
	"querymate-be/internal/pkg/logger"
	"querymate-be/internal/pkg/mailer"
	"querymate-be/internal/repository/specification"
	"querymate-be/internal/repository/unitofwork"
	"querymate-be/pkg/apikey"
	"querymate-be/pkg/events"
	"querymate-be/pkg/keylock"
)

type IApiKeyService interface {
	GetApiKey(ctx context.Context, userId uuid.UUID) (*dto.ApiKeyResponse, error)
	// RotateApiKey issues a new key; the previous one stops working at once.
	RotateApiKey(ctx context.Context, userId uuid.UUID) (*dto.ApiKeyResponse, error)
	// Resolve maps a presented key to its owner.
	Resolve(ctx context.Context, key string) (uuid.UUID, error)
}

type apiKeyService struct {
	uowFactory   unitofwork.RepositoryFactory
	locker       *keylock.Locker
	publisher    events.Publisher
	emailService mailer.IEmailService
	logger       logger.ILogger
	baseURL      string
}

func NewApiKeyService(
	uowFactory unitofwork.RepositoryFactory,
	locker *keylock.Locker,
	publisher events.Publisher,
	emailService mailer.IEmailService,
	logger logger.ILogger,
	baseURL string,
) IApiKeyService {
	return &apiKeyService{
		uowFactory:   uowFactory,
		locker:       locker,
		publisher:    publisher,
		emailService: emailService,
		logger:       logger,
		baseURL:      strings.TrimRight(baseURL, "/"),
	}
}

// EmbedCode renders the widget script tag for key.
func EmbedCode(baseURL, key string) string {
	if key == "" {
		key = constant.ApiKeyPlaceholder
	}
	return fmt.Sprintf(constant.EmbedCodeTemplate, strings.TrimRight(baseURL, "/"), key)
}

func (s *apiKeyService) GetApiKey(ctx context.Context, userId uuid.UUID) (*dto.ApiKeyResponse, error) {
	key, err := s.uowFactory.NewUnitOfWork(ctx).ApiKeyRepository().FindOne(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, fmt.Errorf("load api key: %w", err)
	}
	res := &dto.ApiKeyResponse{}
	if key != nil {
		res.ApiKey = key.Key
	}
	res.EmbedCode = EmbedCode(s.baseURL, res.ApiKey)
	return res, nil
}

func (s *apiKeyService) RotateApiKey(ctx context.Context, userId uuid.UUID) (*dto.ApiKeyResponse, error) {
	unlock, err := s.locker.Lock(ctx, keylock.Key(keylock.ResourceApiKey, userId.String()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	previous, err := uow.ApiKeyRepository().FindOne(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, fmt.Errorf("load api key: %w", err)
	}

	raw, err := apikey.Derive(user.Email)
	if err != nil {
		return nil, err
	}
	key := &entity.ApiKey{
		Id:     uuid.New(),
		UserId: userId,
		Key:    raw,
		Digest: apikey.Digest(user.Email),
	}
	if err := uow.ApiKeyRepository().Upsert(ctx, key); err != nil {
		return nil, fmt.Errorf("save api key: %w", err)
	}

	payload := map[string]interface{}{
		"user_id": userId.String(),
		"digest":  key.Digest,
	}
	if err := s.publisher.Publish(ctx, events.NewEvent(events.ApiKeyRotated, payload)); err != nil {
		s.logger.Warn(constant.LogModuleApiKey, "Failed to publish rotation event", map[string]interface{}{
			"user_id": userId.String(),
			"error":   err.Error(),
		})
	}

	s.logger.Info(constant.LogModuleApiKey, "Api key issued", map[string]interface{}{
		"user_id": userId.String(),
		"digest":  key.Digest,
		"rotated": previous != nil,
	})

	if previous != nil {
		email, digest := user.Email, key.Digest
		go func() {
			if err := s.emailService.SendApiKeyRotated(email, digest, time.Now()); err != nil {
				s.logger.Warn(constant.LogModuleApiKey, "Failed to send rotation notice", map[string]interface{}{
					"user_id": userId.String(),
					"error":   err.Error(),
				})
			}
		}()
	}

	return &dto.ApiKeyResponse{
		ApiKey:    key.Key,
		EmbedCode: EmbedCode(s.baseURL, key.Key),
	}, nil
}

func (s *apiKeyService) Resolve(ctx context.Context, key string) (uuid.UUID, error) {
	if _, _, ok := apikey.Parse(key); !ok {
		return uuid.Nil, ErrInvalidApiKey
	}
	found, err := s.uowFactory.NewUnitOfWork(ctx).ApiKeyRepository().FindOne(ctx, specification.ByApiKey{Key: key})
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve api key: %w", err)
	}
	if found == nil {
		return uuid.Nil, ErrInvalidApiKey
	}
	return found.UserId, nil
}

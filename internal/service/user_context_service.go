package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"querymate-be/internal/constant"
	"querymate-be/internal/dto"
	"querymate-be/internal/entity"
	"querymate-be/internal/pkg/logger"
	"querymate-be/internal/repository/specification"
	"querymate-be/internal/repository/unitofwork"
	"querymate-be/pkg/events"
	"querymate-be/pkg/keylock"
)

type IUserContextService interface {
	GetContext(ctx context.Context, userId uuid.UUID) (*dto.UserContextResponse, error)
	// SaveContext replaces the user's committed document.
	SaveContext(ctx context.Context, userId uuid.UUID, content string) (*dto.UserContextResponse, error)
	// HasContext reports whether a document has been committed.
	HasContext(ctx context.Context, userId uuid.UUID) (bool, error)
}

type userContextService struct {
	uowFactory unitofwork.RepositoryFactory
	locker     *keylock.Locker
	publisher  events.Publisher
	logger     logger.ILogger
	onCommit   []func(userId string)
}

// NewUserContextService builds the service. Each onCommit hook runs
// synchronously after a document is committed, before SaveContext returns.
func NewUserContextService(
	uowFactory unitofwork.RepositoryFactory,
	locker *keylock.Locker,
	publisher events.Publisher,
	logger logger.ILogger,
	onCommit ...func(userId string),
) IUserContextService {
	return &userContextService{
		uowFactory: uowFactory,
		locker:     locker,
		publisher:  publisher,
		logger:     logger,
		onCommit:   onCommit,
	}
}

func (s *userContextService) GetContext(ctx context.Context, userId uuid.UUID) (*dto.UserContextResponse, error) {
	var (
		doc *entity.ContextDocument
		key *entity.ApiKey
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		doc, err = s.uowFactory.NewUnitOfWork(gctx).ContextDocumentRepository().FindOne(gctx, specification.UserOwnedBy{UserID: userId})
		return err
	})
	g.Go(func() error {
		var err error
		key, err = s.uowFactory.NewUnitOfWork(gctx).ApiKeyRepository().FindOne(gctx, specification.UserOwnedBy{UserID: userId})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load user context: %w", err)
	}

	res := &dto.UserContextResponse{}
	if doc != nil {
		res.ContextData = doc.Content
	}
	if key != nil {
		res.ApiKey = key.Key
	}
	return res, nil
}

func (s *userContextService) SaveContext(ctx context.Context, userId uuid.UUID, content string) (*dto.UserContextResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContext
	}

	unlock, err := s.locker.Lock(ctx, keylock.Key(keylock.ResourceDocument, userId.String()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc := &entity.ContextDocument{
		Id:      uuid.New(),
		UserId:  userId,
		Content: content,
	}
	if err := uow.ContextDocumentRepository().Upsert(ctx, doc); err != nil {
		return nil, fmt.Errorf("save context document: %w", err)
	}

	s.logger.Info(constant.LogModuleUserContext, "Context document committed", map[string]interface{}{
		"user_id": userId.String(),
		"length":  len(content),
	})

	for _, hook := range s.onCommit {
		hook(userId.String())
	}

	if err := s.publisher.Publish(ctx, events.NewEvent(events.ContextCommitted, map[string]interface{}{
		"user_id": userId.String(),
	})); err != nil {
		s.logger.Warn(constant.LogModuleUserContext, "Failed to publish context event", map[string]interface{}{
			"user_id": userId.String(),
			"error":   err.Error(),
		})
	}

	key, err := uow.ApiKeyRepository().FindOne(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, fmt.Errorf("load api key: %w", err)
	}

	res := &dto.UserContextResponse{ContextData: doc.Content}
	if key != nil {
		res.ApiKey = key.Key
	}
	return res, nil
}

func (s *userContextService) HasContext(ctx context.Context, userId uuid.UUID) (bool, error) {
	doc, err := s.uowFactory.NewUnitOfWork(ctx).ContextDocumentRepository().FindOne(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return false, err
	}
	return doc != nil && doc.Content != "", nil
}

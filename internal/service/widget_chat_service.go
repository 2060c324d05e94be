package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"querymate-be/internal/constant"
	"querymate-be/internal/pkg/logger"
	"querymate-be/internal/repository/specification"
	"querymate-be/internal/repository/unitofwork"
	"querymate-be/pkg/llm"
)

type IWidgetChatService interface {
	Chat(ctx context.Context, key, message string) (string, error)
	Settings(ctx context.Context, key string) (map[string]string, error)
	InvalidateUser(userId string)
}

type widgetChatService struct {
	uowFactory unitofwork.RepositoryFactory
	apiKeys    IApiKeyService
	settings   IWidgetSettingsService
	provider   llm.LLMProvider
	cache      *cache.Cache
	timeout    time.Duration
	logger     logger.ILogger
}

func NewWidgetChatService(
	uowFactory unitofwork.RepositoryFactory,
	apiKeys IApiKeyService,
	settings IWidgetSettingsService,
	provider llm.LLMProvider,
	cacheTTL time.Duration,
	timeout time.Duration,
	logger logger.ILogger,
) IWidgetChatService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &widgetChatService{
		uowFactory: uowFactory,
		apiKeys:    apiKeys,
		settings:   settings,
		provider:   provider,
		cache:      cache.New(cacheTTL, 2*cacheTTL),
		timeout:    timeout,
		logger:     logger,
	}
}

// document returns the committed document of userId. Only documents are
// cached; api keys are checked against the store on every request so a
// rotated key stops working as soon as the rotation commits.
func (s *widgetChatService) document(ctx context.Context, userId uuid.UUID) (string, error) {
	if x, found := s.cache.Get(userId.String()); found {
		return x.(string), nil
	}

	doc, err := s.uowFactory.NewUnitOfWork(ctx).ContextDocumentRepository().FindOne(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return "", fmt.Errorf("load context document: %w", err)
	}

	content := ""
	if doc != nil {
		content = doc.Content
	}
	s.cache.Set(userId.String(), content, cache.DefaultExpiration)
	return content, nil
}

// BuildWidgetPrompt grounds the question in the business document.
func BuildWidgetPrompt(document, question string) string {
	business := businessNameOf(document)
	if strings.TrimSpace(document) == "" {
		document = constant.WidgetNoContextMessage
	}
	return fmt.Sprintf(constant.WidgetChatPromptTemplate, business, business, document, question)
}

func businessNameOf(document string) string {
	for _, line := range strings.Split(document, "\n") {
		if name, ok := strings.CutPrefix(strings.TrimSpace(line), "Business Name:"); ok && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name)
		}
	}
	return "this business"
}

func (s *widgetChatService) Chat(ctx context.Context, key, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	userId, err := s.apiKeys.Resolve(ctx, key)
	if err != nil {
		return "", err
	}
	document, err := s.document(ctx, userId)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.provider.Generate(ctx, BuildWidgetPrompt(document, message), llm.WithTemperature(0.3))
	if err != nil {
		s.logger.Warn(constant.LogModuleWidget, "Widget chat upstream failed", map[string]interface{}{
			"user_id": userId.String(),
			"error":   err.Error(),
		})
		return fmt.Sprintf(constant.WidgetChatUnavailableReply, err.Error()), nil
	}
	return strings.TrimSpace(reply), nil
}

func (s *widgetChatService) Settings(ctx context.Context, key string) (map[string]string, error) {
	userId, err := s.apiKeys.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.settings.GetSettings(ctx, userId)
}

// InvalidateUser drops the cached document of userId.
func (s *widgetChatService) InvalidateUser(userId string) {
	if userId != "" {
		s.cache.Delete(userId)
	}
}

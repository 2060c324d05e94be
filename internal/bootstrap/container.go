package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"querymate-be/internal/config"
	"querymate-be/internal/constant"
	"querymate-be/internal/controller"
	"querymate-be/internal/pkg/logger"
	"querymate-be/internal/pkg/mailer"
	"querymate-be/internal/repository/contract"
	"querymate-be/internal/repository/memory"
	"querymate-be/internal/repository/redisstore"
	"querymate-be/internal/repository/unitofwork"
	"querymate-be/internal/service"
	"querymate-be/pkg/contextbuilder"
	"querymate-be/pkg/events"
	"querymate-be/pkg/keylock"
	"querymate-be/pkg/llm/factory"
	pktNats "querymate-be/pkg/nats"
)

type Container struct {
	// Controllers
	AuthController           controller.IAuthController
	ContextSessionController controller.IContextSessionController
	UserController           controller.IUserController
	WidgetController         controller.IWidgetController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger

	closers []func()
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	if cfg.Keys.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	c := &Container{}

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.IsProduction())
	c.Logger = sysLogger
	locker := keylock.New()

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Sender,
		cfg.App.BaseURL,
	)

	// 2. Event Bus: in-process channel, plus NATS when configured
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	publisher := events.MultiPublisher{events.NewChannelPublisher(pubSub, cfg.Events.Topic)}
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn(constant.LogModuleServer, "NATS publisher unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			publisher = append(publisher, natsPub)
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn(constant.LogModuleServer, "NATS subscriber unavailable", map[string]interface{}{"error": err.Error()})
			natsSub = nil
		} else {
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	// 3. Session store
	sessions, err := newSessionStore(ctx, cfg, c)
	if err != nil {
		return nil, err
	}

	// 4. Language model
	llmProvider, err := factory.NewLLMProvider(ctx, factory.ProviderConfig{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  cfg.Ai.OllamaBaseURL,
		APIKey:   providerKey(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	extractorOpts := []contextbuilder.ExtractorOption{
		contextbuilder.WithTimeout(cfg.Ai.ExtractTimeout),
		contextbuilder.WithHistoryLimit(cfg.Session.HistoryLimit),
	}
	if cfg.App.LLMLogFilePath != "" {
		exchangeLog := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)
		extractorOpts = append(extractorOpts, contextbuilder.WithExchangeLog(exchangeLog))
		c.closers = append(c.closers, func() { _ = exchangeLog.Sync() })
	}
	extractor := contextbuilder.NewExtractor(llmProvider, sysLogger, extractorOpts...)
	policy := contextbuilder.DefaultCompletionPolicy()
	policy.TurnThreshold = cfg.Session.TurnThreshold

	// 5. Services
	authService := service.NewAuthService(uowFactory, cfg.Keys.JWTSecret, sysLogger)
	apiKeyService := service.NewApiKeyService(uowFactory, locker, publisher, emailService, sysLogger, cfg.App.BaseURL)
	widgetSettingsService := service.NewWidgetSettingsService(uowFactory, locker, sysLogger)
	widgetChatService := service.NewWidgetChatService(
		uowFactory,
		apiKeyService,
		widgetSettingsService,
		llmProvider,
		cfg.Events.WidgetCacheTTL,
		cfg.Ai.WidgetTimeout,
		sysLogger,
	)
	userContextService := service.NewUserContextService(uowFactory, locker, publisher, sysLogger, widgetChatService.InvalidateUser)
	sessionService := service.NewContextSessionService(sessions, userContextService, extractor, policy, locker, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Events.Topic, natsSub, widgetChatService, sysLogger)

	// 6. Controllers
	c.AuthController = controller.NewAuthController(authService)
	c.ContextSessionController = controller.NewContextSessionController(sessionService)
	c.UserController = controller.NewUserController(userContextService, apiKeyService, widgetSettingsService)
	c.WidgetController = controller.NewWidgetController(widgetChatService)

	return c, nil
}

func newSessionStore(ctx context.Context, cfg *config.Config, c *Container) (contract.ContextSessionRepository, error) {
	if cfg.Session.Store != "redis" {
		log.Printf("[INFO] Using in-memory session store (ttl %s)", cfg.Session.TTL)
		return memory.NewSessionRepository(cfg.Session.TTL), nil
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	c.closers = append(c.closers, func() { _ = rdb.Close() })

	log.Printf("[INFO] Using redis session store (ttl %s)", cfg.Session.TTL)
	return redisstore.NewSessionRepository(rdb, cfg.Session.TTL), nil
}

func providerKey(cfg *config.Config) string {
	if cfg.Ai.LLMProvider == "huggingface" {
		return cfg.Keys.HuggingFace
	}
	return cfg.Keys.GoogleGemini
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}

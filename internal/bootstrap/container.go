package bootstrap

import (
	"context"
	"log"

	"mnp-assistant-be/internal/config"
	"mnp-assistant-be/internal/controller"
	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/handler"
	"mnp-assistant-be/internal/pkg/logger"
	"mnp-assistant-be/internal/pkg/mailer"
	"mnp-assistant-be/internal/repository/implementation"
	"mnp-assistant-be/internal/repository/memory"
	"mnp-assistant-be/internal/repository/unitofwork"
	"mnp-assistant-be/internal/service"
	"mnp-assistant-be/internal/websocket"
	"mnp-assistant-be/pkg/conversation"
	"mnp-assistant-be/pkg/escalation"
	"mnp-assistant-be/pkg/events"
	"mnp-assistant-be/pkg/llm"
	"mnp-assistant-be/pkg/llm/factory"
	"mnp-assistant-be/pkg/lock"
	"mnp-assistant-be/pkg/metrics"
	pktNats "mnp-assistant-be/pkg/nats"
	"mnp-assistant-be/pkg/workflow"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	sessionHistoryTurns = 20
	workflowLockPrefix  = "mnp:workflow:"
)

type Container struct {
	// Controllers
	ChatController       controller.IChatController
	WorkflowController   controller.IWorkflowController
	EscalationController controller.IEscalationController
	KnowledgeController  controller.IKnowledgeController
	RealtimeHandler      *handler.RealtimeHandler

	// Background services (started by main)
	ConsumerService     service.IConsumerService
	NotificationService *service.NotificationService
	KnowledgeService    service.IKnowledgeService
	WebSocketHub        *websocket.Hub

	Metrics *metrics.Metrics
	Logger  logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	appMetrics := metrics.New()

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
		cfg.SMTP.SupportDesk,
		cfg.SMTP.DashboardURL,
	)

	// 2. Embedding job bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)

	// 3. AI providers
	embeddingProvider := NewEmbeddingProvider(cfg)

	llmBaseURL := cfg.Ai.LLMBaseURL
	if llmBaseURL == "" {
		llmBaseURL = cfg.Ai.OllamaBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, llmBaseURL, cfg.Keys.HuggingFace)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	retryCfg := llm.DefaultRetryConfig()
	if cfg.Ai.RetryAttempts > 0 {
		retryCfg.Attempts = uint64(cfg.Ai.RetryAttempts)
	}
	retryCfg.AttemptTimeout = cfg.Ai.CompletionTimeout
	retryCfg.OnRetry = func(attempt uint64, err error) {
		appMetrics.ObserveCompletionRetry()
		sysLogger.Warn("LLM", "Retrying completion", map[string]interface{}{"attempt": attempt, "error": err})
	}
	completer := llm.NewCompleter(llm.NewRetryingProvider(llmProvider, retryCfg))

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	redisUp := true
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Using in-process locks and a single-node hub", err)
		redisUp = false
	}

	var locker lock.Locker = lock.NewKeyedMutex()
	var hubRedis *redis.Client
	if redisUp {
		locker = lock.NewRedisLocker(rdb, workflowLockPrefix, cfg.Workflow.LockTTL)
		hubRedis = rdb
	}

	hubLogger := logger.NewIsolatedLogger(cfg.App.HubLogFilePath)
	wsHub := websocket.NewHub(hubRedis, hubLogger)

	var eventPublisher events.Publisher
	if natsPub != nil {
		eventPublisher = natsPub
	}
	notifier := service.NewEventNotifier(
		eventPublisher,
		wsHub,
		emailService,
		entity.TicketPriority(cfg.Escalation.AlertPriorityMinimum),
		sysLogger,
	)

	// 5. Domain components
	retriever := NewRetriever(db, cfg, embeddingProvider, sysLogger, appMetrics)

	registry, err := LoadWorkflows(cfg.Workflow.DefinitionDir)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load workflow definitions: %v", err)
	}
	engine := workflow.NewEngine(
		registry,
		implementation.NewWorkflowProgressRepository(db),
		locker,
		sysLogger,
		workflow.WithNotifier(notifier),
		workflow.WithMetrics(appMetrics),
	)

	arbiter := escalation.NewArbiter(
		escalation.Thresholds{
			MinConfidence:      cfg.Escalation.ConfidenceThreshold,
			RepeatCount:        cfg.Escalation.RepeatCount,
			RepeatSimilarity:   cfg.Escalation.SimilarityThreshold,
			NegativeHits:       cfg.Escalation.NegativeHits,
			MaxSessionDuration: cfg.Escalation.MaxSessionDuration,
		},
		implementation.NewEscalationTicketRepository(db),
		sysLogger,
		escalation.WithNotifier(notifier),
		escalation.WithMetrics(appMetrics),
	)

	orchestrator := conversation.NewOrchestrator(
		retriever,
		engine,
		completer,
		arbiter,
		conversation.Config{
			DefaultWorkflow: cfg.Workflow.DefaultWorkflow,
			Completion: llm.CompletionOptions{
				MaxTokens:   cfg.Ai.MaxTokens,
				Temperature: cfg.Ai.Temperature,
			},
			HistoryTurns: sessionHistoryTurns,
		},
		sysLogger,
		appMetrics,
	)

	// 6. Services
	sessionRepo := memory.NewSessionRepository(cfg.App.SessionCacheTTL, sessionHistoryTurns)

	publisherService := service.NewPublisherService(cfg.App.EmbedTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.App.EmbedTopic,
		uowFactory,
		embeddingProvider,
		cfg.Ai.EmbeddingTimeout,
		sysLogger,
	)

	chatService := service.NewChatService(uowFactory, orchestrator, sessionRepo, sysLogger)
	workflowService := service.NewWorkflowService(uowFactory, engine)
	escalationService := service.NewEscalationService(uowFactory, arbiter)
	knowledgeService := service.NewKnowledgeService(uowFactory, publisherService, retriever, sysLogger)

	var notificationService *service.NotificationService
	if natsSub != nil {
		notificationService = service.NewNotificationService(natsSub, wsHub, hubLogger)
	}

	c := &Container{
		ChatController:       controller.NewChatController(chatService),
		WorkflowController:   controller.NewWorkflowController(workflowService),
		EscalationController: controller.NewEscalationController(escalationService),
		KnowledgeController:  controller.NewKnowledgeController(knowledgeService),
		RealtimeHandler:      handler.NewRealtimeHandler(chatService, wsHub, cfg.App.JWTSecret, hubLogger),

		ConsumerService:     consumerService,
		NotificationService: notificationService,
		KnowledgeService:    knowledgeService,
		WebSocketHub:        wsHub,

		Metrics: appMetrics,
		Logger:  sysLogger,
	}

	c.closers = append(c.closers, func() { _ = pubSub.Close() })
	if natsPub != nil {
		c.closers = append(c.closers, natsPub.Close)
	}
	if natsSub != nil {
		c.closers = append(c.closers, natsSub.Close)
	}
	c.closers = append(c.closers,
		func() { _ = rdb.Close() },
		func() { _ = hubLogger.Sync() },
		func() { _ = sysLogger.Sync() },
	)
	return c
}

// Close flushes the loggers and releases the bus and redis connections.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

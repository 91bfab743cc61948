package bootstrap

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"tradejournal/internal/adapters/ai"
	"tradejournal/internal/adapters/config"
	errnoop "tradejournal/internal/adapters/errors/noop"
	"tradejournal/internal/adapters/errors/sentry"
	"tradejournal/internal/adapters/kafka"
	pgclient "tradejournal/internal/adapters/postgres"
	redisclient "tradejournal/internal/adapters/redis"
	telegram "tradejournal/internal/adapters/telegram"
	"tradejournal/internal/api"
	"tradejournal/internal/api/health"
	"tradejournal/internal/domain/conversation"
	"tradejournal/internal/domain/trade"
	"tradejournal/internal/domain/user"
	"tradejournal/internal/events"
	"tradejournal/internal/metrics"
	pgrepo "tradejournal/internal/repository/postgres"
	redisrepo "tradejournal/internal/repository/redis"
	"tradejournal/internal/services/analytics"
	"tradejournal/internal/services/coaching"
	"tradejournal/internal/services/dialogue"
	"tradejournal/internal/services/ledger"
	menusessionsvc "tradejournal/internal/services/menu_session"
	"tradejournal/internal/workers"
	"tradejournal/internal/workers/reports"
	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
	tg "tradejournal/pkg/telegram"
	"tradejournal/pkg/telegram/adapters/tgbotapi"
	"tradejournal/pkg/templates"
)

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration and initializes logger
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// MustInitInfrastructure connects Postgres and Redis and applies the schema
func (c *Container) MustInitInfrastructure() {
	var err error

	c.Log.Info("Connecting to PostgreSQL...")
	c.PG, err = pgclient.NewClient(c.Config.Postgres)
	if err != nil {
		c.Log.Fatalf("failed to connect postgres: %v", err)
	}
	c.Log.Info("✓ PostgreSQL connected")

	if c.Config.Postgres.Migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.PG.Migrate(ctx); err != nil {
			c.Log.Fatalf("failed to apply schema: %v", err)
		}
		c.Log.Info("✓ Schema applied")
	}

	c.Log.Info("Connecting to Redis...")
	c.Redis, err = redisclient.NewClient(c.Config.Redis)
	if err != nil {
		c.Log.Fatalf("failed to connect redis: %v", err)
	}
	c.Log.Info("✓ Redis connected")

	metrics.Init()
	metrics.RegisterCollector(metrics.NewJournalCollector(c.Log, c.PG.DB()))
}

// ========================================
// Phase 3: Repositories
// ========================================

// MustInitRepositories builds the storage layer
func (c *Container) MustInitRepositories() {
	db := c.PG.DB()

	c.Repos.User = pgrepo.NewUserRepository(db)
	c.Repos.Trade = pgrepo.NewTradeRepository(db)
	c.Repos.Therapy = pgrepo.NewTherapyRepository(db)
	c.Repos.Report = pgrepo.NewWeeklyReportRepository(db)
	c.Repos.State = provideStateStore(c.Config, c.PG, c.Redis, c.Log)
	c.Repos.MenuSessions = redisrepo.NewMenuSessionRepository(c.Redis.Client())

	c.Log.Info("✓ Repositories initialized")
}

// ========================================
// Phase 4: External Adapters
// ========================================

// MustInitAdapters sets up Kafka when brokers are configured
func (c *Container) MustInitAdapters() {
	if !c.Config.Kafka.Enabled() {
		c.Log.Info("Kafka not configured, domain events are dropped")
		c.Adapters.Events = events.NoopPublisher{}
		return
	}

	c.Adapters.KafkaProducer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers: c.Config.Kafka.Brokers,
	})
	c.Adapters.Events = events.NewKafkaPublisher(c.Adapters.KafkaProducer, c.Log)
	c.Log.Infow("✓ Kafka producer initialized", "brokers", c.Config.Kafka.Brokers)
}

// ========================================
// Phase 5: Services
// ========================================

// MustInitServices builds domain and coaching services. The dialogue engine
// is built with the application layer because it needs the bot.
func (c *Container) MustInitServices() {
	c.Services.User = user.NewService(c.Repos.User)
	c.Services.Trade = trade.NewService(c.Repos.Trade)
	c.Services.Ledger = ledger.NewService(pgrepo.NewUnitOfWork(c.PG.DB()), c.Services.User, c.Services.Trade, c.Log)
	c.Services.Analytics = analytics.NewService(c.Services.Trade, c.Repos.Report, c.Log)
	c.Services.MenuSession = menusessionsvc.NewService(c.Repos.MenuSessions, c.Config.State.MenuSessionTTL, c.Log)
	c.Services.Coach = provideCoach(c.Config, c.Log)

	c.Log.Info("✓ Services initialized")
}

// ========================================
// Phase 6: Application Layer
// ========================================

// MustInitApplication wires the bot, the dialogue engine and HTTP
func (c *Container) MustInitApplication() {
	bot := provideTelegramBot(c.Config, c.Log)
	c.Application.TelegramBot = bot

	c.Application.TelegramNotificationService = telegram.NewNotificationService(bot, templates.Get(), c.Log)

	c.Services.Dialogue = dialogue.NewEngine(dialogue.Deps{
		Users:     c.Services.User,
		Trades:    c.Services.Trade,
		Ledger:    c.Services.Ledger,
		States:    c.Repos.State,
		Therapy:   c.Repos.Therapy,
		Analytics: c.Services.Analytics,
		Coach:     c.Services.Coach,
		Cursor:    c.Services.MenuSession,
		Deliverer: c.Application.TelegramNotificationService,
		Events:    c.Adapters.Events,
	}, dialogue.Config{
		AdminIDs:         c.Config.Telegram.AdminIDs,
		BroadcastLimiter: provideBroadcastLimiter(c.Config),
	}, c.Log)

	c.Application.TelegramHandler = telegram.NewHandler(bot, c.Services.Dialogue, 0, c.Log)

	if c.Config.Telegram.WebhookURL != "" {
		c.Application.TelegramWebhook = tg.NewWebhookHandler(
			c.Application.TelegramHandler.HandleUpdate,
			c.Config.Telegram.WebhookSecret,
			c.Log,
		)
		mustConfigureWebhook(bot, c.Config, c.Log)
	} else {
		if err := bot.DeleteWebhook(false); err != nil {
			c.Log.Warnw("Failed to delete webhook before polling", "error", err)
		}
		bot.SetHandler(c.Application.TelegramHandler.HandleUpdate)
		c.Log.Info("✓ Telegram polling mode enabled")
	}

	c.Application.HealthHandler = health.New(c.Log, c.Config.App.Name, c.Config.App.Version,
		health.PostgresCheck(c.PG.DB()),
		health.RedisCheck(c.Redis.Client()),
	)

	serverCfg := api.ServerConfig{
		Port:        c.Config.HTTP.Port,
		ServiceName: c.Config.App.Name,
		Version:     c.Config.App.Version,
	}
	// a typed nil would register the route
	if c.Application.TelegramWebhook != nil {
		serverCfg.TelegramWebhook = c.Application.TelegramWebhook
	}
	c.Application.HTTPServer = api.NewServer(serverCfg, c.Application.HealthHandler, c.Log)

	c.Log.Info("✓ Application layer initialized")
}

// ========================================
// Phase 7: Background Processing
// ========================================

// MustInitBackground registers scheduled workers
func (c *Container) MustInitBackground() {
	c.Background.WorkerScheduler = workers.NewScheduler(c.Log)

	weekly := reports.NewWeeklyReport(
		c.Services.User,
		c.Services.Analytics,
		c.Application.TelegramNotificationService,
		provideBroadcastLimiter(c.Config),
		c.Config.Workers.WeeklyReportSchedule,
		c.Config.Workers.WeeklyReportEnabled,
	)
	if err := c.Background.WorkerScheduler.RegisterWorker(weekly); err != nil {
		c.Log.Fatalf("failed to register weekly report worker: %v", err)
	}

	c.Log.Info("✓ Background workers initialized")
}

// ========================================
// Providers
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(sentry.Options{
		DSN:         cfg.ErrorTracking.SentryDSN,
		Environment: cfg.ErrorTracking.Environment,
		Release:     cfg.App.Version,
	})
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("✓ Error tracking initialized (Sentry)")
	return tracker
}

// provideStateStore picks the conversation state backend
func provideStateStore(cfg *config.Config, pg *pgclient.Client, rdb *redisclient.Client, log *logger.Logger) conversation.Store {
	if cfg.State.Backend == "redis" {
		log.Info("✓ Conversation state stored in Redis")
		return redisrepo.NewConversationStateRepository(rdb.Client())
	}
	log.Info("✓ Conversation state stored in PostgreSQL")
	return pgrepo.NewConversationStateRepository(pg.DB())
}

// provideCoach builds the coaching adapter; without credentials it answers
// with canned text
func provideCoach(cfg *config.Config, log *logger.Logger) *coaching.Coach {
	retry := coaching.RetryConfig{
		MaxAttempts:  cfg.Coaching.MaxAttempts,
		InitialDelay: cfg.Coaching.InitialBackoff,
		MaxDelay:     cfg.Coaching.MaxBackoff,
		Multiplier:   2.0,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	completer, err := ai.BuildCompleter(ctx, cfg.AI)
	if err != nil {
		log.Warnw("Failed to build AI completer, using canned replies", "error", err)
		completer = nil
	}
	if completer == nil {
		log.Info("Coaching runs without an AI backend")
	} else {
		log.Infow("✓ Coaching backend ready", "provider", cfg.AI.Provider)
	}

	return coaching.NewCoach(completer, retry, log)
}

func provideBroadcastLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.Broadcast.Rate <= 0 {
		return nil
	}
	burst := cfg.Broadcast.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.Broadcast.Rate), burst)
}

func provideTelegramBot(cfg *config.Config, log *logger.Logger) *tgbotapi.Bot {
	log.Info("Initializing Telegram bot...")

	bot, err := tgbotapi.NewBot(tgbotapi.Config{
		Token:          cfg.Telegram.BotToken,
		Debug:          cfg.Telegram.Debug,
		Timeout:        60,
		WebhookMode:    cfg.Telegram.WebhookURL != "",
		RateLimitRate:  cfg.Telegram.RateLimit,
		RateLimitBurst: cfg.Telegram.RateBurst,
	}, log)
	if err != nil {
		log.Fatalf("Failed to create Telegram bot: %v", err)
	}

	log.Info("✓ Telegram bot initialized")
	return bot
}

func mustConfigureWebhook(bot *tgbotapi.Bot, cfg *config.Config, log *logger.Logger) {
	log.Infow("Configuring Telegram webhook...", "url", cfg.Telegram.WebhookURL)

	if err := bot.SetWebhook(cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
		log.Fatalf("Failed to set Telegram webhook: %v", err)
	}

	if info, err := bot.GetWebhookInfo(); err == nil {
		log.Infow("✓ Telegram webhook configured",
			"url", info.URL,
			"pending_updates", info.PendingUpdateCount,
		)
	}
}

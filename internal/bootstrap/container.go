package bootstrap

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"tradejournal/internal/adapters/config"
	"tradejournal/internal/adapters/kafka"
	pgclient "tradejournal/internal/adapters/postgres"
	redisclient "tradejournal/internal/adapters/redis"
	telegram "tradejournal/internal/adapters/telegram"
	"tradejournal/internal/api"
	"tradejournal/internal/api/health"
	"tradejournal/internal/domain/conversation"
	"tradejournal/internal/domain/menu_session"
	"tradejournal/internal/domain/report"
	"tradejournal/internal/domain/therapy"
	"tradejournal/internal/domain/trade"
	"tradejournal/internal/domain/user"
	"tradejournal/internal/events"
	"tradejournal/internal/services/analytics"
	"tradejournal/internal/services/coaching"
	"tradejournal/internal/services/dialogue"
	"tradejournal/internal/services/ledger"
	menusessionsvc "tradejournal/internal/services/menu_session"
	"tradejournal/internal/workers"
	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
	tg "tradejournal/pkg/telegram"
	"tradejournal/pkg/telegram/adapters/tgbotapi"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer (Data stores)
	PG    *pgclient.Client
	Redis *redisclient.Client

	Repos       *Repositories
	Services    *Services
	Adapters    *Adapters
	Application *Application
	Background  *Background

	Lifecycle *Lifecycle
}

// Repositories groups all domain repositories
type Repositories struct {
	User         user.Repository
	Trade        trade.Repository
	Therapy      therapy.Repository
	Report       report.Repository
	State        conversation.Store
	MenuSessions menu_session.Repository
}

// Services groups all domain services
type Services struct {
	User        *user.Service
	Trade       *trade.Service
	Ledger      *ledger.Service
	Analytics   *analytics.Service
	Coach       *coaching.Coach
	MenuSession *menusessionsvc.Service
	Dialogue    *dialogue.Engine
}

// Adapters groups all external adapters
type Adapters struct {
	KafkaProducer *kafka.Producer // nil when KAFKA_BROKERS is empty
	Events        events.Publisher
}

// Application groups application layer components
type Application struct {
	HTTPServer                  *api.Server
	HealthHandler               *health.Handler
	TelegramBot                 *tgbotapi.Bot
	TelegramHandler             *telegram.Handler
	TelegramWebhook             *tg.WebhookHandler // nil in polling mode
	TelegramNotificationService *telegram.NotificationService
}

// Background groups all background processing components
type Background struct {
	WorkerScheduler *workers.Scheduler
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	return &Container{
		Repos:       &Repositories{},
		Services:    &Services{},
		Adapters:    &Adapters{},
		Application: &Application{},
		Background:  &Background{},
		Lifecycle:   NewLifecycle(),
	}
}

// MustInit initializes all components in the correct order
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitRepositories()
	c.MustInitAdapters()
	c.MustInitServices()
	c.MustInitApplication()
	c.MustInitBackground()
}

// Run serves until ctx is cancelled or a component fails. The bot, the HTTP
// server and the scheduler share one errgroup: the first failure stops all.
func (c *Container) Run(ctx context.Context) error {
	c.Log.Info("Starting all systems...")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Application.TelegramBot.Start(gctx)
	})

	g.Go(func() error {
		return c.Application.HTTPServer.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return c.Application.HTTPServer.Shutdown(shutdownCtx)
	})

	if err := c.Background.WorkerScheduler.Start(gctx); err != nil {
		return errors.Wrap(err, "failed to start workers")
	}

	c.Log.Info("✓ All systems operational")

	err := g.Wait()
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	c.Lifecycle.Shutdown(
		c.Background.WorkerScheduler,
		c.Application.TelegramWebhook,
		c.Adapters.KafkaProducer,
		c.PG,
		c.Redis,
		c.ErrorTracker,
		c.Log,
	)
}

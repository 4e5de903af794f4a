package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"SubTrack/internal/config"
	"SubTrack/internal/infrastructure/ocr"
	"SubTrack/internal/infrastructure/scheduler"
	"SubTrack/internal/infrastructure/storage"
	"SubTrack/internal/infrastructure/telegram"
	"SubTrack/internal/intake"
	"SubTrack/internal/logging"
	"SubTrack/internal/ports"
	"SubTrack/internal/receipt"
	"SubTrack/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db     *sql.DB
	poller *telegram.Poller
	sched  *usecase.Scheduler
}

// New builds the application: storage, the conversation router, and the
// reminder sweep behind the cron scheduler.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	subRepo := storage.NewSubscriptionRepo(db)
	remRepo := storage.NewReminderRepo(db)
	settingsRepo := storage.NewSettingsRepo(db)
	usageRepo := storage.NewUsageRepo(db)

	bot := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.BaseURL)

	var recognizer ports.TextRecognizer
	if cfg.OCR.Endpoint != "" {
		recognizer = ocr.NewClient(cfg.OCR.Endpoint, cfg.OCR.APIKey)
	}

	machine := intake.NewMachine(subRepo, usageRepo, cfg.Intake.KnownServices,
		baseLogger.With("component", "intake"))
	subService := usecase.NewSubscriptionService(subRepo, usageRepo,
		baseLogger.With("component", "subscriptions"))
	parser := receipt.NewParser(cfg.Intake.KnownServices,
		baseLogger.With("component", "receipt"))

	router := usecase.NewRouter(usecase.RouterDeps{
		Machine:       machine,
		Subscriptions: subService,
		Parser:        parser,
		Recognizer:    recognizer,
		Messenger:     bot,
		Settings:      settingsRepo,
		Logger:        baseLogger.With("component", "router"),
	})

	sweep := usecase.NewSweep(usecase.SweepDeps{
		Subscriptions: subRepo,
		Reminders:     remRepo,
		Messenger:     bot,
		Logger:        baseLogger.With("component", "sweep"),
	})
	cronDriver := scheduler.NewCronScheduler(
		cfg.Scheduler.CronExpression,
		cfg.Scheduler.Location(),
		baseLogger.With("component", "scheduler"),
	)

	return &Application{
		cfg:    cfg,
		logger: baseLogger,
		db:     db,
		poller: telegram.NewPoller(bot, router, baseLogger.With("component", "poller")),
		sched:  usecase.NewScheduler(cronDriver, sweep),
	}, nil
}

// Run applies the schema, starts the scheduler, and polls for updates
// until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := storage.InitSchema(ctx, a.db); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	if err := a.sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	a.logger.Info("application started")
	a.poller.Run(ctx)

	shutdownCtx := context.WithoutCancel(ctx)
	if err := a.sched.Stop(shutdownCtx); err != nil {
		a.logger.Warn("stop scheduler", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", "error", err)
	}

	a.logger.Info("application stopped")
	return nil
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/lorrc/field-dispatch-bot/internal/adapters/primary/http"
	mw "github.com/lorrc/field-dispatch-bot/internal/adapters/primary/http/middleware"
	botAdapter "github.com/lorrc/field-dispatch-bot/internal/adapters/primary/telegram"
	"github.com/lorrc/field-dispatch-bot/internal/adapters/secondary/dispatchboard"
	"github.com/lorrc/field-dispatch-bot/internal/adapters/secondary/postgres"
	tgChannel "github.com/lorrc/field-dispatch-bot/internal/adapters/secondary/telegram"
	"github.com/lorrc/field-dispatch-bot/internal/auth"
	"github.com/lorrc/field-dispatch-bot/internal/config"
	"github.com/lorrc/field-dispatch-bot/internal/core/services"
	"github.com/lorrc/field-dispatch-bot/internal/infrastructure/logging"
	"github.com/lorrc/field-dispatch-bot/internal/scheduler"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Initialize Database Pool
	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Initialize Telegram Bot API
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Error("failed to connect to telegram", "error", err)
		os.Exit(1)
	}
	logger.Info("telegram bot authorized", "username", botAPI.Self.UserName)

	// 5. Dependency Injection (Wiring the Hexagon)

	// Repositories & Gateways (Secondary Adapters)
	userRepo := postgres.NewUserRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	boardClient := dispatchboard.NewClient(dispatchboard.Config{
		Host:           cfg.Board.Host,
		Port:           cfg.Board.Port,
		Token:          cfg.Board.Token,
		DefectTemplate: cfg.Board.DefectTemplate,
	}, nil)
	channel := tgChannel.NewChannel(botAPI, cfg.Telegram.MessagesPerSecond, logger)

	// Services (Core)
	reportService := services.NewReportService(boardClient, userRepo, channel, services.ReportConfig{
		BroadcastChatIDs: cfg.Telegram.BroadcastChatIDs,
		ExportDir:        cfg.Schedule.ExportDir,
	}, logger)
	dialogService := services.NewDialogService(sessionRepo, boardClient, userRepo, channel, reportService, services.DialogConfig{
		AdminChatIDs:     cfg.Telegram.AdminChatIDs,
		BroadcastChatIDs: cfg.Telegram.BroadcastChatIDs,
	}, logger)

	// Update router (Primary Adapter)
	bot := botAdapter.NewBot(botAPI, dialogService, logger)

	// 6. Report Schedule
	sched := scheduler.New(logger)
	for _, at := range cfg.Schedule.BroadcastTimes {
		if err := sched.AddDaily("broadcast-report", at, reportService.BroadcastOpenTickets); err != nil {
			logger.Error("failed to schedule broadcast report", "error", err)
			os.Exit(1)
		}
	}
	for _, at := range cfg.Schedule.PersonalTimes {
		if err := sched.AddDaily("personal-digests", at, reportService.SendPersonalDigests); err != nil {
			logger.Error("failed to schedule personal digests", "error", err)
			os.Exit(1)
		}
	}
	sched.Start()
	defer sched.Stop()

	// 7. Ops HTTP API
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)

	var generalRateLimiter, authRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		authRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.AuthRPS,
			BurstSize:         cfg.RateLimit.AuthBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})
	}

	errorHandler := httpAdapter.NewErrorHandler(logger)
	router := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		Health:             httpAdapter.NewHealthHandler(pool, cfg.App.Version),
		Auth:               httpAdapter.NewAuthHandler(cfg.Server.AdminUser, cfg.Server.AdminPasswordHash, tokenManager, errorHandler, logger),
		Reports:            httpAdapter.NewReportHandler(reportService, errorHandler, logger),
		Tickets:            httpAdapter.NewTicketHandler(boardClient, errorHandler, logger),
		TokenManager:       tokenManager,
		GeneralRateLimiter: generalRateLimiter,
		AuthRateLimiter:    authRateLimiter,
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		RequestLogger:      mw.RequestLogger(logger),
		Recovery:           mw.RecoveryLogger(logger),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("ops server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server error", "error", err)
			os.Exit(1)
		}
	}()

	// 8. Run the update loop until a shutdown signal arrives
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	botDone := make(chan error, 1)
	go func() {
		botDone <- bot.Run(runCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-botDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("update loop stopped", "error", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

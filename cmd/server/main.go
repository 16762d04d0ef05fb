package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/finance-approval/internal/application/dispatcher"
	"github.com/garyjia/finance-approval/internal/application/engine"
	"github.com/garyjia/finance-approval/internal/application/service"
	"github.com/garyjia/finance-approval/internal/config"
	"github.com/garyjia/finance-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/finance-approval/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/garyjia/finance-approval/internal/interfaces/http"
	"github.com/garyjia/finance-approval/pkg/database"
	"github.com/garyjia/finance-approval/pkg/utils"
)

func main() {
	// Local overrides from .env, if present
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting finance approval server",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	txManager := sqlite.NewDB(db.DB, logger)

	// Repositories
	requestRepo := repository.NewRequestRepository(db.DB, logger)
	ruleRepo := repository.NewWorkflowRuleRepository(db.DB, logger)
	decisionRepo := repository.NewDecisionRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	businessRepo := repository.NewBusinessRepository(db.DB, logger)
	notificationRepo := repository.NewNotificationRepository(db.DB, logger)
	auditRepo := repository.NewAuditRepository(db.DB, logger)

	// Workflow engine
	resolver := engine.NewResolver(ruleRepo, logger)
	selector := engine.NewSelector(userRepo, logger)
	aggregator := engine.NewAggregator(requestRepo, decisionRepo, logger)
	recorder := engine.NewRecorder(requestRepo, decisionRepo, auditRepo, aggregator, txManager, logger)

	// Services
	notificationService := service.NewNotificationService(notificationRepo, requestRepo, decisionRepo, logger)
	statsService := service.NewStatsService(decisionRepo, logger)

	// Post-commit events fan out through the dispatcher; in-app
	// notifications are one subscriber
	eventDispatcher := dispatcher.NewDispatcher(logger)
	defer eventDispatcher.Close()
	service.RegisterNotificationHandlers(eventDispatcher, notificationService)
	notifier := service.NewEventNotifier(eventDispatcher, logger)

	requestService := service.NewRequestService(
		requestRepo,
		decisionRepo,
		businessRepo,
		userRepo,
		auditRepo,
		resolver,
		selector,
		recorder,
		aggregator,
		txManager,
		notifier,
		logger,
		cfg.Workflow.DefaultCurrency,
	)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, requestService, notificationService, statsService, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

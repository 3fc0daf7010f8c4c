package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/crm-service/internal/api/http"
	"github.com/spec-kit/crm-service/internal/api/http/handlers"
	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/observability"
	"github.com/spec-kit/crm-service/internal/persistence"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/service"
	"github.com/spec-kit/crm-service/internal/storage"
	"github.com/spec-kit/crm-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	pool := pg.Pool

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	var refreshTokens repository.RefreshTokenRepository
	if err := redis.Ping(ctx); err == nil {
		refreshTokens = repository.NewRefreshTokenRepository(redis.Client)
	} else {
		logger.Warn("refresh token rotation store disabled", zap.Error(err))
	}

	files, err := newFileStore(ctx, cfg.Upload)
	if err != nil {
		logger.Fatal("failed to init attachment storage", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	if err := pg.RegisterMetrics(metrics.Registry); err != nil {
		logger.Fatal("failed to register pool metrics", zap.Error(err))
	}
	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	userRepo := repository.NewUserRepository(pool)
	leadRepo := repository.NewLeadRepository(pool)
	clientRepo := repository.NewClientRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)
	claimRepo := repository.NewClaimRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	txManager := repository.NewTxManager(pool)
	activity := service.NewActivityRecorder(repository.NewActivityRepository(pool))

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:         userRepo,
		ClientRepo:       clientRepo,
		RefreshTokenRepo: refreshTokens,
		Metrics:          metrics,
		Logger:           logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   userRepo,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	leadService := service.NewLeadService(service.LeadDependencies{
		LeadRepo:   leadRepo,
		ClientRepo: clientRepo,
		UserRepo:   userRepo,
		TxManager:  txManager,
		Activity:   activity,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	clientService := service.NewClientService(service.ClientDependencies{
		ClientRepo:       clientRepo,
		ProductRepo:      productRepo,
		SubscriptionRepo: subscriptionRepo,
		UserRepo:         userRepo,
		TxManager:        txManager,
		Activity:         activity,
		Dispatcher:       dispatcher,
		Logger:           logger,
		BcryptCost:       cfg.Auth.BcryptCost,
	})
	productService := service.NewProductService(service.ProductDependencies{
		ProductRepo:      productRepo,
		SubscriptionRepo: subscriptionRepo,
	})
	claimService := service.NewClaimService(service.ClaimDependencies{
		ClaimRepo:      claimRepo,
		AttachmentRepo: attachmentRepo,
		ClientRepo:     clientRepo,
		UserRepo:       userRepo,
		TxManager:      txManager,
		Activity:       activity,
		FileStore:      files,
		MaxUploadSize:  cfg.Upload.MaxSize,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})
	dashboardService := service.NewDashboardService(service.DashboardDependencies{
		UserRepo:         userRepo,
		LeadRepo:         leadRepo,
		ClientRepo:       clientRepo,
		ClaimRepo:        claimRepo,
		SubscriptionRepo: subscriptionRepo,
		Activity:         activity,
	})
	portalService := service.NewPortalService(service.PortalDependencies{
		ClientRepo:       clientRepo,
		SubscriptionRepo: subscriptionRepo,
		TxManager:        txManager,
		Activity:         activity,
		Claims:           claimService,
		Dashboard:        dashboardService,
	})

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, clientRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    int(cfg.Upload.MaxSize) + 1<<20,
		ErrorHandler: httptransport.ErrorHandler(logger, cfg.App.IsDevelopment()),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:     cfg.App.RequestTimeout(),
		CORSOrigin:  cfg.App.CORSOrigin,
		Development: cfg.App.IsDevelopment(),
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Leads:          handlers.NewLeadsHandler(leadService),
		Clients:        handlers.NewClientsHandler(clientService),
		Products:       handlers.NewProductsHandler(productService),
		Claims:         handlers.NewClaimsHandler(claimService),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		Portal:         handlers.NewPortalHandler(portalService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func newFileStore(ctx context.Context, cfg config.UploadConfig) (storage.FileStore, error) {
	if cfg.Driver == "s3" {
		return storage.NewS3Store(ctx, cfg)
	}
	return storage.NewLocalStore(cfg.Path)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

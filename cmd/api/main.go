package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hanko-field/naming/internal/di"
	"github.com/hanko-field/naming/internal/handlers"
	"github.com/hanko-field/naming/internal/platform/config"
	"github.com/hanko-field/naming/internal/platform/observability"
	"github.com/hanko-field/naming/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load(ctx)
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(cfg, startedAt)

	initCtx, initCancel := context.WithTimeout(ctx, time.Minute)
	container, err := di.NewContainer(initCtx, cfg,
		di.WithLogger(baseLogger),
		di.WithBuildInfo(buildInfo),
	)
	initCancel()
	if err != nil {
		closeContainer(logger, container)
		logger.Fatal("failed to initialise naming services", zap.Error(err))
	}
	defer closeContainer(logger, container)

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	var backgroundWG sync.WaitGroup
	if cfg.Naming.ReloadInterval > 0 && cfg.Naming.CharacterSource != config.SourceEmbedded {
		backgroundWG.Add(1)
		go func() {
			defer backgroundWG.Done()
			container.RunDatasetReloader(backgroundCtx, cfg.Naming.ReloadInterval)
		}()
	}
	if container.Replays != nil && cfg.Idempotency.CleanupInterval > 0 {
		backgroundWG.Add(1)
		go func() {
			defer backgroundWG.Done()
			container.RunReplayCleanup(backgroundCtx)
		}()
	}

	namingHandlers := handlers.NewNamingHandlers(
		container.Services.Generator,
		container.Services.Calculator,
		container.Services.Catalog,
		handlers.WithGenerateRateLimit(cfg.RateLimits.GeneratePerMinute, time.Now),
		handlers.WithGenerateReplay(container.ReplayMiddleware()),
	)
	characterHandlers := handlers.NewCharacterHandlers(container.Services.Catalog)

	projectID := strings.TrimSpace(cfg.Firestore.ProjectID)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(container.Services.System),
	)

	routerOpts := []handlers.Option{
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithNamingRoutes(namingHandlers.Routes),
		handlers.WithCharacterRoutes(characterHandlers.Routes),
	}
	if operatorAuth := container.OperatorMiddleware(); operatorAuth != nil {
		routerOpts = append(routerOpts,
			handlers.WithInternalRoutes(handlers.NewOperationsHandlers(container).Routes),
			handlers.WithInternalMiddlewares(operatorAuth),
		)
	} else {
		logger.Warn("auth: OIDC audience not configured; internal routes are disabled")
	}

	router := handlers.NewRouter(routerOpts...)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("naming api listening",
			zap.String("dataset", container.Characters.Version()),
			zap.String("source", container.Source.Name()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	backgroundCancel()
	backgroundWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(os.Getenv("NAMING_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("NAMING_BUILD_COMMIT_SHA"))
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func closeContainer(logger *zap.Logger, container *di.Container) {
	if container == nil {
		return
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := container.Close(closeCtx); err != nil {
		logger.Warn("container close error", zap.Error(err))
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httptransport "github.com/Jlndre/Capstone-eLife/internal/api/http"
	"github.com/Jlndre/Capstone-eLife/internal/api/http/handlers"
	"github.com/Jlndre/Capstone-eLife/internal/auth"
	"github.com/Jlndre/Capstone-eLife/internal/biometrics"
	"github.com/Jlndre/Capstone-eLife/internal/config"
	"github.com/Jlndre/Capstone-eLife/internal/document"
	"github.com/Jlndre/Capstone-eLife/internal/events"
	"github.com/Jlndre/Capstone-eLife/internal/inference"
	"github.com/Jlndre/Capstone-eLife/internal/observability"
	"github.com/Jlndre/Capstone-eLife/internal/persistence"
	"github.com/Jlndre/Capstone-eLife/internal/repository"
	"github.com/Jlndre/Capstone-eLife/internal/service"
	"github.com/Jlndre/Capstone-eLife/internal/storage"
	"github.com/Jlndre/Capstone-eLife/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing, cfg.App.Name, cfg.App.Version)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	readiness := map[string]handlers.Pinger{}

	var repos repository.Repositories
	if cfg.Postgres.DSN != "" {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		repos = repository.NewPostgresRepositories(pg.PoolHandle())
		readiness["postgres"] = pg
	} else {
		logger.Warn("POSTGRES_DSN not set, using in-memory repositories")
		repos = repository.NewMemoryRepositories()
	}

	var locker persistence.UserLocker
	if cfg.Redis.Addr != "" {
		redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redis.Close()
		locker = redis.Locker(cfg.Verification.UserLockTTL)
		readiness["redis"] = redis
	} else {
		locker = persistence.NewMemoryLocker()
	}

	var store storage.ObjectStore
	if cfg.Storage.AccessKey != "" {
		s3, err := storage.NewS3Store(ctx, cfg.Storage, logger)
		if err != nil {
			logger.Fatal("failed to init object storage", zap.Error(err))
		}
		store = s3
		readiness["storage"] = s3
	} else {
		logger.Warn("STORAGE_ACCESS_KEY not set, keeping uploads in memory")
		store = storage.NewMemoryStore()
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := events.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Fatal("failed to init kafka sink", zap.Error(err))
		}
		defer sink.Close()
		sink.Register(dispatcher)
	}
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	opts := inference.Options{
		Timeout:    cfg.Inference.Timeout,
		MaxRetries: 2,
		Logger:     logger,
		Metrics:    metrics,
	}
	detector := inference.NewFaceDetector(cfg.Inference.FaceDetectorURL, opts)
	policy := cfg.Verification
	screener := biometrics.NewScreener(inference.NewDeepfakeClassifier(cfg.Inference.DeepfakeURL, opts), detector, policy.DeepfakeInputSize)
	matcher := biometrics.NewFaceMatcher(
		inference.NewFaceEmbedder(cfg.Inference.EmbedderURL, opts),
		detector,
		biometrics.MatchPolicy{SimilarityFloor: policy.FaceSimilarityFloor, DistanceCeiling: policy.FaceDistanceCeiling},
		policy.FaceMarginRatio,
		policy.EmbeddingInputSize,
	)

	authService := service.NewAuthService(*cfg, repos.Users, logger)
	ledger := service.NewLedgerService(service.LedgerDependencies{
		Quarters:   repos.Quarters,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	certificates := service.NewCertificateService(service.CertificateDependencies{
		Users:              repos.Users,
		Submissions:        repos.Submissions,
		Certificates:       repos.Certificates,
		Tx:                 repos.Tx,
		Locker:             locker,
		Ledger:             ledger,
		Dispatcher:         dispatcher,
		Metrics:            metrics,
		Logger:             logger,
		VerificationMethod: policy.VerificationMethod,
	})
	verification := service.NewVerificationService(service.VerificationDependencies{
		Users:       repos.Users,
		Submissions: repos.Submissions,
		Identities:  repos.Identities,
		Tx:          repos.Tx,
		Locker:      locker,
		Store:       store,
		OCR:         inference.NewTextExtractor(cfg.Inference.OCRURL, opts),
		Screener:    screener,
		FaceMatcher: matcher,
		Documents:   document.NewMatcher(policy.NameMatchThreshold, time.Now),
		Frames:      biometrics.NewFrameSelector(biometrics.Decoder(policy.MaxImagePixels), biometrics.LaplacianVariance),
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
		Policy:      policy,
	})

	background := worker.Start(ctx, logger, []worker.Subscriber{notifications},
		worker.NewMissedSweeper(ledger, cfg.Worker.SweepInterval, logger))

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.App.BodyLimitMB * 1024 * 1024,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Auth:           handlers.NewAuthHandler(authService),
		Verification:   handlers.NewVerificationHandler(verification),
		Certificates:   handlers.NewCertificatesHandler(certificates),
		Quarters:       handlers.NewQuartersHandler(ledger),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.Users),
		Gatherer:       prometheus.DefaultGatherer,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()
	background.Wait()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/stillwaterhq/datacore/internal/adapters/cache"
	eventadapter "github.com/stillwaterhq/datacore/internal/adapters/events"
	grpcadapter "github.com/stillwaterhq/datacore/internal/adapters/grpc"
	httpadapter "github.com/stillwaterhq/datacore/internal/adapters/http"
	"github.com/stillwaterhq/datacore/internal/adapters/postgres"
	"github.com/stillwaterhq/datacore/internal/adapters/security"
	"github.com/stillwaterhq/datacore/internal/application"
	"github.com/stillwaterhq/datacore/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	dispatcher *eventadapter.OutboxDispatcher
	janitor    *eventadapter.RevocationJanitor
	listener   *cacheadapter.InvalidationListener
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping datacore service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	repos := postgres.NewRepositories(db)

	vault, err := security.NewKeyVault(cfg.MasterKey)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init key vault: %w", err)
	}
	verifier, err := security.NewTokenVerifier([]byte(cfg.TokenSecret))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token verifier: %w", err)
	}

	locks := cacheadapter.NewRedisResourceLock(redisClient)
	filter, err := cacheadapter.NewRedisRevocationFilter(ctx, redisClient, cfg.RevocationFilterErrorRate, cfg.RevocationFilterCapacity)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init revocation filter: %w", err)
	}
	invalidations := cacheadapter.NewRedisInvalidationBus(redisClient, cfg.InvalidationChannel)
	local := cacheadapter.NewMemoryCache()
	listener := cacheadapter.NewInvalidationListener(redisClient, cfg.InvalidationChannel, local, logger, 2*time.Second)

	var publisher ports.EventPublisher
	var closePublisher func() error
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.BusTopic)
		publisher = kafkaPublisher
		closePublisher = kafkaPublisher.Close
	} else {
		logger.Warn("no kafka brokers configured, change events will be logged instead of published")
		publisher = eventadapter.NewLoggingPublisher(logger)
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			SourceService:  cfg.ServiceID,
			ExportDir:      cfg.ExportDir,
			ExportLockTTL:  cfg.ExportLockTTL,
			ExportTTL:      cfg.ExportTTL,
			ListLimit:      cfg.ListLimit,
			CacheTTL:       cfg.CacheTTL,
			IdempotencyTTL: cfg.IdempotencyTTL,
		},
		Journal:       repos.Journal,
		UserKeys:      repos.UserKeys,
		Revocations:   repos.Revocations,
		Exports:       repos.Exports,
		Idempotency:   repos.Idempotency,
		Locks:         locks,
		Filter:        filter,
		Invalidations: invalidations,
		Local:         local,
		Vault:         vault,
		Cipher:        security.NewEnvelopeCipher(),
		Verifier:      verifier,
	})

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewDataCoreInternalServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	dispatcher := eventadapter.NewOutboxDispatcher(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxBackoff,
	)
	janitor := eventadapter.NewRevocationJanitor(logger, svc, cfg.JanitorInterval, cfg.JanitorBatchSize)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		dispatcher: dispatcher,
		janitor:    janitor,
		listener:   listener,
		cleanupFn: func(ctx context.Context) {
			if closePublisher != nil {
				_ = closePublisher()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := r.listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("invalidation listener stopped", "error", err)
		}
	}()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("worker started")
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return r.dispatcher.Run(groupCtx) })
	group.Go(func() error { return r.janitor.Run(groupCtx) })

	err := group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}

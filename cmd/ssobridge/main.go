package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/happsea/hub-sso-bridge/pkg/audit"
	"github.com/happsea/hub-sso-bridge/pkg/config"
	"github.com/happsea/hub-sso-bridge/pkg/httputil"
	"github.com/happsea/hub-sso-bridge/pkg/hubsso"
	"github.com/happsea/hub-sso-bridge/pkg/observability"
	"github.com/happsea/hub-sso-bridge/pkg/users"
)

const maxRequestBody = 1 << 20 // 1 MiB

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("base_url", cfg.Hub.BaseURL).Info("starting hub sso bridge")

	// Secret source: file takes precedence over env, both re-read per
	// request.
	var secrets hubsso.SecretSource
	var fileSecrets *hubsso.FileSecretSource
	if cfg.Hub.SecretFile != "" {
		fileSecrets, err = hubsso.NewFileSecretSource(cfg.Hub.SecretFile, logger)
		if err != nil {
			log.Fatalf("Failed to watch secret file: %v", err)
		}
		secrets = fileSecrets
	} else {
		secrets = hubsso.NewEnvSecretSource(cfg.Hub.SecretEnv)
	}
	if !secrets.Enabled() {
		logger.Warn("no shared secret configured, sso is disabled until one appears")
	}

	// Database
	db, err := users.Connect(users.ConnectionConfig{
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store, err := users.NewPostgresStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize user store: %v", err)
	}

	// Audit trail
	var recorder audit.Recorder = audit.NopRecorder{}
	var dbRecorder *audit.DBRecorder
	if cfg.Audit.Enabled {
		dbRecorder, err = audit.NewDBRecorder(db)
		if err != nil {
			log.Fatalf("Failed to initialize audit recorder: %v", err)
		}
		recorder = dbRecorder
	}

	// Replay cache: Redis when configured, in-process LRU otherwise.
	var redisClient *redis.Client
	var replay hubsso.ReplayCache
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid redis URL: %v", err)
		}
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		opts.DB = cfg.Redis.DB
		opts.MaxRetries = cfg.Redis.MaxRetries
		if cfg.Redis.PoolSize > 0 {
			opts.PoolSize = cfg.Redis.PoolSize
		}
		redisClient = redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable at startup, replay cache degraded")
		}
		cancel()

		replay = hubsso.NewRedisReplayCache(redisClient)
	} else {
		replay = hubsso.NewLocalReplayCache(65536, replayWindow(cfg))
	}

	// Metrics
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	go pollDBStats(db, metrics)

	// Optional OpenTelemetry
	providers, err := observability.InitOTel(context.Background(), observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}

	// Core wiring
	validator := hubsso.NewValidator(secrets, cfg.Hub.ReplayWindow)
	service := hubsso.NewService(validator, secrets, replay, recorder, metrics, logger, cfg.Hub)
	authorizer := hubsso.NewAuthorizer(validator, store, recorder, metrics, logger)

	router := mux.NewRouter()
	service.RegisterRoutes(router)
	service.RegisterAuthorizeRoute(router, authorizer)

	var handler http.Handler = httputil.Chain(
		httputil.RequestIDMiddleware(logger),
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
		httputil.MaxBytesMiddleware(maxRequestBody),
	)(router)
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "ssobridge")
	}

	mainServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port so probes never compete
	// with login traffic.
	health := observability.NewHealthChecker(db, redisClient, secrets)
	healthRouter := mux.NewRouter()
	healthRouter.HandleFunc("/healthz", health.Liveness).Methods(http.MethodGet)
	healthRouter.HandleFunc("/readyz", health.Readiness).Methods(http.MethodGet)
	if cfg.Observability.MetricsEnabled {
		healthRouter.Handle("/metrics", observability.Handler(registry)).Methods(http.MethodGet)
	}

	healthServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:      healthRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Audit retention
	scheduler := cron.New()
	if cfg.Audit.Enabled && dbRecorder != nil {
		if _, err := audit.ScheduleCleanup(scheduler, dbRecorder, cfg.Audit.Retention,
			cfg.Audit.CleanupSchedule, logger); err != nil {
			log.Fatalf("Failed to schedule audit cleanup: %v", err)
		}
		scheduler.Start()
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, mainServer, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		scheduler.Stop()
		return nil
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		if fileSecrets != nil {
			return fileSecrets.Close()
		}
		return nil
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		if redisClient != nil {
			return redisClient.Close()
		}
		return nil
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return db.Close()
	})
	if providers != nil {
		shutdown.RegisterShutdownFunc(providers.Shutdown)
	}

	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() error {
		logger.WithField("addr", mainServer.Addr).Info("sso server listening")
		if err := mainServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(shutdown.WaitForShutdown)

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func replayWindow(cfg *config.Config) time.Duration {
	if cfg.Hub.ReplayWindow > 0 {
		return cfg.Hub.ReplayWindow
	}
	return hubsso.DefaultReplayWindow
}

// pollDBStats mirrors connection pool gauges into prometheus
func pollDBStats(db *sql.DB, metrics *observability.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		stats := db.Stats()
		metrics.DBConnectionsActive.Set(float64(stats.InUse))
		metrics.DBConnectionsIdle.Set(float64(stats.Idle))
	}
}

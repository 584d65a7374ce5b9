package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/turbovets/taskhub/pkg/api"
	"github.com/turbovets/taskhub/pkg/audit"
	"github.com/turbovets/taskhub/pkg/auth"
	"github.com/turbovets/taskhub/pkg/authz"
	"github.com/turbovets/taskhub/pkg/config"
	"github.com/turbovets/taskhub/pkg/middleware"
	"github.com/turbovets/taskhub/pkg/observability"
	"github.com/turbovets/taskhub/pkg/orgs"
	"github.com/turbovets/taskhub/pkg/storage/postgres"
	"github.com/turbovets/taskhub/pkg/tasks"
	"github.com/turbovets/taskhub/pkg/users"
)

var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Infof("Starting TaskHub %s", version)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("TaskHub exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx := context.Background()

	db, err := postgres.Open(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	logger.Info("Database ready")

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// The distributed limiter fails open, so a missing Redis only
			// degrades rate limiting.
			logger.WithError(err).Warn("Redis unreachable at startup")
		}
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	var engineMetrics *authz.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
		engineMetrics = authz.NewMetrics(registry)
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				metrics.CollectDBStats(func() (int64, int64, int64, time.Duration) {
					stats := db.Stats()
					return int64(stats.OpenConnections), int64(stats.Idle), stats.WaitCount, stats.WaitDuration
				})
			}
		}()
	}

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Warn("OpenTelemetry init failed, continuing without tracing")
	}

	var auditLogger audit.Logger = audit.NopLogger{}
	var retention *audit.RetentionJob
	if cfg.Audit.Enabled {
		dbLogger, err := audit.NewDBLogger(db)
		if err != nil {
			return err
		}
		sinks := []audit.Logger{dbLogger}
		if cfg.Audit.FilePath != "" {
			fileLogger, err := audit.NewFileLogger(audit.FileLoggerConfig{
				BasePath: cfg.Audit.FilePath,
				Rotate:   true,
				MaxSize:  cfg.Audit.FileMaxBytes,
				MaxFiles: cfg.Audit.FileMaxFiles,
			})
			if err != nil {
				logger.WithError(err).Warn("Audit file sink unavailable, logging to database only")
			} else {
				sinks = append(sinks, fileLogger)
			}
		}
		auditLogger = audit.NewMultiLogger(sinks...)

		retention = audit.NewRetentionJob(db, audit.RetentionPolicy{
			RetentionDays: cfg.Audit.RetentionDays,
			Schedule:      cfg.Audit.RetentionSchedule,
		}, logger)
		if err := retention.Start(); err != nil {
			return err
		}
	}

	orgStore := orgs.NewPostgresStore(db)
	directory := orgs.NewDirectory(orgStore, orgs.DirectoryConfig{
		CacheSize: cfg.Hierarchy.CacheSize,
		CacheTTL:  cfg.Hierarchy.CacheTTL,
		BatchLoad: cfg.Hierarchy.BatchLoad,
	})
	engine := authz.NewEngine(directory, engineMetrics)

	userStore := users.NewPostgresStore(db)
	taskStore := tasks.NewPostgresStore(db)
	taskService := tasks.NewService(taskStore, engine, auditLogger, logger)

	tokens, err := auth.NewTokenManager([]byte(cfg.Auth.TokenSecret), cfg.Auth.TokenIssuer, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	if err := bootstrapOwner(ctx, orgStore, userStore, logger); err != nil {
		return err
	}

	var rateLimit func(http.Handler) http.Handler
	if redisClient != nil {
		rateLimit = middleware.NewDistributedRateLimitMiddleware(redisClient).Handler
	} else {
		rateLimit = middleware.NewRateLimitMiddleware().Handler
	}

	apiServer := api.NewServer(api.Deps{
		Tokens:             tokens,
		Users:              userStore,
		UserAdmin:          userStore,
		Tasks:              taskService,
		Directory:          directory,
		OrgStore:           orgStore,
		OrgAdmin:           orgStore,
		Engine:             engine,
		AuditStore:         audit.NewStore(db),
		Audit:              auditLogger,
		Logger:             logger,
		Metrics:            metrics,
		RateLimit:          rateLimit,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		MaxRequestBytes:    cfg.Server.MaxRequestBytes,
	})

	var handler http.Handler = apiServer
	if providers != nil {
		handler = otelhttp.NewHandler(handler, "taskhub.api")
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient, version))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	go func() {
		logger.Infof("Health/metrics server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Health server failed")
		}
	}()
	go func() {
		logger.Infof("API server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("API server failed")
		}
	}()

	sm := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	sm.RegisterShutdownFunc(func(ctx context.Context) error { return healthServer.Shutdown(ctx) })
	if retention != nil {
		sm.RegisterShutdownFunc(func(context.Context) error { retention.Stop(); return nil })
	}
	sm.RegisterShutdownFunc(func(context.Context) error { return auditLogger.Close() })
	if providers != nil {
		sm.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}
	if redisClient != nil {
		sm.RegisterShutdownFunc(func(context.Context) error { return redisClient.Close() })
	}
	sm.RegisterShutdownFunc(func(context.Context) error { return db.Close() })

	return sm.WaitForShutdown()
}

// bootstrapOwner creates the root organization and an initial owner account
// when TASKHUB_BOOTSTRAP_EMAIL and TASKHUB_BOOTSTRAP_PASSWORD are set and the
// account does not exist yet. Without it a fresh deployment has no way to
// log in.
func bootstrapOwner(ctx context.Context, orgStore *orgs.PostgresStore, userStore *users.PostgresStore, logger *observability.Logger) error {
	email := os.Getenv("TASKHUB_BOOTSTRAP_EMAIL")
	password := os.Getenv("TASKHUB_BOOTSTRAP_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	if _, err := userStore.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, users.ErrNotFound) {
		return err
	}

	rootID := "root"
	if _, err := orgStore.FindByID(ctx, rootID); errors.Is(err, orgs.ErrNotFound) {
		root := &orgs.Organization{ID: rootID, Name: "Root"}
		if err := orgStore.Create(ctx, root); err != nil {
			return fmt.Errorf("failed to create root organization: %w", err)
		}
	} else if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	owner := &auth.User{
		Email:          email,
		OrganizationID: rootID,
		Role:           auth.RoleOwner,
		PasswordHash:   hash,
	}
	if err := userStore.Create(ctx, owner); err != nil {
		return fmt.Errorf("failed to create bootstrap owner: %w", err)
	}
	logger.WithField("email", email).Info("Bootstrap owner account created")
	return nil
}

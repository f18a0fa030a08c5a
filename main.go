package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/auth"
	"github.com/ekaya-inc/nautilus-reporting/pkg/config"
	"github.com/ekaya-inc/nautilus-reporting/pkg/database"
	"github.com/ekaya-inc/nautilus-reporting/pkg/handlers"
	"github.com/ekaya-inc/nautilus-reporting/pkg/logging"
	"github.com/ekaya-inc/nautilus-reporting/pkg/middleware"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
	"github.com/ekaya-inc/nautilus-reporting/pkg/repositories"
	"github.com/ekaya-inc/nautilus-reporting/pkg/retry"
	"github.com/ekaya-inc/nautilus-reporting/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.String("error", logging.SanitizeError(err)))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("authz_mode", cfg.Authz.Mode),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.Bool("redis", cfg.Redis.Host != ""))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database. Only transient failures are retried.
	db, err := retry.DoWithResult(ctx, retry.StartupConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, database.ConfigFrom(&cfg.Database))
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		_ = sqlDB.Close()
		return err
	}
	_ = sqlDB.Close()

	// Token revocation: Redis when configured, in-process otherwise
	var revocations auth.RevocationStore
	redisClient, err := retry.DoWithResult(ctx, retry.StartupConfig(), func() (*redis.Client, error) {
		return database.NewRedisClient(ctx, &cfg.Redis)
	})
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		revocations = auth.NewRedisRevocationStore(redisClient)
		logger.Info("Token revocation backed by Redis", zap.String("addr", cfg.Redis.Addr()))
	} else {
		revocations = auth.NewMemoryRevocationStore()
		logger.Warn("REDIS_HOST not set; token revocation is per-process")
	}

	// Auth
	tokens := auth.NewTokenService(auth.TokenConfig{
		Secret: []byte(cfg.Auth.JWTSecret),
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.TokenTTL,
	}, revocations)
	cookie := auth.DeriveCookieSettings(cfg.BaseURL, cfg.CookieDomain)
	sessions := auth.NewSessionStore(cfg.Auth.SessionSecret, cookie, int(cfg.Auth.TokenTTL.Seconds()))
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(tokens, sessions, logger), logger)

	guardMode, err := auth.ParseGuardMode(cfg.Authz.Mode)
	if err != nil {
		return err
	}
	guard, err := auth.NewRouteGuard(auth.DefaultGuardPolicy, guardMode, logger)
	if err != nil {
		return fmt.Errorf("build route guard: %w", err)
	}

	// Repositories and services
	engine := policy.NewEngine()

	userRepo := repositories.NewUserRepository()
	reportRepo := repositories.NewReportRepository()
	issueRepo := repositories.NewIssueRepository()
	taskRepo := repositories.NewTaskRepository()
	requestRepo := repositories.NewRequestRepository()
	promptRepo := repositories.NewPromptRepository()

	userService := services.NewUserService(userRepo, tokens, engine, logger)
	svc := handlers.Services{
		Users:        userService,
		Reports:      services.NewReportService(reportRepo, engine, logger),
		Issues:       services.NewIssueService(issueRepo, engine, logger),
		Solutions:    services.NewSolutionService(repositories.NewSolutionRepository(), engine, logger),
		Tasks:        services.NewTaskService(taskRepo, engine, logger),
		Requests:     services.NewRequestService(requestRepo, engine, logger),
		Prompts:      services.NewPromptService(promptRepo, engine, logger),
		FileVersions: services.NewFileVersionService(repositories.NewFileVersionRepository(), engine, logger),
		Dashboard:    services.NewDashboardService(reportRepo, issueRepo, taskRepo, requestRepo, promptRepo, engine, logger),
	}

	if err := bootstrapAdmin(ctx, db, userService, cfg, logger); err != nil {
		return err
	}

	// Routes
	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.RegisterAPIRoutes(mux, svc, authMiddleware, guard, sessions, database.WithRequestScope(db, logger), logger)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      middleware.Chain(mux, middleware.RequestID, middleware.Recover(logger), middleware.RequestLogger(logger)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting nautilus-reporting",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version),
			zap.Bool("tls", cfg.TLSCertPath != ""))
		if cfg.TLSCertPath != "" {
			serveErr <- server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			serveErr <- server.ListenAndServe()
		}
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// bootstrapAdmin creates the configured admin account on an empty users table.
func bootstrapAdmin(ctx context.Context, db *database.DB, users services.UserService, cfg *config.Config, logger *zap.Logger) error {
	scopedCtx, cleanup, err := database.NewScopeProvider(db).WithScope(ctx)
	if err != nil {
		return fmt.Errorf("acquire bootstrap connection: %w", err)
	}
	defer cleanup()

	admin, err := users.EnsureBootstrapAdmin(scopedCtx, cfg.Auth.BootstrapAdminUsername, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if admin != nil {
		logger.Info("Created bootstrap admin", zap.String("username", admin.Username))
	}
	return nil
}

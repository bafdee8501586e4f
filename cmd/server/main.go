package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/skiffworks/sailing-campaign/backend/internal/auth"
	"github.com/skiffworks/sailing-campaign/backend/internal/config"
	"github.com/skiffworks/sailing-campaign/backend/internal/equipment"
	"github.com/skiffworks/sailing-campaign/backend/internal/health"
	"github.com/skiffworks/sailing-campaign/backend/internal/logger"
	"github.com/skiffworks/sailing-campaign/backend/internal/metrics"
	appmw "github.com/skiffworks/sailing-campaign/backend/internal/middleware"
	"github.com/skiffworks/sailing-campaign/backend/internal/repository"
	"github.com/skiffworks/sailing-campaign/backend/internal/sanitizer"
	"github.com/skiffworks/sailing-campaign/backend/internal/session"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()

	if cfg.JWT.AccessSecret == "" {
		log.Fatal("JWT_ACCESS_SECRET environment variable is required")
	}
	if cfg.JWT.RefreshSecret == "" {
		log.Fatal("JWT_REFRESH_SECRET environment variable is required")
	}

	appLogger := logger.New(logger.DefaultConfig())
	slog.SetDefault(appLogger)

	dbPool, err := setupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	// Equipment storage goes through sqlx over the pgx stdlib driver
	sqlxDB, err := sqlx.Open("pgx", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to open sqlx connection: %v", err)
	}
	sqlxDB.SetMaxOpenConns(25)
	sqlxDB.SetMaxIdleConns(5)
	sqlxDB.SetConnMaxLifetime(5 * time.Minute)
	defer sqlxDB.Close()

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	authSessionRepo := repository.NewAuthSessionRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)
	equipmentRepo := repository.NewEquipmentRepository(sqlxDB)

	// Services
	tokenService := auth.NewTokenService(auth.TokenServiceConfig{
		AccessSecret:       cfg.JWT.AccessSecret,
		RefreshSecret:      cfg.JWT.RefreshSecret,
		AccessTokenExpiry:  cfg.JWT.AccessTokenExpiry,
		RefreshTokenExpiry: cfg.JWT.RefreshTokenExpiry,
		Issuer:             cfg.JWT.Issuer,
	})
	passwordValidator := auth.NewPasswordValidator()
	notesSanitizer := sanitizer.NewNotesSanitizer()

	authService := auth.NewAuthService(userRepo, authSessionRepo, tokenService, passwordValidator, appLogger)
	sessionService := session.NewService(sessionRepo, equipmentRepo, notesSanitizer, appLogger)
	equipmentService := equipment.NewService(equipmentRepo, notesSanitizer, appLogger)

	// Handlers
	authHandler := auth.NewAuthHandler(authService)
	sessionHandler := session.NewHandler(sessionService)
	equipmentHandler := equipment.NewHandler(equipmentService)

	// Middleware
	authMiddleware := appmw.NewAuthMiddleware(tokenService)
	loggingMiddleware := appmw.NewLoggingMiddleware(appLogger)
	authRateLimiter := appmw.NewAuthRateLimiter()
	defer authRateLimiter.Stop()

	healthHandler := health.NewHandler(health.Config{
		DBPool:  dbPool,
		Version: version,
	})

	dbStatsCollector := metrics.NewDBStatsCollector(dbPool, sqlxDB.DB)
	dbStatsCollector.Start(15 * time.Second)
	defer dbStatsCollector.Stop()

	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go runSessionCleanup(cleanupCtx, authSessionRepo, appLogger)

	// Router
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(loggingMiddleware.Handler)
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Operational endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/health/ready", healthHandler.Readiness)
	r.Get("/health/live", healthHandler.Liveness)
	r.Handle("/metrics", metrics.Handler())

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authRateLimiter.Handler)
			auth.RegisterRoutes(r, authHandler, authMiddleware.Authenticate)
		})
		session.RegisterRoutes(r, sessionHandler, authMiddleware.Authenticate)
		equipment.RegisterRoutes(r, equipmentHandler, authMiddleware.Authenticate)
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	healthHandler.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("Server exited")
}

// runSessionCleanup periodically removes expired refresh-token sessions
func runSessionCleanup(ctx context.Context, repo repository.AuthSessionRepository, log *slog.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.DeleteExpired(ctx)
			if err != nil {
				log.Error("Failed to clean up expired sessions", "error", err)
				continue
			}
			if deleted > 0 {
				log.Info("Expired sessions removed", "count", deleted)
			}
		}
	}
}

// setupDatabase creates and configures the database connection pool
func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Connected to database %s on %s:%s", cfg.Database.DBName, cfg.Database.Host, cfg.Database.Port)
	return pool, nil
}

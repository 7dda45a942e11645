// Package app builds the full application runtime: configuration, database,
// dependency wiring, and the HTTP route table.
package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"streamhub-api/internal/auth"
	"streamhub-api/internal/config"
	"streamhub-api/internal/db"
	"streamhub-api/internal/media"
	"streamhub-api/internal/observability"
	"streamhub-api/internal/user"
)

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Config  config.Config
	Logger  *observability.Logger
	Close   func() error
}

func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	logger := observability.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	database, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	database.SetMaxIdleConns(cfg.DBMaxIdleConns)
	database.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	database.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if options.RunMigrations {
		if err := db.RunMigrations(database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	issuer, err := auth.NewIssuer(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("configure token issuer: %w", err)
	}

	cloudinaryClient, err := media.NewCloudinary(cfg.CloudinaryURL)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}

	authRepo := auth.NewRepository(database)
	authService := auth.NewService(authRepo, issuer)
	authHandler := auth.NewHandler(authService, issuer, cloudinaryClient)

	userRepo := user.NewRepository(database)
	userHandler := user.NewHandler(userRepo, cloudinaryClient)
	mediaUploadHandler := media.NewUploadHandler(cloudinaryClient)

	loginLimiter := auth.NewLoginRateLimiter(cfg.LoginRateLimitMax, cfg.LoginRateLimitWindow)
	guard := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(issuer, h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.Handle("POST /api/v1/auth/login", loginLimiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/v1/auth/logout", guard(authHandler.Logout))
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)
	mux.Handle("POST /api/v1/auth/change-password", guard(authHandler.ChangePassword))
	mux.Handle("GET /api/v1/auth/me", guard(authHandler.Me))
	mux.Handle("PATCH /api/v1/users/account", guard(userHandler.UpdateAccount))
	mux.Handle("PATCH /api/v1/users/avatar", guard(userHandler.UpdateAvatar))
	mux.Handle("PATCH /api/v1/users/cover-image", guard(userHandler.UpdateCoverImage))
	mux.HandleFunc("GET /api/v1/users/{username}", userHandler.GetByUsername)
	mux.Handle("POST /api/v1/media/upload", guard(mediaUploadHandler.Upload))
	mux.HandleFunc("GET /health", healthHandler(database))
	mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDir)))

	handler := observability.RecoverMiddleware(logger,
		observability.RequestLoggingMiddleware(logger,
			observability.CORSMiddleware(cfg.CORSOrigin,
				observability.ConcurrencyLimitMiddleware(cfg.MaxConcurrentRequests, mux))))

	return &Runtime{
		Handler: handler,
		Config:  cfg,
		Logger:  logger,
		Close: func() error {
			observability.FlushSentry()
			return database.Close()
		},
	}, nil
}

func healthHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

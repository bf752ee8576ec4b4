package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"admissions-assistant/internal/config"
	"admissions-assistant/internal/credentials"
	"admissions-assistant/internal/feedbackstore"
	"admissions-assistant/internal/handlers"
	customMiddleware "admissions-assistant/internal/middleware"
	"admissions-assistant/internal/notify"
	"admissions-assistant/internal/sheets"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env (ignore error in production, env vars are set directly)
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	// Missing credentials only disable feedback logging; the chat front end
	// keeps working.
	creds := credentials.Load(cfg.Credentials, logger, sheets.Scopes...)
	provider := sheets.NewProvider(creds, cfg.RequestTimeout)

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.EmailNotificationsEnabled() {
		notifier = notify.NewEmailNotifier(cfg.ResendAPIKey, cfg.NotifyFromEmail, cfg.NotifyToEmail, logger)
	}

	store := feedbackstore.New(feedbackstore.Options{
		Provider:      provider,
		SpreadsheetID: cfg.SpreadsheetID,
		CacheFile:     feedbackstore.NewCacheFile(cfg.CacheFile),
		Tab:           cfg.SheetTab,
		Title:         cfg.SpreadsheetTitle,
		ShareWith:     cfg.ShareWith,
		Notifier:      notifier,
		Logger:        logger,
	})

	feedbackHandler := handlers.NewFeedbackHandler(store, logger)
	adminHandler := handlers.NewAdminHandler(store, creds.Configured, logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"admissions-assistant"}`))
	})

	r.Post("/feedback", feedbackHandler.SubmitFeedback)

	if cfg.AdminJWTSecret != "" {
		r.Route("/admin", func(r chi.Router) {
			r.Use(customMiddleware.JWTAuth(cfg.AdminJWTSecret))

			r.Get("/feedback-store", adminHandler.GetStoreStatus)
			r.Post("/feedback-store/resolve", adminHandler.ResolveStore)
		})
	} else {
		logger.Info("Admin routes disabled (ADMIN_JWT_SECRET not set)")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout*4 + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server listening",
			"addr", srv.Addr,
			"tab", cfg.SheetTab,
			"spreadsheet_configured", cfg.SpreadsheetID != "",
			"credentials_configured", creds.Configured(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	store.Flush()

	logger.Info("Server stopped")
}

func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
}

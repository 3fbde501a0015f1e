package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/matchday/config"
	"github.com/Dosada05/matchday/db"
	"github.com/Dosada05/matchday/handlers"
	"github.com/Dosada05/matchday/idempotency"
	"github.com/Dosada05/matchday/live"
	"github.com/Dosada05/matchday/middleware"
	"github.com/Dosada05/matchday/repositories"
	api "github.com/Dosada05/matchday/routes"
	"github.com/Dosada05/matchday/services"
	"github.com/Dosada05/matchday/storage"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("match_policy", cfg.MatchPolicy.Name),
		slog.String("idempotency_backend", cfg.IdempotencyBackend),
	)

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 10*time.Second)
	err = db.EnsureSchema(schemaCtx, dbConn)
	cancelSchema()
	if err != nil {
		logger.Error("failed to apply database schema", slog.Any("error", err))
		os.Exit(1)
	}

	// Архив протоколов матчей (Cloudflare R2) подключается только при полной конфигурации
	var sheetUploader storage.FileUploader
	if cfg.R2.Enabled() {
		sheetUploader, err = storage.NewCloudflareR2Uploader(context.Background(), storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.BucketName,
			PublicBaseURL:   cfg.R2.PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("match sheet archive enabled")
	}

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	// Инициализация WebSocket Hub
	wsHub := live.NewHub(logger)
	go wsHub.Run(appCtx)
	logger.Info("WebSocket Hub started")

	// Хранилище ключей идемпотентности
	clock := clockwork.NewRealClock()
	var idemStore idempotency.Store
	switch cfg.IdempotencyBackend {
	case config.IdempotencyBackendPostgres:
		idemStore = idempotency.NewPostgresStore(dbConn, clock, cfg.IdempotencyTTL)
	default:
		idemStore = idempotency.NewMemoryStore(clock, cfg.IdempotencyTTL)
	}
	gate := middleware.NewIdempotencyGate(idemStore, logger)

	// Инициализация репозиториев
	transactor := repositories.NewPostgresTransactor(dbConn, logger)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	rosterRepo := repositories.NewPostgresRosterRepository(dbConn)
	voteRepo := repositories.NewPostgresMvpVoteRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	policy := services.MatchPolicy{
		RosterCapacity:             cfg.MatchPolicy.RosterCapacity,
		RequireFullTeamsAtCreation: cfg.MatchPolicy.RequireFullTeamsAtCreation,
	}
	playerService := services.NewPlayerService(playerRepo, logger)
	matchService := services.NewMatchService(
		transactor,
		matchRepo,
		rosterRepo,
		voteRepo,
		playerRepo,
		policy,
		wsHub,
		sheetUploader,
		logger,
	)
	mvpService := services.NewMvpService(transactor, matchRepo, rosterRepo, voteRepo, wsHub, logger)
	logger.Info("Services initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Players:   handlers.NewPlayerHandler(playerService),
		Matches:   handlers.NewMatchHandler(matchService),
		Mvp:       handlers.NewMvpHandler(mvpService),
		Health:    handlers.NewHealthHandler(dbConn),
		WebSocket: handlers.NewWebSocketHandler(wsHub, cfg.CORSOrigin, logger),
	}, gate, cfg.CORSOrigin)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			stopApp()
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		// Websocket-соединения не отслеживаются сервером: закрываем их через hub.
		stopApp()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}

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

	"github.com/Dosada05/album-bracket/brackets"
	"github.com/Dosada05/album-bracket/config"
	"github.com/Dosada05/album-bracket/db"
	"github.com/Dosada05/album-bracket/genai"
	"github.com/Dosada05/album-bracket/handlers"
	"github.com/Dosada05/album-bracket/repositories"
	api "github.com/Dosada05/album-bracket/routes"
	"github.com/Dosada05/album-bracket/selection"
	"github.com/Dosada05/album-bracket/services"
	"github.com/Dosada05/album-bracket/storage"
	"github.com/go-chi/chi/v5"
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
		slog.String("database_driver", string(cfg.DatabaseDriver)),
		slog.Bool("ai_selection", cfg.AIEnabled()),
		slog.Bool("bracket_export", cfg.ExportEnabled()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseDriver, cfg.DatabaseURL, 5*time.Second)
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
	if err := db.InitSchema(ctx, dbConn, cfg.DatabaseDriver); err != nil {
		logger.Error("failed to initialize database schema", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database connection established")

	// Экспорт сетки в S3/R2 включается только при заданном бакете
	var uploader storage.FileUploader
	if cfg.ExportEnabled() {
		uploader, err = storage.NewS3Uploader(ctx, cfg.Export)
		if err != nil {
			logger.Error("failed to initialize bracket export uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("bracket export uploader initialized", slog.String("bucket", cfg.Export.BucketName))
	}

	selectionOpts := services.SelectionOptions{
		Random:  selection.NewRandomStrategy(nil),
		AI:      cfg.AI,
		Pairing: brackets.NewRandomPairing(nil),
	}
	if cfg.AIEnabled() {
		client, err := genai.NewClient(cfg.Gemini, logger)
		if err != nil {
			logger.Error("failed to initialize Gemini client", slog.Any("error", err))
			os.Exit(1)
		}
		selectionOpts.Generator = client
		logger.Info("AI album selection enabled", slog.Int("max_albums", cfg.AI.MaxAlbums))
	}

	// Инициализация WebSocket Hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	wsHub := brackets.NewHub(logger)
	go wsHub.Run(hubCtx)
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	tournamentRepo := repositories.NewTournamentRepository(dbConn, cfg.DatabaseDriver)
	roundRepo := repositories.NewRoundRepository(dbConn)
	albumRepo := repositories.NewAlbumRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	tournamentService := services.NewTournamentService(dbConn, tournamentRepo, roundRepo, albumRepo, selectionOpts, uploader, logger)
	bracketService := services.NewBracketService(dbConn, tournamentRepo, roundRepo, wsHub, uploader, logger)
	albumService := services.NewAlbumService(albumRepo)
	logger.Info("Services initialized")

	// Инициализация обработчиков HTTP
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, bracketService)
	roundHandler := handlers.NewRoundHandler(bracketService)
	albumHandler := handlers.NewAlbumHandler(albumService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, tournamentService, cfg.CORSAllowedOrigins, logger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Options{
		JWTSecret:       []byte(cfg.JWTSecretKey),
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		CreateRateLimit: cfg.CreateRateLimit,
		RequestTimeout:  cfg.RequestTimeout,
	}, tournamentHandler, roundHandler, albumHandler, webSocketHandler)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера. WriteTimeout покрывает построение
	// сетки с AI-выбором, поэтому он больше таймаута запроса.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		// Сначала закрываем websocket-клиентов: Shutdown не ждёт hijacked соединения
		stopHub()

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

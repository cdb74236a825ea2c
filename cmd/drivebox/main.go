// Точка входа Drivebox — сервиса персонального файлового хранилища.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"drivebox/internal/api/handlers"
	"drivebox/internal/api/middleware"
	"drivebox/internal/auth"
	"drivebox/internal/config"
	"drivebox/internal/server"
	"drivebox/internal/service"
	"drivebox/internal/storage/blobstore"
	"drivebox/internal/storage/metastore"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Drivebox запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
	)

	// --- Инициализация компонентов ---

	// 1. Хранилище блобов
	blobs, err := blobstore.New(cfg.DataDir)
	if err != nil {
		logger.Error("Ошибка инициализации blobstore", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Документ метаданных
	meta, err := metastore.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("Ошибка открытия документа метаданных", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Стартовое значение gauge количества файлов
	middleware.FilesTotal.Set(float64(meta.CountFiles()))

	// 3. Сессии
	sessions := auth.NewSessionStore(cfg.MaxSessions, cfg.SessionTTL, logger)
	secret := []byte(cfg.SessionSecret)

	// 4. Сервисы
	authSvc := service.NewAuthService(meta, sessions, secret, cfg.SessionTTL, logger)
	fileSvc := service.NewFileService(blobs, meta, cfg.MaxFileSize, logger)
	reconciler := service.NewReconciler(blobs, meta, cfg.ReconcileInterval, logger)

	// 5. Фоновая сверка целостности
	reconciler.Start(context.Background())
	defer reconciler.Stop()

	// 6. Обработчики и сервер
	sessionAuth := middleware.NewSessionAuth(secret, sessions, logger)

	srv := server.New(cfg, logger, server.Handlers{
		Auth:        handlers.NewAuthHandler(authSvc, logger),
		Files:       handlers.NewFilesHandler(fileSvc, cfg.MaxFileSize, logger),
		Health:      handlers.NewHealthHandler(meta, cfg.DataDir),
		Maintenance: handlers.NewMaintenanceHandler(reconciler, logger),
	}, sessionAuth)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

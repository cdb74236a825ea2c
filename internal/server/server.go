// Пакет server — HTTP-сервер Drivebox: маршруты, middleware,
// TLS и graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"drivebox/internal/api/handlers"
	"drivebox/internal/api/middleware"
	"drivebox/internal/config"
)

// Handlers — набор обработчиков, монтируемых сервером.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Files       *handlers.FilesHandler
	Health      *handlers.HealthHandler
	Maintenance *handlers.MaintenanceHandler
}

// Server — HTTP-сервер Drivebox.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
// sessionAuth защищает все маршруты, требующие аутентификации.
func New(cfg *config.Config, logger *slog.Logger, h Handlers, sessionAuth *middleware.SessionAuth) *Server {
	router := NewRouter(logger, h, sessionAuth)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if cfg.TLSEnabled() {
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter монтирует все маршруты API и middleware.
func NewRouter(logger *slog.Logger, h Handlers, sessionAuth *middleware.SessionAuth) chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())

	// Публичные маршруты: probes, метрики, регистрация, вход
	router.Get("/health/live", h.Health.Live)
	router.Get("/health/ready", h.Health.Ready)
	router.Get("/metrics", h.Health.Metrics)

	router.Post("/api/auth/register", h.Auth.Register)
	router.Post("/api/auth/login", h.Auth.Login)

	// Маршруты, требующие живой сессии
	router.Group(func(r chi.Router) {
		r.Use(sessionAuth.Middleware())

		r.Post("/api/auth/logout", h.Auth.Logout)

		r.Route("/api/files", func(r chi.Router) {
			r.Get("/", h.Files.List)
			r.Post("/", h.Files.Upload)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Files.Get)
				r.Delete("/", h.Files.Delete)
				r.Get("/download", h.Files.Download)
				r.Get("/preview", h.Files.Preview)
				r.Get("/image", h.Files.Image)
				r.Put("/edit", h.Files.Edit)
			})
		})

		r.Post("/api/maintenance/reconcile", h.Maintenance.Reconcile)
		r.Get("/api/maintenance/reconcile", h.Maintenance.LastReport)
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown с таймаутом
// из конфигурации.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
			slog.Bool("tls", s.cfg.TLSEnabled()),
		)

		var err error
		if s.cfg.TLSEnabled() {
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}

// Package mockapi реализует локальную копию webhook API заметок
// с хранением в памяти. Нужен для разработки и тестов.
package mockapi

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"staticnotes/internal/notes/adapters/http/middleware"
	"staticnotes/internal/notes/config"
	"staticnotes/pkg/logger"
)

// Константы для логирования и ошибок сервера.
const (
	LogServerStarting = "starting mock notes api"
	LogServerStopping = "stopping mock notes api"

	ErrStartServer = "failed to start mock notes api"
	ErrStopServer  = "failed to stop mock notes api"
)

// Server - HTTP сервер mock API.
type Server struct {
	app     *fiber.App
	store   *Store
	address string
}

// NewServer создает сервер над хранилищем store.
func NewServer(cfg *config.HTTPConfig, store *Store) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	app.Use(middleware.NewRequestIDMiddleware())
	app.Use(middleware.NewLoggerMiddleware())
	app.Use(middleware.NewRecoveryMiddleware())

	NewHandler(store).Register(app)

	return &Server{
		app:     app,
		store:   store,
		address: cfg.GetMockAddress(),
	}
}

// App возвращает fiber приложение.
func (s *Server) App() *fiber.App {
	return s.app
}

// Store возвращает хранилище сервера.
func (s *Server) Store() *Store {
	return s.store
}

// Address возвращает адрес, на котором слушает сервер.
func (s *Server) Address() string {
	return s.address
}

// Start запускает сервер и блокируется до его остановки.
func (s *Server) Start(ctx context.Context) error {
	logger.Log(ctx).Info(ctx, LogServerStarting,
		zap.String("address", s.address),
		zap.Int("notes", s.store.Len()))

	if err := s.app.Listen(s.address, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		return fmt.Errorf("%s: %w", ErrStartServer, err)
	}
	return nil
}

// Shutdown останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log(ctx).Info(ctx, LogServerStopping)
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("%s: %w", ErrStopServer, err)
	}
	return nil
}

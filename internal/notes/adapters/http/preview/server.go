// Package preview раздает собранный сайт локально под базовым путем.
package preview

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/static"
	"go.uber.org/zap"

	"staticnotes/internal/notes/adapters/http/middleware"
	"staticnotes/internal/notes/config"
	"staticnotes/pkg/logger"
)

// Константы для логирования и ошибок.
const (
	LogServerStarting = "starting preview server"
	LogServerStopping = "stopping preview server"

	ErrStartServer = "failed to start preview server"
	ErrStopServer  = "failed to stop preview server"

	notFoundPage = "404.html"
)

// Server - HTTP сервер предпросмотра статического сайта.
type Server struct {
	app      *fiber.App
	root     string
	files    fs.FS
	basePath string
	address  string
}

// NewServer создает сервер, раздающий каталог site.OutputDir под базовым путем сайта.
func NewServer(httpCfg *config.HTTPConfig, siteCfg *config.SiteConfig) *Server {
	s := &Server{
		root:     siteCfg.OutputDir,
		files:    os.DirFS(siteCfg.OutputDir),
		basePath: siteCfg.NormalizedBasePath(),
		address:  httpCfg.GetAddress(),
	}

	s.app = fiber.New(fiber.Config{
		ReadTimeout:  httpCfg.ReadTimeout,
		WriteTimeout: httpCfg.WriteTimeout,
	})
	s.app.Use(middleware.NewRequestIDMiddleware())
	s.app.Use(middleware.NewLoggerMiddleware())
	s.app.Use(middleware.NewRecoveryMiddleware())
	s.app.Use(s.guard)
	// Сайт пересобирается на лету, поэтому обработчики файлов не кэшируются.
	s.app.Use(s.basePath, static.New(s.root, static.Config{
		CacheDuration:   -1,
		NotFoundHandler: s.notFound,
	}))
	s.app.Use(s.notFound)

	return s
}

// App возвращает fiber приложение.
func (s *Server) App() *fiber.App {
	return s.app
}

// Address возвращает адрес, на котором слушает сервер.
func (s *Server) Address() string {
	return s.address
}

// Start запускает сервер и блокируется до его остановки.
func (s *Server) Start(ctx context.Context) error {
	logger.Log(ctx).Info(ctx, LogServerStarting,
		zap.String("address", s.address),
		zap.String("base_path", s.basePath),
		zap.String("root", s.root))

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

// guard пропускает к раздаче только GET и HEAD под базовым путем
// и перенаправляет каталоги на адрес с завершающим слешем.
func (s *Server) guard(ctx fiber.Ctx) error {
	if ctx.Method() != fiber.MethodGet && ctx.Method() != fiber.MethodHead {
		return ctx.SendStatus(fiber.StatusMethodNotAllowed)
	}

	reqPath, err := url.PathUnescape(ctx.Path())
	if err != nil {
		return s.notFound(ctx)
	}

	if !strings.HasPrefix(reqPath, s.basePath) {
		if reqPath+"/" == s.basePath || reqPath == "/" {
			return ctx.Redirect().Status(fiber.StatusFound).To(s.basePath)
		}
		return s.notFound(ctx)
	}

	if !strings.HasSuffix(reqPath, "/") && s.isDir(strings.TrimPrefix(reqPath, s.basePath)) {
		return ctx.Redirect().Status(fiber.StatusMovedPermanently).To(ctx.Path() + "/")
	}
	return ctx.Next()
}

func (s *Server) isDir(rel string) bool {
	name := path.Clean(rel)
	if !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(s.files, name)
	return err == nil && info.IsDir()
}

func (s *Server) notFound(ctx fiber.Ctx) error {
	if _, err := fs.Stat(s.files, notFoundPage); err != nil {
		return ctx.Status(fiber.StatusNotFound).SendString("404 page not found")
	}
	return ctx.Status(fiber.StatusNotFound).SendFile(filepath.Join(s.root, notFoundPage))
}

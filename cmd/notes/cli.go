package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"staticnotes/internal/notes/adapters/cache"
	"staticnotes/internal/notes/adapters/webhook"
	"staticnotes/internal/notes/app"
	"staticnotes/internal/notes/app/state"
	"staticnotes/internal/notes/config"
	"staticnotes/internal/notes/resilience"
	"staticnotes/pkg/logger"
)

// Константы для сообщений CLI.
const (
	LogCommandStarted = "command started"
	LogCloseFailed    = "failed to release resources"

	ErrInitLoggerWithConfig = "failed to initialize logger with configuration settings"
	ErrCreateClient         = "failed to create notes api client"
)

// cli хранит флаги и зависимости, которые строятся по требованию команды.
type cli struct {
	envFile  string
	logLevel string

	stdout io.Writer
	stderr io.Writer

	cfg     *config.Config
	cache   *cache.Tiered
	service *app.NotesService
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{stdout: stdout, stderr: stderr}
}

func (c *cli) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "notes",
		Short:         "Manage markdown notes behind a webhook API and publish them as a static site",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Context(), cmd.CommandPath())
		},
	}

	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "path to an optional .env file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		c.listCmd(),
		c.getCmd(),
		c.createCmd(),
		c.updateCmd(),
		c.deleteCmd(),
		c.tagsCmd(),
		c.buildCmd(),
		c.serveCmd(),
		c.deployCmd(),
		c.mockAPICmd(),
		c.exportCmd(),
		c.cacheCmd(),
	)
	return root
}

// setup загружает конфигурацию и перенастраивает глобальный логгер.
func (c *cli) setup(ctx context.Context, command string) error {
	cfg, err := config.Load(ctx, c.envFile)
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if c.logLevel != "" {
		level = c.logLevel
	}
	log, err := logger.NewLogger(cfg.Logging.GetEnvironment(), level)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrInitLoggerWithConfig, err)
	}
	logger.SetGlobalLogger(log.With(zap.String(logger.Command, command)))

	c.cfg = cfg
	logger.Log(ctx).Debug(ctx, LogCommandStarted)
	return nil
}

// notes собирает сервис заметок: клиент API, кэш и устойчивость.
func (c *cli) notes(ctx context.Context) (*app.NotesService, error) {
	if c.service != nil {
		return c.service, nil
	}
	if err := c.cfg.RequireAPI(); err != nil {
		return nil, err
	}

	client, err := webhook.NewClient(&c.cfg.API)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrCreateClient, err)
	}

	res := resilience.NewServiceResilience("notes-api", c.cfg.API.Retry(), c.cfg.API.Breaker())
	c.cache = cache.New(ctx, &c.cfg.Cache)
	c.service = app.NewNotesService(client, c.cache, res, &c.cfg.Cache)
	return c.service, nil
}

// store возвращает контейнер состояния с загруженным списком заметок.
func (c *cli) store(ctx context.Context) (*state.Store, error) {
	svc, err := c.notes(ctx)
	if err != nil {
		return nil, err
	}
	st := state.NewStore(svc)
	if err := st.Load(ctx); err != nil {
		return nil, err
	}
	c.warnStale(st.Stale())
	return st, nil
}

func (c *cli) warnStale(stale bool) {
	if stale {
		fmt.Fprintln(c.stderr, "warning: notes api is unavailable, showing cached data")
	}
}

func (c *cli) close(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Close(); err != nil {
		logger.Log(ctx).Warn(ctx, LogCloseFailed, zap.Error(err))
	}
	c.cache = nil
	c.service = nil
}

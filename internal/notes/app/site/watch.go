package site

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"staticnotes/pkg/logger"
)

// Константы для наблюдения за шаблонами.
const (
	LogWatchStarted = "watching templates for changes"
	LogWatchEvent   = "template changed"
	LogWatchError   = "template watcher error"
	LogRebuildFail  = "rebuild failed"

	ErrCreateWatcher = "failed to create watcher"
	ErrWatchDir      = "failed to watch templates directory"

	defaultDebounce = 300 * time.Millisecond
)

// ErrNoTemplatesDir - наблюдать не за чем: каталог шаблонов не задан.
var ErrNoTemplatesDir = errors.New("NOTES_SITE_TEMPLATES_DIR is not set")

// BuildFunc получает результат каждой пересборки.
type BuildFunc func(report *Report, err error)

// Watch пересобирает сайт при изменении файлов в каталоге шаблонов.
// Серия событий подряд дает одну пересборку. Возвращается при отмене ctx.
func (g *Generator) Watch(ctx context.Context, onBuild BuildFunc) error {
	return g.watch(ctx, defaultDebounce, onBuild)
}

func (g *Generator) watch(ctx context.Context, debounce time.Duration, onBuild BuildFunc) error {
	log := logger.Log(ctx).With(zap.String("templates_dir", g.cfg.TemplatesDir))

	if g.cfg.TemplatesDir == "" {
		return ErrNoTemplatesDir
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%s: %w", ErrCreateWatcher, err)
	}
	defer watcher.Close()

	if err := watcher.Add(g.cfg.TemplatesDir); err != nil {
		return fmt.Errorf("%s: %w", ErrWatchDir, err)
	}
	log.Info(ctx, LogWatchStarted)

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			log.Debug(ctx, LogWatchEvent, zap.String("file", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn(ctx, LogWatchError, zap.Error(err))

		case <-timer.C:
			report, err := g.Build(ctx)
			if err != nil {
				log.Error(ctx, LogRebuildFail, zap.Error(err))
			}
			if onBuild != nil {
				onBuild(report, err)
			}
		}
	}
}

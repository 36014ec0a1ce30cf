// Package export сохраняет заметки в каталог markdown файлов с YAML метаданными.
package export

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"staticnotes/internal/notes/ports/services"
	"staticnotes/pkg/logger"
)

// Константы для логирования и ошибок.
const (
	LogExportStarted  = "exporting notes"
	LogExportFinished = "notes exported"

	ErrEmptyDir      = "export directory is empty"
	ErrListNotes     = "failed to list notes"
	ErrWriteNoteFile = "failed to write note file"
)

// Report - итог экспорта.
type Report struct {
	Dir      string
	Files    []string
	Stale    bool
	Duration time.Duration
}

// Exporter выгружает заметки через сервис заметок.
type Exporter struct {
	svc services.NotesService
}

// NewExporter создает экспортер.
func NewExporter(svc services.NotesService) *Exporter {
	return &Exporter{svc: svc}
}

// Export пишет каждую заметку в файл <id>.md внутри dir.
func (e *Exporter) Export(ctx context.Context, dir string) (*Report, error) {
	if dir == "" {
		return nil, errors.New(ErrEmptyDir)
	}
	log := logger.Log(ctx).With(zap.String("dir", dir))
	log.Info(ctx, LogExportStarted)
	start := time.Now()

	list, err := e.svc.ListNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrListNotes, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrWriteNoteFile, err)
	}

	report := &Report{Dir: dir, Stale: list.Stale}
	for _, n := range list.Notes {
		data, err := Marshal(n)
		if err != nil {
			return nil, err
		}

		name := FileName(n.ID)
		if err := writeFile(filepath.Join(dir, name), data); err != nil {
			return nil, fmt.Errorf("%s %s: %w", ErrWriteNoteFile, name, err)
		}
		report.Files = append(report.Files, name)
	}

	report.Duration = time.Since(start)
	log.Info(ctx, LogExportFinished,
		zap.Int("files", len(report.Files)),
		zap.Bool("stale", report.Stale),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// FileName возвращает имя файла заметки. Идентификатор экранируется,
// чтобы не выйти за пределы каталога.
func FileName(id string) string {
	name := url.PathEscape(id)
	if name == "" || name == "." || name == ".." {
		name = "_" + name
	}
	return name + ".md"
}

func writeFile(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".export-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

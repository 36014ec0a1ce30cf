package site

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staticnotes/internal/notes/adapters/markdown"
	"staticnotes/internal/notes/config"
	"staticnotes/internal/notes/ports/services"
)

type emptyNotes struct {
	services.NotesService
}

func (emptyNotes) ListNotes(context.Context) (*services.ListResult, error) {
	return &services.ListResult{}, nil
}

func TestWatch_RequiresTemplatesDir(t *testing.T) {
	gen := NewGenerator(emptyNotes{}, markdown.NewRenderer(), &config.SiteConfig{OutputDir: t.TempDir()})
	assert.ErrorIs(t, gen.Watch(context.Background(), nil), ErrNoTemplatesDir)
}

func TestWatch_RebuildsOnChange(t *testing.T) {
	tplDir := t.TempDir()
	out := filepath.Join(t.TempDir(), "dist")
	gen := NewGenerator(emptyNotes{}, markdown.NewRenderer(), &config.SiteConfig{
		OutputDir:    out,
		TemplatesDir: tplDir,
		Title:        "Watched",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	builds := make(chan error, 4)
	done := make(chan error, 1)
	go func() {
		done <- gen.watch(ctx, 20*time.Millisecond, func(_ *Report, err error) {
			select {
			case builds <- err:
			default:
			}
		})
	}()

	// наблюдатель должен успеть подписаться на каталог
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(tplDir, "404.html"),
			[]byte(`{{define "content"}}gone{{end}}`), 0o644))
	}

	select {
	case err := <-builds:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("no rebuild after template change")
	}

	data, err := os.ReadFile(filepath.Join(out, "404.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "gone")

	cancel()
	require.NoError(t, <-done)
}

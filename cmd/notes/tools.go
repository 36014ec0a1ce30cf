package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"staticnotes/internal/notes/adapters/cache"
	"staticnotes/internal/notes/adapters/http/mockapi"
	"staticnotes/internal/notes/app/export"
	"staticnotes/internal/notes/config"
	"staticnotes/internal/notes/domain/entities"
	"staticnotes/pkg/logger"
	"staticnotes/pkg/shutdown"
)

// Константы для сообщений служебных команд.
const (
	LogStoppingMock = "stopping mock notes api"
	ErrStartMock    = "mock notes api stopped with error"
)

// ErrNoPersistentCache - постоянный уровень кэша не настроен или недоступен.
var ErrNoPersistentCache = errors.New("persistent cache is not available")

func (c *cli) mockAPICmd() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "mock-api",
		Short: "Run an in-memory notes webhook API for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logger.Log(ctx)

			store := mockapi.NewStore()
			if seed {
				seedNotes(store)
			}

			srv := mockapi.NewServer(&c.cfg.HTTP, store)
			fmt.Fprintf(c.stdout, "mock notes api listening on http://%s\n", srv.Address())

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(ctx); err != nil {
					log.Error(ctx, ErrStartMock, zap.Error(err))
					errCh <- err
					cancel()
				}
			}()

			err := shutdown.Wait(ctx, c.cfg.Shutdown.GetTimeout(),
				func(ctx context.Context) error {
					log.Info(ctx, LogStoppingMock)
					return srv.Shutdown(ctx)
				},
			)

			select {
			case startErr := <-errCh:
				return startErr
			default:
				return err
			}
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "start with a few example notes")
	return cmd
}

func seedNotes(store *mockapi.Store) {
	store.Put(entities.Note{
		Title:        "Welcome",
		BodyMarkdown: "# Welcome\n\nThis note is served by the **mock** notes API.",
		Tags:         []string{"intro"},
	})
	store.Put(entities.Note{
		Title:        "Shopping list",
		BodyMarkdown: "- [ ] milk\n- [x] bread\n- [ ] coffee",
		Tags:         []string{"todo", "home"},
	})
	store.Put(entities.Note{
		Title:        "Go snippets",
		BodyMarkdown: "```go\nfmt.Println(\"hello\")\n```",
		Tags:         []string{"go", "code"},
	})
}

func (c *cli) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write every note to <dir>/<id>.md with YAML frontmatter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.notes(cmd.Context())
			if err != nil {
				return err
			}

			report, err := export.NewExporter(svc).Export(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			c.warnStale(report.Stale)
			fmt.Fprintf(c.stdout, "exported %d notes to %s\n", len(report.Files), report.Dir)
			return nil
		},
	}
}

func (c *cli) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the local cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached API response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			tiered := cache.New(ctx, &c.cfg.Cache)
			defer tiered.Close()

			if !tiered.Persistent() && c.cfg.Cache.Backend != config.CacheBackendMemory {
				return fmt.Errorf("%w: backend %s", ErrNoPersistentCache, c.cfg.Cache.Backend)
			}
			if err := tiered.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "cache cleared (%s)\n", c.cfg.Cache.Backend)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Drop expired cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			tiered := cache.New(ctx, &c.cfg.Cache)
			defer tiered.Close()

			removed, err := tiered.Purge(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "purged %d expired entries (%s)\n", removed, c.cfg.Cache.Backend)
			return nil
		},
	})
	return cmd
}

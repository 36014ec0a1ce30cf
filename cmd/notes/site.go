package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"staticnotes/internal/notes/adapters/deploy"
	"staticnotes/internal/notes/adapters/http/preview"
	"staticnotes/internal/notes/adapters/markdown"
	"staticnotes/internal/notes/app/site"
	"staticnotes/pkg/logger"
	"staticnotes/pkg/shutdown"
)

// Константы для сообщений команд сайта.
const (
	LogStoppingPreview = "stopping preview server"
	ErrStartPreview    = "preview server stopped with error"
)

func (c *cli) buildCmd() *cobra.Command {
	var (
		out   string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render every note into a static site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("out") {
				c.cfg.Site.OutputDir = out
			}

			gen, err := c.generator(cmd.Context())
			if err != nil {
				return err
			}

			report, err := gen.Build(cmd.Context())
			if err != nil {
				return err
			}
			c.printReport(report)

			if !watch {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return gen.Watch(ctx, func(report *site.Report, err error) {
				if err != nil {
					fmt.Fprintf(c.stderr, "rebuild failed: %v\n", err)
					return
				}
				c.printReport(report)
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output directory (overrides NOTES_SITE_OUTPUT_DIR)")
	cmd.Flags().BoolVar(&watch, "watch", false, "rebuild when files in NOTES_SITE_TEMPLATES_DIR change")
	return cmd
}

func (c *cli) serveCmd() *cobra.Command {
	var build bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the built site locally under the public base path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logger.Log(ctx)

			if build {
				gen, err := c.generator(ctx)
				if err != nil {
					return err
				}
				report, err := gen.Build(ctx)
				if err != nil {
					return err
				}
				c.printReport(report)
			}

			srv := preview.NewServer(&c.cfg.HTTP, &c.cfg.Site)
			fmt.Fprintf(c.stdout, "serving %s at http://%s%s\n", c.cfg.Site.OutputDir, srv.Address(), c.cfg.Site.NormalizedBasePath())

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(ctx); err != nil {
					log.Error(ctx, ErrStartPreview, zap.Error(err))
					errCh <- err
					cancel()
				}
			}()

			err := shutdown.Wait(ctx, c.cfg.Shutdown.GetTimeout(),
				func(ctx context.Context) error {
					log.Info(ctx, LogStoppingPreview)
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

	cmd.Flags().BoolVar(&build, "build", false, "build the site before serving")
	return cmd
}

func (c *cli) deployCmd() *cobra.Command {
	var (
		dryRun bool
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Upload the built site to an S3 bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := c.cfg.Deploy.Validate(); err != nil {
				return err
			}
			if dir == "" {
				dir = c.cfg.Site.OutputDir
			}

			client, err := deploy.NewS3Client(ctx, &c.cfg.Deploy)
			if err != nil {
				return err
			}

			report, err := deploy.NewPublisher(client, &c.cfg.Deploy).Publish(ctx, dir, dryRun)
			if err != nil {
				return err
			}

			verb := "uploaded"
			if report.DryRun {
				verb = "would upload"
				for _, o := range report.Objects {
					fmt.Fprintf(c.stdout, "s3://%s/%s\t%s\t%d\n", report.Bucket, o.Key, o.ContentType, o.Size)
				}
			}
			fmt.Fprintf(c.stdout, "%s %d files (%d bytes) to s3://%s in %s\n",
				verb, len(report.Objects), report.Bytes, report.Bucket, report.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only print what would be uploaded")
	cmd.Flags().StringVar(&dir, "dir", "", "directory to upload (defaults to NOTES_SITE_OUTPUT_DIR)")
	return cmd
}

func (c *cli) generator(ctx context.Context) (*site.Generator, error) {
	svc, err := c.notes(ctx)
	if err != nil {
		return nil, err
	}
	return site.NewGenerator(svc, markdown.NewRenderer(), &c.cfg.Site), nil
}

func (c *cli) printReport(r *site.Report) {
	fmt.Fprintf(c.stdout, "built %d notes, %d pages, %d tags into %s in %s\n",
		r.Notes, r.Pages, r.Tags, r.OutputDir, r.Duration.Round(time.Millisecond))
	if r.Skipped > 0 {
		fmt.Fprintf(c.stderr, "skipped %d notes that disappeared during the build\n", r.Skipped)
	}
	c.warnStale(r.Stale)
}

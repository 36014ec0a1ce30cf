// Package deploy публикует собранный сайт в S3-совместимое хранилище.
package deploy

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"staticnotes/internal/notes/config"
	"staticnotes/pkg/logger"
)

// Константы для логирования и ошибок.
const (
	LogPublishStarted  = "publishing site"
	LogObjectPlanned   = "object planned"
	LogObjectUploaded  = "object uploaded"
	LogPublishFinished = "site published"

	ErrLoadAWSConfig = "failed to load aws config"
	ErrScanOutputDir = "failed to scan output directory"
	ErrUploadObject  = "failed to upload object"

	defaultContentType = "application/octet-stream"
	uploadWorkers      = 4
)

// ObjectPutter - часть S3 клиента, нужная для публикации.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Object - файл сайта и ключ, под которым он окажется в бакете.
type Object struct {
	Path        string
	Key         string
	ContentType string
	Size        int64
}

// Report - итог публикации.
type Report struct {
	Bucket   string
	Objects  []Object
	Bytes    int64
	DryRun   bool
	Duration time.Duration
}

// Publisher загружает каталог сайта в бакет.
type Publisher struct {
	client       ObjectPutter
	bucket       string
	prefix       string
	cacheControl string
}

// NewS3Client создает S3 клиента по настройкам публикации.
// Без ключей используется стандартная цепочка учетных данных AWS.
func NewS3Client(ctx context.Context, cfg *config.DeployConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrLoadAWSConfig, err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// NewPublisher создает публикатор.
func NewPublisher(client ObjectPutter, cfg *config.DeployConfig) *Publisher {
	return &Publisher{
		client:       client,
		bucket:       cfg.Bucket,
		prefix:       strings.Trim(cfg.Prefix, "/"),
		cacheControl: cfg.CacheControl,
	}
}

// Plan перечисляет файлы каталога dir в порядке ключей.
func (p *Publisher) Plan(dir string) ([]Object, error) {
	var objects []Object

	err := filepath.WalkDir(dir, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, file)
		if err != nil {
			return err
		}

		objects = append(objects, Object{
			Path:        file,
			Key:         p.key(filepath.ToSlash(rel)),
			ContentType: ContentType(file),
			Size:        info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrScanOutputDir, err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Publish загружает каталог dir. При dryRun только строит план.
func (p *Publisher) Publish(ctx context.Context, dir string, dryRun bool) (*Report, error) {
	log := logger.Log(ctx).With(
		zap.String("bucket", p.bucket),
		zap.String("prefix", p.prefix),
		zap.Bool("dry_run", dryRun))
	start := time.Now()

	objects, err := p.Plan(dir)
	if err != nil {
		return nil, err
	}

	report := &Report{Bucket: p.bucket, Objects: objects, DryRun: dryRun}
	for _, o := range objects {
		report.Bytes += o.Size
	}

	log.Info(ctx, LogPublishStarted, zap.Int("objects", len(objects)))

	if dryRun {
		for _, o := range objects {
			log.Debug(ctx, LogObjectPlanned, zap.String("key", o.Key), zap.String("content_type", o.ContentType))
		}
		report.Duration = time.Since(start)
		return report, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadWorkers)
	for _, o := range objects {
		g.Go(func() error {
			if err := p.upload(gctx, o); err != nil {
				return fmt.Errorf("%s %s: %w", ErrUploadObject, o.Key, err)
			}
			log.Debug(gctx, LogObjectUploaded, zap.String("key", o.Key))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error(ctx, ErrUploadObject, zap.Error(err))
		return nil, err
	}

	report.Duration = time.Since(start)
	log.Info(ctx, LogPublishFinished,
		zap.Int("objects", len(objects)),
		zap.Int64("bytes", report.Bytes),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (p *Publisher) upload(ctx context.Context, o Object) error {
	f, err := os.Open(o.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(o.Key),
		Body:          f,
		ContentType:   aws.String(o.ContentType),
		ContentLength: aws.Int64(o.Size),
	}
	if p.cacheControl != "" {
		input.CacheControl = aws.String(p.cacheControl)
	}

	_, err = p.client.PutObject(ctx, input)
	return err
}

func (p *Publisher) key(rel string) string {
	if p.prefix == "" {
		return rel
	}
	return path.Join(p.prefix, rel)
}

var siteTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".json": "application/json",
	".xml":  "application/xml",
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".txt":  "text/plain; charset=utf-8",
	".svg":  "image/svg+xml",
}

// ContentType определяет тип содержимого по расширению файла.
func ContentType(file string) string {
	ext := strings.ToLower(filepath.Ext(file))
	if t, ok := siteTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return defaultContentType
}

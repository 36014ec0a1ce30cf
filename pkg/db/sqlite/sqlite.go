// Package sqlite открывает локальную базу sqlite и применяет к ней миграции.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // драйвер миграций sqlite
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // драйвер database/sql "sqlite"

	"staticnotes/pkg/logger"
)

// Константы для сообщений об ошибках.
const (
	ErrCreateDirectory         = "failed to create database directory"
	ErrOpenDatabase            = "failed to open sqlite database"
	ErrPingDatabase            = "failed to ping sqlite database"
	ErrCreateMigrationSource   = "failed to create migration source"
	ErrCreateMigrationInstance = "failed to create migration instance"
	ErrApplyMigrations         = "failed to apply migrations"

	LogMigrationsApplied = "sqlite migrations applied"
	LogDatabaseOpened    = "sqlite database opened"
)

// Open открывает базу по пути, создавая каталог при необходимости, и применяет миграции.
func Open(ctx context.Context, path string, migrations fs.FS, migrationsDir string) (*sql.DB, error) {
	log := logger.Log(ctx).With(zap.String("path", path))

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrCreateDirectory, err)
		}
	}

	if migrations != nil {
		if err := Migrate(ctx, path, migrations, migrationsDir); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrOpenDatabase, err)
	}
	// sqlite допускает одного писателя.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", ErrPingDatabase, err)
	}

	log.Debug(ctx, LogDatabaseOpened)
	return db, nil
}

// Migrate применяет миграции из встроенной файловой системы.
func Migrate(ctx context.Context, path string, migrations fs.FS, dir string) error {
	log := logger.Log(ctx)

	src, err := iofs.New(migrations, dir)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrCreateMigrationSource, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		log.Error(ctx, ErrCreateMigrationInstance, zap.Error(err), zap.String("path", path))
		return fmt.Errorf("%s: %w", ErrCreateMigrationInstance, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Error(ctx, ErrApplyMigrations, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrApplyMigrations, err)
	}

	log.Debug(ctx, LogMigrationsApplied)
	return nil
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

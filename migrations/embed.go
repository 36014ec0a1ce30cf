// Package migrations содержит SQL миграции, встроенные в бинарник.
package migrations

import "embed"

// Cache - миграции локального sqlite кэша.
//
//go:embed cache/*.sql
var Cache embed.FS

// CachePath - каталог миграций кэша внутри Cache.
const CachePath = "cache"

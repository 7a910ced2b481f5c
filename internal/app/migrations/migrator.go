package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed sql/*.sql
var embedded embed.FS

// Embedded returns the schema files shipped with the binary.
func Embedded() fs.FS {
	sub, _ := fs.Sub(embedded, "sql")
	return sub
}

// Migrator applies goose-annotated SQL files once each
type Migrator struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

func NewMigrator(db *pgxpool.Pool, log zerolog.Logger) *Migrator {
	return &Migrator{db: db, log: log}
}

// Migrate applies every file in fsys that goose has not yet recorded. Each
// file runs in its own transaction.
func (m *Migrator) Migrate(ctx context.Context, fsys fs.FS) error {
	// Closing the *sql.DB leaves the pool open.
	sqlDB := stdlib.OpenDBFromPool(m.db)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	results, err := provider.Up(ctx)
	for _, r := range results {
		m.log.Info().
			Str("file", r.Source.Path).
			Int64("version", r.Source.Version).
			Dur("took", r.Duration).
			Msg("Migration applied")
	}
	if err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}
	if len(results) == 0 {
		m.log.Debug().Msg("Schema already up to date")
	}
	return nil
}

// Package postgres implements an enterprise geodatabase on PostgreSQL.
//
// Data objects are tables and views in non-system schemas, addressed as
// <database>.<schema>.<name>. The sde schema, created by embedded migrations, records
// what plain PostgreSQL cannot: object types, feature-dataset membership, spatial
// references, canonical field types, metadata documents and raster locations. Raster
// bytes live in a gdb.BlobStore keyed by content digest.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq" // driver for migrations

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

// Kind is the registered workspace kind.
const Kind = "postgres"

//go:embed migrations/*.sql
var migrationsFS embed.FS

func init() {
	gdb.Register(Kind, func(ctx context.Context, cfg gdb.Config) (gdb.Workspace, error) {
		return Open(ctx, cfg)
	})
}

// Workspace is an enterprise geodatabase backed by a pgx pool.
type Workspace struct {
	pool     *pgxpool.Pool
	url      string
	database string
	schema   string // schema new objects are created in

	blobs      gdb.BlobStore
	blobBucket string
	blobPrefix string
}

var _ gdb.Workspace = (*Workspace)(nil)

// Open connects, verifies the connection and provisions the sde catalog when missing.
func Open(ctx context.Context, cfg gdb.Config) (*Workspace, error) {
	if cfg.URL == "" {
		return nil, gdb.WrapError(gdb.CodeWorkspaceUnreachable, false, errors.New("database URL is required"))
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, gdb.WrapError(gdb.CodeWorkspaceUnreachable, true, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, gdb.WrapError(gdb.CodeWorkspaceUnreachable, true, fmt.Errorf("ping database: %w", err))
	}

	w := &Workspace{
		pool:       pool,
		url:        cfg.URL,
		blobs:      cfg.Blobs,
		blobBucket: cfg.BlobBucket,
		blobPrefix: cfg.BlobPrefix,
	}
	if err := pool.QueryRow(ctx, `SELECT current_database(), current_schema()`).Scan(&w.database, &w.schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("read current schema: %w", err)
	}

	var catalog *string
	if err := pool.QueryRow(ctx, `SELECT to_regclass('sde.items')::text`).Scan(&catalog); err != nil {
		pool.Close()
		return nil, fmt.Errorf("check sde catalog: %w", err)
	}
	if catalog == nil {
		if err := Migrate(cfg.URL); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return w, nil
}

// Migrate applies the embedded sde catalog migrations.
func Migrate(databaseURL string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{MigrationsTable: "sde_schema_migrations"})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func (w *Workspace) Kind() string { return Kind }

// Path returns database and default schema; the URL may carry credentials.
func (w *Workspace) Path() string { return w.database + "." + w.schema }

func (w *Workspace) Ping(ctx context.Context) error {
	if err := w.pool.Ping(ctx); err != nil {
		return gdb.WrapError(gdb.CodeWorkspaceUnreachable, true, err)
	}
	return nil
}

func (w *Workspace) Close() error {
	w.pool.Close()
	return nil
}

func (w *Workspace) fullName(schema, name string) string {
	return w.database + "." + schema + "." + name
}

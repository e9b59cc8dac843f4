package storage

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const (
	createMigrationsTableSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version    TEXT PRIMARY KEY,
        applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );`

	migrationAppliedSQL = `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1);`
	recordMigrationSQL  = `INSERT INTO schema_migrations (version) VALUES ($1);`
)

// Migration is one forward-only schema step.
type Migration struct {
	Version string
	SQL     string
}

// LoadMigrations returns the migrations in dir, or the embedded set when dir is
// empty, ordered by file name.
func LoadMigrations(dir string) ([]Migration, error) {
	var fsys fs.FS = embeddedMigrations
	root := "migrations"
	if dir != "" {
		fsys = os.DirFS(dir)
		root = "."
	}

	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	migrations := make([]Migration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		body, err := fs.ReadFile(fsys, root+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		migrations = append(migrations, Migration{
			Version: strings.TrimSuffix(e.Name(), ".sql"),
			SQL:     string(body),
		})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// ApplyMigrations runs every migration not yet recorded in schema_migrations,
// each in its own transaction. It returns the versions applied.
func (s *Store) ApplyMigrations(ctx context.Context, dir string) ([]string, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	migrations, err := LoadMigrations(dir)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, createMigrationsTableSQL); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied []string
	for _, m := range migrations {
		var done bool
		if err := pool.QueryRow(ctx, migrationAppliedSQL, m.Version).Scan(&done); err != nil {
			return applied, fmt.Errorf("check migration %s: %w", m.Version, err)
		}
		if done {
			continue
		}
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, recordMigrationSQL, m.Version)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", m.Version, err)
		}
		applied = append(applied, m.Version)
	}
	return applied, nil
}

// Package migrate applies the storefront's goose migrations to Postgres.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where the SQL lives in the repository. Runs against it read
// the copy embedded in the binary, so they work from any working directory.
const DefaultDir = "pkg/migrate/migrations"

// Dialect is the goose dialect of the SQL files. SQLite deployments are
// migrated by GORM instead.
const Dialect = "postgres"

//go:embed migrations/*.sql
var embedded embed.FS

// prepare points goose at the embedded set or at a directory on disk and
// returns the directory name goose should read.
func prepare(dir string) (string, error) {
	if err := goose.SetDialect(Dialect); err != nil {
		return "", fmt.Errorf("set goose dialect: %w", err)
	}
	if dir == "" || dir == DefaultDir {
		goose.SetBaseFS(embedded)
		return "migrations", nil
	}
	goose.SetBaseFS(nil)
	return dir, nil
}

// Run executes a goose command such as up, down or status.
func Run(ctx context.Context, db *sql.DB, dir, command string, args ...string) error {
	if db == nil {
		return errors.New("db is required")
	}
	source, err := prepare(dir)
	if err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, db, source, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateTo moves the schema up or down until it sits at target.
func MigrateTo(ctx context.Context, db *sql.DB, dir string, target int64) error {
	if db == nil {
		return errors.New("db is required")
	}
	source, err := prepare(dir)
	if err != nil {
		return err
	}
	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	switch {
	case current < target:
		err = goose.UpToContext(ctx, db, source, target)
	case current > target:
		err = goose.DownToContext(ctx, db, source, target)
	}
	if err != nil {
		return fmt.Errorf("migrate %d -> %d: %w", current, target, err)
	}
	return nil
}

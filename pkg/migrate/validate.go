package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ValidateDir checks every .sql file in dir: the name must be
// <version>_<slug>.sql with a unique timestamp version, and the body must
// declare an Up section before its Down section.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("migrations dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}

	versions := map[string]string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		version, ok := parseMigrationName(name)
		if !ok {
			return fmt.Errorf("migration %q must be named <YYYYMMDDHHMMSS>_<slug>.sql", name)
		}
		if other, dup := versions[version]; dup {
			return fmt.Errorf("migrations %q and %q share version %s", other, name, version)
		}
		versions[version] = name

		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := checkSections(string(body)); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}
	if len(versions) == 0 {
		return fmt.Errorf("no migrations in %s", dir)
	}
	return nil
}

func parseMigrationName(name string) (string, bool) {
	version, slug, found := strings.Cut(strings.TrimSuffix(name, ".sql"), "_")
	if !found || slug == "" || migrationSlug(slug) != slug {
		return "", false
	}
	if _, err := time.Parse(versionLayout, version); err != nil {
		return "", false
	}
	return version, true
}

func checkSections(sql string) error {
	up := strings.Index(sql, "-- +goose Up")
	down := strings.Index(sql, "-- +goose Down")
	switch {
	case up < 0:
		return fmt.Errorf(`missing "-- +goose Up"`)
	case down < 0:
		return fmt.Errorf(`missing "-- +goose Down"`)
	case down < up:
		return fmt.Errorf("down section precedes up")
	}
	return nil
}

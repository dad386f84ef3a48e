package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/multierr"
)

const (
	upMarker   = "-- +goose Up"
	downMarker = "-- +goose Down"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks the migrations in a directory on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("dir is required")
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}
	_, err := Validate(os.DirFS(dir))
	return err
}

// Validate checks every .sql file in source and returns the versions in apply
// order. All problems are reported together rather than stopping at the first.
func Validate(source fs.FS) ([]string, error) {
	names, err := fs.Glob(source, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var problems error
	owner := make(map[string]string, len(names))
	versions := make([]string, 0, len(names))
	for _, name := range names {
		version, err := checkMigration(source, name)
		if err != nil {
			problems = multierr.Append(problems, err)
			continue
		}
		if prev, dup := owner[version]; dup {
			problems = multierr.Append(problems, fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name))
			continue
		}
		owner[version] = name
		versions = append(versions, version)
	}
	if problems != nil {
		return nil, problems
	}
	slices.Sort(versions)
	return versions, nil
}

func checkMigration(source fs.FS, name string) (string, error) {
	m := sqlFileRe.FindStringSubmatch(path.Base(name))
	if m == nil {
		return "", fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
	}
	raw, err := fs.ReadFile(source, name)
	if err != nil {
		return "", fmt.Errorf("read file %q: %w", name, err)
	}
	body := string(raw)
	up := strings.Index(body, upMarker)
	down := strings.Index(body, downMarker)
	switch {
	case up < 0:
		return "", fmt.Errorf("migration %q missing %q", name, upMarker)
	case down < 0:
		return "", fmt.Errorf("migration %q missing %q", name, downMarker)
	case down < up:
		return "", fmt.Errorf("migration %q has its Down section before Up", name)
	}
	return m[1], nil
}

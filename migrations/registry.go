// Package migrations resolves the SQL schema for persisted client storage
// and lets hosts append their own migrations to the same run.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	puthelp "github.com/goliatone/go-puthelp"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	// LabelClientStorage marks the built-in client storage schema.
	LabelClientStorage = "go-puthelp"
)

// Source is a flat directory of *.up.sql / *.down.sql files for one dialect.
type Source struct {
	Dialect string
	Label   string
	FS      fs.FS
}

type RegisterFunc func(ctx context.Context, source Source) error

type registration struct {
	targets []string
	extra   []Source
}

type Option func(*registration)

// WithValidationTargets limits registration to the given dialects.
func WithValidationTargets(dialects ...string) Option {
	return func(r *registration) {
		targets := normalizeDialects(dialects)
		if len(targets) > 0 {
			r.targets = targets
		}
	}
}

// WithFilesystems appends host migrations. They run after the client
// storage schema, in the order given.
func WithFilesystems(sources ...Source) Option {
	return func(r *registration) {
		for _, source := range sources {
			source.Dialect = normalizeDialect(source.Dialect)
			source.Label = strings.TrimSpace(source.Label)
			r.extra = append(r.extra, source)
		}
	}
}

// ClientStorage returns the built-in schema for both dialects. root defaults
// to the embedded migrations and may hold either the data/sql/migrations tree
// or the postgres files at its top level with a sqlite/ directory.
func ClientStorage(root fs.FS) ([]Source, error) {
	if root == nil {
		root = puthelp.GetMigrationsFS()
	}
	base := root
	if sub, err := fs.Sub(root, "data/sql/migrations"); err == nil {
		if _, statErr := fs.Stat(sub, "."); statErr == nil {
			base = sub
		}
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite schema: %w", err)
	}

	sources := []Source{
		{Dialect: DialectPostgres, Label: LabelClientStorage, FS: base},
		{Dialect: DialectSQLite, Label: LabelClientStorage, FS: sqliteFS},
	}
	for _, source := range sources {
		if err := requireUpFiles(source); err != nil {
			return nil, err
		}
	}
	return sources, nil
}

// Register hands every source for the targeted dialects to fn, client
// storage first, and returns what it registered.
func Register(ctx context.Context, fn RegisterFunc, opts ...Option) ([]Source, error) {
	if fn == nil {
		return nil, fmt.Errorf("migrations: register function is required")
	}
	reg := registration{targets: []string{DialectPostgres, DialectSQLite}}
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}

	sources, err := ClientStorage(nil)
	if err != nil {
		return nil, err
	}
	for i, source := range reg.extra {
		if !isKnownDialect(source.Dialect) {
			return nil, fmt.Errorf("migrations: host source %d has unsupported dialect %q", i, source.Dialect)
		}
		if source.FS == nil {
			return nil, fmt.Errorf("migrations: host source %d (%s) has no filesystem", i, source.Dialect)
		}
		if source.Label == "" {
			source.Label = fmt.Sprintf("host-%d", i+1)
		}
		if err := requireUpFiles(source); err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}

	registered := make([]Source, 0, len(sources))
	for _, source := range sources {
		if !slices.Contains(reg.targets, source.Dialect) {
			continue
		}
		if err := fn(ctx, source); err != nil {
			return registered, fmt.Errorf("migrations: register %s %s: %w", source.Label, source.Dialect, err)
		}
		registered = append(registered, source)
	}
	return registered, nil
}

func requireUpFiles(source Source) error {
	matches, err := fs.Glob(source.FS, "*.up.sql")
	if err != nil {
		return fmt.Errorf("migrations: glob %s %s: %w", source.Label, source.Dialect, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("migrations: %s %s has no *.up.sql files", source.Label, source.Dialect)
	}
	return nil
}

func isKnownDialect(dialect string) bool {
	return dialect == DialectPostgres || dialect == DialectSQLite
}

func normalizeDialect(dialect string) string {
	dialect = strings.TrimSpace(strings.ToLower(dialect))
	if dialect == "sqlite3" {
		return DialectSQLite
	}
	return dialect
}

func normalizeDialects(dialects []string) []string {
	out := make([]string, 0, len(dialects))
	for _, dialect := range dialects {
		dialect = normalizeDialect(dialect)
		if dialect != "" && !slices.Contains(out, dialect) {
			out = append(out, dialect)
		}
	}
	return out
}

// Package fixture is a SQLite-backed demonstration implementation of
// queryclient.Client: enough of a "platform" to resolve formulas and
// mirrors against without a real upstream, for the CLI and for tests.
package fixture

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go sqlite3 driver
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store owns the SQLite connection backing a fixture Client.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewStore creates a Store. logger may be nil.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger}
}

// Open opens the SQLite database at path (":memory:" for an ephemeral
// store) and runs migrations.
func (s *Store) Open(path string) error {
	s.logger.Debug("opening fixture database", "path", path)

	dsn := path + "?_foreign_keys=on"
	if path == ":memory:" {
		dsn = ":memory:?_foreign_keys=on"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open fixture database: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping fixture database: %w", err)
	}

	s.db = db
	s.path = path
	return s.migrate()
}

func (s *Store) migrate() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("run fixture migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	s.logger.Debug("closing fixture database", "path", s.path)
	return s.db.Close()
}

// DB exposes the raw connection, for seed scripts and tests that want
// to insert rows directly rather than through Store's narrow API.
func (s *Store) DB() *sql.DB { return s.db }

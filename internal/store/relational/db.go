// Package relational is the table-based backend: SQLite file database by
// default, PostgreSQL when a DSN is configured. Both run through database/sql
// with a small dialect layer; every statement is a direct parameterized
// query, no ORM.
package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const pingTimeout = 3 * time.Second

// Options selects the engine.
type Options struct {
	// Driver is "sqlite" or "postgres".
	Driver string
	// Path is the SQLite database file.
	Path string
	// DSN is the PostgreSQL connection string.
	DSN string
}

// Store is the relational backend.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
}

// Open connects, validates the connection and migrates the schema. Any
// failure here means the relational backend is unavailable; the caller
// falls back to the flat-file backend.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Store, error) {
	var (
		db  *sql.DB
		d   dialect
		err error
	)

	switch opts.Driver {
	case "sqlite", "":
		if opts.Path == "" {
			return nil, errors.New("relational: sqlite path is required")
		}
		dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", opts.Path)
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		// The modernc driver serializes access through one connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		d = sqliteDialect{}
	case "postgres":
		if opts.DSN == "" {
			return nil, errors.New("relational: postgres dsn is required")
		}
		db, err = sql.Open("pgx", opts.DSN)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		d = postgresDialect{}
	default:
		return nil, fmt.Errorf("relational: unknown driver %q", opts.Driver)
	}

	s := &Store{db: db, dialect: d, logger: logger}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("relational: ping: %w", err)
	}

	if d.Name() == "sqlite" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
			db.Close()
			return nil, err
		}
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
			db.Close()
			return nil, err
		}
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("relational: migrate: %w", err)
	}

	logger.Info("relational backend ready", zap.String("dialect", d.Name()))
	return s, nil
}

// Kind reports the backend variant.
func (s *Store) Kind() string { return "relational" }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.Rebind(query), args...)
}

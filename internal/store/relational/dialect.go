package relational

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

// dialect abstracts the differences between the SQLite file database and
// PostgreSQL. Queries are written once with ? placeholders and rebound at
// execution time.
type dialect interface {
	Name() string
	// Rebind converts ? placeholders to the engine's format.
	Rebind(query string) string
	// TableColumns returns the column names of an existing table.
	TableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error)
	// SchemaStatements returns the DDL creating the base schema.
	SchemaStatements() []string
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) TableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanColumnNames(rows)
}

func (sqliteDialect) SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY,
  username TEXT UNIQUE NOT NULL,
  password TEXT NOT NULL,
  reset_token TEXT,
  reset_expiry TEXT,
  created_at TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS stations (
  id TEXT PRIMARY KEY,
  name TEXT,
  contact TEXT,
  location TEXT,
  type TEXT,
  battery_count INTEGER DEFAULT 0,
  status TEXT,
  iot_status TEXT,
  created_at TEXT
)`,
		`CREATE TABLE IF NOT EXISTS records (
  id TEXT PRIMARY KEY,
  station_id TEXT NOT NULL REFERENCES stations(id) ON DELETE CASCADE,
  date TEXT NOT NULL,
  start_of_day INTEGER DEFAULT 0,
  given_out INTEGER DEFAULT 0,
  remaining INTEGER DEFAULT 0,
  need_repair INTEGER DEFAULT 0,
  damaged INTEGER DEFAULT 0,
  earnings REAL DEFAULT 0,
  notes TEXT,
  created_at TEXT,
  updated_at TEXT
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_records_station_date ON records(station_id, date)`,
		`CREATE TABLE IF NOT EXISTS meta (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL
)`,
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

// Rebind rewrites ? placeholders as $1..$n. Queries contain no literal
// question marks outside placeholders.
func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (postgresDialect) TableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanColumnNames(rows)
}

func (postgresDialect) SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
  id BIGINT PRIMARY KEY,
  username TEXT UNIQUE NOT NULL,
  password TEXT NOT NULL,
  reset_token TEXT,
  reset_expiry TEXT,
  created_at TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS stations (
  id TEXT PRIMARY KEY,
  name TEXT,
  contact TEXT,
  location TEXT,
  type TEXT,
  battery_count INTEGER DEFAULT 0,
  status TEXT,
  iot_status TEXT,
  created_at TEXT
)`,
		`CREATE TABLE IF NOT EXISTS records (
  id TEXT PRIMARY KEY,
  station_id TEXT NOT NULL REFERENCES stations(id) ON DELETE CASCADE,
  date TEXT NOT NULL,
  start_of_day INTEGER DEFAULT 0,
  given_out INTEGER DEFAULT 0,
  remaining INTEGER DEFAULT 0,
  need_repair INTEGER DEFAULT 0,
  damaged INTEGER DEFAULT 0,
  earnings DOUBLE PRECISION DEFAULT 0,
  notes TEXT,
  created_at TEXT,
  updated_at TEXT
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_records_station_date ON records(station_id, date)`,
		`CREATE TABLE IF NOT EXISTS meta (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL
)`,
	}
}

func scanColumnNames(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

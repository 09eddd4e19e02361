package relational

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// additiveColumns lists columns added after the original schema shipped.
// Existing installations gain them on startup without touching their rows;
// re-running is a no-op, so this is safe on every boot.
var additiveColumns = []struct {
	table  string
	column string
	ddl    string
}{
	{"records", "earnings", "earnings REAL DEFAULT 0"},
	{"records", "updated_at", "updated_at TEXT"},
	{"users", "reset_token", "reset_token TEXT"},
	{"users", "reset_expiry", "reset_expiry TEXT"},
}

// migrate creates the base schema and applies additive column migrations.
func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.SchemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	for _, ac := range additiveColumns {
		added, err := s.ensureColumn(ctx, ac.table, ac.column, ac.ddl)
		if err != nil {
			return err
		}
		if added {
			s.logger.Info("added missing column",
				zap.String("table", ac.table),
				zap.String("column", ac.column))
		}
	}
	return nil
}

// ensureColumn inspects the live column set and adds the column if absent.
func (s *Store) ensureColumn(ctx context.Context, table, column, ddl string) (bool, error) {
	cols, err := s.dialect.TableColumns(ctx, s.db, table)
	if err != nil {
		return false, fmt.Errorf("inspect %s: %w", table, err)
	}
	for _, c := range cols {
		if c == column {
			return false, nil
		}
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, ddl)); err != nil {
		return false, fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return true, nil
}

package relational

import (
	"context"
	"database/sql"
	"errors"

	"stationsync/internal/models"
)

// GetMeta reads an internal key/value pair. The empty string means the key
// was never set.
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.queryRow(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMeta writes an internal key/value pair, replacing any previous value.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.exec(ctx, `
INSERT INTO meta(key, value, updated_at) VALUES(?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, models.NowISO())
	return err
}

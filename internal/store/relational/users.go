package relational

import (
	"context"
	"database/sql"
	"errors"

	"stationsync/internal/models"
	"stationsync/internal/store"
)

const userColumns = `id, username, password, COALESCE(reset_token,''), COALESCE(reset_expiry,''), COALESCE(created_at,'')`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.ResetToken, &u.ResetTokenExpiry, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUser looks up a user by username.
func (s *Store) FindUser(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return u, err
}

// ListUsers returns all users sorted by username.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// CreateUser inserts a new user; the username must be unused.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.Username == "" {
		return &store.ValidationError{Field: "username", Reason: "required"}
	}
	if user.PasswordHash == "" {
		return &store.ValidationError{Field: "password", Reason: "required"}
	}
	if _, err := s.FindUser(ctx, user.Username); err == nil {
		return store.ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	_, err := s.exec(ctx, `
INSERT INTO users(id, username, password, reset_token, reset_expiry, created_at)
VALUES(?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, user.ResetToken, user.ResetTokenExpiry, user.CreatedAt)
	return err
}

// UpdateUserPassword replaces the stored hash and clears any reset token.
func (s *Store) UpdateUserPassword(ctx context.Context, username, passwordHash string) error {
	if passwordHash == "" {
		return &store.ValidationError{Field: "password", Reason: "required"}
	}
	res, err := s.exec(ctx,
		`UPDATE users SET password = ?, reset_token = NULL, reset_expiry = NULL WHERE username = ?`,
		passwordHash, username)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetResetToken stores or clears a password-reset token for the user.
func (s *Store) SetResetToken(ctx context.Context, username, token, expiry string) error {
	res, err := s.exec(ctx,
		`UPDATE users SET reset_token = ?, reset_expiry = ? WHERE username = ?`,
		token, expiry, username)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// FindUserByResetToken looks up the user holding an issued reset token.
func (s *Store) FindUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, store.ErrNotFound
	}
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token = ?`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return u, err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

package flatfile

import (
	"context"
	"encoding/json"
	"os"
	"sort"

	"go.uber.org/zap"

	"stationsync/internal/atomicfile"
	"stationsync/internal/models"
	"stationsync/internal/store"
)

// FindUser looks up a user by username.
func (s *Store) FindUser(ctx context.Context, username string) (*models.User, error) {
	s.muUsers.Lock()
	defer s.muUsers.Unlock()
	for i := range s.users {
		if s.users[i].Username == username {
			u := s.users[i]
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

// ListUsers returns all users sorted by username.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	s.muUsers.Lock()
	defer s.muUsers.Unlock()
	out := make([]models.User, len(s.users))
	copy(out, s.users)
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// CreateUser appends a user; the username must be unused.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.Username == "" {
		return &store.ValidationError{Field: "username", Reason: "required"}
	}
	if user.PasswordHash == "" {
		return &store.ValidationError{Field: "password", Reason: "required"}
	}

	s.muUsers.Lock()
	defer s.muUsers.Unlock()
	for i := range s.users {
		if s.users[i].Username == user.Username {
			return store.ErrConflict
		}
	}
	s.users = append(s.users, *user)
	return s.persist(UsersFile, s.users)
}

// UpdateUserPassword replaces the stored hash and clears any reset token.
func (s *Store) UpdateUserPassword(ctx context.Context, username, passwordHash string) error {
	if passwordHash == "" {
		return &store.ValidationError{Field: "password", Reason: "required"}
	}

	s.muUsers.Lock()
	defer s.muUsers.Unlock()
	for i := range s.users {
		if s.users[i].Username != username {
			continue
		}
		s.users[i].PasswordHash = passwordHash
		s.users[i].ResetToken = ""
		s.users[i].ResetTokenExpiry = ""
		return s.persist(UsersFile, s.users)
	}
	return store.ErrNotFound
}

// SetResetToken stores or clears a password-reset token for the user.
func (s *Store) SetResetToken(ctx context.Context, username, token, expiry string) error {
	s.muUsers.Lock()
	defer s.muUsers.Unlock()
	for i := range s.users {
		if s.users[i].Username != username {
			continue
		}
		s.users[i].ResetToken = token
		s.users[i].ResetTokenExpiry = expiry
		return s.persist(UsersFile, s.users)
	}
	return store.ErrNotFound
}

// FindUserByResetToken looks up the user holding an issued reset token.
func (s *Store) FindUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, store.ErrNotFound
	}
	s.muUsers.Lock()
	defer s.muUsers.Unlock()
	for i := range s.users {
		if s.users[i].ResetToken == token {
			u := s.users[i]
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

// legacyUserEntry is the value shape of the historical map-format users file:
// { "<username>": { "hash": "..." } }, occasionally with "password" or a bare
// string instead.
type legacyUserEntry struct {
	Hash     string `json:"hash"`
	Password string `json:"password"`
}

// DecodeUsers parses a users file body in either the current array shape or
// the legacy map shape. converted reports that the legacy shape was seen and
// the result should be re-persisted as an array.
func DecodeUsers(data []byte) (users []models.User, converted bool, err error) {
	if err := json.Unmarshal(data, &users); err == nil {
		return users, false, nil
	}

	var legacy map[string]json.RawMessage
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, false, err
	}

	names := make([]string, 0, len(legacy))
	for name := range legacy {
		names = append(names, name)
	}
	sort.Strings(names)

	base := models.NewUserID()
	for i, name := range names {
		raw := legacy[name]
		var entry legacyUserEntry
		hash := ""
		if err := json.Unmarshal(raw, &entry); err == nil {
			hash = entry.Hash
			if hash == "" {
				hash = entry.Password
			}
		} else {
			// Oldest format stored the bare hash string.
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				hash = s
			}
		}
		users = append(users, models.User{
			ID:           base + int64(i),
			Username:     name,
			PasswordHash: hash,
			CreatedAt:    models.NowISO(),
		})
	}
	return users, true, nil
}

// loadUsers reads the users file, converting the legacy map shape to the
// array shape once and persisting the result. This is a startup-only
// compatibility shim, never a steady-state code path.
func loadUsers(path string, logger *zap.Logger) []models.User {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	users, converted, err := DecodeUsers(data)
	if err != nil {
		logger.Warn("users file unreadable, starting empty", zap.String("path", path))
		return nil
	}
	if !converted {
		return users
	}

	if err := atomicfile.WriteJSON(path, users); err != nil {
		logger.Warn("failed to persist converted users file", zap.Error(err))
	} else {
		logger.Info("converted legacy users file to array format",
			zap.Int("users", len(users)))
	}
	return users
}

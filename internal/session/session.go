// Package session tracks logged-in dashboard sessions in redis. The tracker
// is optional: without a configured redis address every operation is a no-op
// and Active reports nothing.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ActiveSession is the cached per-login state.
type ActiveSession struct {
	Username  string `json:"username"`
	LoginAt   string `json:"loginAt"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Options configures the redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Tracker manages the active session cache.
type Tracker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewTracker connects to redis. An empty addr disables tracking; a failed
// connection also disables it rather than blocking startup.
func NewTracker(ctx context.Context, opts Options, logger *zap.Logger) *Tracker {
	if opts.Addr == "" {
		return &Tracker{logger: logger}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, session tracking disabled",
			zap.String("addr", opts.Addr), zap.Error(err))
		client.Close()
		return &Tracker{logger: logger}
	}

	logger.Info("session tracking enabled", zap.String("addr", opts.Addr))
	return &Tracker{client: client, ttl: opts.TTL, logger: logger}
}

// Enabled reports whether sessions are being tracked.
func (t *Tracker) Enabled() bool { return t.client != nil }

func (t *Tracker) key(username string) string {
	return fmt.Sprintf("sessions:active:%s", username)
}

// Save caches the session under the username with the configured TTL.
func (t *Tracker) Save(ctx context.Context, session ActiveSession) error {
	if t.client == nil {
		return nil
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return t.client.Set(ctx, t.key(session.Username), data, t.ttl).Err()
}

// Get returns the cached session for a username, or nil when absent.
func (t *Tracker) Get(ctx context.Context, username string) (*ActiveSession, error) {
	if t.client == nil {
		return nil, nil
	}
	result, err := t.client.Get(ctx, t.key(username)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session ActiveSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes the cached session.
func (t *Tracker) Delete(ctx context.Context, username string) error {
	if t.client == nil {
		return nil
	}
	return t.client.Del(ctx, t.key(username)).Err()
}

// Close releases the redis connection.
func (t *Tracker) Close() error {
	if t.client == nil {
		return nil
	}
	return t.client.Close()
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
)

// Duplicate-resolution strategies persisted in config.
const (
	StrategyHighestVoted = "highest_voted"
	StrategyOldest       = "oldest"
)

// ConfigValue returns the raw config string for key, or def when the key is
// absent.
func (s *Store) ConfigValue(ctx context.Context, key, def string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM config WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return value, nil
}

// ConfigInt returns the config value for key parsed as an integer, falling
// back to def on absence or a malformed value.
func (s *Store) ConfigInt(ctx context.Context, key string, def int) int {
	raw, err := s.ConfigValue(ctx, key, strconv.Itoa(def))
	if err != nil {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// ConfigBool returns the config value for key parsed as a boolean.
func (s *Store) ConfigBool(ctx context.Context, key string, def bool) bool {
	raw, err := s.ConfigValue(ctx, key, strconv.FormatBool(def))
	if err != nil {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

// SetConfigValue upserts a config key.
func (s *Store) SetConfigValue(ctx context.Context, key, value string) error {
	return s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO config (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, time.Now().Unix())
		return err
	})
}

// DuplicateStrategy returns the configured duplicate-resolution strategy,
// defaulting to highest_voted for unknown values.
func (s *Store) DuplicateStrategy(ctx context.Context) string {
	raw, err := s.ConfigValue(ctx, "subreddit_duplicate_strategy", StrategyHighestVoted)
	if err != nil || (raw != StrategyHighestVoted && raw != StrategyOldest) {
		return StrategyHighestVoted
	}
	return raw
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/martiantux/redditarr/internal/models"
)

// ListWorkerStatus returns the persisted enabled flag for every worker.
func (s *Store) ListWorkerStatus(ctx context.Context) ([]models.WorkerStatus, error) {
	var statuses []models.WorkerStatus
	err := s.db.SelectContext(ctx, &statuses,
		"SELECT * FROM worker_status ORDER BY worker_type ASC")
	return statuses, err
}

// SetWorkerEnabled persists the desired run state for one worker type so
// it survives restarts.
func (s *Store) SetWorkerEnabled(ctx context.Context, workerType string, enabled bool) error {
	return s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO worker_status (worker_type, enabled, last_updated)
			VALUES (?, ?, ?)
			ON CONFLICT(worker_type) DO UPDATE SET
				enabled = excluded.enabled,
				last_updated = excluded.last_updated`,
			workerType, enabled, time.Now().Unix())
		return err
	})
}

// WorkerEnabled reports the persisted run state for one worker type.
// Unknown workers default to disabled.
func (s *Store) WorkerEnabled(ctx context.Context, workerType string) (bool, error) {
	var enabled bool
	err := s.db.GetContext(ctx, &enabled,
		"SELECT enabled FROM worker_status WHERE worker_type = ?", workerType)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return enabled, err
}

package db

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/martiantux/redditarr/internal/models"
)

// SetMediaDownloaded records a finished media item with its on-disk path.
func (s *Store) SetMediaDownloaded(ctx context.Context, itemID int64, path string, status models.MediaStatus) error {
	return s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE post_media
			SET downloaded = 1, downloaded_at = ?, download_path = ?,
				media_status = ?, error = NULL
			WHERE id = ?`,
			time.Now().Unix(), path, status, itemID)
		return err
	})
}

// RecordMediaFailure stores the failure outcome on a media item and bumps
// its attempt counter.
func (s *Store) RecordMediaFailure(ctx context.Context, itemID int64, errMsg string, status models.MediaStatus) error {
	return s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE post_media
			SET downloaded = 0, error = ?, media_status = ?,
				download_attempts = download_attempts + 1, last_attempt = ?
			WHERE id = ?`,
			errMsg, status, time.Now().Unix(), itemID)
		return err
	})
}

// MarkMediaPermanentlyRemovedByURL flags every media row pointing at a URL
// the origin reported gone, so later batches skip it without a request.
// The reason lands in the error column of each flagged row.
func (s *Store) MarkMediaPermanentlyRemovedByURL(ctx context.Context, mediaURL, reason string) error {
	return s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE post_media
			SET media_status = 'permanently_removed', downloaded = 0, error = ?
			WHERE media_url = ?`, reason, mediaURL)
		return err
	})
}

// MediaForPost returns a post's media rows in position order.
func (s *Store) MediaForPost(ctx context.Context, postID string) ([]models.MediaItem, error) {
	var items []models.MediaItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM post_media WHERE post_id = ? ORDER BY position ASC", postID)
	return items, err
}

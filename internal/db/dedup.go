package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/martiantux/redditarr/internal/models"
)

// FindCanonical looks up an existing canonical file by quick hash within
// one subreddit. The post being processed is excluded so a retry never
// matches its own half-written record. Returns nil when nothing matches.
func (s *Store) FindCanonical(ctx context.Context, quickHash, subreddit, excludePostID string) (*models.CanonicalMatch, error) {
	var match models.CanonicalMatch
	err := s.db.GetContext(ctx, &match, `
		SELECT d.canonical_hash, d.canonical_path, d.first_seen_post_id,
			m.download_path,
			p.id AS owner_post_id, p.score AS owner_score,
			p.created_utc AS owner_created_utc
		FROM media_deduplication d
		JOIN posts p ON p.id = d.first_seen_post_id
		LEFT JOIN post_media m ON m.post_id = p.id AND m.download_path = d.canonical_path
		WHERE d.quick_hash = ?
		AND p.subreddit = ?
		AND p.id != ?
		LIMIT 1`, quickHash, subreddit, excludePostID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// InsertCanonical registers a freshly downloaded file as the canonical
// copy of its hash.
func (s *Store) InsertCanonical(ctx context.Context, rec models.DedupRecord) error {
	return s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO media_deduplication
			(canonical_hash, quick_hash, canonical_path, first_seen_timestamp,
			 first_seen_post_id, total_size, mime_type, duplicate_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
			rec.CanonicalHash, rec.QuickHash, rec.CanonicalPath,
			rec.FirstSeenTimestamp, rec.FirstSeenPostID, rec.TotalSize,
			rec.MimeType)
		return err
	})
}

// PromoteCanonical repoints a canonical record at a better copy. The new
// owner takes over the canonical path, every media row referencing the old
// path is repointed, and the demoted owner gets a link row.
func (s *Store) PromoteCanonical(ctx context.Context, hash, newPostID, newPath, oldPath, demotedPostID string) error {
	now := time.Now().Unix()
	return s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE media_deduplication
			SET canonical_path = ?, first_seen_post_id = ?,
				duplicate_count = duplicate_count + 1
			WHERE canonical_hash = ?`, newPath, newPostID, hash); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE post_media SET download_path = ?
			WHERE download_path = ?`, newPath, oldPath); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO media_links
			(post_id, canonical_hash, link_path, created_timestamp, is_crosspost, original_post_id)
			VALUES (?, ?, ?, ?, 0, ?)`,
			demotedPostID, hash, newPath, now, newPostID)
		return err
	})
}

// RecordDuplicate links a post to an existing canonical file and bumps the
// duplicate counter.
func (s *Store) RecordDuplicate(ctx context.Context, postID, hash, linkPath, originalPostID string) error {
	now := time.Now().Unix()
	return s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO media_links
			(post_id, canonical_hash, link_path, created_timestamp, is_crosspost, original_post_id)
			VALUES (?, ?, ?, ?, 0, ?)`,
			postID, hash, linkPath, now, originalPostID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE media_deduplication
			SET duplicate_count = duplicate_count + 1
			WHERE canonical_hash = ?`, hash)
		return err
	})
}

// GetDedupRecord fetches one canonical record, nil when absent.
func (s *Store) GetDedupRecord(ctx context.Context, hash string) (*models.DedupRecord, error) {
	var rec models.DedupRecord
	err := s.db.GetContext(ctx, &rec,
		"SELECT * FROM media_deduplication WHERE canonical_hash = ?", hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

package db

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/martiantux/redditarr/internal/models"
)

// SavePosts upserts a batch of indexed posts and their media rows in one
// transaction. The initial media status is derived from what the indexer
// delivered: media-typed posts with no usable URLs are flagged so the
// scheduler never selects them.
func (s *Store) SavePosts(ctx context.Context, posts []models.IndexedPost, subreddit string) error {
	subreddit = strings.ToLower(subreddit)
	now := time.Now().Unix()

	return s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		for _, ip := range posts {
			post := ip.Post
			post.Subreddit = subreddit

			status := models.MediaStatusPending
			if post.PostType.HasMedia() {
				var valid int
				for _, item := range ip.Media {
					if item.MediaURL != "" {
						valid++
					}
				}
				switch {
				case len(ip.Media) > 0 && valid == 0:
					status = models.MediaStatusError
					log.Printf("Post %s has no valid media URLs", post.ID)
				case valid < len(ip.Media):
					status = models.MediaStatusTemporarilyUnavail
					log.Printf("Post %s has %d/%d valid media URLs", post.ID, valid, len(ip.Media))
				}
			}

			// Reindexing refreshes listing fields only; download and
			// comment progress on existing rows is preserved.
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO posts
				(id, subreddit, author, title, url, created_utc, score, post_type,
				 selftext, media_status, expected_comment_count, last_status_check)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					author = excluded.author,
					title = excluded.title,
					url = excluded.url,
					score = excluded.score,
					selftext = excluded.selftext,
					expected_comment_count = excluded.expected_comment_count,
					last_status_check = excluded.last_status_check`,
				post.ID, subreddit, post.Author, post.Title, post.URL,
				post.CreatedUTC, post.Score, post.PostType, post.Selftext,
				status, post.ExpectedCommentCount, now); err != nil {
				return err
			}

			for pos, item := range ip.Media {
				if item.MediaURL == "" {
					continue
				}
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO post_media
					(post_id, media_url, media_type, original_url, position,
					 downloaded, download_attempts, last_attempt, media_status)
					VALUES (?, ?, ?, ?, ?, 0, 0, ?, 'pending')
					ON CONFLICT(post_id, position) DO NOTHING`,
					post.ID, item.MediaURL, item.MediaType, item.OriginalURL, pos, now); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// MarkPostDownloaded records the final outcome of processing a post. On
// success the error column is cleared; on failure downloaded stays 0 and
// the error plus terminal status are persisted so nothing fails silently.
func (s *Store) MarkPostDownloaded(ctx context.Context, postID string, success bool, errMsg string, status models.MediaStatus) error {
	return s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		if success {
			_, err := tx.ExecContext(ctx, `
				UPDATE posts
				SET downloaded = 1, downloaded_at = ?, error = NULL, media_status = ?
				WHERE id = ?`,
				time.Now().Unix(), status, postID)
			return err
		}
		var msg *string
		if errMsg != "" {
			msg = &errMsg
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE posts
			SET downloaded = 0, error = ?, media_status = ?
			WHERE id = ?`,
			msg, status, postID)
		return err
	})
}

// SetPostMediaStatus updates only the media status of a post, clearing any
// stored error. Used for text posts and other not-applicable outcomes.
func (s *Store) SetPostMediaStatus(ctx context.Context, postID string, status models.MediaStatus) error {
	return s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE posts SET media_status = ?, error = NULL WHERE id = ?`,
			status, postID)
		return err
	})
}

// GetPendingDownloads returns undownloaded, error-free posts for one
// subreddit ordered by score, each with its media rows in position order.
// Posts qualify when they have at least one media row or a post type that
// implies media.
func (s *Store) GetPendingDownloads(ctx context.Context, subreddit string, limit int) ([]models.IndexedPost, error) {
	subreddit = strings.ToLower(subreddit)

	var posts []models.Post
	err := s.db.SelectContext(ctx, &posts, `
		SELECT p.* FROM posts p
		WHERE p.subreddit = ?
		AND p.downloaded = 0
		AND p.error IS NULL
		AND (
			EXISTS (SELECT 1 FROM post_media m WHERE m.post_id = p.id AND m.media_url != '')
			OR p.post_type IN ('image', 'video', 'gallery')
		)
		ORDER BY p.score DESC, p.created_utc DESC
		LIMIT ?`, subreddit, limit)
	if err != nil || len(posts) == 0 {
		return nil, err
	}

	ids := make([]string, len(posts))
	byID := make(map[string]int, len(posts))
	result := make([]models.IndexedPost, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		byID[p.ID] = i
		result[i] = models.IndexedPost{Post: p}
	}

	query, args, err := sqlx.In(`
		SELECT * FROM post_media
		WHERE post_id IN (?)
		ORDER BY post_id, position ASC`, ids)
	if err != nil {
		return nil, err
	}
	var items []models.MediaItem
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, item := range items {
		if i, ok := byID[item.PostID]; ok {
			result[i].Media = append(result[i].Media, item)
		}
	}
	return result, nil
}

// CommentBacklogEntry is a post selected for comment fetching.
type CommentBacklogEntry struct {
	PostID        string `db:"id"`
	Subreddit     string `db:"subreddit"`
	Expected      int    `db:"expected"`
	Current       int    `db:"current"`
	FetchAttempts int    `db:"attempts"`
}

// PendingCommentPosts returns posts whose comment trees are missing or
// incomplete, highest score first. Posts are retried at most three times.
func (s *Store) PendingCommentPosts(ctx context.Context, limit int) ([]CommentBacklogEntry, error) {
	var entries []CommentBacklogEntry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT p.id, p.subreddit,
			COALESCE(p.expected_comment_count, 0) AS expected,
			COALESCE(c.cnt, 0) AS "current",
			p.comment_fetch_attempts AS attempts
		FROM posts p
		LEFT JOIN (
			SELECT post_id, COUNT(*) AS cnt FROM comments GROUP BY post_id
		) c ON c.post_id = p.id
		WHERE (
			(c.cnt IS NULL AND p.comment_fetch_attempts = 0)
			OR (
				COALESCE(p.expected_comment_count, 0) > COALESCE(c.cnt, 0)
				AND COALESCE(p.expected_comment_count, 0) > 0
				AND p.comment_fetch_attempts < 3
			)
		)
		AND p.error IS NULL
		ORDER BY p.score DESC
		LIMIT ?`, limit)
	return entries, err
}

// ReclassifyStuckPosts marks posts that have sat in pending media state
// beyond the staleness threshold as errored so they stop shadowing the
// backlog. Returns the number of posts reclassified.
func (s *Store) ReclassifyStuckPosts(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).Unix()
	var affected int64
	err := s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE posts
			SET media_status = 'error',
				error = 'download timeout - post stuck in pending state',
				downloaded = 0
			WHERE media_status = 'pending'
			AND last_status_check < ?
			AND error IS NULL`, cutoff)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// GetPost fetches one post row.
func (s *Store) GetPost(ctx context.Context, id string) (models.Post, error) {
	var post models.Post
	err := s.db.GetContext(ctx, &post, "SELECT * FROM posts WHERE id = ?", id)
	return post, err
}

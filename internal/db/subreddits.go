package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/martiantux/redditarr/internal/models"
)

// AddSubreddit inserts or re-registers a subreddit in pending status. The
// name is case-normalized so lookups and the media directory layout agree.
func (s *Store) AddSubreddit(ctx context.Context, name string, over18 bool) error {
	name = strings.ToLower(name)
	return s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO subreddits (name, over_18, status, last_updated)
			VALUES (?, ?, 'pending', ?)
			ON CONFLICT(name) DO UPDATE SET
				over_18 = excluded.over_18,
				status = 'pending',
				error_message = NULL,
				last_updated = excluded.last_updated`,
			name, over18, time.Now().Unix())
		return err
	})
}

// UpdateSubredditStatus moves a subreddit through the indexing lifecycle.
// errorMessage is cleared unless status is error.
func (s *Store) UpdateSubredditStatus(ctx context.Context, name string, status models.SubredditStatus, errorMessage string) error {
	name = strings.ToLower(name)
	return s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		var msg *string
		if errorMessage != "" {
			msg = &errorMessage
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE subreddits SET status = ?, error_message = ?, last_updated = ?
			WHERE name = ?`,
			status, msg, time.Now().Unix(), name)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("subreddit %s not found", name)
		}
		return nil
	})
}

// UpdateSubredditInfo applies metadata fetched from the source platform.
func (s *Store) UpdateSubredditInfo(ctx context.Context, sub models.Subreddit) error {
	sub.Name = strings.ToLower(sub.Name)
	return s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE subreddits
			SET title = ?, description = ?, subscriber_count = ?, over_18 = ?, last_updated = ?
			WHERE name = ?`,
			sub.Title, sub.Description, sub.SubscriberCount, sub.Over18, time.Now().Unix(), sub.Name)
		return err
	})
}

// GetSubreddit fetches a single subreddit row, or nil when absent.
func (s *Store) GetSubreddit(ctx context.Context, name string) (*models.Subreddit, error) {
	var sub models.Subreddit
	err := s.db.GetContext(ctx, &sub, "SELECT * FROM subreddits WHERE name = ?", strings.ToLower(name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubreddits returns all subreddits in the requested content-safety
// partition with download aggregates attached.
func (s *Store) ListSubreddits(ctx context.Context, nsfwMode bool) ([]models.SubredditStats, error) {
	var subs []models.SubredditStats
	err := s.db.SelectContext(ctx, &subs, `
		SELECT s.*,
			COUNT(p.id) AS total_posts,
			COALESCE(SUM(CASE WHEN p.downloaded = 1 THEN 1 ELSE 0 END), 0) AS downloaded_count,
			COALESCE(SUM(CASE WHEN p.post_type = 'image' THEN 1 ELSE 0 END), 0) AS image_count,
			COALESCE(SUM(CASE WHEN p.post_type = 'video' THEN 1 ELSE 0 END), 0) AS video_count
		FROM subreddits s
		LEFT JOIN posts p ON p.subreddit = s.name
		WHERE s.over_18 = ?
		GROUP BY s.name
		ORDER BY s.name ASC`, nsfwMode)
	return subs, err
}

// SubredditPick is the fairness selection result: the ready subreddit with
// the lowest download completion.
type SubredditPick struct {
	Name            string  `db:"name"`
	TotalPosts      int     `db:"total_posts"`
	DownloadedCount int     `db:"downloaded_count"`
	PercentComplete float64 `db:"percent_complete"`
}

// NextSubredditForDownload selects the ready subreddit with the lowest
// completion percentage among those that still have an undownloaded,
// error-free post with discoverable media. Ties break toward the larger
// subreddit so big backlogs are not perpetually deferred by empty peers.
func (s *Store) NextSubredditForDownload(ctx context.Context) (*SubredditPick, error) {
	var pick SubredditPick
	err := s.db.GetContext(ctx, &pick, `
		WITH subreddit_stats AS (
			SELECT s.name,
				COUNT(p.id) AS total_posts,
				COALESCE(SUM(CASE WHEN p.downloaded = 1 THEN 1 ELSE 0 END), 0) AS downloaded_count
			FROM subreddits s
			JOIN posts p ON p.subreddit = s.name
			WHERE s.status = 'ready'
			AND EXISTS (
				SELECT 1 FROM posts q
				WHERE q.subreddit = s.name
				AND q.downloaded = 0
				AND q.error IS NULL
				AND (
					EXISTS (SELECT 1 FROM post_media m WHERE m.post_id = q.id AND m.media_url != '')
					OR q.post_type IN ('image', 'video', 'gallery')
				)
			)
			GROUP BY s.name
		)
		SELECT name, total_posts, downloaded_count,
			CAST(downloaded_count AS REAL) / CAST(total_posts AS REAL) AS percent_complete
		FROM subreddit_stats
		ORDER BY percent_complete ASC, total_posts DESC
		LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pick, nil
}

// PendingMetadataSubreddits returns subreddits awaiting their first index,
// oldest-updated first.
func (s *Store) PendingMetadataSubreddits(ctx context.Context, limit int) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names, `
		SELECT name FROM subreddits
		WHERE status = 'pending'
		ORDER BY COALESCE(last_updated, 0) ASC
		LIMIT ?`, limit)
	return names, err
}

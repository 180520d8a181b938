package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/martiantux/redditarr/internal/models"
)

// SaveComments replaces a post's comment tree and updates the comment
// bookkeeping on the post row in one transaction. On failure the rollback
// reason is recorded on the post before the error is returned.
func (s *Store) SaveComments(ctx context.Context, postID string, comments []models.Comment) error {
	now := time.Now().Unix()

	err := s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM comments WHERE post_id = ?", postID); err != nil {
			return fmt.Errorf("clearing comments: %w", err)
		}
		for _, c := range comments {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO comments
				(id, post_id, parent_id, author, body, created_utc, score,
				 edited, depth, path, downloaded_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				c.ID, postID, c.ParentID, c.Author, c.Body, c.CreatedUTC,
				c.Score, c.Edited, c.Depth, c.Path, now); err != nil {
				return fmt.Errorf("inserting comment %s: %w", c.ID, err)
			}
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE posts
			SET comment_count = ?, last_comment_update = ?,
				comment_fetch_attempts = comment_fetch_attempts + 1,
				last_comment_failure = NULL
			WHERE id = ?`,
			len(comments), now, postID)
		return err
	})
	if err != nil {
		s.recordCommentFailure(ctx, postID, err.Error())
		return err
	}
	return nil
}

// TouchCommentAttempt bumps the attempt counter for a post that returned
// no comments, so empty threads do not stay in the backlog forever.
func (s *Store) TouchCommentAttempt(ctx context.Context, postID string) error {
	return s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE posts
			SET comment_fetch_attempts = comment_fetch_attempts + 1,
				last_comment_update = ?
			WHERE id = ?`,
			time.Now().Unix(), postID)
		return err
	})
}

// RecordCommentFailure stores a fetch failure reason and bumps the
// attempt counter.
func (s *Store) RecordCommentFailure(ctx context.Context, postID, reason string) error {
	return s.withWriteTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE posts
			SET last_comment_failure = ?,
				comment_fetch_attempts = comment_fetch_attempts + 1
			WHERE id = ?`,
			reason, postID)
		return err
	})
}

func (s *Store) recordCommentFailure(ctx context.Context, postID, reason string) {
	if err := s.RecordCommentFailure(ctx, postID, reason); err != nil {
		log.Printf("Failed to record comment failure for post %s: %v", postID, err)
	}
}

// CommentsForPost returns a post's comments ordered by materialized path,
// which yields depth-first thread order.
func (s *Store) CommentsForPost(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.SelectContext(ctx, &comments,
		"SELECT * FROM comments WHERE post_id = ? ORDER BY path ASC", postID)
	return comments, err
}

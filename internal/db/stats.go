package db

import "context"

// DownloadStats summarizes acquisition progress across all subreddits.
type DownloadStats struct {
	TotalPosts         int   `db:"total_posts" json:"total_posts"`
	DownloadedPosts    int   `db:"downloaded_posts" json:"downloaded_posts"`
	PendingPosts       int   `db:"pending_posts" json:"pending_posts"`
	ErroredPosts       int   `db:"errored_posts" json:"errored_posts"`
	PermanentlyRemoved int   `db:"permanently_removed" json:"permanently_removed"`
	TotalComments      int   `db:"total_comments" json:"total_comments"`
	CanonicalFiles     int   `db:"canonical_files" json:"canonical_files"`
	DuplicatesAvoided  int   `db:"duplicates_avoided" json:"duplicates_avoided"`
	BytesSaved         int64 `db:"bytes_saved" json:"bytes_saved"`
}

// GetDownloadStats aggregates post, comment and deduplication counters.
func (s *Store) GetDownloadStats(ctx context.Context) (DownloadStats, error) {
	var stats DownloadStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT
			(SELECT COUNT(*) FROM posts) AS total_posts,
			(SELECT COUNT(*) FROM posts WHERE downloaded = 1) AS downloaded_posts,
			(SELECT COUNT(*) FROM posts WHERE downloaded = 0 AND error IS NULL
				AND media_status = 'pending') AS pending_posts,
			(SELECT COUNT(*) FROM posts WHERE media_status = 'error') AS errored_posts,
			(SELECT COUNT(*) FROM posts WHERE media_status = 'permanently_removed') AS permanently_removed,
			(SELECT COUNT(*) FROM comments) AS total_comments,
			(SELECT COUNT(*) FROM media_deduplication) AS canonical_files,
			(SELECT COALESCE(SUM(duplicate_count), 0) FROM media_deduplication) AS duplicates_avoided,
			(SELECT COALESCE(SUM(total_size * duplicate_count), 0) FROM media_deduplication) AS bytes_saved`)
	return stats, err
}

package models

// Post is an indexed Reddit post. The pipeline owns the row once inserted:
// the scheduler mutates status/attempt fields and fetch handlers mutate
// status/error until the post reaches a terminal state.
type Post struct {
	ID                   string      `db:"id"`
	Subreddit            string      `db:"subreddit"`
	Author               *string     `db:"author"`
	Title                *string     `db:"title"`
	URL                  *string     `db:"url"`
	CreatedUTC           int64       `db:"created_utc"`
	Score                int64       `db:"score"`
	PostType             PostType    `db:"post_type"`
	Selftext             *string     `db:"selftext"`
	Downloaded           bool        `db:"downloaded"`
	DownloadedAt         *int64      `db:"downloaded_at"`
	Error                *string     `db:"error"`
	MediaStatus          MediaStatus `db:"media_status"`
	LastCommentUpdate    *int64      `db:"last_comment_update"`
	CommentCount         int         `db:"comment_count"`
	ExpectedCommentCount *int        `db:"expected_comment_count"`
	CommentFetchAttempts int         `db:"comment_fetch_attempts"`
	LastCommentFailure   *string     `db:"last_comment_failure"`
	LastStatusCheck      *int64      `db:"last_status_check"`
}

// MediaItem is one downloadable unit belonging to a post, ordered by
// Position. Items are independent: one item's permanent failure does not
// block the others.
type MediaItem struct {
	ID               int64       `db:"id"`
	PostID           string      `db:"post_id"`
	MediaURL         string      `db:"media_url"`
	MediaType        string      `db:"media_type"`
	OriginalURL      *string     `db:"original_url"`
	DownloadPath     *string     `db:"download_path"`
	Position         int         `db:"position"`
	Downloaded       bool        `db:"downloaded"`
	DownloadedAt     *int64      `db:"downloaded_at"`
	Error            *string     `db:"error"`
	DownloadAttempts int         `db:"download_attempts"`
	LastAttempt      *int64      `db:"last_attempt"`
	MediaStatus      MediaStatus `db:"media_status"`
}

// IndexedPost bundles a post with its media rows as returned by the source
// API client and consumed by SavePosts.
type IndexedPost struct {
	Post  Post
	Media []MediaItem
}

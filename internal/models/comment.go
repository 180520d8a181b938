package models

// Comment is one node of a post's comment tree, flattened with a
// materialized path. ParentID is nil for top-level comments. Path is the
// slash-joined chain of ancestor ids ending in this comment's id; it is
// what ordering and subtree queries key on.
type Comment struct {
	ID           string  `db:"id"`
	PostID       string  `db:"post_id"`
	ParentID     *string `db:"parent_id"`
	Author       *string `db:"author"`
	Body         string  `db:"body"`
	CreatedUTC   int64   `db:"created_utc"`
	Score        int64   `db:"score"`
	Edited       bool    `db:"edited"`
	Depth        int     `db:"depth"`
	Path         string  `db:"path"`
	DownloadedAt *int64  `db:"downloaded_at"`
}

package models

// DedupRecord is the canonical entry for one distinct media payload within
// a subreddit. Exactly one record exists per canonical hash per subreddit
// scope; CanonicalPath always points at an existing file whose content
// hashes to CanonicalHash.
type DedupRecord struct {
	ID                 int64  `db:"id"`
	CanonicalHash      string `db:"canonical_hash"`
	QuickHash          string `db:"quick_hash"`
	CanonicalPath      string `db:"canonical_path"`
	FirstSeenTimestamp int64  `db:"first_seen_timestamp"`
	FirstSeenPostID    string `db:"first_seen_post_id"`
	TotalSize          int64  `db:"total_size"`
	MimeType           string `db:"mime_type"`
	DuplicateCount     int    `db:"duplicate_count"`
}

// CanonicalMatch is a dedup lookup hit: the canonical record joined with
// the owning post's ranking fields, which the duplicate strategy compares
// against the incoming post.
type CanonicalMatch struct {
	CanonicalHash   string  `db:"canonical_hash"`
	CanonicalPath   string  `db:"canonical_path"`
	FirstSeenPostID string  `db:"first_seen_post_id"`
	DownloadPath    *string `db:"download_path"`
	OwnerPostID     string  `db:"owner_post_id"`
	OwnerScore      int64   `db:"owner_score"`
	OwnerCreatedUTC int64   `db:"owner_created_utc"`
}

// MediaLink records that a post's media resolves to a canonical file owned
// by another post. LinkPath is the effective path a client should read.
type MediaLink struct {
	ID               int64   `db:"id"`
	PostID           string  `db:"post_id"`
	CanonicalHash    string  `db:"canonical_hash"`
	LinkPath         string  `db:"link_path"`
	CreatedTimestamp int64   `db:"created_timestamp"`
	IsCrosspost      bool    `db:"is_crosspost"`
	OriginalPostID   *string `db:"original_post_id"`
}

// WorkerStatus is the persisted enable flag for a named worker, independent
// of the in-memory queue running state.
type WorkerStatus struct {
	WorkerType  string `db:"worker_type"`
	Enabled     bool   `db:"enabled"`
	LastUpdated int64  `db:"last_updated"`
}

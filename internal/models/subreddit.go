package models

// Subreddit is a monitored community. Name is case-normalized (lowercase)
// and unique. Over18 partitions the catalog into the two content-safety
// views.
type Subreddit struct {
	Name            string          `db:"name"`
	Title           *string         `db:"title"`
	Description     *string         `db:"description"`
	SubscriberCount *int64          `db:"subscriber_count"`
	Over18          bool            `db:"over_18"`
	Status          SubredditStatus `db:"status"`
	ErrorMessage    *string         `db:"error_message"`
	LastUpdated     *int64          `db:"last_updated"`
}

// SubredditStats is a subreddit row with download aggregates attached, as
// served by the listing endpoint.
type SubredditStats struct {
	Subreddit
	TotalPosts      int   `db:"total_posts"`
	DownloadedCount int   `db:"downloaded_count"`
	ImageCount      int   `db:"image_count"`
	VideoCount      int   `db:"video_count"`
	DiskUsage       int64 `db:"-"`
}

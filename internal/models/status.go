package models

import (
	"database/sql/driver"
	"fmt"
	"log"
)

// MediaStatus is the persisted download state of a post or media item.
// Values are stored as plain strings for compatibility with existing
// databases; unknown strings decode to MediaStatusUnknown with a logged
// warning so schema drift is visible instead of silently swallowed.
type MediaStatus string

const (
	MediaStatusPending            MediaStatus = "pending"
	MediaStatusDownloaded         MediaStatus = "downloaded"
	MediaStatusPermanentlyRemoved MediaStatus = "permanently_removed"
	MediaStatusTemporarilyUnavail MediaStatus = "temporarily_unavailable"
	MediaStatusError              MediaStatus = "error"
	MediaStatusDuplicate          MediaStatus = "duplicate"
	MediaStatusNotApplicable      MediaStatus = "not_applicable"
	MediaStatusUnknown            MediaStatus = "unknown"
)

// ParseMediaStatus decodes a persisted status string.
func ParseMediaStatus(s string) MediaStatus {
	switch MediaStatus(s) {
	case MediaStatusPending, MediaStatusDownloaded, MediaStatusPermanentlyRemoved,
		MediaStatusTemporarilyUnavail, MediaStatusError, MediaStatusDuplicate,
		MediaStatusNotApplicable:
		return MediaStatus(s)
	}
	log.Printf("models: unknown media_status %q in database", s)
	return MediaStatusUnknown
}

func (m *MediaStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = MediaStatusPending
	case string:
		*m = ParseMediaStatus(v)
	case []byte:
		*m = ParseMediaStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MediaStatus", src)
	}
	return nil
}

func (m MediaStatus) Value() (driver.Value, error) {
	return string(m), nil
}

// PostType classifies what kind of content a post carries.
type PostType string

const (
	PostTypeText    PostType = "text"
	PostTypeImage   PostType = "image"
	PostTypeVideo   PostType = "video"
	PostTypeGallery PostType = "gallery"
	PostTypeUnknown PostType = "unknown"
)

// HasMedia reports whether the post type implies downloadable media even
// when no media rows were indexed for it.
func (p PostType) HasMedia() bool {
	return p == PostTypeImage || p == PostTypeVideo || p == PostTypeGallery
}

func ParsePostType(s string) PostType {
	switch PostType(s) {
	case PostTypeText, PostTypeImage, PostTypeVideo, PostTypeGallery:
		return PostType(s)
	}
	if s != string(PostTypeUnknown) {
		log.Printf("models: unknown post_type %q in database", s)
	}
	return PostTypeUnknown
}

func (p *PostType) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = PostTypeUnknown
	case string:
		*p = ParsePostType(v)
	case []byte:
		*p = ParsePostType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into PostType", src)
	}
	return nil
}

func (p PostType) Value() (driver.Value, error) {
	return string(p), nil
}

// SubredditStatus tracks a subreddit through the indexing lifecycle.
type SubredditStatus string

const (
	SubredditStatusPending  SubredditStatus = "pending"
	SubredditStatusIndexing SubredditStatus = "indexing"
	SubredditStatusReady    SubredditStatus = "ready"
	SubredditStatusError    SubredditStatus = "error"
	SubredditStatusUnknown  SubredditStatus = "unknown"
)

func ParseSubredditStatus(s string) SubredditStatus {
	switch SubredditStatus(s) {
	case SubredditStatusPending, SubredditStatusIndexing, SubredditStatusReady, SubredditStatusError:
		return SubredditStatus(s)
	}
	log.Printf("models: unknown subreddit status %q in database", s)
	return SubredditStatusUnknown
}

func (s *SubredditStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = SubredditStatusPending
	case string:
		*s = ParseSubredditStatus(v)
	case []byte:
		*s = ParseSubredditStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into SubredditStatus", src)
	}
	return nil
}

func (s SubredditStatus) Value() (driver.Value, error) {
	return string(s), nil
}

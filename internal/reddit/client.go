// Package reddit fetches subreddit metadata, post listings and comment
// trees from the public JSON endpoints.
package reddit

import (
	"context"

	"github.com/martiantux/redditarr/internal/models"
)

// Client is the boundary the pipeline uses to talk to reddit. Implemented
// by the live API client and by fakes in tests.
type Client interface {
	// SubredditInfo fetches display metadata for one subreddit.
	SubredditInfo(ctx context.Context, name string) (*models.Subreddit, error)
	// Posts fetches one listing (hot, top, new) with extracted media.
	Posts(ctx context.Context, subreddit, listing string, limit int) ([]models.IndexedPost, error)
	// Comments fetches a post's comment tree flattened in thread order.
	Comments(ctx context.Context, subreddit, postID string, maxDepth int) ([]models.Comment, error)
}

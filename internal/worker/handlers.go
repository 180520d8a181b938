package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/martiantux/redditarr/internal/models"
	"github.com/martiantux/redditarr/pkg/tasks"
)

func (m *Manager) handleMediaTask(ctx context.Context, task tasks.Task) error {
	t, ok := task.(tasks.MediaDownloadTask)
	if !ok {
		return fmt.Errorf("media worker received %T", task)
	}
	post, err := m.store.GetPost(ctx, t.PostID)
	if err != nil {
		return fmt.Errorf("loading post %s: %w", t.PostID, err)
	}
	media, err := m.store.MediaForPost(ctx, t.PostID)
	if err != nil {
		return fmt.Errorf("loading media for post %s: %w", t.PostID, err)
	}
	return m.dl.ProcessPost(ctx, models.IndexedPost{Post: post, Media: media})
}

func (m *Manager) handleCommentTask(ctx context.Context, task tasks.Task) error {
	t, ok := task.(tasks.CommentFetchTask)
	if !ok {
		return fmt.Errorf("comment worker received %T", task)
	}
	depth := m.store.ConfigInt(ctx, "comment_depth", 10)
	comments, err := m.client.Comments(ctx, t.Subreddit, t.PostID, depth)
	if err != nil {
		if recErr := m.store.RecordCommentFailure(ctx, t.PostID, err.Error()); recErr != nil {
			log.Printf("Failed to record comment failure for post %s: %v", t.PostID, recErr)
		}
		return fmt.Errorf("fetching comments for post %s: %w", t.PostID, err)
	}
	if len(comments) == 0 {
		return m.store.TouchCommentAttempt(ctx, t.PostID)
	}
	return m.store.SaveComments(ctx, t.PostID, comments)
}

// handleMetadataTask walks a subreddit through indexing: info refresh,
// hot and top listings merged by post id, then ready or error.
func (m *Manager) handleMetadataTask(ctx context.Context, task tasks.Task) error {
	t, ok := task.(tasks.MetadataFetchTask)
	if !ok {
		return fmt.Errorf("metadata worker received %T", task)
	}

	if err := m.store.UpdateSubredditStatus(ctx, t.Subreddit, models.SubredditStatusIndexing, ""); err != nil {
		return err
	}
	if err := m.indexSubreddit(ctx, t.Subreddit); err != nil {
		if stErr := m.store.UpdateSubredditStatus(ctx, t.Subreddit, models.SubredditStatusError, err.Error()); stErr != nil {
			log.Printf("Failed to record error on r/%s: %v", t.Subreddit, stErr)
		}
		return fmt.Errorf("indexing r/%s: %w", t.Subreddit, err)
	}
	return m.store.UpdateSubredditStatus(ctx, t.Subreddit, models.SubredditStatusReady, "")
}

func (m *Manager) indexSubreddit(ctx context.Context, name string) error {
	info, err := m.client.SubredditInfo(ctx, name)
	if err != nil {
		return fmt.Errorf("fetching info: %w", err)
	}
	if err := m.store.UpdateSubredditInfo(ctx, *info); err != nil {
		return fmt.Errorf("saving info: %w", err)
	}

	hot, err := m.client.Posts(ctx, name, "hot", listingPageSize)
	if err != nil {
		return fmt.Errorf("fetching hot listing: %w", err)
	}
	top, err := m.client.Posts(ctx, name, "top", listingPageSize)
	if err != nil {
		return fmt.Errorf("fetching top listing: %w", err)
	}

	merged := mergePostings(hot, top)
	if len(merged) == 0 {
		log.Printf("r/%s returned no posts", name)
		return nil
	}
	if err := m.store.SavePosts(ctx, merged, name); err != nil {
		return fmt.Errorf("saving posts: %w", err)
	}
	log.Printf("Indexed %d posts from r/%s", len(merged), name)
	return nil
}

// mergePostings unions listings keeping the first occurrence of each id.
func mergePostings(listings ...[]models.IndexedPost) []models.IndexedPost {
	seen := make(map[string]struct{})
	var merged []models.IndexedPost
	for _, l := range listings {
		for _, post := range l {
			if _, dup := seen[post.Post.ID]; dup {
				continue
			}
			seen[post.Post.ID] = struct{}{}
			merged = append(merged, post)
		}
	}
	return merged
}

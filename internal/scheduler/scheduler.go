// Package scheduler decides which posts the media queue works on next.
// Subreddits are served fairly by completion percentage so a huge backlog
// in one community cannot starve the others.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/martiantux/redditarr/internal/db"
	"github.com/martiantux/redditarr/pkg/tasks"
)

const (
	defaultBatchSize  = 50
	defaultBatchDelay = 300 * time.Second
)

// Scheduler produces media download batches from persistent state. Batch
// size and idle delay are read from config on every cycle so operator
// changes apply without a restart.
type Scheduler struct {
	store *db.Store
}

// New builds a scheduler.
func New(store *db.Store) *Scheduler {
	return &Scheduler{store: store}
}

// NextBatch picks the least complete ready subreddit and returns its
// highest scored pending posts as media download tasks. An empty slice
// means nothing is ready.
func (s *Scheduler) NextBatch(ctx context.Context) ([]tasks.Task, error) {
	pick, err := s.store.NextSubredditForDownload(ctx)
	if err != nil {
		return nil, err
	}
	if pick == nil {
		return nil, nil
	}

	batchSize := s.store.ConfigInt(ctx, "batch_size", defaultBatchSize)
	posts, err := s.store.GetPendingDownloads(ctx, pick.Name, batchSize)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}

	batch := make([]tasks.Task, 0, len(posts))
	for _, post := range posts {
		task, err := tasks.NewMediaDownloadTask(post.Post.ID, post.Post.Subreddit)
		if err != nil {
			log.Printf("Scheduler: skipping invalid post: %v", err)
			continue
		}
		batch = append(batch, task)
	}
	log.Printf("Scheduler: queued %d posts from r/%s (%.1f%% complete)",
		len(batch), pick.Name, pick.PercentComplete*100)
	return batch, nil
}

// IdleDelay returns the configured pause between empty cycles.
func (s *Scheduler) IdleDelay(ctx context.Context) time.Duration {
	seconds := s.store.ConfigInt(ctx, "batch_delay", int(defaultBatchDelay.Seconds()))
	if seconds <= 0 {
		return defaultBatchDelay
	}
	return time.Duration(seconds) * time.Second
}

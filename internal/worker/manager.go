// Package worker wires the task queues to their handlers and manages
// their lifecycle. Each worker type runs one queue and its enabled state
// is persisted so a restart resumes where the operator left things.
package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/martiantux/redditarr/internal/db"
	"github.com/martiantux/redditarr/internal/downloader"
	"github.com/martiantux/redditarr/internal/paths"
	"github.com/martiantux/redditarr/internal/queue"
	"github.com/martiantux/redditarr/internal/reddit"
	"github.com/martiantux/redditarr/internal/scheduler"
	"github.com/martiantux/redditarr/pkg/tasks"
)

const (
	WorkerMedia    = "media"
	WorkerComments = "comments"
	WorkerMetadata = "metadata"

	stuckPostAge    = 24 * time.Hour
	staleTempAge    = 24 * time.Hour
	commentBatch    = 50
	metadataBatch   = 10
	listingPageSize = 100
)

// WorkerTypes is the closed set of controllable workers.
var WorkerTypes = []string{WorkerMedia, WorkerComments, WorkerMetadata}

// Manager owns the three acquisition queues.
type Manager struct {
	store  *db.Store
	layout *paths.Layout
	client reddit.Client
	dl     *downloader.Downloader
	sched  *scheduler.Scheduler

	queues map[string]*queue.Queue
}

// NewManager builds the queues with their handlers. Nothing runs until
// StartEnabled or SetEnabled.
func NewManager(store *db.Store, layout *paths.Layout, client reddit.Client, dl *downloader.Downloader, sched *scheduler.Scheduler) *Manager {
	m := &Manager{
		store:  store,
		layout: layout,
		client: client,
		dl:     dl,
		sched:  sched,
		queues: make(map[string]*queue.Queue),
	}

	m.queues[WorkerMedia] = queue.New(WorkerMedia, m.handleMediaTask, m.replenishMedia, queue.Options{
		IdleDelay: sched.IdleDelay,
		Sweep:     m.sweepMedia,
	})
	m.queues[WorkerComments] = queue.New(WorkerComments, m.handleCommentTask, m.replenishComments, queue.Options{})
	m.queues[WorkerMetadata] = queue.New(WorkerMetadata, m.handleMetadataTask, m.replenishMetadata, queue.Options{})
	return m
}

// ValidWorkerType reports whether name is a controllable worker.
func ValidWorkerType(name string) bool {
	for _, t := range WorkerTypes {
		if t == name {
			return true
		}
	}
	return false
}

// Queue returns the queue for one worker type, nil for unknown types.
func (m *Manager) Queue(workerType string) *queue.Queue {
	return m.queues[workerType]
}

// StartEnabled starts every worker whose persisted state is enabled.
func (m *Manager) StartEnabled(ctx context.Context) error {
	statuses, err := m.store.ListWorkerStatus(ctx)
	if err != nil {
		return fmt.Errorf("loading worker status: %w", err)
	}
	for _, st := range statuses {
		q, ok := m.queues[st.WorkerType]
		if !ok {
			log.Printf("Ignoring unknown worker type %q in database", st.WorkerType)
			continue
		}
		if st.Enabled {
			q.StartWorker(ctx)
		}
	}
	return nil
}

// SetEnabled persists the desired state and starts or stops the queue.
func (m *Manager) SetEnabled(ctx context.Context, workerType string, enabled bool) error {
	q, ok := m.queues[workerType]
	if !ok {
		return fmt.Errorf("unknown worker type %q", workerType)
	}
	if err := m.store.SetWorkerEnabled(ctx, workerType, enabled); err != nil {
		return err
	}
	if enabled {
		q.StartWorker(ctx)
	} else {
		q.Stop()
	}
	return nil
}

// StopAll stops every running queue.
func (m *Manager) StopAll() {
	for _, q := range m.queues {
		q.Stop()
	}
}

// Statuses returns a snapshot of every queue for the operator API.
func (m *Manager) Statuses(recentLimit int) map[string]queue.Status {
	out := make(map[string]queue.Status, len(m.queues))
	for name, q := range m.queues {
		out[name] = q.StatusSnapshot(recentLimit)
	}
	return out
}

// sweepMedia runs maintenance during idle media cycles: stuck posts are
// reclassified and abandoned temp files removed.
func (m *Manager) sweepMedia(ctx context.Context) error {
	n, err := m.store.ReclassifyStuckPosts(ctx, stuckPostAge)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("Reclassified %d stuck posts as errored", n)
	}
	if removed := m.layout.CleanTemp(staleTempAge); removed > 0 {
		log.Printf("Removed %d stale temp files", removed)
	}
	return nil
}

func (m *Manager) replenishMedia(ctx context.Context) ([]tasks.Task, error) {
	return m.sched.NextBatch(ctx)
}

func (m *Manager) replenishComments(ctx context.Context) ([]tasks.Task, error) {
	if !m.store.ConfigBool(ctx, "download_comments", true) {
		return nil, nil
	}
	entries, err := m.store.PendingCommentPosts(ctx, commentBatch)
	if err != nil {
		return nil, err
	}
	batch := make([]tasks.Task, 0, len(entries))
	for _, entry := range entries {
		task, err := tasks.NewCommentFetchTask(entry.PostID, entry.Subreddit)
		if err != nil {
			log.Printf("Skipping invalid comment backlog entry: %v", err)
			continue
		}
		batch = append(batch, task)
	}
	return batch, nil
}

func (m *Manager) replenishMetadata(ctx context.Context) ([]tasks.Task, error) {
	names, err := m.store.PendingMetadataSubreddits(ctx, metadataBatch)
	if err != nil {
		return nil, err
	}
	batch := make([]tasks.Task, 0, len(names))
	for _, name := range names {
		task, err := tasks.NewMetadataFetchTask(name)
		if err != nil {
			continue
		}
		batch = append(batch, task)
	}
	return batch, nil
}

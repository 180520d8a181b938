// Package downloader runs the media acquisition pipeline for one post at
// a time: URL normalization, rate limited fetch with retry, content
// validation, deduplication and status bookkeeping.
package downloader

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/martiantux/redditarr/internal/db"
	"github.com/martiantux/redditarr/internal/dedup"
	"github.com/martiantux/redditarr/internal/models"
	"github.com/martiantux/redditarr/internal/paths"
	"github.com/martiantux/redditarr/internal/ratelimit"
)

const (
	defaultMaxRetries   = 3
	defaultInitialDelay = time.Second
)

// Downloader fetches and stores the media attached to posts.
type Downloader struct {
	store    *db.Store
	layout   *paths.Layout
	limiters *ratelimit.Registry
	deduper  *dedup.Engine
	redgifs  RedgifsResolver

	httpClient   *http.Client
	userAgent    string
	maxRetries   int
	initialDelay time.Duration
}

// Option adjusts downloader behavior, mostly for tests.
type Option func(*Downloader)

// WithRetryPolicy overrides attempt count and first backoff delay.
func WithRetryPolicy(maxRetries int, initialDelay time.Duration) Option {
	return func(d *Downloader) {
		d.maxRetries = maxRetries
		d.initialDelay = initialDelay
	}
}

// WithHTTPClient overrides the transport.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) { d.httpClient = c }
}

// WithRedgifsResolver overrides the redgifs indirection.
func WithRedgifsResolver(r RedgifsResolver) Option {
	return func(d *Downloader) { d.redgifs = r }
}

// New builds a downloader.
func New(store *db.Store, layout *paths.Layout, limiters *ratelimit.Registry, deduper *dedup.Engine, userAgent string, opts ...Option) *Downloader {
	d := &Downloader{
		store:        store,
		layout:       layout,
		limiters:     limiters,
		deduper:      deduper,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		userAgent:    userAgent,
		maxRetries:   defaultMaxRetries,
		initialDelay: defaultInitialDelay,
	}
	d.redgifs = NewRedgifsResolver(d.httpClient, userAgent)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ProcessPost downloads every media item of one post. Items fail and
// succeed independently; the post's final status reflects the aggregate.
func (d *Downloader) ProcessPost(ctx context.Context, post models.IndexedPost) error {
	if post.Post.PostType == models.PostTypeText || (!post.Post.PostType.HasMedia() && len(post.Media) == 0) {
		return d.store.SetPostMediaStatus(ctx, post.Post.ID, models.MediaStatusNotApplicable)
	}

	var anyTransient, anyPermanent bool
	var firstErr string

	for _, item := range post.Media {
		if item.Downloaded || item.MediaStatus == models.MediaStatusPermanentlyRemoved {
			continue
		}
		err := d.processItem(ctx, post.Post, item)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if firstErr == "" {
			firstErr = err.Error()
		}
		if isPermanent(err) {
			anyPermanent = true
		} else {
			anyTransient = true
		}
	}

	switch {
	case anyTransient:
		return d.store.MarkPostDownloaded(ctx, post.Post.ID, false, firstErr, models.MediaStatusError)
	case anyPermanent:
		return d.store.MarkPostDownloaded(ctx, post.Post.ID, false, "Some media items failed to download", models.MediaStatusPermanentlyRemoved)
	default:
		return d.store.MarkPostDownloaded(ctx, post.Post.ID, true, "", models.MediaStatusDownloaded)
	}
}

func (d *Downloader) processItem(ctx context.Context, post models.Post, item models.MediaItem) error {
	fetchURL, err := d.prepareURL(ctx, item.MediaURL)
	if err != nil {
		return d.recordItemFailure(ctx, item, err)
	}
	service := DetectService(fetchURL)

	tempPath := d.layout.TempPath(post.ID, item.Position)
	result, err := d.DownloadWithRetry(ctx, fetchURL, service, tempPath)
	if err != nil {
		return d.recordItemFailure(ctx, item, err)
	}

	plannedRel, err := d.layout.MediaPath(post.Subreddit, post.ID, item.Position, fetchURL)
	if err != nil {
		return d.recordItemFailure(ctx, item, err)
	}
	dedupResult, err := d.deduper.Process(ctx, tempPath, plannedRel, post, result.ContentType)
	if err != nil {
		return d.recordItemFailure(ctx, item, err)
	}

	if err := d.store.SetMediaDownloaded(ctx, item.ID, dedupResult.FinalPath, dedupResult.Status); err != nil {
		return fmt.Errorf("recording download of item %d: %w", item.ID, err)
	}
	return nil
}

// recordItemFailure persists the failure and passes the original error
// back for post level aggregation.
func (d *Downloader) recordItemFailure(ctx context.Context, item models.MediaItem, cause error) error {
	status := models.MediaStatusError
	if isPermanent(cause) {
		status = models.MediaStatusPermanentlyRemoved
		if err := d.store.MarkMediaPermanentlyRemovedByURL(ctx, item.MediaURL, cause.Error()); err != nil {
			log.Printf("Failed to flag removed url %s: %v", item.MediaURL, err)
		}
	}
	if err := d.store.RecordMediaFailure(ctx, item.ID, cause.Error(), status); err != nil {
		log.Printf("Failed to record failure for item %d: %v", item.ID, err)
	}
	return cause
}

// Package dedup keeps a single canonical copy of identical media files
// per subreddit. Matching runs in two stages: a quick hash over the head
// of the file narrows candidates, the full content hash confirms.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/martiantux/redditarr/internal/db"
	"github.com/martiantux/redditarr/internal/models"
	"github.com/martiantux/redditarr/internal/paths"
)

const quickHashLen = 16

// Engine decides, for each downloaded file, whether it becomes a new
// canonical copy, replaces an existing one, or is discarded as a
// duplicate.
type Engine struct {
	store  *db.Store
	layout *paths.Layout
}

// NewEngine builds a dedup engine.
func NewEngine(store *db.Store, layout *paths.Layout) *Engine {
	return &Engine{store: store, layout: layout}
}

// HashFile computes the full content hash and the quick hash, which is
// the first 16 hex characters of the full digest.
func HashFile(path string) (full, quick string, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", 0, err
	}
	defer f.Close()

	hasher := sha256.New()
	size, err = io.Copy(hasher, f)
	if err != nil {
		return "", "", 0, err
	}
	full = hex.EncodeToString(hasher.Sum(nil))
	return full, full[:quickHashLen], size, nil
}

// Result reports where a processed file ended up.
type Result struct {
	// FinalPath is the relative path media rows should reference.
	FinalPath string
	// Status is downloaded for canonical copies, duplicate otherwise.
	Status models.MediaStatus
}

// Process resolves a staged download against the dedup index. tempPath is
// consumed: it is either moved into place or removed.
func (e *Engine) Process(ctx context.Context, tempPath, plannedRel string, post models.Post, mimeType string) (Result, error) {
	full, quick, size, err := HashFile(tempPath)
	if err != nil {
		os.Remove(tempPath)
		return Result{}, fmt.Errorf("hashing %s: %w", tempPath, err)
	}

	match, err := e.store.FindCanonical(ctx, quick, post.Subreddit, post.ID)
	if err != nil {
		os.Remove(tempPath)
		return Result{}, err
	}
	if match != nil && match.CanonicalHash != full {
		// Quick hash collision, treat as a distinct file.
		match = nil
	}

	if match == nil {
		return e.adoptCanonical(ctx, tempPath, plannedRel, post, full, quick, size, mimeType)
	}

	strategy := e.store.DuplicateStrategy(ctx)
	if newCopyWins(strategy, post, match) {
		return e.promote(ctx, tempPath, plannedRel, post, full, match)
	}
	return e.keepExisting(ctx, tempPath, post, full, match)
}

func newCopyWins(strategy string, post models.Post, match *models.CanonicalMatch) bool {
	if strategy == db.StrategyOldest {
		return post.CreatedUTC < match.OwnerCreatedUTC
	}
	return post.Score > match.OwnerScore
}

func (e *Engine) adoptCanonical(ctx context.Context, tempPath, plannedRel string, post models.Post, full, quick string, size int64, mimeType string) (Result, error) {
	if err := moveFile(tempPath, e.layout.Absolute(plannedRel)); err != nil {
		return Result{}, err
	}
	rec := models.DedupRecord{
		CanonicalHash:      full,
		QuickHash:          quick,
		CanonicalPath:      plannedRel,
		FirstSeenTimestamp: time.Now().Unix(),
		FirstSeenPostID:    post.ID,
		TotalSize:          size,
		MimeType:           mimeType,
	}
	if err := e.store.InsertCanonical(ctx, rec); err != nil {
		return Result{}, err
	}
	return Result{FinalPath: plannedRel, Status: models.MediaStatusDownloaded}, nil
}

// promote installs the new file as canonical before the old copy is
// removed, so a crash in between leaves two copies rather than none.
func (e *Engine) promote(ctx context.Context, tempPath, plannedRel string, post models.Post, full string, match *models.CanonicalMatch) (Result, error) {
	if err := moveFile(tempPath, e.layout.Absolute(plannedRel)); err != nil {
		return Result{}, err
	}
	oldPath := match.CanonicalPath
	if err := e.store.PromoteCanonical(ctx, full, post.ID, plannedRel, oldPath, match.FirstSeenPostID); err != nil {
		return Result{}, err
	}
	if err := os.Remove(e.layout.Absolute(oldPath)); err != nil && !os.IsNotExist(err) {
		log.Printf("Dedup: removing demoted copy %s: %v", oldPath, err)
	}
	return Result{FinalPath: plannedRel, Status: models.MediaStatusDownloaded}, nil
}

func (e *Engine) keepExisting(ctx context.Context, tempPath string, post models.Post, full string, match *models.CanonicalMatch) (Result, error) {
	os.Remove(tempPath)
	if err := e.store.RecordDuplicate(ctx, post.ID, full, match.CanonicalPath, match.FirstSeenPostID); err != nil {
		return Result{}, err
	}
	return Result{FinalPath: match.CanonicalPath, Status: models.MediaStatusDuplicate}, nil
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	// Rename fails across filesystems, fall back to copy and remove.
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

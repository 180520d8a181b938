// Package paths owns the on-disk layout of the archive: where final media
// files live, where in-progress downloads are staged and how extensions
// are inferred from source URLs.
package paths

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var knownExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {},
	".mp4": {}, ".webm": {}, ".webp": {},
}

var domainDefaults = map[string]string{
	"i.redd.it":   ".jpg",
	"i.imgur.com": ".jpg",
	"v.redd.it":   ".mp4",
}

// Layout resolves paths under a single data root. Media files are
// addressed relative to the root so the database stays portable across
// mounts.
type Layout struct {
	root string
}

// NewLayout creates the media and temp directories under root.
func NewLayout(root string) (*Layout, error) {
	l := &Layout{root: root}
	for _, dir := range []string{l.MediaDir(), l.TempDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return l, nil
}

// Root returns the data root.
func (l *Layout) Root() string { return l.root }

// MediaDir returns the directory holding final media files.
func (l *Layout) MediaDir() string { return filepath.Join(l.root, "media") }

// TempDir returns the staging directory for in-progress downloads.
func (l *Layout) TempDir() string { return filepath.Join(l.root, "temp") }

// MediaPath returns the relative path for one media item and ensures its
// subreddit directory exists. Position keeps gallery items distinct.
func (l *Layout) MediaPath(subreddit, postID string, position int, sourceURL string) (string, error) {
	subreddit = strings.ToLower(subreddit)
	dir := filepath.Join(l.MediaDir(), subreddit)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	ext := ExtensionFor(sourceURL)
	return filepath.Join("media", subreddit, fmt.Sprintf("%s_%d%s", postID, position, ext)), nil
}

// Absolute converts a stored relative path to an absolute one.
func (l *Layout) Absolute(rel string) string {
	return filepath.Join(l.root, rel)
}

// TempPath returns a unique staging path for a download in progress.
func (l *Layout) TempPath(postID string, position int) string {
	name := fmt.Sprintf("%s_%d_%s.part", postID, position, uuid.NewString())
	return filepath.Join(l.TempDir(), name)
}

// CleanTemp removes staging files older than maxAge, left behind by
// interrupted downloads. Returns the number of files removed.
func (l *Layout) CleanTemp(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	entries, err := os.ReadDir(l.TempDir())
	if err != nil {
		log.Printf("Temp cleanup: reading %s: %v", l.TempDir(), err)
		return 0
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(l.TempDir(), entry.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("Temp cleanup: removing %s: %v", path, err)
			continue
		}
		removed++
	}
	return removed
}

// DirSize walks a directory and sums file sizes.
func DirSize(dir string) (int64, error) {
	var total int64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// ExtensionFor infers a file extension from a media URL. Redgifs links
// always resolve to mp4. URLs with a recognized extension keep it,
// otherwise the hosting domain picks the default and anything unknown
// falls back to jpg.
func ExtensionFor(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return ".jpg"
	}
	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, "redgifs.com") {
		return ".mp4"
	}
	ext := strings.ToLower(filepath.Ext(u.Path))
	if _, ok := knownExtensions[ext]; ok {
		if ext == ".jpeg" {
			return ".jpg"
		}
		return ext
	}
	if def, ok := domainDefaults[host]; ok {
		return def
	}
	return ".jpg"
}

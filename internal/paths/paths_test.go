package paths

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLayout(t *testing.T) *Layout {
	t.Helper()
	l, err := NewLayout(t.TempDir())
	require.NoError(t, err)
	return l
}

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"https://i.redd.it/abc.png":                ".png",
		"https://i.redd.it/abc.jpeg":               ".jpg",
		"https://i.redd.it/abc":                    ".jpg",
		"https://v.redd.it/xyz":                    ".mp4",
		"https://i.imgur.com/def":                  ".jpg",
		"https://www.redgifs.com/watch/something":  ".mp4",
		"https://example.com/clip.webm":            ".webm",
		"https://example.com/page":                 ".jpg",
		"https://i.imgur.com/def.gif?extra=1":      ".gif",
		"https://cdn.example.com/v/movie.mp4?sig=": ".mp4",
	}
	for url, want := range cases {
		assert.Equal(t, want, ExtensionFor(url), "url %s", url)
	}
}

func TestMediaPath(t *testing.T) {
	l := newTestLayout(t)

	rel, err := l.MediaPath("GoLang", "abc123", 0, "https://i.redd.it/pic.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("media", "golang", "abc123_0.png"), rel)

	// Subreddit directory is created.
	info, err := os.Stat(filepath.Join(l.Root(), "media", "golang"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	rel2, err := l.MediaPath("golang", "abc123", 1, "https://i.redd.it/pic2.png")
	require.NoError(t, err)
	assert.NotEqual(t, rel, rel2)
}

func TestTempPathUnique(t *testing.T) {
	l := newTestLayout(t)
	a := l.TempPath("post1", 0)
	b := l.TempPath("post1", 0)
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, l.TempDir())
}

func TestCleanTemp(t *testing.T) {
	l := newTestLayout(t)

	stale := filepath.Join(l.TempDir(), "old.part")
	fresh := filepath.Join(l.TempDir(), "new.part")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	removed := l.CleanTemp(24 * time.Hour)
	assert.Equal(t, 1, removed)

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), make([]byte, 100), 0o644))
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b"), make([]byte, 50), 0o644))

	size, err := DirSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(150), size)
}

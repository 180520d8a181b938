package dedup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martiantux/redditarr/internal/db"
	"github.com/martiantux/redditarr/internal/models"
	"github.com/martiantux/redditarr/internal/paths"
	"github.com/martiantux/redditarr/internal/test"
)

type fixture struct {
	store  *db.Store
	layout *paths.Layout
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := test.NewTestStore(t)
	layout, err := paths.NewLayout(t.TempDir())
	require.NoError(t, err)
	return &fixture{store: store, layout: layout, engine: NewEngine(store, layout)}
}

func (f *fixture) seedPost(t *testing.T, id string, score int64, createdUTC int64) models.Post {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.AddSubreddit(ctx, "testsub", false))
	post := models.Post{
		ID:         id,
		Subreddit:  "testsub",
		CreatedUTC: createdUTC,
		Score:      score,
		PostType:   models.PostTypeImage,
	}
	require.NoError(t, f.store.SavePosts(ctx, []models.IndexedPost{{
		Post: post,
		Media: []models.MediaItem{{
			PostID: id, MediaURL: "https://i.redd.it/" + id + ".jpg", MediaType: "image",
		}},
	}}, "testsub"))
	return post
}

// stage writes content into a temp file and returns its path together
// with the relative path the file would get as a canonical copy.
func (f *fixture) stage(t *testing.T, post models.Post, content []byte) (tempPath, plannedRel string) {
	t.Helper()
	tempPath = f.layout.TempPath(post.ID, 0)
	require.NoError(t, os.WriteFile(tempPath, content, 0o644))
	plannedRel, err := f.layout.MediaPath(post.Subreddit, post.ID, 0, "https://i.redd.it/x.jpg")
	require.NoError(t, err)
	return tempPath, plannedRel
}

func mediaContent(seed byte) []byte {
	b := make([]byte, 4096)
	copy(b, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	for i := 4; i < len(b); i++ {
		b[i] = seed
	}
	return b
}

func TestFirstFileBecomesCanonical(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := f.seedPost(t, "p1", 10, 100)

	tempPath, rel := f.stage(t, post, mediaContent(1))
	result, err := f.engine.Process(ctx, tempPath, rel, post, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, rel, result.FinalPath)
	assert.Equal(t, models.MediaStatusDownloaded, result.Status)

	// Temp file consumed, final file in place.
	_, statErr := os.Stat(tempPath)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(f.layout.Absolute(rel))
	assert.NoError(t, statErr)
}

func TestLowerScoredDuplicateKeepsExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	winner := f.seedPost(t, "p1", 100, 100)
	loser := f.seedPost(t, "p2", 5, 200)
	content := mediaContent(2)

	tempPath, rel := f.stage(t, winner, content)
	first, err := f.engine.Process(ctx, tempPath, rel, winner, "image/jpeg")
	require.NoError(t, err)

	tempPath2, rel2 := f.stage(t, loser, content)
	second, err := f.engine.Process(ctx, tempPath2, rel2, loser, "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, first.FinalPath, second.FinalPath)
	assert.Equal(t, models.MediaStatusDuplicate, second.Status)

	// Only one physical copy exists.
	_, statErr := os.Stat(f.layout.Absolute(rel2))
	assert.True(t, os.IsNotExist(statErr))

	full, _, _, err := HashFile(f.layout.Absolute(first.FinalPath))
	require.NoError(t, err)
	rec, err := f.store.GetDedupRecord(ctx, full)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.DuplicateCount)
	assert.Equal(t, "p1", rec.FirstSeenPostID)
}

func TestHigherScoredCopyPromoted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := f.seedPost(t, "p1", 5, 100)
	better := f.seedPost(t, "p2", 500, 200)
	content := mediaContent(3)

	tempPath, rel := f.stage(t, original, content)
	first, err := f.engine.Process(ctx, tempPath, rel, original, "image/jpeg")
	require.NoError(t, err)

	// Point the original post's media row at the canonical file so the
	// promotion repoint is observable.
	media, err := f.store.MediaForPost(ctx, "p1")
	require.NoError(t, err)
	require.NoError(t, f.store.SetMediaDownloaded(ctx, media[0].ID, first.FinalPath, models.MediaStatusDownloaded))

	tempPath2, rel2 := f.stage(t, better, content)
	second, err := f.engine.Process(ctx, tempPath2, rel2, better, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, rel2, second.FinalPath)
	assert.Equal(t, models.MediaStatusDownloaded, second.Status)

	// Old copy gone, new copy present.
	_, statErr := os.Stat(f.layout.Absolute(first.FinalPath))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(f.layout.Absolute(second.FinalPath))
	assert.NoError(t, statErr)

	// Demoted post's media row now points at the new canonical path.
	media, err = f.store.MediaForPost(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, media[0].DownloadPath)
	assert.Equal(t, second.FinalPath, *media[0].DownloadPath)

	full, _, _, err := HashFile(f.layout.Absolute(second.FinalPath))
	require.NoError(t, err)
	rec, err := f.store.GetDedupRecord(ctx, full)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "p2", rec.FirstSeenPostID)
	assert.Equal(t, second.FinalPath, rec.CanonicalPath)
}

func TestOldestStrategyPrefersEarlierPost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetConfigValue(ctx, "subreddit_duplicate_strategy", "oldest"))

	newer := f.seedPost(t, "p1", 1000, 200)
	older := f.seedPost(t, "p2", 1, 100)
	content := mediaContent(4)

	tempPath, rel := f.stage(t, newer, content)
	_, err := f.engine.Process(ctx, tempPath, rel, newer, "image/jpeg")
	require.NoError(t, err)

	tempPath2, rel2 := f.stage(t, older, content)
	result, err := f.engine.Process(ctx, tempPath2, rel2, older, "image/jpeg")
	require.NoError(t, err)

	// Older post wins despite the lower score.
	assert.Equal(t, rel2, result.FinalPath)
	assert.Equal(t, models.MediaStatusDownloaded, result.Status)
}

func TestDistinctContentNotDeduplicated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seedPost(t, "p1", 10, 100)
	b := f.seedPost(t, "p2", 20, 200)

	tempPath, rel := f.stage(t, a, mediaContent(5))
	_, err := f.engine.Process(ctx, tempPath, rel, a, "image/jpeg")
	require.NoError(t, err)

	tempPath2, rel2 := f.stage(t, b, mediaContent(6))
	result, err := f.engine.Process(ctx, tempPath2, rel2, b, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, rel2, result.FinalPath)
	assert.Equal(t, models.MediaStatusDownloaded, result.Status)
}

func TestHashFileQuickAndFull(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, mediaContent(7), 0o644))

	full, quick, size, err := HashFile(path)
	require.NoError(t, err)
	assert.Len(t, full, 64)
	assert.Len(t, quick, 16)
	assert.Equal(t, full[:16], quick)
	assert.Equal(t, int64(4096), size)

	// Stable across calls.
	full2, quick2, _, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, full, full2)
	assert.Equal(t, quick, quick2)

	_, _, _, err = HashFile(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestPromotionSurvivesMissingOldFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := f.seedPost(t, "p1", 5, 100)
	better := f.seedPost(t, "p2", 500, 200)
	content := mediaContent(8)

	tempPath, rel := f.stage(t, original, content)
	first, err := f.engine.Process(ctx, tempPath, rel, original, "image/jpeg")
	require.NoError(t, err)
	require.NoError(t, os.Remove(f.layout.Absolute(first.FinalPath)))

	tempPath2, rel2 := f.stage(t, better, content)
	result, err := f.engine.Process(ctx, tempPath2, rel2, better, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, rel2, result.FinalPath)
}

func TestFindCanonicalExcludesOwnPost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := f.seedPost(t, "p1", 10, 100)
	content := mediaContent(9)

	tempPath, rel := f.stage(t, post, content)
	_, err := f.engine.Process(ctx, tempPath, rel, post, "image/jpeg")
	require.NoError(t, err)

	// Reprocessing the same post must not match its own record.
	full, quick, _, err := HashFile(f.layout.Absolute(rel))
	require.NoError(t, err)
	match, err := f.store.FindCanonical(ctx, quick, "testsub", "p1")
	require.NoError(t, err)
	assert.Nil(t, match)

	other := f.seedPost(t, "p2", 1, 200)
	match, err = f.store.FindCanonical(ctx, quick, other.Subreddit, other.ID)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, full, match.CanonicalHash)
}

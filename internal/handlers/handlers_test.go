package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martiantux/redditarr/internal/db"
	"github.com/martiantux/redditarr/internal/models"
	"github.com/martiantux/redditarr/internal/paths"
	"github.com/martiantux/redditarr/internal/scheduler"
	"github.com/martiantux/redditarr/internal/test"
	"github.com/martiantux/redditarr/internal/worker"
)

func newTestServer(t *testing.T) (*Server, *db.Store, *worker.Manager) {
	t.Helper()
	store := test.NewTestStore(t)
	layout, err := paths.NewLayout(t.TempDir())
	require.NoError(t, err)
	manager := worker.NewManager(store, layout, nil, nil, scheduler.New(store))
	t.Cleanup(manager.StopAll)
	return NewServer(store, manager, layout), store, manager
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func TestWorkerStatusEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	rr := doRequest(t, s, http.MethodGet, "/api/workers/status", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var statuses []workerStatusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &statuses))
	require.Len(t, statuses, 3)
	for _, st := range statuses {
		assert.False(t, st.Enabled)
		assert.False(t, st.Running)
	}
}

func TestWorkerStatusEndpointDatabaseError(t *testing.T) {
	store, mock := test.NewMockDB(t)
	layout, err := paths.NewLayout(t.TempDir())
	require.NoError(t, err)
	manager := worker.NewManager(store, layout, nil, nil, scheduler.New(store))
	s := NewServer(store, manager, layout)

	mock.ExpectQuery("SELECT \\* FROM worker_status").
		WillReturnError(errors.New("connection lost"))

	rr := doRequest(t, s, http.MethodGet, "/api/workers/status", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerToggle(t *testing.T) {
	s, store, manager := newTestServer(t)

	rr := doRequest(t, s, http.MethodPost, "/api/workers/metadata", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, manager.Queue(worker.WorkerMetadata).Running())

	enabled, err := store.WorkerEnabled(context.Background(), worker.WorkerMetadata)
	require.NoError(t, err)
	assert.True(t, enabled)

	rr = doRequest(t, s, http.MethodPost, "/api/workers/metadata", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, manager.Queue(worker.WorkerMetadata).Running())
}

func TestWorkerToggleRejectsUnknownType(t *testing.T) {
	s, _, _ := newTestServer(t)
	rr := doRequest(t, s, http.MethodPost, "/api/workers/uploader", `{"enabled":true}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestQueueStatusEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	rr := doRequest(t, s, http.MethodGet, "/api/queues/status", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var statuses map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &statuses))
	assert.Contains(t, statuses, "media")
	assert.Contains(t, statuses, "comments")
	assert.Contains(t, statuses, "metadata")
}

func TestDownloadStatsEndpoint(t *testing.T) {
	s, store, _ := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, store.AddSubreddit(ctx, "golang", false))
	require.NoError(t, store.SavePosts(ctx, []models.IndexedPost{{
		Post: models.Post{ID: "p1", CreatedUTC: 1, Score: 1, PostType: models.PostTypeImage},
		Media: []models.MediaItem{{
			PostID: "p1", MediaURL: "https://i.redd.it/p1.jpg", MediaType: "image",
		}},
	}}, "golang"))

	rr := doRequest(t, s, http.MethodGet, "/api/downloads/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var stats struct {
		TotalPosts      int `json:"total_posts"`
		DownloadedPosts int `json:"downloaded_posts"`
		PendingPosts    int `json:"pending_posts"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalPosts)
	assert.Equal(t, 0, stats.DownloadedPosts)
	assert.Equal(t, 1, stats.PendingPosts)
}

func TestAddAndListSubreddits(t *testing.T) {
	s, _, _ := newTestServer(t)

	rr := doRequest(t, s, http.MethodPost, "/api/subreddits", `{"name":"r/GoLang"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created models.Subreddit
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "golang", created.Name)
	assert.Equal(t, models.SubredditStatusPending, created.Status)

	rr = doRequest(t, s, http.MethodGet, "/api/subreddits", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var subs []models.SubredditStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &subs))
	require.Len(t, subs, 1)
	assert.Equal(t, "golang", subs[0].Name)
}

func TestAddSubredditValidation(t *testing.T) {
	s, _, _ := newTestServer(t)

	rr := doRequest(t, s, http.MethodPost, "/api/subreddits", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, s, http.MethodPost, "/api/subreddits", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNSFWModeFiltersListing(t *testing.T) {
	s, store, _ := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, store.AddSubreddit(ctx, "safe", false))
	require.NoError(t, store.AddSubreddit(ctx, "spicy", true))

	rr := doRequest(t, s, http.MethodGet, "/api/subreddits", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var subs []models.SubredditStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &subs))
	require.Len(t, subs, 1)
	assert.Equal(t, "safe", subs[0].Name)

	require.NoError(t, store.SetConfigValue(ctx, "nsfw_mode", "true"))
	rr = doRequest(t, s, http.MethodGet, "/api/subreddits", "")
	require.Equal(t, http.StatusOK, rr.Code)
	subs = nil
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &subs))
	require.Len(t, subs, 1)
	assert.Equal(t, "spicy", subs[0].Name)
}

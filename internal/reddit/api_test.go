package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martiantux/redditarr/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewAPIClient(srv.Client(), nil, "redditarr-test/1.0")
	c.SetBaseURL(srv.URL)
	return c
}

func TestSubredditInfo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/GoLang/about.json", r.URL.Path)
		assert.Equal(t, "redditarr-test/1.0", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{"data":{"display_name":"GoLang","title":"The Go Language","public_description":"Gophers","subscribers":250000,"over18":false}}`)
	})

	sub, err := c.SubredditInfo(context.Background(), "GoLang")
	require.NoError(t, err)
	assert.Equal(t, "golang", sub.Name)
	require.NotNil(t, sub.Title)
	assert.Equal(t, "The Go Language", *sub.Title)
	require.NotNil(t, sub.SubscriberCount)
	assert.Equal(t, int64(250000), *sub.SubscriberCount)
	assert.False(t, sub.Over18)
}

func TestSubredditInfoNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := c.SubredditInfo(context.Background(), "doesnotexist")
	assert.Error(t, err)
}

func TestPostsImageAndText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/pics/hot.json", r.URL.Path)
		fmt.Fprint(w, `{"data":{"children":[
			{"kind":"t3","data":{"id":"img1","author":"alice","title":"A photo","url":"https://i.redd.it/abc.jpg","created_utc":1700000000,"score":42,"post_hint":"image","num_comments":7}},
			{"kind":"t3","data":{"id":"txt1","author":"bob","title":"A question","is_self":true,"selftext":"hello","created_utc":1700000100,"score":5}}
		]}}`)
	})

	posts, err := c.Posts(context.Background(), "pics", "hot", 50)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	img := posts[0]
	assert.Equal(t, models.PostTypeImage, img.Post.PostType)
	require.Len(t, img.Media, 1)
	assert.Equal(t, "https://i.redd.it/abc.jpg", img.Media[0].MediaURL)
	require.NotNil(t, img.Post.ExpectedCommentCount)
	assert.Equal(t, 7, *img.Post.ExpectedCommentCount)

	txt := posts[1]
	assert.Equal(t, models.PostTypeText, txt.Post.PostType)
	assert.Empty(t, txt.Media)
	require.NotNil(t, txt.Post.Selftext)
}

func TestPostsGalleryUnescapesURLs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"children":[
			{"kind":"t3","data":{"id":"gal1","title":"gallery","is_gallery":true,"created_utc":1,"score":1,
				"gallery_data":{"items":[{"media_id":"m2"},{"media_id":"m1"}]},
				"media_metadata":{
					"m1":{"m":"image/png","s":{"u":"https://preview.redd.it/m1.png?width=1080&amp;format=png"}},
					"m2":{"m":"image/jpg","s":{"u":"https://preview.redd.it/m2.jpg?width=1080&amp;format=jpg"}}
				}}}
		]}}`)
	})

	posts, err := c.Posts(context.Background(), "pics", "hot", 50)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Len(t, posts[0].Media, 2)

	// Gallery order follows gallery_data, not map order.
	assert.Equal(t, "https://preview.redd.it/m2.jpg?width=1080&format=jpg", posts[0].Media[0].MediaURL)
	assert.Equal(t, 0, posts[0].Media[0].Position)
	assert.Equal(t, "https://preview.redd.it/m1.png?width=1080&format=png", posts[0].Media[1].MediaURL)
	assert.Equal(t, 1, posts[0].Media[1].Position)
}

func TestPostsVideoFallbackURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"children":[
			{"kind":"t3","data":{"id":"vid1","title":"clip","is_video":true,"created_utc":1,"score":1,"url":"https://v.redd.it/xyz",
				"media":{"reddit_video":{"fallback_url":"https://v.redd.it/xyz/DASH_720.mp4"}}}}
		]}}`)
	})

	posts, err := c.Posts(context.Background(), "videos", "hot", 50)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, models.PostTypeVideo, posts[0].Post.PostType)
	require.Len(t, posts[0].Media, 1)
	assert.Equal(t, "https://v.redd.it/xyz/DASH_720.mp4", posts[0].Media[0].MediaURL)
}

const commentsPayload = `[
	{"data":{"children":[{"kind":"t3","data":{"id":"post1"}}]}},
	{"data":{"children":[
		{"kind":"t1","data":{"id":"c1","parent_id":"t3_post1","author":"alice","body":"top level","created_utc":100,"score":10,"edited":false,
			"replies":{"data":{"children":[
				{"kind":"t1","data":{"id":"c2","parent_id":"t1_c1","author":"bob","body":"reply","created_utc":101,"score":3,"edited":1700000000,"replies":""}}
			]}}}},
		{"kind":"t1","data":{"id":"c3","parent_id":"t3_post1","author":"[deleted]","body":"[removed]","created_utc":102,"score":0,"edited":false,"replies":""}},
		{"kind":"more","data":{"count":12}}
	]}}
]`

func TestCommentsFlattening(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/golang/comments/post1.json", r.URL.Path)
		fmt.Fprint(w, commentsPayload)
	})

	comments, err := c.Comments(context.Background(), "golang", "post1", 10)
	require.NoError(t, err)
	require.Len(t, comments, 3)

	c1 := comments[0]
	assert.Equal(t, "c1", c1.ID)
	assert.Nil(t, c1.ParentID)
	assert.Equal(t, 0, c1.Depth)
	assert.Equal(t, "c1", c1.Path)
	assert.False(t, c1.Edited)

	c2 := comments[1]
	assert.Equal(t, "c2", c2.ID)
	require.NotNil(t, c2.ParentID)
	assert.Equal(t, "c1", *c2.ParentID)
	assert.Equal(t, 1, c2.Depth)
	assert.Equal(t, "c1/c2", c2.Path)
	assert.True(t, c2.Edited)

	c3 := comments[2]
	assert.Equal(t, "c3", c3.ID)
	assert.Nil(t, c3.Author)
	assert.Equal(t, 0, c3.Depth)
}

func TestCommentsDepthLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, commentsPayload)
	})

	comments, err := c.Comments(context.Background(), "golang", "post1", 1)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	for _, comment := range comments {
		assert.Equal(t, 0, comment.Depth)
	}
}

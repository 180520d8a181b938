package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/martiantux/redditarr/internal/models"
	"github.com/martiantux/redditarr/internal/ratelimit"
)

const defaultBaseURL = "https://www.reddit.com"

// APIClient talks to reddit's public JSON endpoints. All requests pass
// through the shared reddit rate limiter.
type APIClient struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	baseURL    string
	userAgent  string
}

// NewAPIClient builds a live client.
func NewAPIClient(httpClient *http.Client, limiter *ratelimit.Limiter, userAgent string) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &APIClient{
		httpClient: httpClient,
		limiter:    limiter,
		baseURL:    defaultBaseURL,
		userAgent:  userAgent,
	}
}

// SetBaseURL overrides the endpoint, used by tests.
func (c *APIClient) SetBaseURL(base string) { c.baseURL = strings.TrimSuffix(base, "/") }

func (c *APIClient) getJSON(ctx context.Context, path string, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("requesting %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listing struct {
	Data struct {
		Children []thing `json:"children"`
	} `json:"data"`
}

type aboutResponse struct {
	Data struct {
		DisplayName string  `json:"display_name"`
		Title       string  `json:"title"`
		Description string  `json:"public_description"`
		Subscribers int64   `json:"subscribers"`
		Over18      bool    `json:"over18"`
		CreatedUTC  float64 `json:"created_utc"`
	} `json:"data"`
}

// SubredditInfo implements Client.
func (c *APIClient) SubredditInfo(ctx context.Context, name string) (*models.Subreddit, error) {
	var resp aboutResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/r/%s/about.json", url.PathEscape(name)), &resp); err != nil {
		return nil, err
	}
	if resp.Data.DisplayName == "" {
		return nil, fmt.Errorf("subreddit %s not found", name)
	}
	sub := &models.Subreddit{
		Name:   strings.ToLower(resp.Data.DisplayName),
		Over18: resp.Data.Over18,
	}
	if resp.Data.Title != "" {
		sub.Title = &resp.Data.Title
	}
	if resp.Data.Description != "" {
		sub.Description = &resp.Data.Description
	}
	if resp.Data.Subscribers > 0 {
		sub.SubscriberCount = &resp.Data.Subscribers
	}
	return sub, nil
}

type rawPost struct {
	ID          string  `json:"id"`
	Author      string  `json:"author"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int64   `json:"score"`
	Selftext    string  `json:"selftext"`
	PostHint    string  `json:"post_hint"`
	IsSelf      bool    `json:"is_self"`
	IsVideo     bool    `json:"is_video"`
	IsGallery   bool    `json:"is_gallery"`
	NumComments int     `json:"num_comments"`
	Domain      string  `json:"domain"`
	GalleryData struct {
		Items []struct {
			MediaID string `json:"media_id"`
		} `json:"items"`
	} `json:"gallery_data"`
	MediaMetadata map[string]struct {
		M string `json:"m"`
		S struct {
			U   string `json:"u"`
			GIF string `json:"gif"`
			MP4 string `json:"mp4"`
		} `json:"s"`
	} `json:"media_metadata"`
	Media struct {
		RedditVideo struct {
			FallbackURL string `json:"fallback_url"`
		} `json:"reddit_video"`
	} `json:"media"`
}

// Posts implements Client.
func (c *APIClient) Posts(ctx context.Context, subreddit, listingName string, limit int) ([]models.IndexedPost, error) {
	path := fmt.Sprintf("/r/%s/%s.json?limit=%d&raw_json=1",
		url.PathEscape(subreddit), url.PathEscape(listingName), limit)
	if listingName == "top" {
		path += "&t=all"
	}
	var resp listing
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}

	posts := make([]models.IndexedPost, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var rp rawPost
		if err := json.Unmarshal(child.Data, &rp); err != nil {
			log.Printf("Skipping malformed post in r/%s: %v", subreddit, err)
			continue
		}
		posts = append(posts, buildIndexedPost(rp, subreddit))
	}
	return posts, nil
}

func buildIndexedPost(rp rawPost, subreddit string) models.IndexedPost {
	post := models.Post{
		ID:         rp.ID,
		Subreddit:  strings.ToLower(subreddit),
		CreatedUTC: int64(rp.CreatedUTC),
		Score:      rp.Score,
		PostType:   classifyPost(rp),
	}
	if rp.Author != "" && rp.Author != "[deleted]" {
		post.Author = &rp.Author
	}
	if rp.Title != "" {
		post.Title = &rp.Title
	}
	if rp.URL != "" {
		post.URL = &rp.URL
	}
	if rp.Selftext != "" {
		post.Selftext = &rp.Selftext
	}
	if rp.NumComments > 0 {
		n := rp.NumComments
		post.ExpectedCommentCount = &n
	}
	return models.IndexedPost{Post: post, Media: extractMedia(rp, post.PostType)}
}

func classifyPost(rp rawPost) models.PostType {
	switch {
	case rp.IsGallery:
		return models.PostTypeGallery
	case rp.IsVideo, rp.Domain == "v.redd.it":
		return models.PostTypeVideo
	case rp.IsSelf:
		return models.PostTypeText
	case rp.PostHint == "image":
		return models.PostTypeImage
	}
	lower := strings.ToLower(rp.URL)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp"} {
		if strings.HasSuffix(lower, ext) {
			return models.PostTypeImage
		}
	}
	for _, ext := range []string{".mp4", ".webm"} {
		if strings.HasSuffix(lower, ext) {
			return models.PostTypeVideo
		}
	}
	if rp.PostHint == "hosted:video" || rp.PostHint == "rich:video" {
		return models.PostTypeVideo
	}
	if rp.URL == "" || strings.Contains(lower, rp.Permalink) {
		return models.PostTypeText
	}
	return models.PostTypeUnknown
}

func extractMedia(rp rawPost, postType models.PostType) []models.MediaItem {
	switch postType {
	case models.PostTypeGallery:
		items := make([]models.MediaItem, 0, len(rp.GalleryData.Items))
		for pos, entry := range rp.GalleryData.Items {
			meta, ok := rp.MediaMetadata[entry.MediaID]
			if !ok {
				continue
			}
			mediaURL := meta.S.U
			mediaType := "image"
			if meta.S.MP4 != "" {
				mediaURL = meta.S.MP4
				mediaType = "video"
			} else if meta.S.GIF != "" {
				mediaURL = meta.S.GIF
			}
			if mediaURL == "" {
				continue
			}
			items = append(items, models.MediaItem{
				PostID:   rp.ID,
				MediaURL: html.UnescapeString(mediaURL),
				MediaType: func() string {
					if meta.M != "" && strings.HasPrefix(meta.M, "video/") {
						return "video"
					}
					return mediaType
				}(),
				Position: pos,
			})
		}
		return items
	case models.PostTypeVideo:
		target := rp.Media.RedditVideo.FallbackURL
		if target == "" {
			target = rp.URL
		}
		if target == "" {
			return nil
		}
		return []models.MediaItem{{
			PostID:    rp.ID,
			MediaURL:  html.UnescapeString(target),
			MediaType: "video",
		}}
	case models.PostTypeImage:
		if rp.URL == "" {
			return nil
		}
		return []models.MediaItem{{
			PostID:    rp.ID,
			MediaURL:  html.UnescapeString(rp.URL),
			MediaType: "image",
		}}
	default:
		return nil
	}
}

type rawComment struct {
	ID         string          `json:"id"`
	ParentID   string          `json:"parent_id"`
	Author     string          `json:"author"`
	Body       string          `json:"body"`
	CreatedUTC float64         `json:"created_utc"`
	Score      int64           `json:"score"`
	Edited     json.RawMessage `json:"edited"`
	Replies    json.RawMessage `json:"replies"`
}

// Comments implements Client. The tree is flattened depth first with a
// slash joined path so storage can reconstruct thread order with a sort.
func (c *APIClient) Comments(ctx context.Context, subreddit, postID string, maxDepth int) ([]models.Comment, error) {
	path := fmt.Sprintf("/r/%s/comments/%s.json?raw_json=1&limit=500",
		url.PathEscape(subreddit), url.PathEscape(postID))
	var resp []listing
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	if len(resp) < 2 {
		return nil, nil
	}

	var out []models.Comment
	flattenComments(resp[1].Data.Children, postID, 0, maxDepth, "", &out)
	return out, nil
}

func flattenComments(children []thing, postID string, depth, maxDepth int, parentPath string, out *[]models.Comment) {
	if maxDepth > 0 && depth >= maxDepth {
		return
	}
	for _, child := range children {
		if child.Kind != "t1" {
			continue
		}
		var rc rawComment
		if err := json.Unmarshal(child.Data, &rc); err != nil {
			log.Printf("Skipping malformed comment on post %s: %v", postID, err)
			continue
		}
		if rc.ID == "" {
			continue
		}

		path := rc.ID
		if parentPath != "" {
			path = parentPath + "/" + rc.ID
		}
		comment := models.Comment{
			ID:         rc.ID,
			PostID:     postID,
			Body:       rc.Body,
			CreatedUTC: int64(rc.CreatedUTC),
			Score:      rc.Score,
			Edited:     commentEdited(rc.Edited),
			Depth:      depth,
			Path:       path,
		}
		// Top level comments point at the post itself, stored as no parent.
		if strings.HasPrefix(rc.ParentID, "t1_") {
			parent := strings.TrimPrefix(rc.ParentID, "t1_")
			comment.ParentID = &parent
		}
		if rc.Author != "" && rc.Author != "[deleted]" {
			comment.Author = &rc.Author
		}
		*out = append(*out, comment)

		if replies := parseReplies(rc.Replies); len(replies) > 0 {
			flattenComments(replies, postID, depth+1, maxDepth, path, out)
		}
	}
}

// parseReplies handles the API quirk where an empty reply set is the
// empty string instead of a listing object.
func parseReplies(raw json.RawMessage) []thing {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == `""` || trimmed == "null" {
		return nil
	}
	var l listing
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil
	}
	return l.Data.Children
}

// commentEdited handles edited being either false or an edit timestamp.
func commentEdited(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "false" && trimmed != "null"
}

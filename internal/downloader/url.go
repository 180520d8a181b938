package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Service identifies which media host a URL belongs to, which picks the
// rate limiter and any host specific handling.
type Service string

const (
	ServiceReddit  Service = "reddit"
	ServiceImgur   Service = "imgur"
	ServiceRedgifs Service = "redgifs"
	ServiceGfycat  Service = "gfycat"
	ServiceGiphy   Service = "giphy"
	ServiceUnknown Service = "unknown"
)

// DetectService classifies a media URL by host.
func DetectService(rawURL string) Service {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ServiceUnknown
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "gfycat.com"):
		return ServiceGfycat
	case strings.Contains(host, "giphy.com"):
		return ServiceGiphy
	case strings.Contains(host, "redgifs.com"):
		return ServiceRedgifs
	case strings.Contains(host, "imgur.com"):
		return ServiceImgur
	case host == "i.redd.it", host == "v.redd.it", host == "preview.redd.it",
		strings.HasSuffix(host, ".redd.it"), strings.Contains(host, "reddit.com"):
		return ServiceReddit
	default:
		return ServiceUnknown
	}
}

// RedgifsResolver turns a redgifs watch page into a direct video URL.
type RedgifsResolver interface {
	ResolveVideoURL(ctx context.Context, pageURL string) (string, error)
}

var knownMediaExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {},
	".mp4": {}, ".webm": {}, ".webp": {},
}

// prepareURL normalizes a media URL before download. Gfycat and giphy
// links are rejected up front since those hosts no longer serve the
// archived content. Returns the fetchable URL.
func (d *Downloader) prepareURL(ctx context.Context, rawURL string) (string, error) {
	rawURL = html.UnescapeString(rawURL)

	switch DetectService(rawURL) {
	case ServiceGfycat, ServiceGiphy:
		return "", errDiscontinuedHost

	case ServiceRedgifs:
		if d.redgifs == nil {
			return "", fmt.Errorf("no redgifs resolver configured")
		}
		resolved, err := d.redgifs.ResolveVideoURL(ctx, rawURL)
		if err != nil {
			return "", fmt.Errorf("resolving redgifs url: %w", err)
		}
		return resolved, nil

	case ServiceImgur:
		return prepareImgurURL(rawURL)

	case ServiceReddit:
		return prepareRedditURL(rawURL), nil
	}
	return rawURL, nil
}

// prepareImgurURL rejects album links, which need per image expansion the
// indexer already performs, and appends an extension so imgur serves the
// raw file instead of an HTML page.
func prepareImgurURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(u.Path, "/a/") || strings.HasPrefix(u.Path, "/gallery/") {
		return "", fmt.Errorf("imgur album link not downloadable directly: %s", rawURL)
	}
	if _, ok := knownMediaExts[strings.ToLower(path.Ext(u.Path))]; !ok {
		u.Path += ".jpg"
	}
	return u.String(), nil
}

// prepareRedditURL rewrites preview.redd.it image links to the i.redd.it
// original. Non image previews just lose their sizing query parameters.
func prepareRedditURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if strings.ToLower(u.Hostname()) != "preview.redd.it" {
		return rawURL
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		u.Host = "i.redd.it"
		u.RawQuery = ""
	default:
		u.RawQuery = ""
	}
	return u.String()
}

// redgifsAPI resolves watch pages through the public redgifs API.
type redgifsAPI struct {
	httpClient *http.Client
	userAgent  string
}

// NewRedgifsResolver builds the default resolver.
func NewRedgifsResolver(httpClient *http.Client, userAgent string) RedgifsResolver {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &redgifsAPI{httpClient: httpClient, userAgent: userAgent}
}

func (r *redgifsAPI) ResolveVideoURL(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	id := strings.ToLower(path.Base(u.Path))
	if id == "" || id == "/" {
		return "", fmt.Errorf("no gif id in url %s", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://api.redgifs.com/v2/gifs/"+url.PathEscape(id), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("redgifs api status %d for %s", resp.StatusCode, id)
	}

	var body struct {
		GIF struct {
			URLs struct {
				HD string `json:"hd"`
				SD string `json:"sd"`
			} `json:"urls"`
		} `json:"gif"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.GIF.URLs.HD != "" {
		return body.GIF.URLs.HD, nil
	}
	if body.GIF.URLs.SD != "" {
		return body.GIF.URLs.SD, nil
	}
	return "", fmt.Errorf("redgifs api returned no video urls for %s", id)
}

package downloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectService(t *testing.T) {
	cases := map[string]Service{
		"https://i.redd.it/abc.jpg":               ServiceReddit,
		"https://v.redd.it/xyz/DASH_720.mp4":      ServiceReddit,
		"https://preview.redd.it/abc.png?w=1080":  ServiceReddit,
		"https://i.imgur.com/abc.jpg":             ServiceImgur,
		"https://imgur.com/gallery/xyz":           ServiceImgur,
		"https://www.redgifs.com/watch/something": ServiceRedgifs,
		"https://gfycat.com/somegif":              ServiceGfycat,
		"https://media.giphy.com/media/x/giphy":   ServiceGiphy,
		"https://example.com/pic.jpg":             ServiceUnknown,
		"not a url at all ::":                     ServiceUnknown,
	}
	for url, want := range cases {
		assert.Equal(t, want, DetectService(url), "url %s", url)
	}
}

func TestPrepareImgurURL(t *testing.T) {
	got, err := prepareImgurURL("https://i.imgur.com/abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://i.imgur.com/abc123.jpg", got)

	got, err = prepareImgurURL("https://i.imgur.com/abc123.png")
	require.NoError(t, err)
	assert.Equal(t, "https://i.imgur.com/abc123.png", got)

	_, err = prepareImgurURL("https://imgur.com/a/album123")
	assert.Error(t, err)

	_, err = prepareImgurURL("https://imgur.com/gallery/gal456")
	assert.Error(t, err)
}

func TestPrepareRedditURL(t *testing.T) {
	got := prepareRedditURL("https://preview.redd.it/photo.jpg?width=1080&format=pjpg&s=abc")
	assert.Equal(t, "https://i.redd.it/photo.jpg", got)

	got = prepareRedditURL("https://preview.redd.it/clip.mp4?source=fallback")
	assert.Equal(t, "https://preview.redd.it/clip.mp4", got)

	got = prepareRedditURL("https://i.redd.it/photo.jpg")
	assert.Equal(t, "https://i.redd.it/photo.jpg", got)
}

package downloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func jpegBody() []byte {
	b := make([]byte, 2048)
	copy(b, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	return b
}

func TestValidateContentAcceptsRealMedia(t *testing.T) {
	png := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 8)...)
	mp4 := append([]byte{0, 0, 0, 0x20}, []byte("ftypisom")...)
	webm := append([]byte{0x1A, 0x45, 0xDF, 0xA3}, make([]byte, 12)...)

	assert.NoError(t, validateContent(jpegBody()[:16], 2048, "image/jpeg"))
	assert.NoError(t, validateContent(png, 2048, "image/png"))
	assert.NoError(t, validateContent(mp4, 500000, "video/mp4"))
	assert.NoError(t, validateContent(webm, 500000, "video/webm"))
}

func TestValidateContentAmbiguousTypeChecksAllSignatures(t *testing.T) {
	assert.NoError(t, validateContent(jpegBody()[:16], 2048, "application/octet-stream"))
	assert.NoError(t, validateContent(jpegBody()[:16], 2048, ""))

	html := []byte("<!DOCTYPE html><ht")
	assert.Error(t, validateContent(html, 2048, ""))
}

func TestValidateContentRejectsMismatchedSignature(t *testing.T) {
	err := validateContent(jpegBody()[:16], 2048, "image/png")
	assert.Error(t, err)
}

func TestValidateContentRejectsTinyFiles(t *testing.T) {
	err := validateContent(jpegBody()[:16], 500, "image/jpeg")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "suspiciously small")

	// Small animated gifs are legitimate.
	gif := append([]byte("GIF89a"), make([]byte, 10)...)
	assert.NoError(t, validateContent(gif, 500, "image/gif"))
}

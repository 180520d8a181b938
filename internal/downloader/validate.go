package downloader

import (
	"bytes"
	"fmt"
	"strings"
)

// magic file signatures checked against downloaded bytes. Offset 4 covers
// the mp4 box header layout.
type signature struct {
	offset int
	prefix []byte
}

var signaturesByKind = map[string][]signature{
	"jpeg": {
		{0, []byte{0xFF, 0xD8, 0xFF, 0xE0}},
		{0, []byte{0xFF, 0xD8, 0xFF, 0xE1}},
		{0, []byte{0xFF, 0xD8, 0xFF, 0xDB}},
	},
	"png": {
		{0, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}},
	},
	"gif": {
		{0, []byte("GIF87a")},
		{0, []byte("GIF89a")},
	},
	"mp4": {
		{4, []byte("ftyp")},
		{4, []byte("mdat")},
	},
	"webm": {
		{0, []byte{0x1A, 0x45, 0xDF, 0xA3}},
	},
}

func matchesSignature(head []byte, sigs []signature) bool {
	for _, sig := range sigs {
		end := sig.offset + len(sig.prefix)
		if len(head) >= end && bytes.Equal(head[sig.offset:end], sig.prefix) {
			return true
		}
	}
	return false
}

// kindForContentType maps a response content type to a signature set.
// Empty means the type gives no hint and every signature is acceptable.
func kindForContentType(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "jpeg") || strings.Contains(ct, "jpg"):
		return "jpeg"
	case strings.Contains(ct, "png"):
		return "png"
	case strings.Contains(ct, "gif"):
		return "gif"
	case strings.Contains(ct, "mp4"):
		return "mp4"
	case strings.Contains(ct, "webm"):
		return "webm"
	default:
		return ""
	}
}

// validateContent rejects bodies that are error pages or placeholders
// masquerading as media. The head slice carries the first bytes of the
// download.
func validateContent(head []byte, size int64, contentType string) error {
	if size < 1024 && !matchesSignature(head, signaturesByKind["gif"]) {
		return fmt.Errorf("suspiciously small file (%d bytes), likely an error page", size)
	}

	if kind := kindForContentType(contentType); kind != "" {
		if !matchesSignature(head, signaturesByKind[kind]) {
			return fmt.Errorf("file signature does not match content type %s", contentType)
		}
		return nil
	}

	// Ambiguous content type: accept any recognized media signature.
	for _, sigs := range signaturesByKind {
		if matchesSignature(head, sigs) {
			return nil
		}
	}
	return fmt.Errorf("unrecognized file signature for content type %q", contentType)
}

package downloader

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

const headSize = 16

// fetchResult describes one successfully staged download.
type fetchResult struct {
	Size        int64
	ContentType string
}

// downloadFile performs a single fetch attempt to tempPath. The caller
// owns the temp file on success and must clean it up on error paths that
// leave partial data behind.
func (d *Downloader) downloadFile(ctx context.Context, fetchURL string, service Service, tempPath string) (fetchResult, error) {
	if err := d.limiters.For(string(service)).Acquire(ctx); err != nil {
		return fetchResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return fetchResult{}, err
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fetchResult{}, fmt.Errorf("fetching %s: %w", fetchURL, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fetchResult{}, fmt.Errorf("404: media no longer available on server")
	case http.StatusGone:
		return fetchResult{}, fmt.Errorf("410: content permanently removed")
	case http.StatusTooManyRequests:
		return fetchResult{}, fmt.Errorf("rate limited (429) by %s", service)
	case http.StatusForbidden:
		return fetchResult{}, fmt.Errorf("access denied (403), content removed or private")
	default:
		return fetchResult{}, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, fetchURL)
	}

	// Imgur serves a fixed 503 byte placeholder for deleted images.
	if service == ServiceImgur && resp.ContentLength == 503 {
		return fetchResult{}, fmt.Errorf("imgur placeholder (503 bytes), content permanently removed")
	}

	out, err := os.Create(tempPath)
	if err != nil {
		return fetchResult{}, fmt.Errorf("creating temp file: %w", err)
	}
	size, head, err := copyWithHead(out, resp.Body)
	closeErr := out.Close()
	if err != nil {
		os.Remove(tempPath)
		return fetchResult{}, fmt.Errorf("writing %s: %w", tempPath, err)
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return fetchResult{}, fmt.Errorf("closing %s: %w", tempPath, closeErr)
	}

	if service == ServiceImgur && size == 503 {
		os.Remove(tempPath)
		return fetchResult{}, fmt.Errorf("imgur placeholder (503 bytes), content permanently removed")
	}

	contentType := resp.Header.Get("Content-Type")
	if err := validateContent(head, size, contentType); err != nil {
		os.Remove(tempPath)
		return fetchResult{}, err
	}
	return fetchResult{Size: size, ContentType: contentType}, nil
}

// copyWithHead streams src to dst keeping the first bytes for signature
// validation.
func copyWithHead(dst io.Writer, src io.Reader) (int64, []byte, error) {
	head := make([]byte, 0, headSize)
	tee := io.TeeReader(src, writerFunc(func(p []byte) (int, error) {
		if len(head) < headSize {
			n := headSize - len(head)
			if n > len(p) {
				n = len(p)
			}
			head = append(head, p[:n]...)
		}
		return len(p), nil
	}))
	size, err := io.Copy(dst, tee)
	return size, head, err
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

// DownloadWithRetry fetches a URL with exponential backoff. Permanent
// failures short circuit the retry loop and come back wrapped so callers
// can persist the terminal state.
func (d *Downloader) DownloadWithRetry(ctx context.Context, fetchURL string, service Service, tempPath string) (fetchResult, error) {
	var lastErr error
	delay := d.initialDelay
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		result, err := d.downloadFile(ctx, fetchURL, service, tempPath)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if isPermanent(err) {
			return fetchResult{}, err
		}
		if ctx.Err() != nil {
			return fetchResult{}, ctx.Err()
		}
		if attempt < d.maxRetries {
			log.Printf("Download attempt %d/%d failed for %s: %v", attempt, d.maxRetries, fetchURL, err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fetchResult{}, ctx.Err()
			}
			delay *= 2
		}
	}
	return fetchResult{}, fmt.Errorf("failed after %d attempts: %w", d.maxRetries, lastErr)
}

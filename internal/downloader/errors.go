package downloader

import (
	"errors"
	"strings"
)

// errDiscontinuedHost marks URLs on hosts that shut down and purged
// their archives. Nothing to fetch, ever.
var errDiscontinuedHost = errors.New("content permanently removed - hosting service discontinued")

// permanentMarkers are substrings of error messages that mean the content
// will never come back, so retries would only burn rate limit budget.
var permanentMarkers = []string{
	"removed",
	"410",
	"404",
	"503 bytes",
	"content permanently removed",
	"content not found",
}

// isPermanent reports whether an error describes an unrecoverable
// download failure.
func isPermanent(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

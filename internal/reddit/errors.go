package reddit

import (
	"errors"
	"fmt"
)

// maxDiagnosticBytes caps how much of an upstream error body is kept.
const maxDiagnosticBytes = 256

// ErrMissingCredentials is returned when the oauth strategy is selected
// without a client id/secret pair.
var ErrMissingCredentials = errors.New("reddit: client id and secret are required for the oauth strategy")

// FetchError is a source-scoped upstream failure. It never aborts
// sibling fetches; the aggregator records it per subreddit.
type FetchError struct {
	Status int
	Body   string
}

func (e *FetchError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.Status)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

func newFetchError(status int, body []byte) *FetchError {
	if len(body) > maxDiagnosticBytes {
		body = body[:maxDiagnosticBytes]
	}
	return &FetchError{Status: status, Body: string(body)}
}

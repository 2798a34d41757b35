package hotelrunner

import (
	"errors"
	"fmt"
	"net/http"
)

// SnippetLength is how much of an error response body is kept for logs.
const SnippetLength = 180

// ErrMissingCredential is returned when the token or property id is not configured.
var ErrMissingCredential = errors.New("missing required hotelrunner credential")

// ErrPageLimit is returned when reservation pagination runs past the
// configured page ceiling without reaching a short page.
var ErrPageLimit = errors.New("reservation pagination exceeded page limit")

// StatusError is a non-2xx answer from HotelRunner.
type StatusError struct {
	Op         string
	StatusCode int
	Snippet    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HotelRunner %s error %d: %s", e.Op, e.StatusCode, e.Snippet)
}

// Temporary reports whether retrying the call may succeed. Client errors are
// final except request timeouts and rate limiting.
func (e *StatusError) Temporary() bool {
	if e.StatusCode >= 500 {
		return true
	}
	return e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusTooManyRequests
}

func snippet(body []byte) string {
	r := []rune(string(body))
	if len(r) > SnippetLength {
		r = r[:SnippetLength]
	}
	return string(r)
}

func missingCredential(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingCredential, name)
}

package driven

import "errors"

// ErrUnsupportedURL is returned by URLOpener implementations for URLs they
// refuse to open (non-http schemes, empty hosts).
var ErrUnsupportedURL = errors.New("unsupported url")

// URLOpener opens a URL in the user's browser.
type URLOpener interface {
	OpenURL(url string) error
}

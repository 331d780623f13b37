// Package browser implements the URLOpener port with the system browser.
package browser

import (
	"fmt"
	"net/url"

	"github.com/cli/browser"

	"github.com/ericfisherdev/checkpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.URLOpener = (*Opener)(nil)

// Opener opens http and https URLs in the user's default browser.
type Opener struct {
	open func(string) error
}

// NewOpener creates an Opener backed by the system browser.
func NewOpener() *Opener {
	return &Opener{open: browser.OpenURL}
}

// OpenURL validates rawURL and hands it to the browser. Anything other than
// an absolute http or https URL is rejected with driven.ErrUnsupportedURL.
func (o *Opener) OpenURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", driven.ErrUnsupportedURL, rawURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", driven.ErrUnsupportedURL, rawURL)
	}

	if err := o.open(u.String()); err != nil {
		return fmt.Errorf("opening %s: %w", u.Redacted(), err)
	}
	return nil
}

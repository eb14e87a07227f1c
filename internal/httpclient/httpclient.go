// Package httpclient builds the outbound HTTP clients shared by the fetchers
// and the notifier.
package httpclient

import (
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a whole request, body included.
const DefaultTimeout = 30 * time.Second

// New returns a client that routes through proxyURL when it is set. An
// unparseable proxy is logged and ignored. A timeout of zero or less means
// DefaultTimeout.
func New(proxyURL string, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Host == "" {
			log.Warn().Str("proxy", proxyURL).Msg("ignoring malformed proxy url")
		} else {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// WithTimeout returns a client sharing c's transport under another timeout.
func WithTimeout(c *http.Client, timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: c.Transport}
}

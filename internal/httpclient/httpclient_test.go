package httpclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proxyFor(t *testing.T, c *http.Client) string {
	t.Helper()
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	if tr.Proxy == nil {
		return ""
	}
	req, err := http.NewRequest(http.MethodGet, "https://api.stlouisfed.org/fred", nil)
	require.NoError(t, err)
	u, err := tr.Proxy(req)
	require.NoError(t, err)
	if u == nil {
		return ""
	}
	return u.String()
}

func TestNew_Proxy(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:7890", proxyFor(t, New("http://127.0.0.1:7890", 0)))
	assert.Empty(t, proxyFor(t, New("", 0)))
	assert.Empty(t, proxyFor(t, New("::not a url", 0)))
}

func TestNew_Timeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, New("", 0).Timeout)
	assert.Equal(t, 5*time.Second, New("", 5*time.Second).Timeout)
}

func TestWithTimeout_SharesTransport(t *testing.T) {
	base := New("http://127.0.0.1:7890", 0)
	long := WithTimeout(base, 35*time.Second)
	assert.Same(t, base.Transport, long.Transport)
	assert.Equal(t, 35*time.Second, long.Timeout)
}

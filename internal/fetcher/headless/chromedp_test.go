package headless

import (
	"net/http"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/article-archiver/internal/archive"
)

func TestNewChromedpValidation(t *testing.T) {
	t.Parallel()

	_, err := NewChromedp(Config{NavigationTimeout: -time.Second})
	assert.Error(t, err)

	fetcher, err := NewChromedp(Config{ExecPath: "/usr/bin/chromium", NoSandbox: true})
	require.NoError(t, err)
	fetcher.Close()
}

func TestTimeoutsAndDefaults(t *testing.T) {
	t.Parallel()

	fetcher := &Fetcher{}
	assert.Equal(t, defaultNavTimeout, fetcher.navTimeout(archive.FetchRequest{}))
	assert.Equal(t, defaultSettleDelay, fetcher.settleDelay())

	fetcher.cfg = Config{NavigationTimeout: 10 * time.Second, SettleDelay: time.Second}
	assert.Equal(t, 10*time.Second, fetcher.navTimeout(archive.FetchRequest{}))
	assert.Equal(t, 2*time.Second, fetcher.navTimeout(archive.FetchRequest{Timeout: 2 * time.Second}))
	assert.Equal(t, time.Second, fetcher.settleDelay())
}

func TestToNetworkHeaders(t *testing.T) {
	t.Parallel()

	got := toNetworkHeaders(http.Header{
		"Accept-Language": {"en"},
		"X-Multi":         {"a", "b"},
		"X-Empty":         {},
	})
	assert.Equal(t, "en", got["Accept-Language"])
	assert.Equal(t, []string{"a", "b"}, got["X-Multi"])
	assert.NotContains(t, got, "X-Empty")
}

func TestResponseMetaCaptureAndFallbacks(t *testing.T) {
	t.Parallel()

	meta := newResponseMeta()
	meta.captureEvent(&network.EventResponseReceived{
		Type: network.ResourceTypeImage,
		Response: &network.Response{Status: 500, URL: "https://cdn.example.com/x.png"},
	})
	meta.captureEvent(&network.EventResponseReceived{
		Type: network.ResourceTypeDocument,
		Response: &network.Response{
			Status:  200,
			URL:     "https://example.com/article",
			Headers: network.Headers{"X-Request-ID": "abc", "Link": []interface{}{"a", "b"}},
		},
	})
	status, headers, url := meta.snapshotWithFallbacks("https://req", "")
	assert.Equal(t, 200, status)
	assert.Equal(t, "abc", headers.Get("X-Request-ID"))
	assert.Equal(t, []string{"a", "b"}, headers.Values("Link"))
	assert.Equal(t, "https://example.com/article", url)

	_, _, url = meta.snapshotWithFallbacks("https://req", "https://example.com/article#top")
	assert.Equal(t, "https://example.com/article#top", url, "browser location wins")

	empty := newResponseMeta()
	status, _, url = empty.snapshotWithFallbacks("https://req", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://req", url)
}

package extract

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/article-archiver/internal/archive"
)

const paragraph = "The archive keeps a copy of every article worth rereading, along with its images, " +
	"so that links rotting away over the years never take the words with them. "

func articleHTML(title string) string {
	body := strings.Repeat("<p>"+paragraph+strings.Repeat("More sentences follow here. ", 6)+"</p>\n", 6)
	return `<!DOCTYPE html>
<html>
<head>
  <title>` + title + `</title>
  <meta property="og:title" content="` + title + `">
  <meta name="author" content="Ada Lovelace and Charles Babbage">
  <meta name="description" content="Why we archive.">
  <meta property="article:published_time" content="2024-03-09T14:05:00Z">
</head>
<body>
  <nav><a href="/">Home</a></nav>
  <article>
    <h1>` + title + `</h1>
    <img src="/img/lead.jpg" alt="lead">
    ` + body + `
  </article>
  <footer>Copyright</footer>
</body>
</html>`
}

type stubFetcher struct {
	resp  archive.FetchResponse
	err   error
	calls []archive.FetchRequest
}

func (s *stubFetcher) Fetch(_ context.Context, req archive.FetchRequest) (archive.FetchResponse, error) {
	s.calls = append(s.calls, req)
	return s.resp, s.err
}

func htmlResponse(url, body string) archive.FetchResponse {
	return archive.FetchResponse{
		URL:        url,
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Body:       []byte(body),
	}
}

func TestExtractReadableArticle(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{resp: htmlResponse("https://example.com/a", articleHTML("Hello, World!"))}
	e := New(fetcher, nil, WithTimeout(3*time.Second))

	got, err := e.Extract(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", got.Title)
	assert.Equal(t, []string{"Ada Lovelace", "Charles Babbage"}, got.Authors)
	assert.Contains(t, got.ContentHTML, "links rotting away")
	assert.Equal(t, "https://example.com/a", got.FinalURL)
	assert.Equal(t, time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC), got.PublishedAt)

	require.Len(t, fetcher.calls, 1)
	assert.Equal(t, 3*time.Second, fetcher.calls[0].Timeout)
	assert.NotEmpty(t, fetcher.calls[0].Headers.Get("Accept"))
}

func TestExtractFetchError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	e := New(&stubFetcher{err: boom}, nil)
	_, err := e.Extract(context.Background(), "https://example.com/a")
	assert.ErrorIs(t, err, boom)
}

func TestExtractRejectsNonHTML(t *testing.T) {
	t.Parallel()

	resp := htmlResponse("https://example.com/file.pdf", "%PDF-1.7")
	resp.Headers.Set("Content-Type", "application/pdf")
	_, err := New(&stubFetcher{resp: resp}, nil).Extract(context.Background(), "https://example.com/file.pdf")
	assert.ErrorContains(t, err, "unsupported content type")
}

func TestExtractFallsBackToHeadless(t *testing.T) {
	t.Parallel()

	static := &stubFetcher{resp: htmlResponse("https://example.com/spa", `<html><head></head><body><div id="root"></div></body></html>`)}
	rendered := &stubFetcher{resp: htmlResponse("https://example.com/spa", articleHTML("Rendered Story"))}

	got, err := New(static, nil, WithHeadless(rendered)).Extract(context.Background(), "https://example.com/spa")
	require.NoError(t, err)
	assert.Equal(t, "Rendered Story", got.Title)
	assert.Len(t, static.calls, 1)
	assert.Len(t, rendered.calls, 1)
}

func TestExtractKeepsStaticResultWhenHeadlessFails(t *testing.T) {
	t.Parallel()

	page := strings.Replace(articleHTML("Static Story"), "<footer>", `<div id="app"></div><footer>`, 1)
	static := &stubFetcher{resp: htmlResponse("https://example.com/hybrid", page)}
	browser := &stubFetcher{err: errors.New("chrome not found")}

	got, err := New(static, nil, WithHeadless(browser)).Extract(context.Background(), "https://example.com/hybrid")
	require.NoError(t, err)
	assert.Equal(t, "Static Story", got.Title)
	assert.Len(t, browser.calls, 1)
}

func TestExtractSkipsHeadlessForRegularPages(t *testing.T) {
	t.Parallel()

	static := &stubFetcher{resp: htmlResponse("https://example.com/post", articleHTML("Plain Story"))}
	browser := &stubFetcher{err: errors.New("unused")}

	got, err := New(static, nil, WithHeadless(browser), WithShellThreshold(100)).Extract(context.Background(), "https://example.com/post")
	require.NoError(t, err)
	assert.Equal(t, "Plain Story", got.Title)
	assert.Empty(t, browser.calls)
}

func TestExtractWithoutHeadlessReportsUnreadable(t *testing.T) {
	t.Parallel()

	static := &stubFetcher{resp: htmlResponse("https://example.com/spa", `<html><head></head><body></body></html>`)}
	_, err := New(static, nil).Extract(context.Background(), "https://example.com/spa")
	assert.Error(t, err)
}

func TestSplitAuthors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"By Jane Doe", []string{"Jane Doe"}},
		{"Ada Lovelace, Charles Babbage & Grace Hopper", []string{"Ada Lovelace", "Charles Babbage", "Grace Hopper"}},
		{"  jane   doe ; Jane Doe", []string{"jane doe"}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, SplitAuthors(tc.in), tc.in)
	}
}

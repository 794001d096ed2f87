// Package extract turns a fetched page into archive.ArticleContent using readability
// heuristics for the body and document metadata for everything readability misses.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-archiver/internal/archive"
)

// ErrUnreadable means the page parsed but yielded no title or body.
var ErrUnreadable = errors.New("page has no readable article")

// Extractor implements archive.Extractor over one or two fetchers.
type Extractor struct {
	fetcher  archive.Fetcher
	headless archive.Fetcher
	detector ShellDetector
	timeout  time.Duration
	logger   *zap.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithHeadless enables a rendered-page retry when the static fetch is unreadable.
func WithHeadless(f archive.Fetcher) Option {
	return func(e *Extractor) {
		e.headless = f
	}
}

// WithShellThreshold sets the visible text length under which a script-heavy static
// page is retried in the browser.
func WithShellThreshold(chars int) Option {
	return func(e *Extractor) {
		e.detector.MinTextLength = chars
	}
}

// WithTimeout bounds each page fetch.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		e.timeout = d
	}
}

// New builds an Extractor.
func New(fetcher archive.Fetcher, logger *zap.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Extractor{fetcher: fetcher, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract fetches rawURL and parses the article out of it. With a headless fetcher
// configured, pages that are unreadable or look like client-rendered shells are
// fetched again through the browser.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (archive.ArticleContent, error) {
	article, shell, err := e.extractWith(ctx, e.fetcher, rawURL)
	if e.headless == nil || (err == nil && !shell) {
		return article, err
	}

	e.logger.Info("static extraction unusable, retrying with headless browser",
		zap.String("url", rawURL), zap.Bool("shell", shell), zap.Error(err))
	rendered, _, herr := e.extractWith(ctx, e.headless, rawURL)
	switch {
	case herr == nil:
		return rendered, nil
	case err == nil:
		e.logger.Warn("headless retry failed, keeping static extraction",
			zap.String("url", rawURL), zap.Error(herr))
		return article, nil
	default:
		return archive.ArticleContent{}, fmt.Errorf("%w; headless retry: %w", err, herr)
	}
}

func (e *Extractor) extractWith(
	ctx context.Context,
	fetcher archive.Fetcher,
	rawURL string,
) (archive.ArticleContent, bool, error) {
	resp, err := fetcher.Fetch(ctx, archive.FetchRequest{
		URL:     rawURL,
		Headers: browserHeaders(),
		Timeout: e.timeout,
	})
	if err != nil {
		return archive.ArticleContent{}, false, fmt.Errorf("fetch page: %w", err)
	}
	if err := checkContentType(resp.Headers); err != nil {
		return archive.ArticleContent{}, false, err
	}
	finalURL := resp.URL
	if finalURL == "" {
		finalURL = rawURL
	}
	shell := e.headless != nil && !resp.UsedHeadless && e.detector.LooksLikeShell(resp.Body)
	article, err := Parse(resp.Body, finalURL)
	return article, shell, err
}

// Parse extracts an article from an HTML document located at pageURL.
func Parse(body []byte, pageURL string) (archive.ArticleContent, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return archive.ArticleContent{}, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return archive.ArticleContent{}, fmt.Errorf("parse html: %w", err)
	}
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return archive.ArticleContent{}, fmt.Errorf("readability: %w", err)
	}

	content := archive.ArticleContent{
		Title:       firstNonEmpty(article.Title, metaTitle(doc)),
		Authors:     SplitAuthors(firstNonEmpty(article.Byline, metaContent(doc, "author", "article:author", "dc.creator"))),
		Summary:     firstNonEmpty(article.Excerpt, metaContent(doc, "description", "og:description")),
		SiteName:    firstNonEmpty(article.SiteName, metaContent(doc, "og:site_name")),
		ContentHTML: strings.TrimSpace(article.Content),
		FinalURL:    parsedURL.String(),
		PublishedAt: publishedAt(doc),
	}
	if content.Title == "" || content.ContentHTML == "" {
		return content, ErrUnreadable
	}
	return content, nil
}

func checkContentType(headers http.Header) error {
	raw := headers.Get("Content-Type")
	if raw == "" {
		return nil
	}
	// Unparsable headers are common; the HTML parser gets the final say on those.
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return nil
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml", "text/plain":
		return nil
	default:
		return fmt.Errorf("unsupported content type %q", mediaType)
	}
}

func browserHeaders() http.Header {
	return http.Header{
		"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
		"Accept-Language": {"en-US,en;q=0.9"},
	}
}

func metaTitle(doc *goquery.Document) string {
	if title := metaContent(doc, "og:title", "twitter:title"); title != "" {
		return title
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// metaContent returns the first non-empty content of a <meta> matched by name or property.
func metaContent(doc *goquery.Document, keys ...string) string {
	for _, key := range keys {
		selector := fmt.Sprintf(`meta[name=%q], meta[property=%q], meta[itemprop=%q]`, key, key, key)
		var found string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = strings.TrimSpace(s.AttrOr("content", ""))
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func publishedAt(doc *goquery.Document) time.Time {
	candidates := []string{
		metaContent(doc, "article:published_time", "og:published_time", "datePublished", "date", "dc.date", "pubdate"),
		strings.TrimSpace(doc.Find(`[itemprop="datePublished"]`).First().AttrOr("datetime", "")),
		strings.TrimSpace(doc.Find("time[datetime]").First().AttrOr("datetime", "")),
	}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if t, err := dateparse.ParseAny(candidate); err == nil && !t.IsZero() {
			return t.UTC()
		}
	}
	return time.Time{}
}

// SplitAuthors turns a byline such as "By Ada Lovelace and Charles Babbage" into names.
func SplitAuthors(byline string) []string {
	byline = strings.TrimSpace(byline)
	if len(byline) >= 3 && strings.EqualFold(byline[:3], "by ") {
		byline = byline[3:]
	}
	replacer := strings.NewReplacer(" and ", ",", " & ", ",", ";", ",", "|", ",")
	var authors []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(replacer.Replace(byline), ",") {
		name := strings.Join(strings.Fields(part), " ")
		if name == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(name)]; dup {
			continue
		}
		seen[strings.ToLower(name)] = struct{}{}
		authors = append(authors, name)
	}
	return authors
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Package images localizes remote images referenced by article content: it fetches them,
// downscales oversized ones and rewrites the content to point at the stored copies.
package images

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/article-archiver/internal/archive"
	"github.com/JakeFAU/article-archiver/internal/metrics"
)

// Config controls fetching and encoding.
type Config struct {
	// Dir is the archive-relative directory images are written to.
	Dir string
	// ReferencePrefix is prepended to Dir/name in rewritten src attributes, so the
	// reference resolves from the page the content is embedded in.
	ReferencePrefix string
	MaxWidth        int
	JPEGQuality     int
	Concurrency     int
	Timeout         time.Duration
	MaxBytes        int
	// MaxPixels caps width*height of a decoded image.
	MaxPixels int
}

// Waiter paces requests per host.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Result is the outcome of one Localize call.
type Result struct {
	HTML string
	// LocalPaths are archive-relative paths in embedding order.
	LocalPaths []string
	// Failed lists absolute URLs that were left remote.
	Failed []string
}

// Localizer fetches and stores images referenced by article HTML.
type Localizer struct {
	cfg     Config
	fetcher archive.Fetcher
	store   archive.ObjectWriter
	limiter Waiter
	logger  *zap.Logger
}

// New builds a Localizer. limiter may be nil.
func New(cfg Config, fetcher archive.Fetcher, store archive.ObjectWriter, limiter Waiter, logger *zap.Logger) *Localizer {
	if cfg.Dir == "" {
		cfg.Dir = "images"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Localizer{cfg: cfg, fetcher: fetcher, store: store, limiter: limiter, logger: logger}
}

type imageRef struct {
	position int
	node     *goquery.Selection
	absolute string
}

type localized struct {
	ref       imageRef
	localPath string
	err       error
}

// Localize rewrites every fetchable <img> in contentHTML to a stored local copy named
// after slug and the image's 1-based position. Failures are per image and never abort
// the others; failed images keep pointing at the remote original, resolved to an
// absolute URL.
func (l *Localizer) Localize(ctx context.Context, contentHTML, baseURL, slug string) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contentHTML))
	if err != nil {
		return Result{HTML: contentHTML}, fmt.Errorf("parse content: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return Result{HTML: contentHTML}, fmt.Errorf("parse base url: %w", err)
	}

	refs := collectRefs(doc, base)
	if len(refs) == 0 {
		return Result{HTML: contentHTML}, nil
	}

	results := make([]localized, len(refs))
	var g errgroup.Group
	g.SetLimit(l.cfg.Concurrency)
	for i := range refs {
		g.Go(func() error {
			localPath, err := l.localizeOne(ctx, refs[i], slug)
			results[i] = localized{ref: refs[i], localPath: localPath, err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := Result{}
	for _, res := range results {
		if res.err != nil {
			metrics.ObserveImage("failed")
			l.logger.Warn("image localization failed, keeping remote reference",
				zap.String("image_url", res.ref.absolute),
				zap.Int("position", res.ref.position),
				zap.Error(res.err))
			// Relative references would break once the content moves into the archive.
			res.ref.node.SetAttr("src", res.ref.absolute)
			out.Failed = append(out.Failed, res.ref.absolute)
			continue
		}
		metrics.ObserveImage("localized")
		res.ref.node.SetAttr("src", l.cfg.ReferencePrefix+res.localPath)
		res.ref.node.RemoveAttr("srcset")
		res.ref.node.RemoveAttr("data-src")
		res.ref.node.RemoveAttr("sizes")
		out.LocalPaths = append(out.LocalPaths, res.localPath)
	}

	html, err := renderBody(doc)
	if err != nil {
		return Result{HTML: contentHTML, Failed: out.Failed}, fmt.Errorf("render content: %w", err)
	}
	out.HTML = html
	return out, nil
}

func (l *Localizer) localizeOne(ctx context.Context, ref imageRef, slug string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	if l.limiter != nil {
		if err := l.limiter.Wait(ctx, ref.absolute); err != nil {
			return "", fmt.Errorf("%w: %w", archive.ErrImageFetch, err)
		}
	}
	resp, err := l.fetcher.Fetch(ctx, archive.FetchRequest{
		URL:     ref.absolute,
		Headers: imageHeaders(),
		Timeout: l.cfg.Timeout,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", archive.ErrImageFetch, err)
	}
	if l.cfg.MaxBytes > 0 && len(resp.Body) > l.cfg.MaxBytes {
		return "", fmt.Errorf("%w: body of %d bytes exceeds limit", archive.ErrImageFetch, len(resp.Body))
	}

	encoded, err := Process(resp.Body, l.cfg.MaxWidth, l.cfg.JPEGQuality, l.cfg.MaxPixels)
	if err != nil {
		return "", err
	}

	localPath := path.Join(l.cfg.Dir, FileName(slug, ref.position, encoded.Ext))
	if _, err := l.store.PutObject(ctx, localPath, encoded.ContentType, bytes.NewReader(encoded.Data)); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return localPath, nil
}

// FileName is the deterministic image name for position within an entry.
func FileName(slug string, position int, ext string) string {
	return fmt.Sprintf("%s-%02d%s", slug, position, ext)
}

func collectRefs(doc *goquery.Document, base *url.URL) []imageRef {
	var refs []imageRef
	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.AttrOr("src", ""))
		if raw == "" || strings.HasPrefix(raw, "data:") {
			if lazy := strings.TrimSpace(s.AttrOr("data-src", "")); lazy != "" {
				raw = lazy
			}
		}
		if raw == "" || strings.HasPrefix(raw, "data:") {
			return
		}
		resolved, err := base.Parse(raw)
		if err != nil || (resolved.Scheme != "http" && resolved.Scheme != "https") {
			return
		}
		refs = append(refs, imageRef{position: i + 1, node: s, absolute: resolved.String()})
	})
	return refs
}

// renderBody serializes the fragment goquery wrapped in <html><body>.
func renderBody(doc *goquery.Document) (string, error) {
	return doc.Find("body").Html()
}

func imageHeaders() http.Header {
	return http.Header{
		"Accept": {"image/avif,image/webp,image/png,image/jpeg,image/*;q=0.8,*/*;q=0.5"},
	}
}

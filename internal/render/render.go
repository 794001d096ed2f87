// Package render builds the archive's derived views: the browsable index, the RSS feed
// and the standalone page for each entry. Rendering is a pure function of the entry
// snapshot and Options; Generator adds the I/O around it.
package render

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/JakeFAU/article-archiver/internal/archive"
)

// DefaultFeedItems is the feed window used when Options.FeedMaxItems is unset.
const DefaultFeedItems = 20

// Options carries everything Render needs besides the entries.
type Options struct {
	// GeneratedAt is stamped into both documents and is the only time-dependent input.
	GeneratedAt     time.Time
	FeedTitle       string
	FeedLink        string
	FeedDescription string
	FeedMaxItems    int
	// Layout locates the index, the feed and entry pages so links resolve from the index.
	Layout Layout
}

// Views are the rendered documents.
type Views struct {
	Index []byte
	Feed  []byte
}

// Render produces the index and feed documents for entries.
func Render(entries map[string]archive.Entry, opts Options) (Views, error) {
	if opts.FeedMaxItems <= 0 {
		opts.FeedMaxItems = DefaultFeedItems
	}
	opts.Layout = opts.Layout.withDefaults()
	ordered := Ordered(entries)

	index, err := renderIndex(ordered, opts)
	if err != nil {
		return Views{}, fmt.Errorf("%w: index: %w", archive.ErrViewRender, err)
	}

	window := ordered
	if len(window) > opts.FeedMaxItems {
		window = window[:opts.FeedMaxItems]
	}
	feed, err := renderFeed(window, opts)
	if err != nil {
		return Views{}, fmt.Errorf("%w: feed: %w", archive.ErrViewRender, err)
	}
	return Views{Index: index, Feed: feed}, nil
}

// Ordered returns entries newest first. Entries without a capture date sort last; ties
// break on id so the order never depends on map iteration.
func Ordered(entries map[string]archive.Entry) []archive.Entry {
	out := make([]archive.Entry, 0, len(entries))
	for key, entry := range entries {
		if entry.ID == "" {
			entry.ID = key
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.CapturedAt.IsZero() != b.CapturedAt.IsZero():
			return b.CapturedAt.IsZero()
		case !a.CapturedAt.Equal(b.CapturedAt.Time):
			return a.CapturedAt.After(b.CapturedAt.Time)
		default:
			return a.ID < b.ID
		}
	})
	return out
}

type card struct {
	ID      string
	Title   string
	Href    string
	Date    string
	ISODate string
	Authors string
	Summary string
	Site    string
	Source  string
	Search  string
}

type indexPage struct {
	Title       string
	Description string
	FeedHref    string
	Generated   string
	Count       int
	Cards       []card
}

func renderIndex(ordered []archive.Entry, opts Options) ([]byte, error) {
	indexDir := path.Dir(opts.Layout.IndexFile)
	page := indexPage{
		Title:       opts.FeedTitle,
		Description: opts.FeedDescription,
		FeedHref:    RelativeLink(indexDir, opts.Layout.FeedFile),
		Count:       len(ordered),
		Cards:       make([]card, 0, len(ordered)),
	}
	if !opts.GeneratedAt.IsZero() {
		page.Generated = opts.GeneratedAt.UTC().Format(time.RFC3339)
	}
	for _, e := range ordered {
		c := newCard(e)
		if c.Href == "" {
			c.Href = EntryPath(opts.Layout.EntriesDir, e.ID)
		}
		c.Href = RelativeLink(indexDir, c.Href)
		page.Cards = append(page.Cards, c)
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newCard(e archive.Entry) card {
	c := card{
		ID:      e.ID,
		Title:   e.Title,
		Href:    e.ContentRef,
		Date:    "Undated",
		Authors: strings.Join(e.Authors, ", "),
		Summary: e.Summary,
		Site:    e.SiteName,
		Source:  e.SourceURL,
	}
	if !e.CapturedAt.IsZero() {
		c.Date = e.CapturedAt.UTC().Format("2 Jan 2006")
		c.ISODate = e.CapturedAt.UTC().Format(time.RFC3339)
	}
	c.Search = strings.ToLower(strings.Join([]string{e.Title, c.Authors, e.Summary, e.SiteName}, " "))
	return c
}

// EntryPath is the archive-relative location of an entry's page.
func EntryPath(entriesDir, id string) string {
	return strings.TrimSuffix(entriesDir, "/") + "/" + id + ".html"
}

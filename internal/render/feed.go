package render

import (
	"strings"

	"github.com/gorilla/feeds"

	"github.com/JakeFAU/article-archiver/internal/archive"
)

func renderFeed(window []archive.Entry, opts Options) ([]byte, error) {
	feed := &feeds.Feed{
		Title:       opts.FeedTitle,
		Link:        &feeds.Link{Href: opts.FeedLink},
		Description: opts.FeedDescription,
		Updated:     opts.GeneratedAt.UTC(),
		Items:       make([]*feeds.Item, 0, len(window)),
	}

	for _, e := range window {
		item := &feeds.Item{
			Title:       e.Title,
			Link:        &feeds.Link{Href: e.SourceURL},
			Id:          e.ID,
			Description: e.Summary,
		}
		if !e.CapturedAt.IsZero() {
			item.Created = e.CapturedAt.UTC()
		}
		if len(e.Authors) > 0 {
			item.Author = &feeds.Author{Name: strings.Join(e.Authors, ", ")}
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		return nil, err
	}
	return []byte(rss), nil
}

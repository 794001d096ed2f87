package render

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/article-archiver/internal/archive"
	"github.com/JakeFAU/article-archiver/internal/metrics"
)

// EntryLoader supplies the full entry snapshot.
type EntryLoader interface {
	Load(ctx context.Context) map[string]archive.Entry
}

// Generator rebuilds the index and feed from the metadata store.
type Generator struct {
	entries EntryLoader
	blobs   archive.BlobStore
	layout  Layout
	opts    Options
	clock   archive.Clock
	logger  *zap.Logger
}

// NewGenerator wires a Generator. opts.GeneratedAt is ignored; each regeneration
// stamps the clock's current time.
func NewGenerator(
	entries EntryLoader,
	blobs archive.BlobStore,
	layout Layout,
	opts Options,
	clock archive.Clock,
	logger *zap.Logger,
) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	layout = layout.withDefaults()
	opts.Layout = layout
	return &Generator{entries: entries, blobs: blobs, layout: layout, opts: opts, clock: clock, logger: logger}
}

// Regenerate reads the whole store and rewrites both views. Entries whose page is
// missing are left out with a warning. It returns the number of entries rendered.
func (g *Generator) Regenerate(ctx context.Context) (int, error) {
	snapshot := g.entries.Load(ctx)

	visible := make(map[string]archive.Entry, len(snapshot))
	for id, entry := range snapshot {
		ref := entry.ContentRef
		if ref == "" {
			ref = EntryPath(g.layout.EntriesDir, id)
		}
		ok, err := g.blobs.Exists(ctx, ref)
		if err != nil || !ok {
			g.logger.Warn("entry page missing, leaving it out of the views",
				zap.String("entry_id", id),
				zap.String("path", ref),
				zap.Error(err))
			continue
		}
		visible[id] = entry
	}

	opts := g.opts
	if g.clock != nil {
		opts.GeneratedAt = g.clock.Now()
	}
	views, err := Render(visible, opts)
	if err != nil {
		return 0, err
	}

	if err := g.write(ctx, g.layout.IndexFile, "text/html; charset=utf-8", views.Index); err != nil {
		return 0, err
	}
	if err := g.write(ctx, g.layout.FeedFile, "application/rss+xml; charset=utf-8", views.Feed); err != nil {
		return 0, err
	}

	metrics.SetEntries(len(visible))
	g.logger.Info("views regenerated",
		zap.Int("entries", len(visible)),
		zap.Int("skipped", len(snapshot)-len(visible)))
	return len(visible), nil
}

func (g *Generator) write(ctx context.Context, path, contentType string, data []byte) error {
	if _, err := g.blobs.PutObject(ctx, path, contentType, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: write %s: %w", archive.ErrViewRender, path, err)
	}
	return nil
}

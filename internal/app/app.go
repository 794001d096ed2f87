// Package app wires configuration into the archiver's collaborators and runs one
// archival pass: archive the submitted URL, rebuild the views, mirror what changed.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	gcsstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-archiver/internal/archive"
	"github.com/JakeFAU/article-archiver/internal/clock/system"
	"github.com/JakeFAU/article-archiver/internal/config"
	"github.com/JakeFAU/article-archiver/internal/dedup"
	"github.com/JakeFAU/article-archiver/internal/extract"
	collyfetcher "github.com/JakeFAU/article-archiver/internal/fetcher/colly"
	"github.com/JakeFAU/article-archiver/internal/fetcher/headless"
	"github.com/JakeFAU/article-archiver/internal/hash/sha256"
	"github.com/JakeFAU/article-archiver/internal/id/uuid"
	"github.com/JakeFAU/article-archiver/internal/images"
	"github.com/JakeFAU/article-archiver/internal/metrics"
	"github.com/JakeFAU/article-archiver/internal/pipeline"
	"github.com/JakeFAU/article-archiver/internal/policy/ratelimit"
	"github.com/JakeFAU/article-archiver/internal/publisher/pubsub"
	"github.com/JakeFAU/article-archiver/internal/render"
	"github.com/JakeFAU/article-archiver/internal/storage/gcs"
	"github.com/JakeFAU/article-archiver/internal/storage/local"
	"github.com/JakeFAU/article-archiver/internal/storage/postgres"
	"github.com/JakeFAU/article-archiver/internal/store"
)

// App holds the long-lived services for one process. It is built once at startup from
// configuration and closed on exit.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	blobs     *local.BlobStore
	store     *store.Store
	pipeline  *pipeline.Pipeline
	generator *render.Generator
	mirror    archive.ObjectWriter
	clock     archive.Clock
	ids       archive.IDGenerator
	closers   []func() error
}

// Report summarizes one Run.
type Report struct {
	RunID string
	// Archive is the zero Result when the run carried no URL.
	Archive  pipeline.Result
	Rendered int
}

// Option overrides a collaborator New would otherwise build from configuration.
type Option func(*overrides)

type overrides struct {
	extractor archive.Extractor
	publisher archive.Publisher
	catalog   archive.Catalog
	mirror    archive.ObjectWriter
	clock     archive.Clock
	ids       archive.IDGenerator
}

// WithExtractor replaces the HTTP extractor.
func WithExtractor(e archive.Extractor) Option {
	return func(o *overrides) { o.extractor = e }
}

// WithPublisher replaces the Pub/Sub publisher.
func WithPublisher(p archive.Publisher) Option {
	return func(o *overrides) { o.publisher = p }
}

// WithCatalog replaces the Postgres catalog.
func WithCatalog(c archive.Catalog) Option {
	return func(o *overrides) { o.catalog = c }
}

// WithMirror replaces the GCS mirror.
func WithMirror(m archive.ObjectWriter) Option {
	return func(o *overrides) { o.mirror = m }
}

// WithClock fixes the clock used for capture and generation times.
func WithClock(c archive.Clock) Option {
	return func(o *overrides) { o.clock = c }
}

// WithIDGenerator replaces the run id generator.
func WithIDGenerator(g archive.IDGenerator) Option {
	return func(o *overrides) { o.ids = g }
}

// New builds every collaborator cfg asks for. It fails fast when the archive root is
// unusable or an enabled integration cannot be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o overrides
	for _, opt := range opts {
		opt(&o)
	}

	metrics.Init()

	blobs, err := local.New(local.Config{BaseDir: cfg.Archive.RootDir})
	if err != nil {
		return nil, fmt.Errorf("open archive root: %w", err)
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		blobs:  blobs,
		store:  store.New(blobs, cfg.Archive.MetadataFile, logger.Named("store")),
		clock:  o.clock,
		ids:    o.ids,
		mirror: o.mirror,
	}
	if a.clock == nil {
		a.clock = system.New()
	}
	if a.ids == nil {
		a.ids = uuid.NewUUIDGenerator()
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:   cfg.HTTP.UserAgent,
		Timeout:     cfg.FetchTimeout(),
		MaxBodySize: cfg.HTTP.MaxBodyBytes,
		Retry: collyfetcher.RetryConfig{
			MaxRetries: cfg.HTTP.MaxRetries,
			BaseDelay:  time.Duration(cfg.HTTP.BackoffInitialMs) * time.Millisecond,
			MaxDelay:   time.Duration(cfg.HTTP.BackoffMaxMs) * time.Millisecond,
		},
	})

	extractor := o.extractor
	if extractor == nil {
		extractor, err = a.buildExtractor(fetcher)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	layout := render.Layout{
		EntriesDir: cfg.Archive.EntriesDir,
		IndexFile:  cfg.Archive.IndexFile,
		FeedFile:   cfg.Archive.FeedFile,
	}

	pipelineOpts := []pipeline.Option{}
	if cfg.Images.Enabled {
		prefix := cfg.Images.ReferencePrefix
		if prefix == "" {
			prefix = render.RootPrefix(cfg.Archive.EntriesDir)
		}
		limiter := ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.Images.PerHostRPS,
			DefaultBurst: cfg.Images.PerHostBurst,
		})
		localizer := images.New(images.Config{
			Dir:             cfg.Archive.ImagesDir,
			ReferencePrefix: prefix,
			MaxWidth:        cfg.Images.MaxWidth,
			JPEGQuality:     cfg.Images.JPEGQuality,
			Concurrency:     cfg.Images.Concurrency,
			Timeout:         cfg.ImageTimeout(),
			MaxBytes:        cfg.Images.MaxBytes,
			MaxPixels:       cfg.Images.MaxPixels,
		}, fetcher, blobs, limiter, logger.Named("images"))
		pipelineOpts = append(pipelineOpts, pipeline.WithLocalizer(localizer))
	}

	publisher, err := a.buildPublisher(ctx, o.publisher)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if publisher != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithPublisher(publisher))
	}

	catalog, err := a.buildCatalog(ctx, o.catalog)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if catalog != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithCatalog(catalog))
	}

	if a.mirror == nil && cfg.Mirror.GCSBucket != "" {
		if err := a.buildMirror(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	a.pipeline = pipeline.New(
		a.store,
		dedup.New(sha256.New()),
		extractor,
		blobs,
		a.clock,
		pipeline.Config{EntriesDir: cfg.Archive.EntriesDir, IndexFile: cfg.Archive.IndexFile},
		logger.Named("pipeline"),
		pipelineOpts...,
	)
	a.generator = render.NewGenerator(
		a.store,
		blobs,
		layout,
		render.Options{
			FeedTitle:       cfg.Feed.Title,
			FeedLink:        cfg.Feed.Link,
			FeedDescription: cfg.Feed.Description,
			FeedMaxItems:    cfg.Feed.MaxItems,
		},
		a.clock,
		logger.Named("render"),
	)

	logger.Info("archiver initialized",
		zap.String("path", blobs.BaseDir()),
		zap.Bool("images", cfg.Images.Enabled),
		zap.Bool("headless", cfg.Extractor.HeadlessFallback),
		zap.Bool("mirror", a.mirror != nil),
		zap.Bool("notify", publisher != nil),
		zap.Bool("catalog", catalog != nil))
	return a, nil
}

func (a *App) buildExtractor(fetcher archive.Fetcher) (archive.Extractor, error) {
	opts := []extract.Option{extract.WithTimeout(a.cfg.FetchTimeout())}
	if a.cfg.Extractor.HeadlessFallback {
		browser, err := headless.NewChromedp(headless.Config{
			UserAgent:         a.cfg.HTTP.UserAgent,
			NavigationTimeout: time.Duration(a.cfg.Extractor.NavTimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("start headless browser: %w", err)
		}
		a.closers = append(a.closers, func() error { browser.Close(); return nil })
		opts = append(opts,
			extract.WithHeadless(browser),
			extract.WithShellThreshold(a.cfg.Extractor.ShellMinText))
	}
	return extract.New(fetcher, a.logger.Named("extract"), opts...), nil
}

func (a *App) buildPublisher(ctx context.Context, override archive.Publisher) (archive.Publisher, error) {
	if override != nil {
		return override, nil
	}
	if a.cfg.Notify.ProjectID == "" {
		return nil, nil
	}
	pub, err := pubsub.Connect(ctx, a.cfg.Notify.ProjectID, a.cfg.Notify.TopicName)
	if err != nil {
		return nil, fmt.Errorf("connect pubsub: %w", err)
	}
	a.closers = append(a.closers, pub.Close)
	return pub, nil
}

func (a *App) buildCatalog(ctx context.Context, override archive.Catalog) (archive.Catalog, error) {
	if override != nil {
		return override, nil
	}
	if a.cfg.Catalog.DSN == "" {
		return nil, nil
	}
	catalog, err := postgres.NewCatalog(ctx, postgres.CatalogConfig{
		DSN:      a.cfg.Catalog.DSN,
		Table:    a.cfg.Catalog.Table,
		MaxConns: a.cfg.Catalog.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	a.closers = append(a.closers, func() error { catalog.Close(); return nil })
	if err := catalog.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("prepare catalog: %w", err)
	}
	return catalog, nil
}

func (a *App) buildMirror(ctx context.Context) error {
	client, err := gcsstorage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create gcs client: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	mirror, err := gcs.New(client, gcs.Config{
		Bucket:       a.cfg.Mirror.GCSBucket,
		Prefix:       a.cfg.Mirror.Prefix,
		CacheControl: a.cfg.Mirror.CacheControl,
	})
	if err != nil {
		return fmt.Errorf("configure gcs mirror: %w", err)
	}
	a.mirror = mirror
	return nil
}

// Logger returns the process logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Store exposes the metadata store.
func (a *App) Store() *store.Store {
	return a.store
}

// Run archives rawURL when it is non-empty and then regenerates the views, whatever
// the archival outcome. The returned error is non-nil only when the archive could not
// be durably updated; view and mirror failures are logged.
func (a *App) Run(ctx context.Context, rawURL string) (Report, error) {
	runID, err := a.ids.NewID()
	if err != nil {
		a.logger.Warn("run id unavailable", zap.Error(err))
	}
	ctx = pipeline.WithRunID(ctx, runID)
	logger := a.logger.With(zap.String("run_id", runID))
	report := Report{RunID: runID}

	var archiveErr error
	if rawURL == "" {
		logger.Info("no url in payload, regenerating views only")
	} else {
		report.Archive, archiveErr = a.pipeline.Archive(ctx, rawURL)
	}

	rendered, renderErr := a.generator.Regenerate(ctx)
	if renderErr != nil {
		logger.Error("view regeneration failed", zap.Error(renderErr))
	}
	report.Rendered = rendered

	if a.mirror != nil {
		a.mirrorRun(ctx, logger, report.Archive, renderErr == nil)
	}
	a.writeMetrics(logger)

	return report, archiveErr
}

// Render regenerates the views without archiving anything.
func (a *App) Render(ctx context.Context) (Report, error) {
	return a.Run(ctx, "")
}

func (a *App) mirrorRun(ctx context.Context, logger *zap.Logger, res pipeline.Result, viewsFresh bool) {
	var paths []string
	if res.Outcome == pipeline.OutcomeArchived {
		entry, ok := a.store.Load(ctx)[res.EntryID]
		if ok {
			paths = append(paths, entry.ContentRef)
			paths = append(paths, entry.LocalImagePaths...)
		}
		paths = append(paths, a.cfg.Archive.MetadataFile)
	}
	if viewsFresh {
		paths = append(paths, a.cfg.Archive.IndexFile, a.cfg.Archive.FeedFile)
	}

	for _, p := range paths {
		if err := a.mirrorOne(ctx, p); err != nil {
			logger.Warn("mirror upload failed", zap.String("path", p), zap.Error(err))
			continue
		}
		logger.Debug("mirrored", zap.String("path", p))
	}
}

func (a *App) mirrorOne(ctx context.Context, p string) error {
	data, err := a.blobs.GetObject(ctx, p)
	if err != nil {
		return err
	}
	_, err = a.mirror.PutObject(ctx, p, contentTypeFor(p), bytes.NewReader(data))
	return err
}

func (a *App) writeMetrics(logger *zap.Logger) {
	if a.cfg.Metrics.TextfilePath == "" {
		return
	}
	if err := metrics.WriteTextfile(a.cfg.Metrics.TextfilePath, a.clock.Now()); err != nil {
		logger.Warn("metrics textfile not written", zap.String("path", a.cfg.Metrics.TextfilePath), zap.Error(err))
	}
}

// Close releases every integration opened by New.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func contentTypeFor(p string) string {
	switch path.Ext(p) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".xml":
		return "application/rss+xml; charset=utf-8"
	case ".json":
		return "application/json"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

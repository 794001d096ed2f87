package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/article-archiver/internal/archive"
	"github.com/JakeFAU/article-archiver/internal/dedup"
	"github.com/JakeFAU/article-archiver/internal/metrics"
	"github.com/JakeFAU/article-archiver/internal/render"
)

// Config controls where entry pages are written and where their back-link points.
type Config struct {
	EntriesDir string
	IndexFile  string
}

// Pipeline archives URLs into the metadata store.
type Pipeline struct {
	store     EntryStore
	index     *dedup.Index
	extractor archive.Extractor
	localizer ImageLocalizer
	pages     archive.ObjectWriter
	publisher archive.Publisher
	catalog   archive.Catalog
	clock     archive.Clock
	cfg       Config
	backLink  string
	logger    *zap.Logger
}

// Option customizes optional collaborators.
type Option func(*Pipeline)

// WithLocalizer enables image localization.
func WithLocalizer(l ImageLocalizer) Option {
	return func(p *Pipeline) { p.localizer = l }
}

// WithPublisher announces archived entries.
func WithPublisher(pub archive.Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithCatalog mirrors archived entries into a catalog.
func WithCatalog(c archive.Catalog) Option {
	return func(p *Pipeline) { p.catalog = c }
}

// New constructs a Pipeline.
func New(
	store EntryStore,
	index *dedup.Index,
	extractor archive.Extractor,
	pages archive.ObjectWriter,
	clock archive.Clock,
	cfg Config,
	logger *zap.Logger,
	opts ...Option,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EntriesDir == "" {
		cfg.EntriesDir = "entries"
	}
	if cfg.IndexFile == "" {
		cfg.IndexFile = "index.html"
	}
	p := &Pipeline{
		store:     store,
		index:     index,
		extractor: extractor,
		pages:     pages,
		clock:     clock,
		cfg:       cfg,
		backLink:  render.Layout{EntriesDir: cfg.EntriesDir, IndexFile: cfg.IndexFile}.BackLink(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Archive runs one URL through the pipeline. Invalid URLs, duplicates and extraction
// failures are reported in the Result and return a nil error; the error is reserved for
// failures that leave the archive unable to record the entry durably (ErrArtifactWrite,
// ErrStoreSave), which callers treat as fatal for the run.
func (p *Pipeline) Archive(ctx context.Context, rawURL string) (Result, error) {
	started := time.Now()
	logger := p.logger.With(zap.String("run_id", RunID(ctx)))

	result, err := p.archive(ctx, logger, rawURL)

	metrics.ObserveRun(string(result.Outcome))
	fields := []zap.Field{
		zap.String("url", result.URL),
		zap.String("outcome", string(result.Outcome)),
		zap.String("entry_id", result.EntryID),
		zap.Duration("elapsed", time.Since(started)),
	}
	switch {
	case err != nil:
		logger.Error("archive attempt aborted", append(fields, zap.Error(err))...)
	case result.Outcome == OutcomeFailed:
		logger.Warn("archive attempt failed", append(fields, zap.Error(result.Err))...)
	default:
		logger.Info("archive attempt finished", fields...)
	}
	return result, err
}

func (p *Pipeline) archive(ctx context.Context, logger *zap.Logger, rawURL string) (Result, error) {
	result := Result{URL: strings.TrimSpace(rawURL)}
	stageStart := time.Now()

	target, err := archive.NormalizeSubmittedURL(rawURL)
	if err != nil {
		return p.fail(result, StageReceived, err), nil
	}
	result.URL = target
	logger = logger.With(zap.String("url", target))
	logger.Debug("stage reached", zap.String("stage", string(StageReceived)))

	snapshot := p.store.Load(ctx)
	if match, ok := p.index.FindExisting(snapshot, target); ok {
		p.advance(logger, StageDedupChecked, stageStart)
		logger.Info("url already archived, skipping",
			zap.String("entry_id", match.ID),
			zap.String("match", string(match.Kind)))
		result.Outcome = OutcomeSkipped
		result.EntryID = match.ID
		result.MatchKind = match.Kind
		return result, nil
	}
	stageStart = p.advance(logger, StageDedupChecked, stageStart)

	content, err := p.extractor.Extract(ctx, target)
	if err != nil {
		return p.fail(result, StageExtracted, fmt.Errorf("%w: %w", archive.ErrExtractionFailed, err)), nil
	}
	title := strings.TrimSpace(content.Title)
	if title == "" {
		return p.fail(result, StageExtracted, fmt.Errorf("%w: empty title", archive.ErrExtractionFailed)), nil
	}
	stageStart = p.advance(logger, StageExtracted, stageStart)

	archivedAt := p.clock.Now().UTC()
	capturedAt := archivedAt
	if !content.PublishedAt.IsZero() {
		capturedAt = content.PublishedAt.UTC()
	}
	id := archive.UniqueID(archive.EntryID(capturedAt, title), func(candidate string) bool {
		_, taken := snapshot[candidate]
		return taken
	})
	logger = logger.With(zap.String("entry_id", id))

	body := content.ContentHTML
	localPaths := []string{}
	if p.localizer != nil {
		baseURL := content.FinalURL
		if baseURL == "" {
			baseURL = target
		}
		localized, err := p.localizer.Localize(ctx, body, baseURL, id)
		if err != nil {
			logger.Warn("image localization skipped", zap.Error(err))
		} else {
			body = localized.HTML
			localPaths = append(localPaths, localized.LocalPaths...)
			result.ImageFailures = len(localized.Failed)
		}
	}
	result.Images = len(localPaths)
	stageStart = p.advance(logger, StageImagesLocalized, stageStart)

	fingerprint, err := p.index.Fingerprint(target)
	if err != nil {
		logger.Warn("fingerprint unavailable", zap.Error(err))
	}
	authors := content.Authors
	if authors == nil {
		authors = []string{}
	}
	entry := archive.Entry{
		ID:              id,
		Title:           title,
		SourceURL:       target,
		URLFingerprint:  fingerprint,
		CapturedAt:      archive.NewTimestamp(capturedAt),
		Authors:         authors,
		Summary:         strings.TrimSpace(content.Summary),
		SiteName:        strings.TrimSpace(content.SiteName),
		LocalImagePaths: localPaths,
		ContentRef:      render.EntryPath(p.cfg.EntriesDir, id),
		ArchivedAt:      archive.NewTimestamp(archivedAt),
	}

	if err := p.writePage(ctx, entry, body); err != nil {
		result.Outcome = OutcomeFailed
		return result, &StageError{Stage: StagePersisted, URL: target, Err: err}
	}

	snapshot[id] = entry
	if err := p.store.Save(ctx, snapshot); err != nil {
		result.Outcome = OutcomeFailed
		return result, &StageError{Stage: StagePersisted, URL: target, Err: err}
	}
	p.advance(logger, StagePersisted, stageStart)

	result.Outcome = OutcomeArchived
	result.EntryID = id
	p.notify(ctx, logger, entry)
	return result, nil
}

func (p *Pipeline) writePage(ctx context.Context, entry archive.Entry, body string) error {
	page, err := render.Artifact(entry, body, p.backLink)
	if err != nil {
		return fmt.Errorf("%w: %w", archive.ErrArtifactWrite, err)
	}
	if _, err := p.pages.PutObject(ctx, entry.ContentRef, "text/html; charset=utf-8", bytes.NewReader(page)); err != nil {
		return fmt.Errorf("%w: %w", archive.ErrArtifactWrite, err)
	}
	return nil
}

// notify runs after the save; its failures are logged and never undo the entry.
func (p *Pipeline) notify(ctx context.Context, logger *zap.Logger, entry archive.Entry) {
	if p.publisher != nil {
		event := ArchivedEvent{
			Event:      EventArchived,
			RunID:      RunID(ctx),
			EntryID:    entry.ID,
			Title:      entry.Title,
			SourceURL:  entry.SourceURL,
			ContentRef: entry.ContentRef,
			CapturedAt: entry.CapturedAt.UTC().Format(time.RFC3339),
			ArchivedAt: entry.ArchivedAt.UTC().Format(time.RFC3339),
			Images:     entry.LocalImagePaths,
		}
		if msgID, err := p.publisher.Publish(ctx, EventArchived, event); err != nil {
			logger.Warn("archive event not published", zap.Error(err))
		} else {
			logger.Debug("archive event published", zap.String("message_id", msgID))
		}
	}
	if p.catalog != nil {
		if err := p.catalog.UpsertEntry(ctx, entry); err != nil {
			logger.Warn("catalog upsert failed", zap.Error(err))
		}
	}
}

func (p *Pipeline) advance(logger *zap.Logger, stage Stage, since time.Time) time.Time {
	metrics.ObserveStage(string(stage), time.Since(since))
	logger.Debug("stage reached", zap.String("stage", string(stage)))
	return time.Now()
}

func (p *Pipeline) fail(result Result, stage Stage, err error) Result {
	result.Outcome = OutcomeFailed
	result.Err = &StageError{Stage: stage, URL: result.URL, Err: err}
	return result
}

// IsFatal reports whether err means the archive could not be durably updated.
func IsFatal(err error) bool {
	return errors.Is(err, archive.ErrStoreSave) || errors.Is(err, archive.ErrArtifactWrite)
}

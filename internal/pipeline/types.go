// Package pipeline archives a single submitted URL: duplicate check, extraction, image
// localization, the per-entry page and the durable metadata write.
package pipeline

import (
	"context"
	"fmt"

	"github.com/JakeFAU/article-archiver/internal/archive"
	"github.com/JakeFAU/article-archiver/internal/dedup"
	"github.com/JakeFAU/article-archiver/internal/images"
)

// Stage names a step of one archival attempt.
type Stage string

// Stages in execution order.
const (
	StageReceived        Stage = "received"
	StageDedupChecked    Stage = "dedup_checked"
	StageExtracted       Stage = "extracted"
	StageImagesLocalized Stage = "images_localized"
	StagePersisted       Stage = "persisted"
)

// Outcome is the terminal state of an attempt.
type Outcome string

// Terminal outcomes.
const (
	OutcomeArchived Outcome = "archived"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// EventArchived is published after an entry is durably saved.
const EventArchived = "entry.archived"

// Result describes how an attempt ended. For OutcomeArchived EntryID is the new entry;
// for OutcomeSkipped it is the entry the URL duplicates.
type Result struct {
	Outcome       Outcome
	URL           string
	EntryID       string
	MatchKind     dedup.MatchKind
	Images        int
	ImageFailures int
	// Err explains an OutcomeFailed attempt. It is nil otherwise.
	Err error
}

// StageError ties a failure to the stage that produced it.
type StageError struct {
	Stage Stage
	URL   string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.URL, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ArchivedEvent is the payload announced for every new entry.
type ArchivedEvent struct {
	Event      string   `json:"event"`
	RunID      string   `json:"run_id,omitempty"`
	EntryID    string   `json:"entry_id"`
	Title      string   `json:"title"`
	SourceURL  string   `json:"source_url"`
	ContentRef string   `json:"content_ref"`
	CapturedAt string   `json:"captured_at"`
	ArchivedAt string   `json:"archived_at"`
	Images     []string `json:"local_image_paths"`
}

// EntryStore reads and replaces the metadata snapshot.
type EntryStore interface {
	Load(ctx context.Context) map[string]archive.Entry
	Save(ctx context.Context, entries map[string]archive.Entry) error
}

// ImageLocalizer rewrites content to reference stored image copies.
type ImageLocalizer interface {
	Localize(ctx context.Context, contentHTML, baseURL, slug string) (images.Result, error)
}

type runIDKey struct{}

// WithRunID attaches a run identifier that is logged and published with every attempt.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID returns the identifier set by WithRunID.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

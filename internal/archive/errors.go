package archive

import "errors"

var (
	// ErrInvalidURL marks a submitted URL that cannot be fetched.
	ErrInvalidURL = errors.New("invalid url")
	// ErrExtractionFailed aborts archival of a single URL.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrImageFetch marks a single image that could not be localized.
	ErrImageFetch = errors.New("image fetch failed")
	// ErrArtifactWrite marks a failed write of an entry's rendered artifact.
	ErrArtifactWrite = errors.New("artifact write failed")
	// ErrStoreSave marks a failed durable write of the metadata store.
	ErrStoreSave = errors.New("store save failed")
	// ErrViewRender marks a failed index or feed regeneration.
	ErrViewRender = errors.New("view render failed")
	// ErrObjectNotFound is returned by blob stores for absent paths.
	ErrObjectNotFound = errors.New("object not found")
)

package archive

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Extractor turns a URL into readable article content.
type Extractor interface {
	Extract(ctx context.Context, url string) (ArticleContent, error)
}

// ObjectWriter writes an artifact and returns its URI.
type ObjectWriter interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// BlobStore is an ObjectWriter that can also read back what it wrote.
// GetObject returns an error wrapping ErrObjectNotFound for absent paths.
type BlobStore interface {
	ObjectWriter
	GetObject(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Fetcher retrieves a single URL.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Publisher pushes archive events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Catalog mirrors archived entries into a queryable index.
type Catalog interface {
	UpsertEntry(ctx context.Context, entry Entry) error
}

// Hasher computes hex digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// FetchRequest describes a single fetch.
type FetchRequest struct {
	URL     string
	Headers http.Header
	// Timeout overrides the fetcher's default per-request deadline when non-zero.
	Timeout time.Duration
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

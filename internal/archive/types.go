package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Entry is one archived article as persisted in the metadata store.
type Entry struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	SourceURL       string    `json:"source_url"`
	URLFingerprint  string    `json:"url_fingerprint"`
	CapturedAt      Timestamp `json:"captured_at"`
	Authors         []string  `json:"authors"`
	Summary         string    `json:"summary,omitempty"`
	SiteName        string    `json:"site_name,omitempty"`
	LocalImagePaths []string  `json:"local_image_paths"`
	ContentRef      string    `json:"content_ref"`
	ArchivedAt      Timestamp `json:"archived_at"`
}

// ArticleContent is what an Extractor returns for a single page.
type ArticleContent struct {
	Title       string
	Authors     []string
	Summary     string
	SiteName    string
	ContentHTML string
	// FinalURL is the page URL after redirects; relative references resolve against it.
	FinalURL    string
	PublishedAt time.Time
}

// Timestamp is a time that tolerates missing or unparsable values when decoded.
// The zero value means "unknown" and encodes as an empty string.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t in UTC.
func NewTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{Time: t.UTC()}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02-1504",
	"2006-01-02",
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	out, err := json.Marshal(t.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("marshal timestamp: %w", err)
	}
	return out, nil
}

// UnmarshalJSON implements json.Unmarshaler. Values that are not strings in one of the
// known layouts decode to the zero Timestamp rather than failing.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*t = ParseTimestamp(raw)
	}
	return nil
}

// ParseTimestamp parses raw using the layouts the store has historically written.
func ParseTimestamp(raw string) Timestamp {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Timestamp{}
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return NewTimestamp(parsed)
		}
	}
	return Timestamp{}
}

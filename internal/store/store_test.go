package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/article-archiver/internal/archive"
	"github.com/JakeFAU/article-archiver/internal/storage/memory"
)

const metadataPath = "data/articles.json"

func sampleEntry(id string) archive.Entry {
	return archive.Entry{
		ID:              id,
		Title:           "Hello World",
		SourceURL:       "https://example.com/posts/hello",
		URLFingerprint:  "0123456789abcdef",
		CapturedAt:      archive.NewTimestamp(time.Date(2024, 3, 9, 19, 5, 0, 0, time.UTC)),
		Authors:         []string{"Ada"},
		LocalImagePaths: []string{"images/" + id + "-01.png"},
		ContentRef:      "entries/" + id + ".html",
		ArchivedAt:      archive.NewTimestamp(time.Date(2024, 3, 9, 19, 5, 3, 0, time.UTC)),
	}
}

func TestLoadMissingIsEmpty(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	s := New(memory.NewBlobStore(), metadataPath, zap.New(core))

	entries := s.Load(context.Background())
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
	assert.Equal(t, 1, logs.FilterMessage("metadata store not found, starting empty").Len())
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	blobs := memory.NewBlobStore()
	s := New(blobs, metadataPath, nil)

	entry := sampleEntry("2024-03-09-1905-hello-world")
	require.NoError(t, s.Save(ctx, map[string]archive.Entry{entry.ID: entry}))

	loaded := s.Load(ctx)
	require.Len(t, loaded, 1)
	got := loaded[entry.ID]
	assert.Equal(t, entry.Title, got.Title)
	assert.True(t, entry.CapturedAt.Equal(got.CapturedAt.Time))
	assert.Equal(t, entry.LocalImagePaths, got.LocalImagePaths)

	raw, err := blobs.GetObject(ctx, metadataPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"captured_at": "2024-03-09T19:05:00Z"`)
	assert.NotContains(t, string(raw), "summary", "empty optional fields are omitted")
}

func TestLoadCorruptIsEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	blobs := memory.NewBlobStore()
	_, err := blobs.PutObject(ctx, metadataPath, "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)

	core, logs := observer.New(zap.WarnLevel)
	s := New(blobs, metadataPath, zap.New(core))

	assert.Empty(t, s.Load(ctx))
	assert.Equal(t, 1, logs.FilterMessage("metadata store corrupt, starting empty").Len())
}

func TestLoadToleratesLegacyRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	blobs := memory.NewBlobStore()
	doc := `{
  "2023-01-02-0304-old": {"title": "Old", "source_url": "https://old.example/", "captured_at": "2023-01-02-0304"},
  "2023-05-06-0708-broken-date": {"id": "2023-05-06-0708-broken-date", "title": "Broken", "captured_at": "yesterday-ish"}
}`
	_, err := blobs.PutObject(ctx, metadataPath, "application/json", strings.NewReader(doc))
	require.NoError(t, err)

	entries := New(blobs, metadataPath, nil).Load(ctx)
	require.Len(t, entries, 2)

	old := entries["2023-01-02-0304-old"]
	assert.Equal(t, "2023-01-02-0304-old", old.ID, "missing id is filled from the key")
	assert.Equal(t, time.Date(2023, 1, 2, 3, 4, 0, 0, time.UTC), old.CapturedAt.Time)
	assert.NotNil(t, old.Authors)
	assert.NotNil(t, old.LocalImagePaths)

	assert.True(t, entries["2023-05-06-0708-broken-date"].CapturedAt.IsZero())
}

func TestSaveFailureWrapsStoreSave(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	blobs := memory.NewBlobStore()
	s := New(blobs, metadataPath, nil)
	entry := sampleEntry("a")
	require.NoError(t, s.Save(ctx, map[string]archive.Entry{"a": entry}))

	blobs.FailPut = func(string) error { return errors.New("read-only filesystem") }
	err := s.Save(ctx, map[string]archive.Entry{"a": entry, "b": sampleEntry("b")})
	require.ErrorIs(t, err, archive.ErrStoreSave)

	blobs.FailPut = nil
	assert.Len(t, s.Load(ctx), 1, "previous document survives a failed save")
}

func TestEncodeIsDeterministic(t *testing.T) {
	t.Parallel()

	a := map[string]archive.Entry{}
	b := map[string]archive.Entry{}
	for _, id := range []string{"c", "a", "b"} {
		a[id] = sampleEntry(id)
	}
	for _, id := range []string{"b", "c", "a"} {
		b[id] = sampleEntry(id)
	}
	encA, err := Encode(a)
	require.NoError(t, err)
	encB, err := Encode(b)
	require.NoError(t, err)
	assert.Equal(t, encA, encB)
	assert.Equal(t, []string{"a", "b", "c"}, SortedIDs(a))
}

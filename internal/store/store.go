package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/JakeFAU/article-archiver/internal/archive"
)

const contentTypeJSON = "application/json"

// Store loads and saves the entry map through a blob store.
type Store struct {
	blobs  archive.BlobStore
	path   string
	logger *zap.Logger
}

// New returns a Store that keeps its document at path inside blobs.
func New(blobs archive.BlobStore, path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{blobs: blobs, path: path, logger: logger}
}

// Path is the document location inside the blob store.
func (s *Store) Path() string { return s.path }

// Load returns every persisted entry keyed by id. It never fails: an absent document
// yields an empty map, and a document that cannot be read or decoded is logged and
// treated as empty.
func (s *Store) Load(ctx context.Context) map[string]archive.Entry {
	data, err := s.blobs.GetObject(ctx, s.path)
	if err != nil {
		if errors.Is(err, archive.ErrObjectNotFound) {
			s.logger.Info("metadata store not found, starting empty", zap.String("path", s.path))
		} else {
			s.logger.Warn("metadata store unreadable, starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return map[string]archive.Entry{}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]archive.Entry{}
	}

	var raw map[string]archive.Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("metadata store corrupt, starting empty", zap.String("path", s.path), zap.Error(err))
		return map[string]archive.Entry{}
	}

	entries := make(map[string]archive.Entry, len(raw))
	for key, entry := range raw {
		if entry.ID == "" {
			entry.ID = key
		}
		if entry.Authors == nil {
			entry.Authors = []string{}
		}
		if entry.LocalImagePaths == nil {
			entry.LocalImagePaths = []string{}
		}
		entries[key] = entry
	}
	return entries
}

// Save replaces the persisted document with entries. The write is atomic when the
// underlying blob store is; on failure the previous document is left untouched.
func (s *Store) Save(ctx context.Context, entries map[string]archive.Entry) error {
	data, err := Encode(entries)
	if err != nil {
		return fmt.Errorf("%w: %w", archive.ErrStoreSave, err)
	}
	if _, err := s.blobs.PutObject(ctx, s.path, contentTypeJSON, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %w", archive.ErrStoreSave, err)
	}
	s.logger.Debug("metadata store saved", zap.String("path", s.path), zap.Int("entries", len(entries)))
	return nil
}

// Encode renders entries as indented JSON. encoding/json sorts map keys, so equal maps
// always produce identical bytes.
func Encode(entries map[string]archive.Entry) ([]byte, error) {
	if entries == nil {
		entries = map[string]archive.Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode entries: %w", err)
	}
	return append(data, '\n'), nil
}

// SortedIDs returns the ids of entries in ascending order.
func SortedIDs(entries map[string]archive.Entry) []string {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

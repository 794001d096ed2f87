// Package archive defines the domain types shared by the archiver: entries, extracted
// article content, the collaborator interfaces the pipeline depends on, and the helpers
// that derive stable keys (slugs, fingerprints, ids) from titles and URLs.
package archive

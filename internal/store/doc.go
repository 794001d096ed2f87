// Package store persists the archive's entry metadata as a single JSON document keyed by
// entry id. Reads fail soft: a missing or unreadable document is an empty archive, so a
// damaged metadata file never blocks new captures.
package store

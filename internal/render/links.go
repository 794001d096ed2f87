package render

import (
	"path"
	"path/filepath"
)

// Layout names the view files inside the archive tree. Every path is archive-relative
// and slash-separated.
type Layout struct {
	EntriesDir string
	IndexFile  string
	FeedFile   string
}

func (l Layout) withDefaults() Layout {
	if l.EntriesDir == "" {
		l.EntriesDir = "entries"
	}
	if l.IndexFile == "" {
		l.IndexFile = "index.html"
	}
	if l.FeedFile == "" {
		l.FeedFile = "feed.xml"
	}
	return l
}

// BackLink is the href from an entry page to the index.
func (l Layout) BackLink() string {
	l = l.withDefaults()
	return RelativeLink(l.EntriesDir, l.IndexFile)
}

// RelativeLink returns the href that reaches target from a document stored in dir.
func RelativeLink(dir, target string) string {
	rel, err := filepath.Rel(filepath.FromSlash(path.Clean(dir)), filepath.FromSlash(path.Clean(target)))
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}

// RootPrefix leads from a document in dir back to the archive root: empty at the root,
// "../" one level down, "../../" two levels down.
func RootPrefix(dir string) string {
	rel := RelativeLink(dir, ".")
	if rel == "." {
		return ""
	}
	return rel + "/"
}

package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/JakeFAU/article-archiver/internal/archive"
)

type artifactPage struct {
	card
	Back    string
	Content template.HTML
}

// Artifact renders the standalone page for entry. contentHTML is the extractor's
// article body after image localization and is embedded as-is. backLink is the href
// to the index, usually Layout.BackLink.
func Artifact(entry archive.Entry, contentHTML, backLink string) ([]byte, error) {
	page := artifactPage{
		card: newCard(entry),
		Back: backLink,
		// #nosec G203 -- extracted article markup is the archived content itself.
		Content: template.HTML(contentHTML),
	}
	var buf bytes.Buffer
	if err := artifactTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("render artifact %s: %w", entry.ID, err)
	}
	return buf.Bytes(), nil
}

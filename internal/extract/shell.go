package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// defaultMinText is the visible text length below which a script-heavy page is treated
// as an unrendered shell.
const defaultMinText = 2048

var mountPoints = "#__next, #root, #app, [data-reactroot]"

// ShellDetector recognizes statically fetched pages whose article only appears after
// client-side rendering.
type ShellDetector struct {
	MinTextLength int
}

// LooksLikeShell reports whether body is probably a JavaScript application shell.
func (d ShellDetector) LooksLikeShell(body []byte) bool {
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}

	emptyMount := false
	doc.Find(mountPoints).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) == "" {
			emptyMount = true
		}
		return !emptyMount
	})
	if emptyMount {
		return true
	}

	scriptBytes := 0
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		scriptBytes += len(s.Text())
	})
	noscript := strings.ToLower(doc.Find("noscript").Text())

	visible := doc.Find("body").Clone()
	visible.Find("script, style, noscript, template").Remove()
	textLen := len(strings.Join(strings.Fields(visible.Text()), " "))

	minText := d.MinTextLength
	if minText <= 0 {
		minText = defaultMinText
	}
	if textLen >= minText {
		return false
	}
	if strings.Contains(noscript, "enable javascript") {
		return true
	}
	return scriptBytes*100/len(body) >= 25
}

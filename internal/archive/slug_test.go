package archive

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func TestSlugify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "punctuation", title: "Hello, World!", want: "hello-world"},
		{name: "empty", title: "", want: "untitled"},
		{name: "only punctuation", title: "?!...---", want: "untitled"},
		{name: "diacritics", title: "Café Déjà Vu", want: "cafe-deja-vu"},
		{name: "non latin", title: "日本語のタイトル", want: "untitled"},
		{name: "mixed scripts", title: "Go 1.25 リリース notes", want: "go-1-25-notes"},
		{name: "existing dashes", title: "--already-slugged--", want: "already-slugged"},
		{name: "whitespace", title: "  tabs\tand\nnewlines ", want: "tabs-and-newlines"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Slugify(tc.title))
		})
	}
}

func TestSlugifyIsBoundedAndSafe(t *testing.T) {
	t.Parallel()

	inputs := []string{
		strings.Repeat("long title words ", 20),
		strings.Repeat("a", 200),
		"ends right at the boundary with a dash here -----x",
		"\x00\x01 control",
		"🚀🚀🚀",
	}
	for _, in := range inputs {
		got := Slugify(in)
		require.NotEmpty(t, got)
		assert.LessOrEqual(t, len(got), MaxSlugLength)
		assert.Regexp(t, slugPattern, got)
		assert.Equal(t, got, Slugify(in), "slugify must be deterministic")
	}
}

func TestEntryID(t *testing.T) {
	t.Parallel()

	captured := time.Date(2024, 3, 9, 14, 5, 59, 0, time.FixedZone("EST", -5*3600))
	assert.Equal(t, "2024-03-09-1905-hello-world", EntryID(captured, "Hello, World!"))
}

func TestUniqueID(t *testing.T) {
	t.Parallel()

	taken := map[string]bool{"a": true, "a-2": true}
	assert.Equal(t, "b", UniqueID("b", func(id string) bool { return taken[id] }))
	assert.Equal(t, "a-3", UniqueID("a", func(id string) bool { return taken[id] }))
}

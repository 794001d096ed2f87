package gcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	assert.ErrorContains(t, err, "client is required")
}

func TestObjectName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, path, want string
	}{
		{"", "index.html", "index.html"},
		{"archive/", "entries/a.html", "archive/entries/a.html"},
		{"/archive", "/images/../images/x.png", "archive/images/x.png"},
		{"site", "../../etc/passwd", "site/etc/passwd"},
	}
	for _, tc := range tests {
		got, err := objectName(tc.prefix, tc.path)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := objectName("p", " ")
	assert.Error(t, err)
	_, err = objectName("p", "/")
	assert.Error(t, err)
}

func TestIsDocument(t *testing.T) {
	t.Parallel()

	assert.True(t, isDocument("text/html; charset=utf-8"))
	assert.True(t, isDocument("application/rss+xml"))
	assert.False(t, isDocument("image/jpeg"))
}

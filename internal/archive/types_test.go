package archive

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampRoundTrip(t *testing.T) {
	t.Parallel()

	ts := NewTimestamp(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-01-02T03:04:05Z"`, string(data))

	var decoded Timestamp
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, ts.Equal(decoded.Time))
}

func TestTimestampToleratesUnknownValues(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`""`, `null`, `"next tuesday"`, `12345`, `{"a":1}`} {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(raw), &ts), raw)
		assert.True(t, ts.IsZero(), raw)
	}

	data, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, `""`, string(data))
}

func TestTimestampLegacyLayouts(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Date(2023, 7, 1, 9, 30, 0, 0, time.UTC), ParseTimestamp("2023-07-01-0930").Time)
	assert.Equal(t, time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC), ParseTimestamp("2023-07-01").Time)
}

func TestEntryDecodeIgnoresUnknownFields(t *testing.T) {
	t.Parallel()

	var e Entry
	raw := `{"id":"x","title":"T","source_url":"https://e.com","captured_at":"bogus","future_field":true}`
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Equal(t, "x", e.ID)
	assert.True(t, e.CapturedAt.IsZero())
}

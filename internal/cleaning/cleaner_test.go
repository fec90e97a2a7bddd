package cleaning

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCleaner() *Cleaner {
	return NewCleaner(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCleanWellFormedBatch(t *testing.T) {
	cleaner := testCleaner()

	raw := []any{
		map[string]any{"user_id": "u-1", "event_type": "click"},
		`{"user_id":"u-2","event_type":"view"}`,
		map[string]any{"user_id": "u-3", "event_type": "purchase"},
	}

	records, err := cleaner.Clean(raw)
	require.NoError(t, err)

	// Well-formed input: output length equals input length.
	require.Len(t, records, len(raw))
	assert.Equal(t, "u-2", records[1]["user_id"])
}

func TestCleanDropsMalformedEntries(t *testing.T) {
	cleaner := testCleaner()

	t.Run("drops exactly the malformed entries", func(t *testing.T) {
		raw := []any{
			`{"user_id":"u-1"}`,
			`{not json at all`,
			float64(42), // not a mapping
			map[string]any{"user_id": "u-2"},
			`"just a string"`, // valid JSON, not a mapping
		}

		records, err := cleaner.Clean(raw)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "u-1", records[0]["user_id"])
		assert.Equal(t, "u-2", records[1]["user_id"])
	})

	t.Run("all malformed fails with EmptyResult", func(t *testing.T) {
		raw := []any{`{broken`, `also broken`, float64(1)}

		_, err := cleaner.Clean(raw)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyResult)
	})

	t.Run("empty input fails with EmptyResult", func(t *testing.T) {
		_, err := cleaner.Clean(nil)
		assert.ErrorIs(t, err, ErrEmptyResult)
	})
}

func TestCleanNestedFieldDecoding(t *testing.T) {
	cleaner := testCleaner()

	tests := []struct {
		name  string
		props any
		want  map[string]any
	}{
		{
			name:  "JSON string",
			props: `{"a": 1}`,
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "single-quoted literal string",
			props: `{'a': 1}`,
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "unparseable becomes empty object",
			props: `{{{`,
			want:  map[string]any{},
		},
		{
			name:  "already an object passes through",
			props: map[string]any{"a": "b"},
			want:  map[string]any{"a": "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []any{map[string]any{"user_id": "u-1", "props": tt.props}}

			records, err := cleaner.Clean(raw)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, tt.want, records[0]["props"])
		})
	}

	t.Run("geo_location decoded too", func(t *testing.T) {
		raw := []any{map[string]any{
			"user_id":      "u-1",
			"geo_location": `{'lat': 47.6, 'lon': -122.3}`,
		}}

		records, err := cleaner.Clean(raw)
		require.NoError(t, err)
		assert.Equal(t,
			map[string]any{"lat": 47.6, "lon": -122.3},
			records[0]["geo_location"],
		)
	})
}

func TestCleanJSON(t *testing.T) {
	cleaner := testCleaner()

	t.Run("list of strings artifact", func(t *testing.T) {
		payload := []byte(`["{\"user_id\":\"u-1\",\"event_type\":\"click\"}"]`)

		records, err := cleaner.CleanJSON(payload)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "click", records[0]["event_type"])
	})

	t.Run("list of objects artifact", func(t *testing.T) {
		payload := []byte(`[{"user_id":"u-1"},{"user_id":"u-2"}]`)

		records, err := cleaner.CleanJSON(payload)
		require.NoError(t, err)
		require.Len(t, records, 2)
	})

	t.Run("non-array payload is batch-fatal", func(t *testing.T) {
		_, err := cleaner.CleanJSON([]byte(`{"not":"an array"}`))
		require.Error(t, err)

		if errors.Is(err, ErrEmptyResult) {
			t.Error("decode failure should not be EmptyResult")
		}
	})
}

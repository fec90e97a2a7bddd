package cleaning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnsLowercaseUnion(t *testing.T) {
	records := []Record{
		{"User_ID": "u-1", "event_type": "click"},
		{"user_id": "u-2", "SESSION_ID": "s-1"},
	}

	columns := Columns(records)

	assert.Equal(t, []string{"event_type", "session_id", "user_id"}, columns)
}

func TestEncodeDecodeCSV(t *testing.T) {
	records := []Record{
		{
			"user_id":    "u-1",
			"event_type": "click",
			"props":      map[string]any{"a": float64(1)},
			"count":      float64(3),
		},
		{
			"user_id": "u-2",
			// event_type absent: empty cell
			"props": map[string]any{},
			"count": float64(1.5),
		},
	}

	payload, err := EncodeCSV(records)
	require.NoError(t, err)

	decoded, err := DecodeCSV(payload)
	require.NoError(t, err)
	require.Len(t, decoded, 2)

	assert.Equal(t, "u-1", decoded[0]["user_id"])
	assert.Equal(t, "click", decoded[0]["event_type"])
	assert.Equal(t, `{"a":1}`, decoded[0]["props"])
	assert.Equal(t, "3", decoded[0]["count"])

	assert.Equal(t, "", decoded[1]["event_type"])
	assert.Equal(t, "1.5", decoded[1]["count"])
}

func TestEncodeCSVNoColumns(t *testing.T) {
	_, err := EncodeCSV([]Record{})
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestDecodeCSVEmptyPayload(t *testing.T) {
	_, err := DecodeCSV(nil)
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestEncodeCSVQuoting(t *testing.T) {
	records := []Record{
		{"description": `said "hello", left`, "user_id": "u-1"},
	}

	payload, err := EncodeCSV(records)
	require.NoError(t, err)

	decoded, err := DecodeCSV(payload)
	require.NoError(t, err)
	assert.Equal(t, `said "hello", left`, decoded[0]["description"])
}

package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("cart", &buf)

	l.Error("cart.decode", errors.New("boom"), map[string]any{"user_id": 7})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "cart", entry["service"])
	assert.Equal(t, "cart.decode", entry["action"])
	assert.EqualValues(t, 7, entry["user_id"])
	errField, ok := entry["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "boom", errField["msg"])
}

func TestLoggerOmitsErrorWhenNil(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("api", &buf).Info("started", nil)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "error")
	assert.Equal(t, "INFO", entry["level"])
}

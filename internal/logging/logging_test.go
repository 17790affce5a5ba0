package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("info", FormatJSON, &buf)
	require.NoError(t, err)

	Component(l, "budget").Info("assigned", "amount", 1500)
	l.Debug("hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "assigned", rec["msg"])
	assert.Equal(t, "budget", rec["component"])
	assert.EqualValues(t, 1500, rec["amount"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("debug", "", &buf)
	require.NoError(t, err)
	l.Debug("loading", "accounts", 2)
	assert.Contains(t, buf.String(), "msg=loading accounts=2")

	_, err = New("info", "xml", &buf)
	assert.Error(t, err)
}

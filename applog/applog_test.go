package applog

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMask(t *testing.T) {
	tests := []struct{ in, want string }{
		{"host=db password=hunter2 dbname=x", "host=db password=*** dbname=x"},
		{"host=db password='a b' dbname=x", "host=db password=*** dbname=x"},
		{"postgres://alice:hunter2@db:5432/sales", "postgres://alice:***@db:5432/sales"},
		{"Authorization: Bearer abc.def-123", "Authorization: Bearer ***"},
		{"https://api/v1?key=AIzaSy123&alt=json", "https://api/v1?key=***&alt=json"},
		{"using sk-proj-abcdefghijklmnop for the call", "using sk-pro*** for the call"},
		{"nothing secret in SELECT region FROM sales", "nothing secret in SELECT region FROM sales"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Mask(tt.in), tt.in)
	}
}

func TestLoggerMasksAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "debug", "json")

	l.Info("connect postgres://u:pw@h/db",
		slog.String("password", "pw"),
		slog.Any("err", errors.New("auth failed for password=pw")),
		slog.Int("attempt", 2))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "connect postgres://u:***@h/db", rec["msg"])
	assert.Equal(t, "***", rec["password"])
	assert.Equal(t, "auth failed for password=***", rec["err"])
	assert.Equal(t, float64(2), rec["attempt"])
	assert.Equal(t, "asksql", rec["service"])
}

func TestPackageHelpers(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(New(&buf, "warn", "text"))
	defer SetLogger(prev)

	Info("hidden")
	Event("connect", "visible?")
	Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, "visible?")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "k=v")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel(" error "))
	require.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestHandlerFiltersAndSkipsColor(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelWarn))

	logger.Info("[app] hidden")
	logger.Warn("[app] shown", "count", 3)

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "[app] shown")
	require.Contains(t, out, "count=3")
	require.NotContains(t, out, "\x1b[")
}

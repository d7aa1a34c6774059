package logging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSecret_NeverPrintsValue(t *testing.T) {
	s := Secret("hunter2")

	require.Equal(t, Spoiler, s.String())
	require.Equal(t, Spoiler, fmt.Sprintf("%v", s))
	require.Equal(t, Spoiler, fmt.Sprintf("%s", s))
	require.Equal(t, Spoiler, fmt.Sprintf("%#v", s))
	require.Equal(t, "hunter2", s.Reveal())
}

func TestSecret_RedactedInSlogOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	logger.Info(context.Background(), "connecting", "password", Secret("hunter2"))

	out := buf.String()
	require.NotContains(t, out, "hunter2")
	require.Contains(t, out, Spoiler)
}

func TestSlogLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	child := logger.With("component", "vault")
	child.Warn(context.Background(), "missing entry")

	if !strings.Contains(buf.String(), "component=vault") {
		t.Fatalf("expected bound attribute in output, got %q", buf.String())
	}
}

package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	log, err := New(Options{Level: "warn", JSON: true})
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zap.InfoLevel))
	require.True(t, log.Core().Enabled(zap.WarnLevel))

	log, err = New(Options{Level: "warn", Debug: true})
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(zap.DebugLevel))

	_, err = New(Options{Level: "loud"})
	require.Error(t, err)
}

func TestNew_FileAndErrorLog(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.log")

	log, err := New(Options{Level: "info", JSON: true, File: file, Service: "Universal API", Version: "0.1.0"})
	require.NoError(t, err)
	log.Info("hello")
	log.Error("broken")
	_ = log.Sync()

	all, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(all), "hello")
	require.Contains(t, string(all), `"service":"Universal API"`)

	errs, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	require.Contains(t, string(errs), "broken")
	require.NotContains(t, string(errs), "hello")
}

func TestContextLogger(t *testing.T) {
	require.NotNil(t, FromContext(context.Background()))

	core, logs := observer.New(zap.InfoLevel)
	ctx := WithLogger(context.Background(), zap.New(core))
	ctx = With(ctx, zap.String("trace_id", "abc"))
	FromContext(ctx).Info("request")

	require.Equal(t, 1, logs.Len())
	require.Equal(t, "abc", logs.All()[0].ContextMap()["trace_id"])
}

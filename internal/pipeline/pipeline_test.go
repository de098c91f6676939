package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigwatch/sigwatch/internal/artifact"
	"github.com/sigwatch/sigwatch/internal/config"
	"github.com/sigwatch/sigwatch/internal/delta"
	"github.com/sigwatch/sigwatch/internal/history"
	"github.com/sigwatch/sigwatch/internal/index"
	"github.com/sigwatch/sigwatch/internal/signal"
	"github.com/sigwatch/sigwatch/internal/storage"
	"github.com/sigwatch/sigwatch/internal/telemetry"
)

func newTestRunner(t *testing.T) (*Runner, storage.Store, config.Config) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), ".sigwatch")
	cfg := config.DefaultConfig()
	cfg.Dir = dir

	store, err := storage.NewStore(context.Background(), &storage.Config{Path: filepath.Join(dir, "sigwatch.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := telemetry.NewLoggerTo(io.Discard, "info", "text")
	return New(cfg, store, logger), store, cfg
}

func emitSignals(t *testing.T, store storage.Store, severities map[signal.Severity]int) {
	t.Helper()
	for severity, count := range severities {
		for i := 0; i < count; i++ {
			sig, err := signal.New("policy_drift", signal.ScopeGuardian, severity, "", "", "")
			require.NoError(t, err)
			require.NoError(t, store.AppendSignal(context.Background(), sig))
		}
	}
}

func TestRunBootstrap(t *testing.T) {
	runner, store, cfg := newTestRunner(t)
	t.Setenv("GITHUB_RUN_ID", "run-1")

	emitSignals(t, store, map[signal.Severity]int{
		signal.SeverityHigh:   1,
		signal.SeverityMedium: 2,
		signal.SeverityLow:    2,
	})

	runner.Run(context.Background(), Options{})

	paths := artifact.NewPaths(cfg.Dir)

	idx := artifact.Load[*index.Index](paths.Index(), nil)
	require.True(t, idx.Available)
	assert.Equal(t, 5, idx.Value.TotalSignals)

	d := artifact.Load[*delta.Delta](paths.Delta(), nil)
	require.True(t, d.Available)
	assert.True(t, d.Value.Bootstrap, "first run must bootstrap")
	assert.Equal(t, 5, d.Value.Changes.TotalSignals, "bootstrap delta mirrors the raw index")
	assert.Equal(t, "run-1", d.Value.RunID)

	h := artifact.Load[*history.History](paths.History(), nil)
	require.True(t, h.Available)
	assert.Len(t, h.Value.Entries, 1)

	for _, path := range []string{
		paths.PreviousIndex(), paths.Trends(), paths.Anomalies(), paths.AnomaliesMarkdown(),
		paths.Summary(), paths.SummaryMarkdown(),
		paths.MetricsProm(), paths.MetricsJSON(), paths.MetricsManifest(),
	} {
		_, err := os.Stat(path)
		assert.NoError(t, err, "expected artifact %s", path)
	}
}

func TestRunSecondRunDelta(t *testing.T) {
	runner, store, cfg := newTestRunner(t)

	t.Setenv("GITHUB_RUN_ID", "run-1")
	emitSignals(t, store, map[signal.Severity]int{
		signal.SeverityHigh:   1,
		signal.SeverityMedium: 2,
		signal.SeverityLow:    2,
	})
	runner.Run(context.Background(), Options{})

	t.Setenv("GITHUB_RUN_ID", "run-2")
	emitSignals(t, store, map[signal.Severity]int{
		signal.SeverityMedium: 1,
		signal.SeverityLow:    2,
	})
	runner.Run(context.Background(), Options{})

	paths := artifact.NewPaths(cfg.Dir)

	d := artifact.Load[*delta.Delta](paths.Delta(), nil)
	require.True(t, d.Available)
	assert.False(t, d.Value.Bootstrap)
	assert.Equal(t, 3, d.Value.Changes.TotalSignals)
	assert.Equal(t, 1, d.Value.Changes.BySeverity["medium"])
	assert.Equal(t, 2, d.Value.Changes.BySeverity["low"])
	assert.Equal(t, 0, d.Value.Changes.BySeverity["high"])

	h := artifact.Load[*history.History](paths.History(), nil)
	require.True(t, h.Available)
	require.Len(t, h.Value.Entries, 2)
	assert.Equal(t, "run-1", h.Value.Entries[0].RunID)
	assert.Equal(t, "run-2", h.Value.Entries[1].RunID)
}

func TestRunIdempotentIndexing(t *testing.T) {
	runner, store, cfg := newTestRunner(t)
	paths := artifact.NewPaths(cfg.Dir)

	t.Setenv("GITHUB_RUN_ID", "run-1")
	emitSignals(t, store, map[signal.Severity]int{signal.SeverityInfo: 3})

	runner.Run(context.Background(), Options{SkipExport: true})
	first, err := os.ReadFile(paths.Index())
	require.NoError(t, err)

	// Unchanged log, same run id: the rebuilt index must be byte-identical
	// and the window must not grow.
	runner.Run(context.Background(), Options{SkipExport: true})
	second, err := os.ReadFile(paths.Index())
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	h := artifact.Load[*history.History](paths.History(), nil)
	require.True(t, h.Available)
	assert.Len(t, h.Value.Entries, 1, "re-ingesting the same run id must replace, not append")
}

func TestRunWithoutStoreDegrades(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".sigwatch")
	cfg := config.DefaultConfig()
	cfg.Dir = dir

	runner := New(cfg, nil, telemetry.NewLoggerTo(io.Discard, "info", "text"))
	runner.Run(context.Background(), Options{})

	paths := artifact.NewPaths(cfg.Dir)
	idx := artifact.Load[*index.Index](paths.Index(), nil)
	require.True(t, idx.Available)
	assert.Equal(t, 0, idx.Value.TotalSignals, "missing store indexes as an empty log")

	d := artifact.Load[*delta.Delta](paths.Delta(), nil)
	require.True(t, d.Available)
	assert.True(t, d.Value.Bootstrap)
}

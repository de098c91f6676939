// Package pipeline sequences the derivation stages for one observation run:
// index, delta, history, trends, anomalies, canonical summary, and the
// metrics export. Stages run synchronously in dependency order and never
// fail the run; a stage that cannot read or write degrades to defaults and
// the run continues.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/sigwatch/sigwatch/internal/annotation"
	"github.com/sigwatch/sigwatch/internal/anomaly"
	"github.com/sigwatch/sigwatch/internal/artifact"
	"github.com/sigwatch/sigwatch/internal/config"
	"github.com/sigwatch/sigwatch/internal/delta"
	"github.com/sigwatch/sigwatch/internal/history"
	"github.com/sigwatch/sigwatch/internal/index"
	"github.com/sigwatch/sigwatch/internal/metrics"
	"github.com/sigwatch/sigwatch/internal/signal"
	"github.com/sigwatch/sigwatch/internal/storage"
	"github.com/sigwatch/sigwatch/internal/summary"
	"github.com/sigwatch/sigwatch/internal/trend"
)

// Runner executes one pipeline pass. One process, one pass, one writer per
// artifact; concurrent runs against the same project directory are not
// supported.
type Runner struct {
	cfg    config.Config
	paths  artifact.Paths
	store  storage.Store
	logger *slog.Logger
}

// Options adjusts a single run.
type Options struct {
	// SkipExport omits the metrics export stage
	SkipExport bool
}

// New builds a runner. store may be nil when the project store could not be
// opened; the signal log then reads as empty.
func New(cfg config.Config, store storage.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:    cfg,
		paths:  artifact.NewPaths(cfg.Dir),
		store:  store,
		logger: logger,
	}
}

// Run executes every stage in order. It never returns an error: the pipeline
// is observation-only and must not block whatever invoked it.
func (r *Runner) Run(ctx context.Context, opts Options) {
	if err := r.paths.EnsureDir(); err != nil {
		r.logger.Warn("cannot create project directory", "dir", r.paths.Dir, "error", err)
	}

	idx := stage(r, "index", func() *index.Index { return r.buildIndex(ctx) })
	d := stage(r, "delta", func() *delta.Delta { return r.computeDelta(idx) })
	h := stage(r, "history", func() *history.History { return r.ingestHistory(d) })
	t := stage(r, "trends", func() *trend.Trends { return r.computeTrends(h) })
	rep := stage(r, "anomalies", func() *anomaly.Report { return r.detectAnomalies(h, t) })
	stage(r, "summary", func() *summary.Summary { return r.buildSummary(ctx, h, t, rep) })

	if opts.SkipExport {
		r.logger.Info("stage skipped", "stage", "export")
		return
	}
	stage(r, "export", func() struct{} { r.Export(ctx); return struct{}{} })
}

// stage wraps one unit of work with a timed diagnostic line.
func stage[T any](r *Runner, name string, fn func() T) T {
	start := time.Now()
	out := fn()
	r.logger.Info("stage complete", "stage", name, "duration", time.Since(start).Round(time.Millisecond).String())
	return out
}

// buildIndex rebuilds the full aggregate from the signal log. An unreadable
// store counts as an empty log.
func (r *Runner) buildIndex(ctx context.Context) *index.Index {
	var signals []*signal.Signal
	if r.store == nil {
		r.logger.Warn("signal store unavailable; indexing an empty log")
	} else {
		listed, err := r.store.ListSignals(ctx)
		if err != nil {
			r.logger.Warn("cannot read signal log; indexing an empty log", "error", err)
		} else {
			signals = listed
		}
	}

	idx := index.Build(signals)
	if err := artifact.Save(r.paths.Index(), idx); err != nil {
		r.logger.Warn("cannot write index artifact", "error", err)
	}
	return idx
}

// computeDelta diffs the current index against the stored previous one, then
// rotates the current index into the previous slot. The rotation is the only
// state carried forward outside the history window.
func (r *Runner) computeDelta(idx *index.Index) *delta.Delta {
	previous := artifact.Load[*index.Index](r.paths.PreviousIndex(), nil)
	if previous.Err != nil {
		r.logger.Warn("previous index unreadable; treating run as bootstrap", "error", previous.Err)
	}

	d := delta.Compute(idx, previous.Value, !previous.Available, delta.RunMetaFromEnv())
	if err := artifact.Save(r.paths.Delta(), d); err != nil {
		r.logger.Warn("cannot write delta artifact", "error", err)
	}
	if err := artifact.Save(r.paths.PreviousIndex(), idx); err != nil {
		r.logger.Warn("cannot rotate previous index", "error", err)
	}
	return d
}

func (r *Runner) ingestHistory(d *delta.Delta) *history.History {
	prior := artifact.Load[*history.History](r.paths.History(), nil)
	if prior.Err != nil {
		r.logger.Warn("history artifact unreadable; starting a fresh window", "error", prior.Err)
	}

	h := history.Ingest(prior.Value, d, r.cfg.WindowSize)
	if err := artifact.Save(r.paths.History(), h); err != nil {
		r.logger.Warn("cannot write history artifact", "error", err)
	}
	return h
}

func (r *Runner) computeTrends(h *history.History) *trend.Trends {
	t := trend.Compute(h)
	if err := artifact.Save(r.paths.Trends(), t); err != nil {
		r.logger.Warn("cannot write trends artifact", "error", err)
	}
	return t
}

// detectAnomalies persists the structured report, then renders the markdown
// narrative from it. The narrative is write-only; no stage reads it back.
func (r *Runner) detectAnomalies(h *history.History, t *trend.Trends) *anomaly.Report {
	rep := anomaly.Detect(h, t)
	if err := artifact.Save(r.paths.Anomalies(), rep); err != nil {
		r.logger.Warn("cannot write anomalies artifact", "error", err)
	}
	rendered := anomaly.RenderMarkdown(rep, r.paths.Trends(), r.paths.History())
	if err := artifact.SaveText(r.paths.AnomaliesMarkdown(), rendered); err != nil {
		r.logger.Warn("cannot write anomaly narrative", "error", err)
	}
	return rep
}

func (r *Runner) buildSummary(ctx context.Context, h *history.History, t *trend.Trends, rep *anomaly.Report) *summary.Summary {
	s := summary.Build(h, t, rep, r.loadAnnotations(ctx))
	if err := artifact.Save(r.paths.Summary(), s); err != nil {
		r.logger.Warn("cannot write summary artifact", "error", err)
	}
	if err := artifact.SaveText(r.paths.SummaryMarkdown(), summary.RenderMarkdown(s)); err != nil {
		r.logger.Warn("cannot write summary narrative", "error", err)
	}
	return s
}

// Export reads every artifact back from disk and writes the three export
// files. Reading from disk keeps the standalone export command and the
// pipeline stage identical. Any failure is absorbed: whatever files could be
// written stay, and the caller proceeds.
func (r *Runner) Export(ctx context.Context) {
	idx := artifact.Load[*index.Index](r.paths.Index(), nil)
	d := artifact.Load[*delta.Delta](r.paths.Delta(), nil)
	h := artifact.Load[*history.History](r.paths.History(), nil)
	t := artifact.Load[*trend.Trends](r.paths.Trends(), nil)
	for _, warn := range []error{idx.Err, d.Err, h.Err, t.Err} {
		if warn != nil {
			r.logger.Warn("export input unreadable; exporting defaults", "error", warn)
		}
	}

	sources := []string{r.paths.Index(), r.paths.Delta(), r.paths.History(), r.paths.Trends()}

	var s *summary.Summary
	if r.cfg.IncludeSummary {
		loaded := artifact.Load[*summary.Summary](r.paths.Summary(), nil)
		if loaded.Err != nil {
			r.logger.Warn("summary artifact unreadable; omitting summary metrics", "error", loaded.Err)
		}
		s = loaded.Value
		sources = append(sources, r.paths.Summary())
	}

	var notes []*annotation.Annotation
	if r.cfg.IncludeAnnotations {
		notes = r.listAnnotations(ctx)
		sources = append(sources, r.paths.SignalDB())
	}

	export, err := metrics.Build(metrics.Inputs{
		Index:          idx.Value,
		Delta:          d.Value,
		History:        h.Value,
		Trends:         t.Value,
		Summary:        s,
		Annotations:    notes,
		TopSignalTypes: r.cfg.TopSignalTypes,
		Sources:        sources,
		ExportedFiles:  []string{r.paths.MetricsProm(), r.paths.MetricsJSON(), r.paths.MetricsManifest()},
	})
	if err != nil {
		r.logger.Warn("metrics exposition failed; keeping partial export", "error", err)
	}
	if export == nil {
		return
	}

	if export.Prom != "" {
		if writeErr := artifact.SaveText(r.paths.MetricsProm(), export.Prom); writeErr != nil {
			r.logger.Warn("cannot write metrics exposition", "error", writeErr)
		}
	}
	if writeErr := artifact.Save(r.paths.MetricsJSON(), export.Mirror); writeErr != nil {
		r.logger.Warn("cannot write metrics mirror", "error", writeErr)
	}
	if writeErr := artifact.Save(r.paths.MetricsManifest(), export.Manifest); writeErr != nil {
		r.logger.Warn("cannot write metrics manifest", "error", writeErr)
	}
}

// loadAnnotations adapts the store records for the summarizer.
func (r *Runner) loadAnnotations(ctx context.Context) []annotation.Annotation {
	listed := r.listAnnotations(ctx)
	notes := make([]annotation.Annotation, 0, len(listed))
	for _, note := range listed {
		if note != nil {
			notes = append(notes, *note)
		}
	}
	return notes
}

func (r *Runner) listAnnotations(ctx context.Context) []*annotation.Annotation {
	if r.store == nil {
		return nil
	}
	listed, err := r.store.ListAnnotations(ctx)
	if err != nil {
		r.logger.Warn("cannot read annotation log; proceeding without annotations", "error", err)
		return nil
	}
	return listed
}

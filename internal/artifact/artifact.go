// Package artifact resolves where pipeline artifacts live on disk and gives
// every stage the same load/save behavior: missing or malformed inputs come
// back as explicit defaults with an availability flag, writes are atomic.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultDir is the project directory created next to the instrumented system.
const DefaultDir = ".sigwatch"

// Paths resolves every artifact location under one project directory.
// Constructed once from config and passed into the stages; nothing reads a
// global path.
type Paths struct {
	Dir string
}

// NewPaths returns the artifact layout rooted at dir, defaulting to DefaultDir.
func NewPaths(dir string) Paths {
	if dir == "" {
		dir = DefaultDir
	}
	return Paths{Dir: dir}
}

// EnsureDir creates the project directory if needed.
func (p Paths) EnsureDir() error {
	if err := os.MkdirAll(p.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}
	return nil
}

func (p Paths) join(name string) string {
	return filepath.Join(p.Dir, name)
}

// SignalDB is the SQLite database holding the signal and annotation logs.
func (p Paths) SignalDB() string { return p.join("sigwatch.db") }

// Index is the current index snapshot.
func (p Paths) Index() string { return p.join("index.json") }

// PreviousIndex is the index snapshot from the prior run, rotated by the
// delta stage after each computation.
func (p Paths) PreviousIndex() string { return p.join("index.previous.json") }

// Delta is the latest run-over-run diff.
func (p Paths) Delta() string { return p.join("delta.json") }

// History is the bounded rolling window of deltas.
func (p Paths) History() string { return p.join("history.json") }

// Trends is the derived statistics snapshot.
func (p Paths) Trends() string { return p.join("trends.json") }

// Anomalies is the structured findings artifact, the primary anomaly record.
func (p Paths) Anomalies() string { return p.join("anomalies.json") }

// AnomaliesMarkdown is the rendered narrative view of Anomalies. Write-only:
// no stage reads it back.
func (p Paths) AnomaliesMarkdown() string { return p.join("anomalies.md") }

// Summary is the canonical long-horizon summary.
func (p Paths) Summary() string { return p.join("canonical_summary.json") }

// SummaryMarkdown is the rendered narrative view of Summary. Write-only.
func (p Paths) SummaryMarkdown() string { return p.join("canonical_summary.md") }

// MetricsProm is the Prometheus text exposition export.
func (p Paths) MetricsProm() string { return p.join("metrics.prom") }

// MetricsJSON is the structured mirror of the exposition.
func (p Paths) MetricsJSON() string { return p.join("metrics.json") }

// MetricsManifest declares schema version, sources, redaction rules, and
// cardinality bounds for the export.
func (p Paths) MetricsManifest() string { return p.join("metrics_manifest.json") }

// ConfigFile is the optional operator-provided configuration.
func (p Paths) ConfigFile() string { return p.join("config.yaml") }

// Result carries a decoded artifact plus where it came from and whether it was
// actually available. It uses a result-style pattern instead of error returns:
// no stage fails because an input is missing or unreadable.
type Result[T any] struct {
	// Value is the decoded artifact, or the supplied default when unavailable
	Value T
	// Source is the path the artifact was loaded from
	Source string
	// Available is false when the artifact was missing or malformed
	Available bool
	// Err is set only when the artifact existed but could not be used;
	// callers surface it as a warning on the diagnostic stream
	Err error
}

// Load reads a JSON artifact into a value of type T. A missing file yields the
// default silently; an unreadable or unparseable file yields the default with
// Err set for the caller to log.
func Load[T any](path string, def T) Result[T] {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result[T]{Value: def, Source: path, Available: false}
		}
		return Result[T]{Value: def, Source: path, Available: false, Err: fmt.Errorf("failed to read artifact: %w", err)}
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return Result[T]{Value: def, Source: path, Available: false, Err: fmt.Errorf("failed to parse artifact: %w", err)}
	}
	return Result[T]{Value: value, Source: path, Available: true}
}

// Save writes v as two-space indented JSON with a trailing newline. The write
// goes through a temp file and rename so readers never observe a partial
// artifact.
func Save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	return SaveText(path, string(data)+"\n")
}

// SaveText atomically writes a rendered artifact (markdown, exposition text).
func SaveText(path, text string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace artifact: %w", err)
	}
	return nil
}

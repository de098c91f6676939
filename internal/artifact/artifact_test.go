package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestLoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")

	res := Load(path, sample{Name: "default", Count: 3})

	assert.False(t, res.Available)
	assert.NoError(t, res.Err)
	assert.Equal(t, "default", res.Value.Name)
	assert.Equal(t, 3, res.Value.Count)
	assert.Equal(t, path, res.Source)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	res := Load(path, sample{Name: "default"})

	assert.False(t, res.Available)
	assert.Error(t, res.Err)
	assert.Equal(t, "default", res.Value.Name)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "value.json")
	require.NoError(t, Save(path, sample{Name: "drift", Count: 7}))

	res := Load(path, sample{})
	require.True(t, res.Available)
	assert.Equal(t, "drift", res.Value.Name)
	assert.Equal(t, 7, res.Value.Count)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"), "artifact should end with a newline")
	assert.Contains(t, string(data), "  \"name\": \"drift\"", "artifact should be two-space indented")

	// No temp file left behind
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "value.json")
	require.NoError(t, Save(path, sample{Name: "first"}))
	require.NoError(t, Save(path, sample{Name: "second"}))

	res := Load(path, sample{})
	require.True(t, res.Available)
	assert.Equal(t, "second", res.Value.Name)
}

func TestCanonicalSortsKeys(t *testing.T) {
	type unordered struct {
		Zulu  int `json:"zulu"`
		Alpha int `json:"alpha"`
		Mike  int `json:"mike"`
	}

	data, err := Canonical(unordered{Zulu: 1, Alpha: 2, Mike: 3})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mike":3,"zulu":1}`, string(data))
}

func TestCanonicalIgnoresFieldOrder(t *testing.T) {
	type first struct {
		A int `json:"a"`
		B int `json:"b"`
	}
	type second struct {
		B int `json:"b"`
		A int `json:"a"`
	}

	one, err := Canonical(first{A: 1, B: 2})
	require.NoError(t, err)
	two, err := Canonical(second{A: 1, B: 2})
	require.NoError(t, err)
	assert.Equal(t, string(one), string(two))
}

func TestMarshalSorted(t *testing.T) {
	data, err := MarshalSorted(map[string]int{"c": 3, "a": 1, "b": 2})
	require.NoError(t, err)
	want := "{\n  \"a\": 1,\n  \"b\": 2,\n  \"c\": 3\n}"
	assert.Equal(t, want, string(data))
}

func TestPathsLayout(t *testing.T) {
	p := NewPaths("")
	assert.Equal(t, DefaultDir, p.Dir)
	assert.Equal(t, filepath.Join(DefaultDir, "index.json"), p.Index())
	assert.Equal(t, filepath.Join(DefaultDir, "sigwatch.db"), p.SignalDB())

	custom := NewPaths("state")
	assert.Equal(t, filepath.Join("state", "canonical_summary.md"), custom.SummaryMarkdown())
	assert.Equal(t, filepath.Join("state", "metrics_manifest.json"), custom.MetricsManifest())
}

func TestEnsureDir(t *testing.T) {
	root := t.TempDir()
	p := NewPaths(filepath.Join(root, "nested", ".sigwatch"))
	require.NoError(t, p.EnsureDir())

	info, err := os.Stat(p.Dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

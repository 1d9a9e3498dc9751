package recordcache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVectorRoundTrip(t *testing.T) {
	v := NewVectorCache("", nil) // memory only

	v.Set(VectorBias, 7, []float64{1, 2, 3})
	require.Equal(t, []float64{1, 2, 3}, v.Get(VectorBias, 7))
	require.Nil(t, v.Get(VectorCodon, 7), "kinds are separate families")
	require.Nil(t, v.Get(VectorBias, 8))
}

func TestVectorSnapshotDurability(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.json")

	v := NewVectorCache(path, nil)
	v.Set(VectorBias, 7, []float64{1, 2, 3})
	v.Set(VectorCodon, 7, []float64{0.5, 0.5})

	// A fresh instance simulates a process restart.
	reloaded := NewVectorCache(path, nil)
	require.Equal(t, []float64{1, 2, 3}, reloaded.Get(VectorBias, 7))
	require.Equal(t, []float64{0.5, 0.5}, reloaded.Get(VectorCodon, 7))
}

func TestVectorSnapshotLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.json")

	v := NewVectorCache(path, nil)
	v.Set(VectorBias, 7, []float64{0.25})

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Two top-level mappings keyed by the stringified record key.
	var doc map[string]map[string][]float64
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Contains(t, doc, "bias")
	require.Contains(t, doc, "codon")
	require.Equal(t, []float64{0.25}, doc["bias"]["7"])
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	v := NewVectorCache(path, nil)
	require.Nil(t, v.Get(VectorBias, 7), "corruption falls back to empty, never panics")

	// The cache stays usable and the next Set repairs the file.
	v.Set(VectorBias, 7, []float64{9})
	require.Equal(t, []float64{9}, NewVectorCache(path, nil).Get(VectorBias, 7))
}

func TestMissingSnapshotIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does", "not", "exist.json")
	v := NewVectorCache(path, nil)
	require.Nil(t, v.Get(VectorBias, 1))

	// Set creates the parent directory as needed.
	v.Set(VectorBias, 1, []float64{4})
	require.Equal(t, []float64{4}, NewVectorCache(path, nil).Get(VectorBias, 1))
}

func TestUnwritableSnapshotIsSwallowed(t *testing.T) {
	// A directory at the snapshot path makes every write fail.
	dir := t.TempDir()
	v := NewVectorCache(dir, nil)

	v.Set(VectorBias, 7, []float64{1})
	require.Equal(t, []float64{1}, v.Get(VectorBias, 7), "memory stays authoritative")
}

func TestVectorsAreCopied(t *testing.T) {
	v := NewVectorCache("", nil)

	in := []float64{1, 2}
	v.Set(VectorBias, 1, in)
	in[0] = 99
	require.Equal(t, []float64{1, 2}, v.Get(VectorBias, 1), "stored vector is isolated from caller mutation")

	out := v.Get(VectorBias, 1)
	out[0] = 99
	require.Equal(t, []float64{1, 2}, v.Get(VectorBias, 1), "returned vector is a copy")
}

package recordcache

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/wilbur182/genoscope/internal/catalog"
)

// VectorKind selects which feature-vector family an operation addresses.
// The families match the two top-level mappings of the persisted snapshot.
type VectorKind string

const (
	// VectorBias is the windowed GC-skew bias vector of a record.
	VectorBias VectorKind = "bias"
	// VectorCodon is the 64-entry relative codon-usage vector.
	VectorCodon VectorKind = "codon"
)

// snapshot is the on-disk layout: one document per process, rewritten
// wholesale on every mutation.
type snapshot struct {
	Bias  map[string][]float64 `json:"bias"`
	Codon map[string][]float64 `json:"codon"`
}

// VectorCache stores derived feature vectors keyed by record. The
// in-memory maps are the source of truth; the snapshot file is a
// write-behind best-effort mirror. Load and save failures are never
// fatal — a missing or corrupt snapshot simply means starting empty.
type VectorCache struct {
	mu     sync.Mutex
	path   string // empty = memory only
	logger *slog.Logger
	bias   map[string][]float64
	codon  map[string][]float64
}

// NewVectorCache creates a vector cache mirrored at path (empty for
// memory-only) and loads the existing snapshot if one parses.
func NewVectorCache(path string, logger *slog.Logger) *VectorCache {
	if logger == nil {
		logger = slog.Default()
	}
	v := &VectorCache{
		path:   path,
		logger: logger,
		bias:   make(map[string][]float64),
		codon:  make(map[string][]float64),
	}
	v.load()
	return v
}

// load reads the snapshot once at startup. Absence or corruption falls
// back to empty maps.
func (v *VectorCache) load() {
	if v.path == "" {
		return
	}
	data, err := os.ReadFile(v.path)
	if err != nil {
		if !os.IsNotExist(err) {
			v.logger.Warn("vector snapshot unreadable, starting empty", "path", v.path, "error", err)
		}
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		v.logger.Warn("vector snapshot corrupt, starting empty", "path", v.path, "error", err)
		return
	}
	if snap.Bias != nil {
		v.bias = snap.Bias
	}
	if snap.Codon != nil {
		v.codon = snap.Codon
	}
}

// saveLocked rewrites the snapshot wholesale. Must be called with the lock
// held. Failures are logged and swallowed.
func (v *VectorCache) saveLocked() {
	if v.path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(v.path), 0o755); err != nil {
		v.logger.Warn("vector snapshot dir", "path", v.path, "error", err)
		return
	}
	data, err := json.MarshalIndent(snapshot{Bias: v.bias, Codon: v.codon}, "", "  ")
	if err != nil {
		v.logger.Warn("vector snapshot encode", "error", err)
		return
	}
	if err := os.WriteFile(v.path, data, 0o644); err != nil {
		v.logger.Warn("vector snapshot write", "path", v.path, "error", err)
	}
}

func (v *VectorCache) family(kind VectorKind) map[string][]float64 {
	if kind == VectorCodon {
		return v.codon
	}
	return v.bias
}

// Get returns a copy of the stored vector, or nil when none is stored.
// Vectors are durable derived data and bypass any TTL.
func (v *VectorCache) Get(kind VectorKind, key catalog.Key) []float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	vec, ok := v.family(kind)[key.String()]
	if !ok {
		return nil
	}
	out := make([]float64, len(vec))
	copy(out, vec)
	return out
}

// Set stores a copy of vec and synchronously rewrites the snapshot.
func (v *VectorCache) Set(kind VectorKind, key catalog.Key, vec []float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	stored := make([]float64, len(vec))
	copy(stored, vec)
	v.family(kind)[key.String()] = stored
	v.saveLocked()
}

// Len reports how many vectors of the given kind are stored.
func (v *VectorCache) Len(kind VectorKind) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.family(kind))
}

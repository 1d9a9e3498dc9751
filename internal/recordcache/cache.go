// Package recordcache makes repeated navigation to the same record cheap
// while bounding memory and staleness. It wraps the slow assembly source
// with a fixed-capacity LRU plus a TTL freshness check, caches each
// sub-fetch independently under its own key namespace, and keeps a
// separate durable side-cache of derived feature vectors.
package recordcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wilbur182/genoscope/internal/catalog"
	"github.com/wilbur182/genoscope/internal/lru"
)

// DefaultTTL bounds how long an assembled result is served without
// re-running the underlying queries.
const DefaultTTL = 60 * time.Second

// Sub-kind namespaces. All namespaces share one LRU capacity pool, so a
// burst of gene fetches can evict stale whole-record entries and vice
// versa.
const (
	nsRecord      = "record:"
	nsGenes       = "genes:"
	nsStats       = "stats:"
	nsVariants    = "variants:"
	nsPredictions = "predictions:"
)

// Config configures a Cache. Zero values pick the defaults noted per
// field; Capacity has no default and must be at least 1.
type Config struct {
	// Capacity is the shared entry budget across all sub-kind namespaces.
	Capacity int
	// TTL is the freshness bound for assembled entries. Defaults to
	// DefaultTTL. It bounds staleness only; it is not a fetch timeout.
	TTL time.Duration
	// SnapshotPath is where the vector side-cache persists its snapshot.
	// Empty keeps vectors in memory only.
	SnapshotPath string
	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
	// Logger receives best-effort diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// cacheEntry pairs cached data with the instant it was assembled.
// Freshness is always derived from the timestamp, never stored.
type cacheEntry struct {
	data any
	at   time.Time
}

// Cache is the read-through record cache. All methods are safe for
// concurrent use; none of them block on anything but the source itself.
type Cache struct {
	source  catalog.Source
	store   *lru.Cache[string, cacheEntry]
	vectors *VectorCache
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	keysMu  sync.Mutex
	keyList []catalog.Key // cached ordered catalog listing; nil = not loaded
}

// New creates a Cache over source. Configuration errors (capacity < 1,
// negative TTL) fail here and are never clamped.
func New(source catalog.Source, cfg Config) (*Cache, error) {
	store, err := lru.New[string, cacheEntry](cfg.Capacity)
	if err != nil {
		return nil, err
	}
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("recordcache: negative TTL %v", cfg.TTL)
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Cache{
		source:  source,
		store:   store,
		vectors: NewVectorCache(cfg.SnapshotPath, cfg.Logger),
		ttl:     cfg.TTL,
		now:     cfg.Now,
		logger:  cfg.Logger,
	}, nil
}

// fresh returns the cached value under ns+key if present and younger than
// the TTL. A stale hit reads as a miss; the entry is left for the LRU to
// evict naturally.
func (c *Cache) fresh(ns string, key catalog.Key) (any, bool) {
	entry, ok := c.store.Get(ns + key.String())
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.at) >= c.ttl {
		return nil, false
	}
	return entry.data, true
}

func (c *Cache) put(ns string, key catalog.Key, data any) {
	c.store.Put(ns+key.String(), cacheEntry{data: data, at: c.now()})
}

// GetRecord returns the assembled record for key, serving it from cache
// when a fresh entry exists. An absent key returns (nil, nil) and is
// deliberately not cached, so a later retry can succeed once the data
// appears. Source errors propagate to the caller.
func (c *Cache) GetRecord(ctx context.Context, key catalog.Key) (*catalog.Record, error) {
	if data, ok := c.fresh(nsRecord, key); ok {
		return data.(*catalog.Record), nil
	}

	record, err := c.assemble(ctx, key)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	c.put(nsRecord, key, record)
	return record, nil
}

// assemble composes the sub-fetches into a Record. Each sub-kind consults
// its own cache namespace first, so a stale whole-record entry does not
// force every sub-query to rerun.
func (c *Cache) assemble(ctx context.Context, key catalog.Key) (*catalog.Record, error) {
	attrs, err := c.source.Attributes(ctx, key)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("assemble %s: attributes: %w", key, err)
	}

	genes, err := c.Genes(ctx, key)
	if err != nil {
		return nil, err
	}
	stats, err := c.Stats(ctx, key)
	if err != nil {
		return nil, err
	}
	hasVariants, err := c.HasVariants(ctx, key)
	if err != nil {
		return nil, err
	}
	predictions, err := c.Predictions(ctx, key)
	if err != nil {
		return nil, err
	}

	return &catalog.Record{
		Attributes:  *attrs,
		Genes:       genes,
		Stats:       *stats,
		HasVariants: hasVariants,
		Predictions: predictions,
	}, nil
}

// Genes returns the gene list for key, cached under its own namespace.
func (c *Cache) Genes(ctx context.Context, key catalog.Key) ([]catalog.Gene, error) {
	if data, ok := c.fresh(nsGenes, key); ok {
		return data.([]catalog.Gene), nil
	}
	genes, err := c.source.Genes(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("assemble %s: genes: %w", key, err)
	}
	c.put(nsGenes, key, genes)
	return genes, nil
}

// Stats returns the derived sequence statistics for key.
func (c *Cache) Stats(ctx context.Context, key catalog.Key) (*catalog.SequenceStats, error) {
	if data, ok := c.fresh(nsStats, key); ok {
		return data.(*catalog.SequenceStats), nil
	}
	stats, err := c.source.Stats(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("assemble %s: stats: %w", key, err)
	}
	c.put(nsStats, key, stats)
	return stats, nil
}

// HasVariants reports whether variant rows exist for key.
func (c *Cache) HasVariants(ctx context.Context, key catalog.Key) (bool, error) {
	if data, ok := c.fresh(nsVariants, key); ok {
		return data.(bool), nil
	}
	has, err := c.source.HasVariants(ctx, key)
	if err != nil {
		return false, fmt.Errorf("assemble %s: variants: %w", key, err)
	}
	c.put(nsVariants, key, has)
	return has, nil
}

// Predictions returns the ranked predictions for key.
func (c *Cache) Predictions(ctx context.Context, key catalog.Key) ([]catalog.Prediction, error) {
	if data, ok := c.fresh(nsPredictions, key); ok {
		return data.([]catalog.Prediction), nil
	}
	preds, err := c.source.Predictions(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("assemble %s: predictions: %w", key, err)
	}
	c.put(nsPredictions, key, preds)
	return preds, nil
}

// Keys returns the ordered catalog listing, loading it once and caching
// it in memory until an Invalidate or Clear drops it.
func (c *Cache) Keys(ctx context.Context) ([]catalog.Key, error) {
	c.keysMu.Lock()
	defer c.keysMu.Unlock()

	if c.keyList != nil {
		return c.keyList, nil
	}
	keys, err := c.source.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog keys: %w", err)
	}
	c.keyList = keys
	return keys, nil
}

// GetRecordByIndex resolves an index through the cached catalog listing.
// An out-of-range index reads as absent.
func (c *Cache) GetRecordByIndex(ctx context.Context, index int) (*catalog.Record, error) {
	keys, err := c.Keys(ctx)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(keys) {
		return nil, nil
	}
	return c.GetRecord(ctx, keys[index])
}

// Invalidate drops every cached sub-kind entry for key and the catalog
// listing. The vector side-cache is untouched: vectors are durable
// derived data, not staleness-bound.
func (c *Cache) Invalidate(key catalog.Key) {
	for _, ns := range []string{nsRecord, nsGenes, nsStats, nsVariants, nsPredictions} {
		c.store.Delete(ns + key.String())
	}
	c.keysMu.Lock()
	c.keyList = nil
	c.keysMu.Unlock()
}

// Clear drops every cached entry across all namespaces and the catalog
// listing.
func (c *Cache) Clear() {
	c.store.Clear()
	c.keysMu.Lock()
	c.keyList = nil
	c.keysMu.Unlock()
}

// Len reports the number of live entries across all namespaces.
func (c *Cache) Len() int {
	return c.store.Len()
}

// GetVector returns the stored feature vector of the given kind for key,
// or nil when none is stored. Vectors bypass the TTL.
func (c *Cache) GetVector(kind VectorKind, key catalog.Key) []float64 {
	return c.vectors.Get(kind, key)
}

// SetVector stores a feature vector and synchronously rewrites the
// persisted snapshot. Persistence failures are swallowed; the in-memory
// map stays authoritative for the running process.
func (c *Cache) SetVector(kind VectorKind, key catalog.Key, vec []float64) {
	c.vectors.Set(kind, key, vec)
}

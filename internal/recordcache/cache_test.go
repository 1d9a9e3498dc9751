package recordcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wilbur182/genoscope/internal/catalog"
)

// fakeSource is an in-memory catalog.Source that counts every sub-fetch.
type fakeSource struct {
	mu    sync.Mutex
	data  map[catalog.Key]*catalog.Record
	calls map[string]int
	err   error // returned by every method when set
}

func newFakeSource(keys ...catalog.Key) *fakeSource {
	s := &fakeSource{
		data:  make(map[catalog.Key]*catalog.Record),
		calls: make(map[string]int),
	}
	for _, k := range keys {
		s.add(k)
	}
	return s
}

func (s *fakeSource) add(k catalog.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[k] = &catalog.Record{
		Attributes: catalog.Attributes{Key: k, Accession: fmt.Sprintf("ACC%d", k), Length: 900},
		Genes: []catalog.Gene{
			{Locus: "g1", Start: 10, End: 400, Strand: 1},
			{Locus: "g2", Start: 450, End: 800, Strand: -1},
		},
		Stats:       catalog.SequenceStats{GCPercent: 51.5, Entropy: 1.9, Length: 900},
		HasVariants: true,
		Predictions: []catalog.Prediction{{Rank: 1, Method: "fold", Confidence: 0.9}},
	}
}

func (s *fakeSource) count(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
	return s.err
}

func (s *fakeSource) callCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *fakeSource) Attributes(_ context.Context, k catalog.Key) (*catalog.Attributes, error) {
	if err := s.count("attributes"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data[k]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	attrs := rec.Attributes
	return &attrs, nil
}

func (s *fakeSource) Genes(_ context.Context, k catalog.Key) ([]catalog.Gene, error) {
	if err := s.count("genes"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.data[k]; ok {
		return rec.Genes, nil
	}
	return nil, nil
}

func (s *fakeSource) Stats(_ context.Context, k catalog.Key) (*catalog.SequenceStats, error) {
	if err := s.count("stats"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.data[k]; ok {
		stats := rec.Stats
		return &stats, nil
	}
	return &catalog.SequenceStats{}, nil
}

func (s *fakeSource) HasVariants(_ context.Context, k catalog.Key) (bool, error) {
	if err := s.count("variants"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.data[k]; ok {
		return rec.HasVariants, nil
	}
	return false, nil
}

func (s *fakeSource) Predictions(_ context.Context, k catalog.Key) ([]catalog.Prediction, error) {
	if err := s.count("predictions"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.data[k]; ok {
		return rec.Predictions, nil
	}
	return nil, nil
}

func (s *fakeSource) Sequence(_ context.Context, k catalog.Key) (string, error) {
	if err := s.count("sequence"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[k]; ok {
		return "ATGAAATTTGGGCCCTAA", nil
	}
	return "", catalog.ErrNotFound
}

func (s *fakeSource) Keys(_ context.Context) ([]catalog.Key, error) {
	if err := s.count("keys"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]catalog.Key, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	// map order is fine for tests that only care about membership; tests
	// needing a stable order use a single key
	return keys, nil
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(t *testing.T, source catalog.Source, clock *fakeClock) *Cache {
	t.Helper()
	cfg := Config{Capacity: 32, TTL: 60 * time.Second, Logger: slog.Default()}
	if clock != nil {
		cfg.Now = clock.Now
	}
	c, err := New(source, cfg)
	require.NoError(t, err)
	return c
}

func TestConfigErrors(t *testing.T) {
	src := newFakeSource(1)
	if _, err := New(src, Config{Capacity: 0}); err == nil {
		t.Error("capacity 0 should fail construction")
	}
	if _, err := New(src, Config{Capacity: 8, TTL: -time.Second}); err == nil {
		t.Error("negative TTL should fail construction")
	}
}

func TestGetRecordReadsThrough(t *testing.T) {
	src := newFakeSource(7)
	c := newTestCache(t, src, nil)
	ctx := context.Background()

	rec, err := c.GetRecord(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "ACC7", rec.Attributes.Accession)
	require.Len(t, rec.Genes, 2)
	require.True(t, rec.HasVariants)

	// Second navigation is served from cache: no further source calls.
	before := src.callCount("attributes")
	rec2, err := c.GetRecord(ctx, 7)
	require.NoError(t, err)
	require.Same(t, rec, rec2)
	require.Equal(t, before, src.callCount("attributes"))
}

func TestTTLStaleness(t *testing.T) {
	src := newFakeSource(7)
	clock := newFakeClock()
	c := newTestCache(t, src, clock)
	ctx := context.Background()

	_, err := c.GetRecord(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 1, src.callCount("attributes"))

	// Just inside the TTL: still a hit.
	clock.Advance(59 * time.Second)
	_, err = c.GetRecord(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 1, src.callCount("attributes"))

	// Past the TTL: the hit becomes a miss and assembly reruns.
	clock.Advance(2 * time.Second)
	_, err = c.GetRecord(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 2, src.callCount("attributes"))
}

func TestAbsentRecordIsNotCached(t *testing.T) {
	src := newFakeSource() // empty catalog
	c := newTestCache(t, src, nil)
	ctx := context.Background()

	rec, err := c.GetRecord(ctx, 42)
	require.NoError(t, err)
	require.Nil(t, rec, "absent is a normal result, not an error")

	// The miss was not cached: once the data appears, a retry succeeds.
	src.add(42)
	rec, err = c.GetRecord(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, rec)
}

func TestSourceErrorPropagates(t *testing.T) {
	src := newFakeSource(7)
	src.err = errors.New("disk on fire")
	c := newTestCache(t, src, nil)

	_, err := c.GetRecord(context.Background(), 7)
	require.Error(t, err)
	require.ErrorContains(t, err, "disk on fire")
}

func TestSubKindCachesAreIndependent(t *testing.T) {
	src := newFakeSource(7)
	c := newTestCache(t, src, nil)
	ctx := context.Background()

	// Warm the genes namespace alone.
	genes, err := c.Genes(ctx, 7)
	require.NoError(t, err)
	require.Len(t, genes, 2)
	require.Equal(t, 1, src.callCount("genes"))

	// Whole-record assembly reuses the cached genes.
	_, err = c.GetRecord(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 1, src.callCount("genes"))
	require.Equal(t, 1, src.callCount("attributes"))
}

func TestInvalidateDropsAllSubKinds(t *testing.T) {
	src := newFakeSource(7)
	c := newTestCache(t, src, nil)
	ctx := context.Background()

	_, err := c.GetRecord(ctx, 7)
	require.NoError(t, err)
	_, err = c.Keys(ctx)
	require.NoError(t, err)

	c.Invalidate(7)

	_, err = c.GetRecord(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 2, src.callCount("attributes"))
	require.Equal(t, 2, src.callCount("genes"))

	// The catalog listing was dropped too.
	_, err = c.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, src.callCount("keys"))
}

func TestClear(t *testing.T) {
	src := newFakeSource(7)
	c := newTestCache(t, src, nil)
	ctx := context.Background()

	_, err := c.GetRecord(ctx, 7)
	require.NoError(t, err)
	require.Greater(t, c.Len(), 0)

	c.Clear()
	require.Equal(t, 0, c.Len())

	_, err = c.GetRecord(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 2, src.callCount("attributes"))
}

func TestGetRecordByIndex(t *testing.T) {
	src := newFakeSource(5)
	c := newTestCache(t, src, nil)
	ctx := context.Background()

	rec, err := c.GetRecordByIndex(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, catalog.Key(5), rec.Attributes.Key)

	// Out of range reads as absent.
	rec, err = c.GetRecordByIndex(ctx, 99)
	require.NoError(t, err)
	require.Nil(t, rec)
	rec, err = c.GetRecordByIndex(ctx, -1)
	require.NoError(t, err)
	require.Nil(t, rec)

	// The listing is fetched once and reused.
	require.Equal(t, 1, src.callCount("keys"))
}

func TestNamespacesShareCapacity(t *testing.T) {
	src := newFakeSource(1, 2, 3)
	cfg := Config{Capacity: 5, TTL: time.Minute}
	c, err := New(src, cfg)
	require.NoError(t, err)
	ctx := context.Background()

	// Each assembled record occupies 5 namespace entries, so assembling a
	// second record evicts parts of the first.
	_, err = c.GetRecord(ctx, 1)
	require.NoError(t, err)
	_, err = c.GetRecord(ctx, 2)
	require.NoError(t, err)
	require.LessOrEqual(t, c.Len(), 5)

	_, err = c.GetRecord(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 3, src.callCount("attributes"), "record 1 was evicted and reassembled")
}

// Package prefetch warms the record cache around the user's current
// catalog position. Neighbors are fetched in rings of increasing
// distance, each ring settled before the next starts, so the entries the
// user is most likely to visit next become warm first.
package prefetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wilbur182/genoscope/internal/catalog"
)

// Fetcher is the slice of the record cache the prefetcher needs. Fetching
// an already-warm key through a read-through cache is a cheap no-op, which
// is what makes redundant prefetches harmless.
type Fetcher interface {
	Keys(ctx context.Context) ([]catalog.Key, error)
	GetRecord(ctx context.Context, key catalog.Key) (*catalog.Record, error)
}

// Prefetcher issues background ring fetches. It never blocks the
// navigation path that triggers it.
type Prefetcher struct {
	fetcher Fetcher
	radius  int
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// New creates a Prefetcher reaching radius positions to each side.
// A negative radius is a configuration error; zero disables prefetching.
func New(fetcher Fetcher, radius int, logger *slog.Logger) (*Prefetcher, error) {
	if radius < 0 {
		return nil, fmt.Errorf("prefetch: negative radius %d", radius)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prefetcher{fetcher: fetcher, radius: radius, logger: logger}, nil
}

// Around starts prefetching the neighbors of index in the background and
// returns immediately.
func (p *Prefetcher) Around(ctx context.Context, index int) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx, index)
	}()
}

// Wait blocks until every prefetch started so far has settled. Intended
// for shutdown and tests.
func (p *Prefetcher) Wait() {
	p.wg.Wait()
}

func (p *Prefetcher) run(ctx context.Context, index int) {
	keys, err := p.fetcher.Keys(ctx)
	if err != nil {
		// Background work: log and move on, never surface.
		p.logger.Debug("prefetch: catalog listing failed", "error", err)
		return
	}

	for distance := 1; distance <= p.radius; distance++ {
		ring := ringIndexes(index, distance, len(keys))
		if len(ring) == 0 {
			continue
		}

		// Fan out within the ring, then settle the whole ring before the
		// next one starts. Per-key failures are isolated: the goroutines
		// always return nil so one bad key cannot abort its ring.
		var g errgroup.Group
		for _, i := range ring {
			key := keys[i]
			g.Go(func() error {
				if _, err := p.fetcher.GetRecord(ctx, key); err != nil {
					p.logger.Debug("prefetch: fetch failed", "key", key, "error", err)
				}
				return nil
			})
		}
		_ = g.Wait() // goroutines never return errors

		if ctx.Err() != nil {
			return
		}
	}
}

// ringIndexes returns {index-distance, index+distance} clipped to
// [0, length).
func ringIndexes(index, distance, length int) []int {
	ring := make([]int, 0, 2)
	if lo := index - distance; lo >= 0 && lo < length {
		ring = append(ring, lo)
	}
	if hi := index + distance; hi >= 0 && hi < length {
		ring = append(ring, hi)
	}
	return ring
}

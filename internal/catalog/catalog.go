// Package catalog defines the domain types for genome records and the
// Source interface the caching layer reads through. Implementations of
// Source (e.g. the SQLite store) own the actual queries; everything above
// this package only sees assembled values.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Key identifies a catalog entry. Keys are unique within a catalog and
// carry no meaning beyond identity and stable ordering in listings.
type Key uint64

// String renders the key the way it appears in cache namespaces and the
// persisted vector snapshot.
func (k Key) String() string {
	return fmt.Sprintf("%d", uint64(k))
}

// ErrNotFound signals that a key has no entry in the underlying catalog.
// It is a normal outcome, not a failure: the record cache translates it to
// an absent result and deliberately does not cache it.
var ErrNotFound = errors.New("catalog: record not found")

// Attributes holds the scalar metadata of a record.
type Attributes struct {
	Key       Key
	Accession string
	Name      string
	Organism  string
	Length    int
	SeqHash   uint64 // xxhash of the raw sequence, for integrity/dedupe
	UpdatedAt time.Time
}

// Gene is a single annotated feature on a record. Genes are always listed
// ordered by (Start, End, Locus) so repeated assemblies are comparable.
type Gene struct {
	Locus   string
	Product string
	Start   int
	End     int
	Strand  int8 // +1 or -1
}

// SequenceStats are the derived per-record statistics computed at assembly
// time from the raw sequence.
type SequenceStats struct {
	GCPercent float64
	Entropy   float64 // Shannon entropy of base composition, bits
	Length    int
}

// Prediction is one ranked structure/function prediction for a record.
type Prediction struct {
	Rank       int
	Method     string
	Confidence float64
}

// Record is the fully assembled aggregate for a Key. A Record is immutable
// after assembly; a re-assembly produces a new value rather than mutating
// one already handed out.
type Record struct {
	Attributes  Attributes
	Genes       []Gene
	Stats       SequenceStats
	HasVariants bool
	Predictions []Prediction
}

// Source is the slow side of the read-through cache: the sub-fetches a
// record assembly composes. All methods are safe to call repeatedly for the
// same key; a missing key yields ErrNotFound from Attributes and zero
// values elsewhere.
type Source interface {
	// Attributes returns the scalar metadata, or ErrNotFound.
	Attributes(ctx context.Context, key Key) (*Attributes, error)
	// Genes returns the annotated features ordered by start position.
	Genes(ctx context.Context, key Key) ([]Gene, error)
	// Stats returns derived sequence statistics.
	Stats(ctx context.Context, key Key) (*SequenceStats, error)
	// HasVariants reports whether any variant rows exist for the key.
	HasVariants(ctx context.Context, key Key) (bool, error)
	// Predictions returns predictions ordered by rank.
	Predictions(ctx context.Context, key Key) ([]Prediction, error)
	// Sequence returns the raw sequence for the key, or ErrNotFound.
	Sequence(ctx context.Context, key Key) (string, error)
	// Keys returns every key in the catalog in stable catalog order.
	Keys(ctx context.Context) ([]Key, error)
}

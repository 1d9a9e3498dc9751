// Package store implements the catalog source on SQLite. It owns the
// slow side of the read-through cache: every method here runs real
// queries, and the caching layer above decides how often that happens.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	_ "modernc.org/sqlite"

	"github.com/wilbur182/genoscope/internal/catalog"
	"github.com/wilbur182/genoscope/internal/compute"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	key        INTEGER PRIMARY KEY,
	accession  TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	organism   TEXT NOT NULL DEFAULT '',
	sequence   TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS genes (
	record_key INTEGER NOT NULL REFERENCES records(key) ON DELETE CASCADE,
	locus      TEXT NOT NULL,
	product    TEXT NOT NULL DEFAULT '',
	pos_start  INTEGER NOT NULL,
	pos_end    INTEGER NOT NULL,
	strand     INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS genes_by_record ON genes(record_key, pos_start, pos_end);
CREATE TABLE IF NOT EXISTS variants (
	record_key INTEGER NOT NULL REFERENCES records(key) ON DELETE CASCADE,
	pos        INTEGER NOT NULL,
	ref        TEXT NOT NULL,
	alt        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS variants_by_record ON variants(record_key);
CREATE TABLE IF NOT EXISTS predictions (
	record_key INTEGER NOT NULL REFERENCES records(key) ON DELETE CASCADE,
	rank       INTEGER NOT NULL,
	method     TEXT NOT NULL,
	confidence REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS predictions_by_record ON predictions(record_key, rank);
`

// gcSkewWindow and gcSkewStep shape the bias vector derived from a
// record's sequence.
const (
	gcSkewWindow = 100
	gcSkewStep   = 50
)

// Store is a SQLite-backed catalog.Source.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the catalog database at path and
// bootstraps the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init catalog schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path, which the watcher observes.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Attributes returns the scalar metadata for key, deriving length and the
// sequence fingerprint from the stored sequence.
func (s *Store) Attributes(ctx context.Context, key catalog.Key) (*catalog.Attributes, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT accession, name, organism, sequence, updated_at FROM records WHERE key = ?`, uint64(key))

	var (
		attrs     catalog.Attributes
		seq       string
		updatedAt int64
	)
	err := row.Scan(&attrs.Accession, &attrs.Name, &attrs.Organism, &seq, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("attributes %s: %w", key, err)
	}

	attrs.Key = key
	attrs.Length = len(seq)
	attrs.SeqHash = xxhash.Sum64String(seq)
	attrs.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &attrs, nil
}

// Genes returns the annotated features for key ordered by position, then
// locus, so assembly output is stable across calls.
func (s *Store) Genes(ctx context.Context, key catalog.Key) ([]catalog.Gene, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT locus, product, pos_start, pos_end, strand FROM genes
		 WHERE record_key = ? ORDER BY pos_start, pos_end, locus`, uint64(key))
	if err != nil {
		return nil, fmt.Errorf("genes %s: %w", key, err)
	}
	defer rows.Close()

	var genes []catalog.Gene
	for rows.Next() {
		var g catalog.Gene
		if err := rows.Scan(&g.Locus, &g.Product, &g.Start, &g.End, &g.Strand); err != nil {
			return nil, fmt.Errorf("genes %s: %w", key, err)
		}
		genes = append(genes, g)
	}
	return genes, rows.Err()
}

// Stats derives sequence statistics for key on the fly.
func (s *Store) Stats(ctx context.Context, key catalog.Key) (*catalog.SequenceStats, error) {
	seq, err := s.Sequence(ctx, key)
	if errors.Is(err, catalog.ErrNotFound) {
		return &catalog.SequenceStats{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &catalog.SequenceStats{
		GCPercent: compute.GCContent(seq),
		Entropy:   compute.BaseEntropy(seq),
		Length:    len(seq),
	}, nil
}

// HasVariants reports whether any variant rows exist for key.
func (s *Store) HasVariants(ctx context.Context, key catalog.Key) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM variants WHERE record_key = ?)`, uint64(key))
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("variants %s: %w", key, err)
	}
	return exists, nil
}

// Predictions returns the ranked predictions for key, best rank first.
func (s *Store) Predictions(ctx context.Context, key catalog.Key) ([]catalog.Prediction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rank, method, confidence FROM predictions
		 WHERE record_key = ? ORDER BY rank`, uint64(key))
	if err != nil {
		return nil, fmt.Errorf("predictions %s: %w", key, err)
	}
	defer rows.Close()

	var preds []catalog.Prediction
	for rows.Next() {
		var p catalog.Prediction
		if err := rows.Scan(&p.Rank, &p.Method, &p.Confidence); err != nil {
			return nil, fmt.Errorf("predictions %s: %w", key, err)
		}
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

// Sequence returns the raw sequence for key.
func (s *Store) Sequence(ctx context.Context, key catalog.Key) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT sequence FROM records WHERE key = ?`, uint64(key))
	var seq string
	err := row.Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return "", catalog.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sequence %s: %w", key, err)
	}
	return seq, nil
}

// Keys returns every record key in ascending order.
func (s *Store) Keys(ctx context.Context) ([]catalog.Key, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM records ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []catalog.Key
	for rows.Next() {
		var k uint64
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("list keys: %w", err)
		}
		keys = append(keys, catalog.Key(k))
	}
	return keys, rows.Err()
}

// BiasVector derives the windowed GC-skew vector for key's sequence.
func (s *Store) BiasVector(ctx context.Context, key catalog.Key) ([]float64, error) {
	seq, err := s.Sequence(ctx, key)
	if err != nil {
		return nil, err
	}
	return compute.GCSkew(seq, gcSkewWindow, gcSkewStep), nil
}

// CodonVector derives the relative codon-usage vector for key's sequence
// in reading frame 0.
func (s *Store) CodonVector(ctx context.Context, key catalog.Key) ([]float64, error) {
	seq, err := s.Sequence(ctx, key)
	if err != nil {
		return nil, err
	}
	return compute.CodonVector(seq, 0), nil
}

// SeedRecord is the flat input shape for Seed.
type SeedRecord struct {
	Key         catalog.Key
	Accession   string
	Name        string
	Organism    string
	Sequence    string
	Genes       []catalog.Gene
	Variants    int // number of synthetic variant rows
	Predictions []catalog.Prediction
}

// Seed inserts records transactionally, replacing any rows that share a
// key. Used by the demo command and tests.
func (s *Store) Seed(ctx context.Context, records []SeedRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO records (key, accession, name, organism, sequence, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			uint64(r.Key), r.Accession, r.Name, r.Organism, r.Sequence, time.Now().Unix()); err != nil {
			return fmt.Errorf("seed record %s: %w", r.Key, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM genes WHERE record_key = ?`, uint64(r.Key)); err != nil {
			return fmt.Errorf("seed genes %s: %w", r.Key, err)
		}
		for _, g := range r.Genes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO genes (record_key, locus, product, pos_start, pos_end, strand)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				uint64(r.Key), g.Locus, g.Product, g.Start, g.End, g.Strand); err != nil {
				return fmt.Errorf("seed genes %s: %w", r.Key, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM variants WHERE record_key = ?`, uint64(r.Key)); err != nil {
			return fmt.Errorf("seed variants %s: %w", r.Key, err)
		}
		for i := 0; i < r.Variants; i++ {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO variants (record_key, pos, ref, alt) VALUES (?, ?, ?, ?)`,
				uint64(r.Key), i*10+1, "A", "G"); err != nil {
				return fmt.Errorf("seed variants %s: %w", r.Key, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM predictions WHERE record_key = ?`, uint64(r.Key)); err != nil {
			return fmt.Errorf("seed predictions %s: %w", r.Key, err)
		}
		for _, p := range r.Predictions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO predictions (record_key, rank, method, confidence) VALUES (?, ?, ?, ?)`,
				uint64(r.Key), p.Rank, p.Method, p.Confidence); err != nil {
				return fmt.Errorf("seed predictions %s: %w", r.Key, err)
			}
		}
	}
	return tx.Commit()
}

package main

import (
	"math/rand"
	"strings"

	"github.com/wilbur182/genoscope/internal/catalog"
	"github.com/wilbur182/genoscope/internal/store"
)

// demoRecords builds a small deterministic catalog for trying the browser
// without real data.
func demoRecords() []store.SeedRecord {
	rng := rand.New(rand.NewSource(42))
	records := make([]store.SeedRecord, 0, 12)

	for i := 1; i <= 12; i++ {
		seqLen := 600 + rng.Intn(2400)
		seq := randomSequence(rng, seqLen)

		genes := []catalog.Gene{
			{Locus: demoLocus(i, 1), Product: "DNA polymerase subunit", Start: 12, End: seqLen / 3, Strand: 1},
			{Locus: demoLocus(i, 2), Product: "hypothetical protein", Start: seqLen/3 + 40, End: 2 * seqLen / 3, Strand: -1},
			{Locus: demoLocus(i, 3), Product: "tRNA ligase", Start: 2*seqLen/3 + 20, End: seqLen - 10, Strand: 1},
		}
		preds := []catalog.Prediction{
			{Rank: 1, Method: "alphafold", Confidence: 0.5 + rng.Float64()/2},
			{Rank: 2, Method: "hmm", Confidence: rng.Float64() / 2},
		}

		records = append(records, store.SeedRecord{
			Key:         catalog.Key(i),
			Accession:   demoAccession(i),
			Name:        "demo contig",
			Organism:    "Escherichia coli K-12",
			Sequence:    seq,
			Genes:       genes,
			Variants:    i % 3,
			Predictions: preds,
		})
	}
	return records
}

func demoAccession(i int) string {
	return "DEMO_" + string(rune('A'+i-1)) + "001"
}

func demoLocus(record, gene int) string {
	return demoAccession(record) + "_g" + string(rune('0'+gene))
}

func randomSequence(rng *rand.Rand, n int) string {
	const bases = "ACGT"
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(bases[rng.Intn(4)])
	}
	return b.String()
}

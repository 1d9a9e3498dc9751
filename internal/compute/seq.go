// Package compute holds the sequence kernels the browser derives data
// from: codon usage, GC statistics, entropy, translation. The codon and
// bias feature vectors stored in the vector side-cache are produced here.
package compute

import (
	"math"
	"strings"
)

// codonTable is the standard codon table (translation table 1), indexed by
// (base0<<4 | base1<<2 | base2) with A=0, C=1, G=2, T=3.
const codonTable = "KNKNTTTTRSRSIIMIQHQHPPPPRRRRLLLLEDEDAAAAGGGGVVVV*Y*YSSSS*CWCLFLF"

// encodeBase maps a nucleotide to its 2-bit code, or -1 for ambiguous
// bases (N etc). U is accepted as T.
func encodeBase(b byte) int {
	switch b {
	case 'A', 'a':
		return 0
	case 'C', 'c':
		return 1
	case 'G', 'g':
		return 2
	case 'T', 't', 'U', 'u':
		return 3
	}
	return -1
}

// Translate converts a DNA sequence to amino acids in the given reading
// frame (0, 1 or 2; larger values are clamped to 2). Codons containing
// ambiguous bases become 'X'.
func Translate(seq string, frame int) string {
	if frame < 0 {
		frame = 0
	} else if frame > 2 {
		frame = 2
	}
	if len(seq) < frame+3 {
		return ""
	}

	var b strings.Builder
	b.Grow((len(seq) - frame) / 3)
	for i := frame; i+3 <= len(seq); i += 3 {
		e0, e1, e2 := encodeBase(seq[i]), encodeBase(seq[i+1]), encodeBase(seq[i+2])
		if e0 < 0 || e1 < 0 || e2 < 0 {
			b.WriteByte('X')
			continue
		}
		b.WriteByte(codonTable[e0<<4|e1<<2|e2])
	}
	return b.String()
}

// ReverseComplement returns the reverse complement of a DNA sequence,
// preserving case. Ambiguous bases map to N/n.
func ReverseComplement(seq string) string {
	out := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		var c byte
		switch b := seq[len(seq)-1-i]; b {
		case 'A':
			c = 'T'
		case 'T', 'U':
			c = 'A'
		case 'G':
			c = 'C'
		case 'C':
			c = 'G'
		case 'a':
			c = 't'
		case 't', 'u':
			c = 'a'
		case 'g':
			c = 'c'
		case 'c':
			c = 'g'
		default:
			if b >= 'a' {
				c = 'n'
			} else {
				c = 'N'
			}
		}
		out[i] = c
	}
	return string(out)
}

// GCContent returns the GC percentage (0-100) over unambiguous bases, or 0
// when the sequence has none.
func GCContent(seq string) float64 {
	var gc, total int
	for i := 0; i < len(seq); i++ {
		switch seq[i] {
		case 'G', 'g', 'C', 'c':
			gc++
			total++
		case 'A', 'a', 'T', 't', 'U', 'u':
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(gc) / float64(total) * 100
}

// GCSkew computes (G-C)/(G+C) for each window of windowSize bases advanced
// by stepSize. Windows with no G or C contribute 0. Returns nil when the
// sequence is shorter than one window or the parameters are non-positive.
func GCSkew(seq string, windowSize, stepSize int) []float64 {
	n := len(seq)
	if windowSize <= 0 || stepSize <= 0 || n < windowSize {
		return nil
	}

	numWindows := (n-windowSize)/stepSize + 1
	skews := make([]float64, 0, numWindows)
	for w := 0; w < numWindows; w++ {
		start := w * stepSize
		var g, c int
		for i := start; i < start+windowSize; i++ {
			switch seq[i] {
			case 'G', 'g':
				g++
			case 'C', 'c':
				c++
			}
		}
		if g+c == 0 {
			skews = append(skews, 0)
		} else {
			skews = append(skews, float64(g-c)/float64(g+c))
		}
	}
	return skews
}

// CumulativeGCSkew returns the running G-minus-C sum per position. Its
// minimum sits near the replication origin on bacterial chromosomes.
func CumulativeGCSkew(seq string) []float64 {
	out := make([]float64, len(seq))
	sum := 0.0
	for i := 0; i < len(seq); i++ {
		switch seq[i] {
		case 'G', 'g':
			sum++
		case 'C', 'c':
			sum--
		}
		out[i] = sum
	}
	return out
}

// CodonUsage counts codons in the given reading frame. Codons containing
// ambiguous bases are skipped. Keys are uppercase.
func CodonUsage(seq string, frame int) map[string]int {
	if frame < 0 {
		frame = 0
	} else if frame > 2 {
		frame = 2
	}

	counts := make(map[string]int)
	for i := frame; i+3 <= len(seq); i += 3 {
		e0, e1, e2 := encodeBase(seq[i]), encodeBase(seq[i+1]), encodeBase(seq[i+2])
		if e0 < 0 || e1 < 0 || e2 < 0 {
			continue
		}
		counts[codonString(e0, e1, e2)]++
	}
	return counts
}

const bases = "ACGT"

func codonString(e0, e1, e2 int) string {
	return string([]byte{bases[e0], bases[e1], bases[e2]})
}

// CodonVector returns the 64 relative codon frequencies in lexicographic
// codon order (AAA, AAC, ... TTT) for the given frame. An empty or fully
// ambiguous sequence yields a zero vector.
func CodonVector(seq string, frame int) []float64 {
	counts := CodonUsage(seq, frame)
	total := 0
	for _, n := range counts {
		total += n
	}

	vec := make([]float64, 64)
	if total == 0 {
		return vec
	}
	idx := 0
	for e0 := 0; e0 < 4; e0++ {
		for e1 := 0; e1 < 4; e1++ {
			for e2 := 0; e2 < 4; e2++ {
				vec[idx] = float64(counts[codonString(e0, e1, e2)]) / float64(total)
				idx++
			}
		}
	}
	return vec
}

// EntropyFromCounts computes Shannon entropy in bits from frequency
// counts, clamped to be non-negative.
func EntropyFromCounts(counts []float64) float64 {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	if total <= 0 {
		return 0
	}

	entropy := 0.0
	for _, c := range counts {
		if c > 0 {
			p := c / total
			entropy -= p * math.Log2(p)
		}
	}
	return math.Max(entropy, 0)
}

// BaseEntropy returns the Shannon entropy of the A/C/G/T composition of a
// sequence, in bits (0 for an empty or all-ambiguous sequence, at most 2).
func BaseEntropy(seq string) float64 {
	var counts [4]float64
	for i := 0; i < len(seq); i++ {
		if e := encodeBase(seq[i]); e >= 0 {
			counts[e]++
		}
	}
	return EntropyFromCounts(counts[:])
}

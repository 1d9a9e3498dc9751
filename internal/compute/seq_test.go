package compute

import (
	"math"
	"testing"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name  string
		seq   string
		frame int
		want  string
	}{
		{"start codon", "ATG", 0, "M"},
		{"met lys stop", "ATGAAATAA", 0, "MK*"},
		{"lowercase", "atgaaataa", 0, "MK*"},
		{"frame 1", "CATGAAATAA", 1, "MK*"},
		{"frame 2", "CCATGAAATAA", 2, "MK*"},
		{"ambiguous codon", "ATGNNNAAA", 0, "MXK"},
		{"too short", "AT", 0, ""},
		{"frame clamped", "CCATGAAATAA", 9, "MK*"},
		{"uracil accepted", "AUG", 0, "M"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Translate(tt.seq, tt.frame); got != tt.want {
				t.Errorf("Translate(%q, %d) = %q, want %q", tt.seq, tt.frame, got, tt.want)
			}
		})
	}
}

func TestReverseComplement(t *testing.T) {
	tests := []struct {
		seq, want string
	}{
		{"ATGC", "GCAT"},
		{"AAAA", "TTTT"},
		{"atgc", "gcat"},
		{"ATGN", "NCAT"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ReverseComplement(tt.seq); got != tt.want {
			t.Errorf("ReverseComplement(%q) = %q, want %q", tt.seq, got, tt.want)
		}
	}
}

func TestGCContent(t *testing.T) {
	tests := []struct {
		name string
		seq  string
		want float64
	}{
		{"all GC", "GGCC", 100},
		{"no GC", "AATT", 0},
		{"half", "ATGC", 50},
		{"ambiguous skipped", "GCNN", 100},
		{"empty", "", 0},
		{"only ambiguous", "NNNN", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GCContent(tt.seq); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("GCContent(%q) = %v, want %v", tt.seq, got, tt.want)
			}
		})
	}
}

func TestGCSkew(t *testing.T) {
	// Window "GGGG" -> +1, "CCCC" -> -1.
	skews := GCSkew("GGGGCCCC", 4, 4)
	if len(skews) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(skews))
	}
	if skews[0] != 1 || skews[1] != -1 {
		t.Errorf("skews = %v, want [1 -1]", skews)
	}

	if got := GCSkew("AT", 4, 1); got != nil {
		t.Errorf("short sequence should yield nil, got %v", got)
	}
	if got := GCSkew("ATGC", 0, 1); got != nil {
		t.Errorf("zero window should yield nil, got %v", got)
	}

	// A window with no G or C contributes 0.
	skews = GCSkew("AATT", 4, 4)
	if len(skews) != 1 || skews[0] != 0 {
		t.Errorf("skews = %v, want [0]", skews)
	}
}

func TestCumulativeGCSkew(t *testing.T) {
	got := CumulativeGCSkew("GCAG")
	want := []float64{1, 0, 0, 1}
	if len(got) != len(want) {
		t.Fatalf("length %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCodonUsage(t *testing.T) {
	counts := CodonUsage("ATGATGTTT", 0)
	if counts["ATG"] != 2 || counts["TTT"] != 1 {
		t.Errorf("counts = %v", counts)
	}

	// Ambiguous codons are skipped entirely.
	counts = CodonUsage("ATGNNN", 0)
	if len(counts) != 1 || counts["ATG"] != 1 {
		t.Errorf("counts = %v, want only ATG", counts)
	}

	// Lowercase input normalizes to uppercase keys.
	counts = CodonUsage("atg", 0)
	if counts["ATG"] != 1 {
		t.Errorf("lowercase codon not normalized: %v", counts)
	}
}

func TestCodonVector(t *testing.T) {
	vec := CodonVector("ATGATGTTT", 0)
	if len(vec) != 64 {
		t.Fatalf("vector length %d, want 64", len(vec))
	}

	sum := 0.0
	for _, v := range vec {
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("frequencies sum to %v, want 1", sum)
	}

	// ATG at lexicographic index A=0,T=3,G=2 -> 0<<4|3<<2|2 = 14.
	if math.Abs(vec[14]-2.0/3.0) > 1e-9 {
		t.Errorf("ATG frequency = %v, want 2/3", vec[14])
	}

	zero := CodonVector("", 0)
	for i, v := range zero {
		if v != 0 {
			t.Fatalf("empty sequence vector[%d] = %v, want 0", i, v)
		}
	}
}

func TestEntropy(t *testing.T) {
	// Uniform over 4 symbols = 2 bits.
	if got := EntropyFromCounts([]float64{1, 1, 1, 1}); math.Abs(got-2) > 1e-9 {
		t.Errorf("uniform entropy = %v, want 2", got)
	}
	// Single symbol = 0 bits.
	if got := EntropyFromCounts([]float64{5, 0, 0}); got != 0 {
		t.Errorf("degenerate entropy = %v, want 0", got)
	}
	if got := EntropyFromCounts(nil); got != 0 {
		t.Errorf("empty counts entropy = %v, want 0", got)
	}

	if got := BaseEntropy("ACGT"); math.Abs(got-2) > 1e-9 {
		t.Errorf("BaseEntropy(ACGT) = %v, want 2", got)
	}
	if got := BaseEntropy("NNN"); got != 0 {
		t.Errorf("BaseEntropy(NNN) = %v, want 0", got)
	}
}

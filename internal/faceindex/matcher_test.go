package faceindex

import (
	"math"
	"testing"

	"github.com/google/uuid"
)

var (
	photoA = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	photoB = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	photoC = uuid.MustParse("33333333-3333-3333-3333-333333333333")
)

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 0},
		{"identical direction scaled", []float32{1, 0}, []float32{5, 0}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 2},
		{"empty", nil, nil, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineDistance(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineDistance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRankMatchesExactMatchWins(t *testing.T) {
	query := []float32{1, 0}
	candidates := []Entry{
		{PhotoID: photoB, Embedding: []float32{0, 1}}, // distance 1
		{PhotoID: photoA, Embedding: []float32{1, 0}}, // distance 0
	}

	matches := RankMatches(query, candidates, 0.5, 0)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].PhotoID != photoA {
		t.Errorf("best match = %s, want %s", matches[0].PhotoID, photoA)
	}
	if matches[0].Score != 0 {
		t.Errorf("best score = %v, want 0", matches[0].Score)
	}
}

func TestRankMatchesEmptyCandidates(t *testing.T) {
	matches := RankMatches([]float32{1, 0}, nil, 0.5, 0)
	if len(matches) != 0 {
		t.Errorf("got %d matches for empty index, want 0", len(matches))
	}
}

func TestRankMatchesAllAboveThreshold(t *testing.T) {
	query := []float32{1, 0}
	candidates := []Entry{
		{PhotoID: photoA, Embedding: []float32{0, 1}},  // distance 1
		{PhotoID: photoB, Embedding: []float32{-1, 0}}, // distance 2
	}

	matches := RankMatches(query, candidates, 0.5, 0)
	if len(matches) != 0 {
		t.Errorf("got %d matches, want 0: no candidate is under threshold", len(matches))
	}
}

func TestRankMatchesThresholdIsExclusive(t *testing.T) {
	query := []float32{1, 0}
	// Orthogonal vector scores exactly 1.0.
	candidates := []Entry{
		{PhotoID: photoA, Embedding: []float32{0, 1}},
	}

	if got := RankMatches(query, candidates, 1.0, 0); len(got) != 0 {
		t.Errorf("candidate scoring exactly the threshold must be excluded, got %d matches", len(got))
	}
	if got := RankMatches(query, candidates, 1.0+1e-9, 0); len(got) != 1 {
		t.Errorf("candidate scoring just under the threshold must be included, got %d matches", len(got))
	}
}

func TestRankMatchesOrderingAndTopK(t *testing.T) {
	query := []float32{1, 0}
	// Distances: photoC ~0.29, photoB ~0.29 (tie), photoA 1.0.
	tied := []float32{1, 1}
	candidates := []Entry{
		{PhotoID: photoA, Embedding: []float32{0, 1}},
		{PhotoID: photoC, Embedding: tied},
		{PhotoID: photoB, Embedding: tied},
	}

	matches := RankMatches(query, candidates, 1.5, 0)
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	// Tie between B and C resolves by photo ID ascending.
	if matches[0].PhotoID != photoB || matches[1].PhotoID != photoC || matches[2].PhotoID != photoA {
		t.Errorf("order = %s, %s, %s; want %s, %s, %s",
			matches[0].PhotoID, matches[1].PhotoID, matches[2].PhotoID, photoB, photoC, photoA)
	}

	topTwo := RankMatches(query, candidates, 1.5, 2)
	if len(topTwo) != 2 {
		t.Fatalf("topK=2 returned %d matches", len(topTwo))
	}
	if topTwo[0].PhotoID != photoB || topTwo[1].PhotoID != photoC {
		t.Errorf("topK order = %s, %s; want %s, %s", topTwo[0].PhotoID, topTwo[1].PhotoID, photoB, photoC)
	}
}

func TestRankMatchesIsDeterministic(t *testing.T) {
	query := []float32{1, 0}
	tied := []float32{1, 1}
	candidates := []Entry{
		{PhotoID: photoC, Embedding: tied},
		{PhotoID: photoA, Embedding: tied},
		{PhotoID: photoB, Embedding: tied},
	}

	first := RankMatches(query, candidates, 1.5, 0)
	for i := 0; i < 10; i++ {
		again := RankMatches(query, candidates, 1.5, 0)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d produced different ranking at position %d", i, j)
			}
		}
	}
}

func TestRankMatchesSkipsMismatchedDimensions(t *testing.T) {
	query := []float32{1, 0}
	candidates := []Entry{
		{PhotoID: photoA, Embedding: []float32{1, 0, 0}}, // stale dimension
		{PhotoID: photoB, Embedding: []float32{1, 0}},
	}

	matches := RankMatches(query, candidates, 0.5, 0)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].PhotoID != photoB {
		t.Errorf("match = %s, want %s", matches[0].PhotoID, photoB)
	}
}

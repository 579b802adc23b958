package faceindex

import (
	"log/slog"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/your-org/facegallery/internal/observability"
)

// Match is one ranked search result. Score is a cosine distance: lower
// means more similar.
type Match struct {
	PhotoID uuid.UUID `json:"photo_id"`
	Score   float64   `json:"score"`
}

// RankMatches scores every candidate against the query embedding and
// returns the matches below threshold, best first.
//
// The threshold is strictly exclusive: a candidate scoring exactly
// threshold is not a match. Ties are broken by photo ID ascending so the
// ranking is deterministic for a fixed index snapshot. Candidates whose
// embedding length differs from the query (stale entries from an older
// extractor model) are skipped and counted, never fatal. topK <= 0 means
// unlimited.
func RankMatches(query []float32, candidates []Entry, threshold float64, topK int) []Match {
	matches := make([]Match, 0, len(candidates))
	skipped := 0

	for _, cand := range candidates {
		if len(cand.Embedding) != len(query) {
			skipped++
			continue
		}
		score := CosineDistance(query, cand.Embedding)
		if score < threshold {
			matches = append(matches, Match{PhotoID: cand.PhotoID, Score: score})
		}
	}

	if skipped > 0 {
		observability.MismatchedCandidates.Add(float64(skipped))
		slog.Warn("skipped index entries with mismatched embedding dimension",
			"skipped", skipped, "query_dim", len(query))
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score < matches[j].Score
		}
		return matches[i].PhotoID.String() < matches[j].PhotoID.String()
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// CosineDistance computes 1 - cosine similarity between two vectors of
// equal length. Identical direction yields 0, opposite yields 2. Zero
// vectors and empty input score the maximum distance.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/facegallery/internal/config"
	"github.com/your-org/facegallery/internal/faceindex"
	"github.com/your-org/facegallery/internal/observability"
	"github.com/your-org/facegallery/internal/vision"
)

// ErrNoFaceInSelfie reports that the query image contains no detectable
// face. A client-correctable outcome, not a system error: the user
// should retake the photo.
var ErrNoFaceInSelfie = errors.New("no face detected in selfie")

// Searcher runs the synchronous selfie search: extract the query
// embedding, scan the event's index, rank the candidates.
type Searcher struct {
	extractor vision.Extractor
	index     faceindex.Store
	cfg       config.SearchConfig
}

func NewSearcher(extractor vision.Extractor, index faceindex.Store, cfg config.SearchConfig) *Searcher {
	return &Searcher{extractor: extractor, index: index, cfg: cfg}
}

// Search returns the event's photos ranked by similarity to the face in
// selfieData, best match first. An empty result is a valid outcome and
// distinct from every error: ErrNoFaceInSelfie means the selfie is
// unusable, faceindex.ErrUnavailable means the index store is broken,
// and any other error means extraction failed. The extractor call and
// the index scan each run under their configured timeout.
func (s *Searcher) Search(ctx context.Context, eventID uuid.UUID, selfieData []byte) ([]faceindex.Match, error) {
	extractCtx, cancel := context.WithTimeout(ctx, s.cfg.ExtractTimeout)
	defer cancel()

	start := time.Now()
	outcome, err := s.extractor.Extract(extractCtx, selfieData)
	observability.InferenceDuration.WithLabelValues("search_extract").Observe(time.Since(start).Seconds())
	if err != nil {
		observability.SearchRequests.WithLabelValues("extract_failed").Inc()
		return nil, fmt.Errorf("extract selfie: %w", err)
	}
	if err := extractCtx.Err(); err != nil {
		// The extractor overran its deadline; a late result is still a
		// timeout, not a success.
		observability.SearchRequests.WithLabelValues("timeout").Inc()
		return nil, fmt.Errorf("extract selfie: %w", err)
	}
	if outcome.NoFace {
		// Fail fast without touching the index.
		observability.SearchRequests.WithLabelValues("no_face").Inc()
		return nil, ErrNoFaceInSelfie
	}

	scanCtx, cancel := context.WithTimeout(ctx, s.cfg.ScanTimeout)
	defer cancel()

	entries, err := s.index.Scan(scanCtx, eventID)
	if err != nil {
		observability.SearchRequests.WithLabelValues("index_unavailable").Inc()
		return nil, fmt.Errorf("scan event index: %w", err)
	}
	if err := scanCtx.Err(); err != nil {
		observability.SearchRequests.WithLabelValues("timeout").Inc()
		return nil, fmt.Errorf("scan event index: %w", err)
	}

	matches := faceindex.RankMatches(outcome.Embedding, entries, s.cfg.Threshold, s.cfg.TopK)

	observability.SearchRequests.WithLabelValues("ok").Inc()
	observability.SearchMatches.Observe(float64(len(matches)))
	return matches, nil
}

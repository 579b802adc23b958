package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/facegallery/internal/config"
	"github.com/your-org/facegallery/internal/faceindex"
	"github.com/your-org/facegallery/internal/vision"
)

type stubIndex struct {
	entries   []faceindex.Entry
	scanErr   error
	scanDelay time.Duration
	scanCalls int
}

func (s *stubIndex) Upsert(ctx context.Context, eventID, photoID uuid.UUID, embedding []float32) error {
	return nil
}

func (s *stubIndex) Remove(ctx context.Context, eventID, photoID uuid.UUID) error {
	return nil
}

func (s *stubIndex) Scan(ctx context.Context, eventID uuid.UUID) ([]faceindex.Entry, error) {
	s.scanCalls++
	if s.scanDelay > 0 {
		time.Sleep(s.scanDelay)
	}
	return s.entries, s.scanErr
}

func (s *stubIndex) DropEvent(ctx context.Context, eventID uuid.UUID) error {
	return nil
}

func searchConfig() config.SearchConfig {
	return config.SearchConfig{
		Threshold:      0.4,
		ExtractTimeout: time.Second,
		ScanTimeout:    time.Second,
	}
}

func TestSearcherReturnsRankedMatches(t *testing.T) {
	index := &stubIndex{entries: []faceindex.Entry{
		{PhotoID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Embedding: []float32{0, 1}},
		{PhotoID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Embedding: []float32{1, 0}},
	}}
	extractor := &stubExtractor{outcome: vision.Outcome{Embedding: []float32{1, 0}}}
	s := NewSearcher(extractor, index, searchConfig())

	matches, err := s.Search(context.Background(), uuid.New(), []byte("selfie"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].PhotoID.String() != "11111111-1111-1111-1111-111111111111" {
		t.Errorf("match = %s, want the identical-direction candidate", matches[0].PhotoID)
	}
	if matches[0].Score != 0 {
		t.Errorf("score = %v, want 0", matches[0].Score)
	}
}

func TestSearcherEmptyIndexIsValidEmptyResult(t *testing.T) {
	index := &stubIndex{}
	extractor := &stubExtractor{outcome: vision.Outcome{Embedding: []float32{1, 0}}}
	s := NewSearcher(extractor, index, searchConfig())

	matches, err := s.Search(context.Background(), uuid.New(), []byte("selfie"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("got %d matches from an empty index, want 0", len(matches))
	}
}

func TestSearcherNoFaceInSelfie(t *testing.T) {
	index := &stubIndex{}
	extractor := &stubExtractor{outcome: vision.Outcome{NoFace: true}}
	s := NewSearcher(extractor, index, searchConfig())

	_, err := s.Search(context.Background(), uuid.New(), []byte("selfie"))
	if !errors.Is(err, ErrNoFaceInSelfie) {
		t.Fatalf("Search = %v, want ErrNoFaceInSelfie", err)
	}
	// The index must not be touched when the query is unusable.
	if index.scanCalls != 0 {
		t.Errorf("index scanned %d times for an unusable selfie", index.scanCalls)
	}
}

func TestSearcherExtractionFailure(t *testing.T) {
	index := &stubIndex{}
	extractor := &stubExtractor{err: errors.New("inference broke")}
	s := NewSearcher(extractor, index, searchConfig())

	_, err := s.Search(context.Background(), uuid.New(), []byte("selfie"))
	if err == nil {
		t.Fatal("want error when extraction fails")
	}
	if errors.Is(err, ErrNoFaceInSelfie) {
		t.Error("extraction failure must not be reported as a no-face outcome")
	}
	if index.scanCalls != 0 {
		t.Errorf("index scanned %d times after extraction failure", index.scanCalls)
	}
}

func TestSearcherExtractorOverrunIsTimeout(t *testing.T) {
	index := &stubIndex{entries: []faceindex.Entry{
		{PhotoID: uuid.New(), Embedding: []float32{1, 0}},
	}}
	// The extractor ignores its context and comes back late with a
	// perfectly good embedding.
	extractor := &stubExtractor{
		outcome: vision.Outcome{Embedding: []float32{1, 0}},
		delay:   100 * time.Millisecond,
	}
	cfg := searchConfig()
	cfg.ExtractTimeout = 5 * time.Millisecond
	s := NewSearcher(extractor, index, cfg)

	matches, err := s.Search(context.Background(), uuid.New(), []byte("selfie"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Search = %v, want context.DeadlineExceeded", err)
	}
	if matches != nil {
		t.Errorf("got matches %v from an overrun extraction", matches)
	}
	if index.scanCalls != 0 {
		t.Errorf("index scanned %d times after the extract deadline passed", index.scanCalls)
	}
}

func TestSearcherScanOverrunIsTimeout(t *testing.T) {
	index := &stubIndex{
		entries: []faceindex.Entry{
			{PhotoID: uuid.New(), Embedding: []float32{1, 0}},
		},
		scanDelay: 100 * time.Millisecond,
	}
	extractor := &stubExtractor{outcome: vision.Outcome{Embedding: []float32{1, 0}}}
	cfg := searchConfig()
	cfg.ScanTimeout = 5 * time.Millisecond
	s := NewSearcher(extractor, index, cfg)

	matches, err := s.Search(context.Background(), uuid.New(), []byte("selfie"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Search = %v, want context.DeadlineExceeded", err)
	}
	if matches != nil {
		t.Errorf("got matches %v from an overrun scan", matches)
	}
}

func TestSearcherIndexUnavailable(t *testing.T) {
	index := &stubIndex{scanErr: fmt.Errorf("%w: disk on fire", faceindex.ErrUnavailable)}
	extractor := &stubExtractor{outcome: vision.Outcome{Embedding: []float32{1, 0}}}
	s := NewSearcher(extractor, index, searchConfig())

	// A broken index is an error, never an empty result.
	matches, err := s.Search(context.Background(), uuid.New(), []byte("selfie"))
	if !errors.Is(err, faceindex.ErrUnavailable) {
		t.Fatalf("Search = %v, want ErrUnavailable", err)
	}
	if matches != nil {
		t.Errorf("got matches %v alongside an index failure", matches)
	}
}

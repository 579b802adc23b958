package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/facegallery/internal/faceindex"
	"github.com/your-org/facegallery/internal/models"
	"github.com/your-org/facegallery/internal/vision"
)

type stubExtractor struct {
	outcome vision.Outcome
	err     error
	delay   time.Duration
	calls   int
}

func (s *stubExtractor) Extract(ctx context.Context, imageData []byte) (vision.Outcome, error) {
	s.calls++
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.outcome, s.err
}

type fakeStatusStore struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]models.FaceStatus
}

func newFakeStatusStore() *fakeStatusStore {
	return &fakeStatusStore{statuses: make(map[uuid.UUID]models.FaceStatus)}
}

func (f *fakeStatusStore) UpdatePhotoStatus(ctx context.Context, photoID uuid.UUID, status models.FaceStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[photoID] = status
	return nil
}

func (f *fakeStatusStore) status(photoID uuid.UUID) models.FaceStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[photoID]
}

type fakeObjectGetter struct {
	data []byte
	err  error
}

func (f *fakeObjectGetter) GetObject(ctx context.Context, key string) ([]byte, error) {
	return f.data, f.err
}

func newTestIndex(t *testing.T) faceindex.Store {
	t.Helper()
	store, err := faceindex.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func testTask() models.IndexTask {
	return models.IndexTask{
		TaskID:    uuid.New(),
		EventID:   uuid.New(),
		PhotoID:   uuid.New(),
		ObjectKey: "events/x/photo.jpg",
	}
}

func TestIndexerProcessSuccess(t *testing.T) {
	index := newTestIndex(t)
	photos := newFakeStatusStore()
	extractor := &stubExtractor{outcome: vision.Outcome{Embedding: []float32{1, 0, 0}}}
	ix := NewIndexer(extractor, index, photos, &fakeObjectGetter{data: []byte("jpeg")}, nil, 3)

	task := testTask()
	if err := ix.Process(context.Background(), task, 1); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if got := photos.status(task.PhotoID); got != models.FaceStatusIndexed {
		t.Errorf("status = %s, want %s", got, models.FaceStatusIndexed)
	}

	entries, err := index.Scan(context.Background(), task.EventID)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 1 || entries[0].PhotoID != task.PhotoID {
		t.Errorf("index entries = %v, want one entry for %s", entries, task.PhotoID)
	}
}

func TestIndexerProcessIsIdempotent(t *testing.T) {
	index := newTestIndex(t)
	photos := newFakeStatusStore()
	extractor := &stubExtractor{outcome: vision.Outcome{Embedding: []float32{1, 0, 0}}}
	ix := NewIndexer(extractor, index, photos, &fakeObjectGetter{data: []byte("jpeg")}, nil, 3)

	task := testTask()
	// A redelivered task reprocesses the same photo.
	for i := 1; i <= 3; i++ {
		if err := ix.Process(context.Background(), task, 1); err != nil {
			t.Fatalf("Process run %d: %v", i, err)
		}
	}

	entries, err := index.Scan(context.Background(), task.EventID)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d index entries after redelivery, want 1", len(entries))
	}
}

func TestIndexerProcessNoFace(t *testing.T) {
	index := newTestIndex(t)
	photos := newFakeStatusStore()
	extractor := &stubExtractor{outcome: vision.Outcome{NoFace: true}}
	ix := NewIndexer(extractor, index, photos, &fakeObjectGetter{data: []byte("jpeg")}, nil, 3)

	task := testTask()
	// Seed a stale entry as if an older model had matched a face here.
	if err := index.Upsert(context.Background(), task.EventID, task.PhotoID, []float32{1, 0}); err != nil {
		t.Fatalf("seed index: %v", err)
	}

	if err := ix.Process(context.Background(), task, 1); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if got := photos.status(task.PhotoID); got != models.FaceStatusNoFace {
		t.Errorf("status = %s, want %s", got, models.FaceStatusNoFace)
	}

	entries, err := index.Scan(context.Background(), task.EventID)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("stale entry survived no-face reprocessing: %v", entries)
	}
}

func TestIndexerProcessRetriesThenParksAsFailed(t *testing.T) {
	index := newTestIndex(t)
	photos := newFakeStatusStore()
	extractor := &stubExtractor{err: errors.New("model crashed")}
	ix := NewIndexer(extractor, index, photos, &fakeObjectGetter{data: []byte("jpeg")}, nil, 3)

	task := testTask()

	// Attempts below the budget surface the error for redelivery.
	for attempt := 1; attempt < 3; attempt++ {
		if err := ix.Process(context.Background(), task, attempt); err == nil {
			t.Fatalf("attempt %d: want error for redelivery, got nil", attempt)
		}
		if got := photos.status(task.PhotoID); got == models.FaceStatusFailed {
			t.Fatalf("attempt %d parked the photo early", attempt)
		}
	}

	// The final attempt parks the photo and acks.
	if err := ix.Process(context.Background(), task, 3); err != nil {
		t.Fatalf("final attempt: %v", err)
	}
	if got := photos.status(task.PhotoID); got != models.FaceStatusFailed {
		t.Errorf("status = %s, want %s", got, models.FaceStatusFailed)
	}
}

func TestIndexerProcessObjectLoadFailure(t *testing.T) {
	index := newTestIndex(t)
	photos := newFakeStatusStore()
	extractor := &stubExtractor{outcome: vision.Outcome{Embedding: []float32{1, 0}}}
	ix := NewIndexer(extractor, index, photos, &fakeObjectGetter{err: errors.New("object gone")}, nil, 3)

	task := testTask()
	if err := ix.Process(context.Background(), task, 1); err == nil {
		t.Fatal("want error when the stored object cannot be loaded")
	}
	if extractor.calls != 0 {
		t.Errorf("extractor ran %d times despite missing object", extractor.calls)
	}
}

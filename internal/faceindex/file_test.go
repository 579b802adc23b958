package faceindex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func TestFileStoreUpsertAndScan(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()
	eventID := uuid.New()

	if err := store.Upsert(ctx, eventID, photoA, []float32{1, 2, 3}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Upsert(ctx, eventID, photoB, []float32{4, 5, 6}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	entries, err := store.Scan(ctx, eventID)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Scan returns entries ordered by photo ID.
	if entries[0].PhotoID != photoA || entries[1].PhotoID != photoB {
		t.Errorf("order = %s, %s; want %s, %s", entries[0].PhotoID, entries[1].PhotoID, photoA, photoB)
	}
}

func TestFileStoreUpsertOverwrites(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()
	eventID := uuid.New()

	if err := store.Upsert(ctx, eventID, photoA, []float32{1, 0}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Upsert(ctx, eventID, photoA, []float32{0, 1}); err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}

	entries, err := store.Scan(ctx, eventID)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries after overwrite, want 1", len(entries))
	}
	if entries[0].Embedding[0] != 0 || entries[0].Embedding[1] != 1 {
		t.Errorf("embedding = %v, want the newer value", entries[0].Embedding)
	}
}

func TestFileStoreRemove(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()
	eventID := uuid.New()

	if err := store.Upsert(ctx, eventID, photoA, []float32{1, 0}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Remove(ctx, eventID, photoA); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	entries, err := store.Scan(ctx, eventID)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries after remove, want 0", len(entries))
	}

	// Removing an absent entry is a no-op, not an error.
	if err := store.Remove(ctx, eventID, photoB); err != nil {
		t.Errorf("Remove absent entry: %v", err)
	}
	if err := store.Remove(ctx, uuid.New(), photoA); err != nil {
		t.Errorf("Remove from absent event: %v", err)
	}
}

func TestFileStoreScanMissingEventIsEmpty(t *testing.T) {
	store := newTestFileStore(t)

	entries, err := store.Scan(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries for unknown event, want 0", len(entries))
	}
}

func TestFileStoreDropEvent(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()
	eventID := uuid.New()
	otherID := uuid.New()

	if err := store.Upsert(ctx, eventID, photoA, []float32{1, 0}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Upsert(ctx, otherID, photoB, []float32{0, 1}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := store.DropEvent(ctx, eventID); err != nil {
		t.Fatalf("DropEvent: %v", err)
	}

	entries, err := store.Scan(ctx, eventID)
	if err != nil {
		t.Fatalf("Scan dropped event: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("dropped event still has %d entries", len(entries))
	}

	// Other events are untouched.
	entries, err = store.Scan(ctx, otherID)
	if err != nil {
		t.Fatalf("Scan other event: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("other event has %d entries, want 1", len(entries))
	}
}

func TestFileStoreConcurrentUpsertAndScan(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()
	eventID := uuid.New()

	// Two distinguishable full embeddings; a scan must only ever observe
	// one or the other, never a mix.
	fill := func(v float32) []float32 {
		emb := make([]float32, 64)
		for i := range emb {
			emb[i] = v
		}
		return emb
	}
	valueA := fill(1)
	valueB := fill(2)

	if err := store.Upsert(ctx, eventID, photoA, valueA); err != nil {
		t.Fatalf("seed Upsert: %v", err)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				value := valueA
				if (w+i)%2 == 1 {
					value = valueB
				}
				if err := store.Upsert(ctx, eventID, photoA, value); err != nil {
					t.Errorf("concurrent Upsert: %v", err)
					return
				}
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				entries, err := store.Scan(ctx, eventID)
				if err != nil {
					t.Errorf("concurrent Scan: %v", err)
					return
				}
				if len(entries) != 1 {
					t.Errorf("scan saw %d entries, want 1", len(entries))
					return
				}
				emb := entries[0].Embedding
				if len(emb) != len(valueA) {
					t.Errorf("scan saw embedding of length %d, want %d", len(emb), len(valueA))
					return
				}
				want := emb[0]
				for j, x := range emb {
					if x != want {
						t.Errorf("scan saw torn embedding: element %d is %v, element 0 is %v", j, x, want)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestFileStoreCorruptDocument(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()
	eventID := uuid.New()

	dir := filepath.Join(store.root, eventID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt document: %v", err)
	}

	_, err := store.Scan(ctx, eventID)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Scan of corrupt document = %v, want ErrUnavailable", err)
	}

	// Writes through the corrupt document also surface the failure
	// instead of silently clobbering it.
	err = store.Upsert(ctx, eventID, photoA, []float32{1, 0})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Upsert over corrupt document = %v, want ErrUnavailable", err)
	}
}

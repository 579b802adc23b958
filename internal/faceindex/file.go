package faceindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// FileStore keeps one JSON document per event under a root directory.
// Writes go through a temp file plus rename, so a concurrent Scan reads
// either the previous or the new document, never a torn one. Writes for
// one event are serialized with a per-event mutex; different events do
// not contend.
type FileStore struct {
	root string

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.RWMutex
}

type fileDocument struct {
	Entries map[string][]float32 `json:"entries"`
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create index root: %w", err)
	}
	return &FileStore{
		root:  root,
		locks: make(map[uuid.UUID]*sync.RWMutex),
	}, nil
}

func (s *FileStore) Upsert(ctx context.Context, eventID, photoID uuid.UUID, embedding []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.readDocument(eventID)
	if err != nil {
		return err
	}

	doc.Entries[photoID.String()] = embedding
	return s.writeDocument(eventID, doc)
}

func (s *FileStore) Remove(ctx context.Context, eventID, photoID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.readDocument(eventID)
	if err != nil {
		return err
	}

	if _, ok := doc.Entries[photoID.String()]; !ok {
		return nil
	}
	delete(doc.Entries, photoID.String())
	return s.writeDocument(eventID, doc)
}

func (s *FileStore) Scan(ctx context.Context, eventID uuid.UUID) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lock := s.eventLock(eventID)
	lock.RLock()
	defer lock.RUnlock()

	doc, err := s.readDocument(eventID)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(doc.Entries))
	for id, emb := range doc.Entries {
		photoID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("%w: bad photo id %q in %s", ErrUnavailable, id, s.documentPath(eventID))
		}
		entries = append(entries, Entry{PhotoID: photoID, Embedding: emb})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PhotoID.String() < entries[j].PhotoID.String()
	})
	return entries, nil
}

func (s *FileStore) DropEvent(ctx context.Context, eventID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(s.eventDir(eventID)); err != nil {
		return fmt.Errorf("drop event index: %w", err)
	}
	return nil
}

func (s *FileStore) eventLock(eventID uuid.UUID) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[eventID]
	if !ok {
		lock = &sync.RWMutex{}
		s.locks[eventID] = lock
	}
	return lock
}

func (s *FileStore) eventDir(eventID uuid.UUID) string {
	return filepath.Join(s.root, eventID.String())
}

func (s *FileStore) documentPath(eventID uuid.UUID) string {
	return filepath.Join(s.eventDir(eventID), "index.json")
}

// readDocument loads the event's document; a missing file is an empty
// index, an unreadable or corrupt one is ErrUnavailable.
func (s *FileStore) readDocument(eventID uuid.UUID) (*fileDocument, error) {
	data, err := os.ReadFile(s.documentPath(eventID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &fileDocument{Entries: make(map[string][]float32)}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	doc := &fileDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: corrupt document %s: %v", ErrUnavailable, s.documentPath(eventID), err)
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string][]float32)
	}
	return doc, nil
}

func (s *FileStore) writeDocument(eventID uuid.UUID, doc *fileDocument) error {
	dir := s.eventDir(eventID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create event index dir: %w", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal index document: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "index-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp document: %w", err)
	}

	if err := os.Rename(tmpName, s.documentPath(eventID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace index document: %w", err)
	}
	return nil
}

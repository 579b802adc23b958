// Package pipeline wires the extractor, the face index, and the photo
// records into the two flows of the system: background indexing of
// uploaded photos and synchronous selfie search.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/facegallery/internal/faceindex"
	"github.com/your-org/facegallery/internal/models"
	"github.com/your-org/facegallery/internal/observability"
	"github.com/your-org/facegallery/internal/vision"
)

// PhotoStatusStore records lifecycle transitions of photo records.
type PhotoStatusStore interface {
	UpdatePhotoStatus(ctx context.Context, photoID uuid.UUID, status models.FaceStatus) error
}

// ObjectGetter loads stored photo bytes by object key.
type ObjectGetter interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// ProgressPublisher pushes per-photo indexing outcomes to interested
// listeners. May be nil when no one is listening.
type ProgressPublisher interface {
	PublishProgress(ctx context.Context, eventID string, data interface{}) error
}

// Indexer processes one indexing task per uploaded photo. Tasks are
// delivered at least once; processing is idempotent, so a redelivered
// task for an already-indexed photo simply re-extracts and overwrites.
type Indexer struct {
	extractor   vision.Extractor
	index       faceindex.Store
	photos      PhotoStatusStore
	objects     ObjectGetter
	progress    ProgressPublisher
	maxAttempts int
}

func NewIndexer(
	extractor vision.Extractor,
	index faceindex.Store,
	photos PhotoStatusStore,
	objects ObjectGetter,
	progress ProgressPublisher,
	maxAttempts int,
) *Indexer {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Indexer{
		extractor:   extractor,
		index:       index,
		photos:      photos,
		objects:     objects,
		progress:    progress,
		maxAttempts: maxAttempts,
	}
}

// Process runs extraction for one photo and records the outcome.
// attempt is the 1-based delivery count of the task. A returned error
// means the task should be redelivered; on the final attempt the photo
// is parked as failed instead and nil is returned so the queue stops
// retrying.
func (ix *Indexer) Process(ctx context.Context, task models.IndexTask, attempt int) error {
	data, err := ix.objects.GetObject(ctx, task.ObjectKey)
	if err != nil {
		return ix.fail(ctx, task, attempt, fmt.Errorf("load photo: %w", err))
	}

	outcome, err := ix.extractor.Extract(ctx, data)
	if err != nil {
		return ix.fail(ctx, task, attempt, fmt.Errorf("extract: %w", err))
	}

	if outcome.NoFace {
		// The photo stays in the gallery but is excluded from search.
		// Remove any stale entry in case a reprocessed photo stopped
		// matching a face.
		if err := ix.index.Remove(ctx, task.EventID, task.PhotoID); err != nil {
			return ix.fail(ctx, task, attempt, err)
		}
		if err := ix.photos.UpdatePhotoStatus(ctx, task.PhotoID, models.FaceStatusNoFace); err != nil {
			return ix.fail(ctx, task, attempt, err)
		}
		observability.PhotosNoFace.WithLabelValues(task.EventID.String()).Inc()
		ix.notify(ctx, task, models.FaceStatusNoFace)
		return nil
	}

	if err := ix.index.Upsert(ctx, task.EventID, task.PhotoID, outcome.Embedding); err != nil {
		return ix.fail(ctx, task, attempt, fmt.Errorf("upsert embedding: %w", err))
	}
	if err := ix.photos.UpdatePhotoStatus(ctx, task.PhotoID, models.FaceStatusIndexed); err != nil {
		return ix.fail(ctx, task, attempt, err)
	}

	observability.PhotosIndexed.WithLabelValues(task.EventID.String()).Inc()
	ix.notify(ctx, task, models.FaceStatusIndexed)
	return nil
}

// fail decides between redelivery and parking the photo as failed. One
// photo's failure never blocks indexing of other photos.
func (ix *Indexer) fail(ctx context.Context, task models.IndexTask, attempt int, cause error) error {
	if attempt < ix.maxAttempts {
		return fmt.Errorf("index photo %s (attempt %d/%d): %w", task.PhotoID, attempt, ix.maxAttempts, cause)
	}

	slog.Error("photo indexing exhausted retries, parking as failed",
		"event_id", task.EventID, "photo_id", task.PhotoID,
		"attempts", attempt, "error", cause)

	if err := ix.photos.UpdatePhotoStatus(ctx, task.PhotoID, models.FaceStatusFailed); err != nil {
		slog.Error("mark photo failed", "photo_id", task.PhotoID, "error", err)
	}
	observability.PhotosFailed.WithLabelValues(task.EventID.String()).Inc()
	ix.notify(ctx, task, models.FaceStatusFailed)
	return nil
}

func (ix *Indexer) notify(ctx context.Context, task models.IndexTask, status models.FaceStatus) {
	if ix.progress == nil {
		return
	}
	ev := models.ProgressEvent{
		EventID:   task.EventID,
		PhotoID:   task.PhotoID,
		Status:    status,
		Timestamp: time.Now(),
	}
	if err := ix.progress.PublishProgress(ctx, task.EventID.String(), ev); err != nil {
		slog.Warn("publish progress event", "photo_id", task.PhotoID, "error", err)
	}
}

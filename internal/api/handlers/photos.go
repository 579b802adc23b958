package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/facegallery/internal/faceindex"
	"github.com/your-org/facegallery/internal/models"
	"github.com/your-org/facegallery/internal/queue"
	"github.com/your-org/facegallery/internal/storage"
	"github.com/your-org/facegallery/pkg/dto"
)

type PhotoHandler struct {
	db            *storage.PostgresStore
	minio         *storage.MinIOStore
	producer      *queue.Producer
	index         faceindex.Store
	maxUploadSize int64
}

func NewPhotoHandler(db *storage.PostgresStore, minio *storage.MinIOStore, producer *queue.Producer, index faceindex.Store, maxUploadSize int64) *PhotoHandler {
	return &PhotoHandler{
		db:            db,
		minio:         minio,
		producer:      producer,
		index:         index,
		maxUploadSize: maxUploadSize,
	}
}

// Upload accepts a multipart batch of photos for an event. Each file is
// stored and a pending photo record created; indexing runs in the
// background, so the response never waits on embedding extraction.
func (h *PhotoHandler) Upload(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	ev, err := h.db.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ev == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one image file required"})
		return
	}

	uploaded := make([]dto.PhotoResponse, 0, len(files))
	for _, header := range files {
		if header.Size > h.maxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("file %s exceeds the %d byte limit", header.Filename, h.maxUploadSize),
			})
			return
		}

		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "open uploaded file: " + err.Error()})
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read uploaded file failed"})
			return
		}

		photo := &models.Photo{
			EventID:  eventID,
			Filename: header.Filename,
		}
		photo.ObjectKey = storage.PhotoKey(eventID, uuid.New(), header.Filename)

		if err := h.minio.PutObject(c.Request.Context(), photo.ObjectKey, data, header.Header.Get("Content-Type")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store photo failed"})
			return
		}

		if err := h.db.CreatePhoto(c.Request.Context(), photo); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		task := models.IndexTask{
			TaskID:    uuid.New(),
			EventID:   eventID,
			PhotoID:   photo.ID,
			ObjectKey: photo.ObjectKey,
		}
		if err := h.producer.PublishIndexTask(c.Request.Context(), eventID.String(), task); err != nil {
			// Upload already succeeded; the photo stays pending and can
			// be picked up by a reindex run.
			slog.Error("publish index task", "photo_id", photo.ID, "error", err)
		}

		uploaded = append(uploaded, photoResponse(photo))
	}

	c.JSON(http.StatusAccepted, dto.UploadResponse{Uploaded: uploaded, Total: len(uploaded)})
}

func (h *PhotoHandler) List(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	photos, err := h.db.ListPhotos(c.Request.Context(), eventID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.PhotoResponse, 0, len(photos))
	for i := range photos {
		resp = append(resp, photoResponse(&photos[i]))
	}

	c.JSON(http.StatusOK, dto.PhotoListResponse{Photos: resp, Total: len(resp)})
}

// Image proxies the stored photo bytes from MinIO.
func (h *PhotoHandler) Image(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}
	photoID, err := uuid.Parse(c.Param("photoId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return
	}

	photo, err := h.db.GetPhoto(c.Request.Context(), eventID, photoID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if photo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "photo not found"})
		return
	}

	data, err := h.minio.GetObject(c.Request.Context(), photo.ObjectKey)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "photo data not found"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

// Delete removes a photo along with its stored object and index entry.
func (h *PhotoHandler) Delete(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}
	photoID, err := uuid.Parse(c.Param("photoId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return
	}

	photo, err := h.db.GetPhoto(c.Request.Context(), eventID, photoID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if photo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "photo not found"})
		return
	}

	if err := h.db.DeletePhoto(c.Request.Context(), eventID, photoID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.index.Remove(c.Request.Context(), eventID, photoID); err != nil {
		slog.Error("remove index entry", "photo_id", photoID, "error", err)
	}
	if err := h.minio.DeleteObject(c.Request.Context(), photo.ObjectKey); err != nil {
		slog.Error("delete photo object", "key", photo.ObjectKey, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func photoResponse(p *models.Photo) dto.PhotoResponse {
	return dto.PhotoResponse{
		ID:         p.ID,
		EventID:    p.EventID,
		Filename:   p.Filename,
		FaceStatus: string(p.FaceStatus),
		ImageURL:   imageURL(p.EventID, p.ID),
		CreatedAt:  p.CreatedAt.Format(time.RFC3339),
	}
}

func imageURL(eventID, photoID uuid.UUID) string {
	return "/v1/events/" + eventID.String() + "/photos/" + photoID.String() + "/image"
}

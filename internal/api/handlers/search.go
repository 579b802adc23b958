package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/facegallery/internal/faceindex"
	"github.com/your-org/facegallery/internal/pipeline"
	"github.com/your-org/facegallery/internal/storage"
	"github.com/your-org/facegallery/pkg/dto"
)

type SearchHandler struct {
	db            *storage.PostgresStore
	searcher      *pipeline.Searcher
	maxUploadSize int64
}

func NewSearchHandler(db *storage.PostgresStore, searcher *pipeline.Searcher, maxUploadSize int64) *SearchHandler {
	return &SearchHandler{db: db, searcher: searcher, maxUploadSize: maxUploadSize}
}

// Search finds the event's photos containing the face from the uploaded
// selfie. Outcomes map to distinct statuses: an empty result list is a
// valid 200; a selfie without a detectable face is a 400 the client can
// correct; extraction failures and a broken index are 500s; timeouts
// are 504s. A broken index is never reported as zero matches.
func (h *SearchHandler) Search(c *gin.Context) {
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

	if h.searcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search pipeline not initialized"})
		return
	}

	file, header, err := c.Request.FormFile("selfie")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "selfie file required"})
		return
	}
	defer file.Close()

	// Reject oversized files before any extraction work.
	if header.Size > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "selfie exceeds upload size limit"})
		return
	}

	selfieData, err := io.ReadAll(io.LimitReader(file, h.maxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read selfie failed"})
		return
	}
	if int64(len(selfieData)) > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "selfie exceeds upload size limit"})
		return
	}

	matches, err := h.searcher.Search(c.Request.Context(), eventID, selfieData)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNoFaceInSelfie):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "could not detect a face, please try a clearer selfie",
			})
		case errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "search timed out, try again"})
		case errors.Is(err, faceindex.ErrUnavailable):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "face index unavailable, try again later"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	results := make([]dto.SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, dto.SearchResult{
			PhotoID:  m.PhotoID,
			Score:    m.Score,
			ImageURL: imageURL(eventID, m.PhotoID),
		})
	}

	c.JSON(http.StatusOK, dto.SearchResponse{Results: results, Total: len(results)})
}

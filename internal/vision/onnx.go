package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/your-org/facegallery/internal/config"
	"github.com/your-org/facegallery/internal/observability"
)

// ONNXExtractor is the local-model Extractor backend: RetinaFace
// detection followed by ArcFace embedding, both via ONNX Runtime.
type ONNXExtractor struct {
	detector *Detector
	embedder *Embedder
}

// NewONNXExtractor loads both models from cfg.ModelsDir.
func NewONNXExtractor(cfg config.VisionConfig) (*ONNXExtractor, error) {
	detPath := filepath.Join(cfg.ModelsDir, "det_10g.onnx")
	embPath := filepath.Join(cfg.ModelsDir, "w600k_r50.onnx")

	slog.Info("loading detection model", "path", detPath)
	det, err := NewDetector(detPath, float32(cfg.DetectionThreshold))
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	slog.Info("loading embedding model", "path", embPath)
	emb, err := NewEmbedder(embPath)
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	return &ONNXExtractor{detector: det, embedder: emb}, nil
}

// Extract decodes the image, detects faces, and embeds the largest one.
// A photo without any detectable face yields Outcome{NoFace: true};
// undecodable input or a model failure yields an error.
func (x *ONNXExtractor) Extract(ctx context.Context, imageData []byte) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return Outcome{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	origW := bounds.Dx()
	origH := bounds.Dy()

	start := time.Now()
	detInput := preprocessForDetection(img, x.detector.inputW, x.detector.inputH)
	observability.InferenceDuration.WithLabelValues("preprocess").Observe(time.Since(start).Seconds())

	start = time.Now()
	detections, err := x.detector.Detect(detInput, origW, origH)
	if err != nil {
		return Outcome{}, fmt.Errorf("detect: %w", err)
	}
	observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())

	if len(detections) == 0 {
		return Outcome{NoFace: true}, nil
	}

	primary := largestDetection(detections)
	faceCrop := cropFace(img, primary.BBox)
	if faceCrop == nil {
		return Outcome{NoFace: true}, nil
	}

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	start = time.Now()
	embInput := preprocessForEmbedding(faceCrop, x.embedder.inputW, x.embedder.inputH)
	embedding, err := x.embedder.Embed(embInput)
	if err != nil {
		return Outcome{}, fmt.Errorf("embed: %w", err)
	}
	observability.InferenceDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	return Outcome{Embedding: embedding}, nil
}

// largestDetection picks the primary face of a photo. Group photos get
// their biggest face; confidence breaks area ties.
func largestDetection(detections []Detection) Detection {
	best := detections[0]
	for _, d := range detections[1:] {
		if d.Area() > best.Area() ||
			(d.Area() == best.Area() && d.Confidence > best.Confidence) {
			best = d
		}
	}
	return best
}

// Close releases all ONNX sessions.
func (x *ONNXExtractor) Close() {
	if x.detector != nil {
		x.detector.Close()
	}
	if x.embedder != nil {
		x.embedder.Close()
	}
}

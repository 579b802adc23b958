// Package vision produces face embeddings from raw image bytes.
package vision

import "context"

// Outcome is the result of running extraction on one image. Exactly one
// of the two cases holds: NoFace is true, or Embedding is the primary
// face's vector. Extraction failures (corrupt input, broken backend) are
// reported as errors, never as an Outcome — callers must keep "no face"
// and "extraction broke" apart for user-facing messaging.
type Outcome struct {
	NoFace    bool
	Embedding []float32
}

// Extractor turns image bytes into a face embedding. Implementations
// must be pure functions of the image content. When a photo contains
// several faces, the primary face is the largest detection.
type Extractor interface {
	Extract(ctx context.Context, imageData []byte) (Outcome, error)
}

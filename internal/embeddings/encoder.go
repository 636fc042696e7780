package embeddings

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/Benny93/docgraph-go/internal/logger"
)

// ErrEmptyEmbedding is returned by encoders that produced no vector.
var ErrEmptyEmbedding = errors.New("encoder returned an empty embedding")

// Encoder turns text into a dense vector.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float64, error)
}

// Embedder wraps an optional Encoder with the deterministic hash fallback.
// A nil encoder always uses the fallback.
type Embedder struct {
	encoder  Encoder
	dim      int
	fallback atomic.Bool
}

// NewEmbedder creates an embedder whose fallback vectors have length dim.
func NewEmbedder(encoder Encoder, dim int) *Embedder {
	return &Embedder{encoder: encoder, dim: dim}
}

// Dimension returns the fallback vector length.
func (e *Embedder) Dimension() int {
	return e.dim
}

// Embed returns the encoder's vector for text, or HashEmbedding(text, dim)
// when the encoder is missing or fails. Failures are logged, never returned.
func (e *Embedder) Embed(ctx context.Context, text string) []float64 {
	if e.encoder != nil {
		vec, err := e.encoder.Encode(ctx, text)
		if err == nil && len(vec) == 0 {
			err = ErrEmptyEmbedding
		}
		if err == nil {
			return vec
		}
		if !e.fallback.Swap(true) {
			logger.Debug("Sentence encoder failed, falling back to hash embeddings", "err", err)
		}
	}
	return HashEmbedding(text, e.dim)
}

// UsedFallback reports whether the encoder has failed at least once.
func (e *Embedder) UsedFallback() bool {
	return e.fallback.Load()
}

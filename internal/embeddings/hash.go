// Package embeddings produces the vectors attached to documents, sections
// and graph nodes.
//
// Vectors come from an optional sentence encoder. When no encoder is
// configured or it fails, a deterministic hash-seeded sinusoidal vector is
// used instead, so identical input text always yields an identical vector.
package embeddings

import (
	"math"
	"unicode/utf16"
)

const (
	// DocumentDimension is the length of fallback document and section vectors.
	DocumentDimension = 512

	// NodeDimension is the length of concept and entity vectors.
	NodeDimension = 64
)

// Hash is a 32-bit rolling multiply-add hash (h = h*31 + c) over the
// UTF-16 code units of text. Overflow wraps.
func Hash(text string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(text)) {
		h = h*31 + int32(c)
	}
	return h
}

// HashEmbedding returns a dim-length vector seeded by Hash(text).
// Element i is sin(seed + i).
func HashEmbedding(text string, dim int) []float64 {
	if dim <= 0 {
		return nil
	}
	seed := float64(Hash(text))
	vec := make([]float64, dim)
	for i := range vec {
		vec[i] = math.Sin(seed + float64(i))
	}
	return vec
}

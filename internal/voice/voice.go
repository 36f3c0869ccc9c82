// Package voice provides speaker-embedding math and artifact serialization.
package voice

import (
	"fmt"
	"math"
)

// Embedding is a fixed-dimension speaker representation.
type Embedding []float64

// MeanUnit averages the given embeddings element-wise and scales the
// result to unit L2 length. All inputs must share one dimension.
func MeanUnit(embs []Embedding) (Embedding, error) {
	if len(embs) == 0 {
		return nil, fmt.Errorf("voice: no embeddings to average")
	}
	dim := len(embs[0])
	if dim == 0 {
		return nil, fmt.Errorf("voice: zero-dimension embedding")
	}
	mean := make(Embedding, dim)
	for i, e := range embs {
		if len(e) != dim {
			return nil, fmt.Errorf("voice: embedding %d has dimension %d, want %d", i, len(e), dim)
		}
		for k, v := range e {
			mean[k] += v
		}
	}
	n := float64(len(embs))
	var sumSq float64
	for k := range mean {
		mean[k] /= n
		sumSq += mean[k] * mean[k]
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return nil, fmt.Errorf("voice: mean embedding has zero norm")
	}
	for k := range mean {
		mean[k] /= norm
	}
	return mean, nil
}

// Norm returns the L2 length of the embedding.
func (e Embedding) Norm() float64 {
	var sumSq float64
	for _, v := range e {
		sumSq += v * v
	}
	return math.Sqrt(sumSq)
}

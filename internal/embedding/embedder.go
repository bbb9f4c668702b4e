// Package embedding implements the Embedding Port (§4.4): a synchronous
// batch text->vector contract with two adapters, an HTTP JSON backend
// grounded on the teacher's internal/ai.GeminiClient resilience pattern,
// and a deterministic hash-seeded mock grounded on the TF-IDF embedder's
// determinism idiom in the rest of the pack (no network dependency, used
// to test the builder and pipeline).
package embedding

import (
	"context"
	"math"

	"georag/internal/errs"
)

// Embedder is the port every build and query path depends on. Embed
// preserves input order and always returns unit-L2-normalized vectors;
// downstream code (internal/vectorindex) assumes normalization and never
// re-normalizes.
type Embedder interface {
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
	Dimension(model string) int
}

func normalizeL2(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= norm
	}
}

func validateInput(texts []string) error {
	if len(texts) == 0 {
		return errs.New(errs.InvalidInput, "embed called with no texts").WithOp("embedding.Embed")
	}
	for _, t := range texts {
		if t == "" {
			return errs.New(errs.InvalidInput, "embed called with an empty text").WithOp("embedding.Embed")
		}
	}
	return nil
}

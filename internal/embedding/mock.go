package embedding

import (
	"context"
	"hash/fnv"
)

// MockEmbedder produces deterministic hash-seeded vectors with no network
// dependency, satisfying the Non-goals note that a mock adapter "MUST
// exist for tests of the build and pipeline" (§9). Determinism is
// grounded on the rest of the pack's TF-IDF embedder: same input, same
// vocabulary-independent output, every run, on every platform.
type MockEmbedder struct {
	dimension int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &MockEmbedder{dimension: dimension}
}

func (m *MockEmbedder) Dimension(model string) int { return m.dimension }

// Embed hashes each text into a seed and expands it into m.dimension
// pseudo-random components via a simple linear congruential generator,
// then L2-normalizes. Same text, same model dimension -> same vector,
// always, so builds and fingerprints are reproducible in tests.
func (m *MockEmbedder) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if err := validateInput(texts); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = m.vectorFor(text)
	}
	return vectors, nil
}

func (m *MockEmbedder) vectorFor(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	v := make([]float32, m.dimension)
	state := seed
	for i := range v {
		state = state*6364136223846793005 + 1442695040888963407
		// Map the top 24 bits to [0, 2); every component is non-negative.
		v[i] = float32(int64(state>>40)) / float32(1<<23)
	}
	normalizeL2(v)
	return v
}

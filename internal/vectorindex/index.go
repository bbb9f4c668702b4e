// Package vectorindex implements the in-memory cosine nearest-neighbor
// primitive over L2-normalized vectors (§4.5), grounded on the rest of
// the pack's brute-force memory vector store (dot product + argsort).
// Because every vector is already unit-normalized by the Embedding Port,
// cosine similarity reduces to a plain dot product.
package vectorindex

import "sort"

// Entry pairs a chunk identifier with its embedding vector.
type Entry struct {
	ChunkID string
	Vector  []float32
}

// Scored is one search result: a chunk id and its similarity score.
type Scored struct {
	ChunkID string
	Score   float64
}

// Index is a brute-force in-memory nearest-neighbor index. Exact search
// is acceptable for the documented workload (§4.5); there is no
// approximate-index fallback.
type Index struct {
	entries map[string][]float32
}

func New() *Index {
	return &Index{entries: make(map[string][]float32)}
}

// Upsert inserts or replaces the vector for chunkID.
func (idx *Index) Upsert(chunkID string, vector []float32) {
	idx.entries[chunkID] = vector
}

// Remove drops chunkID from the index.
func (idx *Index) Remove(chunkID string) {
	delete(idx.entries, chunkID)
}

// Len returns the number of vectors held.
func (idx *Index) Len() int { return len(idx.entries) }

// TopK returns the k entries with the highest cosine similarity to
// query. If candidateIDs is non-nil, scoring iterates only that set
// (§4.5 "if a candidate set is provided by the pipeline, scoring
// iterates only that set"); candidateIDs not present in the index are
// silently skipped.
func (idx *Index) TopK(query []float32, k int, candidateIDs []string) []Scored {
	if k <= 0 {
		return nil
	}

	ids := candidateIDs
	if ids == nil {
		ids = make([]string, 0, len(idx.entries))
		for id := range idx.entries {
			ids = append(ids, id)
		}
	}

	scored := make([]Scored, 0, len(ids))
	for _, id := range ids {
		v, ok := idx.entries[id]
		if !ok {
			continue
		}
		scored = append(scored, Scored{ChunkID: id, Score: dot(v, query)})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}

func dot(a []float32, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

package vectorindex

import "testing"

func TestTopKOrdersByScoreDescending(t *testing.T) {
	idx := New()
	idx.Upsert("a", []float32{1, 0, 0})
	idx.Upsert("b", []float32{0, 1, 0})
	idx.Upsert("c", []float32{0.7, 0.7, 0})

	results := idx.TopK([]float32{1, 0, 0}, 3, nil)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ChunkID != "a" {
		t.Fatalf("expected exact match 'a' to rank first, got %s", results[0].ChunkID)
	}
	if results[0].Score < results[1].Score || results[1].Score < results[2].Score {
		t.Fatalf("results not in descending score order: %v", results)
	}
}

func TestTopKRestrictsToCandidateSet(t *testing.T) {
	idx := New()
	idx.Upsert("a", []float32{1, 0})
	idx.Upsert("b", []float32{0, 1})
	idx.Upsert("c", []float32{1, 1})

	results := idx.TopK([]float32{1, 0}, 5, []string{"b"})
	if len(results) != 1 || results[0].ChunkID != "b" {
		t.Fatalf("expected only candidate 'b' scored, got %v", results)
	}
}

func TestTopKIgnoresUnknownCandidateIDs(t *testing.T) {
	idx := New()
	idx.Upsert("a", []float32{1, 0})

	results := idx.TopK([]float32{1, 0}, 5, []string{"a", "missing"})
	if len(results) != 1 {
		t.Fatalf("expected missing candidate to be skipped, got %d results", len(results))
	}
}

func TestRemove(t *testing.T) {
	idx := New()
	idx.Upsert("a", []float32{1, 0})
	idx.Remove("a")
	if idx.Len() != 0 {
		t.Fatalf("expected index to be empty after remove, len=%d", idx.Len())
	}
}

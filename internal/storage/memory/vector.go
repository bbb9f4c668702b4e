package memory

import (
	"context"

	"georag/internal/storage"
	"georag/internal/vectorindex"
	"georag/models"
)

type vectorStore Adapter

func (v *vectorStore) a() *Adapter { return (*Adapter)(v) }

func (v *vectorStore) UpsertEmbeddings(ctx context.Context, tx storage.Transaction, embeddings []*models.Embedding) error {
	a := v.a()
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, e := range embeddings {
		a.embeddings[embeddingKey(e.ChunkID, e.Model)] = e
	}
	return nil
}

// indexFor rebuilds the vector index for workspaceID+model from the
// embeddings map, restricted to chunks whose document's dataset belongs
// to workspaceID. The in-memory adapter favors simplicity over
// incremental maintenance: rebuilding from a workspace-scale embeddings
// map is cheap relative to the cosine scan TopK already performs.
func (a *Adapter) indexFor(workspaceID, model string) *vectorindex.Index {
	inWorkspace := make(map[string]bool)
	for _, c := range a.chunks {
		doc, ok := a.documents[c.DocumentID]
		if !ok {
			continue
		}
		ds, ok := a.datasets[doc.DatasetID]
		if !ok || ds.WorkspaceID != workspaceID {
			continue
		}
		inWorkspace[c.ID] = true
	}

	idx := vectorindex.New()
	for _, e := range a.embeddings {
		if e.Model != model || !inWorkspace[e.ChunkID] {
			continue
		}
		idx.Upsert(e.ChunkID, e.Vector)
	}
	return idx
}

func (v *vectorStore) TopK(ctx context.Context, workspaceID, model string, query []float32, k int, candidateChunkIDs []string) ([]storage.VectorMatch, error) {
	a := v.a()
	a.mu.RLock()
	idx := a.indexFor(workspaceID, model)
	a.mu.RUnlock()

	scored := idx.TopK(query, k, candidateChunkIDs)
	out := make([]storage.VectorMatch, len(scored))
	for i, s := range scored {
		out[i] = storage.VectorMatch{ChunkID: s.ChunkID, Score: s.Score}
	}
	return out, nil
}

func (v *vectorStore) PurgeByModel(ctx context.Context, tx storage.Transaction, workspaceID, model string) error {
	a := v.a()
	a.mu.Lock()
	defer a.mu.Unlock()

	inWorkspace := make(map[string]bool)
	for _, c := range a.chunks {
		doc, ok := a.documents[c.DocumentID]
		if !ok {
			continue
		}
		ds, ok := a.datasets[doc.DatasetID]
		if !ok || ds.WorkspaceID != workspaceID {
			continue
		}
		inWorkspace[c.ID] = true
	}

	for key, e := range a.embeddings {
		if e.Model == model && inWorkspace[e.ChunkID] {
			delete(a.embeddings, key)
		}
	}
	return nil
}

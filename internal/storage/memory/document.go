package memory

import (
	"context"

	"georag/internal/errs"
	"georag/internal/storage"
	"georag/models"
)

type documentStore Adapter

func (d *documentStore) a() *Adapter { return (*Adapter)(d) }

func (d *documentStore) CreateDocument(ctx context.Context, tx storage.Transaction, doc *models.Document) error {
	a := d.a()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.documents[doc.ID] = doc
	return nil
}

func (d *documentStore) GetDocument(ctx context.Context, documentID string) (*models.Document, error) {
	a := d.a()
	a.mu.RLock()
	defer a.mu.RUnlock()
	doc, ok := a.documents[documentID]
	if !ok {
		return nil, errs.New(errs.NotFound, "document not found").WithEntity(documentID)
	}
	return doc, nil
}

func (d *documentStore) ListDocumentsByDataset(ctx context.Context, datasetID string) ([]*models.Document, error) {
	a := d.a()
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*models.Document, 0)
	for _, doc := range a.documents {
		if doc.DatasetID == datasetID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (d *documentStore) UpsertChunks(ctx context.Context, tx storage.Transaction, chunks []*models.Chunk) error {
	a := d.a()
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range chunks {
		a.chunks[c.ID] = c
	}
	return nil
}

func (d *documentStore) ListChunksByDataset(ctx context.Context, datasetID string) ([]*models.Chunk, error) {
	a := d.a()
	a.mu.RLock()
	defer a.mu.RUnlock()

	docIDs := make(map[string]bool)
	for _, doc := range a.documents {
		if doc.DatasetID == datasetID {
			docIDs[doc.ID] = true
		}
	}

	out := make([]*models.Chunk, 0)
	for _, c := range a.chunks {
		if docIDs[c.DocumentID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (d *documentStore) GetChunk(ctx context.Context, chunkID string) (*models.Chunk, error) {
	a := d.a()
	a.mu.RLock()
	defer a.mu.RUnlock()
	c, ok := a.chunks[chunkID]
	if !ok {
		return nil, errs.New(errs.NotFound, "chunk not found").WithEntity(chunkID)
	}
	return c, nil
}

// ClearFeatureRefs implements the weak back-reference rule (§9): deleting
// a Feature nulls FeatureRef on every Chunk that pointed at it, it never
// cascades the deletion to the Chunk itself.
func (d *documentStore) ClearFeatureRefs(ctx context.Context, tx storage.Transaction, featureID string) error {
	a := d.a()
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.chunks {
		if c.FeatureRef != nil && *c.FeatureRef == featureID {
			c.FeatureRef = nil
		}
	}
	return nil
}

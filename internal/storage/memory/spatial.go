package memory

import (
	"context"

	"georag/internal/errs"
	"georag/internal/spatial"
	"georag/internal/storage"
	"georag/models"
)

type spatialStore Adapter

func (s *spatialStore) a() *Adapter { return (*Adapter)(s) }

func (s *spatialStore) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return newTx(), nil
}

func (s *spatialStore) CreateDataset(ctx context.Context, tx storage.Transaction, d *models.Dataset) error {
	a := s.a()
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.datasets[d.ID]; exists {
		return errs.New(errs.Conflict, "dataset already exists").WithEntity(d.ID)
	}
	a.datasets[d.ID] = d
	return nil
}

func (s *spatialStore) GetDataset(ctx context.Context, workspaceID, name string) (*models.Dataset, error) {
	a := s.a()
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, d := range a.datasets {
		if d.WorkspaceID == workspaceID && d.Name == name {
			return d, nil
		}
	}
	return nil, errs.New(errs.NotFound, "dataset not found").WithEntity(name)
}

func (s *spatialStore) ListDatasets(ctx context.Context, workspaceID string) ([]*models.Dataset, error) {
	a := s.a()
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*models.Dataset, 0)
	for _, d := range a.datasets {
		if d.WorkspaceID == workspaceID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *spatialStore) UpdateDatasetBbox(ctx context.Context, tx storage.Transaction, datasetID string, bbox models.Envelope) error {
	a := s.a()
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.datasets[datasetID]
	if !ok {
		return errs.New(errs.NotFound, "dataset not found").WithEntity(datasetID)
	}
	d.Bbox = bbox
	return nil
}

func (s *spatialStore) DeleteDataset(ctx context.Context, tx storage.Transaction, datasetID string) error {
	a := s.a()
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.datasets, datasetID)
	for id, f := range a.features {
		if f.DatasetID == datasetID {
			delete(a.features, id)
		}
	}
	for id, doc := range a.documents {
		if doc.DatasetID == datasetID {
			delete(a.documents, id)
			for cid, c := range a.chunks {
				if c.DocumentID == id {
					delete(a.chunks, cid)
				}
			}
		}
	}
	return nil
}

func (s *spatialStore) UpsertFeatures(ctx context.Context, tx storage.Transaction, datasetID string, features []*models.Feature) error {
	a := s.a()
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, f := range features {
		f.DatasetID = datasetID
		a.features[f.ID] = f
	}
	return nil
}

func (s *spatialStore) ListFeatures(ctx context.Context, datasetID string) ([]*models.Feature, error) {
	a := s.a()
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*models.Feature, 0)
	for _, f := range a.features {
		if f.DatasetID == datasetID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *spatialStore) GetFeatureByRef(ctx context.Context, datasetID, featureID string) (*models.Feature, error) {
	a := s.a()
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, f := range a.features {
		if f.DatasetID == datasetID && f.FeatureID == featureID {
			return f, nil
		}
	}
	return nil, errs.New(errs.NotFound, "feature not found").WithEntity(featureID)
}

func (s *spatialStore) QueryBBox(ctx context.Context, workspaceID string, bbox models.Envelope) ([]*models.Feature, error) {
	a := s.a()
	a.mu.RLock()
	defer a.mu.RUnlock()

	datasetIDs := make(map[string]bool)
	for _, d := range a.datasets {
		if d.WorkspaceID == workspaceID {
			datasetIDs[d.ID] = true
		}
	}

	env := spatial.Envelope{MinX: bbox.MinLng, MinY: bbox.MinLat, MaxX: bbox.MaxLng, MaxY: bbox.MaxLat}
	out := make([]*models.Feature, 0)
	for _, f := range a.features {
		if !datasetIDs[f.DatasetID] {
			continue
		}
		fe := spatial.EnvelopeOf(f.Geometry)
		if env.Intersects(fe) {
			out = append(out, f)
		}
	}
	return out, nil
}

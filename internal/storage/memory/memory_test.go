package memory

import (
	"context"
	"testing"

	"georag/internal/errs"
	"georag/models"
)

func TestDatasetLifecycle(t *testing.T) {
	a := New()
	ctx := context.Background()
	spatial := a.Spatial()

	tx, _ := spatial.BeginTx(ctx)
	d := &models.Dataset{ID: "d1", WorkspaceID: "w1", Name: "parks"}
	if err := spatial.CreateDataset(ctx, tx, d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := spatial.GetDataset(ctx, "w1", "parks")
	if err != nil || got.ID != "d1" {
		t.Fatalf("expected to find dataset d1, got %v err=%v", got, err)
	}

	if _, err := spatial.GetDataset(ctx, "w1", "missing"); errs.KindOf(err) != errs.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestQueryBBoxScopesToWorkspace(t *testing.T) {
	a := New()
	ctx := context.Background()
	spatial := a.Spatial()
	tx, _ := spatial.BeginTx(ctx)

	_ = spatial.CreateDataset(ctx, tx, &models.Dataset{ID: "d1", WorkspaceID: "w1", Name: "a"})
	_ = spatial.CreateDataset(ctx, tx, &models.Dataset{ID: "d2", WorkspaceID: "w2", Name: "b"})

	inBox := models.Feature{ID: "f1", DatasetID: "d1", FeatureID: "f1", Geometry: models.NewPoint(1, 1)}
	otherWorkspace := models.Feature{ID: "f2", DatasetID: "d2", FeatureID: "f2", Geometry: models.NewPoint(1, 1)}
	_ = spatial.UpsertFeatures(ctx, tx, "d1", []*models.Feature{&inBox})
	_ = spatial.UpsertFeatures(ctx, tx, "d2", []*models.Feature{&otherWorkspace})

	results, err := spatial.QueryBBox(ctx, "w1", models.Envelope{MinLng: 0, MinLat: 0, MaxLng: 2, MaxLat: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ID != "f1" {
		t.Fatalf("expected only f1 from workspace w1, got %v", results)
	}
}

func TestVectorStoreScopesToWorkspaceAndModel(t *testing.T) {
	a := New()
	ctx := context.Background()
	spatialStore := a.Spatial()
	docStore := a.Document()
	vecStore := a.Vector()

	tx, _ := spatialStore.BeginTx(ctx)
	_ = spatialStore.CreateDataset(ctx, tx, &models.Dataset{ID: "d1", WorkspaceID: "w1", Name: "docs"})
	_ = docStore.CreateDocument(ctx, tx, &models.Document{ID: "doc1", DatasetID: "d1", Name: "n"})
	_ = docStore.UpsertChunks(ctx, tx, []*models.Chunk{{ID: "c1", DocumentID: "doc1"}})

	_ = vecStore.UpsertEmbeddings(ctx, tx, []*models.Embedding{
		{ChunkID: "c1", Model: "mock-v1", Dimension: 2, Vector: []float32{1, 0}},
		{ChunkID: "c1", Model: "mock-v2", Dimension: 2, Vector: []float32{0, 1}},
	})

	results, err := vecStore.TopK(ctx, "w1", "mock-v1", []float32{1, 0}, 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != "c1" {
		t.Fatalf("expected c1 for model mock-v1, got %v", results)
	}

	results, err = vecStore.TopK(ctx, "w2", "mock-v1", []float32{1, 0}, 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for unrelated workspace, got %v", results)
	}
}

func TestClearFeatureRefsDoesNotCascade(t *testing.T) {
	a := New()
	ctx := context.Background()
	docStore := a.Document()

	ref := "feat-1"
	_ = docStore.CreateDocument(ctx, nil, &models.Document{ID: "doc1", DatasetID: "d1"})
	_ = docStore.UpsertChunks(ctx, nil, []*models.Chunk{{ID: "c1", DocumentID: "doc1", FeatureRef: &ref}})

	if err := docStore.ClearFeatureRefs(ctx, nil, "feat-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, err := docStore.GetChunk(ctx, "c1")
	if err != nil {
		t.Fatalf("chunk should still exist: %v", err)
	}
	if c.FeatureRef != nil {
		t.Fatalf("expected FeatureRef to be nulled, got %v", *c.FeatureRef)
	}
}

func TestSupersedeIndexBuild(t *testing.T) {
	a := New()
	ctx := context.Background()
	ws := a.Workspace()

	_ = ws.CreateIndexBuild(ctx, nil, &models.IndexBuild{ID: "b1", WorkspaceID: "w1", Current: true})
	_ = ws.CreateIndexBuild(ctx, nil, &models.IndexBuild{ID: "b2", WorkspaceID: "w1"})

	if err := ws.SupersedeIndexBuild(ctx, nil, "w1", "b2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	current, err := ws.CurrentIndexBuild(ctx, "w1")
	if err != nil || current.ID != "b2" {
		t.Fatalf("expected b2 to be current, got %v err=%v", current, err)
	}
}

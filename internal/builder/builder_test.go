package builder

import (
	"context"
	"testing"

	"georag/internal/config"
	"georag/internal/embedding"
	"georag/internal/errs"
	"georag/internal/storage/memory"
	"georag/models"
)

func newTestWorkspace(t *testing.T, store *memory.Adapter) *models.Workspace {
	t.Helper()
	ws := &models.Workspace{
		ID:               "w1",
		Name:             "parks",
		Crs:              models.WGS84(),
		DistanceUnit:     models.Meters,
		GeometryValidity: models.Strict,
	}
	if err := store.Workspace().CreateWorkspace(context.Background(), ws); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ws
}

func newTestDataset(t *testing.T, store *memory.Adapter, ws *models.Workspace, features []*models.Feature) *models.Dataset {
	t.Helper()
	ctx := context.Background()
	ds := &models.Dataset{
		ID:           "d1",
		WorkspaceID:  ws.ID,
		Name:         "parks",
		Format:       models.FormatGeoJSON,
		DeclaredCrs:  models.WGS84(),
		GeometryKind: models.KindPoint,
		FeatureCount: len(features),
	}
	tx, err := store.Spatial().BeginTx(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Spatial().CreateDataset(ctx, tx, ds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Spatial().UpsertFeatures(ctx, tx, ds.ID, features); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ds
}

func testConfig() *config.Config {
	return &config.Config{
		EmbedderModel:    "mock-v1",
		EmbedBatchSize:   64,
		ChunkWindowSize:  1000,
		ChunkOverlap:     200,
		PersistRepairs:   true,
	}
}

func TestBuildProducesChunksAndEmbeddingsForFeatures(t *testing.T) {
	store := memory.New()
	ws := newTestWorkspace(t, store)
	features := []*models.Feature{
		{ID: "f1", DatasetID: "d1", FeatureID: "park-b", Geometry: models.NewPoint(1, 1), Properties: map[string]any{"name": "B"}},
		{ID: "f2", DatasetID: "d1", FeatureID: "park-a", Geometry: models.NewPoint(2, 2), Properties: map[string]any{"name": "A"}},
	}
	newTestDataset(t, store, ws, features)

	b := New(store, embedding.NewMockEmbedder(32), testConfig())
	if err := b.Build(context.Background(), ws.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	build, err := store.Workspace().CurrentIndexBuild(context.Background(), ws.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if build.ChunkCount != 2 {
		t.Fatalf("expected 2 chunks (one per feature), got %d", build.ChunkCount)
	}
	if build.Fingerprint == "" {
		t.Fatal("expected a non-empty fingerprint")
	}

	chunks, err := store.Document().ListChunksByDataset(context.Background(), "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 persisted chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		matches, err := store.Vector().TopK(context.Background(), ws.ID, "mock-v1", []float32{1, 0}, 5, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		found := false
		for _, m := range matches {
			if m.ChunkID == c.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected chunk %s to have an embedding", c.ID)
		}
	}
}

func TestBuildRejectsConcurrentRun(t *testing.T) {
	store := memory.New()
	ws := newTestWorkspace(t, store)
	newTestDataset(t, store, ws, []*models.Feature{
		{ID: "f1", DatasetID: "d1", FeatureID: "park-a", Geometry: models.NewPoint(1, 1), Properties: map[string]any{"name": "A"}},
	})

	b := New(store, embedding.NewMockEmbedder(32), testConfig())
	if err := b.acquire(ws.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer b.release(ws.ID)

	err := b.Build(context.Background(), ws.ID, false)
	if errs.KindOf(err) != errs.Conflict {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestBuildSkipsWhenFingerprintUnchanged(t *testing.T) {
	store := memory.New()
	ws := newTestWorkspace(t, store)
	newTestDataset(t, store, ws, []*models.Feature{
		{ID: "f1", DatasetID: "d1", FeatureID: "park-a", Geometry: models.NewPoint(1, 1), Properties: map[string]any{"name": "A"}},
	})

	b := New(store, embedding.NewMockEmbedder(32), testConfig())
	if err := b.Build(context.Background(), ws.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, _ := store.Workspace().CurrentIndexBuild(context.Background(), ws.ID)

	if err := b.Build(context.Background(), ws.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := store.Workspace().CurrentIndexBuild(context.Background(), ws.ID)

	if first.ID != second.ID {
		t.Fatalf("expected the same current build when inputs are unchanged, got %s then %s", first.ID, second.ID)
	}
}

func TestPlanAndVerify(t *testing.T) {
	store := memory.New()
	ws := newTestWorkspace(t, store)
	newTestDataset(t, store, ws, []*models.Feature{
		{ID: "f1", DatasetID: "d1", FeatureID: "park-a", Geometry: models.NewPoint(1, 1), Properties: map[string]any{"name": "A"}},
	})

	b := New(store, embedding.NewMockEmbedder(32), testConfig())

	plan, err := b.Plan(context.Background(), ws.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.ChunkCount != 1 {
		t.Fatalf("expected a 1-chunk plan, got %d", plan.ChunkCount)
	}

	if err := b.Build(context.Background(), ws.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := b.Verify(context.Background(), ws.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Match {
		t.Fatalf("expected the recomputed fingerprint to match, got %+v", report)
	}
}

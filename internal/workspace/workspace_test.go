package workspace

import (
	"context"
	"sync"
	"testing"
	"time"

	"georag/internal/builder"
	"georag/internal/config"
	"georag/internal/embedding"
	"georag/internal/storage/memory"
	"georag/models"
)

func testConfig() *config.Config {
	return &config.Config{
		EmbedderModel:           "mock-v1",
		EmbedderDimension:       32,
		EmbedBatchSize:          64,
		ChunkWindowSize:         1000,
		ChunkOverlap:            200,
		PersistRepairs:          true,
		PipelineDeadlineSeconds: 5,
	}
}

func newCoordinator(t *testing.T) (*Coordinator, *models.Workspace) {
	t.Helper()
	store := memory.New()
	embedder := embedding.NewMockEmbedder(32)
	b := builder.New(store, embedder, testConfig())
	c := New(store, embedder, b, testConfig(), nil)

	ws := &models.Workspace{ID: "w1", Name: "parks", Crs: models.WGS84(), DistanceUnit: models.Meters, GeometryValidity: models.Strict}
	if err := store.Workspace().CreateWorkspace(context.Background(), ws); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c, ws
}

func TestStatusNotReadyBeforeIngestion(t *testing.T) {
	c, ws := newCoordinator(t)
	st, err := c.Status(context.Background(), ws.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Ready() {
		t.Fatalf("expected an empty workspace to be not ready, got %+v", st)
	}
}

func TestIngestThenBuildThenReady(t *testing.T) {
	c, ws := newCoordinator(t)
	ctx := context.Background()

	ds := &models.Dataset{Name: "parks", Format: models.FormatGeoJSON, DeclaredCrs: models.WGS84(), GeometryKind: models.KindPoint}
	features := []*models.Feature{
		{FeatureID: "park-a", Geometry: models.NewPoint(1, 1), Properties: map[string]any{"name": "A"}},
	}
	if err := c.IngestDataset(ctx, ws.ID, ds, features, nil); err != nil {
		t.Fatalf("unexpected error ingesting dataset: %v", err)
	}

	if err := c.Build(ctx, ws.ID, false); err != nil {
		t.Fatalf("unexpected error building: %v", err)
	}

	st, err := c.Status(ctx, ws.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !st.Ready() {
		t.Fatalf("expected workspace to be ready after ingest+build, got %+v", st)
	}

	res, err := c.Query(ctx, ws.ID, models.QueryPlan{Text: "parks"})
	if err != nil {
		t.Fatalf("unexpected error querying: %v", err)
	}
	if len(res.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(res.Results))
	}
}

func TestConcurrentIngestionOfDifferentDatasetsDoesNotBlock(t *testing.T) {
	c, ws := newCoordinator(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	for i, name := range []string{"a", "b"} {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			ds := &models.Dataset{Name: n, Format: models.FormatGeoJSON, DeclaredCrs: models.WGS84(), GeometryKind: models.KindPoint}
			features := []*models.Feature{{FeatureID: "f", Geometry: models.NewPoint(float64(i), float64(i)), Properties: map[string]any{}}}
			errCh <- c.IngestDataset(ctx, ws.ID, ds, features, nil)
		}(name)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent ingestion of distinct datasets deadlocked")
	}
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	st, err := c.Status(ctx, ws.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.DatasetCount != 2 {
		t.Fatalf("expected 2 datasets, got %d", st.DatasetCount)
	}
}

func TestForceRebuildAfterAnEarlierBuildSucceeds(t *testing.T) {
	c, ws := newCoordinator(t)
	ctx := context.Background()
	ds := &models.Dataset{Name: "parks", Format: models.FormatGeoJSON, DeclaredCrs: models.WGS84(), GeometryKind: models.KindPoint}
	features := []*models.Feature{{FeatureID: "a", Geometry: models.NewPoint(1, 1), Properties: map[string]any{}}}
	if err := c.IngestDataset(ctx, ws.ID, ds, features, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := c.Build(ctx, ws.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Build(ctx, ws.ID, true); err != nil {
		t.Fatalf("unexpected error on forced rebuild: %v", err)
	}
}

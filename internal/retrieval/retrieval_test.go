package retrieval

import (
	"context"
	"testing"

	"georag/internal/builder"
	"georag/internal/config"
	"georag/internal/embedding"
	"georag/internal/errs"
	"georag/internal/storage/memory"
	"georag/models"
)

func testConfig() *config.Config {
	return &config.Config{
		EmbedderModel:           "mock-v1",
		EmbedBatchSize:          64,
		ChunkWindowSize:         1000,
		ChunkOverlap:            200,
		PersistRepairs:          true,
		PipelineDeadlineSeconds: 5,
	}
}

func newBuiltWorkspace(t *testing.T, store *memory.Adapter, features []*models.Feature) *models.Workspace {
	t.Helper()
	ctx := context.Background()

	ws := &models.Workspace{
		ID:               "w1",
		Name:             "parks",
		Crs:              models.WGS84(),
		DistanceUnit:     models.Meters,
		GeometryValidity: models.Strict,
	}
	if err := store.Workspace().CreateWorkspace(ctx, ws); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

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

	b := builder.New(store, embedding.NewMockEmbedder(32), testConfig())
	if err := b.Build(ctx, ws.ID, false); err != nil {
		t.Fatalf("unexpected error building index: %v", err)
	}
	return ws
}

func twoFeatures() []*models.Feature {
	return []*models.Feature{
		{ID: "f1", DatasetID: "d1", FeatureID: "golden-gate", Geometry: models.NewPoint(-122.486, 37.769), Properties: map[string]any{"name": "Golden Gate Park"}},
		{ID: "f2", DatasetID: "d1", FeatureID: "hyde", Geometry: models.NewPoint(2.3522, 48.8566), Properties: map[string]any{"name": "Hyde Park"}},
	}
}

func TestQueryNoFiltersReturnsAllCandidatesUnscored(t *testing.T) {
	store := memory.New()
	ws := newBuiltWorkspace(t, store, twoFeatures())

	p := New(store, embedding.NewMockEmbedder(32), testConfig())
	res, err := p.Query(context.Background(), ws.ID, models.QueryPlan{Text: "parks"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res.Results))
	}
	for _, r := range res.Results {
		if r.Score != 1.0 {
			t.Fatalf("expected unscored results to have score 1.0, got %f", r.Score)
		}
	}
	if res.Explanation.SpatialCandidates != 2 {
		t.Fatalf("expected 2 spatial candidates, got %d", res.Explanation.SpatialCandidates)
	}
}

func TestQuerySpatialFilterNarrowsCandidates(t *testing.T) {
	store := memory.New()
	ws := newBuiltWorkspace(t, store, twoFeatures())

	p := New(store, embedding.NewMockEmbedder(32), testConfig())
	filter := &models.SpatialFilter{
		Predicate: models.BBox,
		Geometry:  models.NewPoint(-122.486, 37.769),
		Crs:       models.WGS84(),
	}
	res, err := p.Query(context.Background(), ws.ID, models.QueryPlan{Text: "parks", Spatial: filter})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Results) != 1 {
		t.Fatalf("expected 1 result narrowed to the Golden Gate feature, got %d", len(res.Results))
	}
	if res.Results[0].Source.FeatureID == nil || *res.Results[0].Source.FeatureID != "golden-gate" {
		t.Fatalf("expected the golden-gate feature, got %+v", res.Results[0].Source)
	}
}

func TestQueryTextFilterDropsNonMatching(t *testing.T) {
	store := memory.New()
	ws := newBuiltWorkspace(t, store, twoFeatures())

	p := New(store, embedding.NewMockEmbedder(32), testConfig())
	res, err := p.Query(context.Background(), ws.ID, models.QueryPlan{
		Text:  "parks",
		Lexical: &models.TextFilter{MustContain: []string{"Golden Gate"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Results) != 1 {
		t.Fatalf("expected 1 matching chunk, got %d", len(res.Results))
	}
	if res.Explanation.AfterTextFilter != 1 {
		t.Fatalf("expected AfterTextFilter=1, got %d", res.Explanation.AfterTextFilter)
	}
}

func TestQueryRerankRanksExactMatchFirst(t *testing.T) {
	store := memory.New()
	ws := newBuiltWorkspace(t, store, twoFeatures())

	embedder := embedding.NewMockEmbedder(32)
	p := New(store, embedder, testConfig())
	res, err := p.Query(context.Background(), ws.ID, models.QueryPlan{
		Text:   "name: Hyde Park",
		Rerank: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Results) == 0 {
		t.Fatal("expected at least one reranked result")
	}
	if res.Results[0].Source.FeatureID == nil || *res.Results[0].Source.FeatureID != "hyde" {
		t.Fatalf("expected the hyde feature to rank first for an exact-content query, got %+v", res.Results[0].Source)
	}
	if res.Results[0].Score <= res.Results[len(res.Results)-1].Score {
		t.Fatalf("expected descending score ordering, got %+v", res.Results)
	}
}

func TestQueryFailsIndexNotBuilt(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	ws := &models.Workspace{ID: "w1", Name: "empty", Crs: models.WGS84(), DistanceUnit: models.Meters, GeometryValidity: models.Strict}
	if err := store.Workspace().CreateWorkspace(ctx, ws); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := New(store, embedding.NewMockEmbedder(32), testConfig())
	_, err := p.Query(ctx, ws.ID, models.QueryPlan{Text: "anything"})
	if errs.KindOf(err) != errs.IndexNotBuilt {
		t.Fatalf("expected IndexNotBuilt, got %v", err)
	}
}

func TestQueryRerankFallsBackWhenEmbedderUnavailableAndAllowed(t *testing.T) {
	store := memory.New()
	ws := newBuiltWorkspace(t, store, twoFeatures())

	cfg := testConfig()
	cfg.AllowRerankFallback = true
	p := New(store, nil, cfg)

	res, err := p.Query(context.Background(), ws.ID, models.QueryPlan{Text: "parks", Rerank: true})
	if err != nil {
		t.Fatalf("expected fallback instead of error, got %v", err)
	}
	for _, r := range res.Results {
		if r.Score != 1.0 {
			t.Fatalf("expected fallback results to be unscored, got score %f", r.Score)
		}
	}
}

func TestQueryRerankFailsWhenEmbedderUnavailableAndFallbackDisallowed(t *testing.T) {
	store := memory.New()
	ws := newBuiltWorkspace(t, store, twoFeatures())

	p := New(store, nil, testConfig())
	_, err := p.Query(context.Background(), ws.ID, models.QueryPlan{Text: "parks", Rerank: true})
	if errs.KindOf(err) != errs.EmbedderUnavailable {
		t.Fatalf("expected EmbedderUnavailable, got %v", err)
	}
}

func TestQueryCrsErrorOnUnreprojectableFilter(t *testing.T) {
	store := memory.New()
	ws := newBuiltWorkspace(t, store, twoFeatures())

	p := New(store, embedding.NewMockEmbedder(32), testConfig())
	filter := &models.SpatialFilter{
		Predicate: models.BBox,
		Geometry:  models.NewPoint(500000, 200000),
		Crs:       models.Crs{EPSG: 9999},
	}
	_, err := p.Query(context.Background(), ws.ID, models.QueryPlan{Text: "parks", Spatial: filter})
	if errs.KindOf(err) != errs.CrsError {
		t.Fatalf("expected CrsError, got %v", err)
	}
}

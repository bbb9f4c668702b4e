package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"georag/internal/builder"
	"georag/internal/config"
	"georag/internal/embedding"
	"georag/internal/storage/memory"
	"georag/internal/workspace"
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
		CORSOrigins:             []string{"*"},
	}
}

func newTestServer(t *testing.T) (*Server, *models.Workspace) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	embedder := embedding.NewMockEmbedder(32)
	b := builder.New(store, embedder, testConfig())
	coord := workspace.New(store, embedder, b, testConfig(), nil)

	ws := &models.Workspace{ID: "w1", Name: "parks", Crs: models.WGS84(), DistanceUnit: models.Meters, GeometryValidity: models.Strict}
	if err := store.Workspace().CreateWorkspace(context.Background(), ws); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ds := &models.Dataset{Name: "parks", Format: models.FormatGeoJSON, DeclaredCrs: models.WGS84(), GeometryKind: models.KindPoint}
	features := []*models.Feature{
		{FeatureID: "park-a", Geometry: models.NewPoint(-122.486, 37.769), Properties: map[string]any{"name": "Golden Gate Park"}},
	}
	if err := coord.IngestDataset(context.Background(), ws.ID, ds, features, nil); err != nil {
		t.Fatalf("unexpected error ingesting: %v", err)
	}

	return New(coord, nil, testConfig()), ws
}

func doRequest(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStatusBeforeBuildReportsNotReady(t *testing.T) {
	s, ws := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/workspaces/"+ws.ID+"/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error decoding: %v", err)
	}
	if resp.Ready {
		t.Fatalf("expected not ready before a build, got %+v", resp)
	}
	if resp.DatasetCount != 1 {
		t.Fatalf("expected 1 dataset, got %d", resp.DatasetCount)
	}
}

func TestBuildThenStatusIsReady(t *testing.T) {
	s, ws := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/workspaces/"+ws.ID+"/build", buildRequest{})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(s, http.MethodGet, "/workspaces/"+ws.ID+"/status", nil)
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error decoding: %v", err)
	}
	if !resp.Ready {
		t.Fatalf("expected ready after build, got %+v", resp)
	}
	if resp.Hash == "" {
		t.Fatalf("expected a non-empty index hash, got %+v", resp)
	}
}

func TestQueryBeforeBuildFailsIndexNotBuilt(t *testing.T) {
	s, ws := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/query?workspace_id="+ws.ID, queryRequest{Text: "park"})
	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestQueryAfterBuildReturnsAFeatureCollection(t *testing.T) {
	s, ws := newTestServer(t)
	doRequest(s, http.MethodPost, "/workspaces/"+ws.ID+"/build", buildRequest{})

	rec := doRequest(s, http.MethodPost, "/query?workspace_id="+ws.ID, queryRequest{
		Text:    "Golden Gate Park",
		BBox:    []float64{-123, 37, -122, 38},
		Explain: true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp queryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error decoding: %v", err)
	}
	if resp.Type != "FeatureCollection" {
		t.Fatalf("expected a FeatureCollection, got %q", resp.Type)
	}
	if len(resp.Features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(resp.Features))
	}
	if resp.Explain == nil {
		t.Fatalf("expected an explain object when requested")
	}
}

func TestQueryMissingWorkspaceIDIsInvalidInput(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/query", queryRequest{Text: "park"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

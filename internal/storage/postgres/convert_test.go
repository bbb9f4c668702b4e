package postgres

import (
	"testing"

	"georag/models"
)

func TestFeatureRowRoundTrip(t *testing.T) {
	f := &models.Feature{
		ID:         "f1",
		DatasetID:  "d1",
		FeatureID:  "park-1",
		Geometry:   models.NewPoint(-122.4194, 37.7749),
		Properties: map[string]any{"name": "Golden Gate Park"},
	}

	row, err := featureToRow(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Geometry == "" {
		t.Fatal("expected a non-empty hex WKB geometry")
	}

	back, err := rowToFeature(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.Geometry.Kind != models.KindPoint {
		t.Fatalf("expected Point kind, got %v", back.Geometry.Kind)
	}
	if back.Geometry.Point[0] != f.Geometry.Point[0] || back.Geometry.Point[1] != f.Geometry.Point[1] {
		t.Fatalf("expected coordinates to round-trip, got %v", back.Geometry.Point)
	}
}

func TestEnvelopeToPolygonRoundTrip(t *testing.T) {
	env := models.Envelope{MinLng: 0, MinLat: 0, MaxLng: 10, MaxLat: 10}
	poly := envelopeToPolygon(env)
	back := polygonToEnvelope(poly)

	if back.MinLng != env.MinLng || back.MinLat != env.MinLat || back.MaxLng != env.MaxLng || back.MaxLat != env.MaxLat {
		t.Fatalf("expected envelope round-trip, got %v from %v", back, env)
	}
}

func TestDatasetRowRoundTrip(t *testing.T) {
	d := &models.Dataset{
		ID:           "d1",
		WorkspaceID:  "w1",
		Name:         "parks",
		Format:       models.FormatGeoJSON,
		DeclaredCrs:  models.Crs{EPSG: 4326},
		GeometryKind: models.KindPolygon,
		FeatureCount: 3,
		Bbox:         models.Envelope{MinLng: -1, MinLat: -1, MaxLng: 1, MaxLat: 1},
		Properties:   map[string]any{"source": "test"},
	}

	row, err := datasetToRow(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	back, err := rowToDataset(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.Name != d.Name || back.GeometryKind != d.GeometryKind || back.FeatureCount != d.FeatureCount {
		t.Fatalf("expected dataset fields to round-trip, got %+v", back)
	}
	if back.Bbox.MinLng != d.Bbox.MinLng || back.Bbox.MaxLat != d.Bbox.MaxLat {
		t.Fatalf("expected bbox to round-trip, got %v", back.Bbox)
	}
}

func TestJSONMapValueScanRoundTrip(t *testing.T) {
	m := JSONMap{"a": "b", "n": float64(1)}
	v, err := m.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var back JSONMap
	if err := back.Scan(v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back["a"] != "b" {
		t.Fatalf("expected key 'a' to round-trip, got %v", back)
	}
}

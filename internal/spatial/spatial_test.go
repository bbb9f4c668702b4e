package spatial

import (
	"context"
	"testing"

	"georag/internal/geo"
	"georag/models"
)

func sampleItems() []Item {
	return []Item{
		{DatasetName: "parks", FeatureID: "p1", Geometry: models.NewPoint(-122.42, 37.77)},  // San Francisco
		{DatasetName: "parks", FeatureID: "p2", Geometry: models.NewPoint(-122.27, 37.80)},   // Oakland-ish
		{DatasetName: "roads", FeatureID: "r1", Geometry: models.NewPoint(2.3522, 48.8566)},  // Paris
		{DatasetName: "roads", FeatureID: "r2", Geometry: models.NewPoint(-0.1278, 51.5074)}, // London
	}
}

func TestBuildAndLen(t *testing.T) {
	tree := Build(sampleItems())
	if tree.Len() != 4 {
		t.Fatalf("expected 4 items, got %d", tree.Len())
	}
}

func TestQueryBBoxPrunesFarGeometries(t *testing.T) {
	tree := Build(sampleItems())
	bound := Envelope{MinX: -123, MinY: 37, MaxX: -122, MaxY: 38}
	results := tree.QueryBBox(bound)
	if len(results) != 2 {
		t.Fatalf("expected 2 Bay Area results, got %d", len(results))
	}
	for _, r := range results {
		if r.DatasetName != "parks" {
			t.Fatalf("unexpected dataset in bbox result: %s", r.DatasetName)
		}
	}
}

func TestQueryBBoxTieBreakOrdering(t *testing.T) {
	tree := Build(sampleItems())
	all := tree.All()
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if prev.DatasetName > cur.DatasetName {
			t.Fatalf("dataset ordering violated: %s before %s", prev.DatasetName, cur.DatasetName)
		}
		if prev.DatasetName == cur.DatasetName && prev.FeatureID > cur.FeatureID {
			t.Fatalf("feature id ordering violated within dataset %s: %s before %s", prev.DatasetName, prev.FeatureID, cur.FeatureID)
		}
	}
}

func TestDWithinSoundness(t *testing.T) {
	items := sampleItems()
	tree := Build(items)

	paris := models.NewPoint(2.3522, 48.8566)
	radius := 400000.0 // 400km, should catch London (~344km) but not SF/Oakland

	filter := models.SpatialFilter{
		Predicate: models.DWithin,
		Geometry:  paris,
		Distance:  &models.Distance{Value: radius, Unit: models.Meters},
	}

	results, err := tree.QueryFilter(context.Background(), filter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, r := range results {
		d := geo.GeodesicDistance(r.Geometry, paris)
		if d > radius {
			t.Fatalf("returned %s/%s at %f meters, exceeding radius %f", r.DatasetName, r.FeatureID, d, radius)
		}
	}

	foundLondon := false
	foundSF := false
	for _, r := range results {
		if r.FeatureID == "r2" {
			foundLondon = true
		}
		if r.FeatureID == "p1" {
			foundSF = true
		}
	}
	if !foundLondon {
		t.Fatal("expected London within 400km of Paris")
	}
	if foundSF {
		t.Fatal("did not expect San Francisco within 400km of Paris")
	}
}

func TestQueryFilterRespectsCancellation(t *testing.T) {
	tree := Build(sampleItems())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tree.QueryFilter(ctx, models.SpatialFilter{Predicate: models.BBox})
	if err == nil {
		t.Fatal("expected cancellation to surface an error")
	}
}

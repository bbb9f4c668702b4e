package geo

import (
	"math"
	"testing"

	"georag/models"
)

func square() models.Geometry {
	return models.NewPolygon([]models.Ring{{
		{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0},
	}})
}

func TestValidatePointFinite(t *testing.T) {
	if !Validate(models.NewPoint(115.0, -8.5)).Valid {
		t.Fatal("expected a finite point to validate")
	}
	if Validate(models.NewPoint(math.NaN(), 0)).Valid {
		t.Fatal("expected a NaN point to fail validation")
	}
}

func TestValidatePolygonTooFewPoints(t *testing.T) {
	g := models.NewPolygon([]models.Ring{{{0, 0}, {1, 0}}})
	if Validate(g).Valid {
		t.Fatal("expected a 2-point ring to fail validation")
	}
}

func TestRepairClosesOpenRing(t *testing.T) {
	open := models.NewPolygon([]models.Ring{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}})
	repaired := Repair(open)
	if !Validate(repaired).Valid {
		t.Fatalf("expected repaired polygon to validate, issues=%v", Validate(repaired).Issues)
	}
}

func TestRepairIdempotent(t *testing.T) {
	open := models.NewPolygon([]models.Ring{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}})
	once := Repair(open)
	twice := Repair(once)
	if !geometryEqual(once, twice) {
		t.Fatalf("repair is not idempotent: %v != %v", once, twice)
	}
}

func geometryEqual(a, b models.Geometry) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case models.KindPolygon:
		if len(a.Polygon) != len(b.Polygon) {
			return false
		}
		for i := range a.Polygon {
			if len(a.Polygon[i]) != len(b.Polygon[i]) {
				return false
			}
			for j := range a.Polygon[i] {
				if a.Polygon[i][j] != b.Polygon[i][j] {
					return false
				}
			}
		}
		return true
	default:
		return false
	}
}

func TestValidateRejectsSelfIntersectingPolygon(t *testing.T) {
	bowtie := models.NewPolygon([]models.Ring{{
		{0, 0}, {10, 10}, {10, 0}, {0, 10}, {0, 0},
	}})
	if Validate(bowtie).Valid {
		t.Fatal("expected a self-intersecting (bowtie) polygon to fail Strict validation")
	}
}

func TestRepairSplitsSelfIntersectingPolygonIntoMultiPolygon(t *testing.T) {
	bowtie := models.NewPolygon([]models.Ring{{
		{0, 0}, {10, 10}, {10, 0}, {0, 10}, {0, 0},
	}})
	repaired := Repair(bowtie)
	if repaired.Kind != models.KindMultiPolygon {
		t.Fatalf("expected splitting a bowtie to produce a MultiPolygon, got %v", repaired.Kind)
	}
	if len(repaired.MultiPolygon) != 2 {
		t.Fatalf("expected the bowtie to split into 2 polygons, got %d", len(repaired.MultiPolygon))
	}
	if !Validate(repaired).Valid {
		t.Fatalf("expected the split result to validate, issues=%v", Validate(repaired).Issues)
	}
}

func TestRepairNormalizesRingWinding(t *testing.T) {
	// Exterior wound clockwise, hole wound counter-clockwise: both backwards.
	backwards := models.Geometry{
		Kind: models.KindPolygon,
		Polygon: []models.Ring{
			{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}},
			{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
		},
	}
	repaired := Repair(backwards)
	if !ringIsCCW(repaired.Polygon[0]) {
		t.Fatal("expected the exterior ring to be wound counter-clockwise after repair")
	}
	if ringIsCCW(repaired.Polygon[1]) {
		t.Fatal("expected the hole ring to be wound clockwise after repair")
	}
}

func TestRepairDropsEmptySubGeometries(t *testing.T) {
	g := models.Geometry{
		Kind: models.KindMultiLineString,
		MultiLineString: []models.Ring{
			{{0, 0}, {1, 1}},
			{},
			{{2, 2}},
		},
	}
	repaired := Repair(g)
	if len(repaired.MultiLineString) != 1 {
		t.Fatalf("expected empty/degenerate linestrings to be dropped, got %d", len(repaired.MultiLineString))
	}
}

func TestReprojectRoundTrip(t *testing.T) {
	orig := models.NewPoint(12.4924, 41.8902) // Rome, a temperate latitude
	wgs84 := models.WGS84()
	webMerc := models.WebMercator()

	projected, err := Reproject(orig, wgs84, webMerc)
	if err != nil {
		t.Fatalf("reproject to 3857 failed: %v", err)
	}
	back, err := Reproject(projected, webMerc, wgs84)
	if err != nil {
		t.Fatalf("reproject back to 4326 failed: %v", err)
	}

	if math.Abs(back.Point[0]-orig.Point[0]) > 1e-7 || math.Abs(back.Point[1]-orig.Point[1]) > 1e-7 {
		t.Fatalf("round trip drifted: got %v want %v", back.Point, orig.Point)
	}
}

func TestReprojectUnsupportedPair(t *testing.T) {
	orig := models.NewPoint(0, 0)
	_, err := Reproject(orig, models.Crs{EPSG: 4326}, models.Crs{EPSG: 2154})
	if err == nil {
		t.Fatal("expected an error for an unsupported CRS pair")
	}
}

func TestPredicateClosureWithinImpliesIntersects(t *testing.T) {
	outer := square()
	inner := models.NewPoint(5, 5)

	filterWithin := models.SpatialFilter{Predicate: models.Within, Geometry: outer}
	if !Evaluate(inner, filterWithin) {
		t.Fatal("expected point inside square to be within")
	}

	filterIntersects := models.SpatialFilter{Predicate: models.Intersects, Geometry: outer}
	if !Evaluate(inner, filterIntersects) {
		t.Fatal("within(A,B) must imply intersects(A,B)")
	}
}

func TestPredicateContainsIsReverseOfWithin(t *testing.T) {
	outer := square()
	inner := models.NewPoint(5, 5)

	within := Evaluate(inner, models.SpatialFilter{Predicate: models.Within, Geometry: outer})
	contains := Evaluate(outer, models.SpatialFilter{Predicate: models.Contains, Geometry: inner})

	if within != contains {
		t.Fatalf("within(A,B) should equal contains(B,A): within=%v contains=%v", within, contains)
	}
}

func TestBBoxPredicateEnvelopeOnly(t *testing.T) {
	// A polygon with a hole: bbox predicate considers the envelope only,
	// so a point inside the hole but inside the outer envelope still
	// matches (§9 Open Question a, resolved "yes, envelope-only").
	withHole := models.Geometry{
		Kind: models.KindPolygon,
		Polygon: []models.Ring{
			{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
			{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
		},
	}
	pointInHole := models.NewPoint(5, 5)

	filter := models.SpatialFilter{Predicate: models.BBox, Geometry: withHole}
	if !Evaluate(pointInHole, filter) {
		t.Fatal("bbox predicate should match points in the envelope even inside a hole")
	}
}

func TestVincentyDistanceKnownPair(t *testing.T) {
	// Paris to London, roughly 344 km.
	paris := models.Position{2.3522, 48.8566}
	london := models.Position{-0.1278, 51.5074}

	d := VincentyDistance(paris, london)
	if d < 330000 || d > 360000 {
		t.Fatalf("expected Paris-London distance near 344km, got %f meters", d)
	}
}

func TestVincentyDistanceCoincident(t *testing.T) {
	p := models.Position{10, 10}
	if d := VincentyDistance(p, p); d != 0 {
		t.Fatalf("expected coincident points to be 0 apart, got %f", d)
	}
}

func TestGeodesicDistancePolygonIntersecting(t *testing.T) {
	poly := square()
	inside := models.NewPoint(5, 5)
	if d := GeodesicDistance(inside, poly); d != 0 {
		t.Fatalf("expected 0 distance for a point inside the polygon, got %f", d)
	}
}

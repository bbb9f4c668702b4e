package geo

import (
	"georag/models"
)

// Evaluate checks whether g satisfies filter, grounded on the Rust
// original's evaluate_spatial_filter dispatch (spatial.rs). DWithin is
// handled by the spatial index directly (it needs geodesic distance, not
// a pure predicate test), so Evaluate only covers the four boolean
// predicates.
func Evaluate(g models.Geometry, filter models.SpatialFilter) bool {
	switch filter.Predicate {
	case models.Within:
		return within(g, filter.Geometry)
	case models.Intersects:
		return intersects(g, filter.Geometry)
	case models.Contains:
		return contains(g, filter.Geometry)
	case models.BBox:
		return bboxIntersects(g, filter.Geometry)
	default:
		return false
	}
}

func within(g, filterGeom models.Geometry) bool {
	return contains(filterGeom, g)
}

// intersects reports whether any part of a touches any part of b. The
// pack carries no Go geometry-predicate library (see DESIGN.md), so this
// is hand-rolled: vertex-in-polygon containment plus segment-segment
// crossing, which is sufficient for the polygon/line/point combinations
// §4 geometries produce.
func intersects(a, b models.Geometry) bool {
	for _, seg := range segments(a) {
		for _, other := range segments(b) {
			if segmentsIntersect(seg[0], seg[1], other[0], other[1]) {
				return true
			}
		}
	}
	for _, p := range vertices(a) {
		if containsPoint(b, p) {
			return true
		}
	}
	for _, p := range vertices(b) {
		if containsPoint(a, p) {
			return true
		}
	}
	return false
}

func contains(outer, inner models.Geometry) bool {
	if !isAreal(outer) {
		// A non-areal container only "contains" a geometry coincident
		// with it.
		for _, p := range vertices(inner) {
			if !containsPoint(outer, p) {
				return false
			}
		}
		return len(vertices(inner)) > 0
	}
	for _, p := range vertices(inner) {
		if !containsPoint(outer, p) {
			return false
		}
	}
	return true
}

func isAreal(g models.Geometry) bool {
	return g.Kind == models.KindPolygon || g.Kind == models.KindMultiPolygon
}

// containsPoint reports whether p lies on or inside g.
func containsPoint(g models.Geometry, p models.Position) bool {
	switch g.Kind {
	case models.KindPoint:
		return g.Point == p
	case models.KindMultiPoint:
		for _, q := range g.MultiPoint {
			if q == p {
				return true
			}
		}
		return false
	case models.KindLineString:
		return pointOnRing(p, g.LineString)
	case models.KindMultiLineString:
		for _, ls := range g.MultiLineString {
			if pointOnRing(p, ls) {
				return true
			}
		}
		return false
	case models.KindPolygon:
		return pointInPolygon(p, g.Polygon)
	case models.KindMultiPolygon:
		for _, poly := range g.MultiPolygon {
			if pointInPolygon(p, poly) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func pointInPolygon(p models.Position, rings []models.Ring) bool {
	if len(rings) == 0 || !pointInRing(p, rings[0]) {
		return pointOnRing(p, ringOrEmpty(rings, 0))
	}
	for _, hole := range rings[1:] {
		if pointInRing(p, hole) {
			return false
		}
	}
	return true
}

func ringOrEmpty(rings []models.Ring, i int) models.Ring {
	if i >= len(rings) {
		return nil
	}
	return rings[i]
}

func pointOnRing(p models.Position, r models.Ring) bool {
	for i := 0; i+1 < len(r); i++ {
		if pointOnSegment(p, r[i], r[i+1]) {
			return true
		}
	}
	return false
}

func pointOnSegment(p, a, b models.Position) bool {
	const eps = 1e-12
	cross := (p[0]-a[0])*(b[1]-a[1]) - (p[1]-a[1])*(b[0]-a[0])
	if cross*cross > eps {
		return false
	}
	minX, maxX := min(a[0], b[0]), max(a[0], b[0])
	minY, maxY := min(a[1], b[1]), max(a[1], b[1])
	return p[0] >= minX-eps && p[0] <= maxX+eps && p[1] >= minY-eps && p[1] <= maxY+eps
}

func segmentsIntersect(p1, p2, p3, p4 models.Position) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if d1 == 0 && onSegmentBounds(p3, p4, p1) {
		return true
	}
	if d2 == 0 && onSegmentBounds(p3, p4, p2) {
		return true
	}
	if d3 == 0 && onSegmentBounds(p1, p2, p3) {
		return true
	}
	if d4 == 0 && onSegmentBounds(p1, p2, p4) {
		return true
	}
	return false
}

func cross(a, b, c models.Position) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegmentBounds(a, b, p models.Position) bool {
	return min(a[0], b[0]) <= p[0] && p[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= p[1] && p[1] <= max(a[1], b[1])
}

// segments decomposes g into its constituent line segments (pairs of
// adjacent vertices), used by the hand-rolled intersects test.
func segments(g models.Geometry) [][2]models.Position {
	var out [][2]models.Position
	addRing := func(r models.Ring) {
		for i := 0; i+1 < len(r); i++ {
			out = append(out, [2]models.Position{r[i], r[i+1]})
		}
	}
	switch g.Kind {
	case models.KindLineString:
		addRing(g.LineString)
	case models.KindMultiLineString:
		for _, ls := range g.MultiLineString {
			addRing(ls)
		}
	case models.KindPolygon:
		for _, r := range g.Polygon {
			addRing(r)
		}
	case models.KindMultiPolygon:
		for _, poly := range g.MultiPolygon {
			for _, r := range poly {
				addRing(r)
			}
		}
	}
	return out
}

// bboxIntersects checks bounding-box-to-bounding-box overlap. Per §9's
// resolved Open Question (a), bbox semantics consider envelopes only --
// a polygon's holes are not subtracted from its bounding box.
func bboxIntersects(g, filterGeom models.Geometry) bool {
	b1 := Bound(g)
	b2 := Bound(filterGeom)
	return b1.Min[0] <= b2.Max[0] && b1.Max[0] >= b2.Min[0] &&
		b1.Min[1] <= b2.Max[1] && b1.Max[1] >= b2.Min[1]
}

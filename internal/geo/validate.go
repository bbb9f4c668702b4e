package geo

import (
	"fmt"
	"math"

	"georag/internal/errs"
	"georag/models"
)

// ValidationIssue records one defect found in a geometry, grounded on the
// Rust original's ValidationError (location + reason).
type ValidationIssue struct {
	Location string
	Reason   string
}

// ValidationResult is the outcome of Validate.
type ValidationResult struct {
	Valid  bool
	Issues []ValidationIssue
}

func (r *ValidationResult) add(location, reason string) {
	r.Valid = false
	r.Issues = append(r.Issues, ValidationIssue{Location: location, Reason: reason})
}

func isFinitePos(p models.Position) bool {
	return !math.IsNaN(p[0]) && !math.IsInf(p[0], 0) && !math.IsNaN(p[1]) && !math.IsInf(p[1], 0)
}

func ringClosed(r models.Ring) bool {
	if len(r) == 0 {
		return true
	}
	return r[0] == r[len(r)-1]
}

// Validate checks a geometry against §3's invariants: finite coordinates,
// closed polygon rings, minimum vertex counts, and no self-intersecting
// rings (rejected regardless of mode -- only Lenient repair is allowed to
// fix one). It never mutates g.
func Validate(g models.Geometry) ValidationResult {
	result := ValidationResult{Valid: true}
	validateInto(g, "", &result)
	return result
}

func validateInto(g models.Geometry, prefix string, result *ValidationResult) {
	loc := func(suffix string) string {
		if prefix == "" {
			return suffix
		}
		return prefix + "." + suffix
	}

	switch g.Kind {
	case models.KindPoint:
		if !isFinitePos(g.Point) {
			result.add(loc("Point"), "coordinates must be finite")
		}
	case models.KindMultiPoint:
		for i, p := range g.MultiPoint {
			if !isFinitePos(p) {
				result.add(loc(fmt.Sprintf("MultiPoint[%d]", i)), "coordinates must be finite")
			}
		}
	case models.KindLineString:
		validateLineString(g.LineString, loc("LineString"), result)
	case models.KindMultiLineString:
		for i, ls := range g.MultiLineString {
			validateLineString(ls, loc(fmt.Sprintf("MultiLineString[%d]", i)), result)
		}
	case models.KindPolygon:
		validatePolygon(g.Polygon, loc("Polygon"), result)
	case models.KindMultiPolygon:
		for i, poly := range g.MultiPolygon {
			validatePolygon(poly, loc(fmt.Sprintf("MultiPolygon[%d]", i)), result)
		}
	case models.KindGeometryCollection:
		for i, sub := range g.GeometryCollection {
			validateInto(sub, loc(fmt.Sprintf("GeometryCollection[%d]", i)), result)
		}
	}
}

func validateLineString(r models.Ring, loc string, result *ValidationResult) {
	if len(r) < 2 {
		result.add(loc, fmt.Sprintf("LineString must have at least 2 points, found %d", len(r)))
		return
	}
	for i, p := range r {
		if !isFinitePos(p) {
			result.add(fmt.Sprintf("%s[%d]", loc, i), "coordinates must be finite")
		}
	}
}

func validatePolygon(rings []models.Ring, loc string, result *ValidationResult) {
	if len(rings) == 0 {
		result.add(loc, "polygon must have at least one ring")
		return
	}

	exterior := rings[0]
	if len(exterior) < 4 {
		result.add(loc+" exterior", fmt.Sprintf("polygon exterior must have at least 4 points, found %d", len(exterior)))
	}
	if !ringClosed(exterior) {
		result.add(loc+" exterior", "polygon exterior ring is not closed")
	}

	for ri, ring := range rings {
		if ri > 0 {
			if len(ring) < 4 {
				result.add(fmt.Sprintf("%s ring[%d]", loc, ri), fmt.Sprintf("polygon hole must have at least 4 points, found %d", len(ring)))
			}
			if !ringClosed(ring) {
				result.add(fmt.Sprintf("%s ring[%d]", loc, ri), "polygon hole ring is not closed")
			}
		}
		for ci, p := range ring {
			if !isFinitePos(p) {
				result.add(fmt.Sprintf("%s ring[%d][%d]", loc, ri, ci), "coordinates must be finite")
			}
		}
		if i, j, selfX := ringSelfIntersection(ring); selfX {
			result.add(fmt.Sprintf("%s ring[%d]", loc, ri), fmt.Sprintf("ring self-intersects between edge %d and edge %d", i, j))
		}
	}
}

// ringSignedArea is the shoelace formula over a closed ring (r[0] == r[len(r)-1]
// is assumed but not required; the wrap-around edge is included explicitly so
// an unclosed ring still yields the correct sign). Positive means the ring
// winds counter-clockwise in a lng/lat (x, y-up) plane.
func ringSignedArea(r models.Ring) float64 {
	n := len(r)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += r[i][0]*r[j][1] - r[j][0]*r[i][1]
	}
	return sum / 2
}

func ringIsCCW(r models.Ring) bool { return ringSignedArea(r) > 0 }

func reverseRing(r models.Ring) models.Ring {
	out := make(models.Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

// orient2D is twice the signed area of triangle (a,b,c): positive when
// a->b->c turns left (counter-clockwise), negative when it turns right.
func orient2D(a, b, c models.Position) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// segmentsCross reports whether open segments (p1,p2) and (p3,p4) cross at
// a single interior point, and that point. Touching at an endpoint or
// overlapping collinearly is not treated as a crossing: those arise
// routinely between a ring's adjacent edges and are not the "bowtie" defect
// this repair targets.
func segmentsCross(p1, p2, p3, p4 models.Position) (models.Position, bool) {
	d1 := orient2D(p3, p4, p1)
	d2 := orient2D(p3, p4, p2)
	d3 := orient2D(p1, p2, p3)
	d4 := orient2D(p1, p2, p4)

	properA := (d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)
	properB := (d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)
	if !properA || !properB {
		return models.Position{}, false
	}

	denom := (p1[0]-p2[0])*(p3[1]-p4[1]) - (p1[1]-p2[1])*(p3[0]-p4[0])
	if denom == 0 {
		return models.Position{}, false
	}
	t := ((p1[0]-p3[0])*(p3[1]-p4[1]) - (p1[1]-p3[1])*(p3[0]-p4[0])) / denom
	return models.Position{
		p1[0] + t*(p2[0]-p1[0]),
		p1[1] + t*(p2[1]-p1[1]),
	}, true
}

// edgesAdjacent reports whether edges i and j of a numEdges-edge closed ring
// share an endpoint, including the wrap-around pair (0, numEdges-1).
func edgesAdjacent(i, j, numEdges int) bool {
	if i == j {
		return true
	}
	if j < i {
		i, j = j, i
	}
	if j == i+1 {
		return true
	}
	return i == 0 && j == numEdges-1
}

// ringSelfIntersection finds the first pair of non-adjacent edges that cross,
// scanning edges in order so a repeated call against an already-split ring
// is deterministic.
func ringSelfIntersection(r models.Ring) (int, int, bool) {
	n := len(r)
	if n < 4 {
		return 0, 0, false
	}
	numEdges := n - 1
	for i := 0; i < numEdges; i++ {
		for j := i + 1; j < numEdges; j++ {
			if edgesAdjacent(i, j, numEdges) {
				continue
			}
			if _, ok := segmentsCross(r[i], r[i+1], r[j], r[j+1]); ok {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// pointInRing is a ray-casting point-in-polygon test over a closed ring,
// used to decide which split exterior a hole belongs to and by the
// distance and predicate helpers (PointToRingsDistance, pointInPolygon).
func pointInRing(p models.Position, r models.Ring) bool {
	n := len(r) - 1 // r is closed: r[0] == r[n]
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := r[i][0], r[i][1]
		xj, yj := r[j][0], r[j][1]
		if (yi > p[1]) != (yj > p[1]) {
			xIntersect := xi + (p[1]-yi)/(yj-yi)*(xj-xi)
			if p[0] < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}

// Repair returns a geometry with commonly-fixable defects corrected, per
// §4.1's four Lenient repairs: open polygon rings are closed and consecutive
// duplicate points removed, ring winding is normalized (exterior
// counter-clockwise, holes clockwise), a self-intersecting ring is split at
// its first crossing into two simple loops (recursively, for more than one
// crossing), and empty sub-geometries are dropped from Multi*/
// GeometryCollection containers. Splitting a self-intersecting Polygon's
// exterior into more than one loop promotes the result to MultiPolygon --
// Repair otherwise preserves Kind. It is idempotent: Repair(Repair(g)) ==
// Repair(g) (§8 "Repair idempotence").
func Repair(g models.Geometry) models.Geometry {
	switch g.Kind {
	case models.KindLineString:
		return models.Geometry{Kind: g.Kind, LineString: dedupeRing(g.LineString)}
	case models.KindMultiLineString:
		return models.Geometry{Kind: g.Kind, MultiLineString: repairMultiLineString(g.MultiLineString)}
	case models.KindPolygon:
		polys := repairPolygon(g.Polygon)
		switch len(polys) {
		case 0:
			return models.Geometry{Kind: models.KindPolygon}
		case 1:
			return models.Geometry{Kind: models.KindPolygon, Polygon: polys[0]}
		default:
			return models.Geometry{Kind: models.KindMultiPolygon, MultiPolygon: polys}
		}
	case models.KindMultiPolygon:
		var polys [][]models.Ring
		for _, poly := range g.MultiPolygon {
			polys = append(polys, repairPolygon(poly)...)
		}
		return models.Geometry{Kind: g.Kind, MultiPolygon: polys}
	case models.KindGeometryCollection:
		var subs []models.Geometry
		for _, sub := range g.GeometryCollection {
			r := Repair(sub)
			if !r.IsEmpty() {
				subs = append(subs, r)
			}
		}
		return models.Geometry{Kind: g.Kind, GeometryCollection: subs}
	default:
		return g
	}
}

func repairMultiLineString(lines []models.Ring) []models.Ring {
	var out []models.Ring
	for _, ls := range lines {
		r := dedupeRing(ls)
		if len(r) >= 2 {
			out = append(out, r)
		}
	}
	return out
}

// repairPolygon closes and dedupes every ring, splits a self-intersecting
// exterior into one or more simple loops, and normalizes winding. Holes are
// reassigned to whichever resulting exterior contains the hole's first
// vertex and dropped if none does -- a reasonable result for the rare case
// of a hole paired with a bowtie exterior, without a full polygon-clipping
// library. The return value has one []models.Ring per resulting polygon.
func repairPolygon(rings []models.Ring) [][]models.Ring {
	if len(rings) == 0 {
		return nil
	}

	exterior := repairRing(rings[0])
	if len(exterior) < 4 {
		return nil
	}
	exteriors := splitSelfIntersectingRing(exterior, 0)
	for i, ext := range exteriors {
		if !ringIsCCW(ext) {
			exteriors[i] = reverseRing(ext)
		}
	}

	polys := make([][]models.Ring, len(exteriors))
	for i, ext := range exteriors {
		polys[i] = []models.Ring{ext}
	}

	for _, rawHole := range rings[1:] {
		hole := repairRing(rawHole)
		if len(hole) < 4 {
			continue
		}
		for _, h := range splitSelfIntersectingRing(hole, 0) {
			if len(h) < 4 {
				continue
			}
			if ringIsCCW(h) {
				h = reverseRing(h)
			}
			if idx := ringContaining(exteriors, h[0]); idx >= 0 {
				polys[idx] = append(polys[idx], h)
			}
		}
	}
	return polys
}

func ringContaining(rings []models.Ring, p models.Position) int {
	for i, r := range rings {
		if pointInRing(p, r) {
			return i
		}
	}
	return -1
}

func repairRing(r models.Ring) models.Ring {
	r = dedupeRing(r)
	if len(r) > 0 && !ringClosed(r) {
		r = append(r, r[0])
	}
	return r
}

// splitSelfIntersectingRing recursively splits r at its first self-crossing
// into two closed sub-rings until none self-intersects (bounded by depth, a
// backstop against a degenerate input that never converges). A ring with no
// self-intersection is returned unchanged as the sole element.
func splitSelfIntersectingRing(r models.Ring, depth int) []models.Ring {
	if depth > 8 {
		return []models.Ring{r}
	}
	i, j, found := ringSelfIntersection(r)
	if !found {
		return []models.Ring{r}
	}
	pt, _ := segmentsCross(r[i], r[i+1], r[j], r[j+1])

	m := len(r) - 1 // distinct points; r[m] duplicates r[0]

	loopA := make(models.Ring, 0, j-i+2)
	loopA = append(loopA, pt)
	for k := i + 1; k <= j; k++ {
		loopA = append(loopA, r[k])
	}
	loopA = append(loopA, pt)

	loopB := make(models.Ring, 0, m-(j-i)+2)
	loopB = append(loopB, pt)
	for k := j + 1; k <= i+m; k++ {
		loopB = append(loopB, r[k%m])
	}
	loopB = append(loopB, pt)

	var out []models.Ring
	for _, loop := range []models.Ring{loopA, loopB} {
		loop = dedupeRing(loop)
		if len(loop) >= 4 {
			out = append(out, splitSelfIntersectingRing(loop, depth+1)...)
		}
	}
	return out
}

func dedupeRing(r models.Ring) models.Ring {
	if len(r) < 2 {
		return r
	}
	out := make(models.Ring, 0, len(r))
	out = append(out, r[0])
	for _, p := range r[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

// Normalize validates g under mode, applying Repair first when mode is
// Lenient. Strict mode promotes any surviving defect to a GeometryError
// (§7); Lenient downgrades repairable defects to a warning count.
func Normalize(g models.Geometry, mode models.ValidityMode) (models.Geometry, int, error) {
	if mode == models.Lenient {
		repaired := Repair(g)
		result := Validate(repaired)
		if result.Valid {
			return repaired, len(Validate(g).Issues), nil
		}
		return repaired, len(result.Issues), errs.New(errs.GeometryError, describeIssues(result.Issues)).
			WithOp("geo.Normalize")
	}

	result := Validate(g)
	if !result.Valid {
		return g, 0, errs.New(errs.GeometryError, describeIssues(result.Issues)).
			WithOp("geo.Normalize")
	}
	return g, 0, nil
}

func describeIssues(issues []ValidationIssue) string {
	if len(issues) == 0 {
		return "invalid geometry"
	}
	msg := issues[0].Location + ": " + issues[0].Reason
	for _, i := range issues[1:] {
		msg += "; " + i.Location + ": " + i.Reason
	}
	return msg
}

package geo

import (
	"math"

	"georag/internal/errs"
	"georag/models"
)

const earthRadiusWebMercator = 6378137.0

// CrsMatch reports whether two CRS declarations name the same EPSG code.
func CrsMatch(a, b models.Crs) bool {
	return a.EPSG == b.EPSG
}

// Reproject transforms a geometry from one CRS to another. The core only
// needs EPSG:4326<->EPSG:3857 (Web Mercator): a general PROJ-backed
// transform would pull in cgo and defeat the embeddable-core goal the
// teacher's services are built around, and every format adapter and the
// spec's round-trip property only exercise this one pair (see DESIGN.md).
func Reproject(g models.Geometry, from, to models.Crs) (models.Geometry, error) {
	if CrsMatch(from, to) {
		return g, nil
	}

	var fn func(models.Position) models.Position
	switch {
	case from.EPSG == 4326 && to.EPSG == 3857:
		fn = toWebMercator
	case from.EPSG == 3857 && to.EPSG == 4326:
		fn = fromWebMercator
	default:
		return models.Geometry{}, errs.New(errs.CrsError,
			"no transform available from EPSG:"+epsgString(from.EPSG)+" to EPSG:"+epsgString(to.EPSG)).
			WithOp("geo.Reproject")
	}

	return mapPositions(g, fn), nil
}

func epsgString(code int) string {
	if code == 0 {
		return "0"
	}
	digits := []byte{}
	n := code
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func toWebMercator(p models.Position) models.Position {
	lng, lat := p[0], p[1]
	x := lng * math.Pi / 180.0 * earthRadiusWebMercator
	y := math.Log(math.Tan(math.Pi/4+lat*math.Pi/360.0)) * earthRadiusWebMercator
	return models.Position{x, y}
}

func fromWebMercator(p models.Position) models.Position {
	x, y := p[0], p[1]
	lng := (x / earthRadiusWebMercator) * 180.0 / math.Pi
	lat := (2*math.Atan(math.Exp(y/earthRadiusWebMercator)) - math.Pi/2) * 180.0 / math.Pi
	return models.Position{lng, lat}
}

func mapPositions(g models.Geometry, fn func(models.Position) models.Position) models.Geometry {
	switch g.Kind {
	case models.KindPoint:
		return models.Geometry{Kind: g.Kind, Point: fn(g.Point)}
	case models.KindMultiPoint:
		out := make([]models.Position, len(g.MultiPoint))
		for i, p := range g.MultiPoint {
			out[i] = fn(p)
		}
		return models.Geometry{Kind: g.Kind, MultiPoint: out}
	case models.KindLineString:
		return models.Geometry{Kind: g.Kind, LineString: mapRing(g.LineString, fn)}
	case models.KindMultiLineString:
		lines := make([]models.Ring, len(g.MultiLineString))
		for i, ls := range g.MultiLineString {
			lines[i] = mapRing(ls, fn)
		}
		return models.Geometry{Kind: g.Kind, MultiLineString: lines}
	case models.KindPolygon:
		return models.Geometry{Kind: g.Kind, Polygon: mapRings(g.Polygon, fn)}
	case models.KindMultiPolygon:
		polys := make([][]models.Ring, len(g.MultiPolygon))
		for i, poly := range g.MultiPolygon {
			polys[i] = mapRings(poly, fn)
		}
		return models.Geometry{Kind: g.Kind, MultiPolygon: polys}
	case models.KindGeometryCollection:
		subs := make([]models.Geometry, len(g.GeometryCollection))
		for i, sub := range g.GeometryCollection {
			subs[i] = mapPositions(sub, fn)
		}
		return models.Geometry{Kind: g.Kind, GeometryCollection: subs}
	default:
		return g
	}
}

func mapRing(r models.Ring, fn func(models.Position) models.Position) models.Ring {
	out := make(models.Ring, len(r))
	for i, p := range r {
		out[i] = fn(p)
	}
	return out
}

func mapRings(rings []models.Ring, fn func(models.Position) models.Position) []models.Ring {
	out := make([]models.Ring, len(rings))
	for i, r := range rings {
		out[i] = mapRing(r, fn)
	}
	return out
}

// CheckCrsMismatch returns a CrsError if datasetCrs and workspaceCrs name
// different EPSG codes and no transform between them is registered.
func CheckCrsMismatch(datasetCrs, workspaceCrs models.Crs) error {
	if CrsMatch(datasetCrs, workspaceCrs) {
		return nil
	}
	if _, err := Reproject(models.Geometry{Kind: models.KindPoint}, datasetCrs, workspaceCrs); err != nil {
		return err
	}
	return nil
}

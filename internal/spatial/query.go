package spatial

import (
	"context"
	"math"

	"georag/internal/concurrency"
	"georag/internal/geo"
	"georag/models"
)

const metersPerDegreeLat = 111320.0

// QueryFilter evaluates filter against the tree: an envelope-prune pass
// followed by the exact predicate on every surviving candidate's full
// geometry (§4.2 "Predicate query"). Cooperative cancellation is checked
// at entry and after each spatial batch boundary (§5).
func (t *Tree) QueryFilter(ctx context.Context, filter models.SpatialFilter) ([]*Item, error) {
	if err := concurrency.Check(ctx); err != nil {
		return nil, err
	}

	if filter.Predicate == models.DWithin {
		return t.queryDWithin(ctx, filter)
	}

	candidates := t.QueryBBox(EnvelopeOf(filter.Geometry))

	if filter.Predicate == models.BBox {
		return candidates, nil
	}

	out := make([]*Item, 0, len(candidates))
	for i, c := range candidates {
		if geo.Evaluate(c.Geometry, filter) {
			out = append(out, c)
		}
		if err := concurrency.CheckBatch(ctx, i, concurrency.SpatialBatchSize); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// queryDWithin implements §4.2's distance-within query: the query radius
// is converted to meters, the query geometry's envelope is grown by a
// latitude-scaled degree buffer to prune candidates cheaply, and every
// surviving candidate is checked with exact geodesic distance on the
// WGS84 ellipsoid -- never Cartesian planar distance.
func (t *Tree) queryDWithin(ctx context.Context, filter models.SpatialFilter) ([]*Item, error) {
	if filter.Distance == nil {
		return nil, nil
	}

	radiusMeters := filter.Distance.Meters()
	queryBound := EnvelopeOf(filter.Geometry)
	lat := (queryBound.MinY + queryBound.MaxY) / 2

	latDelta := radiusMeters / metersPerDegreeLat
	lngDelta := radiusMeters / (metersPerDegreeLat * math.Max(math.Cos(lat*math.Pi/180), 0.01))
	buffered := Envelope{
		MinX: queryBound.MinX - lngDelta,
		MaxX: queryBound.MaxX + lngDelta,
		MinY: queryBound.MinY - latDelta,
		MaxY: queryBound.MaxY + latDelta,
	}

	candidates := t.QueryBBox(buffered)

	out := make([]*Item, 0, len(candidates))
	for i, c := range candidates {
		if geo.GeodesicDistance(c.Geometry, filter.Geometry) <= radiusMeters {
			out = append(out, c)
		}
		if err := concurrency.CheckBatch(ctx, i, concurrency.SpatialBatchSize); err != nil {
			return nil, err
		}
	}
	return out, nil
}

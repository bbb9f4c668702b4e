package retrieval

import (
	"context"

	"georag/internal/geo"
	"georag/internal/spatial"
	"georag/models"
)

// spatialPhase resolves §4.8 stage 1: with no spatial filter the
// candidate set is every chunk in the workspace; with a filter it is
// every chunk belonging to a matched Feature, plus any chunk whose own
// Geometry (a Document's default geometry or override) independently
// satisfies the filter.
func (p *Pipeline) spatialPhase(ctx context.Context, ws *models.Workspace, plan models.QueryPlan) ([]candidate, string, error) {
	datasets, err := p.store.Spatial().ListDatasets(ctx, ws.ID)
	if err != nil {
		return nil, "", err
	}

	filter := plan.Spatial
	if filter == nil {
		all, err := p.allCandidates(ctx, datasets)
		return all, "none", err
	}

	resolved, err := resolveFilter(*filter, ws.Crs)
	if err != nil {
		return nil, "", err
	}

	items, err := p.featureItems(ctx, datasets)
	if err != nil {
		return nil, "", err
	}
	tree := spatial.Build(items)
	hits, err := tree.QueryFilter(ctx, resolved)
	if err != nil {
		return nil, "", err
	}
	matched := make(map[string]bool, len(hits))
	for _, h := range hits {
		matched[matchKey(h.DatasetName, h.FeatureID)] = true
	}

	out := make([]candidate, 0)
	for _, ds := range datasets {
		chunks, err := p.store.Document().ListChunksByDataset(ctx, ds.ID)
		if err != nil {
			return nil, "", err
		}
		docNames, err := p.documentNames(ctx, ds.ID)
		if err != nil {
			return nil, "", err
		}
		for _, c := range chunks {
			if c.FeatureRef != nil && matched[matchKey(ds.Name, *c.FeatureRef)] {
				out = append(out, candidate{chunk: c, datasetName: ds.Name})
				continue
			}
			if c.Geometry != nil && matchesSpatial(*c.Geometry, resolved) {
				name := docNames[c.DocumentID]
				out = append(out, candidate{chunk: c, datasetName: ds.Name, documentName: &name})
			}
		}
	}

	return out, resolved.Predicate.String(), nil
}

func (p *Pipeline) allCandidates(ctx context.Context, datasets []*models.Dataset) ([]candidate, error) {
	out := make([]candidate, 0)
	for _, ds := range datasets {
		chunks, err := p.store.Document().ListChunksByDataset(ctx, ds.ID)
		if err != nil {
			return nil, err
		}
		docNames, err := p.documentNames(ctx, ds.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			cand := candidate{chunk: c, datasetName: ds.Name}
			if c.FeatureRef == nil {
				if name, ok := docNames[c.DocumentID]; ok {
					cand.documentName = &name
				}
			}
			out = append(out, cand)
		}
	}
	return out, nil
}

func (p *Pipeline) featureItems(ctx context.Context, datasets []*models.Dataset) ([]spatial.Item, error) {
	var items []spatial.Item
	for _, ds := range datasets {
		features, err := p.store.Spatial().ListFeatures(ctx, ds.ID)
		if err != nil {
			return nil, err
		}
		for _, f := range features {
			items = append(items, spatial.Item{DatasetName: ds.Name, FeatureID: f.FeatureID, Geometry: f.Geometry})
		}
	}
	return items, nil
}

func (p *Pipeline) documentNames(ctx context.Context, datasetID string) (map[string]string, error) {
	docs, err := p.store.Document().ListDocumentsByDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(docs))
	for _, d := range docs {
		out[d.ID] = d.Name
	}
	return out, nil
}

func matchKey(datasetName, featureID string) string { return datasetName + "\x00" + featureID }

// resolveFilter reprojects filter.Geometry into the workspace CRS when
// it declares a different one, failing CrsError when no transform is
// registered (§4.8 "CrsError if spatial filter geometry declares a CRS
// with no transform to the workspace CRS").
func resolveFilter(filter models.SpatialFilter, workspaceCrs models.Crs) (models.SpatialFilter, error) {
	if geo.CrsMatch(filter.Crs, workspaceCrs) {
		return filter, nil
	}
	reprojected, err := geo.Reproject(filter.Geometry, filter.Crs, workspaceCrs)
	if err != nil {
		return models.SpatialFilter{}, err
	}
	filter.Geometry = reprojected
	filter.Crs = workspaceCrs
	return filter, nil
}

// matchesSpatial evaluates filter against a single geometry, used for
// chunks carrying their own geometry outside the Feature spatial index
// (a Document's default geometry or per-region override).
func matchesSpatial(g models.Geometry, filter models.SpatialFilter) bool {
	if filter.Predicate == models.DWithin {
		if filter.Distance == nil {
			return false
		}
		return geo.GeodesicDistance(g, filter.Geometry) <= filter.Distance.Meters()
	}
	return geo.Evaluate(g, filter)
}

package workspace

import (
	"context"

	"georag/internal/errs"
	"georag/models"
)

// Status is the structured readiness report of §4.9: a workspace is
// ready to query iff every condition holds, and each condition is
// reported individually so a caller can tell which one is failing.
type Status struct {
	DatasetCount     int
	HasCurrentBuild  bool
	ModelMatches     bool
	DimensionMatches bool
	CurrentBuild     *models.IndexBuild
}

// Ready reports whether every §4.9 readiness condition holds.
func (s Status) Ready() bool {
	return s.DatasetCount > 0 && s.HasCurrentBuild && s.ModelMatches && s.DimensionMatches
}

// Status reports workspaceID's readiness to query, per §4.9:
// dataset_count > 0 ∧ current IndexBuild exists ∧
// embedder.model == IndexBuild.embedder_model ∧
// embedder.dimensions == IndexBuild.dimensions.
func (c *Coordinator) Status(ctx context.Context, workspaceID string) (*Status, error) {
	datasets, err := c.store.Spatial().ListDatasets(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	st := &Status{DatasetCount: len(datasets)}

	build, err := c.store.Workspace().CurrentIndexBuild(ctx, workspaceID)
	if err != nil {
		if errs.KindOf(err) == errs.IndexNotBuilt {
			return st, nil
		}
		return nil, err
	}

	st.HasCurrentBuild = true
	st.CurrentBuild = build
	st.ModelMatches = build.EmbedderModel == c.cfg.EmbedderModel
	st.DimensionMatches = build.EmbeddingDim == c.embedder.Dimension(c.cfg.EmbedderModel)
	return st, nil
}

package builder

import (
	"context"
	"sort"

	"georag/internal/errs"
)

// BuildPlan previews what a real build would do without persisting
// anything: the dataset ordering and chunk counts per §4.7 step 3,
// surfaced from `georag-cli/src/dry_run.rs`'s preview report.
type BuildPlan struct {
	WorkspaceID  string
	DatasetNames []string // in build order, per §4.7's deterministic ordering rule
	ChunkCount   int
	ChunksByDataset map[string]int
}

// Plan recomputes the chunk set a Build(ctx, workspaceID, false) would
// produce, without writing anything to storage, so an operator can
// preview a build's scope before running it.
func (b *Builder) Plan(ctx context.Context, workspaceID string) (*BuildPlan, error) {
	ws, err := b.store.Workspace().GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	datasets, err := b.store.Spatial().ListDatasets(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	records, err := b.chunkAllMode(ctx, ws, datasets, false, nil)
	if err != nil {
		return nil, err
	}
	sortChunkRecords(records)

	names := make([]string, len(datasets))
	for i, ds := range datasets {
		names[i] = ds.Name
	}
	sort.Strings(names)

	byDataset := make(map[string]int, len(datasets))
	for _, r := range records {
		byDataset[r.datasetName]++
	}

	return &BuildPlan{
		WorkspaceID:     workspaceID,
		DatasetNames:    names,
		ChunkCount:      len(records),
		ChunksByDataset: byDataset,
	}, nil
}

// VerifyReport is the result of recomputing and comparing a workspace's
// index fingerprint against what is actually persisted as current,
// grounded on `georag-cli/src/commands/inspect.rs` and
// `georag-store/src/postgres/index.rs`'s verify-on-read idiom.
type VerifyReport struct {
	WorkspaceID        string
	PersistedFingerprint string
	RecomputedFingerprint string
	Match              bool
}

// Verify recomputes the index fingerprint from currently persisted
// Features, Documents, and Chunks and compares it against the
// workspace's current IndexBuild, returning an IntegrityMismatch error
// if they diverge (§6 "Index integrity surface"). It never calls the
// Embedder and never writes anything. It recomputes from whatever
// geometry is currently persisted, without reprojecting or repairing it,
// so besides drift from direct storage mutation since the last build, a
// build whose reprojection or repairs were not persisted (a dataset CRS
// differing from the workspace CRS, or repairs with PersistRepairs
// disabled) reports a mismatch even though no entity changed.
func (b *Builder) Verify(ctx context.Context, workspaceID string) (*VerifyReport, error) {
	current, err := b.store.Workspace().CurrentIndexBuild(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	ws, err := b.store.Workspace().GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	datasets, err := b.store.Spatial().ListDatasets(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	records, err := b.chunkAllMode(ctx, ws, datasets, false, nil)
	if err != nil {
		return nil, err
	}
	sortChunkRecords(records)

	recomputed, err := fingerprint(ws, current.EmbedderModel, current.EmbeddingDim, records)
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{
		WorkspaceID:           workspaceID,
		PersistedFingerprint:  current.Fingerprint,
		RecomputedFingerprint: recomputed,
		Match:                 recomputed == current.Fingerprint,
	}
	if !report.Match {
		return report, errs.New(errs.IntegrityMismatch, "recomputed fingerprint does not match the current index build").
			WithOp("builder.Verify").WithEntity(workspaceID)
	}
	return report, nil
}

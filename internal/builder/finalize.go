package builder

import (
	"context"

	"georag/internal/errs"
	"georag/models"
)

// finalize persists build as the new current IndexBuild and supersedes
// whatever build was current before it, all inside one transaction so a
// crash partway through never leaves two builds marked current (§4.7
// step 5, "tears down the prior build atomically only on success").
// If the embedder model changed since the prior build, its now-orphaned
// embeddings are purged here too (§3: "purged whenever the model or the
// chunk changes").
func (b *Builder) finalize(ctx context.Context, workspaceID string, build *models.IndexBuild) error {
	previous, err := b.store.Workspace().CurrentIndexBuild(ctx, workspaceID)
	hadPrevious := err == nil
	if err != nil && errs.KindOf(err) != errs.IndexNotBuilt {
		return err
	}

	tx, err := b.store.Spatial().BeginTx(ctx)
	if err != nil {
		return err
	}

	if err := b.store.Workspace().CreateIndexBuild(ctx, tx, build); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if hadPrevious && previous.EmbedderModel != build.EmbedderModel {
		if err := b.store.Vector().PurgeByModel(ctx, tx, workspaceID, previous.EmbedderModel); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}

	if err := b.store.Workspace().SupersedeIndexBuild(ctx, tx, workspaceID, build.ID); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

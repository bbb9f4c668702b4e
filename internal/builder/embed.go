package builder

import (
	"context"

	"georag/internal/concurrency"
	"georag/models"
)

// embedAll calls the Embedder in batches of cfg.EmbedBatchSize,
// preserving record order, and upserts the resulting Embeddings (§4.7
// step 4). A batch's embeddings persist before the next batch starts,
// so a cancellation mid-build only discards the in-flight batch.
func (b *Builder) embedAll(ctx context.Context, ws *models.Workspace, records []chunkRecord) error {
	batchSize := b.cfg.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = concurrency.EmbedBatchSize
	}
	model := b.cfg.EmbedderModel

	for start := 0; start < len(records); start += batchSize {
		if err := concurrency.Check(ctx); err != nil {
			return err
		}

		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		texts := make([]string, len(batch))
		for i, r := range batch {
			texts[i] = r.chunk.Content
		}

		batchCtx, cancel := concurrency.WithEmbedBatchTimeout(ctx)
		vectors, err := b.embedder.Embed(batchCtx, model, texts)
		cancel()
		if err != nil {
			return err
		}

		embeddings := make([]*models.Embedding, len(batch))
		for i, r := range batch {
			embeddings[i] = &models.Embedding{
				ID:        embeddingID(r.chunk.ID, model),
				ChunkID:   r.chunk.ID,
				Model:     model,
				Dimension: len(vectors[i]),
				Vector:    vectors[i],
			}
		}

		tx, err := b.store.Spatial().BeginTx(ctx)
		if err != nil {
			return err
		}
		if err := b.store.Vector().UpsertEmbeddings(ctx, tx, embeddings); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	return nil
}

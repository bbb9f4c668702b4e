package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pgvector/pgvector-go"

	"georag/internal/storage"
	"georag/models"
)

type vectorStore Adapter

func (v *vectorStore) a() *Adapter { return (*Adapter)(v) }

func (v *vectorStore) UpsertEmbeddings(ctx context.Context, t storage.Transaction, embeddings []*models.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	rows := make([]*EmbeddingRow, 0, len(embeddings))
	for _, e := range embeddings {
		rows = append(rows, embeddingToRow(e))
	}
	db := v.a().dbFor(ctx, t)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chunk_id"}, {Name: "model"}},
		UpdateAll: true,
	}).Create(&rows).Error
	return wrapGormErr("postgres.UpsertEmbeddings", err)
}

// TopK orders by pgvector's cosine-distance operator (<=>), scoped to
// chunk_id IN (candidateChunkIDs) when a candidate set is supplied and to
// the chunks belonging to workspaceID's datasets otherwise. Embeddings
// are L2-normalized before they are ever persisted (§8 "vector
// normalization"), so 1 - cosine_distance equals the dot-product
// similarity the in-memory adapter computes directly.
func (v *vectorStore) TopK(ctx context.Context, workspaceID, model string, query []float32, k int, candidateChunkIDs []string) ([]storage.VectorMatch, error) {
	type row struct {
		ChunkID string
		Score   float64
	}
	var rows []row
	vec := pgvector.NewVector(query)

	q := v.a().db.WithContext(ctx).
		Table("embeddings").
		Select("embeddings.chunk_id AS chunk_id, 1 - (embeddings.vector <=> ?) AS score", vec).
		Joins("JOIN chunks ON chunks.id = embeddings.chunk_id").
		Joins("JOIN documents ON documents.id = chunks.document_id").
		Joins("JOIN datasets ON datasets.id = documents.dataset_id").
		Where("embeddings.model = ? AND datasets.workspace_id = ?", model, workspaceID).
		Order(gorm.Expr("embeddings.vector <=> ?", vec)).
		Limit(k)

	if len(candidateChunkIDs) > 0 {
		q = q.Where("embeddings.chunk_id IN ?", candidateChunkIDs)
	}

	if err := q.Scan(&rows).Error; err != nil {
		return nil, wrapGormErr("postgres.TopK", err)
	}

	out := make([]storage.VectorMatch, len(rows))
	for i, r := range rows {
		out[i] = storage.VectorMatch{ChunkID: r.ChunkID, Score: r.Score}
	}
	return out, nil
}

func (v *vectorStore) PurgeByModel(ctx context.Context, t storage.Transaction, workspaceID, model string) error {
	db := v.a().dbFor(ctx, t)
	err := db.Exec(`
		DELETE FROM embeddings
		USING chunks, documents, datasets
		WHERE embeddings.chunk_id = chunks.id
		  AND chunks.document_id = documents.id
		  AND documents.dataset_id = datasets.id
		  AND datasets.workspace_id = ?
		  AND embeddings.model = ?`, workspaceID, model).Error
	return wrapGormErr("postgres.PurgeByModel", err)
}

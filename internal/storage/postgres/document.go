package postgres

import (
	"context"

	"gorm.io/gorm/clause"

	"georag/internal/storage"
	"georag/models"
)

type documentStore Adapter

func (d *documentStore) a() *Adapter { return (*Adapter)(d) }

func (d *documentStore) CreateDocument(ctx context.Context, t storage.Transaction, doc *models.Document) error {
	row, err := documentToRow(doc)
	if err != nil {
		return err
	}
	db := d.a().dbFor(ctx, t)
	if err := db.Create(row).Error; err != nil {
		return wrapGormErr("postgres.CreateDocument", err)
	}
	return nil
}

func (d *documentStore) GetDocument(ctx context.Context, documentID string) (*models.Document, error) {
	var row DocumentRow
	if err := d.a().db.WithContext(ctx).First(&row, "id = ?", documentID).Error; err != nil {
		return nil, wrapGormErr("postgres.GetDocument", err)
	}
	return rowToDocument(&row)
}

func (d *documentStore) ListDocumentsByDataset(ctx context.Context, datasetID string) ([]*models.Document, error) {
	var rows []DocumentRow
	if err := d.a().db.WithContext(ctx).Where("dataset_id = ?", datasetID).Find(&rows).Error; err != nil {
		return nil, wrapGormErr("postgres.ListDocumentsByDataset", err)
	}
	out := make([]*models.Document, 0, len(rows))
	for i := range rows {
		doc, err := rowToDocument(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (d *documentStore) UpsertChunks(ctx context.Context, t storage.Transaction, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]*ChunkRow, 0, len(chunks))
	for _, c := range chunks {
		row, err := chunkToRow(c)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	db := d.a().dbFor(ctx, t)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}, {Name: "chunk_index"}},
		UpdateAll: true,
	}).Create(&rows).Error
	return wrapGormErr("postgres.UpsertChunks", err)
}

func (d *documentStore) ListChunksByDataset(ctx context.Context, datasetID string) ([]*models.Chunk, error) {
	var rows []ChunkRow
	err := d.a().db.WithContext(ctx).
		Joins("JOIN documents ON documents.id = chunks.document_id").
		Where("documents.dataset_id = ?", datasetID).
		Find(&rows).Error
	if err != nil {
		return nil, wrapGormErr("postgres.ListChunksByDataset", err)
	}
	out := make([]*models.Chunk, 0, len(rows))
	for i := range rows {
		c, err := rowToChunk(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (d *documentStore) GetChunk(ctx context.Context, chunkID string) (*models.Chunk, error) {
	var row ChunkRow
	if err := d.a().db.WithContext(ctx).First(&row, "id = ?", chunkID).Error; err != nil {
		return nil, wrapGormErr("postgres.GetChunk", err)
	}
	return rowToChunk(&row)
}

// ClearFeatureRefs implements the weak back-reference rule (§9) with a
// plain UPDATE. spatial_ref carries no foreign-key constraint, so a
// feature delete or an ingestion-time replacement of a feature
// (delete-then-reinsert under the same id) nulls it only through this
// explicit path.
func (d *documentStore) ClearFeatureRefs(ctx context.Context, t storage.Transaction, featureID string) error {
	db := d.a().dbFor(ctx, t)
	err := db.Model(&ChunkRow{}).Where("spatial_ref = ?", featureID).Update("spatial_ref", nil).Error
	return wrapGormErr("postgres.ClearFeatureRefs", err)
}

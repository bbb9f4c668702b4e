package postgres

import (
	"context"

	"gorm.io/gorm/clause"

	"georag/internal/errs"
	"georag/internal/storage"
	"georag/models"
)

type spatialStore Adapter

func (s *spatialStore) a() *Adapter { return (*Adapter)(s) }

func (s *spatialStore) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return beginTx(ctx, s.a().db)
}

func (s *spatialStore) CreateDataset(ctx context.Context, t storage.Transaction, d *models.Dataset) error {
	row, err := datasetToRow(d)
	if err != nil {
		return err
	}
	db := s.a().dbFor(ctx, t)
	if err := db.Create(row).Error; err != nil {
		return wrapGormErr("postgres.CreateDataset", err)
	}
	return nil
}

func (s *spatialStore) GetDataset(ctx context.Context, workspaceID, name string) (*models.Dataset, error) {
	var row DatasetRow
	err := s.a().db.WithContext(ctx).
		Where("workspace_id = ? AND name = ?", workspaceID, name).
		First(&row).Error
	if err != nil {
		return nil, wrapGormErr("postgres.GetDataset", err)
	}
	return rowToDataset(&row)
}

func (s *spatialStore) ListDatasets(ctx context.Context, workspaceID string) ([]*models.Dataset, error) {
	var rows []DatasetRow
	if err := s.a().db.WithContext(ctx).Where("workspace_id = ?", workspaceID).Find(&rows).Error; err != nil {
		return nil, wrapGormErr("postgres.ListDatasets", err)
	}
	out := make([]*models.Dataset, 0, len(rows))
	for i := range rows {
		d, err := rowToDataset(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *spatialStore) UpdateDatasetBbox(ctx context.Context, t storage.Transaction, datasetID string, bbox models.Envelope) error {
	hexWKB, err := geometryToHexWKB(envelopeToPolygon(bbox))
	if err != nil {
		return err
	}
	db := s.a().dbFor(ctx, t)
	res := db.Model(&DatasetRow{}).Where("id = ?", datasetID).Update("bbox", hexWKB)
	if res.Error != nil {
		return wrapGormErr("postgres.UpdateDatasetBbox", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.New(errs.NotFound, "dataset not found").WithEntity(datasetID)
	}
	return nil
}

// DeleteDataset removes the dataset together with its features and
// documents, the chunks beneath those documents, and those chunks'
// embeddings, per §4.6's ownership-hierarchy cascade rule. The row types
// declare no foreign-key constraints, so the dependent rows are deleted
// explicitly, children first, before the dataset row itself.
func (s *spatialStore) DeleteDataset(ctx context.Context, t storage.Transaction, datasetID string) error {
	db := s.a().dbFor(ctx, t)
	for _, stmt := range []string{
		`DELETE FROM embeddings USING chunks, documents WHERE embeddings.chunk_id = chunks.id AND chunks.document_id = documents.id AND documents.dataset_id = ?`,
		`DELETE FROM chunks USING documents WHERE chunks.document_id = documents.id AND documents.dataset_id = ?`,
		`DELETE FROM documents WHERE dataset_id = ?`,
		`DELETE FROM features WHERE dataset_id = ?`,
	} {
		if err := db.Exec(stmt, datasetID).Error; err != nil {
			return wrapGormErr("postgres.DeleteDataset", err)
		}
	}
	if err := db.Where("id = ?", datasetID).Delete(&DatasetRow{}).Error; err != nil {
		return wrapGormErr("postgres.DeleteDataset", err)
	}
	return nil
}

func (s *spatialStore) UpsertFeatures(ctx context.Context, t storage.Transaction, datasetID string, features []*models.Feature) error {
	if len(features) == 0 {
		return nil
	}
	rows := make([]*FeatureRow, 0, len(features))
	for _, f := range features {
		f.DatasetID = datasetID
		row, err := featureToRow(f)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	db := s.a().dbFor(ctx, t)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dataset_id"}, {Name: "feature_id"}},
		UpdateAll: true,
	}).Create(&rows).Error
	if err != nil {
		return wrapGormErr("postgres.UpsertFeatures", err)
	}
	return nil
}

func (s *spatialStore) ListFeatures(ctx context.Context, datasetID string) ([]*models.Feature, error) {
	var rows []FeatureRow
	if err := s.a().db.WithContext(ctx).Where("dataset_id = ?", datasetID).Find(&rows).Error; err != nil {
		return nil, wrapGormErr("postgres.ListFeatures", err)
	}
	out := make([]*models.Feature, 0, len(rows))
	for i := range rows {
		f, err := rowToFeature(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *spatialStore) GetFeatureByRef(ctx context.Context, datasetID, featureID string) (*models.Feature, error) {
	var row FeatureRow
	err := s.a().db.WithContext(ctx).
		Where("dataset_id = ? AND feature_id = ?", datasetID, featureID).
		First(&row).Error
	if err != nil {
		return nil, wrapGormErr("postgres.GetFeatureByRef", err)
	}
	return rowToFeature(&row)
}

// QueryBBox uses the GIST index on features.geometry via PostGIS's &&
// bounding-box overlap operator, the standard index-accelerated envelope
// test.
func (s *spatialStore) QueryBBox(ctx context.Context, workspaceID string, bbox models.Envelope) ([]*models.Feature, error) {
	envHex, err := geometryToHexWKB(envelopeToPolygon(bbox))
	if err != nil {
		return nil, err
	}

	var rows []FeatureRow
	err = s.a().db.WithContext(ctx).
		Joins("JOIN datasets ON datasets.id = features.dataset_id").
		Where("datasets.workspace_id = ? AND features.geometry && ?::geometry", workspaceID, envHex).
		Find(&rows).Error
	if err != nil {
		return nil, wrapGormErr("postgres.QueryBBox", err)
	}

	out := make([]*models.Feature, 0, len(rows))
	for i := range rows {
		f, err := rowToFeature(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

package postgres

import (
	"context"

	"georag/internal/errs"
	"georag/internal/storage"
	"georag/models"
)

type workspaceStore Adapter

func (w *workspaceStore) a() *Adapter { return (*Adapter)(w) }

func (w *workspaceStore) CreateWorkspace(ctx context.Context, ws *models.Workspace) error {
	row := &WorkspaceRow{
		ID:               ws.ID,
		Name:             ws.Name,
		Crs:              ws.Crs.EPSG,
		DistanceUnit:     ws.DistanceUnit.String(),
		GeometryValidity: ws.GeometryValidity.String(),
	}
	if err := w.a().db.WithContext(ctx).Create(row).Error; err != nil {
		return wrapGormErr("postgres.CreateWorkspace", err)
	}
	return nil
}

func (w *workspaceStore) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	var row WorkspaceRow
	if err := w.a().db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, wrapGormErr("postgres.GetWorkspace", err)
	}

	unit, err := models.ParseDistanceUnit(row.DistanceUnit)
	if err != nil {
		return nil, errs.Wrap(errs.Parse, "postgres.GetWorkspace", err)
	}
	validity, err := models.ParseValidityMode(row.GeometryValidity)
	if err != nil {
		return nil, errs.Wrap(errs.Parse, "postgres.GetWorkspace", err)
	}

	return &models.Workspace{
		ID:               row.ID,
		Name:             row.Name,
		Crs:              models.Crs{EPSG: row.Crs},
		DistanceUnit:     unit,
		GeometryValidity: validity,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}

func (w *workspaceStore) CreateIndexBuild(ctx context.Context, t storage.Transaction, b *models.IndexBuild) error {
	row := &IndexBuildRow{
		ID:                  b.ID,
		WorkspaceID:         b.WorkspaceID,
		Hash:                b.Fingerprint,
		EmbedderModel:       b.EmbedderModel,
		EmbeddingDimensions: b.EmbeddingDim,
		ChunkCount:          b.ChunkCount,
		BuiltAt:             b.BuiltAt,
		Current:             b.Current,
		RepairedDefects:     b.RepairedDefects,
		DatasetsIndexed:     b.DatasetsIndexed,
	}
	db := w.a().dbFor(ctx, t)
	if err := db.Create(row).Error; err != nil {
		return wrapGormErr("postgres.CreateIndexBuild", err)
	}
	return nil
}

func (w *workspaceStore) CurrentIndexBuild(ctx context.Context, workspaceID string) (*models.IndexBuild, error) {
	var row IndexBuildRow
	err := w.a().db.WithContext(ctx).
		Where("workspace_id = ? AND current = ?", workspaceID, true).
		First(&row).Error
	if err != nil {
		return nil, errs.New(errs.IndexNotBuilt, "no current index build for workspace").WithEntity(workspaceID)
	}
	return &models.IndexBuild{
		ID:              row.ID,
		WorkspaceID:     row.WorkspaceID,
		Fingerprint:     row.Hash,
		EmbedderModel:   row.EmbedderModel,
		EmbeddingDim:    row.EmbeddingDimensions,
		ChunkCount:      row.ChunkCount,
		BuiltAt:         row.BuiltAt,
		Current:         row.Current,
		RepairedDefects: row.RepairedDefects,
		DatasetsIndexed: row.DatasetsIndexed,
	}, nil
}

// SupersedeIndexBuild flips `current` off every prior build for
// workspaceID and on for newBuildID inside the same transaction the
// caller opened for Finalize, so a crash between the two updates is
// impossible: both run as one statement group under the build's
// transaction (§4.7 "tears down the prior build atomically only on
// success").
func (w *workspaceStore) SupersedeIndexBuild(ctx context.Context, t storage.Transaction, workspaceID, newBuildID string) error {
	db := w.a().dbFor(ctx, t)
	if err := db.Model(&IndexBuildRow{}).Where("workspace_id = ?", workspaceID).Update("current", false).Error; err != nil {
		return wrapGormErr("postgres.SupersedeIndexBuild", err)
	}
	res := db.Model(&IndexBuildRow{}).Where("id = ?", newBuildID).Update("current", true)
	if res.Error != nil {
		return wrapGormErr("postgres.SupersedeIndexBuild", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.New(errs.NotFound, "index build not found").WithEntity(newBuildID)
	}
	return nil
}

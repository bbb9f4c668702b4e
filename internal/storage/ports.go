// Package storage defines the three storage ports plus the transaction
// abstraction of §4.6, grounded on the ownership hierarchy of §3. Two
// adapters live under storage/memory (ephemeral; its transactions apply
// writes immediately under the adapter lock and Rollback undoes nothing)
// and storage/postgres (durable, GORM + pgvector + PostGIS).
package storage

import (
	"context"

	"georag/models"
)

// Transaction brackets one ingestion or one full index build -- exactly
// one transaction per dataset, per §4.6 -- with read-committed isolation.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// SpatialStore is CRUD for Dataset and Feature plus bbox/predicate
// lookups, delegating predicate evaluation to internal/geo and
// internal/spatial.
type SpatialStore interface {
	BeginTx(ctx context.Context) (Transaction, error)

	CreateDataset(ctx context.Context, tx Transaction, d *models.Dataset) error
	GetDataset(ctx context.Context, workspaceID, name string) (*models.Dataset, error)
	ListDatasets(ctx context.Context, workspaceID string) ([]*models.Dataset, error)
	UpdateDatasetBbox(ctx context.Context, tx Transaction, datasetID string, bbox models.Envelope) error
	DeleteDataset(ctx context.Context, tx Transaction, datasetID string) error

	UpsertFeatures(ctx context.Context, tx Transaction, datasetID string, features []*models.Feature) error
	ListFeatures(ctx context.Context, datasetID string) ([]*models.Feature, error)
	GetFeatureByRef(ctx context.Context, datasetID, featureID string) (*models.Feature, error)

	// QueryBBox returns every feature in workspaceID whose envelope
	// intersects bbox, across all of its datasets.
	QueryBBox(ctx context.Context, workspaceID string, bbox models.Envelope) ([]*models.Feature, error)
}

// VectorStore is insert/upsert for Embedding, top-K over a chunk-id set,
// and by-model purge (§4.6).
type VectorStore interface {
	UpsertEmbeddings(ctx context.Context, tx Transaction, embeddings []*models.Embedding) error
	TopK(ctx context.Context, workspaceID, model string, query []float32, k int, candidateChunkIDs []string) ([]VectorMatch, error)
	PurgeByModel(ctx context.Context, tx Transaction, workspaceID, model string) error
}

// VectorMatch is one VectorStore.TopK result.
type VectorMatch struct {
	ChunkID string
	Score   float64
}

// DocumentStore is CRUD for Document and Chunk (§4.6).
type DocumentStore interface {
	CreateDocument(ctx context.Context, tx Transaction, doc *models.Document) error
	GetDocument(ctx context.Context, documentID string) (*models.Document, error)
	ListDocumentsByDataset(ctx context.Context, datasetID string) ([]*models.Document, error)

	UpsertChunks(ctx context.Context, tx Transaction, chunks []*models.Chunk) error
	ListChunksByDataset(ctx context.Context, datasetID string) ([]*models.Chunk, error)
	GetChunk(ctx context.Context, chunkID string) (*models.Chunk, error)
	ClearFeatureRefs(ctx context.Context, tx Transaction, featureID string) error
}

// WorkspaceStore is CRUD for Workspace and IndexBuild, the records that
// sit above SpatialStore/VectorStore/DocumentStore's per-dataset scope.
type WorkspaceStore interface {
	CreateWorkspace(ctx context.Context, w *models.Workspace) error
	GetWorkspace(ctx context.Context, id string) (*models.Workspace, error)

	CreateIndexBuild(ctx context.Context, tx Transaction, b *models.IndexBuild) error
	CurrentIndexBuild(ctx context.Context, workspaceID string) (*models.IndexBuild, error)
	SupersedeIndexBuild(ctx context.Context, tx Transaction, workspaceID, newBuildID string) error
}

// Adapter bundles the four ports a Workspace Coordinator needs to drive
// ingestion, builds, and queries against one backing store.
type Adapter interface {
	Spatial() SpatialStore
	Vector() VectorStore
	Document() DocumentStore
	Workspace() WorkspaceStore
}

// Package memory is the ephemeral in-process storage adapter of §4.6: all
// state lives in maps guarded by a single RWMutex, and every mutating call
// applies directly under the write lock. Grounded on the teacher's
// database.TenantDBManager double-checked-lock idiom and the rest of the
// pack's brute-force memory vector stores
// (kxddry-rag-text-search/internal/vectorstore/memory,
// secmon-lab-hecatoncheires/pkg/repository/memory).
package memory

import (
	"context"
	"sync"

	"georag/internal/storage"
	"georag/models"
)

// Adapter is the in-memory implementation of storage.Adapter. It never
// persists to disk; the process that embeds it owns its durability story
// (or lack of one).
type Adapter struct {
	mu sync.RWMutex

	workspaces  map[string]*models.Workspace
	datasets    map[string]*models.Dataset
	features    map[string]*models.Feature // keyed by Feature.ID
	documents   map[string]*models.Document
	chunks      map[string]*models.Chunk
	embeddings  map[string]*models.Embedding // keyed by ChunkID+"/"+Model
	indexBuilds map[string][]*models.IndexBuild
}

func New() *Adapter {
	return &Adapter{
		workspaces:  make(map[string]*models.Workspace),
		datasets:    make(map[string]*models.Dataset),
		features:    make(map[string]*models.Feature),
		documents:   make(map[string]*models.Document),
		chunks:      make(map[string]*models.Chunk),
		embeddings:  make(map[string]*models.Embedding),
		indexBuilds: make(map[string][]*models.IndexBuild),
	}
}

func (a *Adapter) Spatial() storage.SpatialStore     { return (*spatialStore)(a) }
func (a *Adapter) Vector() storage.VectorStore       { return (*vectorStore)(a) }
func (a *Adapter) Document() storage.DocumentStore   { return (*documentStore)(a) }
func (a *Adapter) Workspace() storage.WorkspaceStore { return (*workspaceStore)(a) }

// tx is the in-memory Transaction: a no-op marker, since every mutating
// call below takes the adapter's write lock for its own duration and
// applies directly. There is nothing staged to commit or roll back by
// the time Commit/Rollback is called; this mirrors the "read-committed"
// semantics the durable adapter implements with a real SQL transaction,
// without needing copy-on-write staging for a backing store that has no
// crash-recovery requirement in the first place (§9: ephemeral storage is
// explicitly scoped out of the durability guarantee).
type tx struct{}

func (t *tx) Commit(ctx context.Context) error   { return nil }
func (t *tx) Rollback(ctx context.Context) error { return nil }

func newTx() storage.Transaction { return &tx{} }

func embeddingKey(chunkID, model string) string { return chunkID + "/" + model }

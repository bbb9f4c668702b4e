// Package workspace implements the Workspace Coordinator (§4.9): the
// owner of per-workspace concurrency policy, dataset ingestion, build
// dispatch, and query execution. Grounded on the teacher's
// internal/database.TenantDBManager -- a lazily built, mutex-guarded
// registry of per-tenant resources, generalized here from per-tenant
// Mongo databases to per-workspace locks.
package workspace

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"georag/internal/config"
	"georag/internal/embedding"
	"georag/internal/errs"
	"georag/internal/jobs"
	"georag/internal/retrieval"
	"georag/internal/storage"
	"georag/models"
)

// Builder is the subset of internal/builder's Builder the Coordinator
// drives directly when no background queue is configured.
type Builder interface {
	Build(ctx context.Context, workspaceID string, force bool) error
}

// locks is the per-workspace concurrency state of §5: mu arbitrates
// queries (read) against builds (write) on the whole workspace; datasets
// holds one mutex per dataset so ingestion of different datasets never
// blocks on mu at all.
type locks struct {
	mu       sync.RWMutex
	dsMu     sync.Mutex
	datasets map[string]*sync.Mutex
}

func newLocks() *locks {
	return &locks{datasets: make(map[string]*sync.Mutex)}
}

func (l *locks) datasetLock(key string) *sync.Mutex {
	l.dsMu.Lock()
	defer l.dsMu.Unlock()
	m, ok := l.datasets[key]
	if !ok {
		m = &sync.Mutex{}
		l.datasets[key] = m
	}
	return m
}

// Coordinator owns workspace-level invariants and concurrency. It holds
// the shared embedder and storage adapter but does not close them: Drain
// releases only the asynq client.
type Coordinator struct {
	store    storage.Adapter
	embedder embedding.Embedder
	builder  Builder
	pipeline *retrieval.Pipeline
	cfg      *config.Config
	queue    *asynq.Client // nil unless a job queue is configured

	registryMu sync.Mutex
	registry   map[string]*locks
}

// New wires a Coordinator around store and embedder. queue may be nil,
// in which case Build runs inline instead of being dispatched to
// cmd/worker.
func New(store storage.Adapter, embedder embedding.Embedder, builder Builder, cfg *config.Config, queue *asynq.Client) *Coordinator {
	return &Coordinator{
		store:    store,
		embedder: embedder,
		builder:  builder,
		pipeline: retrieval.New(store, embedder, cfg),
		cfg:      cfg,
		queue:    queue,
		registry: make(map[string]*locks),
	}
}

// Drain releases the shared resources the Coordinator owns -- the
// asynq client's connection pool -- on process shutdown.
func (c *Coordinator) Drain() error {
	if c.queue != nil {
		return c.queue.Close()
	}
	return nil
}

func (c *Coordinator) locksFor(workspaceID string) *locks {
	c.registryMu.Lock()
	defer c.registryMu.Unlock()
	l, ok := c.registry[workspaceID]
	if !ok {
		l = newLocks()
		c.registry[workspaceID] = l
	}
	return l
}

// Query runs plan against workspaceID under the workspace's shared read
// lock (§4.9, §5 "queries take only a shared read lock").
func (c *Coordinator) Query(ctx context.Context, workspaceID string, plan models.QueryPlan) (*retrieval.Result, error) {
	l := c.locksFor(workspaceID)
	l.mu.RLock()
	defer l.mu.RUnlock()
	return c.pipeline.Query(ctx, workspaceID, plan)
}

// Build runs (or enqueues) a workspace build under the workspace's
// exclusive write lock (§4.9, §5 "Build acquires write on the
// workspace"). When a job queue is configured the build is dispatched to
// cmd/worker and Build returns once the task is enqueued, not once the
// build completes; callers poll Status for readiness.
func (c *Coordinator) Build(ctx context.Context, workspaceID string, force bool) error {
	l := c.locksFor(workspaceID)

	if c.queue != nil {
		task, err := jobs.NewBuildIndexTask(workspaceID, force)
		if err != nil {
			return errs.Wrap(errs.Internal, "workspace.Build", err)
		}
		// The enqueue itself is quick; the exclusive lock is held only
		// long enough to serialize enqueue-vs-query ordering, not for
		// the build's duration -- the worker acquires no lock of its
		// own today, so a queued build can still race a concurrent
		// inline Build request. See DESIGN.md.
		l.mu.Lock()
		defer l.mu.Unlock()
		_, err = c.queue.EnqueueContext(ctx, task)
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return c.builder.Build(ctx, workspaceID, force)
}

// IngestDataset persists a parsed dataset (§6 "Ingest contract") under a
// per-dataset write lock, leaving other datasets in the workspace free
// to ingest concurrently (§5). dataset.ID is assigned if empty.
func (c *Coordinator) IngestDataset(ctx context.Context, workspaceID string, dataset *models.Dataset, features []*models.Feature, documents []*models.Document) error {
	l := c.locksFor(workspaceID)
	dsLock := l.datasetLock(dataset.Name)
	dsLock.Lock()
	defer dsLock.Unlock()

	if dataset.ID == "" {
		dataset.ID = uuid.New().String()
	}
	dataset.WorkspaceID = workspaceID
	dataset.FeatureCount = len(features)

	tx, err := c.store.Spatial().BeginTx(ctx)
	if err != nil {
		return err
	}
	if err := c.store.Spatial().CreateDataset(ctx, tx, dataset); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if len(features) > 0 {
		if err := c.store.Spatial().UpsertFeatures(ctx, tx, dataset.ID, features); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}
	for _, doc := range documents {
		if doc.ID == "" {
			doc.ID = uuid.New().String()
		}
		doc.DatasetID = dataset.ID
		if err := c.store.Document().CreateDocument(ctx, tx, doc); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}
	return tx.Commit(ctx)
}

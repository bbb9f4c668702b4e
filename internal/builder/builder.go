// Package builder implements the Index Builder finite state machine
// (§4.7): normalize, validate, chunk, embed, and fingerprint a
// workspace's datasets into a queryable index. Grounded on the
// teacher's internal/ai.GeminiClient-adjacent resilience idiom for the
// embedding phase and internal/telemetry/tracer.go for per-stage spans.
package builder

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"georag/internal/concurrency"
	"georag/internal/config"
	"georag/internal/embedding"
	"georag/internal/errs"
	"georag/internal/geo"
	"georag/internal/logger"
	"georag/internal/storage"
	"georag/models"
)

// featureDocumentSuffix names the synthetic Document every dataset gets
// to own its Feature-derived chunks, so chunks.document_id stays NOT
// NULL without Features owning Chunks directly -- §3 draws Chunk
// ownership from Document only, and a Feature yields exactly one Chunk
// (§4.3) that still needs somewhere to live.
const featureDocumentSuffix = "__features"

// Builder drives one workspace's build pipeline against a storage
// Adapter and an Embedder. It tracks in-flight builds per workspace so
// a second concurrent request for the same workspace fails with
// Conflict (§4.7) instead of racing.
type Builder struct {
	store    storage.Adapter
	embedder embedding.Embedder
	cfg      *config.Config

	mu      sync.Mutex
	running map[string]bool
}

func New(store storage.Adapter, embedder embedding.Embedder, cfg *config.Config) *Builder {
	return &Builder{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		running:  make(map[string]bool),
	}
}

func (b *Builder) acquire(workspaceID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running[workspaceID] {
		return errs.New(errs.Conflict, "a build is already running for this workspace").
			WithOp("builder.Build").WithEntity(workspaceID)
	}
	b.running[workspaceID] = true
	return nil
}

func (b *Builder) release(workspaceID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.running, workspaceID)
}

// Build runs the full Idle->Normalizing->Validating->Chunking->Embedding
// ->Finalizing->Ready pipeline for workspaceID, satisfying the
// internal/jobs.Builder contract the background queue dispatches
// against. force bypasses the fingerprint-unchanged short-circuit and
// always embeds and finalizes a new IndexBuild; on failure from any
// stage the prior current build is left untouched (§4.7).
func (b *Builder) Build(ctx context.Context, workspaceID string, force bool) error {
	if err := b.acquire(workspaceID); err != nil {
		return err
	}
	defer b.release(workspaceID)

	tracer := otel.Tracer("georag.builder")
	ctx, span := tracer.Start(ctx, "builder.Build")
	defer span.End()
	span.SetAttributes(attribute.String("workspace_id", workspaceID), attribute.Bool("force", force))

	logger.Info("index build started", "workspace_id", workspaceID, "force", force)

	ws, err := b.store.Workspace().GetWorkspace(ctx, workspaceID)
	if err != nil {
		return b.fail(workspaceID, err)
	}

	datasets, err := b.store.Spatial().ListDatasets(ctx, workspaceID)
	if err != nil {
		return b.fail(workspaceID, err)
	}

	_, normalizeSpan := tracer.Start(ctx, "builder.normalize")
	normalized, repairsByDataset, err := b.normalizeAndValidate(ctx, ws, datasets)
	normalizeSpan.End()
	if err != nil {
		return b.fail(workspaceID, err)
	}

	_, chunkSpan := tracer.Start(ctx, "builder.chunk")
	records, err := b.chunkAllMode(ctx, ws, datasets, true, normalized)
	chunkSpan.End()
	if err != nil {
		return b.fail(workspaceID, err)
	}
	sortChunkRecords(records)

	if err := b.persistChunks(ctx, records); err != nil {
		return b.fail(workspaceID, err)
	}

	fp, err := fingerprint(ws, b.cfg.EmbedderModel, b.embedder.Dimension(b.cfg.EmbedderModel), records)
	if err != nil {
		return b.fail(workspaceID, err)
	}

	if !force {
		if current, err := b.store.Workspace().CurrentIndexBuild(ctx, workspaceID); err == nil && current.Fingerprint == fp {
			logger.Info("index build skipped, fingerprint unchanged", "workspace_id", workspaceID, "fingerprint", fp)
			return nil
		}
	}

	_, embedSpan := tracer.Start(ctx, "builder.embed")
	err = b.embedAll(ctx, ws, records)
	embedSpan.End()
	if err != nil {
		return b.fail(workspaceID, err)
	}

	build := &models.IndexBuild{
		ID:              uuid.NewString(),
		WorkspaceID:     workspaceID,
		Fingerprint:     fp,
		EmbedderModel:   b.cfg.EmbedderModel,
		EmbeddingDim:    b.embedder.Dimension(b.cfg.EmbedderModel),
		ChunkCount:      len(records),
		BuiltAt:         time.Now().UTC(),
		Current:         true,
		RepairedDefects: sumRepairs(repairsByDataset),
		DatasetsIndexed: len(datasets),
	}
	if err := b.finalize(ctx, workspaceID, build); err != nil {
		return b.fail(workspaceID, err)
	}

	logger.Info("index build finished", "workspace_id", workspaceID, "fingerprint", fp, "chunks", len(records))
	return nil
}

func (b *Builder) fail(workspaceID string, err error) error {
	logger.Error("index build failed", "workspace_id", workspaceID, "error", err)
	return err
}

// normalizeAndValidate reprojects each Feature's geometry into the
// workspace CRS when the dataset declared a different one (logical
// only; the persisted form stays 4326), then applies the workspace's
// validity policy, persisting repairs when cfg.PersistRepairs is set
// (§9 Open Question b). It returns the normalized features keyed by
// dataset id so the chunking stage that follows chunks against the
// logically-normalized geometry even when PersistRepairs leaves
// storage untouched.
func (b *Builder) normalizeAndValidate(ctx context.Context, ws *models.Workspace, datasets []*models.Dataset) (map[string][]*models.Feature, map[string]int, error) {
	repairs := make(map[string]int, len(datasets))
	normalized := make(map[string][]*models.Feature, len(datasets))

	for _, ds := range datasets {
		if err := concurrency.Check(ctx); err != nil {
			return nil, nil, err
		}

		features, err := b.store.Spatial().ListFeatures(ctx, ds.ID)
		if err != nil {
			return nil, nil, err
		}

		var repaired []*models.Feature
		count := 0
		for i, f := range features {
			if err := concurrency.CheckBatch(ctx, i, concurrency.SpatialBatchSize); err != nil {
				return nil, nil, err
			}

			// Work on a copy so reprojection and repair never alter the
			// stored Feature; only the PersistRepairs upsert below writes back.
			nf := *f
			f = &nf
			features[i] = f

			if !geo.CrsMatch(ds.DeclaredCrs, ws.Crs) {
				reprojected, err := geo.Reproject(f.Geometry, ds.DeclaredCrs, ws.Crs)
				if err != nil {
					return nil, nil, errs.Wrap(errs.CrsError, "builder.normalizeAndValidate", err).WithEntity(f.ID)
				}
				f.Geometry = reprojected
			}

			fixed, n, err := geo.Normalize(f.Geometry, ws.GeometryValidity)
			if err != nil {
				return nil, nil, errs.Wrap(errs.GeometryError, "builder.normalizeAndValidate", err).WithEntity(f.ID)
			}
			if n > 0 {
				count += n
				f.Geometry = fixed
				if b.cfg.PersistRepairs {
					repaired = append(repaired, f)
				}
			}
		}
		repairs[ds.ID] = count
		normalized[ds.ID] = features

		if len(repaired) > 0 {
			tx, err := b.store.Spatial().BeginTx(ctx)
			if err != nil {
				return nil, nil, err
			}
			if err := b.store.Spatial().UpsertFeatures(ctx, tx, ds.ID, repaired); err != nil {
				_ = tx.Rollback(ctx)
				return nil, nil, err
			}
			if err := tx.Commit(ctx); err != nil {
				return nil, nil, err
			}
		}
	}

	return normalized, repairs, nil
}

func sumRepairs(byDataset map[string]int) int {
	total := 0
	for _, n := range byDataset {
		total += n
	}
	return total
}

// Package retrieval implements the hybrid query pipeline of §4.8: a
// spatial phase, a text phase, a semantic phase, and grounding, each
// narrowing the candidate set before the next, grounded on the
// teacher's routes/chat.go request-handling shape generalized from one
// LLM call into the four-stage pipeline this domain needs.
package retrieval

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"georag/internal/concurrency"
	"georag/internal/config"
	"georag/internal/embedding"
	"georag/internal/storage"
	"georag/models"
)

// Pipeline runs QueryPlans against one storage Adapter and Embedder.
type Pipeline struct {
	store    storage.Adapter
	embedder embedding.Embedder
	cfg      *config.Config
}

func New(store storage.Adapter, embedder embedding.Embedder, cfg *config.Config) *Pipeline {
	return &Pipeline{store: store, embedder: embedder, cfg: cfg}
}

// Result is the pipeline's output: ranked, grounded SearchResults plus
// the per-stage candidate counts §4.8 calls the explanation.
type Result struct {
	Results     []models.SearchResult
	Explanation models.Explanation
}

// candidate is one Chunk carrying just enough context to resolve a
// SourceRef and participate in the spatial/text/semantic phases without
// re-querying storage at every stage.
type candidate struct {
	chunk        *models.Chunk
	datasetName  string
	documentName *string // nil for a Feature-derived chunk
}

func (c candidate) featureID() *string { return c.chunk.FeatureRef }

// Query runs the full pipeline for plan against workspaceID, per §4.8.
// It fails IndexNotBuilt if the workspace has no current IndexBuild,
// propagates CrsError from an unreprojectable spatial filter, and fails
// EmbedderUnavailable if rerank is requested and the Embedder errors,
// unless cfg.AllowRerankFallback permits falling back to unscored
// results.
func (p *Pipeline) Query(ctx context.Context, workspaceID string, plan models.QueryPlan) (*Result, error) {
	tracer := otel.Tracer("georag.retrieval")
	ctx, span := tracer.Start(ctx, "retrieval.Query")
	defer span.End()
	span.SetAttributes(attribute.String("workspace_id", workspaceID))

	var cancel context.CancelFunc
	switch {
	case plan.Deadline > 0:
		ctx, cancel = concurrency.WithCustomTimeout(ctx, time.Duration(plan.Deadline*float64(time.Second)))
	case p.cfg.PipelineDeadlineSeconds > 0:
		ctx, cancel = concurrency.WithCustomTimeout(ctx, time.Duration(p.cfg.PipelineDeadlineSeconds)*time.Second)
	default:
		ctx, cancel = concurrency.WithPipelineDeadline(ctx)
	}
	defer cancel()

	ws, err := p.store.Workspace().GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	build, err := p.store.Workspace().CurrentIndexBuild(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	candidates, predicate, err := p.spatialPhase(ctx, ws, plan)
	if err != nil {
		return nil, err
	}
	explanation := models.Explanation{SpatialCandidates: len(candidates), Predicate: predicate}

	candidates = textPhase(candidates, plan.Filter())
	explanation.AfterTextFilter = len(candidates)

	scored, err := p.semanticPhase(ctx, build, candidates, plan)
	if err != nil {
		return nil, err
	}
	explanation.Reranked = len(scored)

	results := ground(scored)
	sortResults(results)

	topK := plan.TopKOrDefault()
	if len(results) > topK {
		results = results[:topK]
	}

	return &Result{Results: results, Explanation: explanation}, nil
}

// sortResults applies §4.8's ordering policy: strict descending score,
// ties broken by (dataset name asc, feature id asc, chunk_index asc).
func sortResults(results []models.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Source.Dataset != b.Source.Dataset {
			return a.Source.Dataset < b.Source.Dataset
		}
		if c := compareOptionalString(a.Source.FeatureID, b.Source.FeatureID); c != 0 {
			return c < 0
		}
		return a.Source.ChunkIndex < b.Source.ChunkIndex
	})
}

func compareOptionalString(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a == *b:
		return 0
	case *a < *b:
		return -1
	default:
		return 1
	}
}

// normalizeWhitespace collapses runs of whitespace to a single space for
// the substring keyword matching §4.8's text phase requires.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package retrieval

import (
	"context"
	"sort"

	"georag/internal/errs"
	"georag/models"
)

// scoredCandidate pairs a candidate with the score it earned in the
// semantic phase.
type scoredCandidate struct {
	candidate
	score float64
}

// semanticPhase resolves §4.8 stage 3. When plan.Rerank is true it embeds
// the query text and ranks candidates by cosine similarity via the
// vector store, restricted to the candidate chunk ids; when false it
// takes the first TopKOrDefault candidates in spatial-then-lexicographic
// order with score 1.0. An EmbedderUnavailable failure during rerank
// fails the query unless cfg.AllowRerankFallback permits falling back to
// the unscored ordering.
func (p *Pipeline) semanticPhase(ctx context.Context, build *models.IndexBuild, candidates []candidate, plan models.QueryPlan) ([]scoredCandidate, error) {
	topK := plan.TopKOrDefault()

	if !plan.Rerank {
		return unscored(candidates, topK), nil
	}

	scored, err := p.rerank(ctx, build, candidates, plan.Text, topK)
	if err != nil {
		if errs.KindOf(err) == errs.EmbedderUnavailable && p.cfg.AllowRerankFallback {
			return unscored(candidates, topK), nil
		}
		return nil, err
	}
	return scored, nil
}

func (p *Pipeline) rerank(ctx context.Context, build *models.IndexBuild, candidates []candidate, queryText string, topK int) ([]scoredCandidate, error) {
	if p.embedder == nil {
		return nil, errs.New(errs.EmbedderUnavailable, "no embedder configured")
	}

	vectors, err := p.embedder.Embed(ctx, build.EmbedderModel, []string{queryText})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, errs.New(errs.EmbedderUnavailable, "embedder returned no vector for query text")
	}

	byID := make(map[string]candidate, len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		byID[c.chunk.ID] = c
		ids = append(ids, c.chunk.ID)
	}

	matches, err := p.store.Vector().TopK(ctx, build.WorkspaceID, build.EmbedderModel, vectors[0], topK, ids)
	if err != nil {
		return nil, err
	}

	out := make([]scoredCandidate, 0, len(matches))
	for _, m := range matches {
		c, ok := byID[m.ChunkID]
		if !ok {
			continue
		}
		out = append(out, scoredCandidate{candidate: c, score: m.Score})
	}
	return out, nil
}

// unscored returns the first topK candidates ordered by (dataset, feature_id,
// chunk_index) with a flat score of 1.0, per §4.8's non-rerank path -- the
// same tie-break sortResults applies to ranked results.
func unscored(candidates []candidate, topK int) []scoredCandidate {
	ordered := make([]candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.datasetName != b.datasetName {
			return a.datasetName < b.datasetName
		}
		if c := compareOptionalString(a.featureID(), b.featureID()); c != 0 {
			return c < 0
		}
		return a.chunk.Index < b.chunk.Index
	})
	if len(ordered) > topK {
		ordered = ordered[:topK]
	}
	out := make([]scoredCandidate, len(ordered))
	for i, c := range ordered {
		out[i] = scoredCandidate{candidate: c, score: 1.0}
	}
	return out
}

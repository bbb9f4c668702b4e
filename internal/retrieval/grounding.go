package retrieval

import (
	"unicode/utf8"

	"georag/models"
)

const (
	excerptMaxLen   = 500
	excerptEllipsis = "..."
)

// ground converts scored candidates into presentation-ready SearchResults
// per §4.8's Grounding stage: excerpts are truncated at 500 characters
// with an ellipsis, and each result carries a SourceRef back to its
// dataset, feature, document, and chunk index.
func ground(scored []scoredCandidate) []models.SearchResult {
	out := make([]models.SearchResult, 0, len(scored))
	for _, s := range scored {
		out = append(out, models.SearchResult{
			ChunkID: s.chunk.ID,
			Excerpt: truncate(s.chunk.Content, excerptMaxLen),
			Score:   s.score,
			Source: models.SourceRef{
				Dataset:      s.datasetName,
				FeatureID:    s.featureID(),
				DocumentName: s.documentName,
				ChunkIndex:   s.chunk.Index,
			},
			Geometry: s.chunk.Geometry,
		})
	}
	return out
}

// truncate returns s unchanged if it is already at most max characters
// (runes), and otherwise a rune-safe prefix plus an ellipsis, the whole no
// longer than max characters.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	keep := max - utf8.RuneCountInString(excerptEllipsis)
	cut := 0
	for i := range s {
		if keep == 0 {
			cut = i
			break
		}
		keep--
	}
	return s[:cut] + excerptEllipsis
}

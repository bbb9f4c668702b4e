package models

// TextFilter is the lexical half of a QueryPlan (§4.8). Keyword matching
// is a case-insensitive substring match over normalized whitespace.
type TextFilter struct {
	MustContain []string
	Exclude     []string
}

// QueryPlan is the input to the Retrieval Pipeline (§4.8).
type QueryPlan struct {
	Text     string
	Spatial  *SpatialFilter
	Lexical  *TextFilter
	TopK     int
	Rerank   bool
	Deadline float64 // seconds; 0 means use the pipeline default
}

// Filter returns the text filter, defaulting to an empty (no-op) one.
func (q QueryPlan) Filter() TextFilter {
	if q.Lexical == nil {
		return TextFilter{}
	}
	return *q.Lexical
}

// TopKOrDefault returns TopK, defaulting to 10 per §4.8.
func (q QueryPlan) TopKOrDefault() int {
	if q.TopK <= 0 {
		return 10
	}
	return q.TopK
}

// SourceRef identifies where a SearchResult's excerpt came from.
type SourceRef struct {
	Dataset      string
	FeatureID    *string
	DocumentName *string
	ChunkIndex   int
}

// SearchResult is one ranked, grounded excerpt returned by the pipeline
// (§4.8 "Grounding"). Score is in [-1,1]; callers that need a
// presentation-friendly score should clamp to [0,1] themselves, as the
// contract in §6 expects.
type SearchResult struct {
	ChunkID  string
	Excerpt  string
	Score    float64
	Source   SourceRef
	Geometry *Geometry
}

// Explanation reports per-stage candidate counts and the resolved
// spatial predicate, per §4.8.
type Explanation struct {
	SpatialCandidates int    `json:"spatial_candidates"`
	AfterTextFilter   int    `json:"after_text_filter"`
	Reranked          int    `json:"reranked"`
	Predicate         string `json:"predicate"`
}

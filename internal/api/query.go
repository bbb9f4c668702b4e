package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"georag/internal/errs"
	"georag/models"
)

// spatialFilterRequest mirrors §6's "spatial" query request member.
type spatialFilterRequest struct {
	Predicate string           `json:"predicate"`
	Geometry  *models.Geometry `json:"geometry"`
	Distance  string           `json:"distance,omitempty"`
}

// queryRequest mirrors §6's POST /query JSON request body.
type queryRequest struct {
	Text        string                `json:"text"`
	BBox        []float64             `json:"bbox,omitempty"`
	Spatial     *spatialFilterRequest `json:"spatial,omitempty"`
	MustContain []string              `json:"must_contain,omitempty"`
	Exclude     []string              `json:"exclude,omitempty"`
	TopK        int                   `json:"top_k,omitempty"`
	Rerank      bool                  `json:"rerank,omitempty"`
	Explain     bool                  `json:"explain,omitempty"`
}

// toQueryPlan converts the wire request into a models.QueryPlan, resolving
// the bare bbox shorthand into a BBox SpatialFilter and the spatial block's
// predicate/distance literals via their respective parsers.
func (r queryRequest) toQueryPlan() (models.QueryPlan, error) {
	plan := models.QueryPlan{
		Text:   r.Text,
		TopK:   r.TopK,
		Rerank: r.Rerank,
	}

	if len(r.MustContain) > 0 || len(r.Exclude) > 0 {
		plan.Lexical = &models.TextFilter{MustContain: r.MustContain, Exclude: r.Exclude}
	}

	switch {
	case len(r.BBox) == 4:
		geom := models.NewBBoxPolygon(r.BBox[0], r.BBox[1], r.BBox[2], r.BBox[3])
		plan.Spatial = &models.SpatialFilter{Predicate: models.BBox, Geometry: geom, Crs: models.WGS84()}
	case len(r.BBox) != 0:
		return plan, errs.New(errs.InvalidInput, "bbox must have exactly 4 elements [minLng,minLat,maxLng,maxLat]")
	case r.Spatial != nil:
		if r.Spatial.Geometry == nil {
			return plan, errs.New(errs.InvalidInput, "spatial.geometry is required")
		}
		predicate, err := models.ParseSpatialPredicate(r.Spatial.Predicate)
		if err != nil {
			return plan, errs.Wrap(errs.InvalidInput, "api.toQueryPlan", err)
		}
		filter := &models.SpatialFilter{Predicate: predicate, Geometry: *r.Spatial.Geometry, Crs: models.WGS84()}
		if r.Spatial.Distance != "" {
			dist, err := models.ParseDistanceLiteral(r.Spatial.Distance)
			if err != nil {
				return plan, errs.Wrap(errs.InvalidInput, "api.toQueryPlan", err)
			}
			filter.Distance = &dist
		}
		plan.Spatial = filter
	}

	return plan, nil
}

// featureResponse mirrors one GeoJSON Feature in §6's query response.
type featureResponse struct {
	Type       string         `json:"type"`
	Geometry   *models.Geometry `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// queryResponse mirrors §6's query response: a GeoJSON FeatureCollection
// with an optional sibling explain object.
type queryResponse struct {
	Type     string              `json:"type"`
	Features []featureResponse   `json:"features"`
	Explain  *models.Explanation `json:"explain,omitempty"`
}

func toQueryResponse(results []models.SearchResult, explanation models.Explanation, explain bool) queryResponse {
	features := make([]featureResponse, 0, len(results))
	for _, r := range results {
		props := map[string]any{
			"score":         clampScore(r.Score),
			"excerpt":       r.Excerpt,
			"dataset":       r.Source.Dataset,
			"feature_id":    r.Source.FeatureID,
			"chunk_index":   r.Source.ChunkIndex,
			"document_name": r.Source.DocumentName,
		}
		features = append(features, featureResponse{
			Type:       "Feature",
			Geometry:   r.Geometry,
			Properties: props,
		})
	}

	resp := queryResponse{Type: "FeatureCollection", Features: features}
	if explain {
		e := explanation
		resp.Explain = &e
	}
	return resp
}

// clampScore presents a SearchResult's score (cosine similarity, [-1,1])
// as the [0,1] range §6's query contract expects.
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// handleQuery serves POST /query (§6).
func (s *Server) handleQuery(c *gin.Context) {
	start := time.Now()

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errs.Wrap(errs.Parse, "api.handleQuery", err))
		return
	}

	plan, err := req.toQueryPlan()
	if err != nil {
		writeError(c, err)
		return
	}

	workspaceID := c.Query("workspace_id")
	if workspaceID == "" {
		writeError(c, errs.New(errs.InvalidInput, "workspace_id query parameter is required"))
		return
	}

	result, err := s.coordinator.Query(c.Request.Context(), workspaceID, plan)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordQuery(workspaceID, time.Since(start).Seconds(), "error")
		}
		writeError(c, err)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordQuery(workspaceID, time.Since(start).Seconds(), "ok")
	}

	c.JSON(http.StatusOK, toQueryResponse(result.Results, result.Explanation, req.Explain))
}

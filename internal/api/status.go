package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// statusResponse mirrors §6's GET /workspaces/{id}/status response: the
// index integrity surface plus the readiness booleans behind it.
type statusResponse struct {
	Ready            bool    `json:"ready"`
	DatasetCount     int     `json:"dataset_count"`
	HasCurrentBuild  bool    `json:"has_current_build"`
	ModelMatches     bool    `json:"embedder_model_matches"`
	DimensionMatches bool    `json:"embedder_dimension_matches"`
	Hash             string  `json:"hash,omitempty"`
	BuiltAt          string  `json:"built_at,omitempty"`
	Embedder         string  `json:"embedder,omitempty"`
	ChunkCount       int     `json:"chunk_count,omitempty"`
	EmbeddingDim     int     `json:"embedding_dim,omitempty"`
}

// handleStatus serves GET /workspaces/:id/status (§6, §4.9).
func (s *Server) handleStatus(c *gin.Context) {
	workspaceID := c.Param("id")

	st, err := s.coordinator.Status(c.Request.Context(), workspaceID)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := statusResponse{
		Ready:            st.Ready(),
		DatasetCount:     st.DatasetCount,
		HasCurrentBuild:  st.HasCurrentBuild,
		ModelMatches:     st.ModelMatches,
		DimensionMatches: st.DimensionMatches,
	}
	if st.CurrentBuild != nil {
		resp.Hash = st.CurrentBuild.Fingerprint
		resp.BuiltAt = st.CurrentBuild.BuiltAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		resp.Embedder = st.CurrentBuild.EmbedderModel
		resp.ChunkCount = st.CurrentBuild.ChunkCount
		resp.EmbeddingDim = st.CurrentBuild.EmbeddingDim
	}

	c.JSON(http.StatusOK, resp)
}

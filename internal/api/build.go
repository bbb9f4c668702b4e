package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"georag/internal/errs"
)

// buildRequest mirrors §6's POST /workspaces/{id}/build request body.
type buildRequest struct {
	Force bool `json:"force,omitempty"`
}

// handleBuild serves POST /workspaces/:id/build (§6).
func (s *Server) handleBuild(c *gin.Context) {
	start := time.Now()
	workspaceID := c.Param("id")

	var req buildRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, errs.Wrap(errs.Parse, "api.handleBuild", err))
			return
		}
	}

	err := s.coordinator.Build(c.Request.Context(), workspaceID, req.Force)
	if s.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.RecordBuild(workspaceID, time.Since(start).Seconds(), outcome)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"workspace_id": workspaceID, "status": "building"})
}

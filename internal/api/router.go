// Package api implements the thin JSON surface of §6: POST /query,
// POST /workspaces/:id/build, GET /workspaces/:id/status. Grounded on
// the teacher's routes/chat.go handler shape and
// middleware/cors.go+request_id.go, decoupled from any auth/tenancy
// concern the teacher's version carried -- this surface has none.
package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"georag/internal/config"
	"georag/internal/telemetry"
	"georag/internal/workspace"
)

// Server wires the Workspace Coordinator into a gin.Engine.
type Server struct {
	coordinator *workspace.Coordinator
	metrics     *telemetry.Metrics
	engine      *gin.Engine
}

// New builds a Server. metrics may be nil, in which case request
// counters and histograms are skipped.
func New(coordinator *workspace.Coordinator, metrics *telemetry.Metrics, cfg *config.Config) *Server {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(RequestID())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	s := &Server{coordinator: coordinator, metrics: metrics, engine: router}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	s.engine.POST("/query", s.handleQuery)
	s.engine.POST("/workspaces/:id/build", s.handleBuild)
	s.engine.GET("/workspaces/:id/status", s.handleStatus)
}

// Handler exposes the underlying gin.Engine for http.Server wiring.
func (s *Server) Handler() *gin.Engine { return s.engine }

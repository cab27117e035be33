// Package api serves the knowledge graph engine over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kaybee/backend/internal/engine"
	"kaybee/backend/internal/metrics"
	"kaybee/backend/internal/tools"
	"kaybee/backend/pkg/logger"
)

// Server holds the handlers' dependencies
type Server struct {
	engine   *engine.Engine
	executor *tools.Executor
	metrics  *metrics.Collector
	backend  string
	logger   *zap.Logger
}

// NewServer creates the HTTP handlers. backend is only reported by /health.
func NewServer(eng *engine.Engine, executor *tools.Executor, collector *metrics.Collector, backend string) *Server {
	return &Server{
		engine:   eng,
		executor: executor,
		metrics:  collector,
		backend:  backend,
		logger:   logger.Named("api"),
	}
}

// Router builds the gin engine with middleware and every route
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(requestID())
	router.Use(ginLogger(s.logger))
	router.Use(gin.Recovery())
	router.Use(instrument(s.metrics))
	router.Use(cors())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": s.backend})
	})
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	// API routes
	api := router.Group("/api")
	{
		api.GET("/tools", s.listTools)

		graphs := api.Group("/graphs/:graph_id")
		graphs.GET("", s.getGraph)
		graphs.POST("/neighborhood", s.neighborhood)
		graphs.POST("/replacement", s.applyReplacement)
		graphs.POST("/commit", s.commitModelOutput)
		graphs.GET("/random", s.randomEntity)
		graphs.POST("/describe", s.describe)
		graphs.POST("/tools/call", s.callTool)
	}

	return router
}

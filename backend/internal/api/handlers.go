package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kaybee/backend/internal/adapter"
	"kaybee/backend/internal/graph"
	"kaybee/backend/internal/neighborhood"
	"kaybee/backend/internal/tools"
	kberrors "kaybee/backend/pkg/errors"
)

type neighborhoodRequest struct {
	Names []string `json:"names" binding:"required,min=1"`
	Hops  *int     `json:"hops" binding:"omitempty,min=1,max=16"`
}

type replacementRequest struct {
	Original    *graph.Subgraph    `json:"original"`
	Replacement *graph.Replacement `json:"replacement" binding:"required"`
}

type commitRequest struct {
	Original *graph.Subgraph `json:"original"`
	Content  string          `json:"content"`
	Partial  bool            `json:"partial"`
}

type describeRequest struct {
	Names  []string `json:"names" binding:"required,min=1"`
	Expand bool     `json:"expand"` // append the graph id for a model that will patch the graph
}

type toolCallRequest struct {
	ID        string          `json:"id"`
	Name      string          `json:"name" binding:"required"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) neighborhood(c *gin.Context) {
	var req neighborhoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	graphID := c.Param("graph_id")
	hops := s.engine.Hops()
	if req.Hops != nil {
		hops = *req.Hops
	}

	sub, err := s.engine.Neighborhood(c.Request.Context(), graphID, req.Names, hops)
	if err != nil {
		s.fail(c, "Failed to extract neighborhood", err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Server) applyReplacement(c *gin.Context) {
	var req replacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.engine.ApplyReplacement(c.Request.Context(), c.Param("graph_id"), req.Original, req.Replacement)
	if err != nil {
		s.fail(c, "Failed to apply replacement", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) commitModelOutput(c *gin.Context) {
	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	output := tools.ModelOutput{Content: req.Content, Partial: req.Partial}
	result, err := s.executor.CommitReplacement(c.Request.Context(), c.Param("graph_id"), req.Original, output)
	if err != nil {
		s.fail(c, "Failed to commit model output", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) randomEntity(c *gin.Context) {
	hops := 1
	if raw := c.Query("hops"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > neighborhood.MaxHops {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("hops must be an integer between 1 and %d", neighborhood.MaxHops)})
			return
		}
		hops = n
	}

	pick, found, err := s.engine.RandomEntity(c.Request.Context(), c.Param("graph_id"), hops)
	if err != nil {
		s.fail(c, "Failed to pick random entity", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Knowledge graph is empty"})
		return
	}
	c.JSON(http.StatusOK, pick)
}

func (s *Server) describe(c *gin.Context) {
	var req describeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	describe := s.engine.Describe
	if req.Expand {
		describe = s.engine.ExpandQuery
	}
	text, err := describe(c.Request.Context(), c.Param("graph_id"), req.Names)
	if err != nil {
		s.fail(c, "Failed to describe neighborhood", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

func (s *Server) getGraph(c *gin.Context) {
	g, version, err := s.engine.Graph(c.Request.Context(), c.Param("graph_id"))
	if err != nil {
		s.fail(c, "Failed to load graph", err)
		return
	}
	if version != "" {
		c.Header("ETag", strconv.Quote(version))
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) listTools(c *gin.Context) {
	c.JSON(http.StatusOK, adapter.ToOpenAITools(tools.GetAllTools()))
}

func (s *Server) callTool(c *gin.Context) {
	var req toolCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := tools.Lookup(req.Name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	args, err := toolArguments(req.Arguments)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	execCtx := &tools.ExecutionContext{
		GraphID:   c.Param("graph_id"),
		RequestID: c.GetString(keyRequestID),
	}
	result := s.executor.Execute(c.Request.Context(), execCtx, adapter.ToolCall{
		ID:        req.ID,
		Name:      req.Name,
		Arguments: args,
	})
	c.JSON(http.StatusOK, result)
}

// toolArguments accepts arguments as a JSON object or, as models send them, a JSON string
func toolArguments(raw json.RawMessage) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return make(map[string]interface{}), nil
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		return adapter.ParseJSONArguments(encoded)
	}
	return adapter.ParseJSONArguments(string(raw))
}

// fail maps engine errors onto status codes
func (s *Server) fail(c *gin.Context, msg string, err error) {
	_ = c.Error(err)

	switch {
	case kberrors.IsInput(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case kberrors.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case kberrors.IsErrorType(err, kberrors.ErrorTypeContext):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request cancelled"})
	default:
		s.logger.Error(msg,
			zap.String("graph_id", c.Param("graph_id")),
			zap.String("request_id", c.GetString(keyRequestID)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Playground/backend/internal/logging"
	"github.com/GriffinCanCode/Playground/backend/internal/monitoring"
	"github.com/GriffinCanCode/Playground/backend/internal/playground"
	"github.com/GriffinCanCode/Playground/backend/internal/protocol"
	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
	"github.com/GriffinCanCode/Playground/backend/internal/snippets"
)

// Handlers serves the REST surface of the playground.
type Handlers struct {
	config   playground.Config
	gate     *sandbox.Gate
	snippets *snippets.Registry
	metrics  *monitoring.Metrics
	logger   *logging.Logger
}

// NewHandlers creates the REST handlers.
func NewHandlers(config playground.Config, gate *sandbox.Gate, registry *snippets.Registry, metrics *monitoring.Metrics, logger *logging.Logger) *Handlers {
	return &Handlers{
		config:   config,
		gate:     gate,
		snippets: registry,
		metrics:  metrics,
		logger:   logger.Named("http"),
	}
}

// Root serves service identification.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "js-playground",
		"status":  "running",
	})
}

// Health serves liveness plus runner gate statistics.
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status": "healthy",
	}
	if h.metrics != nil {
		resp["uptime_seconds"] = h.metrics.Uptime().Seconds()
	}
	if h.gate != nil {
		resp["runners"] = h.gate.Stats()
	}
	c.JSON(http.StatusOK, resp)
}

// ExecuteRequest is one stateless run request.
type ExecuteRequest struct {
	Source string `json:"source" binding:"required"`
}

// ExecuteResponse carries the collected output of one run.
type ExecuteResponse struct {
	RunID  string                 `json:"run_id"`
	Events []protocol.OutputEvent `json:"events"`
	Error  string                 `json:"error,omitempty"`
}

// Execute runs source in a throwaway session and responds once the runner
// is torn down. Execution faults land in events; only setup faults populate
// the error field.
func (h *Handlers) Execute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source is required"})
		return
	}

	ctrl := playground.New(h.config).
		WithGate(h.gate).
		WithMetrics(h.metrics).
		WithLogger(h.logger)

	ctrl.SetSource(req.Source)
	run := ctrl.Run()

	select {
	case <-run.Done():
	case <-c.Request.Context().Done():
		h.logger.Debug("Client gone before teardown", zap.String("run_id", run.ID))
		<-run.Done()
	}

	c.JSON(http.StatusOK, ExecuteResponse{
		RunID:  run.ID,
		Events: ctrl.Output(),
		Error:  ctrl.Banner(),
	})
}

// ListSnippets serves the built-in example programs.
func (h *Handlers) ListSnippets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"snippets": h.snippets.List(),
	})
}

// GetSnippet serves one snippet by ID.
func (h *Handlers) GetSnippet(c *gin.Context) {
	snip, ok := h.snippets.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "snippet not found"})
		return
	}
	c.JSON(http.StatusOK, snip)
}

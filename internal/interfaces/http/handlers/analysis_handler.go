package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ligandscope/internal/application/analysis"
	"github.com/turtacn/ligandscope/internal/engine"
	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscope/pkg/errors"
)

// AnalysisHandler exposes analysis job submission and retrieval.
type AnalysisHandler struct {
	service analysis.Service
	logger  logging.Logger
}

// NewAnalysisHandler creates an AnalysisHandler.
func NewAnalysisHandler(service analysis.Service, logger logging.Logger) *AnalysisHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &AnalysisHandler{service: service, logger: logger.Named("http.analysis")}
}

// RegisterRoutes mounts the analysis endpoints on an API group.
func (h *AnalysisHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/analyses", h.Submit)
	api.GET("/analyses", h.List)
	api.GET("/analyses/:id", h.Get)
	api.GET("/analyses/:id/result", h.GetResult)
}

// SubmitAnalysisRequest is the submission body.  Exactly one of
// structureText and structureKey must be set.
type SubmitAnalysisRequest struct {
	StructureText string                `json:"structureText"`
	StructureKey  string                `json:"structureKey"`
	Params        engine.AnalysisParams `json:"params"`
	WaterBridge   *bool                 `json:"waterBridge"`
}

// Submit handles POST /api/v1/analyses.  The job is queued and the pending
// job record returned with 202; clients poll /analyses/:id for progress.
func (h *AnalysisHandler) Submit(c *gin.Context) {
	var req SubmitAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	job, err := h.service.Submit(c.Request.Context(), &analysis.SubmitInput{
		StructureText: req.StructureText,
		StructureKey:  req.StructureKey,
		Params:        req.Params,
		WaterBridge:   req.WaterBridge,
		Source:        "http",
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Location", "/api/v1/analyses/"+job.ID)
	c.JSON(http.StatusAccepted, job)
}

// Get handles GET /api/v1/analyses/:id.
func (h *AnalysisHandler) Get(c *gin.Context) {
	job, err := h.service.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// GetResult handles GET /api/v1/analyses/:id/result.  A job that is still
// pending or running answers 409 so clients can keep polling.
func (h *AnalysisHandler) GetResult(c *gin.Context) {
	result, err := h.service.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// List handles GET /api/v1/analyses with optional status, page and
// page_size query parameters.
func (h *AnalysisHandler) List(c *gin.Context) {
	page, pageSize := parsePagination(c)
	res, err := h.service.ListJobs(c.Request.Context(), &analysis.ListInput{
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

package jobposts

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/server/middleware"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches job post routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/jobs", h.create)
	rg.GET("/jobs", h.list)
	rg.GET("/jobs/:id", h.get)
	rg.POST("/jobs/:id/rank", h.triggerRank)
	rg.GET("/jobs/:id/ranking", h.ranking)
}

type createRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	WorkplaceType   int      `json:"workplaceType"`
	JobType         int      `json:"jobType"`
	Skills          []string `json:"skills"`
	EstimatedSalary string   `json:"estimatedSalary"`
	VisaRequired    bool     `json:"visaRequired"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	job, err := h.Svc.Create(c.Request.Context(), CreateInput{
		Title:           req.Title,
		Description:     req.Description,
		WorkplaceType:   req.WorkplaceType,
		JobType:         req.JobType,
		Skills:          req.Skills,
		EstimatedSalary: req.EstimatedSalary,
		VisaRequired:    req.VisaRequired,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create job post", nil)
		}
		return
	}

	c.Set("jobId", job.ID)
	respond.JSON(c, http.StatusCreated, toResponse(job))
}

func (h *Handler) get(c *gin.Context) {
	job, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "job post not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch job post", nil)
		}
		return
	}

	c.Set("jobId", job.ID)
	respond.OK(c, toResponse(job))
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 50 {
		limit = 50
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	list, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list job posts", nil)
		return
	}

	resp := make([]JobPostResponse, 0, len(list))
	for _, job := range list {
		resp = append(resp, toResponse(job))
	}
	respond.OK(c, resp)
}

func (h *Handler) triggerRank(c *gin.Context) {
	id := c.Param("id")
	requestID := middleware.RequestIDFromContext(c)

	if err := h.Svc.TriggerRank(c.Request.Context(), id, requestID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "job post not found", nil)
		case errors.Is(err, ErrAlreadyQueued):
			respond.Error(c, http.StatusConflict, "ranking_in_progress", "ranking already queued or completed", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to queue ranking", nil)
		}
		return
	}

	c.Set("jobId", id)
	c.Set("statusTransition", StatusNotRanked+"->"+StatusRanking)
	respond.JSON(c, http.StatusAccepted, gin.H{"jobId": id, "rankingStatus": StatusRanking})
}

func (h *Handler) ranking(c *gin.Context) {
	job, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "job post not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch ranking", nil)
		}
		return
	}

	c.Set("jobId", job.ID)
	respond.OK(c, gin.H{
		"jobId":         job.ID,
		"rankingStatus": job.RankingStatus,
		"rankingData":   job.RankingData,
	})
}

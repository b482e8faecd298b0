package candidates

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/server/middleware"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches candidate routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/candidates", h.create)
	rg.GET("/candidates", h.list)
	rg.GET("/candidates/:slug", h.get)
	rg.PUT("/candidates/:slug/profile", h.updateProfile)
	rg.POST("/candidates/:slug/resume", h.uploadResume)
}

type profileRequest struct {
	Email                     string   `json:"email"`
	IsAvailable               *bool    `json:"isAvailable"`
	HasWorkVisa               bool     `json:"hasWorkVisa"`
	WillingToRelocate         bool     `json:"willingToRelocate"`
	EmploymentTypePreferences []string `json:"employmentTypePreferences"`
	WorkModePreferences       []string `json:"workModePreferences"`
	ExpectedSalaryRange       *string  `json:"expectedSalaryRange"`
}

func (req profileRequest) toInput() CreateInput {
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	return CreateInput{
		Email:                     req.Email,
		IsAvailable:               available,
		HasWorkVisa:               req.HasWorkVisa,
		WillingToRelocate:         req.WillingToRelocate,
		EmploymentTypePreferences: req.EmploymentTypePreferences,
		WorkModePreferences:       req.WorkModePreferences,
		ExpectedSalaryRange:       req.ExpectedSalaryRange,
	}
}

func (h *Handler) create(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	candidate, err := h.Svc.Create(c.Request.Context(), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create candidate", nil)
		}
		return
	}

	c.Set("candidateId", candidate.ID)
	respond.JSON(c, http.StatusCreated, toResponse(candidate))
}

func (h *Handler) get(c *gin.Context) {
	candidate, err := h.Svc.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "candidate not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch candidate", nil)
		}
		return
	}

	c.Set("candidateId", candidate.ID)
	respond.OK(c, toResponse(candidate))
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
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list candidates", nil)
		return
	}

	resp := make([]CandidateResponse, 0, len(list))
	for _, candidate := range list {
		resp = append(resp, toResponse(candidate))
	}
	respond.OK(c, resp)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	candidate, err := h.Svc.UpdateProfile(c.Request.Context(), c.Param("slug"), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "candidate not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update profile", nil)
		}
		return
	}

	c.Set("candidateId", candidate.ID)
	respond.OK(c, toResponse(candidate))
}

func (h *Handler) uploadResume(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	requestID := middleware.RequestIDFromContext(c)
	candidate, err := h.Svc.UploadResume(c.Request.Context(), c.Param("slug"), fileHeader.Filename, file, requestID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "candidate not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrAlreadyQueued):
			respond.Error(c, http.StatusConflict, "parse_in_progress", "resume parse already queued", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload resume", nil)
		}
		return
	}

	c.Set("candidateId", candidate.ID)
	c.Set("statusTransition", StatusNotParsed+"->"+StatusParsing)
	respond.JSON(c, http.StatusAccepted, toResponse(candidate))
}

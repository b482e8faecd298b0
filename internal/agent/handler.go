package agent

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EnabledTalentV2/ETBackendV2/internal/chat"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the agent.
type Handler struct {
	Agent *Agent
}

// NewHandler constructs a Handler.
func NewHandler(agent *Agent) *Handler {
	return &Handler{Agent: agent}
}

// RegisterRoutes attaches agent routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/agent/query", h.query)
	rg.GET("/agent/sessions/:id", h.history)
}

type queryRequest struct {
	SessionID string `json:"sessionId"`
	Query     string `json:"query"`
}

func (h *Handler) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	answer, err := h.Agent.Query(c.Request.Context(), req.SessionID, req.Query)
	if err != nil {
		switch {
		case errors.Is(err, ErrRejected):
			respond.Error(c, http.StatusUnprocessableEntity, "query_rejected", err.Error(),
				gin.H{"sessionId": answer.SessionID})
		case errors.Is(err, chat.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to answer query", nil)
		}
		return
	}

	respond.OK(c, answer)
}

func (h *Handler) history(c *gin.Context) {
	messages, err := h.Agent.Chat.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		case errors.Is(err, chat.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load history", nil)
		}
		return
	}

	resp := make([]gin.H, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, gin.H{
			"id":        m.ID,
			"role":      m.Role,
			"content":   m.Content,
			"createdAt": m.CreatedAt,
		})
	}
	respond.OK(c, gin.H{"sessionId": c.Param("id"), "messages": resp})
}

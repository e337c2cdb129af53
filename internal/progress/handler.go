package progress

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"luminousdeep/internal/auth"
)

type Handler struct {
	Tracker *Tracker
}

func NewHandler(tracker *Tracker) *Handler {
	return &Handler{Tracker: tracker}
}

// RegisterRoutes expects rg to run auth.OptionalAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/progress", h.save)
	rg.POST("/progress/:signal_id/complete", h.complete)
	rg.GET("/progress/:signal_id", h.getOne)
}

type saveReq struct {
	SignalID    string   `json:"signal_id"`
	Progress    *float64 `json:"progress"`
	IsCompleted bool     `json:"is_completed"`
}

func (h *Handler) save(c *gin.Context) {
	var req saveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	signalID := strings.TrimSpace(req.SignalID)
	if signalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signal_id required"})
		return
	}
	if req.Progress == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "progress required"})
		return
	}

	if err := h.Tracker.SaveProgress(c.Request.Context(), auth.UserID(c), signalID, *req.Progress, req.IsCompleted); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) complete(c *gin.Context) {
	signalID := strings.TrimSpace(c.Param("signal_id"))
	if signalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signal_id required"})
		return
	}

	if err := h.Tracker.CompleteTransmission(c.Request.Context(), auth.UserID(c), signalID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "complete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getOne(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	p, err := h.Tracker.Repo.Get(c.Request.Context(), userID, strings.TrimSpace(c.Param("signal_id")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

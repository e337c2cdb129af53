package signals

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"luminousdeep/internal/auth"
)

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

// RegisterRoutes expects rg to run auth.OptionalAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/signals/:slug", h.getBySlug)
}

func (h *Handler) getBySlug(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	view, err := h.Service.GetSignal(c.Request.Context(), auth.UserID(c), slug)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if view == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, view)
}

package series

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
	rg.GET("/series", h.list)
	rg.GET("/series/:slug", h.getBySlug)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Service.Repo.ListPublished(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total": len(items),
		"items": items,
	})
}

func (h *Handler) getBySlug(c *gin.Context) {
	view, err := h.Service.GetSeriesBySlug(c.Request.Context(), auth.UserID(c), strings.TrimSpace(c.Param("slug")))
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

package library

import (
	"net/http"

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
	rg.GET("/library", h.get)
}

func (h *Handler) get(c *gin.Context) {
	st, err := h.Service.GetLibraryState(c.Request.Context(), auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "library failed"})
		return
	}
	c.JSON(http.StatusOK, st)
}

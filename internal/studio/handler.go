package studio

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"luminousdeep/internal/voice"
)

type Handler struct {
	Service *Service
	Voice   *voice.Service
}

func NewHandler(svc *Service, voiceSvc *voice.Service) *Handler {
	return &Handler{Service: svc, Voice: voiceSvc}
}

// RegisterRoutes expects rg to run auth.AuthMiddleware and auth.RequireAdmin.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/signals", h.listSignals)
	rg.GET("/signals/:id", h.getSignal)
	rg.POST("/signals", h.createSignal)
	rg.PUT("/signals/:id", h.updateSignal)
	rg.DELETE("/signals/:id", h.deleteSignal)
	rg.POST("/signals/:id/publish", h.publishSignal)

	rg.GET("/series", h.listSeries)
	rg.POST("/series", h.createSeries)
	rg.PUT("/series/:id", h.updateSeries)

	rg.GET("/canon", h.listCanon)
	rg.POST("/canon", h.createCanon)
	rg.PUT("/canon/:id", h.updateCanon)
	rg.POST("/canon/:id/lock", h.lockCanon)

	rg.GET("/entitlements", h.listEntitlements)
	rg.PUT("/entitlements/:user_id", h.grantEntitlement)
	rg.DELETE("/entitlements/:user_id", h.revokeEntitlement)

	rg.POST("/voice", h.speak)
}

// writeErr maps service errors to status codes.
func writeErr(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrSlugTaken), errors.Is(err, ErrDuplicateEpisode):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
	}
}

func respond[T any](c *gin.Context, status int, op string, v *T, err error) {
	if err != nil {
		writeErr(c, op, err)
		return
	}
	if v == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(status, v)
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return false
	}
	return true
}

func (h *Handler) listSignals(c *gin.Context) {
	items, err := h.Service.Signals.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}

// getSignal returns the full, ungated body for editing.
func (h *Handler) getSignal(c *gin.Context) {
	sig, err := h.Service.Signals.GetByID(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, "get", sig, err)
}

func (h *Handler) createSignal(c *gin.Context) {
	var in SignalInput
	if !bind(c, &in) {
		return
	}
	sig, err := h.Service.CreateSignal(c.Request.Context(), in)
	respond(c, http.StatusCreated, "create", sig, err)
}

func (h *Handler) updateSignal(c *gin.Context) {
	var in SignalInput
	if !bind(c, &in) {
		return
	}
	sig, err := h.Service.UpdateSignal(c.Request.Context(), c.Param("id"), in)
	respond(c, http.StatusOK, "update", sig, err)
}

func (h *Handler) deleteSignal(c *gin.Context) {
	ok, err := h.Service.DeleteSignal(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, "delete", err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) publishSignal(c *gin.Context) {
	sig, err := h.Service.PublishSignal(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, "publish", sig, err)
}

func (h *Handler) listSeries(c *gin.Context) {
	items, err := h.Service.Series.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}

func (h *Handler) createSeries(c *gin.Context) {
	var in SeriesInput
	if !bind(c, &in) {
		return
	}
	ser, err := h.Service.CreateSeries(c.Request.Context(), in)
	respond(c, http.StatusCreated, "create", ser, err)
}

func (h *Handler) updateSeries(c *gin.Context) {
	var in SeriesInput
	if !bind(c, &in) {
		return
	}
	ser, err := h.Service.UpdateSeries(c.Request.Context(), c.Param("id"), in)
	respond(c, http.StatusOK, "update", ser, err)
}

func (h *Handler) listCanon(c *gin.Context) {
	items, err := h.Service.Canon.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) createCanon(c *gin.Context) {
	var in CanonInput
	if !bind(c, &in) {
		return
	}
	e, err := h.Service.CreateCanon(c.Request.Context(), in)
	respond(c, http.StatusCreated, "create", e, err)
}

func (h *Handler) updateCanon(c *gin.Context) {
	var in CanonInput
	if !bind(c, &in) {
		return
	}
	e, err := h.Service.UpdateCanon(c.Request.Context(), c.Param("id"), in)
	respond(c, http.StatusOK, "update", e, err)
}

func (h *Handler) lockCanon(c *gin.Context) {
	e, err := h.Service.LockCanon(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, "lock", e, err)
}

func (h *Handler) listEntitlements(c *gin.Context) {
	items, err := h.Service.Entitlements.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) grantEntitlement(c *gin.Context) {
	var in EntitlementInput
	// body is optional
	if c.Request.ContentLength > 0 && !bind(c, &in) {
		return
	}
	e, err := h.Service.GrantEntitlement(c.Request.Context(), c.Param("user_id"), in)
	respond(c, http.StatusOK, "grant", e, err)
}

func (h *Handler) revokeEntitlement(c *gin.Context) {
	ok, err := h.Service.RevokeEntitlement(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		writeErr(c, "revoke", err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "revoked"})
}

func (h *Handler) speak(c *gin.Context) {
	var in VoiceInput
	if !bind(c, &in) {
		return
	}
	if err := check(in); err != nil {
		writeErr(c, "voice", err)
		return
	}
	if h.Voice == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": voice.ErrNoGenerator.Error()})
		return
	}

	text, err := h.Voice.Speak(c.Request.Context(), in.Character, in.Prompt)
	switch {
	case errors.Is(err, voice.ErrNoGenerator):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, voice.ErrEmptyPrompt):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "voice failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"character": strings.TrimSpace(in.Character), "text": text})
	}
}

package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"moogla-chat/internal/service"
)

// PreferencesHandler expone modelo, plugins activos y catálogo.
type PreferencesHandler struct {
	logger  *zap.Logger
	prefs   *service.PreferencesService
	catalog *service.PluginCatalog
}

func NewPreferencesHandler(logger *zap.Logger, prefs *service.PreferencesService, catalog *service.PluginCatalog) *PreferencesHandler {
	return &PreferencesHandler{
		logger:  logger,
		prefs:   prefs,
		catalog: catalog,
	}
}

// GetPreferences maneja GET /api/preferences.
func (h *PreferencesHandler) GetPreferences(c *gin.Context) {
	c.JSON(http.StatusOK, h.prefs.Get(c.Request.Context()))
}

// UpdatePreferences maneja PUT /api/preferences. Los campos ausentes no se tocan.
func (h *PreferencesHandler) UpdatePreferences(c *gin.Context) {
	var req struct {
		Model   *string   `json:"model"`
		Plugins *[]string `json:"plugins"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid preferences request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	if req.Plugins != nil {
		if err := h.prefs.SetPlugins(ctx, *req.Plugins); err != nil {
			h.writeError(c, err)
			return
		}
	}
	if req.Model != nil {
		if err := h.prefs.SetModel(ctx, *req.Model); err != nil {
			h.writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, h.prefs.Get(ctx))
}

// ListPlugins maneja GET /api/plugins.
func (h *PreferencesHandler) ListPlugins(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plugins": h.catalog.All()})
}

func (h *PreferencesHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownPlugin):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPreferencesNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "preferences not configured"})
	default:
		h.logger.Error("update preferences failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update preferences"})
	}
}

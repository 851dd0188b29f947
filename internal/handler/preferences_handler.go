// internal/handler/preferences_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"print-bridge/internal/preferences"
	"print-bridge/internal/utils"
)

// PreferencesHandler reads and writes the persisted printer preferences
type PreferencesHandler struct {
	session PrinterSession
	logger  *utils.ServiceLogger
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(session PrinterSession, logger *zap.Logger) *PreferencesHandler {
	return &PreferencesHandler{
		session: session,
		logger:  utils.NewServiceLogger(logger, "preferences-handler"),
	}
}

// GetPreferences returns the stored preferences
// @Summary Get preferences
// @Tags Preferences
// @Produce json
// @Success 200 {object} utils.APIResponse{data=preferences.Preferences}
// @Router /preferences [get]
func (h *PreferencesHandler) GetPreferences(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Preferences retrieved", h.session.Preferences())
}

// UpdatePreferences replaces the stored preferences
// @Summary Update preferences
// @Tags Preferences
// @Accept json
// @Produce json
// @Param request body preferences.Preferences true "Preferences"
// @Success 200 {object} utils.APIResponse{data=preferences.Preferences}
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Router /preferences [put]
func (h *PreferencesHandler) UpdatePreferences(c *gin.Context) {
	var req preferences.Preferences
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.session.SavePreferences(req); err != nil {
		h.logger.Error("Failed to save preferences", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to save preferences", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Preferences saved", h.session.Preferences())
}

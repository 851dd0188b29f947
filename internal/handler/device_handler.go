// internal/handler/device_handler.go
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"print-bridge/internal/utils"
)

// DeviceRequest names a printer known to the agent
type DeviceRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
}

// DeviceHandler handles printer discovery and connection requests
type DeviceHandler struct {
	session PrinterSession
	logger  *utils.ServiceLogger
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(session PrinterSession, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{
		session: session,
		logger:  utils.NewServiceLogger(logger, "device-handler"),
	}
}

// Discover asks the agent to scan for printers
// @Summary Discover printers
// @Description Scan for printers through the agent
// @Tags Devices
// @Produce json
// @Param ignore_unknown query bool false "Hide devices of unknown type"
// @Success 200 {object} utils.APIResponse{data=object{devices=[]model.Device}}
// @Failure 400 {object} utils.APIResponse "Invalid query"
// @Failure 503 {object} utils.APIResponse "Agent unreachable"
// @Router /devices/discover [post]
func (h *DeviceHandler) Discover(c *gin.Context) {
	var ignoreUnknown *bool
	if raw := c.Query("ignore_unknown"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid ignore_unknown", err)
			return
		}
		ignoreUnknown = &v
	}

	devices, err := h.session.Discover(c.Request.Context(), ignoreUnknown)
	if err != nil {
		h.logger.Warn("Discovery failed", zap.Error(err))
		respondError(c, "Failed to discover printers", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Printers discovered", gin.H{"devices": devices})
}

// ListDevices returns the last discovery result
// @Summary List discovered printers
// @Tags Devices
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{devices=[]model.Device}}
// @Router /devices [get]
func (h *DeviceHandler) ListDevices(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved", gin.H{"devices": h.session.Devices()})
}

// ListConnected returns the connected printers
// @Summary List connected printers
// @Tags Devices
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{devices=[]model.Device}}
// @Router /devices/connected [get]
func (h *DeviceHandler) ListConnected(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Connected devices retrieved", gin.H{"devices": h.session.ConnectedDevices()})
}

// ConnectDevice opens a printer
// @Summary Connect printer
// @Tags Devices
// @Accept json
// @Produce json
// @Param request body DeviceRequest true "Printer to connect"
// @Success 200 {object} utils.APIResponse{data=model.Device}
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 502 {object} utils.APIResponse "Agent rejected the request"
// @Router /devices/connect [post]
func (h *DeviceHandler) ConnectDevice(c *gin.Context) {
	var req DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	device, err := h.session.ConnectDevice(c.Request.Context(), req.DeviceID)
	if err != nil {
		respondError(c, "Failed to connect printer", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Printer connected", device)
}

// DisconnectDevice releases a printer
// @Summary Disconnect printer
// @Tags Devices
// @Accept json
// @Produce json
// @Param request body DeviceRequest true "Printer to disconnect"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 502 {object} utils.APIResponse "Agent rejected the request"
// @Router /devices/disconnect [post]
func (h *DeviceHandler) DisconnectDevice(c *gin.Context) {
	var req DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.session.DisconnectDevice(c.Request.Context(), req.DeviceID); err != nil {
		respondError(c, "Failed to disconnect printer", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Printer disconnected", gin.H{"device_id": req.DeviceID})
}

// ClearDevices makes the agent forget every printer
// @Summary Clear printers
// @Tags Devices
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Router /devices [delete]
func (h *DeviceHandler) ClearDevices(c *gin.Context) {
	if err := h.session.ClearDevices(c.Request.Context()); err != nil {
		respondError(c, "Failed to clear printers", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Printers cleared", nil)
}

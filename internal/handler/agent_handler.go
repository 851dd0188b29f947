// internal/handler/agent_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"print-bridge/internal/utils"
)

// AgentHandler controls the connection to the local print agent
type AgentHandler struct {
	session PrinterSession
	logger  *utils.ServiceLogger
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(session PrinterSession, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{
		session: session,
		logger:  utils.NewServiceLogger(logger, "agent-handler"),
	}
}

// GetStatus returns the agent connection status
// @Summary Agent status
// @Description Current connection status and cached devices
// @Tags Agent
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.SessionStatus}
// @Router /agent/status [get]
func (h *AgentHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Agent status retrieved", h.session.Status())
}

// Connect opens the channel to the agent
// @Summary Connect to agent
// @Tags Agent
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.SessionStatus}
// @Failure 503 {object} utils.APIResponse "Agent unreachable"
// @Failure 504 {object} utils.APIResponse "Agent did not answer in time"
// @Router /agent/connect [post]
func (h *AgentHandler) Connect(c *gin.Context) {
	if err := h.session.Connect(c.Request.Context()); err != nil {
		h.logger.Warn("Failed to connect to agent", zap.Error(err))
		respondError(c, "Failed to connect to print agent", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Connected to print agent", h.session.Status())
}

// Disconnect closes the channel to the agent
// @Summary Disconnect from agent
// @Tags Agent
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.SessionStatus}
// @Router /agent/disconnect [post]
func (h *AgentHandler) Disconnect(c *gin.Context) {
	if err := h.session.Disconnect(); err != nil {
		respondError(c, "Failed to disconnect from print agent", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Disconnected from print agent", h.session.Status())
}

// internal/handler/errors.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"print-bridge/internal/agent"
	"print-bridge/internal/printing"
	"print-bridge/internal/repository"
	"print-bridge/internal/service"
	"print-bridge/internal/utils"
)

// statusFor maps bridge errors onto HTTP status codes
func statusFor(err error) int {
	var (
		transportErr    *agent.TransportError
		protocolErr     *agent.ProtocolError
		notConnectedErr *agent.DeviceNotConnectedError
	)

	switch {
	case errors.Is(err, service.ErrInvalidReceipt):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, printing.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, printing.ErrNoPrinter), errors.As(err, &notConnectedErr):
		return http.StatusConflict
	case errors.As(err, &protocolErr):
		return http.StatusBadGateway
	case errors.As(err, &transportErr):
		if transportErr.Reason == agent.ReasonTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, message string, err error) {
	utils.ErrorResponse(c, statusFor(err), message, err)
}

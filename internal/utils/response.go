// internal/utils/response.go
package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse is the JSON envelope of every bridge endpoint
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError describes a failed request
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// errorCodes names the statuses the bridge returns; others map to UNKNOWN_ERROR
var errorCodes = map[int]string{
	http.StatusBadRequest:          "BAD_REQUEST",
	http.StatusNotFound:            "NOT_FOUND",
	http.StatusConflict:            "PRINTER_UNAVAILABLE",
	http.StatusTooManyRequests:     "RATE_LIMIT_EXCEEDED",
	http.StatusInternalServerError: "INTERNAL_SERVER_ERROR",
	http.StatusBadGateway:          "AGENT_ERROR",
	http.StatusServiceUnavailable:  "SERVICE_UNAVAILABLE",
	http.StatusGatewayTimeout:      "AGENT_TIMEOUT",
}

func envelope(c *gin.Context, success bool, message string) APIResponse {
	return APIResponse{
		Success:   success,
		Message:   message,
		Timestamp: time.Now(),
		RequestID: c.GetString("request_id"),
	}
}

// SuccessResponse writes a successful envelope carrying data
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	resp := envelope(c, true, message)
	resp.Data = data
	c.JSON(statusCode, resp)
}

// ErrorResponse writes a failed envelope; err, when set, becomes the details
func ErrorResponse(c *gin.Context, statusCode int, message string, err error) {
	code, ok := errorCodes[statusCode]
	if !ok {
		code = "UNKNOWN_ERROR"
	}

	resp := envelope(c, false, message)
	resp.Error = &APIError{Code: code, Message: message}
	if err != nil {
		resp.Error.Details = err.Error()
	}
	c.JSON(statusCode, resp)
}

// ValidationErrorResponse writes a 400 listing the rejected query or body fields
func ValidationErrorResponse(c *gin.Context, fields map[string]string) {
	resp := envelope(c, false, "Validation failed")
	resp.Error = &APIError{Code: "VALIDATION_ERROR", Message: "Request validation failed"}
	resp.Data = gin.H{"validation_errors": fields}
	c.JSON(http.StatusBadRequest, resp)
}

// HTMLResponse writes a rendered receipt preview
func HTMLResponse(c *gin.Context, body string) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
}

// BinaryResponse writes raw printer bytes as an attachment
func BinaryResponse(c *gin.Context, filename string, body []byte) {
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, "application/octet-stream", body)
}

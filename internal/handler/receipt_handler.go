// internal/handler/receipt_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"print-bridge/internal/service"
	"print-bridge/internal/utils"
)

// ReceiptHandler previews, encodes and prints receipts
type ReceiptHandler struct {
	receipts ReceiptService
	logger   *utils.ServiceLogger
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(receipts ReceiptService, logger *zap.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		receipts: receipts,
		logger:   utils.NewServiceLogger(logger, "receipt-handler"),
	}
}

func (h *ReceiptHandler) bind(c *gin.Context) (*service.ReceiptRequest, bool) {
	var req service.ReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}
	return &req, true
}

// Preview renders the HTML preview
// @Summary Preview receipt
// @Description Render the receipt as an HTML fragment
// @Tags Receipts
// @Accept json
// @Produce html
// @Param request body service.ReceiptRequest true "Receipt"
// @Success 200 {string} string "HTML preview"
// @Failure 400 {object} utils.APIResponse "Invalid receipt"
// @Router /receipts/preview [post]
func (h *ReceiptHandler) Preview(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	html, err := h.receipts.Preview(req)
	if err != nil {
		respondError(c, "Failed to render preview", err)
		return
	}
	utils.HTMLResponse(c, html)
}

// Encode returns the ESC/POS byte stream
// @Summary Encode receipt
// @Description Render the receipt to ESC/POS bytes without printing
// @Tags Receipts
// @Accept json
// @Produce octet-stream
// @Param request body service.ReceiptRequest true "Receipt"
// @Success 200 {file} file "ESC/POS bytes"
// @Failure 400 {object} utils.APIResponse "Invalid receipt"
// @Router /receipts/escpos [post]
func (h *ReceiptHandler) Encode(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	out, err := h.receipts.Encode(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Failed to encode receipt", err)
		return
	}

	name := req.Data.ReceiptNumber
	if name == "" {
		name = "receipt"
	}
	utils.BinaryResponse(c, name+".bin", out)
}

// Print renders the receipt and sends it to a printer
// @Summary Print receipt
// @Tags Receipts
// @Accept json
// @Produce json
// @Param request body service.ReceiptRequest true "Receipt"
// @Success 200 {object} utils.APIResponse{data=printing.Result}
// @Failure 400 {object} utils.APIResponse "Invalid receipt"
// @Failure 409 {object} utils.APIResponse "No connected printer"
// @Failure 503 {object} utils.APIResponse "Agent not connected"
// @Router /receipts/print [post]
func (h *ReceiptHandler) Print(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	result, err := h.receipts.Print(c.Request.Context(), req)
	if err != nil {
		h.logger.Warn("Print failed", zap.String("printer_id", req.PrinterID), zap.Error(err))
		respondError(c, "Failed to print receipt", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Receipt printed", result)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/institute-fee-api/internal/dto"
	"github.com/noah-isme/institute-fee-api/internal/service"
	appErrors "github.com/noah-isme/institute-fee-api/pkg/errors"
	"github.com/noah-isme/institute-fee-api/pkg/response"
)

// PaymentHandler wires HTTP endpoints to the payment service.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler creates a new handler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Create godoc
// @Summary Record a payment
// @Description Records a family payment and settles the referenced allocations
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body dto.CreatePaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	payment, err := h.payments.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Get godoc
// @Summary Get payment
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	payment, err := h.payments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// ListByFamily godoc
// @Summary List a family's payments
// @Tags Payments
// @Produce json
// @Param id path string true "Family ID"
// @Success 200 {object} response.Envelope
// @Router /families/{id}/payments [get]
func (h *PaymentHandler) ListByFamily(c *gin.Context) {
	payments, pagination, err := h.payments.ListByFamily(c.Request.Context(), c.Param("id"), queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, pagination)
}

package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/institute-fee-api/internal/dto"
	"github.com/noah-isme/institute-fee-api/internal/models"
	"github.com/noah-isme/institute-fee-api/internal/service"
	appErrors "github.com/noah-isme/institute-fee-api/pkg/errors"
	"github.com/noah-isme/institute-fee-api/pkg/response"
)

// SubscriptionHandler wires HTTP endpoints to the subscription service.
type SubscriptionHandler struct {
	subscriptions *service.SubscriptionService
}

// NewSubscriptionHandler creates a new handler.
func NewSubscriptionHandler(subscriptions *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// List godoc
// @Summary List subscriptions
// @Tags Subscriptions
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param family_id query string false "Filter by family"
// @Param course_id query string false "Filter by course"
// @Param service_id query string false "Filter by service"
// @Param active_at query string false "Only subscriptions active on this date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /subscriptions [get]
func (h *SubscriptionHandler) List(c *gin.Context) {
	filter := models.SubscriptionFilter{
		StudentID: c.Query("student_id"),
		FamilyID:  c.Query("family_id"),
		CourseID:  c.Query("course_id"),
		ServiceID: c.Query("service_id"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 20),
	}
	if raw := c.Query("active_at"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active_at must be a YYYY-MM-DD date"))
			return
		}
		filter.ActiveAt = &d
	}

	subs, pagination, err := h.subscriptions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subs, pagination)
}

// Get godoc
// @Summary Get subscription
// @Tags Subscriptions
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subscriptions/{id} [get]
func (h *SubscriptionHandler) Get(c *gin.Context) {
	sub, err := h.subscriptions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// Create godoc
// @Summary Enroll a student
// @Description Creates a subscription referencing exactly one of a course or a service
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSubscriptionRequest true "Subscription payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subscriptions [post]
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subscription payload"))
		return
	}
	sub, err := h.subscriptions.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

// End godoc
// @Summary End a subscription
// @Description Stamps the end date; the row is kept for allocation history
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Subscription ID"
// @Param payload body dto.EndSubscriptionRequest true "End payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /subscriptions/{id}/end [patch]
func (h *SubscriptionHandler) End(c *gin.Context) {
	var req dto.EndSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid end payload"))
		return
	}
	sub, err := h.subscriptions.End(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// UpdateDiscount godoc
// @Summary Update subscription discount
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Subscription ID"
// @Param payload body dto.UpdateSubscriptionDiscountRequest true "Discount payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subscriptions/{id}/discount [patch]
func (h *SubscriptionHandler) UpdateDiscount(c *gin.Context) {
	var req dto.UpdateSubscriptionDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid discount payload"))
		return
	}
	sub, err := h.subscriptions.UpdateDiscount(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

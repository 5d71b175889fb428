package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/institute-fee-api/internal/dto"
	"github.com/noah-isme/institute-fee-api/internal/models"
	"github.com/noah-isme/institute-fee-api/internal/service"
	appErrors "github.com/noah-isme/institute-fee-api/pkg/errors"
	"github.com/noah-isme/institute-fee-api/pkg/response"
)

// AllocationHandler wires HTTP endpoints to the allocation service.
type AllocationHandler struct {
	allocations *service.AllocationService
}

// NewAllocationHandler creates a new handler.
func NewAllocationHandler(allocations *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{allocations: allocations}
}

// Materialize godoc
// @Summary Materialize allocations for a billing period
// @Description Creates allocation rows for every active subscription; re-runs skip existing rows
// @Tags Allocations
// @Accept json
// @Produce json
// @Param payload body dto.MaterializeRequest true "Billing period"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /allocations/materialize [post]
func (h *AllocationHandler) Materialize(c *gin.Context) {
	var req dto.MaterializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid materialize payload"))
		return
	}
	result, err := h.allocations.Materialize(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// MaterializeAsync godoc
// @Summary Schedule a background materialization run
// @Tags Allocations
// @Accept json
// @Produce json
// @Param payload body dto.MaterializeRequest true "Billing period"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /allocations/materialize/async [post]
func (h *AllocationHandler) MaterializeAsync(c *gin.Context) {
	var req dto.MaterializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid materialize payload"))
		return
	}
	jobID, err := h.allocations.EnqueueMaterialize(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"job_id": jobID}, nil)
}

// List godoc
// @Summary List allocations
// @Tags Allocations
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param family_id query string false "Filter by family"
// @Param month query int false "Filter by period month"
// @Param year query int false "Filter by period year"
// @Param status query string false "Filter by status (PENDING, PAID, WAIVED)"
// @Param is_paid query bool false "Filter by paid flag"
// @Success 200 {object} response.Envelope
// @Router /allocations [get]
func (h *AllocationHandler) List(c *gin.Context) {
	filter := models.AllocationFilter{
		StudentID:   c.Query("student_id"),
		FamilyID:    c.Query("family_id"),
		PeriodMonth: queryInt(c, "month", 0),
		PeriodYear:  queryInt(c, "year", 0),
		Status:      models.AllocationStatus(c.Query("status")),
		IsPaid:      queryBool(c, "is_paid"),
		Page:        queryInt(c, "page", 1),
		PageSize:    queryInt(c, "page_size", 20),
	}
	allocations, pagination, err := h.allocations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocations, pagination)
}

// Summary godoc
// @Summary Summarize a billing period
// @Tags Allocations
// @Produce json
// @Param month query int true "Period month"
// @Param year query int true "Period year"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /allocations/summary [get]
func (h *AllocationHandler) Summary(c *gin.Context) {
	summary, err := h.allocations.PeriodSummary(c.Request.Context(), queryInt(c, "month", 0), queryInt(c, "year", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

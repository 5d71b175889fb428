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

// FamilyHandler wires HTTP endpoints to family, fee and statement services.
type FamilyHandler struct {
	families   *service.FamilyService
	fees       *service.FeeService
	statements *service.StatementService
}

// NewFamilyHandler creates a new handler.
func NewFamilyHandler(families *service.FamilyService, fees *service.FeeService, statements *service.StatementService) *FamilyHandler {
	return &FamilyHandler{families: families, fees: fees, statements: statements}
}

// List godoc
// @Summary List families
// @Tags Families
// @Produce json
// @Param search query string false "Search by family or guardian name"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /families [get]
func (h *FamilyHandler) List(c *gin.Context) {
	filter := models.FamilyFilter{
		Search:    c.Query("search"),
		Active:    queryBool(c, "active"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 20),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	families, pagination, err := h.families.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, families, pagination)
}

// Get godoc
// @Summary Get family
// @Tags Families
// @Produce json
// @Param id path string true "Family ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /families/{id} [get]
func (h *FamilyHandler) Get(c *gin.Context) {
	family, err := h.families.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, family, nil)
}

// Create godoc
// @Summary Create family
// @Tags Families
// @Accept json
// @Produce json
// @Param payload body dto.CreateFamilyRequest true "Family payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /families [post]
func (h *FamilyHandler) Create(c *gin.Context) {
	var req dto.CreateFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid family payload"))
		return
	}
	family, err := h.families.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, family)
}

// Update godoc
// @Summary Update family
// @Tags Families
// @Accept json
// @Produce json
// @Param id path string true "Family ID"
// @Param payload body dto.UpdateFamilyRequest true "Family payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /families/{id} [put]
func (h *FamilyHandler) Update(c *gin.Context) {
	var req dto.UpdateFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid family payload"))
		return
	}
	family, err := h.families.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, family, nil)
}

// Deactivate godoc
// @Summary Deactivate family
// @Tags Families
// @Produce json
// @Param id path string true "Family ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /families/{id} [delete]
func (h *FamilyHandler) Deactivate(c *gin.Context) {
	if err := h.families.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Fees godoc
// @Summary Compute family fee
// @Description Aggregates every student of the family and applies the family discount once
// @Tags Families
// @Produce json
// @Param id path string true "Family ID"
// @Param as_of query string false "Billing date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /families/{id}/fees [get]
func (h *FamilyHandler) Fees(c *gin.Context) {
	asOf, err := queryAsOf(c)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "as_of must be a YYYY-MM-DD date"))
		return
	}
	fee, err := h.fees.ComputeFamilyFee(c.Request.Context(), c.Param("id"), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Statement godoc
// @Summary Generate family fee statement
// @Description Renders the family fee as CSV or PDF and returns a signed download URL
// @Tags Families
// @Produce json
// @Param id path string true "Family ID"
// @Param as_of query string false "Billing date (YYYY-MM-DD), defaults to today"
// @Param format query string false "csv or pdf (default pdf)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /families/{id}/statement [get]
func (h *FamilyHandler) Statement(c *gin.Context) {
	asOf, err := queryAsOf(c)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "as_of must be a YYYY-MM-DD date"))
		return
	}
	format := dto.StatementFormat(c.DefaultQuery("format", string(dto.StatementPDF)))
	statement, err := h.statements.Generate(c.Request.Context(), c.Param("id"), asOf, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statement, nil)
}

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

// CatalogHandler wires HTTP endpoints to the offering catalog service.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler creates a new handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func catalogFilterFrom(c *gin.Context) models.CatalogFilter {
	return models.CatalogFilter{
		Search:   c.Query("search"),
		Active:   queryBool(c, "active"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
}

// ownerFrom maps the route segment to the owner type. Routes are registered
// under /courses and /services.
func ownerFrom(c *gin.Context) models.OwnerType {
	if c.GetString("ownerType") == string(models.OwnerService) {
		return models.OwnerService
	}
	return models.OwnerCourse
}

// OwnerType stamps the owner type resolved from the route group.
func OwnerType(owner models.OwnerType) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("ownerType", string(owner))
		c.Next()
	}
}

// ListCourses godoc
// @Summary List courses
// @Tags Catalog
// @Produce json
// @Param search query string false "Search by name"
// @Param active query bool false "Filter by active flag"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	courses, pagination, err := h.catalog.ListCourses(c.Request.Context(), catalogFilterFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// ListServices godoc
// @Summary List services
// @Tags Catalog
// @Produce json
// @Param search query string false "Search by name"
// @Param active query bool false "Filter by active flag"
// @Success 200 {object} response.Envelope
// @Router /services [get]
func (h *CatalogHandler) ListServices(c *gin.Context) {
	services, pagination, err := h.catalog.ListServices(c.Request.Context(), catalogFilterFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, services, pagination)
}

// GetCourse godoc
// @Summary Get course
// @Tags Catalog
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CatalogHandler) GetCourse(c *gin.Context) {
	course, err := h.catalog.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// GetService godoc
// @Summary Get service
// @Tags Catalog
// @Produce json
// @Param id path string true "Service ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /services/{id} [get]
func (h *CatalogHandler) GetService(c *gin.Context) {
	service, err := h.catalog.GetService(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, service, nil)
}

// CreateCourse godoc
// @Summary Create course
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateOfferingRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [post]
func (h *CatalogHandler) CreateCourse(c *gin.Context) {
	var req dto.CreateOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}
	course, err := h.catalog.CreateCourse(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// CreateService godoc
// @Summary Create service
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateOfferingRequest true "Service payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /services [post]
func (h *CatalogHandler) CreateService(c *gin.Context) {
	var req dto.CreateOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid service payload"))
		return
	}
	service, err := h.catalog.CreateService(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, service)
}

// UpdateOffering godoc
// @Summary Update course or service
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Offering ID"
// @Param payload body dto.UpdateOfferingRequest true "Offering payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CatalogHandler) UpdateOffering(c *gin.Context) {
	var req dto.UpdateOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid offering payload"))
		return
	}
	if err := h.catalog.UpdateOffering(c.Request.Context(), ownerFrom(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GetFeeStructure godoc
// @Summary Get active fee structure for an offering
// @Tags Catalog
// @Produce json
// @Param id path string true "Offering ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/fee-structure [get]
func (h *CatalogHandler) GetFeeStructure(c *gin.Context) {
	fs, err := h.catalog.GetFeeStructure(c.Request.Context(), ownerFrom(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fs, nil)
}

// UpsertFeeStructure godoc
// @Summary Replace the active fee structure for an offering
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Offering ID"
// @Param payload body dto.UpsertFeeStructureRequest true "Fee structure payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/fee-structure [put]
func (h *CatalogHandler) UpsertFeeStructure(c *gin.Context) {
	var req dto.UpsertFeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee structure payload"))
		return
	}
	fs, err := h.catalog.UpsertFeeStructure(c.Request.Context(), ownerFrom(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fs, nil)
}

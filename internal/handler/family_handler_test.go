package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/institute-fee-api/internal/models"
	"github.com/noah-isme/institute-fee-api/internal/service"
)

type feeSubsStub struct {
	byStudent map[string][]models.Subscription
}

func (s feeSubsStub) ListActiveByStudentAt(ctx context.Context, studentID string, d time.Time) ([]models.Subscription, error) {
	return s.byStudent[studentID], nil
}

type feeCatalogStub struct {
	structures map[string]*models.FeeStructure
}

func (s feeCatalogStub) FindFeeStructure(ctx context.Context, owner models.OwnerType, ownerID string) (*models.FeeStructure, error) {
	if fs, ok := s.structures[ownerID]; ok {
		return fs, nil
	}
	return nil, sql.ErrNoRows
}

func (s feeCatalogStub) OfferingName(ctx context.Context, owner models.OwnerType, ownerID string) (string, error) {
	return "", sql.ErrNoRows
}

type feeStudentsStub struct {
	byFamily map[string][]models.Student
}

func (s feeStudentsStub) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	return nil, sql.ErrNoRows
}

func (s feeStudentsStub) ListByFamily(ctx context.Context, familyID string) ([]models.Student, error) {
	return s.byFamily[familyID], nil
}

type feeFamiliesStub struct {
	families map[string]*models.Family
}

func (s feeFamiliesStub) FindByID(ctx context.Context, id string) (*models.Family, error) {
	if family, ok := s.families[id]; ok {
		return family, nil
	}
	return nil, sql.ErrNoRows
}

func newFamilyHandlerForTest() *FamilyHandler {
	courseID := "crs-1"
	subs := feeSubsStub{byStudent: map[string][]models.Subscription{
		"stu-1": {{ID: "sub-1", StudentID: "stu-1", CourseID: &courseID, DiscountAmount: decimal.Zero, StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}},
	}}
	catalog := feeCatalogStub{structures: map[string]*models.FeeStructure{
		"crs-1": {OwnerType: models.OwnerCourse, OwnerID: "crs-1", Amount: decimal.RequireFromString("5000"), BillingCycle: models.CycleMonthly, Active: true},
	}}
	students := feeStudentsStub{byFamily: map[string][]models.Student{
		"fam-1": {{ID: "stu-1", FamilyID: "fam-1", FullName: "Amina"}},
	}}
	families := feeFamiliesStub{families: map[string]*models.Family{
		"fam-1": {ID: "fam-1", Name: "Rahman", DiscountAmount: decimal.RequireFromString("1000")},
	}}
	feeSvc := service.NewFeeService(subs, catalog, students, families, nil, 0, nil)
	return NewFamilyHandler(nil, feeSvc, nil)
}

func performFamilyFees(h *FamilyHandler, target, familyID string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	c.Params = gin.Params{{Key: "id", Value: familyID}}
	h.Fees(c)
	return w
}

func TestFamilyFeesEndpoint(t *testing.T) {
	h := newFamilyHandlerForTest()

	w := performFamilyFees(h, "/families/fam-1/fees?as_of=2026-03-01", "fam-1")

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data struct {
			FamilyGross           string `json:"family_gross"`
			FamilyDiscountApplied string `json:"family_discount_applied"`
			FamilyNet             string `json:"family_net"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "5000", envelope.Data.FamilyGross)
	assert.Equal(t, "1000", envelope.Data.FamilyDiscountApplied)
	assert.Equal(t, "4000", envelope.Data.FamilyNet)
}

func TestFamilyFeesEndpointBadDate(t *testing.T) {
	h := newFamilyHandlerForTest()

	w := performFamilyFees(h, "/families/fam-1/fees?as_of=March", "fam-1")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFamilyFeesEndpointNotFound(t *testing.T) {
	h := newFamilyHandlerForTest()

	w := performFamilyFees(h, "/families/fam-missing/fees", "fam-missing")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/institute-fee-api/internal/models"
)

// CreateOfferingRequest registers a course or a service.
type CreateOfferingRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// UpdateOfferingRequest mutates a course or service.
type UpdateOfferingRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// UpsertFeeStructureRequest replaces the active pricing for an offering.
type UpsertFeeStructureRequest struct {
	Amount       decimal.Decimal     `json:"amount" validate:"required"`
	BillingCycle models.BillingCycle `json:"billing_cycle" validate:"required"`
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/institute-fee-api/internal/models"
)

// CreatePaymentRequest records a family payment and the allocations it
// settles.
type CreatePaymentRequest struct {
	FamilyID      string               `json:"family_id" validate:"required"`
	Amount        decimal.Decimal      `json:"amount" validate:"required"`
	Method        models.PaymentMethod `json:"method" validate:"required"`
	Reference     string               `json:"reference"`
	Notes         string               `json:"notes"`
	PaidAt        *time.Time           `json:"paid_at,omitempty"`
	AllocationIDs []string             `json:"allocation_ids" validate:"required,min=1"`
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/institute-fee-api/internal/models"
)

// FeeLine is one subscription's contribution to a student's monthly fee.
// Amount = max(0, MonthlyEquivalent - Discount); lines always sum to the
// student total.
type FeeLine struct {
	SubscriptionID    string              `json:"subscription_id"`
	OwnerType         models.OwnerType    `json:"owner_type"`
	OwnerID           string              `json:"owner_id"`
	OwnerName         string              `json:"owner_name,omitempty"`
	BaseAmount        decimal.Decimal     `json:"base_amount"`
	BillingCycle      models.BillingCycle `json:"billing_cycle,omitempty"`
	MonthlyEquivalent decimal.Decimal     `json:"monthly_equivalent"`
	Discount          decimal.Decimal     `json:"discount"`
	Amount            decimal.Decimal     `json:"amount"`
}

// StudentFee is the per-student monthly fee with an auditable breakdown.
// The family discount is not applied here; it belongs to the family level.
type StudentFee struct {
	StudentID   string          `json:"student_id"`
	StudentName string          `json:"student_name,omitempty"`
	AsOf        time.Time       `json:"as_of"`
	Total       decimal.Decimal `json:"total"`
	Breakdown   []FeeLine       `json:"breakdown"`
}

// FamilyFee aggregates every student of a family for one billing date and
// applies the family discount exactly once.
type FamilyFee struct {
	FamilyID              string          `json:"family_id"`
	FamilyName            string          `json:"family_name,omitempty"`
	AsOf                  time.Time       `json:"as_of"`
	FamilyGross           decimal.Decimal `json:"family_gross"`
	FamilyDiscountApplied decimal.Decimal `json:"family_discount_applied"`
	FamilyNet             decimal.Decimal `json:"family_net"`
	PerStudent            []StudentFee    `json:"per_student"`
}

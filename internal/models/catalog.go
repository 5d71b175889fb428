package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OwnerType discriminates which offering a fee structure belongs to.
type OwnerType string

// Fee structure owners.
const (
	OwnerCourse  OwnerType = "COURSE"
	OwnerService OwnerType = "SERVICE"
)

// BillingCycle is the cadence a fee structure is quoted at.
type BillingCycle string

// Supported billing cycles.
const (
	CycleMonthly    BillingCycle = "MONTHLY"
	CycleQuarterly  BillingCycle = "QUARTERLY"
	CycleHalfYearly BillingCycle = "HALF_YEARLY"
	CycleYearly     BillingCycle = "YEARLY"
)

// MonthlyDivisor returns the number of months one billed amount covers.
func (c BillingCycle) MonthlyDivisor() int64 {
	switch c {
	case CycleQuarterly:
		return 3
	case CycleHalfYearly:
		return 6
	case CycleYearly:
		return 12
	default:
		return 1
	}
}

// Valid reports whether the cycle is one of the supported values.
func (c BillingCycle) Valid() bool {
	switch c {
	case CycleMonthly, CycleQuarterly, CycleHalfYearly, CycleYearly:
		return true
	}
	return false
}

// Course is a taught offering students subscribe to.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Service is a non-teaching offering (transport, meals, boarding).
type Service struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// FeeStructure prices an offering. At most one active structure per owner.
type FeeStructure struct {
	ID           string          `db:"id" json:"id"`
	OwnerType    OwnerType       `db:"owner_type" json:"owner_type"`
	OwnerID      string          `db:"owner_id" json:"owner_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	BillingCycle BillingCycle    `db:"billing_cycle" json:"billing_cycle"`
	Active       bool            `db:"active" json:"active"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// MonthlyEquivalent normalizes the structure's amount to one month,
// rounded half-up to 2 decimal places so line items are summable.
func (f FeeStructure) MonthlyEquivalent() decimal.Decimal {
	return f.Amount.Div(decimal.NewFromInt(f.BillingCycle.MonthlyDivisor())).Round(2)
}

// CatalogFilter filters course/service listings.
type CatalogFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

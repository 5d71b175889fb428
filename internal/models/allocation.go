package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllocationStatus represents the lifecycle of a fee allocation.
type AllocationStatus string

// Possible allocation statuses.
const (
	AllocationStatusPending AllocationStatus = "PENDING"
	AllocationStatusPaid    AllocationStatus = "PAID"
	AllocationStatusWaived  AllocationStatus = "WAIVED"
)

// FeeAllocation is one student's materialized obligation for one billing
// period and one source subscription. Rows are created by the monthly
// materializer; only paid state ever mutates afterwards. The store enforces
// uniqueness over (student_id, subscription_id, period_month, period_year).
type FeeAllocation struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	SubscriptionID string           `db:"subscription_id" json:"subscription_id"`
	PeriodMonth    int              `db:"period_month" json:"period_month"`
	PeriodYear     int              `db:"period_year" json:"period_year"`
	Amount         decimal.Decimal  `db:"amount" json:"amount"`
	Status         AllocationStatus `db:"status" json:"status"`
	IsPaid         bool             `db:"is_paid" json:"is_paid"`
	PaidDate       *time.Time       `db:"paid_date" json:"paid_date,omitempty"`
	PaymentID      *string          `db:"payment_id" json:"payment_id,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}

// AllocationFilter provides filters for listing allocations.
type AllocationFilter struct {
	StudentID   string
	FamilyID    string
	PeriodMonth int
	PeriodYear  int
	Status      AllocationStatus
	IsPaid      *bool
	Page        int
	PageSize    int
}

// AllocationPeriodSummary aggregates one billing period.
type AllocationPeriodSummary struct {
	PeriodMonth int             `db:"period_month" json:"period_month"`
	PeriodYear  int             `db:"period_year" json:"period_year"`
	Count       int             `db:"count" json:"count"`
	PaidCount   int             `db:"paid_count" json:"paid_count"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaidAmount  decimal.Decimal `db:"paid_amount" json:"paid_amount"`
}

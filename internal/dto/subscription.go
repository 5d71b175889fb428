package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateSubscriptionRequest enrolls a student in exactly one of a course or
// a service.
type CreateSubscriptionRequest struct {
	StudentID      string          `json:"student_id" validate:"required"`
	CourseID       *string         `json:"course_id,omitempty"`
	ServiceID      *string         `json:"service_id,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	StartDate      time.Time       `json:"start_date" validate:"required"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
}

// EndSubscriptionRequest stamps the end of an enrollment.
type EndSubscriptionRequest struct {
	EndDate time.Time `json:"end_date" validate:"required"`
}

// UpdateSubscriptionDiscountRequest changes the per-subscription discount.
type UpdateSubscriptionDiscountRequest struct {
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription links a student to exactly one of a course or a service.
// A nil EndDate means the subscription is still running; unenrollment sets
// EndDate rather than deleting the row, so historical allocations keep a
// valid reference.
type Subscription struct {
	ID             string          `db:"id" json:"id"`
	StudentID      string          `db:"student_id" json:"student_id"`
	CourseID       *string         `db:"course_id" json:"course_id,omitempty"`
	ServiceID      *string         `db:"service_id" json:"service_id,omitempty"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	StartDate      time.Time       `db:"start_date" json:"start_date"`
	EndDate        *time.Time      `db:"end_date" json:"end_date,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Owner returns the offering reference. ok is false when the row violates
// the exactly-one-of invariant.
func (s Subscription) Owner() (OwnerType, string, bool) {
	switch {
	case s.CourseID != nil && s.ServiceID == nil:
		return OwnerCourse, *s.CourseID, true
	case s.ServiceID != nil && s.CourseID == nil:
		return OwnerService, *s.ServiceID, true
	}
	return "", "", false
}

// ActiveAt reports whether the subscription covers date d.
func (s Subscription) ActiveAt(d time.Time) bool {
	if s.StartDate.After(d) {
		return false
	}
	return s.EndDate == nil || !s.EndDate.Before(d)
}

// SubscriptionDetail enriches Subscription with offering and student names.
type SubscriptionDetail struct {
	Subscription
	StudentName  string  `db:"student_name" json:"student_name"`
	OfferingName *string `db:"offering_name" json:"offering_name,omitempty"`
}

// SubscriptionFilter provides filters for listing subscriptions.
type SubscriptionFilter struct {
	StudentID string
	FamilyID  string
	CourseID  string
	ServiceID string
	ActiveAt  *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

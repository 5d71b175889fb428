package dto

import "github.com/shopspring/decimal"

// CreateFamilyRequest registers a new family.
type CreateFamilyRequest struct {
	Name           string          `json:"name" validate:"required"`
	GuardianName   string          `json:"guardian_name" validate:"required"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email" validate:"omitempty,email"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// UpdateFamilyRequest mutates an existing family, including its discount.
type UpdateFamilyRequest struct {
	Name           string          `json:"name" validate:"required"`
	GuardianName   string          `json:"guardian_name" validate:"required"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email" validate:"omitempty,email"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Active         bool            `json:"active"`
}

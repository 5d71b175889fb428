package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Family groups students under one guardian account. DiscountAmount is a
// flat amount subtracted once per family per billing period, never per
// student or per subscription.
type Family struct {
	ID             string          `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	GuardianName   string          `db:"guardian_name" json:"guardian_name"`
	Phone          string          `db:"phone" json:"phone"`
	Email          string          `db:"email" json:"email"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	Active         bool            `db:"active" json:"active"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// FamilyFilter captures filtering criteria for listing families.
type FamilyFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates accepted payment channels.
type PaymentMethod string

// Accepted payment methods.
const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentCard     PaymentMethod = "CARD"
	PaymentOnline   PaymentMethod = "ONLINE"
)

// Payment is a family-level payment that can settle one or more allocations.
type Payment struct {
	ID        string          `db:"id" json:"id"`
	FamilyID  string          `db:"family_id" json:"family_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Method    PaymentMethod   `db:"method" json:"method"`
	Reference string          `db:"reference" json:"reference"`
	Notes     string          `db:"notes" json:"notes"`
	PaidAt    time.Time       `db:"paid_at" json:"paid_at"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

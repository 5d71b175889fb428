package dto

import "github.com/shopspring/decimal"

// MaterializeRequest selects the billing period to materialize.
type MaterializeRequest struct {
	Month int `json:"month" validate:"required,min=1,max=12"`
	Year  int `json:"year" validate:"required,min=1000,max=9999"`
}

// MaterializeResult summarizes one materializer run. Skipped counts
// allocations that already existed for the period, including rows lost to a
// concurrent run's insert.
type MaterializeResult struct {
	Month       int             `json:"month"`
	Year        int             `json:"year"`
	Created     int             `json:"created"`
	Skipped     int             `json:"skipped"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Exchange represents a cryptocurrency exchange known to the scanner.
// Instances are created from configuration and are read-only afterwards.
type Exchange struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	MakerFee    decimal.Decimal `json:"maker_fee"`
	TakerFee    decimal.Decimal `json:"taker_fee"`
	IsActive    bool            `json:"is_active"`
	RateLimit   int             `json:"rate_limit"`
	APIURL      string          `json:"api_url"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TakerFeePct returns the taker fee expressed in percent: a fee schedule
// of 0.001 becomes 0.1.
func (e *Exchange) TakerFeePct() decimal.Decimal {
	return e.TakerFee.Mul(decimal.NewFromInt(100))
}

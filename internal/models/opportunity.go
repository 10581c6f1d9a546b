package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ArbitrageOpportunity is a fee-adjusted cross-exchange opportunity derived
// from one cycle's price matrix. BuyExchangeID and SellExchangeID always
// differ; NetProfitPct is computed from taker fees on both legs.
type ArbitrageOpportunity struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	BuyExchangeID  string          `json:"buy_exchange_id"`
	SellExchangeID string          `json:"sell_exchange_id"`
	BuyPrice       decimal.Decimal `json:"buy_price"`
	SellPrice      decimal.Decimal `json:"sell_price"`
	GrossSpreadPct decimal.Decimal `json:"gross_spread_pct"`
	NetProfitPct   decimal.Decimal `json:"net_profit_pct"`
	ProfitPer1000  decimal.Decimal `json:"profit_per_1000"`
	Volume         decimal.Decimal `json:"volume"`
	CycleID        string          `json:"cycle_id"`
	DetectedAt     time.Time       `json:"detected_at"`
	Alerted        bool            `json:"alerted"`
}

// Key identifies an opportunity for cooldown purposes. Direction matters:
// A->B and B->A for the same symbol are tracked independently.
func (o *ArbitrageOpportunity) Key() OpportunityKey {
	return OpportunityKey{
		Symbol:         o.Symbol,
		BuyExchangeID:  o.BuyExchangeID,
		SellExchangeID: o.SellExchangeID,
	}
}

// OpportunityKey is the (symbol, buy exchange, sell exchange) identity used
// by alert deduplication.
type OpportunityKey struct {
	Symbol         string
	BuyExchangeID  string
	SellExchangeID string
}

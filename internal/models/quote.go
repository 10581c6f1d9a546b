package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is the best bid/ask observed for one symbol on one exchange
// during a single poll cycle. Quotes are owned by the cycle that produced
// them and are discarded once the cycle's analysis completes.
type PriceQuote struct {
	ExchangeID string          `json:"exchange_id"`
	Symbol     string          `json:"symbol"`
	Bid        decimal.Decimal `json:"bid"`
	Ask        decimal.Decimal `json:"ask"`
	BidVolume  decimal.Decimal `json:"bid_volume"`
	AskVolume  decimal.Decimal `json:"ask_volume"`
	ObservedAt time.Time       `json:"observed_at"`
}

// Valid reports whether the quote satisfies its basic invariants:
// bid <= ask when both sides are present and non-negative volumes.
func (q *PriceQuote) Valid() bool {
	if q.BidVolume.IsNegative() || q.AskVolume.IsNegative() {
		return false
	}
	if q.Bid.IsPositive() && q.Ask.IsPositive() && q.Bid.GreaterThan(q.Ask) {
		return false
	}
	return true
}

// PriceSnapshot is the complete set of quotes gathered across all exchanges
// during one poll cycle, tagged with the cycle id and the acquisition window.
// A quote belongs to the snapshot only if it was obtained strictly within
// [StartedAt, Deadline].
type PriceSnapshot struct {
	CycleID   string             `json:"cycle_id"`
	StartedAt time.Time          `json:"started_at"`
	Deadline  time.Time          `json:"deadline"`
	Quotes    []PriceQuote       `json:"quotes"`
	Results   []ExchangeResult   `json:"results"`
}

// ExchangeResult records the outcome of polling one exchange in one cycle,
// kept for observability. Any amount of per-exchange failure is normal.
type ExchangeResult struct {
	ExchangeID string        `json:"exchange_id"`
	Quotes     int           `json:"quotes"`
	Latency    time.Duration `json:"latency"`
	Err        error         `json:"-"`
	ErrKind    string        `json:"error_kind,omitempty"`
}

// InWindow reports whether t falls inside the snapshot's acquisition window.
func (s *PriceSnapshot) InWindow(t time.Time) bool {
	return !t.Before(s.StartedAt) && !t.After(s.Deadline)
}

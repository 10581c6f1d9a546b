// Package analyzer turns one cycle's price snapshot into fee-adjusted
// arbitrage opportunities and suppresses re-alerts within the cooldown
// window.
package analyzer

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/arbiscan/internal/config"
	"github.com/avolkov/arbiscan/internal/models"
)

var hundred = decimal.NewFromInt(100)
var thousand = decimal.NewFromInt(1000)

// Analyzer evaluates every ordered exchange pair in a price matrix against
// the configured profit and volume thresholds. All arithmetic is decimal;
// currency values never touch binary floating point.
type Analyzer struct {
	exchanges map[string]models.Exchange
	logger    *logrus.Entry
	now       func() time.Time
}

func NewAnalyzer(exchanges []models.Exchange) *Analyzer {
	byID := make(map[string]models.Exchange, len(exchanges))
	for _, ex := range exchanges {
		byID[ex.ID] = ex
	}
	return &Analyzer{
		exchanges: byID,
		logger:    logrus.WithField("component", "analyzer"),
		now:       time.Now,
	}
}

// Analyze walks each symbol row and evaluates both directions of every
// exchange pair independently: fee asymmetry can make only one direction
// profitable. The result is sorted by net profit descending, with ties
// broken by symbol and then buy-exchange id so output is reproducible and
// batch-capped notifiers always see the best opportunities first.
func (a *Analyzer) Analyze(matrix Matrix, settings config.Settings, cycleID string) ([]models.ArbitrageOpportunity, error) {
	var opportunities []models.ArbitrageOpportunity

	for _, symbol := range matrix.Symbols() {
		entries := matrix[symbol]
		for i := range entries {
			for j := range entries {
				if i == j {
					continue
				}
				opp, ok, err := a.evaluate(symbol, entries[i], entries[j], settings, cycleID)
				if err != nil {
					return nil, err
				}
				if ok {
					opportunities = append(opportunities, opp)
				}
			}
		}
	}

	sortOpportunities(opportunities)

	a.logger.WithFields(logrus.Fields{
		"cycle_id":      cycleID,
		"symbols":       len(matrix),
		"opportunities": len(opportunities),
	}).Info("analysis completed")

	return opportunities, nil
}

// evaluate prices the "buy at buy.Ask, sell at sell.Bid" direction of one
// exchange pair.
func (a *Analyzer) evaluate(symbol string, buy, sell MatrixEntry, settings config.Settings, cycleID string) (models.ArbitrageOpportunity, bool, error) {
	none := models.ArbitrageOpportunity{}

	buyExchange, ok := a.exchanges[buy.ExchangeID]
	if !ok {
		return none, false, fmt.Errorf("quote from unknown exchange %q", buy.ExchangeID)
	}
	sellExchange, ok := a.exchanges[sell.ExchangeID]
	if !ok {
		return none, false, fmt.Errorf("quote from unknown exchange %q", sell.ExchangeID)
	}

	if !buy.Ask.IsPositive() || !sell.Bid.IsPositive() {
		return none, false, nil
	}

	grossSpreadPct := sell.Bid.Sub(buy.Ask).Div(buy.Ask).Mul(hundred)
	if !grossSpreadPct.IsPositive() {
		return none, false, nil
	}

	// Both legs fill as takers, so both taker fees come off the spread.
	feePct := buyExchange.TakerFeePct().Add(sellExchange.TakerFeePct())
	netProfitPct := grossSpreadPct.Sub(feePct)

	volume := decimal.Min(buy.AskVolume, sell.BidVolume)
	if volume.LessThan(settings.MinVolume) {
		return none, false, nil
	}
	if netProfitPct.LessThan(settings.MinProfitPct) {
		return none, false, nil
	}

	return models.ArbitrageOpportunity{
		ID:             uuid.New().String(),
		Symbol:         symbol,
		BuyExchangeID:  buy.ExchangeID,
		SellExchangeID: sell.ExchangeID,
		BuyPrice:       buy.Ask,
		SellPrice:      sell.Bid,
		GrossSpreadPct: grossSpreadPct,
		NetProfitPct:   netProfitPct,
		ProfitPer1000:  netProfitPct.Div(hundred).Mul(thousand),
		Volume:         volume,
		CycleID:        cycleID,
		DetectedAt:     a.now().UTC(),
	}, true, nil
}

func sortOpportunities(opportunities []models.ArbitrageOpportunity) {
	sort.Slice(opportunities, func(i, j int) bool {
		a, b := opportunities[i], opportunities[j]
		if cmp := a.NetProfitPct.Cmp(b.NetProfitPct); cmp != 0 {
			return cmp > 0
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.BuyExchangeID < b.BuyExchangeID
	})
}

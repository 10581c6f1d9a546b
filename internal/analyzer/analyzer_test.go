package analyzer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/arbiscan/internal/config"
	"github.com/avolkov/arbiscan/internal/models"
)

func testExchange(id string, takerFee float64) models.Exchange {
	return models.Exchange{
		ID:       id,
		TakerFee: decimal.NewFromFloat(takerFee),
		IsActive: true,
	}
}

func testSettings(minProfitPct, minVolume float64) config.Settings {
	return config.Settings{
		MinProfitPct: decimal.NewFromFloat(minProfitPct),
		MinVolume:    decimal.NewFromFloat(minVolume),
	}
}

func entry(exchangeID string, bid, ask, bidVol, askVol float64) MatrixEntry {
	return MatrixEntry{
		ExchangeID: exchangeID,
		Bid:        decimal.NewFromFloat(bid),
		Ask:        decimal.NewFromFloat(ask),
		BidVolume:  decimal.NewFromFloat(bidVol),
		AskVolume:  decimal.NewFromFloat(askVol),
	}
}

func TestAnalyzeDetectsSpread(t *testing.T) {
	a := NewAnalyzer([]models.Exchange{
		testExchange("alpha", 0),
		testExchange("beta", 0),
	})
	matrix := Matrix{
		"BTC/USDT": {
			entry("alpha", 99.5, 100, 5, 2),
			entry("beta", 102, 102.5, 3, 4),
		},
	}

	opps, err := a.Analyze(matrix, testSettings(1.0, 1.0), "cycle-1")
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, "BTC/USDT", opp.Symbol)
	assert.Equal(t, "alpha", opp.BuyExchangeID)
	assert.Equal(t, "beta", opp.SellExchangeID)
	assert.True(t, opp.BuyPrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, opp.SellPrice.Equal(decimal.NewFromInt(102)))
	assert.True(t, opp.NetProfitPct.Equal(decimal.NewFromInt(2)), "net %s", opp.NetProfitPct)
	// With zero fees the gross spread and net profit coincide.
	assert.True(t, opp.GrossSpreadPct.Equal(opp.NetProfitPct))
	// Tradable volume is the smaller of ask volume and bid volume.
	assert.True(t, opp.Volume.Equal(decimal.NewFromInt(2)), "volume %s", opp.Volume)
	assert.True(t, opp.ProfitPer1000.Equal(decimal.NewFromInt(20)), "per-1000 %s", opp.ProfitPer1000)
	assert.Equal(t, "cycle-1", opp.CycleID)
}

func TestAnalyzeFeesEraseProfit(t *testing.T) {
	// 2% gross spread minus a 1% taker fee on each leg nets exactly zero.
	a := NewAnalyzer([]models.Exchange{
		testExchange("alpha", 0.01),
		testExchange("beta", 0.01),
	})
	matrix := Matrix{
		"BTC/USDT": {
			entry("alpha", 99.5, 100, 5, 2),
			entry("beta", 102, 102.5, 3, 4),
		},
	}

	opps, err := a.Analyze(matrix, testSettings(1.0, 1.0), "cycle-1")
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestAnalyzeVolumeBelowThreshold(t *testing.T) {
	a := NewAnalyzer([]models.Exchange{
		testExchange("alpha", 0),
		testExchange("beta", 0),
	})
	matrix := Matrix{
		"BTC/USDT": {
			entry("alpha", 99.5, 100, 5, 0.5),
			entry("beta", 102, 102.5, 3, 4),
		},
	}

	opps, err := a.Analyze(matrix, testSettings(1.0, 1.0), "cycle-1")
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestAnalyzeBothDirections(t *testing.T) {
	// Only the alpha->beta direction has a positive spread; the reverse
	// route is evaluated independently and rejected.
	a := NewAnalyzer([]models.Exchange{
		testExchange("alpha", 0),
		testExchange("beta", 0.03),
	})
	matrix := Matrix{
		"ETH/USDT": {
			entry("alpha", 100, 100, 50, 50),
			entry("beta", 104, 104, 50, 50),
		},
	}

	opps, err := a.Analyze(matrix, testSettings(1.0, 1.0), "cycle-1")
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, "alpha", opps[0].BuyExchangeID)
	assert.Equal(t, "beta", opps[0].SellExchangeID)
	// 4% gross minus the 3% taker fee on the selling leg.
	assert.True(t, opps[0].NetProfitPct.Equal(decimal.NewFromInt(1)))
}

func TestAnalyzeOrdering(t *testing.T) {
	a := NewAnalyzer([]models.Exchange{
		testExchange("alpha", 0),
		testExchange("beta", 0),
		testExchange("gamma", 0),
	})
	matrix := Matrix{
		// 2% spread on both symbols from alpha, 5% from beta on ZEC.
		"ADA/USDT": {
			entry("alpha", 0, 100, 0, 10),
			entry("gamma", 102, 103, 10, 0),
		},
		"ZEC/USDT": {
			entry("alpha", 0, 100, 0, 10),
			entry("beta", 0, 100, 0, 10),
			entry("gamma", 105, 106, 10, 0),
		},
	}

	opps, err := a.Analyze(matrix, testSettings(1.0, 1.0), "cycle-1")
	require.NoError(t, err)
	require.Len(t, opps, 3)

	// Best net profit first.
	assert.Equal(t, "ZEC/USDT", opps[0].Symbol)
	assert.Equal(t, "alpha", opps[0].BuyExchangeID)
	// The two 5% ZEC routes tie on profit and symbol; buy-exchange id
	// breaks the tie.
	assert.Equal(t, "ZEC/USDT", opps[1].Symbol)
	assert.Equal(t, "beta", opps[1].BuyExchangeID)
	assert.Equal(t, "ADA/USDT", opps[2].Symbol)
}

func TestAnalyzeUnknownExchange(t *testing.T) {
	a := NewAnalyzer([]models.Exchange{testExchange("alpha", 0)})
	matrix := Matrix{
		"BTC/USDT": {
			entry("alpha", 99, 100, 5, 5),
			entry("ghost", 102, 103, 5, 5),
		},
	}

	_, err := a.Analyze(matrix, testSettings(1.0, 1.0), "cycle-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestAnalyzeSkipsNonPositivePrices(t *testing.T) {
	a := NewAnalyzer([]models.Exchange{
		testExchange("alpha", 0),
		testExchange("beta", 0),
	})
	matrix := Matrix{
		"BTC/USDT": {
			entry("alpha", 0, 0, 0, 10),
			entry("beta", 102, 103, 10, 10),
		},
	}

	opps, err := a.Analyze(matrix, testSettings(0, 0), "cycle-1")
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestAnalyzeDetectedAtUsesClock(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewAnalyzer([]models.Exchange{
		testExchange("alpha", 0),
		testExchange("beta", 0),
	})
	a.now = func() time.Time { return fixed }

	matrix := Matrix{
		"BTC/USDT": {
			entry("alpha", 99, 100, 10, 10),
			entry("beta", 102, 103, 10, 10),
		},
	}
	opps, err := a.Analyze(matrix, testSettings(1.0, 1.0), "cycle-1")
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, fixed, opps[0].DetectedAt)
}

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/arbiscan/internal/models"
)

func testSnapshot() *models.PriceSnapshot {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.PriceSnapshot{
		CycleID:   "11111111-1111-1111-1111-111111111111",
		StartedAt: start,
		Deadline:  start.Add(30 * time.Second),
		Quotes: []models.PriceQuote{
			{
				ExchangeID: "mexc",
				Symbol:     "BTC/USDT",
				Bid:        decimal.NewFromInt(64000),
				Ask:        decimal.NewFromInt(64001),
				BidVolume:  decimal.NewFromInt(2),
				AskVolume:  decimal.NewFromInt(3),
				ObservedAt: start.Add(time.Second),
			},
		},
	}
}

func TestSaveSnapshot(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	snapshot := testSnapshot()
	mockPool.ExpectExec("INSERT INTO price_snapshots").
		WithArgs(snapshot.CycleID, snapshot.StartedAt, snapshot.Deadline).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec("INSERT INTO price_quotes").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewSnapshotStore(mockPool)
	require.NoError(t, store.SaveSnapshot(context.Background(), snapshot))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestLatestSnapshotEmpty(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT cycle_id, started_at, deadline").
		WillReturnRows(pgxmock.NewRows([]string{"cycle_id", "started_at", "deadline"}))

	store := NewSnapshotStore(mockPool)
	snapshot, err := store.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestLatestSnapshotRoundTrip(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	want := testSnapshot()
	mockPool.ExpectQuery("SELECT cycle_id, started_at, deadline").
		WillReturnRows(pgxmock.NewRows([]string{"cycle_id", "started_at", "deadline"}).
			AddRow(want.CycleID, want.StartedAt, want.Deadline))
	mockPool.ExpectQuery("SELECT exchange_id, symbol, bid, ask").
		WithArgs(want.CycleID).
		WillReturnRows(pgxmock.NewRows([]string{"exchange_id", "symbol", "bid", "ask", "bid_volume", "ask_volume", "observed_at"}).
			AddRow("mexc", "BTC/USDT", decimal.NewFromInt(64000), decimal.NewFromInt(64001),
				decimal.NewFromInt(2), decimal.NewFromInt(3), want.Quotes[0].ObservedAt))

	store := NewSnapshotStore(mockPool)
	got, err := store.LatestSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.CycleID, got.CycleID)
	require.Len(t, got.Quotes, 1)
	assert.Equal(t, "mexc", got.Quotes[0].ExchangeID)
	assert.True(t, got.Quotes[0].Bid.Equal(decimal.NewFromInt(64000)))
}

func TestSaveOpportunities(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	opp := models.ArbitrageOpportunity{
		ID:             "22222222-2222-2222-2222-222222222222",
		Symbol:         "BTC/USDT",
		BuyExchangeID:  "mexc",
		SellExchangeID: "bybit",
		BuyPrice:       decimal.NewFromInt(100),
		SellPrice:      decimal.NewFromInt(102),
		GrossSpreadPct: decimal.NewFromInt(2),
		NetProfitPct:   decimal.NewFromInt(2),
		ProfitPer1000:  decimal.NewFromInt(20),
		Volume:         decimal.NewFromInt(2),
		CycleID:        "11111111-1111-1111-1111-111111111111",
		DetectedAt:     time.Now().UTC(),
		Alerted:        true,
	}

	mockPool.ExpectExec("INSERT INTO arbitrage_opportunities").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewOpportunityStore(mockPool)
	require.NoError(t, store.SaveOpportunities(context.Background(), []models.ArbitrageOpportunity{opp}))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSaveOpportunitiesError(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectExec("INSERT INTO arbitrage_opportunities").
		WillReturnError(errors.New("connection reset"))

	store := NewOpportunityStore(mockPool)
	err = store.SaveOpportunities(context.Background(), []models.ArbitrageOpportunity{
		{Symbol: "BTC/USDT", BuyExchangeID: "mexc", SellExchangeID: "bybit"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BTC/USDT")
}

func TestRecentOpportunities(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	now := time.Now().UTC()
	cols := []string{"id", "symbol", "buy_exchange_id", "sell_exchange_id", "buy_price", "sell_price",
		"gross_spread_pct", "net_profit_pct", "profit_per_1000", "volume", "cycle_id", "detected_at", "alerted"}
	mockPool.ExpectQuery("SELECT (.+) FROM arbitrage_opportunities").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("id-1", "BTC/USDT", "mexc", "bybit",
				decimal.NewFromInt(100), decimal.NewFromInt(102),
				decimal.NewFromInt(2), decimal.NewFromInt(2),
				decimal.NewFromInt(20), decimal.NewFromInt(2),
				"cycle-1", now, true))

	store := NewOpportunityStore(mockPool)
	opps, err := store.RecentOpportunities(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, "BTC/USDT", opps[0].Symbol)
	assert.True(t, opps[0].NetProfitPct.Equal(decimal.NewFromInt(2)))
}

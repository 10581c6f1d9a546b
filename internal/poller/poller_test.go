package poller

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/arbiscan/internal/exchange"
	"github.com/avolkov/arbiscan/internal/models"
)

// fakeAdapter serves canned quotes or a canned failure.
type fakeAdapter struct {
	id     string
	quotes []models.PriceQuote
	err    error
	delay  time.Duration
}

func (f *fakeAdapter) Exchange() models.Exchange {
	return models.Exchange{ID: f.id, IsActive: true}
}

func (f *fakeAdapter) NormalizeSymbol(symbol string) string { return symbol }

func (f *fakeAdapter) ListSymbols(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeAdapter) FetchQuotes(ctx context.Context, symbols []string) ([]models.PriceQuote, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, &exchange.AdapterError{ExchangeID: f.id, Kind: exchange.ErrTimeout, Err: ctx.Err()}
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	quotes := make([]models.PriceQuote, len(f.quotes))
	copy(quotes, f.quotes)
	for i := range quotes {
		quotes[i].ExchangeID = f.id
		if quotes[i].ObservedAt.IsZero() {
			quotes[i].ObservedAt = time.Now().UTC()
		}
	}
	return quotes, nil
}

func fakeQuote(symbol string) models.PriceQuote {
	return models.PriceQuote{
		Symbol:    symbol,
		Bid:       decimal.NewFromInt(100),
		Ask:       decimal.NewFromInt(101),
		BidVolume: decimal.NewFromInt(5),
		AskVolume: decimal.NewFromInt(5),
	}
}

func TestPollCollectsFromAllAdapters(t *testing.T) {
	p := New([]exchange.Adapter{
		&fakeAdapter{id: "alpha", quotes: []models.PriceQuote{fakeQuote("BTC/USDT")}},
		&fakeAdapter{id: "beta", quotes: []models.PriceQuote{fakeQuote("BTC/USDT"), fakeQuote("ETH/USDT")}},
	})

	snapshot := p.Poll(context.Background(), []string{"BTC/USDT", "ETH/USDT"}, 5*time.Second)

	require.NotEmpty(t, snapshot.CycleID)
	assert.Len(t, snapshot.Quotes, 3)
	require.Len(t, snapshot.Results, 2)
	assert.Equal(t, "alpha", snapshot.Results[0].ExchangeID)
	assert.Equal(t, "beta", snapshot.Results[1].ExchangeID)
	for _, r := range snapshot.Results {
		assert.NoError(t, r.Err)
	}
}

func TestPollPartialFailure(t *testing.T) {
	failure := &exchange.AdapterError{
		ExchangeID: "beta",
		Kind:       exchange.ErrUnreachable,
		Err:        fmt.Errorf("connection refused"),
	}
	p := New([]exchange.Adapter{
		&fakeAdapter{id: "alpha", quotes: []models.PriceQuote{fakeQuote("BTC/USDT")}},
		&fakeAdapter{id: "beta", err: failure},
	})

	snapshot := p.Poll(context.Background(), []string{"BTC/USDT"}, 5*time.Second)

	// The failed exchange contributes nothing; the cycle carries on.
	assert.Len(t, snapshot.Quotes, 1)
	assert.Equal(t, "alpha", snapshot.Quotes[0].ExchangeID)

	require.Len(t, snapshot.Results, 2)
	assert.Error(t, snapshot.Results[1].Err)
	assert.Equal(t, string(exchange.ErrUnreachable), snapshot.Results[1].ErrKind)
}

func TestPollAllFail(t *testing.T) {
	p := New([]exchange.Adapter{
		&fakeAdapter{id: "alpha", err: fmt.Errorf("boom")},
		&fakeAdapter{id: "beta", err: fmt.Errorf("boom")},
	})

	snapshot := p.Poll(context.Background(), []string{"BTC/USDT"}, time.Second)
	assert.Empty(t, snapshot.Quotes)
	assert.Len(t, snapshot.Results, 2)
}

func TestPollSlowAdapterTimesOut(t *testing.T) {
	p := New([]exchange.Adapter{
		&fakeAdapter{id: "alpha", quotes: []models.PriceQuote{fakeQuote("BTC/USDT")}},
		&fakeAdapter{id: "slow", delay: 2 * time.Second},
	})

	start := time.Now()
	snapshot := p.Poll(context.Background(), []string{"BTC/USDT"}, 100*time.Millisecond)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second, "slow adapter must not delay the cycle past the deadline")
	assert.Len(t, snapshot.Quotes, 1)

	require.Len(t, snapshot.Results, 2)
	assert.Equal(t, string(exchange.ErrTimeout), snapshot.Results[1].ErrKind)
}

func TestPollDropsQuotesOutsideWindow(t *testing.T) {
	stale := fakeQuote("BTC/USDT")
	stale.ObservedAt = time.Now().UTC().Add(-time.Hour)
	p := New([]exchange.Adapter{
		&fakeAdapter{id: "alpha", quotes: []models.PriceQuote{stale, fakeQuote("ETH/USDT")}},
	})

	snapshot := p.Poll(context.Background(), []string{"BTC/USDT", "ETH/USDT"}, 5*time.Second)

	require.Len(t, snapshot.Quotes, 1)
	assert.Equal(t, "ETH/USDT", snapshot.Quotes[0].Symbol)
	assert.Equal(t, 1, snapshot.Results[0].Quotes)
}

func TestPollNoAdapters(t *testing.T) {
	p := New(nil)
	snapshot := p.Poll(context.Background(), []string{"BTC/USDT"}, time.Second)
	assert.Empty(t, snapshot.Quotes)
	assert.Empty(t, snapshot.Results)
	assert.NotEmpty(t, snapshot.CycleID)
}

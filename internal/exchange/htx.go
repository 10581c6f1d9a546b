package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/avolkov/arbiscan/internal/models"
)

// HTXAdapter polls HTX's merged market detail endpoint, whose tick carries
// the best bid/ask as [price, size] pairs.
type HTXAdapter struct {
	baseAdapter
	symbolsURL string
}

func NewHTXAdapter(ex models.Exchange, client *restClient, resolver *SymbolResolver) *HTXAdapter {
	return &HTXAdapter{
		baseAdapter: newBaseAdapter(ex, client, resolver),
		symbolsURL:  "https://api.huobi.pro/v1/common/symbols",
	}
}

// NormalizeSymbol maps to HTX's separator-free lowercase format:
// BTC/USDT -> btcusdt.
func (a *HTXAdapter) NormalizeSymbol(symbol string) string {
	s := strings.NewReplacer("/", "", "-", "", "_", "").Replace(symbol)
	return strings.ToLower(s)
}

func (a *HTXAdapter) FetchQuotes(ctx context.Context, symbols []string) ([]models.PriceQuote, error) {
	return a.fetchAll(ctx, a, symbols, a.fetchTicker)
}

func (a *HTXAdapter) fetchTicker(ctx context.Context, venueSymbol string) (models.PriceQuote, error) {
	var resp struct {
		Status string `json:"status"`
		Tick   struct {
			Bid []json.Number `json:"bid"`
			Ask []json.Number `json:"ask"`
		} `json:"tick"`
	}
	params := url.Values{"symbol": {venueSymbol}}
	if err := a.client.getJSON(ctx, a.exchange.APIURL, params, &resp); err != nil {
		return models.PriceQuote{}, err
	}
	if resp.Status != "ok" || len(resp.Tick.Bid) < 2 || len(resp.Tick.Ask) < 2 {
		return models.PriceQuote{}, &AdapterError{
			ExchangeID: a.exchange.ID,
			Kind:       ErrMalformedResponse,
			Err:        fmt.Errorf("incomplete tick for %s", venueSymbol),
		}
	}

	quote := models.PriceQuote{}
	for _, field := range []struct {
		num  json.Number
		dest *decimal.Decimal
	}{
		{resp.Tick.Bid[0], &quote.Bid},
		{resp.Tick.Bid[1], &quote.BidVolume},
		{resp.Tick.Ask[0], &quote.Ask},
		{resp.Tick.Ask[1], &quote.AskVolume},
	} {
		d, err := decimal.NewFromString(field.num.String())
		if err != nil {
			return models.PriceQuote{}, &AdapterError{
				ExchangeID: a.exchange.ID,
				Kind:       ErrMalformedResponse,
				Err:        fmt.Errorf("bad tick value %q: %w", field.num, err),
			}
		}
		*field.dest = d
	}
	return quote, nil
}

func (a *HTXAdapter) ListSymbols(ctx context.Context) ([]string, error) {
	var resp struct {
		Data []struct {
			Base  string `json:"base-currency"`
			Quote string `json:"quote-currency"`
			State string `json:"state"`
		} `json:"data"`
	}
	if err := a.client.getJSON(ctx, a.symbolsURL, nil, &resp); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(resp.Data))
	for _, s := range resp.Data {
		if s.State == "online" && s.Base != "" && s.Quote != "" {
			symbols = append(symbols, s.Base+s.Quote)
		}
	}
	return symbols, nil
}

package exchange

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/avolkov/arbiscan/internal/models"
)

// MEXCAdapter polls the MEXC spot book ticker endpoint.
type MEXCAdapter struct {
	baseAdapter
	symbolsURL string
}

func NewMEXCAdapter(ex models.Exchange, client *restClient, resolver *SymbolResolver) *MEXCAdapter {
	return &MEXCAdapter{
		baseAdapter: newBaseAdapter(ex, client, resolver),
		symbolsURL:  "https://api.mexc.com/api/v3/exchangeInfo",
	}
}

// NormalizeSymbol maps to MEXC's separator-free uppercase format:
// BTC/USDT -> BTCUSDT.
func (a *MEXCAdapter) NormalizeSymbol(symbol string) string {
	s := strings.NewReplacer("/", "", "-", "", "_", "").Replace(symbol)
	return strings.ToUpper(s)
}

func (a *MEXCAdapter) FetchQuotes(ctx context.Context, symbols []string) ([]models.PriceQuote, error) {
	return a.fetchAll(ctx, a, symbols, a.fetchTicker)
}

func (a *MEXCAdapter) fetchTicker(ctx context.Context, venueSymbol string) (models.PriceQuote, error) {
	var resp struct {
		BidPrice string `json:"bidPrice"`
		BidQty   string `json:"bidQty"`
		AskPrice string `json:"askPrice"`
		AskQty   string `json:"askQty"`
	}
	params := url.Values{"symbol": {venueSymbol}}
	if err := a.client.getJSON(ctx, a.exchange.APIURL, params, &resp); err != nil {
		return models.PriceQuote{}, err
	}
	if resp.BidPrice == "" || resp.AskPrice == "" {
		return models.PriceQuote{}, &AdapterError{
			ExchangeID: a.exchange.ID,
			Kind:       ErrMalformedResponse,
			Err:        fmt.Errorf("missing bid/ask for %s", venueSymbol),
		}
	}
	return parseQuote(a.exchange.ID, resp.BidPrice, resp.AskPrice, resp.BidQty, resp.AskQty)
}

func (a *MEXCAdapter) ListSymbols(ctx context.Context) ([]string, error) {
	var resp struct {
		Symbols []struct {
			Symbol string `json:"symbol"`
			Status string `json:"status"`
		} `json:"symbols"`
	}
	if err := a.client.getJSON(ctx, a.symbolsURL, nil, &resp); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		if s.Symbol != "" && s.Status == "1" {
			symbols = append(symbols, s.Symbol)
		}
	}
	return symbols, nil
}

// parseQuote builds a quote from the string-encoded decimal fields REST
// APIs return. Missing sizes decode as zero volume.
func parseQuote(exchangeID, bid, ask, bidQty, askQty string) (models.PriceQuote, error) {
	malformed := func(field, value string, err error) (models.PriceQuote, error) {
		return models.PriceQuote{}, &AdapterError{
			ExchangeID: exchangeID,
			Kind:       ErrMalformedResponse,
			Err:        fmt.Errorf("bad %s %q: %w", field, value, err),
		}
	}

	bidPrice, err := decimal.NewFromString(bid)
	if err != nil {
		return malformed("bid", bid, err)
	}
	askPrice, err := decimal.NewFromString(ask)
	if err != nil {
		return malformed("ask", ask, err)
	}

	bidVol := decimal.Zero
	if bidQty != "" {
		if bidVol, err = decimal.NewFromString(bidQty); err != nil {
			return malformed("bid size", bidQty, err)
		}
	}
	askVol := decimal.Zero
	if askQty != "" {
		if askVol, err = decimal.NewFromString(askQty); err != nil {
			return malformed("ask size", askQty, err)
		}
	}

	return models.PriceQuote{
		Bid:       bidPrice,
		Ask:       askPrice,
		BidVolume: bidVol,
		AskVolume: askVol,
	}, nil
}

package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/avolkov/arbiscan/internal/models"
)

// PoloniexAdapter polls Poloniex's per-market order book endpoint at depth
// one. Poloniex addresses markets by path rather than query parameter.
type PoloniexAdapter struct {
	baseAdapter
	symbolsURL string
}

func NewPoloniexAdapter(ex models.Exchange, client *restClient, resolver *SymbolResolver) *PoloniexAdapter {
	return &PoloniexAdapter{
		baseAdapter: newBaseAdapter(ex, client, resolver),
		symbolsURL:  "https://api.poloniex.com/markets",
	}
}

// NormalizeSymbol maps to Poloniex's underscore-separated uppercase format:
// BTC/USDT -> BTC_USDT.
func (a *PoloniexAdapter) NormalizeSymbol(symbol string) string {
	s := strings.NewReplacer("/", "_", "-", "_").Replace(symbol)
	return strings.ToUpper(s)
}

func (a *PoloniexAdapter) FetchQuotes(ctx context.Context, symbols []string) ([]models.PriceQuote, error) {
	return a.fetchAll(ctx, a, symbols, a.fetchTicker)
}

func (a *PoloniexAdapter) fetchTicker(ctx context.Context, venueSymbol string) (models.PriceQuote, error) {
	var resp struct {
		Asks []string `json:"asks"`
		Bids []string `json:"bids"`
	}
	endpoint := fmt.Sprintf("%s/%s/orderBook", strings.TrimSuffix(a.exchange.APIURL, "/"), venueSymbol)
	if err := a.client.getJSON(ctx, endpoint, nil, &resp); err != nil {
		return models.PriceQuote{}, err
	}
	// The book is a flat [price, size, price, size, ...] list.
	if len(resp.Bids) < 2 || len(resp.Asks) < 2 {
		return models.PriceQuote{}, &AdapterError{
			ExchangeID: a.exchange.ID,
			Kind:       ErrMalformedResponse,
			Err:        fmt.Errorf("empty book for %s", venueSymbol),
		}
	}
	return parseQuote(a.exchange.ID, resp.Bids[0], resp.Asks[0], resp.Bids[1], resp.Asks[1])
}

func (a *PoloniexAdapter) ListSymbols(ctx context.Context) ([]string, error) {
	var resp []struct {
		Symbol string `json:"symbol"`
		State  string `json:"state"`
	}
	if err := a.client.getJSON(ctx, a.symbolsURL, nil, &resp); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(resp))
	for _, s := range resp {
		if s.State == "NORMAL" && s.Symbol != "" {
			symbols = append(symbols, s.Symbol)
		}
	}
	return symbols, nil
}

package exchange

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/avolkov/arbiscan/internal/models"
)

// BybitAdapter polls Bybit's v5 spot ticker endpoint.
type BybitAdapter struct {
	baseAdapter
	symbolsURL string
}

func NewBybitAdapter(ex models.Exchange, client *restClient, resolver *SymbolResolver) *BybitAdapter {
	return &BybitAdapter{
		baseAdapter: newBaseAdapter(ex, client, resolver),
		symbolsURL:  "https://api.bybit.com/v5/market/instruments-info",
	}
}

// NormalizeSymbol maps to Bybit's separator-free uppercase format:
// BTC/USDT -> BTCUSDT.
func (a *BybitAdapter) NormalizeSymbol(symbol string) string {
	s := strings.NewReplacer("/", "", "-", "", "_", "").Replace(symbol)
	return strings.ToUpper(s)
}

func (a *BybitAdapter) FetchQuotes(ctx context.Context, symbols []string) ([]models.PriceQuote, error) {
	return a.fetchAll(ctx, a, symbols, a.fetchTicker)
}

func (a *BybitAdapter) fetchTicker(ctx context.Context, venueSymbol string) (models.PriceQuote, error) {
	var resp struct {
		RetCode int `json:"retCode"`
		Result  struct {
			List []struct {
				Bid1Price string `json:"bid1Price"`
				Bid1Size  string `json:"bid1Size"`
				Ask1Price string `json:"ask1Price"`
				Ask1Size  string `json:"ask1Size"`
			} `json:"list"`
		} `json:"result"`
	}
	params := url.Values{"category": {"spot"}, "symbol": {venueSymbol}}
	if err := a.client.getJSON(ctx, a.exchange.APIURL, params, &resp); err != nil {
		return models.PriceQuote{}, err
	}
	if resp.RetCode != 0 || len(resp.Result.List) == 0 {
		return models.PriceQuote{}, &AdapterError{
			ExchangeID: a.exchange.ID,
			Kind:       ErrMalformedResponse,
			Err:        fmt.Errorf("retCode %d, %d tickers for %s", resp.RetCode, len(resp.Result.List), venueSymbol),
		}
	}

	t := resp.Result.List[0]
	return parseQuote(a.exchange.ID, t.Bid1Price, t.Ask1Price, t.Bid1Size, t.Ask1Size)
}

func (a *BybitAdapter) ListSymbols(ctx context.Context) ([]string, error) {
	var resp struct {
		Result struct {
			List []struct {
				Symbol string `json:"symbol"`
				Status string `json:"status"`
			} `json:"list"`
		} `json:"result"`
	}
	params := url.Values{"category": {"spot"}}
	if err := a.client.getJSON(ctx, a.symbolsURL, params, &resp); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(resp.Result.List))
	for _, s := range resp.Result.List {
		if s.Status == "Trading" && s.Symbol != "" {
			symbols = append(symbols, s.Symbol)
		}
	}
	return symbols, nil
}

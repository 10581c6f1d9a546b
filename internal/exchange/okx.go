package exchange

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/avolkov/arbiscan/internal/models"
)

// OKXAdapter polls OKX's market ticker endpoint.
type OKXAdapter struct {
	baseAdapter
	symbolsURL string
}

func NewOKXAdapter(ex models.Exchange, client *restClient, resolver *SymbolResolver) *OKXAdapter {
	return &OKXAdapter{
		baseAdapter: newBaseAdapter(ex, client, resolver),
		symbolsURL:  "https://www.okx.com/api/v5/public/instruments",
	}
}

// NormalizeSymbol maps to OKX's dash-separated uppercase instrument id:
// BTC/USDT -> BTC-USDT.
func (a *OKXAdapter) NormalizeSymbol(symbol string) string {
	s := strings.NewReplacer("/", "-", "_", "-").Replace(symbol)
	return strings.ToUpper(s)
}

func (a *OKXAdapter) FetchQuotes(ctx context.Context, symbols []string) ([]models.PriceQuote, error) {
	return a.fetchAll(ctx, a, symbols, a.fetchTicker)
}

func (a *OKXAdapter) fetchTicker(ctx context.Context, venueSymbol string) (models.PriceQuote, error) {
	var resp struct {
		Code string `json:"code"`
		Data []struct {
			BidPx string `json:"bidPx"`
			BidSz string `json:"bidSz"`
			AskPx string `json:"askPx"`
			AskSz string `json:"askSz"`
		} `json:"data"`
	}
	params := url.Values{"instId": {venueSymbol}}
	if err := a.client.getJSON(ctx, a.exchange.APIURL, params, &resp); err != nil {
		return models.PriceQuote{}, err
	}
	if resp.Code != "0" || len(resp.Data) == 0 {
		return models.PriceQuote{}, &AdapterError{
			ExchangeID: a.exchange.ID,
			Kind:       ErrMalformedResponse,
			Err:        fmt.Errorf("code %s, %d tickers for %s", resp.Code, len(resp.Data), venueSymbol),
		}
	}

	t := resp.Data[0]
	return parseQuote(a.exchange.ID, t.BidPx, t.AskPx, t.BidSz, t.AskSz)
}

func (a *OKXAdapter) ListSymbols(ctx context.Context) ([]string, error) {
	var resp struct {
		Data []struct {
			InstID string `json:"instId"`
			State  string `json:"state"`
		} `json:"data"`
	}
	params := url.Values{"instType": {"SPOT"}}
	if err := a.client.getJSON(ctx, a.symbolsURL, params, &resp); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(resp.Data))
	for _, s := range resp.Data {
		if s.State == "live" && s.InstID != "" {
			symbols = append(symbols, s.InstID)
		}
	}
	return symbols, nil
}

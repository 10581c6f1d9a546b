package exchange

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/avolkov/arbiscan/internal/models"
)

// BitgetAdapter polls Bitget's v2 spot ticker endpoint.
type BitgetAdapter struct {
	baseAdapter
	symbolsURL string
}

func NewBitgetAdapter(ex models.Exchange, client *restClient, resolver *SymbolResolver) *BitgetAdapter {
	return &BitgetAdapter{
		baseAdapter: newBaseAdapter(ex, client, resolver),
		symbolsURL:  "https://api.bitget.com/api/v2/spot/public/symbols",
	}
}

// NormalizeSymbol maps to Bitget's separator-free uppercase format:
// BTC/USDT -> BTCUSDT.
func (a *BitgetAdapter) NormalizeSymbol(symbol string) string {
	s := strings.NewReplacer("/", "", "-", "", "_", "").Replace(symbol)
	return strings.ToUpper(s)
}

func (a *BitgetAdapter) FetchQuotes(ctx context.Context, symbols []string) ([]models.PriceQuote, error) {
	return a.fetchAll(ctx, a, symbols, a.fetchTicker)
}

func (a *BitgetAdapter) fetchTicker(ctx context.Context, venueSymbol string) (models.PriceQuote, error) {
	var resp struct {
		Code string `json:"code"`
		Data []struct {
			BidPr string `json:"bidPr"`
			BidSz string `json:"bidSz"`
			AskPr string `json:"askPr"`
			AskSz string `json:"askSz"`
		} `json:"data"`
	}
	params := url.Values{"symbol": {venueSymbol}}
	if err := a.client.getJSON(ctx, a.exchange.APIURL, params, &resp); err != nil {
		return models.PriceQuote{}, err
	}
	if resp.Code != "00000" || len(resp.Data) == 0 {
		return models.PriceQuote{}, &AdapterError{
			ExchangeID: a.exchange.ID,
			Kind:       ErrMalformedResponse,
			Err:        fmt.Errorf("code %s, %d tickers for %s", resp.Code, len(resp.Data), venueSymbol),
		}
	}

	t := resp.Data[0]
	return parseQuote(a.exchange.ID, t.BidPr, t.AskPr, t.BidSz, t.AskSz)
}

func (a *BitgetAdapter) ListSymbols(ctx context.Context) ([]string, error) {
	var resp struct {
		Data []struct {
			Symbol string `json:"symbol"`
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := a.client.getJSON(ctx, a.symbolsURL, nil, &resp); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(resp.Data))
	for _, s := range resp.Data {
		if s.Status == "online" && s.Symbol != "" {
			symbols = append(symbols, s.Symbol)
		}
	}
	return symbols, nil
}

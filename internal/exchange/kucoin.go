package exchange

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/avolkov/arbiscan/internal/models"
)

// KuCoinAdapter polls KuCoin's level-1 order book endpoint.
type KuCoinAdapter struct {
	baseAdapter
	symbolsURL string
}

func NewKuCoinAdapter(ex models.Exchange, client *restClient, resolver *SymbolResolver) *KuCoinAdapter {
	return &KuCoinAdapter{
		baseAdapter: newBaseAdapter(ex, client, resolver),
		symbolsURL:  "https://api.kucoin.com/api/v1/symbols",
	}
}

// NormalizeSymbol maps to KuCoin's dash-separated uppercase format:
// BTC/USDT -> BTC-USDT.
func (a *KuCoinAdapter) NormalizeSymbol(symbol string) string {
	s := strings.NewReplacer("/", "-", "_", "-").Replace(symbol)
	return strings.ToUpper(s)
}

func (a *KuCoinAdapter) FetchQuotes(ctx context.Context, symbols []string) ([]models.PriceQuote, error) {
	return a.fetchAll(ctx, a, symbols, a.fetchTicker)
}

func (a *KuCoinAdapter) fetchTicker(ctx context.Context, venueSymbol string) (models.PriceQuote, error) {
	var resp struct {
		Data struct {
			BestBid     string `json:"bestBid"`
			BestBidSize string `json:"bestBidSize"`
			BestAsk     string `json:"bestAsk"`
			BestAskSize string `json:"bestAskSize"`
		} `json:"data"`
	}
	params := url.Values{"symbol": {venueSymbol}}
	if err := a.client.getJSON(ctx, a.exchange.APIURL, params, &resp); err != nil {
		return models.PriceQuote{}, err
	}
	if resp.Data.BestBid == "" || resp.Data.BestAsk == "" {
		return models.PriceQuote{}, &AdapterError{
			ExchangeID: a.exchange.ID,
			Kind:       ErrMalformedResponse,
			Err:        fmt.Errorf("missing bid/ask for %s", venueSymbol),
		}
	}
	return parseQuote(a.exchange.ID, resp.Data.BestBid, resp.Data.BestAsk, resp.Data.BestBidSize, resp.Data.BestAskSize)
}

func (a *KuCoinAdapter) ListSymbols(ctx context.Context) ([]string, error) {
	var resp struct {
		Data []struct {
			Symbol        string `json:"symbol"`
			EnableTrading bool   `json:"enableTrading"`
		} `json:"data"`
	}
	if err := a.client.getJSON(ctx, a.symbolsURL, nil, &resp); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(resp.Data))
	for _, s := range resp.Data {
		if s.EnableTrading && s.Symbol != "" {
			symbols = append(symbols, s.Symbol)
		}
	}
	return symbols, nil
}

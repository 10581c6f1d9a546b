package exchange

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/avolkov/arbiscan/internal/models"
)

// CoinExAdapter polls CoinEx's v1 single-market ticker endpoint, whose
// ticker names the best bid "buy" and the best ask "sell".
type CoinExAdapter struct {
	baseAdapter
	symbolsURL string
}

func NewCoinExAdapter(ex models.Exchange, client *restClient, resolver *SymbolResolver) *CoinExAdapter {
	return &CoinExAdapter{
		baseAdapter: newBaseAdapter(ex, client, resolver),
		symbolsURL:  "https://api.coinex.com/v1/market/info",
	}
}

// NormalizeSymbol maps to CoinEx's separator-free uppercase format:
// BTC/USDT -> BTCUSDT.
func (a *CoinExAdapter) NormalizeSymbol(symbol string) string {
	s := strings.NewReplacer("/", "", "-", "", "_", "").Replace(symbol)
	return strings.ToUpper(s)
}

func (a *CoinExAdapter) FetchQuotes(ctx context.Context, symbols []string) ([]models.PriceQuote, error) {
	return a.fetchAll(ctx, a, symbols, a.fetchTicker)
}

func (a *CoinExAdapter) fetchTicker(ctx context.Context, venueSymbol string) (models.PriceQuote, error) {
	var resp struct {
		Code int `json:"code"`
		Data struct {
			Ticker struct {
				Buy        string `json:"buy"`
				BuyAmount  string `json:"buy_amount"`
				Sell       string `json:"sell"`
				SellAmount string `json:"sell_amount"`
			} `json:"ticker"`
		} `json:"data"`
	}
	params := url.Values{"market": {venueSymbol}}
	if err := a.client.getJSON(ctx, a.exchange.APIURL, params, &resp); err != nil {
		return models.PriceQuote{}, err
	}
	t := resp.Data.Ticker
	if resp.Code != 0 || t.Buy == "" || t.Sell == "" {
		return models.PriceQuote{}, &AdapterError{
			ExchangeID: a.exchange.ID,
			Kind:       ErrMalformedResponse,
			Err:        fmt.Errorf("code %d, missing bid/ask for %s", resp.Code, venueSymbol),
		}
	}
	return parseQuote(a.exchange.ID, t.Buy, t.Sell, t.BuyAmount, t.SellAmount)
}

func (a *CoinExAdapter) ListSymbols(ctx context.Context) ([]string, error) {
	var resp struct {
		Code int `json:"code"`
		Data map[string]struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := a.client.getJSON(ctx, a.symbolsURL, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, &AdapterError{
			ExchangeID: a.exchange.ID,
			Kind:       ErrMalformedResponse,
			Err:        fmt.Errorf("code %d from market info", resp.Code),
		}
	}

	symbols := make([]string, 0, len(resp.Data))
	for _, info := range resp.Data {
		if info.Name != "" {
			symbols = append(symbols, info.Name)
		}
	}
	return symbols, nil
}

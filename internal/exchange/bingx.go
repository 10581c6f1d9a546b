package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avolkov/arbiscan/internal/models"
)

// BingXAdapter polls BingX's spot 24hr ticker endpoint. Every request must
// carry a millisecond timestamp parameter.
type BingXAdapter struct {
	baseAdapter
	clock func() time.Time
}

func NewBingXAdapter(ex models.Exchange, client *restClient, resolver *SymbolResolver) *BingXAdapter {
	return &BingXAdapter{
		baseAdapter: newBaseAdapter(ex, client, resolver),
		clock:       time.Now,
	}
}

// NormalizeSymbol maps to BingX's dash-separated uppercase format:
// BTC/USDT -> BTC-USDT.
func (a *BingXAdapter) NormalizeSymbol(symbol string) string {
	s := strings.NewReplacer("/", "-", "_", "-").Replace(symbol)
	return strings.ToUpper(s)
}

func (a *BingXAdapter) FetchQuotes(ctx context.Context, symbols []string) ([]models.PriceQuote, error) {
	return a.fetchAll(ctx, a, symbols, a.fetchTicker)
}

func (a *BingXAdapter) fetchTicker(ctx context.Context, venueSymbol string) (models.PriceQuote, error) {
	// Prices arrive as JSON numbers rather than strings.
	var resp struct {
		Code int `json:"code"`
		Data []struct {
			BidPrice  json.Number `json:"bidPrice"`
			BidVolume json.Number `json:"bidVolume"`
			AskPrice  json.Number `json:"askPrice"`
			AskVolume json.Number `json:"askVolume"`
		} `json:"data"`
	}
	params := url.Values{
		"symbol":    {venueSymbol},
		"timestamp": {strconv.FormatInt(a.clock().UnixMilli(), 10)},
	}
	if err := a.client.getJSON(ctx, a.exchange.APIURL, params, &resp); err != nil {
		return models.PriceQuote{}, err
	}
	if resp.Code != 0 || len(resp.Data) == 0 {
		return models.PriceQuote{}, &AdapterError{
			ExchangeID: a.exchange.ID,
			Kind:       ErrMalformedResponse,
			Err:        fmt.Errorf("code %d, %d tickers for %s", resp.Code, len(resp.Data), venueSymbol),
		}
	}

	t := resp.Data[0]
	if t.BidPrice == "" || t.AskPrice == "" {
		return models.PriceQuote{}, &AdapterError{
			ExchangeID: a.exchange.ID,
			Kind:       ErrMalformedResponse,
			Err:        fmt.Errorf("missing bid/ask for %s", venueSymbol),
		}
	}
	return parseQuote(a.exchange.ID, t.BidPrice.String(), t.AskPrice.String(), t.BidVolume.String(), t.AskVolume.String())
}

// ListSymbols returns no listing. BingX exposes no lightweight public
// symbols endpoint, so the resolver queries the normalized spelling
// directly and lets the ticker request reject unknown symbols.
func (a *BingXAdapter) ListSymbols(ctx context.Context) ([]string, error) {
	return nil, nil
}

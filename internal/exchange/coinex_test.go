package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/arbiscan/internal/models"
)

func TestCoinExFetchQuotes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/market/info", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":0,"data":{
			"BTCUSDT":{"name":"BTCUSDT"},
			"ETHUSDT":{"name":"ETHUSDT"}
		}}`))
	})
	mux.HandleFunc("/v1/market/ticker", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("market") {
		case "BTCUSDT":
			_, _ = w.Write([]byte(`{"code":0,"data":{"ticker":
				{"buy":"64000.1","buy_amount":"1.5","sell":"64000.9","sell_amount":"2.5","vol":"1200"}
			}}`))
		default:
			_, _ = w.Write([]byte(`{"code":7,"data":{}}`))
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ex := models.Exchange{ID: "coinex", APIURL: srv.URL + "/v1/market/ticker", RateLimit: 2}
	adapter := NewCoinExAdapter(ex, newRESTClient("coinex", time.Second), NewSymbolResolver(nil))
	adapter.symbolsURL = srv.URL + "/v1/market/info"

	quotes, err := adapter.FetchQuotes(context.Background(), []string{"BTC/USDT", "DOGE/USDT"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	// The ticker's "buy" side is the best bid and "sell" the best ask.
	assert.Equal(t, "coinex", quotes[0].ExchangeID)
	assert.Equal(t, "BTC/USDT", quotes[0].Symbol)
	assert.True(t, quotes[0].Bid.Equal(decimal.NewFromFloat(64000.1)))
	assert.True(t, quotes[0].Ask.Equal(decimal.NewFromFloat(64000.9)))
	assert.True(t, quotes[0].BidVolume.Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, quotes[0].AskVolume.Equal(decimal.NewFromFloat(2.5)))
}

func TestCoinExListSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":0,"data":{
			"BTCUSDT":{"name":"BTCUSDT"},
			"NONAME":{}
		}}`))
	}))
	defer srv.Close()

	ex := models.Exchange{ID: "coinex", APIURL: srv.URL}
	adapter := NewCoinExAdapter(ex, newRESTClient("coinex", time.Second), NewSymbolResolver(nil))
	adapter.symbolsURL = srv.URL

	symbols, err := adapter.ListSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT"}, symbols)
}

func TestCoinExErrorCodeIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":7,"data":{}}`))
	}))
	defer srv.Close()

	ex := models.Exchange{ID: "coinex", APIURL: srv.URL}
	adapter := NewCoinExAdapter(ex, newRESTClient("coinex", time.Second), NewSymbolResolver(nil))

	_, err := adapter.fetchTicker(context.Background(), "BTCUSDT")
	require.Error(t, err)
	assert.Equal(t, ErrMalformedResponse, Kind(err))
}

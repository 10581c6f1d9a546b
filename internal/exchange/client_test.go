package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSONSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"bidPrice":"100.5","askPrice":"100.6"}`))
	}))
	defer srv.Close()

	var resp struct {
		BidPrice string `json:"bidPrice"`
		AskPrice string `json:"askPrice"`
	}
	c := newRESTClient("mexc", time.Second)
	err := c.getJSON(context.Background(), srv.URL, url.Values{"symbol": {"BTCUSDT"}}, &resp)
	require.NoError(t, err)
	assert.Equal(t, "100.5", resp.BidPrice)
}

func TestGetJSONRateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newRESTClient("mexc", time.Second)
	err := c.getJSON(context.Background(), srv.URL, nil, &struct{}{})
	require.Error(t, err)
	assert.Equal(t, ErrRateLimited, Kind(err))
	// 429 is not retried; hammering a throttling venue makes it worse.
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newRESTClient("mexc", 5*time.Second)
	err := c.getJSON(context.Background(), srv.URL, nil, &struct{}{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetJSONMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := newRESTClient("mexc", time.Second)
	err := c.getJSON(context.Background(), srv.URL, nil, &struct{}{})
	require.Error(t, err)
	assert.Equal(t, ErrMalformedResponse, Kind(err))
}

func TestGetJSONContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := newRESTClient("mexc", time.Second)
	err := c.getJSON(ctx, srv.URL, nil, &struct{}{})
	require.Error(t, err)
	assert.Equal(t, ErrTimeout, Kind(err))
}

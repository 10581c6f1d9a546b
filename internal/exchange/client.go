package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

const maxRetries = 3

// restClient is the shared HTTP layer under every REST adapter. Transient
// server errors are retried with exponential backoff; everything else is
// classified into the adapter error taxonomy.
type restClient struct {
	httpClient *http.Client
	exchangeID string
}

func newRESTClient(exchangeID string, timeout time.Duration) *restClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &restClient{
		httpClient: &http.Client{Timeout: timeout},
		exchangeID: exchangeID,
	}
}

// getJSON performs a GET against rawURL with optional query parameters and
// decodes the response body into out. The context deadline always wins over
// the retry schedule.
func (c *restClient) getJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	reqURL := rawURL
	if len(params) > 0 {
		reqURL = rawURL + "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return c.classify(ctx.Err())
			case <-time.After(backoff):
			}
		}

		retryable, err := c.do(ctx, reqURL, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return lastErr
}

// do issues a single request. The boolean reports whether the failure is
// worth retrying (5xx or transport-level).
func (c *restClient) do(ctx context.Context, reqURL string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, c.classify(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, c.classify(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return false, &AdapterError{
			ExchangeID: c.exchangeID,
			Kind:       ErrRateLimited,
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	case resp.StatusCode >= 500:
		return true, &AdapterError{
			ExchangeID: c.exchangeID,
			Kind:       ErrUnreachable,
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, &AdapterError{
			ExchangeID: c.exchangeID,
			Kind:       ErrMalformedResponse,
			Err:        fmt.Errorf("HTTP %d: %s", resp.StatusCode, body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, &AdapterError{
			ExchangeID: c.exchangeID,
			Kind:       ErrMalformedResponse,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	return false, nil
}

func (c *restClient) classify(err error) error {
	kind := ErrUnreachable

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ErrTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = ErrTimeout
	case errors.Is(err, context.Canceled):
		kind = ErrTimeout
	}

	return &AdapterError{ExchangeID: c.exchangeID, Kind: kind, Err: err}
}

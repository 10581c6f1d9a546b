package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/avolkov/arbiscan/internal/models"
)

// Adapter is the capability interface every exchange integration implements.
// FetchQuotes takes canonical "BASE/QUOTE" symbols and returns normalized
// best bid/ask quotes; venue-specific spelling is the adapter's concern.
type Adapter interface {
	Exchange() models.Exchange
	// NormalizeSymbol converts any supported spelling of a symbol into the
	// venue's ticker format.
	NormalizeSymbol(symbol string) string
	FetchQuotes(ctx context.Context, symbols []string) ([]models.PriceQuote, error)
	// ListSymbols returns the venue's currently listed tickers. Adapters
	// unable to list return an empty slice without error.
	ListSymbols(ctx context.Context) ([]string, error)
}

// ErrorKind classifies adapter failures. The scanner treats every kind
// identically for cycle purposes (zero quotes contributed) but surfaces the
// kind for observability.
type ErrorKind string

const (
	ErrTimeout           ErrorKind = "timeout"
	ErrRateLimited       ErrorKind = "rate_limited"
	ErrMalformedResponse ErrorKind = "malformed_response"
	ErrUnreachable       ErrorKind = "unreachable"
)

// AdapterError wraps a failure from one exchange with its classification.
type AdapterError struct {
	ExchangeID string
	Kind       ErrorKind
	Err        error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.ExchangeID, e.Kind, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// Kind extracts the error classification from err, defaulting to
// unreachable for errors that did not come from an adapter.
func Kind(err error) ErrorKind {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrUnreachable
}

// baseAdapter carries what every REST adapter shares: identity, HTTP client,
// symbol resolution against the venue's listed set, and a semaphore that
// caps in-flight requests at the exchange's declared rate limit.
type baseAdapter struct {
	exchange models.Exchange
	client   *restClient
	resolver *SymbolResolver
	sem      *semaphore.Weighted
	logger   *logrus.Entry
}

func newBaseAdapter(ex models.Exchange, client *restClient, resolver *SymbolResolver) baseAdapter {
	limit := int64(ex.RateLimit)
	if limit < 1 {
		limit = 1
	}
	return baseAdapter{
		exchange: ex,
		client:   client,
		resolver: resolver,
		sem:      semaphore.NewWeighted(limit),
		logger:   logrus.WithField("exchange", ex.ID),
	}
}

func (b *baseAdapter) Exchange() models.Exchange {
	return b.exchange
}

// fetchAll fans out one fetch per symbol, bounded by the exchange rate
// limit. Symbols the venue does not list are skipped. A quote is kept only
// when at least one request succeeded; if every request failed the last
// failure is returned so the poller can record its kind.
func (b *baseAdapter) fetchAll(ctx context.Context, adapter Adapter, symbols []string,
	fetchOne func(ctx context.Context, venueSymbol string) (models.PriceQuote, error)) ([]models.PriceQuote, error) {

	var (
		mu      sync.Mutex
		quotes  []models.PriceQuote
		lastErr error
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		venueSymbol, listed := b.resolver.Resolve(ctx, adapter, symbol)
		if !listed {
			b.logger.WithField("symbol", symbol).Debug("symbol not listed, skipping")
			continue
		}

		canonical := symbol
		g.Go(func() error {
			if err := b.sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			defer b.sem.Release(1)

			quote, err := fetchOne(ctx, venueSymbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				b.logger.WithError(err).WithField("symbol", canonical).Debug("ticker fetch failed")
				return nil
			}

			quote.ExchangeID = b.exchange.ID
			quote.Symbol = canonical
			quote.ObservedAt = time.Now().UTC()
			if !quote.Valid() {
				lastErr = &AdapterError{
					ExchangeID: b.exchange.ID,
					Kind:       ErrMalformedResponse,
					Err:        fmt.Errorf("invalid quote for %s: bid=%s ask=%s", canonical, quote.Bid, quote.Ask),
				}
				return nil
			}
			quotes = append(quotes, quote)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(quotes) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return quotes, nil
}

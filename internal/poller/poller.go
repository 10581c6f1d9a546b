// Package poller drives the concurrent price-acquisition stage: one fetch
// per active exchange adapter, joined on a hard wall-clock deadline.
package poller

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/avolkov/arbiscan/internal/exchange"
	"github.com/avolkov/arbiscan/internal/models"
)

// Poller fans polling requests out across all active adapters and collects
// the results of one cycle into a single PriceSnapshot.
type Poller struct {
	adapters []exchange.Adapter
	logger   *logrus.Entry
}

func New(adapters []exchange.Adapter) *Poller {
	return &Poller{
		adapters: adapters,
		logger:   logrus.WithField("component", "poller"),
	}
}

// Poll fetches quotes for the given canonical symbols from every adapter in
// parallel. Each adapter gets until the snapshot deadline; an adapter that
// misses it is recorded as a timeout for this cycle and contributes no
// quotes. One failing exchange never aborts or delays the others, and no
// amount of per-exchange failure makes Poll itself fail.
func (p *Poller) Poll(ctx context.Context, symbols []string, timeout time.Duration) *models.PriceSnapshot {
	start := time.Now().UTC()
	snapshot := &models.PriceSnapshot{
		CycleID:   uuid.New().String(),
		StartedAt: start,
		Deadline:  start.Add(timeout),
	}

	pollCtx, cancel := context.WithDeadline(ctx, snapshot.Deadline)
	defer cancel()

	var mu sync.Mutex
	results := make([]models.ExchangeResult, 0, len(p.adapters))

	// Goroutines always return nil: a failure is an observation about one
	// exchange, not a reason to cancel the fan-out.
	g, gctx := errgroup.WithContext(pollCtx)
	for _, adapter := range p.adapters {
		g.Go(func() error {
			exchangeID := adapter.Exchange().ID
			fetchStart := time.Now()
			quotes, err := adapter.FetchQuotes(gctx, symbols)
			latency := time.Since(fetchStart)

			result := models.ExchangeResult{
				ExchangeID: exchangeID,
				Latency:    latency,
			}

			if err != nil {
				result.Err = err
				result.ErrKind = string(exchange.Kind(err))
				p.logger.WithError(err).WithFields(logrus.Fields{
					"exchange":   exchangeID,
					"error_kind": result.ErrKind,
					"latency_ms": latency.Milliseconds(),
				}).Warn("exchange poll failed")
			} else {
				kept := quotes[:0]
				for _, q := range quotes {
					// The snapshot only admits quotes obtained strictly
					// within its acquisition window.
					if snapshot.InWindow(q.ObservedAt) {
						kept = append(kept, q)
					}
				}
				result.Quotes = len(kept)
				quotes = kept
				p.logger.WithFields(logrus.Fields{
					"exchange":   exchangeID,
					"quotes":     len(quotes),
					"latency_ms": latency.Milliseconds(),
				}).Debug("exchange poll completed")
			}

			mu.Lock()
			results = append(results, result)
			if err == nil {
				snapshot.Quotes = append(snapshot.Quotes, quotes...)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].ExchangeID < results[j].ExchangeID })
	snapshot.Results = results

	succeeded := 0
	for _, r := range results {
		if r.Err == nil {
			succeeded++
		}
	}
	p.logger.WithFields(logrus.Fields{
		"cycle_id":  snapshot.CycleID,
		"exchanges": len(p.adapters),
		"succeeded": succeeded,
		"quotes":    len(snapshot.Quotes),
		"elapsed":   time.Since(start).String(),
	}).Info("poll cycle collected")

	return snapshot
}

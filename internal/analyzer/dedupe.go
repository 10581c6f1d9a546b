package analyzer

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avolkov/arbiscan/internal/models"
)

// Deduplicator suppresses opportunities whose (symbol, buy-exchange,
// sell-exchange) key was alerted within the cooldown window. Cycles run
// one at a time, so the alert history is single-writer and needs no
// locking; the clock is injectable for tests.
type Deduplicator struct {
	history map[models.OpportunityKey]time.Time
	now     func() time.Time
	logger  *logrus.Entry
}

func NewDeduplicator(now func() time.Time) *Deduplicator {
	if now == nil {
		now = time.Now
	}
	return &Deduplicator{
		history: make(map[models.OpportunityKey]time.Time),
		now:     now,
		logger:  logrus.WithField("component", "deduplicator"),
	}
}

// FilterNew returns the opportunities eligible for alerting and records
// their keys' alert times as part of the same call, giving at-most-once
// alerting per key per cooldown window. A suppressed opportunity stays
// suppressed even if its profit changed. The mark is written into the
// input slice so that persisted records carry the alerted flag too.
func (d *Deduplicator) FilterNew(opportunities []models.ArbitrageOpportunity, cooldown time.Duration) []models.ArbitrageOpportunity {
	now := d.now()

	var fresh []models.ArbitrageOpportunity
	suppressed := 0
	for i := range opportunities {
		key := opportunities[i].Key()
		if lastAlerted, ok := d.history[key]; ok && now.Sub(lastAlerted) < cooldown {
			suppressed++
			continue
		}
		d.history[key] = now
		opportunities[i].Alerted = true
		fresh = append(fresh, opportunities[i])
	}

	if len(opportunities) > 0 {
		d.logger.WithFields(logrus.Fields{
			"candidates": len(opportunities),
			"fresh":      len(fresh),
			"suppressed": suppressed,
		}).Info("deduplication completed")
	}
	return fresh
}

// Prune drops history entries idle longer than the retention period. The
// coordinator calls this between cycles to keep the history bounded.
func (d *Deduplicator) Prune(retention time.Duration) int {
	cutoff := d.now().Add(-retention)
	removed := 0
	for key, alertedAt := range d.history {
		if alertedAt.Before(cutoff) {
			delete(d.history, key)
			removed++
		}
	}
	return removed
}

// HistorySize reports the number of tracked keys, for status surfaces.
func (d *Deduplicator) HistorySize() int {
	return len(d.history)
}

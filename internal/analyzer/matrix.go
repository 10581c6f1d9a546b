package analyzer

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avolkov/arbiscan/internal/models"
)

// MatrixEntry is one exchange's view of a symbol within a cycle.
type MatrixEntry struct {
	ExchangeID string
	Bid        decimal.Decimal
	Ask        decimal.Decimal
	BidVolume  decimal.Decimal
	AskVolume  decimal.Decimal
}

// Matrix maps each normalized symbol to the per-exchange quotes observed
// for it in one cycle. Only symbols quoted on at least two exchanges appear;
// entries are ordered by exchange id so equal snapshots always produce equal
// matrices.
type Matrix map[string][]MatrixEntry

// BuildMatrix groups a snapshot's quotes by normalized symbol. When an
// exchange produced more than one quote for a symbol the most recently
// observed one wins.
func BuildMatrix(snapshot *models.PriceSnapshot) Matrix {
	type cell struct {
		entry      MatrixEntry
		observedAt time.Time
	}
	cells := make(map[string]map[string]cell)

	for _, q := range snapshot.Quotes {
		bySymbol, ok := cells[q.Symbol]
		if !ok {
			bySymbol = make(map[string]cell)
			cells[q.Symbol] = bySymbol
		}
		if existing, ok := bySymbol[q.ExchangeID]; ok && !q.ObservedAt.After(existing.observedAt) {
			continue
		}
		bySymbol[q.ExchangeID] = cell{
			entry: MatrixEntry{
				ExchangeID: q.ExchangeID,
				Bid:        q.Bid,
				Ask:        q.Ask,
				BidVolume:  q.BidVolume,
				AskVolume:  q.AskVolume,
			},
			observedAt: q.ObservedAt,
		}
	}

	matrix := make(Matrix)
	for symbol, bySymbol := range cells {
		// No arbitrage is possible on a single venue.
		if len(bySymbol) < 2 {
			continue
		}
		entries := make([]MatrixEntry, 0, len(bySymbol))
		for _, c := range bySymbol {
			entries = append(entries, c.entry)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].ExchangeID < entries[j].ExchangeID })
		matrix[symbol] = entries
	}
	return matrix
}

// Symbols returns the matrix's symbols in lexicographic order.
func (m Matrix) Symbols() []string {
	symbols := make([]string, 0, len(m))
	for s := range m {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

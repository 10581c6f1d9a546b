package exchange

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/avolkov/arbiscan/internal/models"
)

type adapterConstructor func(models.Exchange, *restClient, *SymbolResolver) Adapter

// constructors maps exchange ids to their adapter implementations. Adding a
// venue means adding an adapter file and one entry here.
var constructors = map[string]adapterConstructor{
	"mexc": func(ex models.Exchange, c *restClient, r *SymbolResolver) Adapter {
		return NewMEXCAdapter(ex, c, r)
	},
	"kucoin": func(ex models.Exchange, c *restClient, r *SymbolResolver) Adapter {
		return NewKuCoinAdapter(ex, c, r)
	},
	"htx": func(ex models.Exchange, c *restClient, r *SymbolResolver) Adapter {
		return NewHTXAdapter(ex, c, r)
	},
	"bybit": func(ex models.Exchange, c *restClient, r *SymbolResolver) Adapter {
		return NewBybitAdapter(ex, c, r)
	},
	"okx": func(ex models.Exchange, c *restClient, r *SymbolResolver) Adapter {
		return NewOKXAdapter(ex, c, r)
	},
	"bitget": func(ex models.Exchange, c *restClient, r *SymbolResolver) Adapter {
		return NewBitgetAdapter(ex, c, r)
	},
	"bingx": func(ex models.Exchange, c *restClient, r *SymbolResolver) Adapter {
		return NewBingXAdapter(ex, c, r)
	},
	"coinex": func(ex models.Exchange, c *restClient, r *SymbolResolver) Adapter {
		return NewCoinExAdapter(ex, c, r)
	},
	"poloniex": func(ex models.Exchange, c *restClient, r *SymbolResolver) Adapter {
		return NewPoloniexAdapter(ex, c, r)
	},
}

// HasAdapter reports whether an adapter implementation exists for an
// exchange id.
func HasAdapter(exchangeID string) bool {
	_, ok := constructors[strings.ToLower(exchangeID)]
	return ok
}

// NewAdapter builds the adapter for a configured exchange.
func NewAdapter(ex models.Exchange, resolver *SymbolResolver, timeout time.Duration) (Adapter, error) {
	ctor, ok := constructors[strings.ToLower(ex.ID)]
	if !ok {
		return nil, fmt.Errorf("no adapter for exchange %q", ex.ID)
	}
	if ex.APIURL == "" {
		return nil, fmt.Errorf("exchange %q is missing its API URL", ex.ID)
	}
	return ctor(ex, newRESTClient(ex.ID, timeout), resolver), nil
}

// BuildAdapters constructs adapters for every active exchange that has an
// implementation, sorted by exchange id. Exchanges without an adapter are
// skipped and reported in the second return value.
func BuildAdapters(exchanges []models.Exchange, resolver *SymbolResolver, timeout time.Duration) ([]Adapter, []string, error) {
	var (
		adapters []Adapter
		skipped  []string
	)
	for _, ex := range exchanges {
		if !ex.IsActive {
			continue
		}
		if !HasAdapter(ex.ID) {
			skipped = append(skipped, ex.ID)
			continue
		}
		adapter, err := NewAdapter(ex, resolver, timeout)
		if err != nil {
			return nil, nil, err
		}
		adapters = append(adapters, adapter)
	}

	sort.Slice(adapters, func(i, j int) bool {
		return adapters[i].Exchange().ID < adapters[j].Exchange().ID
	})
	return adapters, skipped, nil
}

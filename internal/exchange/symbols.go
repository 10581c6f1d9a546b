package exchange

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// symbolCacheEntry is the serialized form of one exchange's listed symbols.
type symbolCacheEntry struct {
	Symbols  []string  `json:"symbols"`
	CachedAt time.Time `json:"cached_at"`
}

// SymbolCache stores per-exchange listed-symbol sets in Redis so repeated
// cycles do not refetch the full symbol list from every venue.
type SymbolCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
}

func NewSymbolCache(redisClient *redis.Client, ttl time.Duration) *SymbolCache {
	return &SymbolCache{
		redis:  redisClient,
		ttl:    ttl,
		prefix: "symbols:",
	}
}

// Get retrieves the cached symbol list for an exchange.
func (c *SymbolCache) Get(ctx context.Context, exchangeID string) ([]string, bool) {
	data, err := c.redis.Get(ctx, c.prefix+exchangeID).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logrus.WithError(err).WithField("exchange", exchangeID).Warn("symbol cache read failed")
		return nil, false
	}

	var entry symbolCacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		logrus.WithError(err).WithField("exchange", exchangeID).Warn("symbol cache entry corrupt")
		return nil, false
	}
	return entry.Symbols, true
}

// Set stores the symbol list for an exchange with the cache TTL.
func (c *SymbolCache) Set(ctx context.Context, exchangeID string, symbols []string) {
	entry := symbolCacheEntry{Symbols: symbols, CachedAt: time.Now().UTC()}
	data, err := json.Marshal(entry)
	if err != nil {
		logrus.WithError(err).WithField("exchange", exchangeID).Warn("symbol cache marshal failed")
		return
	}
	if err := c.redis.Set(ctx, c.prefix+exchangeID, data, c.ttl).Err(); err != nil {
		logrus.WithError(err).WithField("exchange", exchangeID).Warn("symbol cache write failed")
	}
}

// SymbolResolver maps canonical "BASE/QUOTE" symbols onto each venue's
// ticker spelling, checking candidate spellings against the venue's listed
// set. Listed sets are memoized per process and backed by the Redis cache;
// when neither the cache nor the venue can supply a listing the resolver
// falls back to the adapter's normalization rule alone.
type SymbolResolver struct {
	cache *SymbolCache

	mu     sync.Mutex
	listed map[string]map[string]struct{}
}

func NewSymbolResolver(cache *SymbolCache) *SymbolResolver {
	return &SymbolResolver{
		cache:  cache,
		listed: make(map[string]map[string]struct{}),
	}
}

// Resolve returns the venue spelling for a canonical symbol and whether the
// venue is believed to list it.
func (r *SymbolResolver) Resolve(ctx context.Context, adapter Adapter, symbol string) (string, bool) {
	normalized := adapter.NormalizeSymbol(symbol)

	listed := r.listedSet(ctx, adapter)
	if len(listed) == 0 {
		// No listing available: try the most likely spelling directly, the
		// ticker request itself will reject unknown symbols.
		return normalized, true
	}

	base, quote := splitAny(symbol)
	if quote == "" {
		if _, ok := listed[normalized]; ok {
			return normalized, true
		}
		return "", false
	}

	// Candidate spellings mirror the formats seen across venues.
	variants := []string{
		base + quote,
		base + "/" + quote,
		base + "-" + quote,
		base + "_" + quote,
	}
	for _, variant := range variants {
		candidate := adapter.NormalizeSymbol(variant)
		if _, ok := listed[candidate]; ok {
			return candidate, true
		}
	}
	return "", false
}

func (r *SymbolResolver) listedSet(ctx context.Context, adapter Adapter) map[string]struct{} {
	exchangeID := adapter.Exchange().ID

	r.mu.Lock()
	if set, ok := r.listed[exchangeID]; ok {
		r.mu.Unlock()
		return set
	}
	r.mu.Unlock()

	var symbols []string
	ok := false
	if r.cache != nil {
		symbols, ok = r.cache.Get(ctx, exchangeID)
	}
	if !ok {
		var err error
		symbols, err = adapter.ListSymbols(ctx)
		if err != nil {
			logrus.WithError(err).WithField("exchange", exchangeID).Warn("symbol listing failed")
			symbols = nil
		} else if len(symbols) > 0 && r.cache != nil {
			r.cache.Set(ctx, exchangeID, symbols)
		}
	}

	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		set[adapter.NormalizeSymbol(s)] = struct{}{}
	}

	r.mu.Lock()
	r.listed[exchangeID] = set
	r.mu.Unlock()
	return set
}

// splitAny splits a symbol on the first recognized separator so variant
// candidates can be rebuilt from its parts. "BTCUSDT" style inputs are
// returned as-is with an empty quote.
func splitAny(symbol string) (string, string) {
	for _, sep := range []string{"/", "-", "_"} {
		if base, quote := splitOn(symbol, sep); base != "" {
			return base, quote
		}
	}
	return symbol, ""
}

func splitOn(symbol, sep string) (string, string) {
	for i := 0; i+len(sep) <= len(symbol); i++ {
		if symbol[i:i+len(sep)] == sep {
			return symbol[:i], symbol[i+len(sep):]
		}
	}
	return "", ""
}

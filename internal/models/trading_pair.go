package models

import "strings"

// TradingPair is a (base, quote) combination tracked on a specific exchange.
// The normalized symbol is what ties the same economic instrument together
// across exchanges regardless of each venue's ticker spelling.
type TradingPair struct {
	ExchangeID    string `json:"exchange_id"`
	Symbol        string `json:"symbol"`
	BaseCurrency  string `json:"base_currency"`
	QuoteCurrency string `json:"quote_currency"`
	IsActive      bool   `json:"is_active"`
}

// NormalizedSymbol builds the canonical cross-exchange symbol for a
// base/quote combination. It is a pure function of its inputs: two pairs
// with the same normalized symbol refer to the same instrument.
func NormalizedSymbol(base, quote string) string {
	return strings.ToUpper(strings.TrimSpace(base)) + "/" + strings.ToUpper(strings.TrimSpace(quote))
}

// NormalizedSymbol returns the canonical symbol for this pair.
func (tp *TradingPair) NormalizedSymbol() string {
	return NormalizedSymbol(tp.BaseCurrency, tp.QuoteCurrency)
}

// SplitSymbol breaks a canonical "BASE/QUOTE" symbol into its parts.
// Returns empty strings when the symbol is not in canonical form.
func SplitSymbol(symbol string) (base, quote string) {
	parts := strings.SplitN(symbol, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", ""
	}
	return parts[0], parts[1]
}

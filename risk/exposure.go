package risk

import (
	"fmt"

	"github.com/rustyeddy/propbot/broker"
	"github.com/rustyeddy/propbot/market"
)

// CurrencyExposure counts, over all open positions (manual ones included),
// how many of the candidate's currencies each position references. It is
// rebuilt from the given positions on every call.
func CurrencyExposure(cat *market.Catalog, symbol string, positions []broker.Position) int {
	want := dedupe(cat.Currencies(symbol))
	count := 0
	for _, p := range positions {
		have := cat.Currencies(p.Symbol)
		for _, c := range want {
			if contains(have, c) {
				count++
			}
		}
	}
	return count
}

// Buckets returns currency -> number of open positions referencing it.
func Buckets(cat *market.Catalog, positions []broker.Position) map[string]int {
	out := make(map[string]int)
	for _, p := range positions {
		for _, c := range dedupe(cat.Currencies(p.Symbol)) {
			out[c]++
		}
	}
	return out
}

// ApplyCorrelation turns an exposure count into a risk modifier. Only
// FOREX instruments are limited; everything else trades at 1.0.
func ApplyCorrelation(p Policy, in market.Instrument, exposure int) (float64, Decision) {
	if in.Category != market.Forex || exposure < p.MaxCurrencyExposure {
		return 1.0, Allow()
	}
	if p.CorrelationMode == Reduce {
		return p.CorrelationModifier, Allow()
	}
	return 0, Deny(CodeCurrencyExposure,
		fmt.Sprintf("%s exposure %d >= max %d", in.Symbol, exposure, p.MaxCurrencyExposure))
}

func dedupe(ss []string) []string {
	out := ss[:0:0]
	for _, s := range ss {
		if !contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// market/instruments.go
package market

import (
	"fmt"
	"strings"
)

// Category groups instruments that share risk treatment.
type Category string

const (
	Forex   Category = "FOREX"
	Metals  Category = "METALS"
	Stocks  Category = "STOCKS"
	Indices Category = "INDICES"
	Crypto  Category = "CRYPTO"
)

// Categories lists every supported category in a stable order.
var Categories = []Category{Forex, Metals, Stocks, Indices, Crypto}

// DefaultVolatility is the ATR multiplier used for stops and trailing
// when an instrument does not carry its own.
var DefaultVolatility = map[Category]float64{
	Forex:   1.5,
	Metals:  2.0,
	Stocks:  2.5,
	Indices: 2.0,
	Crypto:  3.0,
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Instrument is the static description of a tradable symbol.
type Instrument struct {
	Symbol        string   `json:"symbol" yaml:"symbol"`
	Category      Category `json:"category" yaml:"category"`
	BaseCurrency  string   `json:"base,omitempty" yaml:"base,omitempty"`
	QuoteCurrency string   `json:"quote" yaml:"quote"`
	ContractSize  float64  `json:"contract_size" yaml:"contract_size"`
	VolatilityMul float64  `json:"volatility_mult,omitempty" yaml:"volatility_mult,omitempty"`
}

// Volatility returns the instrument's ATR multiplier, falling back to the
// category default.
func (i Instrument) Volatility() float64 {
	if i.VolatilityMul > 0 {
		return i.VolatilityMul
	}
	if v, ok := DefaultVolatility[i.Category]; ok {
		return v
	}
	return 2.0
}

// IsPair reports whether the instrument is quoted as base/quote currencies.
func (i Instrument) IsPair() bool {
	return len(i.BaseCurrency) == 3 && len(i.QuoteCurrency) == 3
}

// Currencies returns the component currencies used for exposure buckets.
func (i Instrument) Currencies() []string {
	if i.Category == Forex && i.IsPair() {
		return []string{i.BaseCurrency, i.QuoteCurrency}
	}
	return ComponentCurrencies(i.Symbol)
}

// ComponentCurrencies splits a 6-letter currency-pair symbol into its two
// 3-letter codes. Any other symbol is its own single bucket.
func ComponentCurrencies(symbol string) []string {
	s := strings.ToUpper(symbol)
	if len(s) == 6 && isAlpha(s) {
		return []string{s[:3], s[3:]}
	}
	return []string{s}
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

func (i Instrument) validate() error {
	if i.Symbol == "" {
		return fmt.Errorf("instrument symbol is required")
	}
	if _, err := ParseCategory(string(i.Category)); err != nil {
		return fmt.Errorf("%s: %w", i.Symbol, err)
	}
	if i.ContractSize <= 0 {
		return fmt.Errorf("%s: contract_size must be positive", i.Symbol)
	}
	if len(i.QuoteCurrency) != 3 {
		return fmt.Errorf("%s: quote currency must be a 3-letter code", i.Symbol)
	}
	if i.Category == Forex && !i.IsPair() {
		return fmt.Errorf("%s: forex instruments need base and quote currencies", i.Symbol)
	}
	return nil
}

func fx(base, quote string) Instrument {
	return Instrument{
		Symbol:        base + quote,
		Category:      Forex,
		BaseCurrency:  base,
		QuoteCurrency: quote,
		ContractSize:  100_000,
	}
}

func cfd(symbol string, cat Category, quote string, contract float64) Instrument {
	return Instrument{Symbol: symbol, Category: cat, QuoteCurrency: quote, ContractSize: contract}
}

// defaultInstruments is the built-in watchlist.
var defaultInstruments = []Instrument{
	fx("GBP", "NZD"), fx("GBP", "JPY"), fx("EUR", "NZD"), fx("CHF", "JPY"),
	fx("GBP", "AUD"), fx("GBP", "CAD"), fx("GBP", "CHF"), fx("NZD", "JPY"),
	fx("EUR", "CAD"), fx("CAD", "JPY"), fx("AUD", "NZD"), fx("AUD", "JPY"),
	fx("USD", "CHF"), fx("NZD", "CHF"), fx("EUR", "AUD"), fx("AUD", "CAD"),
	fx("NZD", "CAD"), fx("EUR", "CHF"), fx("AUD", "CHF"), fx("USD", "JPY"),
	fx("USD", "CAD"), fx("NZD", "USD"), fx("GBP", "USD"), fx("EUR", "USD"),
	fx("EUR", "JPY"), fx("CAD", "CHF"), fx("AUD", "USD"), fx("EUR", "GBP"),

	cfd("SP500", Indices, "USD", 1),
	cfd("US30", Indices, "USD", 1),
	cfd("NAS100", Indices, "USD", 1),
	cfd("DAX40", Indices, "EUR", 1),
	cfd("JPN225", Indices, "JPY", 1),

	{Symbol: "XAUUSD", Category: Metals, BaseCurrency: "XAU", QuoteCurrency: "USD", ContractSize: 100},
	{Symbol: "XAGUSD", Category: Metals, BaseCurrency: "XAG", QuoteCurrency: "USD", ContractSize: 5000},

	{Symbol: "BTCUSD", Category: Crypto, BaseCurrency: "BTC", QuoteCurrency: "USD", ContractSize: 1},
	{Symbol: "ETHUSD", Category: Crypto, BaseCurrency: "ETH", QuoteCurrency: "USD", ContractSize: 1},

	cfd("AAPL", Stocks, "USD", 1), cfd("AMD", Stocks, "USD", 1), cfd("AMZN", Stocks, "USD", 1),
	cfd("GOOG", Stocks, "USD", 1), cfd("META", Stocks, "USD", 1), cfd("MSFT", Stocks, "USD", 1),
	cfd("TSLA", Stocks, "USD", 1), cfd("JPM", Stocks, "USD", 1), cfd("GS", Stocks, "USD", 1),
	cfd("KO", Stocks, "USD", 1), cfd("PEP", Stocks, "USD", 1), cfd("WMT", Stocks, "USD", 1),
	cfd("DIS", Stocks, "USD", 1), cfd("BA", Stocks, "USD", 1), cfd("CAT", Stocks, "USD", 1),
}

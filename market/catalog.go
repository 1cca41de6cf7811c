package market

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the keyed, immutable instrument lookup built once at startup.
type Catalog struct {
	bySymbol map[string]Instrument
	order    []string
}

func NewCatalog(instruments []Instrument) (*Catalog, error) {
	c := &Catalog{bySymbol: make(map[string]Instrument, len(instruments))}
	for _, in := range instruments {
		in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
		in.Category = Category(strings.ToUpper(string(in.Category)))
		if err := in.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.bySymbol[in.Symbol]; dup {
			return nil, fmt.Errorf("duplicate instrument %s", in.Symbol)
		}
		c.bySymbol[in.Symbol] = in
		c.order = append(c.order, in.Symbol)
	}
	return c, nil
}

// DefaultCatalog returns the built-in watchlist.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultInstruments)
	if err != nil {
		panic(err)
	}
	return c
}

type catalogFile struct {
	Instruments []Instrument `yaml:"instruments"`
}

// LoadCatalog reads a YAML instrument list.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Instruments) == 0 {
		return nil, fmt.Errorf("catalog %s has no instruments", path)
	}
	return NewCatalog(f.Instruments)
}

func (c *Catalog) Lookup(symbol string) (Instrument, bool) {
	in, ok := c.bySymbol[strings.ToUpper(symbol)]
	return in, ok
}

// Symbols returns the watchlist in catalog order.
func (c *Catalog) Symbols() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Catalog) Len() int { return len(c.order) }

// Currencies returns the exposure currencies for any symbol, including
// ones the catalog does not know (manually opened positions).
func (c *Catalog) Currencies(symbol string) []string {
	if in, ok := c.Lookup(symbol); ok {
		return in.Currencies()
	}
	return ComponentCurrencies(symbol)
}

// PairSymbol finds the catalog symbol quoting base against quote.
func (c *Catalog) PairSymbol(base, quote string) (string, bool) {
	for _, s := range c.order {
		in := c.bySymbol[s]
		if in.BaseCurrency == base && in.QuoteCurrency == quote {
			return s, true
		}
	}
	return "", false
}

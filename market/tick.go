package market

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"
)

var ErrNoQuote = errors.New("quote not found")

// QuoteSource returns the current bid/ask for a symbol.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

type Quote struct {
	Symbol string
	Bid    float64
	Ask    float64
	Time   time.Time
}

func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// PipUnit is the conventional pip size for a symbol quoted with digits
// decimal places: 5-digit EURUSD -> 0.0001, 3-digit USDJPY -> 0.01.
func PipUnit(digits int) float64 {
	return math.Pow(10, -float64(digits-1))
}

// SpreadPips expresses the quote's spread in pips.
func (q Quote) SpreadPips(digits int) float64 {
	return q.Spread() / PipUnit(digits)
}

// QuoteStore is a concurrency-safe latest-quote cache.
type QuoteStore struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

func NewQuoteStore() *QuoteStore {
	return &QuoteStore{quotes: make(map[string]Quote)}
}

func (qs *QuoteStore) Set(q Quote) {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	qs.quotes[strings.ToUpper(q.Symbol)] = q
}

func (qs *QuoteStore) Get(symbol string) (Quote, error) {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	q, ok := qs.quotes[strings.ToUpper(symbol)]
	if !ok {
		return Quote{}, ErrNoQuote
	}
	return q, nil
}

// Quote implements QuoteSource.
func (qs *QuoteStore) Quote(_ context.Context, symbol string) (Quote, error) {
	return qs.Get(symbol)
}

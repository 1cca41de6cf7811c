package history

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rustyeddy/propbot/market"
)

// Memory is a concurrency-safe in-memory bar store.
type Memory struct {
	mu   sync.RWMutex
	bars map[string][]market.Candle
}

func NewMemory() *Memory {
	return &Memory{bars: make(map[string][]market.Candle)}
}

func key(symbol string, tf market.Timeframe) string {
	return strings.ToUpper(symbol) + "_" + string(tf)
}

// Set replaces the series for symbol/tf.
func (m *Memory) Set(symbol string, tf market.Timeframe, bars []market.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]market.Candle, len(bars))
	copy(cp, bars)
	m.bars[key(symbol, tf)] = cp
}

func (m *Memory) Bars(ctx context.Context, symbol string, tf market.Timeframe, count int) ([]market.Candle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bars, ok := m.bars[key(symbol, tf)]
	if !ok || len(bars) == 0 {
		return nil, fmt.Errorf("%s %s: %w", symbol, tf, market.ErrDataUnavailable)
	}
	if count > 0 && len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	out := make([]market.Candle, len(bars))
	copy(out, bars)
	return out, nil
}

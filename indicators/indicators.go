// Package indicators provides the technical indicators used for signals,
// stops and exits. Every indicator exists in a streaming form (Update one
// closed candle at a time) and a series form that returns one value per
// input with NaN during warmup.
package indicators

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/propbot/market"
)

var (
	// ErrNotEnoughData is returned when the input is shorter than the
	// warmup. It matches market.ErrDataUnavailable.
	ErrNotEnoughData = fmt.Errorf("not enough data: %w", market.ErrDataUnavailable)
	// ErrComputation marks a degenerate result such as NaN or Inf.
	ErrComputation = errors.New("indicator computation failed")
)

// Indicator computes a single streaming value from candles.
// It is deterministic and safe to use in live and paper trading.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "RSI(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* candle and updates internal state.
	Update(c market.Candle)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value, or 0 before Ready().
	Value() float64
}

// Series runs ind over candles from a fresh state and returns one value
// per candle, NaN until the indicator is ready.
func Series(ind Indicator, candles []market.Candle) []float64 {
	ind.Reset()
	out := make([]float64, len(candles))
	for i, c := range candles {
		ind.Update(c)
		if ind.Ready() {
			out[i] = ind.Value()
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Last returns the final n values of a series, failing if any of them is
// still in warmup or not finite.
func Last(series []float64, n int) ([]float64, error) {
	if len(series) < n {
		return nil, fmt.Errorf("%w: need %d values, got %d", ErrNotEnoughData, n, len(series))
	}
	tail := series[len(series)-n:]
	for _, v := range tail {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%w: series still warming up", ErrNotEnoughData)
		}
		if math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: infinite value", ErrComputation)
		}
	}
	return tail, nil
}

func closeCandles(closes []float64) []market.Candle {
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{Open: c, High: c, Low: c, Close: c}
	}
	return out
}

package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/propbot/market"
)

// MACD tracks the fast/slow EMA difference and its signal line. Value is
// the histogram (MACD line minus signal).
type MACD struct {
	fast, slow, signal int

	fastEMA   *ExponentialMA
	slowEMA   *ExponentialMA
	signalEMA *ExponentialMA
	line      float64
}

func NewMACD(fast, slow, signal int) *MACD {
	m := &MACD{fast: fast, slow: slow, signal: signal}
	m.Reset()
	return m
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD(%d,%d,%d)", m.fast, m.slow, m.signal)
}

func (m *MACD) Warmup() int { return m.slow + m.signal - 1 }

func (m *MACD) Reset() {
	m.fastEMA = NewEMA(m.fast)
	m.slowEMA = NewEMA(m.slow)
	m.signalEMA = NewEMA(m.signal)
	m.line = 0
}

func (m *MACD) Update(c market.Candle) {
	m.fastEMA.Push(c.Close)
	m.slowEMA.Push(c.Close)
	if !m.fastEMA.Ready() || !m.slowEMA.Ready() {
		return
	}
	m.line = m.fastEMA.Value() - m.slowEMA.Value()
	m.signalEMA.Push(m.line)
}

func (m *MACD) Ready() bool { return m.signalEMA.Ready() }

// Line is the fast minus slow EMA.
func (m *MACD) Line() float64 { return m.line }

func (m *MACD) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.line - m.signalEMA.Value()
}

// MACDHistogram returns the histogram for every close, NaN during warmup.
func MACDHistogram(closes []float64, fast, slow, signal int) ([]float64, error) {
	if fast <= 0 || slow <= fast || signal <= 0 {
		return nil, fmt.Errorf("invalid MACD periods %d/%d/%d", fast, slow, signal)
	}
	m := NewMACD(fast, slow, signal)
	if len(closes) < m.Warmup() {
		return nil, fmt.Errorf("%w: %s needs %d closes, got %d", ErrNotEnoughData, m.Name(), m.Warmup(), len(closes))
	}
	out := Series(m, closeCandles(closes))
	if v := out[len(out)-1]; math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %s produced %v", ErrComputation, m.Name(), v)
	}
	return out, nil
}

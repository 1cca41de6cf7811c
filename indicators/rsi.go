package indicators

import (
	"fmt"

	"github.com/rustyeddy/propbot/market"
)

// RSI is Wilder's Relative Strength Index over closes.
type RSI struct {
	period    int
	count     int
	prevClose float64
	avgGain   float64
	avgLoss   float64
}

func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string { return fmt.Sprintf("RSI(%d)", r.period) }

// Warmup is period changes, so period+1 closes.
func (r *RSI) Warmup() int { return r.period + 1 }

func (r *RSI) Reset() {
	*r = RSI{period: r.period}
}

func (r *RSI) Update(c market.Candle) {
	r.Push(c.Close)
}

func (r *RSI) Push(close float64) {
	r.count++
	if r.count == 1 {
		r.prevClose = close
		return
	}

	change := close - r.prevClose
	r.prevClose = close
	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	n := float64(r.period)
	if r.count <= r.period+1 {
		// Seed with the simple average of the first period changes.
		r.avgGain += gain / n
		r.avgLoss += loss / n
		return
	}
	r.avgGain = (r.avgGain*(n-1) + gain) / n
	r.avgLoss = (r.avgLoss*(n-1) + loss) / n
}

func (r *RSI) Ready() bool { return r.count >= r.period+1 }

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}

// RSISeries returns Wilder's RSI for every close, NaN during warmup.
func RSISeries(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(closes) < period+1 {
		return nil, fmt.Errorf("%w: RSI(%d) needs %d closes, got %d", ErrNotEnoughData, period, period+1, len(closes))
	}
	return Series(NewRSI(period), closeCandles(closes)), nil
}

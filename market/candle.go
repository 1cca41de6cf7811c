package market

import (
	"context"
	"errors"
	"time"
)

// ErrDataUnavailable marks an instrument with too little price history to
// evaluate this cycle.
var ErrDataUnavailable = errors.New("price history unavailable")

// Timeframe names a bar period, e.g. "D1".
type Timeframe string

const (
	H1 Timeframe = "H1"
	H4 Timeframe = "H4"
	D1 Timeframe = "D1"
	W1 Timeframe = "W1"
)

// Candle is one OHLCV price bar.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// BarSource returns the most recent count bars, oldest first.
type BarSource interface {
	Bars(ctx context.Context, symbol string, tf Timeframe, count int) ([]Candle, error)
}

func Closes(cs []Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}

// WeeklyCloses resamples daily bars into weeks ending Friday and returns
// the last close of each week, oldest first.
func WeeklyCloses(daily []Candle) []float64 {
	var out []float64
	var cur time.Time
	for i, c := range daily {
		end := weekEnding(c.Time)
		if i == 0 || !end.Equal(cur) {
			out = append(out, c.Close)
			cur = end
			continue
		}
		out[len(out)-1] = c.Close
	}
	return out
}

// weekEnding returns the calendar date of the Friday closing c's week.
// Saturday and Sunday belong to the following Friday.
func weekEnding(t time.Time) time.Time {
	t = t.UTC()
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(time.Friday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset)
}

// LowestLow returns the minimum low over the last n candles.
func LowestLow(cs []Candle, n int) float64 {
	if n > len(cs) {
		n = len(cs)
	}
	lo := cs[len(cs)-n].Low
	for _, c := range cs[len(cs)-n:] {
		if c.Low < lo {
			lo = c.Low
		}
	}
	return lo
}

// HighestHigh returns the maximum high over the last n candles.
func HighestHigh(cs []Candle, n int) float64 {
	if n > len(cs) {
		n = len(cs)
	}
	hi := cs[len(cs)-n].High
	for _, c := range cs[len(cs)-n:] {
		if c.High > hi {
			hi = c.High
		}
	}
	return hi
}

// BarsWithTimeout bounds every Bars call on src by d.
func BarsWithTimeout(src BarSource, d time.Duration) BarSource {
	if d <= 0 {
		return src
	}
	return timeoutBars{src: src, d: d}
}

type timeoutBars struct {
	src BarSource
	d   time.Duration
}

func (t timeoutBars) Bars(ctx context.Context, symbol string, tf Timeframe, count int) ([]Candle, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.src.Bars(ctx, symbol, tf, count)
}

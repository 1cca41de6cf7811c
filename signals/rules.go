// Package signals scans daily price history for momentum-reversal entries
// and ranks them.
package signals

import (
	"math"
	"sort"

	"github.com/rustyeddy/propbot/broker"
	"github.com/rustyeddy/propbot/market"
)

// Params are the rule thresholds and indicator periods.
type Params struct {
	RSIPeriod    int
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	ATRPeriod    int
	LookbackDays int // window searched for the oversold/overbought dip
	StopBars     int // swing bars the stop must clear
	MinBars      int
	History      int // daily bars requested
	AllowShorts  bool

	LongMaxRSI  float64 // 45
	ShortMinRSI float64 // 55
	Oversold    float64 // 30
	Overbought  float64 // 70
}

func DefaultParams() Params {
	return Params{
		RSIPeriod:    14,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		ATRPeriod:    14,
		LookbackDays: 21,
		StopBars:     3,
		MinBars:      50,
		History:      100,
		AllowShorts:  true,
		LongMaxRSI:   45,
		ShortMinRSI:  55,
		Oversold:     30,
		Overbought:   70,
	}
}

// Inputs are indicator series aligned so the last element is the current
// bar.
type Inputs struct {
	RSI       []float64
	Hist      []float64
	WeeklyRSI []float64
}

// Rules applies the entry conditions. It returns the side and the score
// (lower is better for both sides) or false when there is no setup.
// Series that are too short or still warming up never produce a setup.
func Rules(p Params, in Inputs) (broker.Side, float64, bool) {
	rsi, prevRSI, ok := lastTwo(in.RSI)
	if !ok {
		return "", 0, false
	}
	hist, prevHist, ok := lastTwo(in.Hist)
	if !ok {
		return "", 0, false
	}
	wk, prevWk, wkOK := lastTwo(in.WeeklyRSI)
	window := tail(in.RSI, p.LookbackDays)

	if rsi <= p.LongMaxRSI && rsi > prevRSI && hist > prevHist &&
		wkOK && wk > prevWk && anyOf(window, func(v float64) bool { return v < p.Oversold }) {
		return broker.Buy, rsi, true
	}
	if p.AllowShorts && rsi >= p.ShortMinRSI && rsi < prevRSI && hist < prevHist &&
		wkOK && wk < prevWk && anyOf(window, func(v float64) bool { return v > p.Overbought }) {
		return broker.Sell, 100 - rsi, true
	}
	return "", 0, false
}

// StopPrice places the protective stop: beyond both the volatility
// distance and the recent swing extreme.
func StopPrice(side broker.Side, close, atr, mult float64, bars []market.Candle, swing int) float64 {
	dist := atr * mult
	if side == broker.Buy {
		return math.Min(close-dist, market.LowestLow(bars, swing))
	}
	return math.Max(close+dist, market.HighestHigh(bars, swing))
}

// Rank sorts candidates by ascending score and keeps the best slots.
func Rank(cs []Candidate, slots int) []Candidate {
	if slots <= 0 {
		return nil
	}
	out := make([]Candidate, len(cs))
	copy(out, cs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	if len(out) > slots {
		out = out[:slots]
	}
	return out
}

func lastTwo(s []float64) (cur, prev float64, ok bool) {
	if len(s) < 2 {
		return 0, 0, false
	}
	cur, prev = s[len(s)-1], s[len(s)-2]
	if math.IsNaN(cur) || math.IsNaN(prev) {
		return 0, 0, false
	}
	return cur, prev, true
}

func tail(s []float64, n int) []float64 {
	if n <= 0 || n > len(s) {
		return s
	}
	return s[len(s)-n:]
}

func anyOf(s []float64, pred func(float64) bool) bool {
	for _, v := range s {
		if !math.IsNaN(v) && pred(v) {
			return true
		}
	}
	return false
}

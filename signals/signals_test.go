package signals

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/propbot/broker"
	"github.com/rustyeddy/propbot/history"
	"github.com/rustyeddy/propbot/indicators"
	"github.com/rustyeddy/propbot/market"
)

func TestRulesLongScenario(t *testing.T) {
	t.Parallel()

	in := Inputs{
		RSI:       []float64{50, 41, 35, 28, 32, 38, 44, 46},
		Hist:      []float64{-0.9, -0.8, -0.7, -0.6, -0.5, -0.4, -0.35, -0.3},
		WeeklyRSI: []float64{40, 45},
	}
	side, score, ok := Rules(DefaultParams(), in)
	require.True(t, ok)
	assert.Equal(t, broker.Buy, side)
	assert.Equal(t, 46.0, score)
}

func TestRulesShortScenario(t *testing.T) {
	t.Parallel()

	in := Inputs{
		RSI:       []float64{50, 65, 72, 68, 62, 58},
		Hist:      []float64{0.9, 0.8, 0.7, 0.6, 0.5, 0.4},
		WeeklyRSI: []float64{60, 57},
	}
	side, score, ok := Rules(DefaultParams(), in)
	require.True(t, ok)
	assert.Equal(t, broker.Sell, side)
	assert.InDelta(t, 42.0, score, 1e-12)

	p := DefaultParams()
	p.AllowShorts = false
	_, _, ok = Rules(p, in)
	assert.False(t, ok)
}

func TestRulesRejections(t *testing.T) {
	t.Parallel()

	base := func() Inputs {
		return Inputs{
			RSI:       []float64{50, 41, 35, 28, 32, 38, 44, 46},
			Hist:      []float64{-0.5, -0.3},
			WeeklyRSI: []float64{40, 45},
		}
	}
	tests := []struct {
		name   string
		mutate func(*Inputs)
	}{
		{"rsi above 45", func(in *Inputs) { in.RSI[len(in.RSI)-1] = 45.5 }},
		{"rsi not rising", func(in *Inputs) { in.RSI[len(in.RSI)-1] = 43 }},
		{"histogram falling", func(in *Inputs) { in.Hist = []float64{-0.3, -0.5} }},
		{"weekly falling", func(in *Inputs) { in.WeeklyRSI = []float64{45, 40} }},
		{"weekly missing", func(in *Inputs) { in.WeeklyRSI = []float64{45} }},
		{"weekly warming up", func(in *Inputs) { in.WeeklyRSI = []float64{math.NaN(), 45} }},
		{"no oversold dip", func(in *Inputs) { in.RSI = []float64{40, 35, 33, 32, 38, 44, 46} }},
		{"dip outside lookback", func(in *Inputs) {
			in.RSI = append([]float64{25}, make([]float64, 25)...)
			for i := 1; i < len(in.RSI); i++ {
				in.RSI[i] = 35 + float64(i)*0.3
			}
		}},
		{"too short", func(in *Inputs) { in.RSI = []float64{46} }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := base()
			tt.mutate(&in)
			_, _, ok := Rules(DefaultParams(), in)
			assert.False(t, ok)
		})
	}
}

func TestStopPrice(t *testing.T) {
	t.Parallel()

	bars := []market.Candle{
		{High: 1.12, Low: 1.08},
		{High: 1.11, Low: 1.095},
		{High: 1.105, Low: 1.097},
		{High: 1.104, Low: 1.099},
	}
	// ATR distance wins.
	assert.InDelta(t, 1.1-0.006, StopPrice(broker.Buy, 1.1, 0.004, 1.5, bars, 3), 1e-12)
	// Swing low wins.
	assert.InDelta(t, 1.095, StopPrice(broker.Buy, 1.1, 0.001, 1.5, bars, 3), 1e-12)
	// Short mirrors: swing high 1.11 beats close+0.0015.
	assert.InDelta(t, 1.11, StopPrice(broker.Sell, 1.1, 0.001, 1.5, bars, 3), 1e-12)
	assert.InDelta(t, 1.13, StopPrice(broker.Sell, 1.1, 0.02, 1.5, bars, 3), 1e-12)
}

func TestRank(t *testing.T) {
	t.Parallel()

	cs := []Candidate{
		{Instrument: market.Instrument{Symbol: "A"}, Score: 44},
		{Instrument: market.Instrument{Symbol: "B"}, Score: 31},
		{Instrument: market.Instrument{Symbol: "C"}, Score: 40},
		{Instrument: market.Instrument{Symbol: "D"}, Score: 31},
	}
	top := Rank(cs, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "B", top[0].Symbol())
	assert.Equal(t, "D", top[1].Symbol())
	assert.Equal(t, "A", cs[0].Symbol(), "input untouched")

	assert.Len(t, Rank(cs, 10), 4)
	assert.Empty(t, Rank(cs, 0))
}

func dailyBars(closes []float64) []market.Candle {
	out := make([]market.Candle, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := start
	for i, c := range closes {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		out[i] = market.Candle{Time: d, Open: c, High: c * 1.002, Low: c * 0.998, Close: c}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

func TestEvaluateShortHistory(t *testing.T) {
	t.Parallel()

	mem := history.NewMemory()
	mem.Set("EURUSD", market.D1, dailyBars(make([]float64, 30)))
	e := &Engine{Bars: mem, Params: DefaultParams()}

	eur, _ := market.DefaultCatalog().Lookup("EURUSD")
	_, ok, err := e.Evaluate(context.Background(), eur)
	assert.False(t, ok)
	assert.ErrorIs(t, err, market.ErrDataUnavailable)

	gbp, _ := market.DefaultCatalog().Lookup("GBPUSD")
	_, _, err = e.Evaluate(context.Background(), gbp)
	assert.ErrorIs(t, err, market.ErrDataUnavailable)
}

func TestEvaluateFlatMarketHasNoSetup(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 1.1
	}
	mem := history.NewMemory()
	mem.Set("EURUSD", market.D1, dailyBars(closes))
	e := &Engine{Bars: mem, Params: DefaultParams()}

	eur, _ := market.DefaultCatalog().Lookup("EURUSD")
	_, ok, err := e.Evaluate(context.Background(), eur)
	assert.NoError(t, err)
	assert.False(t, ok)
}

// Every candidate produced from arbitrary price paths has its stop on the
// loss side of the entry and a score no worse than the entry threshold.
func TestEvaluateCandidateInvariants(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	cat := market.DefaultCatalog()
	eur, _ := cat.Lookup("EURUSD")
	p := DefaultParams()

	found := 0
	for run := 0; run < 300; run++ {
		closes := make([]float64, 100)
		px := 1.1
		drift := (rng.Float64() - 0.5) * 0.004
		for i := range closes {
			px *= 1 + drift + rng.NormFloat64()*0.006
			closes[i] = px
		}
		mem := history.NewMemory()
		mem.Set("EURUSD", market.D1, dailyBars(closes))
		e := &Engine{Bars: mem, Params: p}

		c, ok, err := e.Evaluate(context.Background(), eur)
		if err != nil {
			require.True(t, errors.Is(err, indicators.ErrComputation) || errors.Is(err, market.ErrDataUnavailable), err)
			continue
		}
		if !ok {
			continue
		}
		found++
		assert.LessOrEqual(t, c.Score, 45.0)
		switch c.Side {
		case broker.Buy:
			assert.Less(t, c.Stop, c.Entry)
			assert.Equal(t, c.Score, c.RSI)
		case broker.Sell:
			assert.Greater(t, c.Stop, c.Entry)
			assert.InDelta(t, 100-c.RSI, c.Score, 1e-9)
		default:
			t.Fatalf("unexpected side %q", c.Side)
		}
		assert.Equal(t, 1.0, c.RiskModifier)
	}
	t.Logf("%d candidates from 300 paths", found)
}

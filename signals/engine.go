package signals

import (
	"context"
	"fmt"

	"github.com/rustyeddy/propbot/broker"
	"github.com/rustyeddy/propbot/indicators"
	"github.com/rustyeddy/propbot/market"
)

// Candidate is a proposed entry. It lives for one scan cycle.
type Candidate struct {
	Instrument   market.Instrument
	Side         broker.Side
	Score        float64
	Entry        float64
	Stop         float64
	ATR          float64
	RSI          float64
	RiskModifier float64
}

func (c Candidate) Symbol() string { return c.Instrument.Symbol }

// Engine evaluates one instrument at a time against the entry rules.
type Engine struct {
	Bars   market.BarSource
	Params Params
}

// Evaluate returns a candidate for in, or false when there is no setup.
// Short history is market.ErrDataUnavailable; degenerate math is
// indicators.ErrComputation. Either way the caller skips the instrument.
func (e *Engine) Evaluate(ctx context.Context, in market.Instrument) (Candidate, bool, error) {
	p := e.Params
	bars, err := e.Bars.Bars(ctx, in.Symbol, market.D1, p.History)
	if err != nil {
		return Candidate{}, false, fmt.Errorf("%s bars: %w", in.Symbol, err)
	}
	if len(bars) < p.MinBars {
		return Candidate{}, false, fmt.Errorf("%s: %d daily bars, need %d: %w", in.Symbol, len(bars), p.MinBars, market.ErrDataUnavailable)
	}

	closes := market.Closes(bars)
	rsi, err := indicators.RSISeries(closes, p.RSIPeriod)
	if err != nil {
		return Candidate{}, false, fmt.Errorf("%s: %w", in.Symbol, err)
	}
	hist, err := indicators.MACDHistogram(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	if err != nil {
		return Candidate{}, false, fmt.Errorf("%s: %w", in.Symbol, err)
	}

	weekly := market.WeeklyCloses(bars)
	if len(weekly) < 2 {
		return Candidate{}, false, fmt.Errorf("%s: %d weekly closes: %w", in.Symbol, len(weekly), market.ErrDataUnavailable)
	}
	// A weekly series too short for RSI has no trend, so no setup.
	weeklyRSI, _ := indicators.RSISeries(weekly, p.RSIPeriod)

	side, score, ok := Rules(p, Inputs{RSI: rsi, Hist: hist, WeeklyRSI: weeklyRSI})
	if !ok {
		return Candidate{}, false, nil
	}

	atr, err := indicators.ATRFunc(bars, p.ATRPeriod)
	if err != nil {
		return Candidate{}, false, fmt.Errorf("%s: %w", in.Symbol, err)
	}

	entry := closes[len(closes)-1]
	stop := StopPrice(side, entry, atr, in.Volatility(), bars, p.StopBars)
	if (side == broker.Buy && stop >= entry) || (side == broker.Sell && stop <= entry) {
		return Candidate{}, false, fmt.Errorf("%s: stop %v not on the loss side of %v: %w", in.Symbol, stop, entry, indicators.ErrComputation)
	}

	return Candidate{
		Instrument:   in,
		Side:         side,
		Score:        score,
		Entry:        entry,
		Stop:         stop,
		ATR:          atr,
		RSI:          rsi[len(rsi)-1],
		RiskModifier: 1.0,
	}, true, nil
}

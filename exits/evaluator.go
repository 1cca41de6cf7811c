// Package exits closes engine-owned positions when momentum toward the
// RSI midline stalls.
package exits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rustyeddy/propbot/broker"
	"github.com/rustyeddy/propbot/indicators"
	"github.com/rustyeddy/propbot/market"
)

// Midline is the RSI level a position must reach before it can exit.
const Midline = 50.0

// ShouldExit is the exit rule: a long exits once RSI is at or above the
// midline and no longer rising; a short once RSI is at or below it and
// no longer falling.
func ShouldExit(p broker.Position, rsi, prev float64) bool {
	if p.IsLong() {
		return rsi >= Midline && rsi <= prev
	}
	return rsi <= Midline && rsi >= prev
}

// Exit records one close attempt.
type Exit struct {
	Position broker.Position
	RSI      float64
	PrevRSI  float64
	Result   broker.OrderResult
	Err      error
}

type Evaluator struct {
	Venue broker.Venue
	Bars  market.BarSource
	Log   *slog.Logger

	Period    int // RSI period, 14
	History   int // daily bars fetched, 50
	Deviation int // allowed slippage on the close, in points
}

// Run evaluates each position and closes the ones whose rule fires,
// cancelling that symbol's pending orders first. It returns the attempted
// exits; evaluation errors are joined, a venue outage aborts the run.
func (e *Evaluator) Run(ctx context.Context, positions []broker.Position) ([]Exit, error) {
	var exits []Exit
	var errs []error
	for _, p := range positions {
		rsi, prev, err := e.rsi(ctx, p.Symbol)
		if err != nil {
			if errors.Is(err, broker.ErrVenueUnavailable) {
				return exits, err
			}
			e.Log.Warn("exit check skipped", "symbol", p.Symbol, "ticket", p.Ticket, "err", err)
			errs = append(errs, err)
			continue
		}
		if !ShouldExit(p, rsi, prev) {
			continue
		}

		ex := Exit{Position: p, RSI: rsi, PrevRSI: prev}
		ex.Result, ex.Err = e.close(ctx, p)
		if ex.Err != nil {
			e.Log.Error("exit failed", "symbol", p.Symbol, "ticket", p.Ticket, "err", ex.Err)
		} else {
			e.Log.Info("position exited", "symbol", p.Symbol, "ticket", p.Ticket, "rsi", rsi, "prev_rsi", prev)
		}
		exits = append(exits, ex)
		if errors.Is(ex.Err, broker.ErrVenueUnavailable) {
			return exits, ex.Err
		}
	}
	return exits, errors.Join(errs...)
}

func (e *Evaluator) close(ctx context.Context, p broker.Position) (broker.OrderResult, error) {
	if err := broker.CancelPending(ctx, e.Venue, p.Symbol); err != nil {
		e.Log.Warn("cancel pending failed", "symbol", p.Symbol, "err", err)
	}
	return broker.Close(ctx, e.Venue, p, "RSI exit", e.Deviation)
}

func (e *Evaluator) rsi(ctx context.Context, symbol string) (float64, float64, error) {
	period := e.Period
	if period <= 0 {
		period = 14
	}
	n := e.History
	if n <= 0 {
		n = 50
	}
	bars, err := e.Bars.Bars(ctx, symbol, market.D1, n)
	if err != nil {
		return 0, 0, fmt.Errorf("%s bars: %w", symbol, err)
	}
	if len(bars) < period+2 {
		return 0, 0, fmt.Errorf("%s: %d bars: %w", symbol, len(bars), market.ErrDataUnavailable)
	}
	series, err := indicators.RSISeries(market.Closes(bars), period)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", symbol, err)
	}
	tail, err := indicators.Last(series, 2)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", symbol, err)
	}
	return tail[1], tail[0], nil
}

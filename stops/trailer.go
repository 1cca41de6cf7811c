// Package stops ratchets protective stops behind engine-owned positions.
package stops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rustyeddy/propbot/broker"
	"github.com/rustyeddy/propbot/indicators"
	"github.com/rustyeddy/propbot/market"
)

// NoiseFactor is the fraction of ATR a stop must improve by before it moves.
const NoiseFactor = 0.1

// Next computes the trailed stop for p. It reports false when the stop
// should stay where it is. A long stop only rises and a short stop only
// falls; an unset short stop is always placed.
func Next(p broker.Position, q market.Quote, atr, mult float64) (float64, bool) {
	trail := atr * mult
	filter := atr * NoiseFactor
	if p.IsLong() {
		candidate := q.Bid - trail
		if candidate > 0 && candidate > p.Stop+filter {
			return candidate, true
		}
		return 0, false
	}
	candidate := q.Ask + trail
	if p.Stop == 0 || candidate < p.Stop-filter {
		return candidate, true
	}
	return 0, false
}

type Update struct {
	Ticket int64
	Symbol string
	Side   broker.Side
	Old    float64
	New    float64
	ATR    float64
}

// Trailer applies Next to each position through the venue.
type Trailer struct {
	Venue   broker.Venue
	Bars    market.BarSource
	Catalog *market.Catalog
	Log     *slog.Logger

	Period  int // ATR period, 14
	History int // daily bars fetched, 100
}

// Run trails every position it is given. One symbol's failure does not
// stop the others; a venue outage does, and is returned wrapped.
func (t *Trailer) Run(ctx context.Context, positions []broker.Position) ([]Update, error) {
	var updates []Update
	var errs []error
	for _, p := range positions {
		u, moved, err := t.trail(ctx, p)
		if err != nil {
			if errors.Is(err, broker.ErrVenueUnavailable) {
				return updates, err
			}
			t.Log.Warn("trailing skipped", "symbol", p.Symbol, "ticket", p.Ticket, "err", err)
			errs = append(errs, err)
			continue
		}
		if moved {
			t.Log.Info("stop trailed", "symbol", u.Symbol, "ticket", u.Ticket, "old", u.Old, "new", u.New)
			updates = append(updates, u)
		}
	}
	return updates, errors.Join(errs...)
}

func (t *Trailer) trail(ctx context.Context, p broker.Position) (Update, bool, error) {
	bars, err := t.Bars.Bars(ctx, p.Symbol, market.D1, t.history())
	if err != nil {
		return Update{}, false, fmt.Errorf("%s bars: %w", p.Symbol, err)
	}
	if len(bars) < t.period()+6 {
		return Update{}, false, fmt.Errorf("%s: %d bars: %w", p.Symbol, len(bars), market.ErrDataUnavailable)
	}
	atr, err := indicators.ATRFunc(bars, t.period())
	if err != nil {
		return Update{}, false, fmt.Errorf("%s: %w", p.Symbol, err)
	}

	q, err := t.Venue.Quote(ctx, p.Symbol)
	if err != nil {
		return Update{}, false, fmt.Errorf("%s quote: %w", p.Symbol, err)
	}

	in, ok := t.Catalog.Lookup(p.Symbol)
	if !ok {
		in = market.Instrument{Symbol: p.Symbol}
	}
	stop, move := Next(p, q, atr, in.Volatility())
	if !move {
		return Update{}, false, nil
	}
	if err := t.Venue.UpdateStop(ctx, p.Ticket, stop); err != nil {
		return Update{}, false, fmt.Errorf("%s update stop: %w", p.Symbol, err)
	}
	return Update{Ticket: p.Ticket, Symbol: p.Symbol, Side: p.Side, Old: p.Stop, New: stop, ATR: atr}, true, nil
}

func (t *Trailer) period() int {
	if t.Period > 0 {
		return t.Period
	}
	return 14
}

func (t *Trailer) history() int {
	if t.History > 0 {
		return t.History
	}
	return 100
}

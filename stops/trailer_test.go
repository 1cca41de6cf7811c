package stops

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/propbot/broker"
	"github.com/rustyeddy/propbot/history"
	"github.com/rustyeddy/propbot/market"
	"github.com/rustyeddy/propbot/sim"
)

func TestNext(t *testing.T) {
	t.Parallel()

	q := market.Quote{Bid: 1.1050, Ask: 1.1052}
	const atr, mult = 0.0020, 1.5 // trail 0.0030, filter 0.0002

	tests := []struct {
		name  string
		pos   broker.Position
		want  float64
		moved bool
	}{
		{"long ratchets up", broker.Position{Side: broker.Buy, Stop: 1.0950}, 1.1020, true},
		{"long inside noise", broker.Position{Side: broker.Buy, Stop: 1.1019}, 0, false},
		{"long never lowers", broker.Position{Side: broker.Buy, Stop: 1.1030}, 0, false},
		{"short unset is placed", broker.Position{Side: broker.Sell}, 1.1082, true},
		{"short ratchets down", broker.Position{Side: broker.Sell, Stop: 1.1150}, 1.1082, true},
		{"short inside noise", broker.Position{Side: broker.Sell, Stop: 1.1083}, 0, false},
		{"short never raises", broker.Position{Side: broker.Sell, Stop: 1.1060}, 0, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, moved := Next(tt.pos, q, atr, mult)
			assert.Equal(t, tt.moved, moved)
			if moved {
				assert.InDelta(t, tt.want, got, 1e-9)
				if tt.pos.IsLong() {
					assert.GreaterOrEqual(t, got, tt.pos.Stop)
				} else if tt.pos.Stop != 0 {
					assert.LessOrEqual(t, got, tt.pos.Stop)
				}
			}
		})
	}
}

func TestNextIsMonotonicOverAPath(t *testing.T) {
	t.Parallel()

	long := broker.Position{Side: broker.Buy, Stop: 1.0900}
	short := broker.Position{Side: broker.Sell}
	path := []float64{1.10, 1.104, 1.099, 1.108, 1.102, 1.115, 1.111, 1.090, 1.12}
	for _, px := range path {
		q := market.Quote{Bid: px, Ask: px + 0.0002}
		if s, ok := Next(long, q, 0.002, 1.5); ok {
			require.Greater(t, s, long.Stop)
			long.Stop = s
		}
		if s, ok := Next(short, q, 0.002, 1.5); ok {
			if short.Stop != 0 {
				require.Less(t, s, short.Stop)
			}
			short.Stop = s
		}
	}
}

func flatBars(n int, close, halfRange float64) []market.Candle {
	out := make([]market.Candle, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = market.Candle{
			Time:  start.AddDate(0, 0, i),
			Open:  close,
			High:  close + halfRange,
			Low:   close - halfRange,
			Close: close,
		}
	}
	return out
}

func TestTrailerRun(t *testing.T) {
	ctx := context.Background()
	cat := market.DefaultCatalog()

	v := sim.New(broker.Account{Currency: "USD", Balance: 100_000}, cat)
	require.NoError(t, v.UpdateQuote(market.Quote{Symbol: "EURUSD", Bid: 1.1000, Ask: 1.1002}))
	res, err := v.Submit(ctx, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Buy, Volume: 1, Stop: 1.0950, Magic: 1})
	require.NoError(t, err)
	require.NoError(t, v.UpdateQuote(market.Quote{Symbol: "EURUSD", Bid: 1.1050, Ask: 1.1052}))

	bars := history.NewMemory()
	bars.Set("EURUSD", market.D1, flatBars(30, 1.1, 0.001))

	tr := &Trailer{Venue: v, Bars: bars, Catalog: cat, Log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	ps, _ := v.OpenPositions(ctx)
	updates, err := tr.Run(ctx, ps)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, res.Ticket, updates[0].Ticket)
	assert.InDelta(t, 1.1020, updates[0].New, 1e-9)

	ps, _ = v.OpenPositions(ctx)
	assert.InDelta(t, 1.1020, ps[0].Stop, 1e-9)

	// Same quote again: nothing moves.
	updates, err = tr.Run(ctx, ps)
	require.NoError(t, err)
	assert.Empty(t, updates)
}

func TestTrailerIsolatesMissingHistory(t *testing.T) {
	ctx := context.Background()
	cat := market.DefaultCatalog()

	v := sim.New(broker.Account{Currency: "USD", Balance: 100_000}, cat)
	require.NoError(t, v.UpdateQuote(market.Quote{Symbol: "EURUSD", Bid: 1.1050, Ask: 1.1052}))
	require.NoError(t, v.UpdateQuote(market.Quote{Symbol: "GBPUSD", Bid: 1.2500, Ask: 1.2502}))
	_, err := v.Submit(ctx, broker.OrderRequest{Symbol: "GBPUSD", Side: broker.Buy, Volume: 1, Stop: 1.2400})
	require.NoError(t, err)
	_, err = v.Submit(ctx, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Sell, Volume: 1})
	require.NoError(t, err)

	bars := history.NewMemory()
	bars.Set("EURUSD", market.D1, flatBars(30, 1.1, 0.001))

	tr := &Trailer{Venue: v, Bars: bars, Catalog: cat, Log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	ps, _ := v.OpenPositions(ctx)
	updates, err := tr.Run(ctx, ps)
	assert.ErrorIs(t, err, market.ErrDataUnavailable)
	require.Len(t, updates, 1)
	assert.Equal(t, "EURUSD", updates[0].Symbol)
	assert.InDelta(t, 1.1052+0.003, updates[0].New, 1e-9)
}

func TestTrailerStopsOnVenueOutage(t *testing.T) {
	ctx := context.Background()
	cat := market.DefaultCatalog()

	v := sim.New(broker.Account{Currency: "USD", Balance: 100_000}, cat)
	require.NoError(t, v.UpdateQuote(market.Quote{Symbol: "EURUSD", Bid: 1.1050, Ask: 1.1052}))
	_, err := v.Submit(ctx, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Sell, Volume: 1})
	require.NoError(t, err)
	ps, _ := v.OpenPositions(ctx)
	v.Disconnect()

	bars := history.NewMemory()
	bars.Set("EURUSD", market.D1, flatBars(30, 1.1, 0.001))
	tr := &Trailer{Venue: v, Bars: bars, Catalog: cat, Log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	_, err = tr.Run(ctx, ps)
	assert.ErrorIs(t, err, broker.ErrVenueUnavailable)
}

package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/propbot/broker"
	"github.com/rustyeddy/propbot/market"
)

var t0 = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

func newVenue(t *testing.T, balance float64) *Venue {
	t.Helper()
	v := New(broker.Account{ID: "paper-1", Currency: "USD", Balance: balance}, market.DefaultCatalog())
	v.Now = func() time.Time { return t0 }
	return v
}

func setQuote(t *testing.T, v *Venue, symbol string, bid, ask float64) {
	t.Helper()
	require.NoError(t, v.UpdateQuote(market.Quote{Symbol: symbol, Bid: bid, Ask: ask, Time: t0}))
}

func buy(t *testing.T, v *Venue, symbol string, vol, stop float64) broker.OrderResult {
	t.Helper()
	res, err := v.Submit(context.Background(), broker.OrderRequest{Symbol: symbol, Side: broker.Buy, Volume: vol, Stop: stop, Magic: 7})
	require.NoError(t, err)
	return res
}

func TestVenueRevalueEURUSDLong(t *testing.T) {
	v := newVenue(t, 100_000)
	ctx := context.Background()

	setQuote(t, v, "EURUSD", 1.1000, 1.1002)
	res := buy(t, v, "EURUSD", 1, 1.0950)
	assert.Equal(t, 1.1002, res.Price)

	setQuote(t, v, "EURUSD", 1.1052, 1.1054)
	acct, err := v.Account(ctx)
	require.NoError(t, err)
	// 1 lot * 100000 * (1.1052 - 1.1002)
	assert.InDelta(t, 100_500, acct.Equity, 1e-6)
	assert.InDelta(t, 100_000, acct.Balance, 1e-9)
	assert.Greater(t, acct.Margin, 0.0)
}

func TestVenueStopOutBooksDeal(t *testing.T) {
	v := newVenue(t, 100_000)
	ctx := context.Background()

	setQuote(t, v, "EURUSD", 1.1000, 1.1002)
	buy(t, v, "EURUSD", 2, 1.0980)

	setQuote(t, v, "EURUSD", 1.0979, 1.0981)

	ps, err := v.OpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, ps)

	deals, err := v.DealsSince(ctx, t0.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, deals, 1)
	// Closed at the stop: 2 * 100000 * (1.0980 - 1.1002)
	assert.InDelta(t, -440, deals[0].Profit, 1e-6)

	acct, _ := v.Account(ctx)
	assert.InDelta(t, 99_560, acct.Balance, 1e-6)
	assert.InDelta(t, acct.Balance, acct.Equity, 1e-9)
}

func TestVenueShortJPYConversion(t *testing.T) {
	v := newVenue(t, 100_000)
	ctx := context.Background()

	setQuote(t, v, "USDJPY", 150.00, 150.02)
	_, err := v.Submit(ctx, broker.OrderRequest{Symbol: "USDJPY", Side: broker.Sell, Volume: 1})
	require.NoError(t, err)

	setQuote(t, v, "USDJPY", 149.48, 149.50)
	acct, _ := v.Account(ctx)
	// 100000 * (150.00 - 149.50) JPY at 1/149.48
	assert.InDelta(t, 100_000+50_000/149.48, acct.Equity, 1e-6)
}

func TestVenueCloseByTicket(t *testing.T) {
	v := newVenue(t, 10_000)
	ctx := context.Background()

	setQuote(t, v, "XAUUSD", 2000.0, 2000.5)
	res := buy(t, v, "XAUUSD", 0.1, 1990)

	setQuote(t, v, "XAUUSD", 2010.5, 2011.0)
	ps, _ := v.OpenPositions(ctx)
	require.Len(t, ps, 1)

	out, err := broker.Close(ctx, v, ps[0], "manual", 20)
	require.NoError(t, err)
	assert.Equal(t, res.Ticket, out.Ticket)
	assert.Equal(t, 2010.5, out.Price)

	acct, _ := v.Account(ctx)
	// 0.1 * 100 * 10
	assert.InDelta(t, 10_100, acct.Balance, 1e-6)
}

func TestVenueRejects(t *testing.T) {
	v := newVenue(t, 10_000)
	ctx := context.Background()

	_, err := v.Submit(ctx, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Buy, Volume: 1})
	assert.ErrorIs(t, err, broker.ErrOrderRejected, "no quote yet")

	setQuote(t, v, "EURUSD", 1.1000, 1.1002)

	_, err = v.Submit(ctx, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Buy, Volume: 0.015})
	var rej *broker.RejectError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, RejectInvalidVolume, rej.Code)

	_, err = v.Submit(ctx, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Buy, Volume: 1, Stop: 1.1001})
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, RejectInvalidStops, rej.Code)

	assert.ErrorIs(t, v.Cancel(ctx, 999), broker.ErrOrderRejected)
}

func TestVenueUpdateStopAndPending(t *testing.T) {
	v := newVenue(t, 10_000)
	ctx := context.Background()

	setQuote(t, v, "EURUSD", 1.1000, 1.1002)
	res := buy(t, v, "EURUSD", 1, 1.0950)

	require.NoError(t, v.UpdateStop(ctx, res.Ticket, 1.0970))
	ps, _ := v.OpenPositions(ctx)
	assert.Equal(t, 1.0970, ps[0].Stop)
	assert.ErrorIs(t, v.UpdateStop(ctx, res.Ticket, 1.1005), broker.ErrOrderRejected)

	v.PlaceOrder(broker.Order{Symbol: "EURUSD", Side: broker.Buy, Volume: 1, Price: 1.09})
	v.PlaceOrder(broker.Order{Symbol: "GBPUSD", Side: broker.Sell, Volume: 1, Price: 1.30})

	require.NoError(t, broker.CancelPending(ctx, v, "EURUSD"))
	all, err := v.PendingOrders(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "GBPUSD", all[0].Symbol)
}

func TestVenueDisconnect(t *testing.T) {
	v := newVenue(t, 10_000)
	ctx := context.Background()

	v.Disconnect()
	_, err := v.Account(ctx)
	assert.ErrorIs(t, err, broker.ErrVenueUnavailable)

	var c broker.Connector = v
	require.NoError(t, c.Connect(ctx))
	_, err = v.Account(ctx)
	assert.NoError(t, err)
}

func TestDefaultSymbolInfo(t *testing.T) {
	t.Parallel()

	cat := market.DefaultCatalog()
	jpy, _ := cat.Lookup("USDJPY")
	aapl, _ := cat.Lookup("AAPL")

	assert.Equal(t, 3, DefaultSymbolInfo(jpy).Digits)
	assert.Equal(t, 100_000.0, DefaultSymbolInfo(jpy).ContractSize)
	assert.Equal(t, 1.0, DefaultSymbolInfo(aapl).VolumeStep)
	assert.Equal(t, broker.FillOrKill, broker.SelectFilling(DefaultSymbolInfo(aapl).FillingModes))
}

package broker

import (
	"context"
	"time"

	"github.com/rustyeddy/propbot/market"
)

// WithTimeout wraps v so that every call runs under its own deadline. The
// result is a Connector only when v is.
func WithTimeout(v Venue, d time.Duration) Venue {
	if d <= 0 {
		return v
	}
	tv := &timeoutVenue{v: v, d: d}
	if c, ok := v.(Connector); ok {
		return &timeoutConnector{timeoutVenue: tv, c: c}
	}
	return tv
}

type timeoutVenue struct {
	v Venue
	d time.Duration
}

func (t *timeoutVenue) Account(ctx context.Context) (Account, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.v.Account(ctx)
}

func (t *timeoutVenue) OpenPositions(ctx context.Context) ([]Position, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.v.OpenPositions(ctx)
}

func (t *timeoutVenue) PendingOrders(ctx context.Context, symbol string) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.v.PendingOrders(ctx, symbol)
}

func (t *timeoutVenue) SymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.v.SymbolInfo(ctx, symbol)
}

func (t *timeoutVenue) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.v.Quote(ctx, symbol)
}

func (t *timeoutVenue) Submit(ctx context.Context, req OrderRequest) (OrderResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.v.Submit(ctx, req)
}

func (t *timeoutVenue) Cancel(ctx context.Context, ticket int64) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.v.Cancel(ctx, ticket)
}

func (t *timeoutVenue) UpdateStop(ctx context.Context, ticket int64, stop float64) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.v.UpdateStop(ctx, ticket, stop)
}

func (t *timeoutVenue) DealsSince(ctx context.Context, since time.Time) ([]Deal, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.v.DealsSince(ctx, since)
}

type timeoutConnector struct {
	*timeoutVenue
	c Connector
}

func (t *timeoutConnector) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.c.Connect(ctx)
}

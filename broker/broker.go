package broker

import (
	"context"
	"time"

	"github.com/rustyeddy/propbot/market"
)

// Venue is the trading venue the engine reads state from and sends
// requests to. The venue owns positions; the engine only asks it to
// change them.
type Venue interface {
	Account(ctx context.Context) (Account, error)
	OpenPositions(ctx context.Context) ([]Position, error)
	PendingOrders(ctx context.Context, symbol string) ([]Order, error)
	SymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error)
	Quote(ctx context.Context, symbol string) (market.Quote, error)
	Submit(ctx context.Context, req OrderRequest) (OrderResult, error)
	Cancel(ctx context.Context, ticket int64) error
	UpdateStop(ctx context.Context, ticket int64, stop float64) error
	DealsSince(ctx context.Context, since time.Time) ([]Deal, error)
}

// Connector is implemented by venues that hold a session which can drop.
type Connector interface {
	Connect(ctx context.Context) error
}

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Opposite returns the side that closes a position opened on s.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

type Account struct {
	ID         string
	Currency   string
	Balance    float64
	Equity     float64
	Margin     float64
	FreeMargin float64
}

type Position struct {
	Ticket     int64
	Symbol     string
	Side       Side
	Volume     float64
	Entry      float64
	Stop       float64 // 0 when unset
	TakeProfit float64 // 0 when unset
	OpenTime   time.Time
	Magic      int64
	Comment    string
}

// IsLong reports whether the position profits from a rising price.
func (p Position) IsLong() bool { return p.Side == Buy }

type Order struct {
	Ticket int64
	Symbol string
	Side   Side
	Volume float64
	Price  float64
	Stop   float64
	Time   time.Time
	Magic  int64
}

// Deal is a realized cash movement: a closing fill, commission, swap or fee.
type Deal struct {
	Ticket     int64
	Symbol     string
	Time       time.Time
	Profit     float64
	Commission float64
	Fee        float64
	Swap       float64
}

// Net is the deal's total effect on balance.
func (d Deal) Net() float64 {
	return d.Profit + d.Commission + d.Fee + d.Swap
}

type SymbolInfo struct {
	Symbol       string
	ContractSize float64
	VolumeStep   float64
	VolumeMin    float64
	VolumeMax    float64
	Digits       int
	FillingModes []Filling
}

// PipUnit is the symbol's conventional pip size.
func (si SymbolInfo) PipUnit() float64 {
	return market.PipUnit(si.Digits)
}

type OrderRequest struct {
	ClientID   string
	Symbol     string
	Side       Side
	Volume     float64
	Price      float64
	Stop       float64
	TakeProfit float64
	Magic      int64
	Comment    string
	Filling    Filling
	Deviation  int
	// ClosePosition, when non-zero, makes the request an offsetting order
	// for that ticket.
	ClosePosition int64
}

type OrderResult struct {
	Ticket  int64
	Price   float64
	Volume  float64
	Comment string
}

// Owned filters positions to those opened by the engine's magic number.
func Owned(positions []Position, magic int64) []Position {
	var out []Position
	for _, p := range positions {
		if p.Magic == magic {
			out = append(out, p)
		}
	}
	return out
}

// Close sends an offsetting market order for p at the current quote, using
// the symbol's preferred filling mode and the given price deviation.
func Close(ctx context.Context, v Venue, p Position, comment string, deviation int) (OrderResult, error) {
	info, err := v.SymbolInfo(ctx, p.Symbol)
	if err != nil {
		return OrderResult{}, err
	}
	q, err := v.Quote(ctx, p.Symbol)
	if err != nil {
		return OrderResult{}, err
	}
	price := q.Bid
	if !p.IsLong() {
		price = q.Ask
	}
	return v.Submit(ctx, OrderRequest{
		Symbol:        p.Symbol,
		Side:          p.Side.Opposite(),
		Volume:        p.Volume,
		Price:         price,
		Magic:         p.Magic,
		Comment:       comment,
		ClosePosition: p.Ticket,
		Filling:       SelectFilling(info.FillingModes),
		Deviation:     deviation,
	})
}

// CancelPending cancels every pending order on symbol. All cancels are
// attempted; the first error is returned.
func CancelPending(ctx context.Context, v Venue, symbol string) error {
	orders, err := v.PendingOrders(ctx, symbol)
	if err != nil {
		return err
	}
	var first error
	for _, o := range orders {
		if err := v.Cancel(ctx, o.Ticket); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Package sim is an in-memory paper venue. It fills market orders at the
// current quote, keeps positions with tickets and stops, books closing
// deals, and stops positions out as quotes move.
package sim

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/propbot/broker"
	"github.com/rustyeddy/propbot/market"
)

// Reject codes mirror the common retcodes of retail venues.
const (
	RejectInvalidVolume = 10014
	RejectInvalidStops  = 10016
	RejectNoQuote       = 10021
	RejectNotFound      = 10036
)

type Venue struct {
	mu        sync.Mutex
	cat       *market.Catalog
	acct      broker.Account
	quotes    *market.QuoteStore
	info      map[string]broker.SymbolInfo
	positions map[int64]broker.Position
	orders    map[int64]broker.Order
	deals     []broker.Deal
	ticket    int64
	connected bool

	// MarginRate is the fraction of notional held as margin.
	MarginRate float64
	// CommissionPerLot is charged on every closing deal.
	CommissionPerLot float64
	// Now supplies deal and position timestamps.
	Now func() time.Time
}

func New(acct broker.Account, cat *market.Catalog) *Venue {
	if acct.Equity == 0 {
		acct.Equity = acct.Balance
	}
	acct.FreeMargin = acct.Equity
	return &Venue{
		cat:        cat,
		acct:       acct,
		quotes:     market.NewQuoteStore(),
		info:       make(map[string]broker.SymbolInfo),
		positions:  make(map[int64]broker.Position),
		orders:     make(map[int64]broker.Order),
		connected:  true,
		MarginRate: 0.01,
		Now:        time.Now,
	}
}

// Connect implements broker.Connector.
func (v *Venue) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", broker.ErrVenueUnavailable, err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = true
	return nil
}

// Disconnect simulates a dropped session; every call fails until Connect.
func (v *Venue) Disconnect() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = false
}

func (v *Venue) checkLocked() error {
	if !v.connected {
		return fmt.Errorf("%w: sim session closed", broker.ErrVenueUnavailable)
	}
	return nil
}

// SetSymbolInfo overrides the derived trading metadata for a symbol.
func (v *Venue) SetSymbolInfo(si broker.SymbolInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	si.Symbol = strings.ToUpper(si.Symbol)
	v.info[si.Symbol] = si
}

// UpdateQuote records a quote, fires stops and take-profits on that
// symbol, and revalues the account.
func (v *Venue) UpdateQuote(q market.Quote) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	q.Symbol = strings.ToUpper(q.Symbol)
	if q.Time.IsZero() {
		q.Time = v.Now()
	}
	v.quotes.Set(q)

	for _, t := range v.sortedTicketsLocked() {
		p := v.positions[t]
		if p.Symbol != q.Symbol {
			continue
		}
		mark := closingMark(p, q.Bid, q.Ask)
		switch {
		case hitStopLoss(p, mark):
			if err := v.closeLocked(p, p.Stop, "sl"); err != nil {
				return err
			}
		case hitTakeProfit(p, mark):
			if err := v.closeLocked(p, p.TakeProfit, "tp"); err != nil {
				return err
			}
		}
	}
	return v.revalueLocked()
}

// PlaceOrder adds a pending order and returns its ticket.
func (v *Venue) PlaceOrder(o broker.Order) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ticket++
	o.Ticket = v.ticket
	o.Symbol = strings.ToUpper(o.Symbol)
	if o.Time.IsZero() {
		o.Time = v.Now()
	}
	v.orders[o.Ticket] = o
	return o.Ticket
}

func (v *Venue) Account(ctx context.Context) (broker.Account, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkLocked(); err != nil {
		return broker.Account{}, err
	}
	return v.acct, nil
}

func (v *Venue) OpenPositions(ctx context.Context) ([]broker.Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkLocked(); err != nil {
		return nil, err
	}
	out := make([]broker.Position, 0, len(v.positions))
	for _, t := range v.sortedTicketsLocked() {
		out = append(out, v.positions[t])
	}
	return out, nil
}

// PendingOrders returns pending orders on symbol, or all of them when
// symbol is empty.
func (v *Venue) PendingOrders(ctx context.Context, symbol string) ([]broker.Order, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkLocked(); err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(symbol)
	var out []broker.Order
	for _, o := range v.orders {
		if symbol == "" || o.Symbol == symbol {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out, nil
}

func (v *Venue) SymbolInfo(ctx context.Context, symbol string) (broker.SymbolInfo, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkLocked(); err != nil {
		return broker.SymbolInfo{}, err
	}
	return v.symbolInfoLocked(symbol)
}

func (v *Venue) symbolInfoLocked(symbol string) (broker.SymbolInfo, error) {
	symbol = strings.ToUpper(symbol)
	if si, ok := v.info[symbol]; ok {
		return si, nil
	}
	in, ok := v.cat.Lookup(symbol)
	if !ok {
		return broker.SymbolInfo{}, fmt.Errorf("unknown symbol %s", symbol)
	}
	return DefaultSymbolInfo(in), nil
}

// DefaultSymbolInfo derives venue metadata from the catalog entry.
func DefaultSymbolInfo(in market.Instrument) broker.SymbolInfo {
	si := broker.SymbolInfo{
		Symbol:       in.Symbol,
		ContractSize: in.ContractSize,
		VolumeStep:   0.01,
		VolumeMin:    0.01,
		VolumeMax:    100,
		Digits:       2,
		FillingModes: []broker.Filling{broker.FillOrKill, broker.ImmediateOrCancel},
	}
	switch in.Category {
	case market.Forex:
		si.Digits = 5
		if in.QuoteCurrency == "JPY" {
			si.Digits = 3
		}
	case market.Metals:
		si.Digits = 2
		if in.Symbol == "XAGUSD" {
			si.Digits = 3
		}
	case market.Stocks:
		si.VolumeStep, si.VolumeMin = 1, 1
		si.VolumeMax = 10_000
	}
	return si
}

func (v *Venue) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkLocked(); err != nil {
		return market.Quote{}, err
	}
	q, err := v.quotes.Get(symbol)
	if err != nil {
		return market.Quote{}, fmt.Errorf("%s: %w", symbol, err)
	}
	return q, nil
}

func (v *Venue) Submit(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkLocked(); err != nil {
		return broker.OrderResult{}, err
	}

	symbol := strings.ToUpper(req.Symbol)
	q, err := v.quotes.Get(symbol)
	if err != nil {
		return broker.OrderResult{}, &broker.RejectError{Symbol: symbol, Code: RejectNoQuote, Comment: "no prices"}
	}

	if req.ClosePosition != 0 {
		p, ok := v.positions[req.ClosePosition]
		if !ok {
			return broker.OrderResult{}, &broker.RejectError{Symbol: symbol, Code: RejectNotFound, Comment: "position not found"}
		}
		price := closingMark(p, q.Bid, q.Ask)
		if err := v.closeLocked(p, price, req.Comment); err != nil {
			return broker.OrderResult{}, err
		}
		if err := v.revalueLocked(); err != nil {
			return broker.OrderResult{}, err
		}
		return broker.OrderResult{Ticket: p.Ticket, Price: price, Volume: p.Volume, Comment: "done"}, nil
	}

	si, err := v.symbolInfoLocked(symbol)
	if err != nil {
		return broker.OrderResult{}, &broker.RejectError{Symbol: symbol, Code: RejectNotFound, Comment: err.Error()}
	}
	if !validVolume(req.Volume, si) {
		return broker.OrderResult{}, &broker.RejectError{Symbol: symbol, Code: RejectInvalidVolume, Comment: fmt.Sprintf("invalid volume %v", req.Volume)}
	}

	price := q.Ask
	if req.Side == broker.Sell {
		price = q.Bid
	}
	if req.Stop != 0 {
		if (req.Side == broker.Buy && req.Stop >= q.Bid) || (req.Side == broker.Sell && req.Stop <= q.Ask) {
			return broker.OrderResult{}, &broker.RejectError{Symbol: symbol, Code: RejectInvalidStops, Comment: "invalid stops"}
		}
	}

	v.ticket++
	p := broker.Position{
		Ticket:     v.ticket,
		Symbol:     symbol,
		Side:       req.Side,
		Volume:     req.Volume,
		Entry:      price,
		Stop:       req.Stop,
		TakeProfit: req.TakeProfit,
		OpenTime:   v.Now(),
		Magic:      req.Magic,
		Comment:    req.Comment,
	}
	v.positions[p.Ticket] = p
	if err := v.revalueLocked(); err != nil {
		return broker.OrderResult{}, err
	}
	return broker.OrderResult{Ticket: p.Ticket, Price: price, Volume: req.Volume, Comment: "done"}, nil
}

func validVolume(vol float64, si broker.SymbolInfo) bool {
	if vol < si.VolumeMin-1e-9 || (si.VolumeMax > 0 && vol > si.VolumeMax+1e-9) {
		return false
	}
	if si.VolumeStep <= 0 {
		return vol > 0
	}
	steps := vol / si.VolumeStep
	return abs(steps-float64(int64(steps+0.5))) < 1e-6
}

func (v *Venue) Cancel(ctx context.Context, ticket int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkLocked(); err != nil {
		return err
	}
	o, ok := v.orders[ticket]
	if !ok {
		return &broker.RejectError{Code: RejectNotFound, Comment: fmt.Sprintf("order %d not found", ticket)}
	}
	delete(v.orders, o.Ticket)
	return nil
}

func (v *Venue) UpdateStop(ctx context.Context, ticket int64, stop float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkLocked(); err != nil {
		return err
	}
	p, ok := v.positions[ticket]
	if !ok {
		return &broker.RejectError{Code: RejectNotFound, Comment: fmt.Sprintf("position %d not found", ticket)}
	}
	if q, err := v.quotes.Get(p.Symbol); err == nil {
		if (p.IsLong() && stop >= q.Bid) || (!p.IsLong() && stop <= q.Ask) {
			return &broker.RejectError{Symbol: p.Symbol, Code: RejectInvalidStops, Comment: "invalid stops"}
		}
	}
	p.Stop = stop
	v.positions[ticket] = p
	return nil
}

func (v *Venue) DealsSince(ctx context.Context, since time.Time) ([]broker.Deal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkLocked(); err != nil {
		return nil, err
	}
	var out []broker.Deal
	for _, d := range v.deals {
		if !d.Time.Before(since) {
			out = append(out, d)
		}
	}
	return out, nil
}

// AddDeal books a cash movement directly, e.g. swap or a fee.
func (v *Venue) AddDeal(d broker.Deal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if d.Time.IsZero() {
		d.Time = v.Now()
	}
	v.deals = append(v.deals, d)
	v.acct.Balance += d.Net()
	_ = v.revalueLocked()
}

func (v *Venue) closeLocked(p broker.Position, price float64, comment string) error {
	contract, rate, err := v.valuationLocked(p.Symbol)
	if err != nil {
		return err
	}
	d := broker.Deal{
		Ticket:     p.Ticket,
		Symbol:     p.Symbol,
		Time:       v.Now(),
		Profit:     unrealizedPL(p, price, contract, rate),
		Commission: -v.CommissionPerLot * p.Volume,
	}
	v.deals = append(v.deals, d)
	v.acct.Balance += d.Net()
	delete(v.positions, p.Ticket)
	return nil
}

func (v *Venue) revalueLocked() error {
	equity := v.acct.Balance
	var margin float64
	for _, p := range v.positions {
		q, err := v.quotes.Get(p.Symbol)
		if err != nil {
			return fmt.Errorf("revalue %s: %w", p.Symbol, err)
		}
		contract, rate, err := v.valuationLocked(p.Symbol)
		if err != nil {
			return err
		}
		equity += unrealizedPL(p, closingMark(p, q.Bid, q.Ask), contract, rate)
		margin += tradeMargin(p.Volume, contract, q.Mid(), rate, v.MarginRate)
	}
	v.acct.Equity = equity
	v.acct.Margin = margin
	v.acct.FreeMargin = equity - margin
	return nil
}

func (v *Venue) valuationLocked(symbol string) (contract, rate float64, err error) {
	si, err := v.symbolInfoLocked(symbol)
	if err != nil {
		return 0, 0, err
	}
	quoteCcy := v.acct.Currency
	if in, ok := v.cat.Lookup(symbol); ok {
		quoteCcy = in.QuoteCurrency
	}
	rate, err = market.QuoteToAccountRate(context.Background(), v.cat, quoteCcy, v.acct.Currency, v.quotes)
	if err != nil {
		return 0, 0, err
	}
	return si.ContractSize, rate, nil
}

func (v *Venue) sortedTicketsLocked() []int64 {
	ts := make([]int64, 0, len(v.positions))
	for t := range v.positions {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	return ts
}

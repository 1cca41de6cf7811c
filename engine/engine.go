// Package engine runs the trading cycle: a fast loop that trails stops and
// watches the news calendar, a slow loop that guards drawdown, exits and
// scans for entries, and the scheduled shield and maintenance tasks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/propbot/broker"
	"github.com/rustyeddy/propbot/earnings"
	"github.com/rustyeddy/propbot/exits"
	"github.com/rustyeddy/propbot/journal"
	"github.com/rustyeddy/propbot/market"
	"github.com/rustyeddy/propbot/metrics"
	"github.com/rustyeddy/propbot/news"
	"github.com/rustyeddy/propbot/notify"
	"github.com/rustyeddy/propbot/risk"
	"github.com/rustyeddy/propbot/signals"
	"github.com/rustyeddy/propbot/stops"
)

// NewsCurrencies are watched by the fast loop's global news flag.
var NewsCurrencies = []string{"USD", "EUR", "GBP", "JPY", "CAD", "AUD", "NZD", "CHF"}

const (
	killComment   = "EMERGENCY KILL"
	shieldComment = "Earnings Shield Exit"
	orderComment  = "propbot"
)

type Options struct {
	Venue   broker.Venue
	Bars    market.BarSource
	Catalog *market.Catalog
	Policy  risk.Policy
	Signals signals.Params

	News     news.Feed
	Earnings earnings.Store
	Fetcher  earnings.Fetcher

	Journal  journal.Journal
	Notifier *notify.Notifier
	Metrics  *metrics.Metrics
	Log      *slog.Logger

	AccountCurrency string
	Magic           int64
	TradeAllowed    bool
	Deviation       int

	FastInterval time.Duration // 60s
	SlowInterval time.Duration // 5m
	FeedTimeout  time.Duration // 15s

	// DayZone defines the trading day for the drawdown baseline.
	DayZone *time.Location
	// ShieldAt is the earnings shield time in ExchangeZone, which also
	// clocks the weekly maintenance.
	ShieldAt     risk.ClockTime
	ExchangeZone *time.Location

	ReconnectBackoff  time.Duration // first retry delay, 1s
	ReconnectAttempts int           // 5

	MetricsAddr string
	Now         func() time.Time
}

type Engine struct {
	o Options

	log     *slog.Logger
	journal journal.Journal
	gate    *risk.Gate
	signals *signals.Engine
	sizer   *risk.Sizer
	trailer *stops.Trailer
	exits   *exits.Evaluator

	block BlockFlag
}

func New(o Options) (*Engine, error) {
	switch {
	case o.Venue == nil:
		return nil, errors.New("engine: venue is required")
	case o.Bars == nil:
		return nil, errors.New("engine: bar source is required")
	case o.Catalog == nil:
		return nil, errors.New("engine: catalog is required")
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
	if o.Journal == nil {
		o.Journal = journal.Discard{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.DayZone == nil {
		o.DayZone = time.UTC
	}
	if o.ExchangeZone == nil {
		o.ExchangeZone = time.UTC
	}
	if o.FastInterval <= 0 {
		o.FastInterval = time.Minute
	}
	if o.SlowInterval <= 0 {
		o.SlowInterval = 5 * time.Minute
	}
	if o.FeedTimeout <= 0 {
		o.FeedTimeout = 15 * time.Second
	}
	if o.ReconnectBackoff <= 0 {
		o.ReconnectBackoff = time.Second
	}
	if o.ReconnectAttempts <= 0 {
		o.ReconnectAttempts = 5
	}
	if o.AccountCurrency == "" {
		o.AccountCurrency = "USD"
	}
	if o.Signals.History == 0 {
		o.Signals = signals.DefaultParams()
	}

	log := o.Log.With(slog.String("component", "engine"))
	return &Engine{
		o:       o,
		log:     log,
		journal: o.Journal,
		gate:    risk.NewGate(o.Policy),
		signals: &signals.Engine{Bars: o.Bars, Params: o.Signals},
		sizer: &risk.Sizer{
			Catalog:         o.Catalog,
			Quotes:          o.Venue,
			AccountCurrency: o.AccountCurrency,
		},
		trailer: &stops.Trailer{
			Venue:   o.Venue,
			Bars:    o.Bars,
			Catalog: o.Catalog,
			Log:     o.Log.With(slog.String("component", "trailer")),
		},
		exits: &exits.Evaluator{
			Venue:     o.Venue,
			Bars:      o.Bars,
			Log:       o.Log.With(slog.String("component", "exits")),
			Deviation: o.Deviation,
		},
	}, nil
}

// Block exposes the news flag the fast loop maintains.
func (e *Engine) Block() *BlockFlag { return &e.block }

func (e *Engine) now() time.Time { return e.o.Now() }

// startOfDay is midnight of now's trading day.
func (e *Engine) startOfDay(now time.Time) time.Time {
	y, m, d := now.In(e.o.DayZone).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.o.DayZone)
}

// record appends to the journal. A journal failure is logged, never fatal.
func (e *Engine) record(ent journal.Entry) {
	if ent.Timestamp.IsZero() {
		ent.Timestamp = e.now()
	}
	if err := e.journal.Append(ent); err != nil {
		e.log.Error("journal append failed", "symbol", ent.Symbol, "action", ent.Action, "err", err)
	}
}

func (e *Engine) notify(ctx context.Context, event, title, msg string) {
	if err := e.o.Notifier.Notify(ctx, event, title, msg); err != nil {
		e.log.Warn("notification failed", "event", event, "err", err)
	}
}

// ensureConnected checks the venue and, when the session is gone and the
// venue can reconnect, retries with exponential backoff.
func (e *Engine) ensureConnected(ctx context.Context) error {
	_, err := e.o.Venue.Account(ctx)
	if err == nil || !errors.Is(err, broker.ErrVenueUnavailable) {
		return err
	}
	c, ok := e.o.Venue.(broker.Connector)
	if !ok {
		return err
	}
	e.log.Warn("venue unavailable, reconnecting", "err", err)
	e.notify(ctx, notify.EventVenueDown, "Venue connection lost", err.Error())

	delay := e.o.ReconnectBackoff
	for attempt := 1; attempt <= e.o.ReconnectAttempts; attempt++ {
		cerr := c.Connect(ctx)
		if cerr == nil {
			e.log.Info("venue reconnected", "attempt", attempt)
			return nil
		}
		e.log.Warn("reconnect failed", "attempt", attempt, "retry_in", delay, "err", cerr)
		if attempt == e.o.ReconnectAttempts {
			break
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
	return fmt.Errorf("reconnect: %w", err)
}

// FastTick reconnects if needed, trails engine-owned stops and refreshes
// the news flag.
func (e *Engine) FastTick(ctx context.Context) error {
	defer e.o.Metrics.ObserveCycle("fast", time.Now())

	if err := e.ensureConnected(ctx); err != nil {
		return err
	}
	if err := e.trail(ctx); err != nil && errors.Is(err, broker.ErrVenueUnavailable) {
		return err
	}
	e.refreshNewsFlag(ctx)
	return nil
}

func (e *Engine) trail(ctx context.Context) error {
	positions, err := e.o.Venue.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("open positions: %w", err)
	}
	owned := broker.Owned(positions, e.o.Magic)
	e.o.Metrics.SetOpenPositions(len(owned))

	updates, err := e.trailer.Run(ctx, owned)
	for _, u := range updates {
		e.log.Debug("lifecycle", "symbol", u.Symbol, "ticket", u.Ticket, "stage", StageTrailingUpdated)
		e.record(journal.Entry{
			Symbol:  u.Symbol,
			Action:  journal.ActionTrail,
			Status:  StageTrailingUpdated.Status(),
			Stop:    u.New,
			Comment: fmt.Sprintf("ticket=%d old=%g atr=%g", u.Ticket, u.Old, u.ATR),
		})
	}
	return err
}

func (e *Engine) newsEvents(ctx context.Context) ([]news.Event, error) {
	if e.o.News == nil {
		return nil, errors.New("no news feed configured")
	}
	ctx, cancel := context.WithTimeout(ctx, e.o.FeedTimeout)
	defer cancel()
	return e.o.News.HighImpactEvents(ctx)
}

// refreshNewsFlag raises the block flag while any watched currency has a
// high-impact event within the buffer. A feed error clears it; the news
// guard then denies FOREX entries on its own.
func (e *Engine) refreshNewsFlag(ctx context.Context) {
	events, err := e.newsEvents(ctx)
	if err != nil {
		e.log.Warn("news feed unavailable", "err", err)
		if e.block.Set(false, "") {
			e.log.Info("news block lifted")
		}
		return
	}
	ev, blocked := news.Blocking(events, NewsCurrencies, e.now(), e.o.Policy.NewsBuffer)
	reason := ""
	if blocked {
		reason = fmt.Sprintf("%s %s at %s", ev.Currency, ev.Title, ev.Time.UTC().Format(time.RFC3339))
	}
	if e.block.Set(blocked, reason) {
		if blocked {
			e.log.Warn("news block raised", "reason", reason)
		} else {
			e.log.Info("news block lifted")
		}
	}
}

// SlowTick runs the drawdown check, the exit evaluator and, when the news
// flag is down, the entry scan.
func (e *Engine) SlowTick(ctx context.Context) error {
	defer e.o.Metrics.ObserveCycle("slow", time.Now())

	if err := e.ensureConnected(ctx); err != nil {
		return err
	}
	killed, err := e.checkDrawdown(ctx)
	if err != nil || killed {
		return err
	}
	if err := e.exit(ctx); err != nil && errors.Is(err, broker.ErrVenueUnavailable) {
		return err
	}
	if e.block.Blocked() {
		e.log.Info("entry scan skipped", "reason", e.block.Reason())
		return nil
	}
	return e.EntryScan(ctx)
}

// checkDrawdown fires the kill switch when the daily loss reaches the
// limit. It reports whether it did.
func (e *Engine) checkDrawdown(ctx context.Context) (bool, error) {
	acct, deals, err := e.accountState(ctx)
	if err != nil {
		return false, err
	}
	st := risk.MeasureDrawdown(acct, deals, e.o.Policy.MaxDrawdownPct)
	e.o.Metrics.SetDrawdown(st.Drawdown)
	if !st.Unsafe {
		return false, nil
	}
	reason := fmt.Sprintf("drawdown %.2f%% (start %.2f equity %.2f limit %.2f%%)",
		100*st.Drawdown, st.StartOfDay, st.Equity, 100*st.Limit)
	if st.StartOfDay <= 0 {
		reason = fmt.Sprintf("start-of-day balance %.2f", st.StartOfDay)
	}
	_, err = e.KillSwitch(ctx, reason)
	return true, err
}

func (e *Engine) accountState(ctx context.Context) (broker.Account, []broker.Deal, error) {
	acct, err := e.o.Venue.Account(ctx)
	if err != nil {
		return acct, nil, fmt.Errorf("account: %w", err)
	}
	deals, err := e.o.Venue.DealsSince(ctx, e.startOfDay(e.now()))
	if err != nil {
		return acct, nil, fmt.Errorf("deals: %w", err)
	}
	return acct, deals, nil
}

func (e *Engine) exit(ctx context.Context) error {
	positions, err := e.o.Venue.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("open positions: %w", err)
	}
	done, err := e.exits.Run(ctx, broker.Owned(positions, e.o.Magic))
	for _, x := range done {
		log := e.log.With("symbol", x.Position.Symbol, "ticket", x.Position.Ticket)
		stage := advance(log, StageOpen, StageExitSignaled)
		ent := journal.Entry{
			Symbol:  x.Position.Symbol,
			Action:  journal.ActionExit,
			Size:    x.Position.Volume,
			Stop:    x.Position.Stop,
			Comment: fmt.Sprintf("ticket=%d rsi=%.2f prev=%.2f", x.Position.Ticket, x.RSI, x.PrevRSI),
		}
		if x.Err != nil {
			ent.Status = journal.StatusError
			ent.Comment += " err=" + x.Err.Error()
		} else {
			ent.Status = advance(log, stage, StageClosed).Status()
			ent.Price = x.Result.Price
		}
		e.record(ent)
	}
	return err
}

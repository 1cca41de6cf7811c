package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rustyeddy/propbot/broker"
	"github.com/rustyeddy/propbot/earnings"
	"github.com/rustyeddy/propbot/journal"
	"github.com/rustyeddy/propbot/market"
	"github.com/rustyeddy/propbot/notify"
	"github.com/rustyeddy/propbot/risk"
)

type KillFailure struct {
	Ticket int64
	Symbol string
	Err    error
}

type KillReport struct {
	Reason    string
	Closed    []broker.Position
	Cancelled int
	Failed    []KillFailure
}

// KillSwitch closes every open position, manual ones included, and cancels
// every pending order. Each failure is logged, journaled and reported; the
// returned error joins them.
func (e *Engine) KillSwitch(ctx context.Context, reason string) (KillReport, error) {
	rep := KillReport{Reason: reason}
	e.o.Metrics.KillSwitchFired()
	e.log.Error("kill switch engaged", "critical", true, "reason", reason)

	positions, err := e.o.Venue.OpenPositions(ctx)
	if err != nil {
		e.notify(ctx, notify.EventKillFail, "Kill switch failed", err.Error())
		return rep, fmt.Errorf("kill switch: %w", err)
	}

	var errs []error
	fail := func(ticket int64, symbol string, err error) {
		rep.Failed = append(rep.Failed, KillFailure{Ticket: ticket, Symbol: symbol, Err: err})
		errs = append(errs, fmt.Errorf("%s #%d: %w", symbol, ticket, err))
		e.log.Error("kill switch close failed", "critical", true, "symbol", symbol, "ticket", ticket, "err", err)
		e.record(journal.Entry{Symbol: symbol, Action: journal.ActionKill, Status: journal.StatusKillFail,
			Comment: fmt.Sprintf("ticket=%d %v", ticket, err)})
	}

	for _, p := range positions {
		res, err := broker.Close(ctx, e.o.Venue, p, killComment, e.o.Deviation)
		if err != nil {
			fail(p.Ticket, p.Symbol, err)
			continue
		}
		rep.Closed = append(rep.Closed, p)
		e.record(journal.Entry{Symbol: p.Symbol, Action: journal.ActionKill, Status: journal.StatusClosed,
			Size: p.Volume, Price: res.Price, Stop: p.Stop, Comment: fmt.Sprintf("ticket=%d %s", p.Ticket, reason)})
	}

	orders, err := e.o.Venue.PendingOrders(ctx, "")
	if err != nil {
		fail(0, "*", err)
	}
	for _, o := range orders {
		if err := e.o.Venue.Cancel(ctx, o.Ticket); err != nil {
			fail(o.Ticket, o.Symbol, err)
			continue
		}
		rep.Cancelled++
	}

	if n := len(rep.Failed); n > 0 {
		e.o.Metrics.KillFailed(n)
		e.notify(ctx, notify.EventKillFail, "Kill switch incomplete",
			fmt.Sprintf("%d failures: %v", n, errors.Join(errs...)))
	}
	if len(rep.Closed) > 0 || rep.Cancelled > 0 || len(rep.Failed) > 0 {
		e.notify(ctx, notify.EventKillSwitch, "Kill switch engaged",
			fmt.Sprintf("%s\nclosed %d positions, cancelled %d orders, %d failures",
				reason, len(rep.Closed), rep.Cancelled, len(rep.Failed)))
	}
	e.log.Info("kill switch finished", "closed", len(rep.Closed), "cancelled", rep.Cancelled, "failed", len(rep.Failed))
	return rep, errors.Join(errs...)
}

// EarningsShield closes engine-owned STOCKS positions that report today or
// tomorrow in exchange time.
func (e *Engine) EarningsShield(ctx context.Context) error {
	if e.o.Earnings == nil {
		return nil
	}
	positions, err := e.o.Venue.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("earnings shield: %w", err)
	}
	now := e.now().In(e.o.ExchangeZone)

	var closed []string
	var errs []error
	for _, p := range broker.Owned(positions, e.o.Magic) {
		in, ok := e.o.Catalog.Lookup(p.Symbol)
		if !ok || in.Category != market.Stocks {
			continue
		}
		date, known, err := e.o.Earnings.NextReportDate(ctx, p.Symbol)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !known {
			continue
		}
		days := risk.DaysUntil(now, date)
		if days < 0 || days > 1 {
			continue
		}
		if err := broker.CancelPending(ctx, e.o.Venue, p.Symbol); err != nil {
			e.log.Warn("cancel pending failed", "symbol", p.Symbol, "err", err)
		}
		res, err := broker.Close(ctx, e.o.Venue, p, shieldComment, e.o.Deviation)
		if err != nil {
			e.log.Error("earnings shield close failed", "symbol", p.Symbol, "ticket", p.Ticket, "err", err)
			e.record(journal.Entry{Symbol: p.Symbol, Action: journal.ActionExit, Status: journal.StatusError,
				Size: p.Volume, Comment: fmt.Sprintf("%s: %v", shieldComment, err)})
			errs = append(errs, err)
			continue
		}
		e.log.Info("earnings shield exit", "symbol", p.Symbol, "ticket", p.Ticket, "report", date.Format(earnings.DateLayout))
		e.record(journal.Entry{Symbol: p.Symbol, Action: journal.ActionExit, Status: journal.StatusClosed,
			Size: p.Volume, Price: res.Price, Stop: p.Stop,
			Comment: fmt.Sprintf("%s report=%s", shieldComment, date.Format(earnings.DateLayout))})
		closed = append(closed, p.Symbol)
	}
	if len(closed) > 0 {
		e.notify(ctx, notify.EventEarnings, "Earnings shield", "closed "+strings.Join(closed, ", "))
	}
	if len(errs) > 0 {
		return fmt.Errorf("earnings shield: %w", errors.Join(errs...))
	}
	return nil
}

// WeeklyMaintenance refreshes the earnings cache for the catalog's stocks.
func (e *Engine) WeeklyMaintenance(ctx context.Context) error {
	if e.o.Fetcher == nil || e.o.Earnings == nil {
		e.log.Debug("earnings refresh not configured")
		return nil
	}
	var watch []string
	for _, sym := range e.o.Catalog.Symbols() {
		if in, _ := e.o.Catalog.Lookup(sym); in.Category == market.Stocks {
			watch = append(watch, sym)
		}
	}
	n, err := earnings.Refresh(ctx, e.o.Fetcher, e.o.Earnings, watch)
	if err != nil {
		e.log.Error("weekly maintenance failed", "err", err)
		e.notify(ctx, notify.EventMaint, "Earnings refresh failed", err.Error())
		return err
	}
	e.log.Info("earnings calendar refreshed", "symbols", n, "watchlist", len(watch))
	return nil
}

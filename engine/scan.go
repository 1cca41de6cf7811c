package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rustyeddy/propbot/broker"
	"github.com/rustyeddy/propbot/earnings"
	"github.com/rustyeddy/propbot/journal"
	"github.com/rustyeddy/propbot/market"
	"github.com/rustyeddy/propbot/pkg/id"
	"github.com/rustyeddy/propbot/risk"
	"github.com/rustyeddy/propbot/signals"
)

// EntryScan evaluates the watchlist and submits the best candidates into
// the free slots. Instruments fail independently; only a venue outage
// aborts the scan.
func (e *Engine) EntryScan(ctx context.Context) error {
	now := e.now()
	acct, deals, err := e.accountState(ctx)
	if err != nil {
		return err
	}
	base := risk.Snapshot{Now: now, Account: acct, TodayDeals: deals}
	if d := e.gate.Account.Check(&base); !d.Allowed {
		e.o.Metrics.Denied(d.Codes()...)
		e.log.Info("entry scan denied", "reason", d.String())
		return nil
	}

	positions, err := e.o.Venue.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("open positions: %w", err)
	}
	owned := broker.Owned(positions, e.o.Magic)
	slots := e.o.Policy.MaxPositions - len(owned)
	if slots <= 0 {
		e.log.Debug("no free slots", "owned", len(owned), "max", e.o.Policy.MaxPositions)
		return nil
	}
	held := make(map[string]bool, len(positions))
	for _, p := range positions {
		held[strings.ToUpper(p.Symbol)] = true
	}

	events, newsErr := e.newsEvents(ctx)
	var cands []signals.Candidate
	for _, sym := range e.o.Catalog.Symbols() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if held[sym] {
			continue
		}
		in, _ := e.o.Catalog.Lookup(sym)

		snap := base
		snap.Instrument = in
		snap.News, snap.NewsErr = events, newsErr
		if in.Category == market.Stocks && e.o.Policy.Enabled[in.Category] {
			snap.EarningsDate, snap.EarningsKnown, snap.EarningsErr = e.reportDate(ctx, sym)
		}
		if d := e.gate.Instrument.Check(&snap); !d.Allowed {
			e.o.Metrics.Denied(d.Codes()...)
			e.log.Debug("instrument denied", "symbol", sym, "reason", d.String())
			continue
		}

		c, ok, err := e.signals.Evaluate(ctx, in)
		if err != nil {
			if errors.Is(err, broker.ErrVenueUnavailable) {
				return err
			}
			e.log.Debug("instrument skipped", "symbol", sym, "err", err)
			continue
		}
		if ok {
			cands = append(cands, c)
		}
	}

	picks := signals.Rank(cands, slots)
	e.log.Info("entry scan", "candidates", len(cands), "slots", slots, "picked", len(picks))
	for _, c := range picks {
		if err := e.execute(ctx, acct, c); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) reportDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	if e.o.Earnings == nil {
		return time.Time{}, false, earnings.ErrUnavailable
	}
	return e.o.Earnings.NextReportDate(ctx, symbol)
}

func advance(log *slog.Logger, from, to Stage) Stage {
	if !from.CanTransition(to) {
		log.Error("invalid lifecycle transition", "from", from, "to", to)
	} else {
		log.Debug("lifecycle", "from", from, "to", to)
	}
	return to
}

// execute carries one candidate from proposal to the venue. It returns an
// error only when the venue is unreachable.
func (e *Engine) execute(ctx context.Context, acct broker.Account, c signals.Candidate) error {
	sym := c.Symbol()
	log := e.log.With("symbol", sym, "side", c.Side, "score", c.Score)
	stage := StageProposed

	// exposure is rebuilt from the venue before every pick
	positions, err := e.o.Venue.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("open positions: %w", err)
	}
	exposure := risk.CurrencyExposure(e.o.Catalog, sym, positions)
	mod, d := risk.ApplyCorrelation(e.o.Policy, c.Instrument, exposure)
	if !d.Allowed {
		e.o.Metrics.Denied(d.Codes()...)
		log.Info("candidate blocked", "reason", d.String())
		e.record(journal.Entry{Symbol: sym, Action: journal.ActionSkip, Status: journal.StatusBlocked,
			Price: c.Entry, Stop: c.Stop, Comment: d.String()})
		return nil
	}

	info, err := e.o.Venue.SymbolInfo(ctx, sym)
	if err != nil {
		if errors.Is(err, broker.ErrVenueUnavailable) {
			return err
		}
		log.Warn("symbol info unavailable", "err", err)
		e.record(journal.Entry{Symbol: sym, Action: journal.ActionSkip, Status: journal.StatusError, Comment: err.Error()})
		return nil
	}
	q, qerr := e.o.Venue.Quote(ctx, sym)
	if errors.Is(qerr, broker.ErrVenueUnavailable) {
		return qerr
	}
	snap := risk.Snapshot{Now: e.now(), Account: acct, Instrument: c.Instrument, Quote: q, QuoteErr: qerr, Info: info}
	if d := e.gate.Execution.Check(&snap); !d.Allowed {
		e.o.Metrics.Denied(d.Codes()...)
		log.Info("candidate blocked", "reason", d.String())
		ent := journal.Entry{Symbol: sym, Action: journal.ActionSkip, Status: journal.StatusBlocked,
			Price: c.Entry, Stop: c.Stop, Comment: d.String()}
		if qerr == nil && info.Digits > 0 {
			ent.SpreadPips = q.SpreadPips(info.Digits)
		}
		e.record(ent)
		return nil
	}
	stage = advance(log, stage, StageRiskChecked)

	entry := q.Ask
	action := journal.ActionBuy
	if c.Side == broker.Sell {
		entry, action = q.Bid, journal.ActionSell
	}
	spread := q.SpreadPips(info.Digits)
	if (c.Side == broker.Buy && c.Stop >= entry) || (c.Side == broker.Sell && c.Stop <= entry) {
		advance(log, stage, StageRejected)
		log.Warn("stop on the wrong side of the live price", "entry", entry, "stop", c.Stop)
		e.record(journal.Entry{Symbol: sym, Action: journal.ActionSkip, Status: StageRejected.Status(),
			Price: entry, Stop: c.Stop, SpreadPips: spread,
			Comment: fmt.Sprintf("%s stop %.5f beyond live %.5f", c.Side, c.Stop, entry)})
		return nil
	}

	size, err := e.sizer.Size(ctx, risk.SizeRequest{
		Instrument: c.Instrument,
		Info:       info,
		Equity:     acct.Equity,
		RiskPct:    e.o.Policy.RiskPct,
		Modifier:   mod * riskModifier(c),
		Entry:      entry,
		Stop:       c.Stop,
	})
	if err != nil {
		if errors.Is(err, broker.ErrVenueUnavailable) {
			return err
		}
		advance(log, stage, StageRejected)
		log.Warn("sizing failed", "err", err)
		e.record(journal.Entry{Symbol: sym, Action: journal.ActionSkip, Status: StageRejected.Status(),
			Price: entry, Stop: c.Stop, SpreadPips: spread, Comment: err.Error()})
		return nil
	}
	stage = advance(log, stage, StageSized)
	log = log.With("volume", size.Volume, "risk_cash", size.RiskCash, "planned_risk", size.PlannedRisk)

	if !e.o.TradeAllowed {
		log.Info("signal only, not submitted")
		e.record(journal.Entry{Symbol: sym, Action: journal.ActionSignal, Status: journal.StatusProposed,
			Size: size.Volume, Price: entry, Stop: c.Stop, SpreadPips: spread,
			Comment: fmt.Sprintf("%s score=%.1f", c.Side, c.Score)})
		return nil
	}

	req := broker.OrderRequest{
		ClientID:  id.ClientOrderID("pb", 32),
		Symbol:    sym,
		Side:      c.Side,
		Volume:    size.Volume,
		Price:     entry,
		Stop:      c.Stop,
		Magic:     e.o.Magic,
		Comment:   orderComment,
		Filling:   broker.SelectFilling(info.FillingModes),
		Deviation: e.o.Deviation,
	}
	stage = advance(log, stage, StageSubmitted)
	res, err := e.o.Venue.Submit(ctx, req)
	if err != nil {
		advance(log, stage, StageRejected)
		e.o.Metrics.Order(string(action), "rejected")
		log.Warn("order rejected", "client_id", req.ClientID, "err", err)
		e.record(journal.Entry{Symbol: sym, Action: action, Status: StageRejected.Status(),
			Size: size.Volume, Price: entry, Stop: c.Stop, SpreadPips: spread, Comment: err.Error()})
		if errors.Is(err, broker.ErrVenueUnavailable) {
			return err
		}
		return nil
	}
	advance(log, stage, StageOpen)
	e.o.Metrics.Order(string(action), "filled")
	log.Info("order filled", "ticket", res.Ticket, "price", res.Price, "client_id", req.ClientID)
	e.record(journal.Entry{Symbol: sym, Action: action, Status: StageOpen.Status(),
		Size: res.Volume, Price: res.Price, Stop: c.Stop, SpreadPips: spread,
		Comment: fmt.Sprintf("ticket=%d score=%.1f", res.Ticket, c.Score)})
	return nil
}

func riskModifier(c signals.Candidate) float64 {
	if c.RiskModifier <= 0 {
		return 1
	}
	return c.RiskModifier
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/propbot/broker"
	"github.com/rustyeddy/propbot/risk"
)

// Mode selects what a single invocation does.
type Mode string

const (
	ModeEntry Mode = "entry"
	ModeExit  Mode = "exit"
	ModeTrail Mode = "trail"
	ModeServe Mode = "serve"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeEntry, ModeExit, ModeTrail, ModeServe:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q (entry|exit|trail|serve)", s)
}

// RunOnce performs one pass of mode. ModeServe runs until ctx is done.
func (e *Engine) RunOnce(ctx context.Context, mode Mode) error {
	switch mode {
	case ModeServe:
		return e.Run(ctx)
	case ModeTrail:
		if err := e.ensureConnected(ctx); err != nil {
			return err
		}
		return e.trail(ctx)
	case ModeExit:
		if err := e.ensureConnected(ctx); err != nil {
			return err
		}
		return e.exit(ctx)
	case ModeEntry:
		if err := e.ensureConnected(ctx); err != nil {
			return err
		}
		if killed, err := e.checkDrawdown(ctx); err != nil || killed {
			return err
		}
		if err := e.exit(ctx); err != nil && errors.Is(err, broker.ErrVenueUnavailable) {
			return err
		}
		e.refreshNewsFlag(ctx)
		if e.block.Blocked() {
			e.log.Info("entry scan skipped", "reason", e.block.Reason())
			return nil
		}
		return e.EntryScan(ctx)
	}
	return fmt.Errorf("unknown mode %q", mode)
}

// Run supervises both loops, the scheduled tasks and the metrics endpoint
// until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine starting",
		"fast", e.o.FastInterval, "slow", e.o.SlowInterval,
		"trade_allowed", e.o.TradeAllowed, "instruments", e.o.Catalog.Len())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.every(ctx, "fast", e.o.FastInterval, e.FastTick) })
	g.Go(func() error { return e.every(ctx, "slow", e.o.SlowInterval, e.SlowTick) })
	g.Go(func() error {
		return e.runAt(ctx, "earnings_shield", e.nextShield, e.EarningsShield)
	})
	g.Go(func() error {
		return e.runAt(ctx, "maintenance", e.nextMaintenance, e.WeeklyMaintenance)
	})
	if e.o.MetricsAddr != "" && e.o.Metrics != nil {
		g.Go(func() error { return e.o.Metrics.Serve(ctx, e.o.MetricsAddr) })
	}

	err := g.Wait()
	e.log.Info("engine stopped", "err", err)
	return err
}

// every runs task now and then on each tick. Task errors are logged; the
// loop keeps going.
func (e *Engine) every(ctx context.Context, name string, d time.Duration, task func(context.Context) error) error {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		if err := task(ctx); err != nil && ctx.Err() == nil {
			e.log.Error("loop cycle failed", "loop", name, "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// runAt sleeps until next(now) and runs task, forever.
func (e *Engine) runAt(ctx context.Context, name string, next func(time.Time) time.Time, task func(context.Context) error) error {
	for {
		at := next(e.now())
		e.log.Debug("task scheduled", "task", name, "at", at)
		t := time.NewTimer(at.Sub(e.now()))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		if err := task(ctx); err != nil && ctx.Err() == nil {
			e.log.Error("scheduled task failed", "task", name, "err", err)
		}
	}
}

// nextDaily is the first instant strictly after now at wall-clock at in loc.
func nextDaily(now time.Time, at risk.ClockTime, loc *time.Location) time.Time {
	local := now.In(loc)
	y, m, d := local.Date()
	t := time.Date(y, m, d, at.Hour, at.Minute, 0, 0, loc)
	if !t.After(local) {
		t = time.Date(y, m, d+1, at.Hour, at.Minute, 0, 0, loc)
	}
	return t
}

// nextWeekly is the first instant strictly after now on day at at in loc.
func (e *Engine) nextShield(now time.Time) time.Time {
	return nextDaily(now, e.o.ShieldAt, e.o.ExchangeZone)
}

// nextMaintenance is Monday midnight on the exchange clock.
func (e *Engine) nextMaintenance(now time.Time) time.Time {
	return nextWeekly(now, time.Monday, risk.ClockTime{}, e.o.ExchangeZone)
}

func nextWeekly(now time.Time, day time.Weekday, at risk.ClockTime, loc *time.Location) time.Time {
	local := now.In(loc)
	y, m, d := local.Date()
	ahead := (int(day) - int(local.Weekday()) + 7) % 7
	t := time.Date(y, m, d+ahead, at.Hour, at.Minute, 0, 0, loc)
	if !t.After(local) {
		t = time.Date(y, m, d+ahead+7, at.Hour, at.Minute, 0, 0, loc)
	}
	return t
}

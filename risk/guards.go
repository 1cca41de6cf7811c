package risk

import (
	"fmt"
	"time"

	"github.com/rustyeddy/propbot/broker"
	"github.com/rustyeddy/propbot/market"
	"github.com/rustyeddy/propbot/news"
)

// Snapshot is everything the guards may look at. The orchestrator fills
// the fields a stage needs before running it; guards never fetch.
type Snapshot struct {
	Now time.Time

	Account    broker.Account
	TodayDeals []broker.Deal

	Instrument market.Instrument
	News       []news.Event
	NewsErr    error

	EarningsDate  time.Time
	EarningsKnown bool
	EarningsErr   error

	Quote    market.Quote
	QuoteErr error
	Info     broker.SymbolInfo
}

// Guard is a pure allow/deny predicate. Guards never panic and never
// return errors; missing data is a deny unless stated otherwise.
type Guard interface {
	Name() string
	Check(s *Snapshot) Decision
}

// Stage runs its guards in order and collects every violation.
type Stage []Guard

func (st Stage) Check(s *Snapshot) Decision {
	d := Allow()
	for _, g := range st {
		d.Merge(g.Check(s))
	}
	return d
}

// Gate groups guards by when their inputs become available.
type Gate struct {
	Account    Stage // once per cycle
	Instrument Stage // per instrument, before signal evaluation
	Execution  Stage // per order, just before submission
}

func NewGate(p Policy) *Gate {
	return &Gate{
		Account: Stage{
			DrawdownGuard{Limit: p.MaxDrawdownPct},
			RolloverGuard{Window: p.Rollover},
		},
		Instrument: Stage{
			CategoryGuard{Enabled: p.Enabled},
			NewsGuard{Buffer: p.NewsBuffer},
			EarningsGuard{EmbargoDays: p.EarningsEmbargoDays},
		},
		Execution: Stage{
			SpreadGuard{MaxPips: p.MaxSpreadPips},
		},
	}
}

type DrawdownGuard struct {
	Limit float64
}

func (DrawdownGuard) Name() string { return "drawdown" }

func (g DrawdownGuard) Check(s *Snapshot) Decision {
	st := MeasureDrawdown(s.Account, s.TodayDeals, g.Limit)
	switch {
	case st.StartOfDay <= 0:
		return Deny(CodeNoStartBalance, fmt.Sprintf("start-of-day balance %.2f", st.StartOfDay))
	case st.Unsafe:
		return Deny(CodeDrawdownLimit, fmt.Sprintf("drawdown %.2f%% >= limit %.2f%%", 100*st.Drawdown, 100*g.Limit))
	}
	return Allow()
}

type RolloverGuard struct {
	Window Window
}

func (RolloverGuard) Name() string { return "rollover" }

func (g RolloverGuard) Check(s *Snapshot) Decision {
	if g.Window.Contains(s.Now) {
		return Deny(CodeRollover, fmt.Sprintf("inside rollover window %s-%s", g.Window.Start, g.Window.End))
	}
	return Allow()
}

type CategoryGuard struct {
	Enabled map[market.Category]bool
}

func (CategoryGuard) Name() string { return "category" }

func (g CategoryGuard) Check(s *Snapshot) Decision {
	if !g.Enabled[s.Instrument.Category] {
		return Deny(CodeCategoryDisabled, fmt.Sprintf("%s trading disabled", s.Instrument.Category))
	}
	return Allow()
}

// NewsGuard applies to FOREX instruments only. A feed error denies.
type NewsGuard struct {
	Buffer time.Duration
}

func (NewsGuard) Name() string { return "news" }

func (g NewsGuard) Check(s *Snapshot) Decision {
	if s.Instrument.Category != market.Forex {
		return Allow()
	}
	if s.NewsErr != nil {
		return Deny(CodeNewsUnavailable, s.NewsErr.Error())
	}
	if ev, ok := news.Blocking(s.News, s.Instrument.Currencies(), s.Now, g.Buffer); ok {
		return Deny(CodeNewsEmbargo, fmt.Sprintf("%s %s at %s", ev.Currency, ev.Title, ev.Time.UTC().Format(time.RFC3339)))
	}
	return Allow()
}

// EarningsGuard applies to STOCKS only. An unknown report date allows; an
// unavailable calendar denies.
type EarningsGuard struct {
	EmbargoDays int
}

func (EarningsGuard) Name() string { return "earnings" }

func (g EarningsGuard) Check(s *Snapshot) Decision {
	if s.Instrument.Category != market.Stocks {
		return Allow()
	}
	if s.EarningsErr != nil {
		return Deny(CodeEarningsUnavailable, s.EarningsErr.Error())
	}
	if !s.EarningsKnown {
		return Allow()
	}
	days := DaysUntil(s.Now, s.EarningsDate)
	if days >= 0 && days <= g.EmbargoDays {
		return Deny(CodeEarningsEmbargo, fmt.Sprintf("earnings in %d days (%s)", days, s.EarningsDate.Format("2006-01-02")))
	}
	return Allow()
}

// DaysUntil counts calendar days from now's date to date's date. Report
// dates are bare dates, so each side keeps its own Y/M/D.
func DaysUntil(now, date time.Time) int {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	y, m, d = date.Date()
	then := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(then.Sub(today) / (24 * time.Hour))
}

type SpreadGuard struct {
	MaxPips float64
}

func (SpreadGuard) Name() string { return "spread" }

func (g SpreadGuard) Check(s *Snapshot) Decision {
	if s.QuoteErr != nil {
		return Deny(CodeNoQuote, s.QuoteErr.Error())
	}
	if s.Quote.Bid <= 0 || s.Quote.Ask <= 0 || s.Info.Digits <= 0 {
		return Deny(CodeNoQuote, "quote or digits missing")
	}
	pips := s.Quote.SpreadPips(s.Info.Digits)
	if pips > g.MaxPips {
		return Deny(CodeSpreadTooWide, fmt.Sprintf("spread %.1f pips > max %.1f", pips, g.MaxPips))
	}
	return Allow()
}

package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/propbot/market"
)

// CorrelationMode decides what happens to a FOREX candidate whose
// currencies are already at the exposure limit.
type CorrelationMode string

const (
	// Block rejects the candidate.
	Block CorrelationMode = "BLOCK"
	// Reduce accepts it with a smaller risk fraction.
	Reduce CorrelationMode = "REDUCE"
)

func ParseCorrelationMode(s string) (CorrelationMode, error) {
	switch m := CorrelationMode(strings.ToUpper(strings.TrimSpace(s))); m {
	case Block, Reduce:
		return m, nil
	}
	return "", fmt.Errorf("unknown correlation mode %q", s)
}

// Policy holds every risk threshold the gate, the exposure tracker and the
// sizer consult.
type Policy struct {
	RiskPct      float64 // 0.005
	MaxPositions int     // 3

	MaxDrawdownPct float64 // 0.04
	MaxSpreadPips  float64 // 3.5

	MaxCurrencyExposure int
	CorrelationMode     CorrelationMode
	CorrelationModifier float64 // 0.5

	NewsBuffer          time.Duration
	EarningsEmbargoDays int

	Rollover Window

	Enabled map[market.Category]bool
}

// DefaultPolicy mirrors the production account's settings.
func DefaultPolicy() Policy {
	return Policy{
		RiskPct:             0.005,
		MaxPositions:        3,
		MaxDrawdownPct:      0.04,
		MaxSpreadPips:       3.5,
		MaxCurrencyExposure: 2,
		CorrelationMode:     Block,
		CorrelationModifier: 0.5,
		NewsBuffer:          5 * time.Minute,
		EarningsEmbargoDays: 14,
		Rollover: Window{
			Start:    ClockTime{Hour: 16, Minute: 50},
			End:      ClockTime{Hour: 17, Minute: 10},
			Location: time.UTC,
		},
		Enabled: map[market.Category]bool{
			market.Forex:   true,
			market.Metals:  true,
			market.Stocks:  true,
			market.Indices: true,
			market.Crypto:  false,
		},
	}
}

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return ClockTime{}, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) minutes() int { return c.Hour*60 + c.Minute }

// Window is a daily time-of-day interval in a fixed zone. End is
// inclusive. A window whose end precedes its start wraps midnight.
type Window struct {
	Start    ClockTime
	End      ClockTime
	Location *time.Location
}

func (w Window) Contains(t time.Time) bool {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	m := lt.Hour()*60 + lt.Minute()
	s, e := w.Start.minutes(), w.End.minutes()
	if s <= e {
		return m >= s && m <= e
	}
	return m >= s || m <= e
}

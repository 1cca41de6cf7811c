package risk

import (
	"math"

	"github.com/rustyeddy/propbot/broker"
)

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// PlannedRisk is the account-currency loss if the stop is hit.
func PlannedRisk(volume, contractSize, entry, stop, quoteToAccountRate float64) float64 {
	return volume * abs(entry-stop) * contractSize * quoteToAccountRate
}

func RiskPct(plannedRisk, equity float64) float64 {
	if equity <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / equity
}

// StartOfDayBalance backs today's realized results out of the current
// balance.
func StartOfDayBalance(balance float64, today []broker.Deal) float64 {
	realized := 0.0
	for _, d := range today {
		realized += d.Net()
	}
	return balance - realized
}

// DrawdownState is the daily loss measured against the start-of-day
// balance.
type DrawdownState struct {
	StartOfDay float64
	Equity     float64
	Drawdown   float64
	Limit      float64
	Unsafe     bool
}

// MeasureDrawdown is pure; repeated calls with the same inputs agree.
func MeasureDrawdown(acct broker.Account, today []broker.Deal, limit float64) DrawdownState {
	st := DrawdownState{
		StartOfDay: StartOfDayBalance(acct.Balance, today),
		Equity:     acct.Equity,
		Limit:      limit,
	}
	if st.StartOfDay <= 0 {
		st.Unsafe = true
		return st
	}
	st.Drawdown = (st.StartOfDay - st.Equity) / st.StartOfDay
	st.Unsafe = st.Drawdown >= limit
	return st
}

package risk

import "strings"

// Violation codes are stable identifiers written to the journal and to
// metrics labels.
const (
	CodeDrawdownLimit       = "DRAWDOWN_LIMIT"
	CodeNoStartBalance      = "NO_START_BALANCE"
	CodeRollover            = "ROLLOVER_BLACKOUT"
	CodeCategoryDisabled    = "CATEGORY_DISABLED"
	CodeNewsEmbargo         = "NEWS_EMBARGO"
	CodeNewsUnavailable     = "NEWS_UNAVAILABLE"
	CodeEarningsEmbargo     = "EARNINGS_EMBARGO"
	CodeEarningsUnavailable = "EARNINGS_UNAVAILABLE"
	CodeSpreadTooWide       = "SPREAD_TOO_WIDE"
	CodeNoQuote             = "NO_QUOTE"
	CodeCurrencyExposure    = "CURRENCY_EXPOSURE"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation
}

// Allow is the zero-violation decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a decision with a single violation.
func Deny(code, msg string) Decision {
	d := Allow()
	d.add(code, msg)
	return d
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Merge folds other into d.
func (d *Decision) Merge(other Decision) {
	for _, v := range other.Violations {
		d.add(v.Code, v.Msg)
	}
	if !other.Allowed && len(other.Violations) == 0 {
		d.Allowed = false
	}
}

// Has reports whether the decision carries the given violation code.
func (d Decision) Has(code string) bool {
	for _, v := range d.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// Codes returns the violation codes in order.
func (d Decision) Codes() []string {
	out := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		out[i] = v.Code
	}
	return out
}

func (d Decision) String() string {
	if d.Allowed {
		return "allowed"
	}
	parts := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		parts[i] = v.Code + ": " + v.Msg
	}
	return strings.Join(parts, "; ")
}

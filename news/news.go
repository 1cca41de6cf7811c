// Package news supplies the high-impact macro events that embargo FOREX
// entries.
package news

import (
	"context"
	"strings"
	"time"
)

// Feed returns the upcoming high-impact events.
type Feed interface {
	HighImpactEvents(ctx context.Context) ([]Event, error)
}

type Event struct {
	Currency string
	Title    string
	Time     time.Time
	Impact   string
}

// Blocking returns the first event for one of currencies that falls within
// buffer of now, in either direction.
func Blocking(events []Event, currencies []string, now time.Time, buffer time.Duration) (Event, bool) {
	for _, ev := range events {
		if !matches(ev.Currency, currencies) {
			continue
		}
		d := ev.Time.Sub(now)
		if d < 0 {
			d = -d
		}
		if d <= buffer {
			return ev, true
		}
	}
	return Event{}, false
}

func matches(ccy string, currencies []string) bool {
	for _, c := range currencies {
		if strings.EqualFold(c, ccy) {
			return true
		}
	}
	return false
}

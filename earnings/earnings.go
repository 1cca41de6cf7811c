// Package earnings answers "when does this stock next report?" from a cache
// refreshed weekly.
package earnings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the cache and upstream date format.
const DateLayout = "2006-01-02"

// ErrUnavailable means the calendar itself could not be read. The entry
// guard denies on it.
var ErrUnavailable = errors.New("earnings calendar unavailable")

// Calendar returns the next report date. ok is false when the symbol is not
// in the calendar; that is not an error.
type Calendar interface {
	NextReportDate(ctx context.Context, symbol string) (date time.Time, ok bool, err error)
}

// Store is a Calendar that can be replaced wholesale by a refresh.
type Store interface {
	Calendar
	Replace(ctx context.Context, dates map[string]time.Time) error
	All(ctx context.Context) (map[string]time.Time, error)
}

// Fetcher pulls upcoming report dates from an upstream provider.
type Fetcher interface {
	Fetch(ctx context.Context) (map[string]time.Time, error)
}

// Refresh fetches, keeps only the watchlist and replaces the store. An
// empty upstream result is an error so a bad fetch never wipes the cache.
func Refresh(ctx context.Context, f Fetcher, s Store, watchlist []string) (int, error) {
	all, err := f.Fetch(ctx)
	if err != nil {
		return 0, fmt.Errorf("earnings refresh: %w", err)
	}
	if len(all) == 0 {
		return 0, errors.New("earnings refresh: upstream returned no rows")
	}
	keep := Filter(all, watchlist)
	if err := s.Replace(ctx, keep); err != nil {
		return 0, fmt.Errorf("earnings refresh: %w", err)
	}
	return len(keep), nil
}

// Filter returns the entries whose symbol is in watchlist.
func Filter(dates map[string]time.Time, watchlist []string) map[string]time.Time {
	out := make(map[string]time.Time)
	for _, s := range watchlist {
		if d, ok := dates[strings.ToUpper(s)]; ok {
			out[strings.ToUpper(s)] = d
		}
	}
	return out
}

// Imminent lists the symbols reporting within [0, days] days of now,
// sorted.
func Imminent(dates map[string]time.Time, now time.Time, days int) []string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var out []string
	for sym, d := range dates {
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		n := int(day.Sub(today).Hours() / 24)
		if n >= 0 && n <= days {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

func encode(dates map[string]time.Time) map[string]string {
	out := make(map[string]string, len(dates))
	for k, v := range dates {
		out[strings.ToUpper(k)] = v.Format(DateLayout)
	}
	return out
}

func decode(raw map[string]string) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(raw))
	for k, v := range raw {
		d, err := parseDate(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[strings.ToUpper(k)] = d
	}
	return out, nil
}

package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultFFURL is the public weekly calendar export.
const DefaultFFURL = "https://nfs.faireconomy.media/ff_calendar_thisweek.xml"

// FFClient reads a Forex-Factory-style weekly calendar and keeps only the
// high-impact events. Event times are published in UTC.
type FFClient struct {
	URL  string
	HTTP *http.Client
	Log  *slog.Logger
}

type ffCalendar struct {
	Events []ffEvent `xml:"event"`
}

type ffEvent struct {
	Title   string `xml:"title"`
	Country string `xml:"country"`
	Date    string `xml:"date"`
	Time    string `xml:"time"`
	Impact  string `xml:"impact"`
}

func (c *FFClient) HighImpactEvents(ctx context.Context) ([]Event, error) {
	url := c.URL
	if url == "" {
		url = DefaultFFURL
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news feed: status %s", resp.Status)
	}
	return ParseFF(resp.Body, c.Log)
}

// ParseFF decodes the calendar XML. Events without a clock time ("All Day",
// "Tentative") cannot be embargoed around and are dropped.
func ParseFF(r io.Reader, log *slog.Logger) ([]Event, error) {
	var cal ffCalendar
	dec := xml.NewDecoder(r)
	// The export declares windows-1252; its content is ASCII.
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }
	if err := dec.Decode(&cal); err != nil {
		return nil, fmt.Errorf("news feed: decode: %w", err)
	}

	var out []Event
	for _, e := range cal.Events {
		if !strings.EqualFold(strings.TrimSpace(e.Impact), "high") {
			continue
		}
		at, err := parseFFTime(e.Date, e.Time)
		if err != nil {
			if log != nil {
				log.Debug("news event without usable time", "title", e.Title, "date", e.Date, "time", e.Time)
			}
			continue
		}
		out = append(out, Event{
			Currency: strings.ToUpper(strings.TrimSpace(e.Country)),
			Title:    strings.TrimSpace(e.Title),
			Time:     at,
			Impact:   "High",
		})
	}
	return out, nil
}

func parseFFTime(date, clock string) (time.Time, error) {
	return time.ParseInLocation("01-02-2006 3:04pm",
		strings.TrimSpace(date)+" "+strings.ToLower(strings.TrimSpace(clock)), time.UTC)
}

// Cached serves the last successful fetch for TTL. A failed refresh after
// the TTL is returned as an error so the embargo stays conservative.
type Cached struct {
	Feed Feed
	TTL  time.Duration
	Now  func() time.Time

	mu      sync.Mutex
	events  []Event
	fetched time.Time
}

func (c *Cached) HighImpactEvents(ctx context.Context) ([]Event, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fetched.IsZero() && now().Sub(c.fetched) < c.TTL {
		return c.events, nil
	}
	ev, err := c.Feed.HighImpactEvents(ctx)
	if err != nil {
		return nil, err
	}
	c.events, c.fetched = ev, now()
	return ev, nil
}

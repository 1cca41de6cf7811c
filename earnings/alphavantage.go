package earnings

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AlphaVantage fetches the EARNINGS_CALENDAR CSV export.
type AlphaVantage struct {
	URL     string // default https://www.alphavantage.co/query
	APIKey  string
	Horizon string // 3month, 6month or 12month
	HTTP    *http.Client
}

func (a *AlphaVantage) Fetch(ctx context.Context) (map[string]time.Time, error) {
	if a.APIKey == "" {
		return nil, fmt.Errorf("alphavantage: no api key")
	}
	base := a.URL
	if base == "" {
		base = "https://www.alphavantage.co/query"
	}
	horizon := a.Horizon
	if horizon == "" {
		horizon = "3month"
	}
	q := url.Values{}
	q.Set("function", "EARNINGS_CALENDAR")
	q.Set("horizon", horizon)
	q.Set("apikey", a.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	hc := a.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage: status %s", resp.Status)
	}
	return ParseCalendarCSV(resp.Body)
}

// ParseCalendarCSV reads symbol,name,reportDate,... rows. A symbol listed
// more than once keeps its earliest date.
func ParseCalendarCSV(r io.Reader) (map[string]time.Time, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("alphavantage: header: %w", err)
	}
	symCol, dateCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "symbol":
			symCol = i
		case "reportDate":
			dateCol = i
		}
	}
	if symCol < 0 || dateCol < 0 {
		// Errors and rate-limit notices come back as a one-line JSON body.
		return nil, fmt.Errorf("alphavantage: unexpected response %q", strings.Join(header, ","))
	}

	out := make(map[string]time.Time)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("alphavantage: %w", err)
		}
		if len(rec) <= symCol || len(rec) <= dateCol {
			continue
		}
		d, err := parseDate(rec[dateCol])
		if err != nil {
			continue
		}
		sym := strings.ToUpper(strings.TrimSpace(rec[symCol]))
		if prev, ok := out[sym]; !ok || d.Before(prev) {
			out[sym] = d
		}
	}
	return out, nil
}

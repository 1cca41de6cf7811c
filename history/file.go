// Package history serves price bars to the engine: from CSV archives on
// disk or from memory.
package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/rustyeddy/propbot/market"
)

// FileSource reads <Dir>/<SYMBOL>_<TF>.csv or .csv.xz. Rows are
// time,open,high,low,close[,volume] oldest first; a first row whose first
// column is "time" is a header.
type FileSource struct {
	Dir string
}

func (f FileSource) Bars(ctx context.Context, symbol string, tf market.Timeframe, count int) ([]market.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base := filepath.Join(f.Dir, fmt.Sprintf("%s_%s.csv", strings.ToUpper(symbol), tf))

	r, closer, err := open(base)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	bars, err := ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", base, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: no bars: %w", base, market.ErrDataUnavailable)
	}
	if count > 0 && len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}

func open(base string) (io.Reader, io.Closer, error) {
	if fh, err := os.Open(base); err == nil {
		return fh, fh, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, nil, err
	}

	fh, err := os.Open(base + ".xz")
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%s: %w", base, market.ErrDataUnavailable)
	}
	if err != nil {
		return nil, nil, err
	}
	zr, err := xz.NewReader(fh)
	if err != nil {
		fh.Close()
		return nil, nil, fmt.Errorf("xz %s: %w", base, err)
	}
	return zr, fh, nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// ReadCSV parses bar rows.
func ReadCSV(r io.Reader) ([]market.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []market.Candle
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && strings.EqualFold(rec[0], "time") {
			continue
		}
		if len(rec) < 5 {
			return nil, fmt.Errorf("line %d: want at least 5 columns, got %d", line, len(rec))
		}
		c, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, c)
	}
}

func parseRow(rec []string) (market.Candle, error) {
	var c market.Candle
	var err error
	if c.Time, err = parseTime(rec[0]); err != nil {
		return c, err
	}
	vals := make([]float64, 5)
	n := 4
	if len(rec) > 5 {
		n = 5
	}
	for i := 0; i < n; i++ {
		if vals[i], err = strconv.ParseFloat(rec[i+1], 64); err != nil {
			return c, fmt.Errorf("column %d: %w", i+2, err)
		}
	}
	c.Open, c.High, c.Low, c.Close, c.Volume = vals[0], vals[1], vals[2], vals[3], vals[4]
	return c, nil
}

func parseTime(s string) (time.Time, error) {
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}

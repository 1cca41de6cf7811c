package sim

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rustyeddy/propbot/market"
)

// MarkFromBars quotes each symbol at its latest daily close, bid at the
// close and ask one pip above. Symbols without bars are skipped and
// reported in the joined error.
func (v *Venue) MarkFromBars(ctx context.Context, src market.BarSource, symbols []string) error {
	var errs []error
	for _, sym := range symbols {
		bars, err := src.Bars(ctx, sym, market.D1, 1)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(bars) == 0 {
			errs = append(errs, fmt.Errorf("%s: %w", sym, market.ErrDataUnavailable))
			continue
		}
		last := bars[len(bars)-1]

		v.mu.Lock()
		si, err := v.symbolInfoLocked(sym)
		v.mu.Unlock()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		q := market.Quote{
			Symbol: strings.ToUpper(sym),
			Bid:    last.Close,
			Ask:    last.Close + si.PipUnit(),
			Time:   last.Time,
		}
		if err := v.UpdateQuote(q); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

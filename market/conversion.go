package market

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoConversion is returned when no quote links two currencies.
var ErrNoConversion = errors.New("no conversion quote")

// QuoteToAccountRate returns how many units of account currency one unit of
// quote currency is worth. It tries the direct QUOTEACCT pair (bid), then
// the inverse ACCTQUOTE pair (1/bid). It never guesses a rate. A missing
// quote falls through to the next pair; any other error is returned.
func QuoteToAccountRate(ctx context.Context, cat *Catalog, quoteCcy, accountCcy string, prices QuoteSource) (float64, error) {
	if quoteCcy == accountCcy {
		return 1.0, nil
	}

	for _, pair := range []struct {
		symbol  string
		inverse bool
	}{
		{pairSymbol(cat, quoteCcy, accountCcy), false},
		{pairSymbol(cat, accountCcy, quoteCcy), true},
	} {
		q, err := prices.Quote(ctx, pair.symbol)
		if err != nil {
			if errors.Is(err, ErrNoQuote) {
				continue
			}
			return 0, fmt.Errorf("%s: %w", pair.symbol, err)
		}
		if q.Bid <= 0 {
			continue
		}
		if pair.inverse {
			return 1.0 / q.Bid, nil
		}
		return q.Bid, nil
	}

	return 0, fmt.Errorf("%w: %s -> %s", ErrNoConversion, quoteCcy, accountCcy)
}

func pairSymbol(cat *Catalog, base, quote string) string {
	if cat != nil {
		if s, ok := cat.PairSymbol(base, quote); ok {
			return s
		}
	}
	return base + quote
}

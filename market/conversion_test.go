package market

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuoteSource struct {
	quotes map[string]Quote
	asked  []string
}

func (f *fakeQuoteSource) Quote(ctx context.Context, symbol string) (Quote, error) {
	f.asked = append(f.asked, symbol)
	q, ok := f.quotes[symbol]
	if !ok {
		return Quote{}, ErrNoQuote
	}
	return q, nil
}

func TestQuoteToAccountRate_QuoteEqualsAccount(t *testing.T) {
	t.Parallel()

	ps := &fakeQuoteSource{}
	rate, err := QuoteToAccountRate(context.Background(), DefaultCatalog(), "USD", "USD", ps)
	assert.NoError(t, err)
	assert.Equal(t, 1.0, rate)
	assert.Empty(t, ps.asked)
}

func TestQuoteToAccountRate_Direct(t *testing.T) {
	t.Parallel()

	ps := &fakeQuoteSource{quotes: map[string]Quote{
		"GBPUSD": {Symbol: "GBPUSD", Bid: 1.25, Ask: 1.2502},
	}}
	rate, err := QuoteToAccountRate(context.Background(), DefaultCatalog(), "GBP", "USD", ps)
	require.NoError(t, err)
	assert.InDelta(t, 1.25, rate, 1e-12)
	assert.Equal(t, []string{"GBPUSD"}, ps.asked)
}

func TestQuoteToAccountRate_Inverse(t *testing.T) {
	t.Parallel()

	ps := &fakeQuoteSource{quotes: map[string]Quote{
		"USDJPY": {Symbol: "USDJPY", Bid: 150.0, Ask: 150.02},
	}}
	rate, err := QuoteToAccountRate(context.Background(), DefaultCatalog(), "JPY", "USD", ps)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/150.0, rate, 1e-12)
	assert.Equal(t, []string{"JPYUSD", "USDJPY"}, ps.asked)
}

func TestQuoteToAccountRate_NoQuoteRejects(t *testing.T) {
	t.Parallel()

	ps := &fakeQuoteSource{}
	rate, err := QuoteToAccountRate(context.Background(), DefaultCatalog(), "NZD", "USD", ps)
	assert.ErrorIs(t, err, ErrNoConversion)
	assert.Equal(t, 0.0, rate)
}

func TestQuoteToAccountRate_ZeroBidIgnored(t *testing.T) {
	t.Parallel()

	ps := &fakeQuoteSource{quotes: map[string]Quote{
		"USDCHF": {Symbol: "USDCHF", Bid: 0},
	}}
	_, err := QuoteToAccountRate(context.Background(), nil, "CHF", "USD", ps)
	assert.ErrorIs(t, err, ErrNoConversion)
}

type failingQuoteSource struct{ err error }

func (f failingQuoteSource) Quote(ctx context.Context, symbol string) (Quote, error) {
	return Quote{}, f.err
}

func TestQuoteToAccountRate_SourceErrorPropagates(t *testing.T) {
	t.Parallel()

	down := errors.New("session lost")
	_, err := QuoteToAccountRate(context.Background(), DefaultCatalog(), "JPY", "USD", failingQuoteSource{err: down})
	require.Error(t, err)
	assert.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, ErrNoConversion)
}

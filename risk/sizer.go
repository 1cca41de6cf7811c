package risk

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/propbot/broker"
	"github.com/rustyeddy/propbot/market"
)

var (
	ErrZeroDistance = errors.New("entry and stop are equal")
	ErrBadVolume    = errors.New("no tradable volume")
)

type SizeRequest struct {
	Instrument market.Instrument
	Info       broker.SymbolInfo
	Equity     float64
	RiskPct    float64
	Modifier   float64 // 0 means 1.0
	Entry      float64
	Stop       float64
}

type SizeResult struct {
	RiskCash    float64
	Rate        float64 // quote -> account currency
	Raw         float64
	Volume      float64
	PlannedRisk float64
}

// Sizer turns a risk fraction and a stop distance into venue volume.
type Sizer struct {
	Catalog         *market.Catalog
	Quotes          market.QuoteSource
	AccountCurrency string
}

func (s *Sizer) Size(ctx context.Context, req SizeRequest) (SizeResult, error) {
	var res SizeResult

	mod := req.Modifier
	if mod <= 0 {
		mod = 1.0
	}
	res.RiskCash = req.Equity * req.RiskPct * mod

	distance := abs(req.Entry - req.Stop)
	if distance == 0 {
		return res, fmt.Errorf("%s: %w", req.Instrument.Symbol, ErrZeroDistance)
	}

	contract := req.Info.ContractSize
	if contract <= 0 {
		contract = req.Instrument.ContractSize
	}
	riskPerUnit := distance * contract

	rate, err := market.QuoteToAccountRate(ctx, s.Catalog, req.Instrument.QuoteCurrency, s.AccountCurrency, s.Quotes)
	if err != nil {
		return res, fmt.Errorf("%s: %w", req.Instrument.Symbol, err)
	}
	res.Rate = rate

	res.Raw = res.RiskCash / (riskPerUnit * rate)
	if math.IsNaN(res.Raw) || math.IsInf(res.Raw, 0) || res.Raw <= 0 {
		return res, fmt.Errorf("%s: raw volume %v: %w", req.Instrument.Symbol, res.Raw, ErrBadVolume)
	}

	vol, err := RoundToStep(res.Raw, req.Info.VolumeStep, req.Info.VolumeMin, req.Info.VolumeMax)
	if err != nil {
		return res, fmt.Errorf("%s: %w", req.Instrument.Symbol, err)
	}
	res.Volume = vol
	res.PlannedRisk = PlannedRisk(vol, contract, req.Entry, req.Stop, rate)
	return res, nil
}

// RoundToStep rounds raw to the nearest multiple of step and clamps it to
// the step-aligned [min, max]. Arithmetic is decimal so results are exact
// step multiples.
func RoundToStep(raw, step, min, max float64) (float64, error) {
	if step <= 0 {
		return 0, fmt.Errorf("volume step %v: %w", step, ErrBadVolume)
	}
	st := decimal.NewFromFloat(step)
	v := decimal.NewFromFloat(raw).Div(st).Round(0).Mul(st)

	lo := decimal.NewFromFloat(min).Div(st).Ceil().Mul(st)
	if lo.LessThan(st) {
		lo = st
	}
	hi := v
	if max > 0 {
		hi = decimal.NewFromFloat(max).Div(st).Floor().Mul(st)
	}
	if hi.LessThan(lo) {
		return 0, fmt.Errorf("volume range [%v, %v] holds no step of %v: %w", min, max, step, ErrBadVolume)
	}

	if v.LessThan(lo) {
		v = lo
	}
	if v.GreaterThan(hi) {
		v = hi
	}
	f, _ := v.Float64()
	return f, nil
}

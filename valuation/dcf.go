package valuation

import (
	"errors"
	"fmt"
	"math"
)

// ProjectionYears is the length of the explicit growth stage
const ProjectionYears = 10

var (
	// ErrInvalidInput is returned for NaN or infinite inputs and for
	// assumptions whose estimate overflows
	ErrInvalidInput = errors.New("invalid valuation input")
	// ErrDiscountNotAboveTerminal is returned when the discount rate does not exceed
	// the terminal growth rate, which would make the terminal value undefined or negative
	ErrDiscountNotAboveTerminal = errors.New("discount rate must be greater than terminal growth rate")
	// ErrEPSUnavailable is returned when no EPS could be found for a ticker
	ErrEPSUnavailable = errors.New("could not fetch EPS, check the ticker")
)

// Input holds the DCF assumptions. Rates are percentages, e.g. 8.5 for 8.5%.
type Input struct {
	Ticker         string  `json:"ticker"`
	EPS            float64 `json:"eps"`
	GrowthRate     float64 `json:"growth_rate"`
	TerminalGrowth float64 `json:"terminal_growth"`
	DiscountRate   float64 `json:"discount_rate"`
}

// Projection is one year of the explicit stage
type Projection struct {
	Year         int     `json:"year"`
	EPS          float64 `json:"eps"`
	PresentValue float64 `json:"present_value"`
}

// Result is the outcome of a DCF estimate
type Result struct {
	Input                   Input        `json:"input"`
	Projections             []Projection `json:"projections"`
	SumPresentValue         float64      `json:"sum_present_value"`
	TerminalValue           float64      `json:"terminal_value"`
	DiscountedTerminalValue float64      `json:"discounted_terminal_value"`
	IntrinsicValue          float64      `json:"intrinsic_value"`
}

// Validate checks that the inputs produce a finite, meaningful estimate
func (in Input) Validate() error {
	for name, v := range map[string]float64{
		"eps":             in.EPS,
		"growth rate":     in.GrowthRate,
		"terminal growth": in.TerminalGrowth,
		"discount rate":   in.DiscountRate,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be a finite number", ErrInvalidInput, name)
		}
	}
	if in.GrowthRate <= -100 || in.DiscountRate <= -100 {
		return fmt.Errorf("%w: rates must be greater than -100%%", ErrInvalidInput)
	}
	if in.DiscountRate <= in.TerminalGrowth {
		return ErrDiscountNotAboveTerminal
	}
	return nil
}

// DCF estimates intrinsic value per share with a two-stage model: EPS grows at
// the growth rate for ten years, each year discounted at the discount rate, then
// a Gordon-growth terminal value on the year-ten EPS is discounted back.
func DCF(in Input) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}

	g := in.GrowthRate / 100
	tg := in.TerminalGrowth / 100
	d := in.DiscountRate / 100

	res := Result{
		Input:       in,
		Projections: make([]Projection, 0, ProjectionYears),
	}

	futureEPS := in.EPS
	for year := 1; year <= ProjectionYears; year++ {
		futureEPS *= 1 + g
		pv := futureEPS / math.Pow(1+d, float64(year))
		res.SumPresentValue += pv
		res.Projections = append(res.Projections, Projection{
			Year:         year,
			EPS:          futureEPS,
			PresentValue: pv,
		})
	}

	res.TerminalValue = futureEPS * (1 + tg) / (d - tg)
	res.DiscountedTerminalValue = res.TerminalValue / math.Pow(1+d, ProjectionYears)
	res.IntrinsicValue = res.SumPresentValue + res.DiscountedTerminalValue

	if !res.finite() {
		return Result{}, fmt.Errorf("%w: assumptions overflow the estimate", ErrInvalidInput)
	}
	return res, nil
}

// finite reports whether every computed figure is a real number.
func (r Result) finite() bool {
	ok := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	for _, p := range r.Projections {
		if !ok(p.EPS) || !ok(p.PresentValue) {
			return false
		}
	}
	return ok(r.SumPresentValue) && ok(r.TerminalValue) &&
		ok(r.DiscountedTerminalValue) && ok(r.IntrinsicValue)
}

// MarginOfSafety returns (intrinsic - price) / intrinsic × 100, or 0 when
// either value is not positive
func (r Result) MarginOfSafety(price float64) float64 {
	if r.IntrinsicValue <= 0 || price <= 0 {
		return 0
	}
	return (r.IntrinsicValue - price) / r.IntrinsicValue * 100
}

// backend/src/processors/xirr_processor.go
package processors

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/models"
)

// xirrProcessorImpl implements the XirrProcessor interface.
type xirrProcessorImpl struct{}

// NewXirrProcessor creates a new instance of XirrProcessor.
func NewXirrProcessor() XirrProcessor {
	return &xirrProcessorImpl{}
}

const (
	xirrMaxIterations = 100
	xirrTolerance     = 1e-7
	xirrMinRate       = -0.999
	xirrMaxRate       = 1e6 // short holding periods annualize into the thousands of percent
)

// CalculateXirr solves Σ amount_i / (1+r)^(daysFromFirst_i/365) = 0 for the
// annualized rate r via Newton-Raphson with a bisection fallback. The solver
// runs in float64; inputs and the result cross the boundary as decimals.
//
// Nil is returned for fewer than two flows, for flows that all share one sign
// (no sign change means no real root in the general case), and when the
// solver fails to converge within its iteration cap — it never hangs. The
// result is invariant under reordering of the flows since NPV only depends on
// each flow's own date.
func (p *xirrProcessorImpl) CalculateXirr(cashFlows []models.CashFlowEvent) *decimal.Decimal {
	if len(cashFlows) < 2 {
		return nil
	}

	hasInflow, hasOutflow := false, false
	base := cashFlows[0].Date
	for _, f := range cashFlows {
		if f.Amount.IsPositive() {
			hasInflow = true
		}
		if f.Amount.IsNegative() {
			hasOutflow = true
		}
		if f.Date.Before(base) {
			base = f.Date
		}
	}
	if !hasInflow || !hasOutflow {
		return nil
	}

	amounts := make([]float64, len(cashFlows))
	years := make([]float64, len(cashFlows))
	for i, f := range cashFlows {
		amounts[i] = f.Amount.InexactFloat64()
		years[i] = float64(daysBetween(base, f.Date)) / 365.0
	}

	rate := solveNewtonRaphson(amounts, years)
	if math.IsNaN(rate) {
		rate = solveBisection(amounts, years)
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil
	}

	result := decimal.NewFromFloat(rate)
	return &result
}

func npv(rate float64, amounts, years []float64) float64 {
	sum := 0.0
	for i, amount := range amounts {
		bse := 1 + rate
		if bse <= 0 {
			return math.NaN()
		}
		sum += amount / math.Pow(bse, years[i])
	}
	return sum
}

// solveNewtonRaphson iterates rate -= NPV/NPV' until the NPV is within
// tolerance. Returns NaN when the derivative vanishes or the iteration cap is
// reached without convergence.
func solveNewtonRaphson(amounts, years []float64) float64 {
	rate := 0.1

	for iter := 0; iter < xirrMaxIterations; iter++ {
		value := 0.0
		derivative := 0.0
		for i, amount := range amounts {
			bse := 1 + rate
			if bse <= 0 {
				rate = xirrMinRate
				bse = 1 + rate
			}
			discount := math.Pow(bse, years[i])
			if discount == 0 {
				continue
			}
			value += amount / discount
			if years[i] != 0 {
				derivative -= years[i] * amount / (discount * bse)
			}
		}

		if math.Abs(value) < xirrTolerance {
			return rate
		}
		if derivative == 0 {
			return math.NaN()
		}

		next := rate - value/derivative
		if next < xirrMinRate {
			next = xirrMinRate
		}
		if next > xirrMaxRate {
			next = xirrMaxRate
		}
		if math.Abs(next-rate) < xirrTolerance && math.Abs(npv(next, amounts, years)) < 1e-4 {
			return next
		}
		rate = next
	}
	return math.NaN()
}

// solveBisection brackets the root between the minimum rate and the rate cap
// and halves until the NPV is within tolerance.
func solveBisection(amounts, years []float64) float64 {
	const maxIter = 200

	lo, hi := xirrMinRate, xirrMaxRate
	npvLo := npv(lo, amounts, years)
	npvHi := npv(hi, amounts, years)
	if math.IsNaN(npvLo) || math.IsNaN(npvHi) || npvLo*npvHi > 0 {
		return math.NaN()
	}

	for iter := 0; iter < maxIter; iter++ {
		mid := (lo + hi) / 2
		npvMid := npv(mid, amounts, years)
		if math.IsNaN(npvMid) {
			return math.NaN()
		}
		if math.Abs(npvMid) < xirrTolerance {
			return mid
		}
		if npvMid*npvLo < 0 {
			hi = mid
		} else {
			lo = mid
			npvLo = npvMid
		}
	}
	return (lo + hi) / 2
}

// backend/src/processors/return_processor.go
package processors

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/models"
)

// returnProcessorImpl implements the ReturnProcessor interface.
type returnProcessorImpl struct{}

// NewReturnProcessor creates a new instance of ReturnProcessor.
func NewReturnProcessor() ReturnProcessor {
	return &returnProcessorImpl{}
}

// truncateToDate drops the time-of-day component so day counts are whole.
func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func daysBetween(from, to time.Time) int64 {
	return int64(truncateToDate(to).Sub(truncateToDate(from)).Hours() / 24)
}

// CalculateModifiedDietz computes the Modified Dietz return of the period:
//
//	(endValue - startValue - netFlows) / (startValue + Σ flow*weight)
//
// where each flow is weighted by the fraction of the period remaining after
// it: weight = (totalDays - daysSinceStart) / totalDays.
//
// Nil is returned when the weighted denominator is not positive (including a
// zero start value with net-negative weighted flows) — the return is not
// computable then, which is an expected outcome. A zero start value with
// positive weighted flows uses the general formula unchanged: the denominator
// degenerates to the weighted-flow sum alone.
func (p *returnProcessorImpl) CalculateModifiedDietz(startValue, endValue decimal.Decimal, periodStart, periodEnd time.Time, cashFlows []models.CashFlowEvent) *decimal.Decimal {
	totalDays := daysBetween(periodStart, periodEnd)
	if totalDays <= 0 {
		return nil
	}
	totalDaysDec := decimal.NewFromInt(totalDays)

	netFlows := decimal.Zero
	weightedFlows := decimal.Zero
	for _, flow := range cashFlows {
		daysSinceStart := daysBetween(periodStart, flow.Date)
		weight := totalDaysDec.Sub(decimal.NewFromInt(daysSinceStart)).Div(totalDaysDec)
		netFlows = netFlows.Add(flow.Amount)
		weightedFlows = weightedFlows.Add(flow.Amount.Mul(weight))
	}

	denominator := startValue.Add(weightedFlows)
	if !denominator.IsPositive() {
		return nil
	}

	result := endValue.Sub(startValue).Sub(netFlows).Div(denominator)
	return &result
}

// CalculateTimeWeightedReturn chains sub-period returns split at each
// cash-flow boundary snapshot:
//
//	snapshots[0].Before/startValue * snapshots[i].Before/snapshots[i-1].After
//	* ... * endValue/snapshots[last].After - 1
//
// When the start value (or a leading snapshot's Before value) is not
// positive, leading sub-periods are skipped and the chain restarts from the
// first snapshot's After value that gives a positive base — a portfolio
// funded mid-period measures only the return from first-positive-value
// onward. Nil is returned only when a sub-period denominator is zero; with no
// snapshots and a positive start the chain reduces to simple return.
func (p *returnProcessorImpl) CalculateTimeWeightedReturn(startValue, endValue decimal.Decimal, snapshots []models.ValuationSnapshot) *decimal.Decimal {
	one := decimal.NewFromInt(1)

	base := startValue
	idx := 0
	for idx < len(snapshots) && !base.IsPositive() {
		base = snapshots[idx].After
		idx++
	}

	if !base.IsPositive() {
		// Valuation never became positive. A degenerate all-zero period has a
		// well-defined zero return; otherwise the chain is undefined.
		if base.IsZero() && endValue.IsZero() {
			zero := decimal.Zero
			return &zero
		}
		if base.IsZero() {
			return nil
		}
	}

	chain := one
	for ; idx < len(snapshots); idx++ {
		if base.IsZero() {
			return nil
		}
		chain = chain.Mul(snapshots[idx].Before.Div(base))
		base = snapshots[idx].After
	}
	if base.IsZero() {
		return nil
	}
	chain = chain.Mul(endValue.Div(base))

	result := chain.Sub(one)
	return &result
}

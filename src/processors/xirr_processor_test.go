package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/famfolio/backend/src/models"
)

func TestXirrOneYearTenPercent(t *testing.T) {
	p := NewXirrProcessor()

	result := p.CalculateXirr([]models.CashFlowEvent{
		flow("-1000", "2024-01-01"),
		flow("1100", "2025-01-01"), // 366 days later but 365-day convention keeps it close
	})
	require.NotNil(t, result)
	rate := result.InexactFloat64()
	assert.InDelta(t, 0.10, rate, 0.01, "rate = %f", rate)
}

func TestXirrBreakEvenIsZero(t *testing.T) {
	p := NewXirrProcessor()

	result := p.CalculateXirr([]models.CashFlowEvent{
		flow("-1000", "2024-01-01"),
		flow("1000", "2025-01-01"),
	})
	require.NotNil(t, result)
	assert.InDelta(t, 0.0, result.InexactFloat64(), 0.01)
}

func TestXirrShortPeriodHighReturnConverges(t *testing.T) {
	p := NewXirrProcessor()

	// 50% absolute gain in 20 days annualizes beyond 1000%; the solver must
	// converge rather than return nil or diverge.
	result := p.CalculateXirr([]models.CashFlowEvent{
		flow("-1000", "2024-01-01"),
		flow("1500", "2024-01-21"),
	})
	require.NotNil(t, result)
	assert.Greater(t, result.InexactFloat64(), 10.0, "rate = %f", result.InexactFloat64())
}

func TestXirrWithIntermediateDividends(t *testing.T) {
	p := NewXirrProcessor()

	result := p.CalculateXirr([]models.CashFlowEvent{
		flow("-10000", "2023-01-01"),
		flow("150", "2023-04-01"),
		flow("150", "2023-07-01"),
		flow("150", "2023-10-01"),
		flow("10300", "2024-01-01"),
	})
	require.NotNil(t, result)
	// ~4.5% dividend-inclusive return, solved not summed.
	assert.InDelta(t, 0.075, result.InexactFloat64(), 0.01)
}

func TestXirrNilForDegenerateInputs(t *testing.T) {
	p := NewXirrProcessor()

	assert.Nil(t, p.CalculateXirr(nil))
	assert.Nil(t, p.CalculateXirr([]models.CashFlowEvent{flow("-1000", "2024-01-01")}))

	// No sign change: no real root in the general case.
	assert.Nil(t, p.CalculateXirr([]models.CashFlowEvent{
		flow("-1000", "2024-01-01"),
		flow("-500", "2024-06-01"),
	}))
	assert.Nil(t, p.CalculateXirr([]models.CashFlowEvent{
		flow("1000", "2024-01-01"),
		flow("500", "2024-06-01"),
	}))
}

func TestXirrOrderInvariant(t *testing.T) {
	p := NewXirrProcessor()

	ordered := []models.CashFlowEvent{
		flow("-10000", "2023-01-01"),
		flow("150", "2023-04-01"),
		flow("150", "2023-07-01"),
		flow("10300", "2024-01-01"),
	}
	shuffled := []models.CashFlowEvent{
		flow("150", "2023-07-01"),
		flow("10300", "2024-01-01"),
		flow("-10000", "2023-01-01"),
		flow("150", "2023-04-01"),
	}

	first := p.CalculateXirr(ordered)
	second := p.CalculateXirr(shuffled)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.InDelta(t, first.InexactFloat64(), second.InexactFloat64(), 1e-6)
}

// backend/src/processors/funds_processor.go
package processors

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/models"
)

// fundsProcessorImpl implements the FundsProcessor interface.
type fundsProcessorImpl struct {
	homeCurrency string
}

// NewFundsProcessor creates a new instance of FundsProcessor for the given
// home currency.
func NewFundsProcessor(homeCurrency string) FundsProcessor {
	return &fundsProcessorImpl{homeCurrency: homeCurrency}
}

// Calculate rolls up ledgers, bank accounts, and installment liabilities into
// the available-funds summary:
//
//   - TotalBankAssets: ledger balances plus non-fixed-deposit account assets
//     plus matured fixed deposits (principal + expected interest), all in home
//     currency. A deposit counts as matured when its status says so or when
//     its term has elapsed by asOf. Closed and early-withdrawn deposits
//     contribute only their base assets; active deposits remain locked and
//     contribute nothing.
//   - FixedDepositsPrincipal: matured deposits only. Matured cash is released
//     into available funds while active deposits stay locked and closed/early
//     ones are already settled elsewhere.
//   - UnpaidInstallmentBalance: non-cancelled installments with remaining
//     payments, at totalAmount/numberOfInstallments * remaining.
//   - AvailableFunds: TotalBankAssets − UnpaidInstallmentBalance.
//
// Every non-home amount traverses the conversion path through getExchangeRate,
// zero balances included; home-currency amounts never invoke it. All four
// arguments are required; a nil one fails with ErrNilArgument before any
// computation.
func (p *fundsProcessorImpl) Calculate(ledgers []models.CurrencyLedger, bankAccounts []models.BankAccount, installments []models.Installment, asOf time.Time, getExchangeRate func(currency string) (decimal.Decimal, error)) (*models.FundsSummary, error) {
	if ledgers == nil {
		return nil, fmt.Errorf("%w: ledgers", ErrNilArgument)
	}
	if bankAccounts == nil {
		return nil, fmt.Errorf("%w: bankAccounts", ErrNilArgument)
	}
	if installments == nil {
		return nil, fmt.Errorf("%w: installments", ErrNilArgument)
	}
	if getExchangeRate == nil {
		return nil, fmt.Errorf("%w: getExchangeRate", ErrNilArgument)
	}

	toHome := func(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
		if currency == "" || strings.EqualFold(currency, p.homeCurrency) {
			return amount, nil
		}
		rate, err := getExchangeRate(currency)
		if err != nil {
			return decimal.Zero, fmt.Errorf("exchange rate lookup failed for %s: %w", currency, err)
		}
		return amount.Mul(rate), nil
	}

	totalBankAssets := decimal.Zero
	fixedDepositsPrincipal := decimal.Zero

	for _, ledger := range ledgers {
		converted, err := toHome(ledger.Balance, ledger.Currency)
		if err != nil {
			return nil, err
		}
		totalBankAssets = totalBankAssets.Add(converted)
	}

	for _, account := range bankAccounts {
		if !account.IsFixedDeposit() {
			converted, err := toHome(account.TotalAssets, account.Currency)
			if err != nil {
				return nil, err
			}
			totalBankAssets = totalBankAssets.Add(converted)
			continue
		}

		// Status alone is not enough: a deposit whose term has elapsed is
		// matured even if nobody flipped the flag yet.
		status := account.FixedDeposit.Status
		if account.MaturedByDate(asOf) {
			status = models.FixedDepositMatured
		}

		switch status {
		case models.FixedDepositMatured:
			released, err := toHome(account.TotalAssets.Add(account.FixedDeposit.ExpectedInterest), account.Currency)
			if err != nil {
				return nil, err
			}
			totalBankAssets = totalBankAssets.Add(released)
			fixedDepositsPrincipal = fixedDepositsPrincipal.Add(released)
		case models.FixedDepositClosed, models.FixedDepositEarlyWithdrawal:
			// Already settled: only the base assets count, no matured interest.
			base, err := toHome(account.TotalAssets, account.Currency)
			if err != nil {
				return nil, err
			}
			totalBankAssets = totalBankAssets.Add(base)
		case models.FixedDepositActive:
			// Still locked.
		}
	}

	unpaidInstallments := decimal.Zero
	for _, inst := range installments {
		if inst.Cancelled || inst.RemainingInstallments <= 0 || inst.NumberOfInstallments <= 0 {
			continue
		}
		perInstallment := inst.TotalAmount.Div(decimal.NewFromInt(int64(inst.NumberOfInstallments)))
		unpaidInstallments = unpaidInstallments.Add(perInstallment.Mul(decimal.NewFromInt(int64(inst.RemainingInstallments))))
	}

	return &models.FundsSummary{
		TotalBankAssets:          totalBankAssets,
		FixedDepositsPrincipal:   fixedDepositsPrincipal,
		UnpaidInstallmentBalance: unpaidInstallments,
		AvailableFunds:           totalBankAssets.Sub(unpaidInstallments),
	}, nil
}

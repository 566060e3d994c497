// backend/src/models/bank.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FixedDepositStatus enumerates the lifecycle states of a fixed deposit.
type FixedDepositStatus string

const (
	FixedDepositActive          FixedDepositStatus = "ACTIVE"
	FixedDepositMatured         FixedDepositStatus = "MATURED"
	FixedDepositClosed          FixedDepositStatus = "CLOSED"
	FixedDepositEarlyWithdrawal FixedDepositStatus = "EARLY_WITHDRAWAL"
)

// FixedDepositInfo is the optional fixed-deposit metadata on a bank account.
type FixedDepositInfo struct {
	TermMonths       int                `json:"term_months"`
	StartDate        time.Time          `json:"start_date"`
	Status           FixedDepositStatus `json:"status"`
	ExpectedInterest decimal.Decimal    `json:"expected_interest"`
	ActualInterest   decimal.Decimal    `json:"actual_interest"`
}

// BankAccount is a cash account at a bank, optionally configured as a fixed
// deposit. InterestRate is an annual percentage; InterestCap bounds the
// principal that earns interest (high-interest accounts cap the balance).
type BankAccount struct {
	ID           int64             `json:"id,omitempty"`
	UserID       int64             `json:"user_id"`
	BankName     string            `json:"bank_name"`
	Currency     string            `json:"currency"`
	TotalAssets  decimal.Decimal   `json:"total_assets"`
	InterestRate decimal.Decimal   `json:"interest_rate"`
	InterestCap  decimal.Decimal   `json:"interest_cap"`
	FixedDeposit *FixedDepositInfo `json:"fixed_deposit,omitempty"`
	CreatedAt    time.Time         `json:"created_at,omitempty"`
}

// IsFixedDeposit reports whether the account carries fixed-deposit metadata.
func (a BankAccount) IsFixedDeposit() bool {
	return a.FixedDeposit != nil
}

// MaturedByDate reports whether a fixed deposit has reached its term as of the
// given date. Accounts flagged MATURED explicitly are matured regardless.
func (a BankAccount) MaturedByDate(asOf time.Time) bool {
	if a.FixedDeposit == nil {
		return false
	}
	if a.FixedDeposit.Status == FixedDepositMatured {
		return true
	}
	if a.FixedDeposit.Status != FixedDepositActive {
		return false
	}
	maturity := a.FixedDeposit.StartDate.AddDate(0, a.FixedDeposit.TermMonths, 0)
	return !asOf.Before(maturity)
}

// Installment is a liability paid off in equal monthly parts. The unpaid
// balance is totalAmount/numberOfInstallments * remainingInstallments;
// cancelled or fully paid installments are excluded from unpaid totals.
type Installment struct {
	ID                    int64           `json:"id,omitempty"`
	UserID                int64           `json:"user_id"`
	Description           string          `json:"description"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	NumberOfInstallments  int             `json:"number_of_installments"`
	RemainingInstallments int             `json:"remaining_installments"`
	Cancelled             bool            `json:"cancelled"`
	CreatedAt             time.Time       `json:"created_at,omitempty"`
}

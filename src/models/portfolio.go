// backend/src/models/portfolio.go
package models

import "time"

// Portfolio groups stock transactions for one user. A currency ledger may be
// bound 1:1 to a portfolio (CurrencyLedger.PortfolioID); when bound and the
// currencies match, stock trades settle against the ledger automatically.
type Portfolio struct {
	ID          int64     `json:"id,omitempty"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

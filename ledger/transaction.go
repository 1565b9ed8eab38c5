package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Transaction is one locally mirrored ledger entry.
type Transaction struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	Tags        []string        `json:"tags,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// normalize applies creation defaults: unknown types become expense, amounts
// are clamped to be non-negative and a missing date becomes now.
func (t *Transaction) normalize(now time.Time) {
	if t.Type != TypeIncome && t.Type != TypeExpense {
		t.Type = TypeExpense
	}
	if t.Amount.IsNegative() {
		t.Amount = t.Amount.Abs()
	}
	if t.Date.IsZero() {
		t.Date = now
	}
}

// UpdateFields carries a partial update; nil fields are left untouched.
type UpdateFields struct {
	Type        *string
	Amount      *decimal.Decimal
	Category    *string
	Description *string
	Date        *time.Time
	Tags        *[]string
	Notes       *string
}

// apply merges the set fields onto tx. The id is never touched.
func (f UpdateFields) apply(tx *Transaction) {
	if f.Type != nil {
		tx.Type = *f.Type
	}
	if f.Amount != nil {
		amount := *f.Amount
		if amount.IsNegative() {
			amount = amount.Abs()
		}
		tx.Amount = amount
	}
	if f.Category != nil {
		tx.Category = *f.Category
	}
	if f.Description != nil {
		tx.Description = *f.Description
	}
	if f.Date != nil {
		tx.Date = *f.Date
	}
	if f.Tags != nil {
		tx.Tags = *f.Tags
	}
	if f.Notes != nil {
		tx.Notes = *f.Notes
	}
}

package finance

import (
	"errors"
	"time"
)

// ErrInvalidEntry signals a bookkeeping rule violation.
var ErrInvalidEntry = errors.New("finance: invalid entry")

// Kind distinguishes income from expense entries.
type Kind string

// Entry kinds.
const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Entry is one financial movement.
type Entry struct {
	ID          int64     `json:"id"`
	Kind        Kind      `json:"kind"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	OccurredOn  time.Time `json:"occurred_on"`
	CreatedAt   time.Time `json:"created_at"`
}

// MonthlySummary aggregates one calendar month.
type MonthlySummary struct {
	Year         int   `json:"year"`
	Month        int   `json:"month"`
	IncomeCents  int64 `json:"income_cents"`
	ExpenseCents int64 `json:"expense_cents"`
	BalanceCents int64 `json:"balance_cents"`
}

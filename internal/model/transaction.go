package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents one normalized bank statement row.
type Transaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal // negative = debit, positive = credit
	Account     string          // bank account number
}

// ClassifiedTransaction is a Transaction with its assigned category.
// Category is never empty: unmatched descriptions get the reserved
// unclassified bucket.
type ClassifiedTransaction struct {
	Transaction
	Category string
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period is the date range a synthesis report covers. Bounds are inclusive.
type Period struct {
	Start time.Time
	End   time.Time
}

// CategoryTotal is the aggregation result for one category.
// Amounts are VAT-inclusive gross totals (TTC): Net = Total/(1+Rate/100)
// and VAT = Total - Net.
type CategoryTotal struct {
	Category   string
	Rate       decimal.Decimal
	Total      decimal.Decimal // algebraic sum, TTC
	Net        decimal.Decimal // HT
	VAT        decimal.Decimal
	Collected  decimal.Decimal // VAT on credit transactions
	Deductible decimal.Decimal // VAT on debit transactions (positive)
	Count      int
}

// SynthesisReport is the per-period VAT summary handed to the fiscal
// declaration. It is a value object: recomputed on demand, never mutated.
type SynthesisReport struct {
	Period     Period
	Account    string
	Lines      []CategoryTotal // store order, unclassified last
	GrandTotal decimal.Decimal
	GrandNet   decimal.Decimal
	GrandVAT   decimal.Decimal
	// VATDue is collected minus deductible across all categories.
	VATDue decimal.Decimal
}

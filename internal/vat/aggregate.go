// Package vat turns classified transactions into per-category VAT totals.
//
// Amounts are VAT-inclusive gross values (TTC). For a category at rate r,
// net = total / (1 + r/100) and vat = total - net. Debits and credits are
// summed algebraically, so aggregation is order-invariant: totals are
// computed from plain sums and nothing depends on input order.
package vat

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tvabook-dev/tvabook/internal/model"
	"github.com/tvabook-dev/tvabook/internal/rules"
)

// Summary is the aggregation result for one batch of transactions.
type Summary struct {
	Lines      []model.CategoryTotal // ruleset order, one line per category
	GrandTotal decimal.Decimal
	GrandNet   decimal.Decimal
	GrandVAT   decimal.Decimal
	VATDue     decimal.Decimal // collected minus deductible
}

var one = decimal.NewFromInt(1)
var hundred = decimal.NewFromInt(100)

// Aggregate sums a batch of classified transactions against a ruleset
// snapshot. Every category in the snapshot gets a line, even with no
// matching transactions. Transactions referencing a category absent from
// the snapshot, or carrying a zero date, fail fast.
func Aggregate(txns []model.ClassifiedTransaction, ruleset []model.Rule) (Summary, error) {
	type acc struct {
		total   decimal.Decimal
		credits decimal.Decimal
		debits  decimal.Decimal // absolute value of debit sum
		count   int
	}

	index := make(map[string]int, len(ruleset))
	accs := make([]acc, len(ruleset))
	for i, r := range ruleset {
		index[r.Category] = i
	}

	for i, txn := range txns {
		if txn.Date.IsZero() {
			return Summary{}, &rules.ValidationError{Fields: []rules.FieldError{
				{Field: "date", Reason: fmt.Sprintf("transaction %d has no date", i)},
			}}
		}
		pos, ok := index[txn.Category]
		if !ok {
			return Summary{}, &rules.ValidationError{Fields: []rules.FieldError{
				{Field: "category", Reason: fmt.Sprintf("transaction %d references unknown category %q", i, txn.Category)},
			}}
		}
		a := &accs[pos]
		a.total = a.total.Add(txn.Amount)
		if txn.Amount.IsNegative() {
			a.debits = a.debits.Sub(txn.Amount)
		} else {
			a.credits = a.credits.Add(txn.Amount)
		}
		a.count++
	}

	var sum Summary
	sum.Lines = make([]model.CategoryTotal, len(ruleset))
	for i, r := range ruleset {
		a := accs[i]
		line := model.CategoryTotal{
			Category:   r.Category,
			Rate:       r.Rate,
			Total:      a.total,
			Net:        netOf(a.total, r.Rate),
			Collected:  vatOf(a.credits, r.Rate),
			Deductible: vatOf(a.debits, r.Rate),
			Count:      a.count,
		}
		line.VAT = line.Total.Sub(line.Net)
		sum.Lines[i] = line

		sum.GrandTotal = sum.GrandTotal.Add(line.Total)
		sum.GrandNet = sum.GrandNet.Add(line.Net)
		sum.GrandVAT = sum.GrandVAT.Add(line.VAT)
		sum.VATDue = sum.VATDue.Add(line.Collected.Sub(line.Deductible))
	}
	return sum, nil
}

// netOf strips VAT from a gross amount: gross / (1 + rate/100).
func netOf(gross, rate decimal.Decimal) decimal.Decimal {
	return gross.Div(one.Add(rate.Div(hundred)))
}

// vatOf returns the VAT share of a gross amount.
func vatOf(gross, rate decimal.Decimal) decimal.Decimal {
	return gross.Sub(netOf(gross, rate))
}

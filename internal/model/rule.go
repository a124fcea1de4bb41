package model

import "github.com/shopspring/decimal"

// UnclassifiedCategory is the reserved fallback bucket. It always exists,
// carries a zero rate, needs no keywords and can never be deleted.
const UnclassifiedCategory = "unclassified"

// Rule maps a tax-rate category to its VAT rate and matching keywords.
// Rules are ordered: the first rule (in store order) with a matching
// keyword wins during classification.
type Rule struct {
	Category string
	Rate     decimal.Decimal // percentage, 0..100
	Keywords []string        // lowercase; non-empty except for the unclassified bucket
}

// Clone returns a deep copy of the rule.
func (r Rule) Clone() Rule {
	kw := make([]string, len(r.Keywords))
	copy(kw, r.Keywords)
	r.Keywords = kw
	return r
}

// Package classify maps transaction descriptions to tax-rate categories.
//
// Classification is a pure function over (ruleset, description): the first
// category in store order with a keyword appearing as a substring of the
// normalized description wins. Nothing here holds state, so identical
// inputs always produce identical results.
package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tvabook-dev/tvabook/internal/model"
)

// stripMarks removes combining diacritical marks after NFD decomposition,
// so "rénovation" and "RENOVATION" compare equal.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases a description, strips accents and collapses
// whitespace. Bank exports arrive uppercase with erratic spacing.
func Normalize(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Classify returns the category for one description. Empty or
// whitespace-only descriptions fall through to the unclassified bucket,
// as do descriptions matching no keyword.
func Classify(ruleset []model.Rule, description string) string {
	desc := Normalize(description)
	if desc == "" {
		return model.UnclassifiedCategory
	}
	for _, r := range ruleset {
		for _, kw := range r.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(desc, Normalize(kw)) {
				return r.Category
			}
		}
	}
	return model.UnclassifiedCategory
}

// All labels a batch of transactions against one ruleset snapshot.
func All(ruleset []model.Rule, txns []model.Transaction) []model.ClassifiedTransaction {
	out := make([]model.ClassifiedTransaction, len(txns))
	for i, txn := range txns {
		out[i] = model.ClassifiedTransaction{
			Transaction: txn,
			Category:    Classify(ruleset, txn.Description),
		}
	}
	return out
}

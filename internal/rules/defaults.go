package rules

import (
	"github.com/shopspring/decimal"

	"github.com/tvabook-dev/tvabook/internal/model"
)

// DefaultRules returns the French VAT ruleset a new working directory
// starts with.
func DefaultRules() []model.Rule {
	return []model.Rule{
		{Category: "standard", Rate: decimal.NewFromInt(20), Keywords: []string{"ovh", "amazon"}},
		{Category: "intermédiaire", Rate: decimal.NewFromInt(10), Keywords: []string{"restaurant", "resto"}},
		{Category: "réduit", Rate: decimal.RequireFromString("5.5"), Keywords: []string{"alimentation"}},
		{Category: "particulier", Rate: decimal.NewFromInt(7), Keywords: []string{"rénovation"}},
		{Category: "exonéré", Rate: decimal.Zero, Keywords: []string{"formation", "impôt"}},
		{Category: model.UnclassifiedCategory, Rate: decimal.Zero},
	}
}

// Package report builds the VAT synthesis report handed to the fiscal
// declaration. Building is a pure transformation: the same summary and
// period always produce byte-identical output.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/tvabook-dev/tvabook/internal/model"
	"github.com/tvabook-dev/tvabook/internal/vat"
)

// Header is the CSV header for a synthesis export.
const Header = "category,rate,total_ttc,total_ht,vat,vat_collected,vat_deductible,count"

const dateFormat = "2006-01-02"

// Build turns an aggregation summary into a SynthesisReport value object.
// Monetary values are rounded to 2 decimal places here, at the report
// edge; the aggregator keeps full precision.
func Build(sum vat.Summary, period model.Period, account string) model.SynthesisReport {
	rep := model.SynthesisReport{
		Period:     period,
		Account:    account,
		Lines:      make([]model.CategoryTotal, len(sum.Lines)),
		GrandTotal: sum.GrandTotal.Round(2),
		GrandNet:   sum.GrandNet.Round(2),
		GrandVAT:   sum.GrandVAT.Round(2),
		VATDue:     sum.VATDue.Round(2),
	}
	for i, line := range sum.Lines {
		rep.Lines[i] = model.CategoryTotal{
			Category:   line.Category,
			Rate:       line.Rate,
			Total:      line.Total.Round(2),
			Net:        line.Net.Round(2),
			VAT:        line.VAT.Round(2),
			Collected:  line.Collected.Round(2),
			Deductible: line.Deductible.Round(2),
			Count:      line.Count,
		}
	}
	return rep
}

// WriteCSV renders a synthesis report, one row per category plus a TOTAL
// row, preceded by a period comment row.
func WriteCSV(w io.Writer, rep model.SynthesisReport) error {
	if _, err := fmt.Fprintf(w, "# period %s..%s account %s\n",
		rep.Period.Start.Format(dateFormat), rep.Period.End.Format(dateFormat), rep.Account); err != nil {
		return fmt.Errorf("writing period row: %w", err)
	}

	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, line := range rep.Lines {
		row := []string{
			line.Category,
			line.Rate.String(),
			line.Total.StringFixed(2),
			line.Net.StringFixed(2),
			line.VAT.StringFixed(2),
			line.Collected.StringFixed(2),
			line.Deductible.StringFixed(2),
			fmt.Sprintf("%d", line.Count),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	total := []string{
		"TOTAL",
		"",
		rep.GrandTotal.StringFixed(2),
		rep.GrandNet.StringFixed(2),
		rep.GrandVAT.StringFixed(2),
		"",
		rep.VATDue.StringFixed(2),
		"",
	}
	if err := cw.Write(total); err != nil {
		return fmt.Errorf("writing total row: %w", err)
	}
	return cw.Error()
}

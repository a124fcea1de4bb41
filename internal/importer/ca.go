package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tvabook-dev/tvabook/internal/model"
)

// CAParser parses Crédit Agricole CSV statement exports. Exports carry a
// free-form preamble before the header row, semicolon separators, French
// decimal commas and separate Débit/Crédit columns.
type CAParser struct{}

const caDateFormat = "02/01/2006"

// Format returns the parser name.
func (p *CAParser) Format() string { return "credit-agricole" }

// Parse reads a Crédit Agricole export and returns signed transactions
// (negative = debit).
func (p *CAParser) Parse(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading statement CSV: %w", err)
	}

	cols, headerRow := findHeader(records)
	if headerRow < 0 {
		return nil, fmt.Errorf("no header row with date/libellé/débit/crédit columns found")
	}

	var txns []model.Transaction
	for i, rec := range records[headerRow+1:] {
		txn, ok, err := parseCARow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", headerRow+i+2, err)
		}
		if ok {
			txns = append(txns, txn)
		}
	}
	return txns, nil
}

// caColumns maps the header positions of the four columns of interest.
type caColumns struct {
	date, label, debit, credit int
}

// findHeader scans for the first row naming the date, libellé, débit and
// crédit columns. Exports put account metadata above the table, so the
// header rarely sits on the first line.
func findHeader(records [][]string) (caColumns, int) {
	for rowIdx, rec := range records {
		cols := caColumns{date: -1, label: -1, debit: -1, credit: -1}
		for i, cell := range rec {
			c := strings.ToLower(strings.TrimSpace(cell))
			switch {
			case strings.Contains(c, "date") && cols.date < 0:
				cols.date = i
			case strings.Contains(c, "libell") && cols.label < 0:
				cols.label = i
			case (strings.Contains(c, "débit") || strings.Contains(c, "debit")) && cols.debit < 0:
				cols.debit = i
			case (strings.Contains(c, "crédit") || strings.Contains(c, "credit")) && cols.credit < 0:
				cols.credit = i
			}
		}
		if cols.date >= 0 && cols.label >= 0 && cols.debit >= 0 && cols.credit >= 0 {
			return cols, rowIdx
		}
	}
	return caColumns{}, -1
}

// parseCARow converts one table row. Rows without a parseable date or with
// neither a debit nor a credit are statement noise and are skipped.
func parseCARow(rec []string, cols caColumns) (model.Transaction, bool, error) {
	max := cols.date
	for _, c := range []int{cols.label, cols.debit, cols.credit} {
		if c > max {
			max = c
		}
	}
	if len(rec) <= max {
		return model.Transaction{}, false, nil
	}

	date, err := time.Parse(caDateFormat, strings.TrimSpace(rec[cols.date]))
	if err != nil {
		return model.Transaction{}, false, nil
	}

	debit, err := parseFrenchAmount(rec[cols.debit])
	if err != nil {
		return model.Transaction{}, false, fmt.Errorf("parsing débit %q: %w", rec[cols.debit], err)
	}
	credit, err := parseFrenchAmount(rec[cols.credit])
	if err != nil {
		return model.Transaction{}, false, fmt.Errorf("parsing crédit %q: %w", rec[cols.credit], err)
	}
	if debit.IsZero() && credit.IsZero() {
		return model.Transaction{}, false, nil
	}

	return model.Transaction{
		Date:        date,
		Description: cleanLabel(rec[cols.label]),
		Amount:      credit.Sub(debit),
	}, true, nil
}

// parseFrenchAmount parses "1 234,56 €" style values. Empty cells are
// zero. When a comma is present it is the decimal mark and any dots are
// thousands separators ("1.234,56"); without one, a dot is kept as the
// decimal mark.
func parseFrenchAmount(s string) (decimal.Decimal, error) {
	hasComma := strings.ContainsRune(s, ',')
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == '.':
			if !hasComma {
				b.WriteRune(r)
			}
		case r == ',':
			b.WriteByte('.')
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(cleaned)
}

// cleanLabel collapses the line breaks and runs of spaces the export
// embeds in libellé cells.
func cleanLabel(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

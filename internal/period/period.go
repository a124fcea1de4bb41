package period

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/tvabook-dev/tvabook/internal/model"
)

const layout = "2006-01"

// Parse parses a "YYYY-MM" period into the month's inclusive date range.
func Parse(s string) (model.Period, error) {
	start, err := time.Parse(layout, s)
	if err != nil {
		return model.Period{}, fmt.Errorf("invalid period %q (want YYYY-MM): %w", s, err)
	}
	return monthOf(start), nil
}

// Previous returns the calendar month before now. Statements are pulled
// for the previous month once it has closed.
func Previous(now time.Time) model.Period {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return monthOf(first.AddDate(0, -1, 0))
}

// Format returns the "YYYY-MM" form of a period.
func Format(p model.Period) string {
	return p.Start.Format(layout)
}

// Dir returns the statement directory for a period: <base>/YYYY/MM.
func Dir(base string, p model.Period) string {
	return filepath.Join(base, fmt.Sprintf("%04d", p.Start.Year()), fmt.Sprintf("%02d", int(p.Start.Month())))
}

func monthOf(t time.Time) model.Period {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return model.Period{
		Start: start,
		End:   start.AddDate(0, 1, 0).AddDate(0, 0, -1),
	}
}

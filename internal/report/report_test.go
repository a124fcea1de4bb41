package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvabook-dev/tvabook/internal/model"
	"github.com/tvabook-dev/tvabook/internal/vat"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func january2025() model.Period {
	return model.Period{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}
}

func testSummary() vat.Summary {
	return vat.Summary{
		Lines: []model.CategoryTotal{
			{Category: "standard", Rate: dec("20"), Total: dec("-100"), Net: dec("-83.3333333333333333"), VAT: dec("-16.6666666666666667"), Deductible: dec("16.6666666666666667"), Count: 1},
			{Category: "unclassified", Rate: decimal.Zero, Total: dec("-10"), Net: dec("-10"), Count: 1},
		},
		GrandTotal: dec("-110"),
		GrandNet:   dec("-93.3333333333333333"),
		GrandVAT:   dec("-16.6666666666666667"),
		VATDue:     dec("-16.6666666666666667"),
	}
}

func TestBuild_RoundsAtTheEdge(t *testing.T) {
	rep := Build(testSummary(), january2025(), "compte-pro")

	assert.Equal(t, "compte-pro", rep.Account)
	require.Len(t, rep.Lines, 2)
	assert.True(t, rep.Lines[0].VAT.Equal(dec("-16.67")), "got %s", rep.Lines[0].VAT)
	assert.True(t, rep.Lines[0].Net.Equal(dec("-83.33")), "got %s", rep.Lines[0].Net)
	assert.True(t, rep.GrandVAT.Equal(dec("-16.67")))
	assert.True(t, rep.GrandTotal.Equal(dec("-110")))
}

func TestBuild_Deterministic(t *testing.T) {
	first := Build(testSummary(), january2025(), "compte-pro")
	second := Build(testSummary(), january2025(), "compte-pro")
	assert.Equal(t, first, second)
}

func TestWriteCSV(t *testing.T) {
	rep := Build(testSummary(), january2025(), "compte-pro")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rep))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)

	assert.Equal(t, "# period 2025-01-01..2025-01-31 account compte-pro", lines[0])
	assert.Equal(t, Header, lines[1])
	assert.Equal(t, "standard,20,-100.00,-83.33,-16.67,0.00,16.67,1", lines[2])
	assert.Equal(t, "unclassified,0,-10.00,-10.00,0.00,0.00,0.00,1", lines[3])
	assert.Equal(t, "TOTAL,,-110.00,-93.33,-16.67,,-16.67,", lines[4])
}

func TestWriteCSV_ByteIdentical(t *testing.T) {
	rep := Build(testSummary(), january2025(), "compte-pro")

	var a, b bytes.Buffer
	require.NoError(t, WriteCSV(&a, rep))
	require.NoError(t, WriteCSV(&b, rep))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvabook-dev/tvabook/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testReport() model.SynthesisReport {
	return model.SynthesisReport{
		Period: model.Period{
			Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		},
		Account: "12345678901",
		Lines: []model.CategoryTotal{
			{Category: "standard", Rate: dec("20"), Total: dec("-100"), Net: dec("-83.33"), VAT: dec("-16.67"), Deductible: dec("16.67"), Count: 1},
			{Category: "réduit", Rate: dec("5.5"), Count: 0},
			{Category: model.UnclassifiedCategory, Total: dec("-10"), Net: dec("-10"), Count: 1},
		},
		GrandTotal: dec("-110"),
		GrandNet:   dec("-93.33"),
		GrandVAT:   dec("-16.67"),
		VATDue:     dec("-16.67"),
	}
}

func TestSaveAndList(t *testing.T) {
	store := openTestStore(t)

	id, err := store.Save(testReport())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "12345678901", rec.Account)
	assert.Equal(t, StatusPending, rec.Status)
	assert.True(t, rec.GrandTotal.Equal(dec("-110")))
	assert.True(t, rec.GrandVAT.Equal(dec("-16.67")))
	assert.Equal(t, 2025, rec.Period.Start.Year())
	assert.Equal(t, 31, rec.Period.End.Day())
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestReferencesCategory(t *testing.T) {
	store := openTestStore(t)

	id, err := store.Save(testReport())
	require.NoError(t, err)

	// Pending report with transactions in the category holds it.
	held, err := store.ReferencesCategory("standard")
	require.NoError(t, err)
	assert.True(t, held)

	// A line with no transactions does not.
	held, err = store.ReferencesCategory("réduit")
	require.NoError(t, err)
	assert.False(t, held)

	held, err = store.ReferencesCategory("ghost")
	require.NoError(t, err)
	assert.False(t, held)

	// Declaring the report releases the hold.
	require.NoError(t, store.MarkDeclared(id))
	held, err = store.ReferencesCategory("standard")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestMarkDeclared_Unknown(t *testing.T) {
	store := openTestStore(t)

	err := store.MarkDeclared("no-such-id")
	var nferr *NotFoundError
	require.ErrorAs(t, err, &nferr)
	assert.Equal(t, "no-such-id", nferr.ID)
}

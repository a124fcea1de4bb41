package rules

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvabook-dev/tvabook/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(DefaultPath(t.TempDir()))
	require.NoError(t, store.Replace(DefaultRules()))
	return store
}

func TestStore_LoadRoundTrip(t *testing.T) {
	path := DefaultPath(t.TempDir())

	store := NewStore(path)
	require.NoError(t, store.Replace(DefaultRules()))
	want := store.Snapshot()

	reloaded := NewStore(path)
	require.NoError(t, reloaded.Load())
	got := reloaded.Snapshot()

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Category, got[i].Category)
		assert.True(t, want[i].Rate.Equal(got[i].Rate))
		assert.Equal(t, want[i].Keywords, got[i].Keywords)
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := NewStore(DefaultPath(t.TempDir()))
	err := store.Load()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Nil(t, store.Snapshot())
}

func TestStore_LoadKeepsPriorSnapshotOnError(t *testing.T) {
	path := DefaultPath(t.TempDir())
	store := NewStore(path)
	require.NoError(t, store.Replace(DefaultRules()))
	before := store.Snapshot()

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	require.Error(t, store.Load())

	assert.Equal(t, before, store.Snapshot())
}

func TestStore_LoadAppendsUnclassified(t *testing.T) {
	dir := t.TempDir()
	path := DefaultPath(dir)
	doc := `{"tva_rates": {"standard": 20}, "keywords": {"standard": ["ovh"]}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	store := NewStore(path)
	require.NoError(t, store.Load())

	snap := store.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, model.UnclassifiedCategory, snap[1].Category)
	assert.True(t, snap[1].Rate.IsZero())
}

func TestStore_UpsertInsertsBeforeUnclassified(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Upsert("matériel", dec("20"), []string{"LDLC", "  Ldlc  ", "fnac"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ldlc", "fnac"}, created.Keywords)

	snap := store.Snapshot()
	last := snap[len(snap)-1]
	assert.Equal(t, model.UnclassifiedCategory, last.Category)
	assert.Equal(t, "matériel", snap[len(snap)-2].Category)
}

func TestStore_UpsertPersists(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Upsert("standard", dec("21"), []string{"ovh"})
	require.NoError(t, err)

	reloaded := NewStore(store.Path())
	require.NoError(t, reloaded.Load())
	rule, ok := reloaded.Get("standard")
	require.True(t, ok)
	assert.True(t, rule.Rate.Equal(dec("21")))
}

func TestStore_UpsertInvalidRate(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Upsert("bad", dec("101"), []string{"x"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "rate", verr.Fields[0].Field)
}

func TestStore_CreateConflictsWithExisting(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create("standard", dec("20"), []string{"x"})
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "standard", cerr.Category)
}

func TestStore_ConcurrentCreatesSingleWinner(t *testing.T) {
	for i := 0; i < 20; i++ {
		store := newTestStore(t)

		errs := make(chan error, 2)
		var wg sync.WaitGroup
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Create("matériel", dec("20"), []string{"ldlc"})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		var created, conflicts int
		for err := range errs {
			if err == nil {
				created++
				continue
			}
			var cerr *ConflictError
			require.ErrorAs(t, err, &cerr)
			conflicts++
		}
		assert.Equal(t, 1, created, "iteration %d", i)
		assert.Equal(t, 1, conflicts, "iteration %d", i)
	}
}

func TestStore_UpdateMerged(t *testing.T) {
	store := newTestStore(t)

	rate := dec("21")
	rule, err := store.UpdateMerged("standard", &rate, nil)
	require.NoError(t, err)
	assert.True(t, rule.Rate.Equal(rate))
	assert.Equal(t, []string{"ovh", "amazon"}, rule.Keywords)

	rule, err = store.UpdateMerged("standard", nil, []string{"scaleway"})
	require.NoError(t, err)
	assert.True(t, rule.Rate.Equal(rate))
	assert.Equal(t, []string{"scaleway"}, rule.Keywords)
}

func TestStore_UpdateMergedUnknown(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpdateMerged("ghost", nil, []string{"x"})
	var nferr *NotFoundError
	require.ErrorAs(t, err, &nferr)
}

func TestStore_ConcurrentPartialUpdatesKeepBothFields(t *testing.T) {
	store := newTestStore(t)
	rate := dec("21")
	keywords := []string{"scaleway"}

	for i := 0; i < 20; i++ {
		_, err := store.Upsert("standard", dec("20"), []string{"ovh"})
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := store.UpdateMerged("standard", &rate, nil)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := store.UpdateMerged("standard", nil, keywords)
			assert.NoError(t, err)
		}()
		wg.Wait()

		rule, ok := store.Get("standard")
		require.True(t, ok)
		assert.True(t, rule.Rate.Equal(rate), "iteration %d: rate lost, got %s", i, rule.Rate)
		assert.Equal(t, keywords, rule.Keywords, "iteration %d: keywords lost", i)
	}
}

func TestStore_RemoveUnclassifiedRejected(t *testing.T) {
	store := newTestStore(t)

	err := store.Remove(model.UnclassifiedCategory)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, ok := store.Get(model.UnclassifiedCategory)
	assert.True(t, ok)
}

func TestStore_RemoveUnknown(t *testing.T) {
	store := newTestStore(t)

	err := store.Remove("ghost")
	var nferr *NotFoundError
	require.ErrorAs(t, err, &nferr)
	assert.Equal(t, "ghost", nferr.Category)
}

func TestStore_RemovePersists(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Remove("standard"))

	reloaded := NewStore(store.Path())
	require.NoError(t, reloaded.Load())
	_, ok := reloaded.Get("standard")
	assert.False(t, ok)
}

func TestStore_PersistFailureLeavesStateIntact(t *testing.T) {
	store := newTestStore(t)
	before := store.Snapshot()
	onDisk, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	// Block the write-through by occupying the temp file slot with a
	// directory.
	require.NoError(t, os.Mkdir(store.Path()+".tmp", 0o755))

	_, err = store.Upsert("matériel", dec("20"), []string{"ldlc"})
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)

	err = store.Remove("standard")
	require.ErrorAs(t, err, &perr)

	// Neither the snapshot nor the persisted document changed.
	assert.Equal(t, before, store.Snapshot())
	after, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, onDisk, after)
}

func TestStore_ReplaceRejectsDuplicates(t *testing.T) {
	store := newTestStore(t)
	before := store.Snapshot()

	err := store.Replace([]model.Rule{
		{Category: "a", Rate: dec("20"), Keywords: []string{"x"}},
		{Category: "a", Rate: dec("10"), Keywords: []string{"y"}},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	assert.Equal(t, before, store.Snapshot())
}

func TestStore_SnapshotIsolation(t *testing.T) {
	store := newTestStore(t)

	snap := store.Snapshot()
	snap[0].Keywords[0] = "mutated"
	snap[0].Category = "mutated"

	fresh := store.Snapshot()
	assert.NotEqual(t, "mutated", fresh[0].Category)
	assert.NotEqual(t, "mutated", fresh[0].Keywords[0])
}

func TestValidateRule_CollectsAllFields(t *testing.T) {
	err := ValidateRule("  ", dec("-1"), nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Contains(t, fields, "category")
	assert.Contains(t, fields, "rate")
	assert.Contains(t, fields, "keywords")
}

func TestValidateRule_UnclassifiedNeedsNoKeywords(t *testing.T) {
	assert.NoError(t, ValidateRule(model.UnclassifiedCategory, decimal.Zero, nil))
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("work", "tva_rules.json"), DefaultPath("work"))
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"fin_dashboard/pkg/core/compare"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCache_Files(t *testing.T) {
	ctx := context.Background()
	cache := NewSnapshotCache(nil, t.TempDir())

	snap := compare.NewSnapshot("Infosys", map[string]interface{}{"total_assets": 1489030000000.0, "current_ratio": "2.3"})
	require.NoError(t, cache.Put(ctx, "infy", snap))

	got, err := cache.Get(ctx, "INFY")
	require.NoError(t, err)
	assert.Equal(t, "Infosys", got.Label)
	f, ok := compare.GetValue(got, "current_ratio").Float()
	require.True(t, ok)
	assert.Equal(t, 2.3, f)

	tickers, err := cache.Tickers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"INFY"}, tickers)

	_, err = cache.Get(ctx, "TCS")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSnapshotCache_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	cache := NewSnapshotCache(nil, t.TempDir())

	assert.Error(t, cache.Put(ctx, "../etc", compare.NewSnapshot("x", nil)))
	assert.Error(t, cache.Put(ctx, "OK", nil))
	_, err := cache.Get(ctx, "")
	assert.Error(t, err)
}

func TestNormalizeTicker(t *testing.T) {
	got, err := NormalizeTicker(" tcs.ns ")
	require.NoError(t, err)
	assert.Equal(t, "TCS.NS", got)

	_, err = NormalizeTicker("a/b")
	assert.Error(t, err)
}

func sampleResult(t *testing.T) *compare.ComparisonResult {
	t.Helper()
	res, err := compare.RunComparison(compare.DefaultCatalog(),
		compare.NewSnapshot("A", map[string]interface{}{"total_assets": 2.0}),
		compare.NewSnapshot("B", map[string]interface{}{"total_assets": 1.0}))
	require.NoError(t, err)
	return res
}

func TestComparisonRepo_NoPool(t *testing.T) {
	repo := NewComparisonRepo(nil)
	ctx := context.Background()

	assert.ErrorIs(t, repo.Save(ctx, &ComparisonRecord{Result: sampleResult(t)}), ErrNoPool)
	_, err := repo.Load(ctx, "x")
	assert.ErrorIs(t, err, ErrNoPool)
	_, err = repo.ListRecent(ctx, 5)
	assert.ErrorIs(t, err, ErrNoPool)
	assert.ErrorIs(t, EnsureSchema(ctx, nil), ErrNoPool)
}

func TestMemoryComparisonRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryComparisonRepo()

	first := &ComparisonRecord{Result: sampleResult(t), CreatedAt: time.Now().Add(-time.Minute)}
	second := &ComparisonRecord{Result: sampleResult(t)}
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := repo.Load(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Result.Company1Label)

	recent, err := repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, second.ID, recent[0].ID)

	_, err = repo.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Error(t, repo.Save(ctx, &ComparisonRecord{}))
}

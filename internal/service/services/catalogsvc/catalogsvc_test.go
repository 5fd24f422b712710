package catalogsvc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wildwest/orderbot/internal/service/models/product"
)

type fakeFetcher struct {
	records []product.StockRecord
	err     error
	calls   int
}

func (f *fakeFetcher) FetchInventory(context.Context) ([]product.StockRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	return f.records, nil
}

func liveRecords() []product.StockRecord {
	return []product.StockRecord{
		{Type: "indica", Name: "og kush", Price: decimal.NewFromInt(60), Stock: 10},
		{Type: "edibles", Name: "premium", Price: decimal.NewFromInt(15), Stock: 25},
		{Type: "edibles", Name: "out of stock", Price: decimal.NewFromInt(12), Stock: 0},
		{Type: "mystery", Name: "unknown tag", Price: decimal.NewFromInt(5), Stock: 5},
	}
}

func TestSnapshotCachesWithinFreshnessWindow(t *testing.T) {
	now := time.Now()
	fetcher := &fakeFetcher{records: liveRecords()}
	svc := MustNewService(
		WithFetcher(fetcher),
		WithFreshness(5*time.Minute),
		WithClock(func() time.Time { return now }),
	)

	first := svc.Snapshot(context.Background(), false)
	require.Equal(t, 1, fetcher.calls)

	now = now.Add(time.Minute)
	second := svc.Snapshot(context.Background(), false)
	assert.Equal(t, 1, fetcher.calls, "cache hit must not refetch")
	assert.Same(t, first, second)

	now = now.Add(10 * time.Minute)
	svc.Snapshot(context.Background(), false)
	assert.Equal(t, 2, fetcher.calls, "stale snapshot must refresh")
}

func TestSnapshotForceRefreshes(t *testing.T) {
	fetcher := &fakeFetcher{records: liveRecords()}
	svc := MustNewService(WithFetcher(fetcher), WithFreshness(time.Hour))

	svc.Snapshot(context.Background(), false)
	svc.Snapshot(context.Background(), true)
	assert.Equal(t, 2, fetcher.calls)
}

func TestSnapshotFiltersStockAndUnknownTags(t *testing.T) {
	fetcher := &fakeFetcher{records: liveRecords()}
	svc := MustNewService(WithFetcher(fetcher))

	snap := svc.Snapshot(context.Background(), false)

	edibles := snap.OptionsFor(product.CategoryEdibles)
	require.Len(t, edibles, 1)
	assert.Equal(t, "premium", edibles[0].Name)

	assert.Len(t, snap.OptionsFor(product.CategoryIndica), 1)
	assert.Empty(t, snap.OptionsFor(product.CategorySativa))
}

func TestFetchFailureServesLastKnownGood(t *testing.T) {
	now := time.Now()
	fetcher := &fakeFetcher{records: liveRecords()}
	svc := MustNewService(
		WithFetcher(fetcher),
		WithFreshness(time.Minute),
		WithClock(func() time.Time { return now }),
	)

	good := svc.Snapshot(context.Background(), false)

	fetcher.err = errors.New("remote store unreachable")
	now = now.Add(time.Hour)

	degraded := svc.Snapshot(context.Background(), false)
	assert.Same(t, good, degraded, "stale snapshot is served unchanged on fetch failure")
}

func TestFetchFailureWithNoSnapshotServesDefaults(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("remote store unreachable")}
	svc := MustNewService(WithFetcher(fetcher))

	snap := svc.Snapshot(context.Background(), false)
	require.NotNil(t, snap)

	for _, cat := range []product.Category{product.CategoryIndica, product.CategorySativa, product.CategoryHybrid} {
		opts := snap.OptionsFor(cat)
		require.NotEmpty(t, opts, "default catalog must cover %s", cat)
		assert.True(t, opts[0].Price.IsPositive())
	}
}

func TestBulkOptionsAlwaysPresent(t *testing.T) {
	fetcher := &fakeFetcher{records: nil}
	svc := MustNewService(WithFetcher(fetcher))

	snap := svc.Snapshot(context.Background(), false)
	opts := snap.OptionsFor(product.CategoryLocal)
	require.Len(t, opts, 1)
	assert.Equal(t, product.LocalOptionName, opts[0].Name)
}

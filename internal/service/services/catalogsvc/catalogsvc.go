package catalogsvc

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/viper"
	"github.com/wildwest/orderbot/internal/service/models/product"
)

// inventoryFetcher reads the remote inventory sheet.
type inventoryFetcher interface {
	FetchInventory(ctx context.Context) ([]product.StockRecord, error)
}

// Service caches a catalog snapshot over the remote inventory source.
// A snapshot older than the freshness window is refreshed before
// being trusted; on refresh failure the last known-good snapshot is
// served regardless of age, then the hardcoded default catalog.
type Service struct {
	fetcher   inventoryFetcher
	freshness time.Duration
	now       func() time.Time

	// mu is held only for the snapshot swap, never across the fetch.
	mu   sync.Mutex
	snap *product.Snapshot
}

// option is a function that configures the Service.
type option func(*Service)

// MustNewService creates a new catalog Service.
func MustNewService(opts ...option) *Service {
	freshness := viper.GetDuration("catalog.freshness")
	if freshness == 0 {
		freshness = 5 * time.Minute
	}

	s := &Service{
		freshness: freshness,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.fetcher == nil {
		panic("catalogsvc: inventory fetcher is required")
	}

	return s
}

// WithFetcher sets the inventory source for the Service.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithFetcher(fetcher inventoryFetcher) option {
	return func(s *Service) {
		s.fetcher = fetcher
	}
}

// WithFreshness overrides the snapshot freshness window.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithFreshness(d time.Duration) option {
	return func(s *Service) {
		s.freshness = d
	}
}

// WithClock overrides the clock, for tests.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *Service) {
		s.now = now
	}
}

func (s *Service) load() *product.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snap
}

func (s *Service) store(snap *product.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

// Snapshot returns the current catalog snapshot, refreshing it when
// stale or forced. It never fails: degraded fallbacks are served
// instead.
func (s *Service) Snapshot(ctx context.Context, force bool) *product.Snapshot {
	now := s.now()

	if snap := s.load(); snap != nil && !force && now.Sub(snap.FetchedAt) < s.freshness {
		return snap
	}

	records, err := s.fetcher.FetchInventory(ctx)
	if err != nil {
		if snap := s.load(); snap != nil {
			slog.Warn("Inventory refresh failed, serving last known-good snapshot",
				"error", err, "snapshot_age", now.Sub(snap.FetchedAt))

			return snap
		}

		slog.Warn("Inventory refresh failed with no snapshot, serving default catalog", "error", err)

		return product.DefaultSnapshot(now)
	}

	snap := product.BuildSnapshot(records, now)
	s.store(snap)

	return snap
}

package orderstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wildwest/orderbot/internal/dal/recordstore"
	"github.com/wildwest/orderbot/internal/service/models/order"
	"github.com/wildwest/orderbot/internal/service/models/status"
	"github.com/wildwest/orderbot/internal/service/ratelimit"
	"github.com/wildwest/orderbot/pkg/retry"
)

// memStore is an in-memory recordstore.Client for tests.
type memStore struct {
	mu     sync.Mutex
	sheets map[string][]recordstore.Row
	next   int64

	scanErr   error
	appendErr error
}

func newMemStore() *memStore {
	return &memStore{sheets: make(map[string][]recordstore.Row), next: 1}
}

func (m *memStore) AppendRow(_ context.Context, sheet string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}

	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	m.sheets[sheet] = append(m.sheets[sheet], recordstore.Row{Index: m.next, Values: copied})
	m.next++

	return nil
}

func (m *memStore) ScanAll(_ context.Context, sheet string) ([]recordstore.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scanErr != nil {
		return nil, m.scanErr
	}

	return append([]recordstore.Row(nil), m.sheets[sheet]...), nil
}

func (m *memStore) UpdateCell(_ context.Context, sheet string, rowIndex int64, column, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.sheets[sheet] {
		if m.sheets[sheet][i].Index == rowIndex {
			m.sheets[sheet][i].Values[column] = value

			return nil
		}
	}

	return recordstore.ErrRowNotFound
}

func (m *memStore) Ping(context.Context) error { return nil }

// memBlobs is an in-memory blobstore.Client for tests.
type memBlobs struct {
	mu       sync.Mutex
	uploads  []string
	failures int
}

func (b *memBlobs) Upload(_ context.Context, _ []byte, filename, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures > 0 {
		b.failures--

		return "", errors.New("upload failed")
	}
	b.uploads = append(b.uploads, filename)

	return "https://blobs.example/" + filename, nil
}

func (b *memBlobs) Ping(context.Context) error { return nil }

func noLimits() *ratelimit.ClassLimiter {
	return ratelimit.NewClassLimiter(map[string]time.Duration{})
}

func fastRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, Multiplier: 2}
}

func testOrder() *order.Order {
	return &order.Order{
		ID:           "WW-1234-ABC",
		CustomerID:   42,
		CustomerName: "Juan Dela Cruz",
		Address:      "123 Main St, City",
		Contact:      "09171234567",
		Items: []order.LineItem{
			{Quantity: 3, LineTotal: decimal.NewFromInt(45)},
		},
		Total:     decimal.NewFromInt(45),
		Status:    status.StatusPendingReview,
		ProofURL:  "https://blobs.example/proof.jpg",
		CreatedAt: time.Date(2024, 4, 5, 12, 0, 0, 0, time.UTC),
		Notes:     "• Edibles premium — 3 pc",
	}
}

func TestCreateThenGetRoundTrips(t *testing.T) {
	records := newMemStore()
	a := MustNewAdapter(
		WithRecordStore(records),
		WithBlobStore(&memBlobs{}),
		WithClassLimiter(noLimits()),
	)

	ctx := context.Background()
	o := testOrder()
	require.NoError(t, a.Create(ctx, o))

	got, err := a.Get(ctx, "WW-1234-ABC")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, o.CustomerID, got.CustomerID)
	assert.Equal(t, o.CustomerName, got.CustomerName)
	assert.True(t, got.Total.Equal(o.Total))
	assert.Equal(t, status.StatusPendingReview, got.Status)
	assert.Equal(t, o.Notes, got.Notes)
}

func TestGetMissReturnsNotFound(t *testing.T) {
	a := MustNewAdapter(WithRecordStore(newMemStore()), WithClassLimiter(noLimits()))

	_, err := a.Get(context.Background(), "WW-0000-XYZ")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGetIgnoresNonWholeOrderRows(t *testing.T) {
	records := newMemStore()
	require.NoError(t, records.AppendRow(context.Background(), recordstore.SheetOrders, map[string]string{
		recordstore.ColOrderID: "WW-1234-ABC",
		recordstore.ColProduct: "DETAIL",
	}))

	a := MustNewAdapter(WithRecordStore(records), WithClassLimiter(noLimits()))
	_, err := a.Get(context.Background(), "WW-1234-ABC")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatusAndTracking(t *testing.T) {
	records := newMemStore()
	a := MustNewAdapter(WithRecordStore(records), WithClassLimiter(noLimits()))

	ctx := context.Background()
	require.NoError(t, a.Create(ctx, testOrder()))

	require.NoError(t, a.UpdateStatus(ctx, "WW-1234-ABC", status.StatusBooked))
	require.NoError(t, a.SetTracking(ctx, "WW-1234-ABC", "https://track.example/123"))

	got, err := a.Get(ctx, "WW-1234-ABC")
	require.NoError(t, err)
	assert.Equal(t, status.StatusBooked, got.Status)
	assert.Equal(t, "https://track.example/123", got.TrackingLink)
}

func TestListFiltersAndSortsNewestFirst(t *testing.T) {
	records := newMemStore()
	a := MustNewAdapter(WithRecordStore(records), WithClassLimiter(noLimits()))
	ctx := context.Background()

	older := testOrder()
	older.ID = "WW-0001-AAA"
	older.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, a.Create(ctx, older))

	newer := testOrder()
	newer.ID = "WW-0002-BBB"
	newer.Status = status.StatusBooked
	newer.CreatedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, a.Create(ctx, newer))

	all, err := a.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "WW-0002-BBB", all[0].ID)
	assert.Equal(t, "WW-0001-AAA", all[1].ID)

	booked, err := a.List(ctx, status.StatusBooked)
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, "WW-0002-BBB", booked[0].ID)
}

func TestUploadProofRetriesThenSucceeds(t *testing.T) {
	blobs := &memBlobs{failures: 2}
	a := MustNewAdapter(
		WithRecordStore(newMemStore()),
		WithBlobStore(blobs),
		WithClassLimiter(noLimits()),
		WithUploadRetry(fastRetry()),
	)

	now := time.Date(2024, 4, 5, 12, 0, 0, 0, time.UTC)
	url, err := a.UploadProof(context.Background(), []byte("jpeg"), "image/jpeg", "Juan Dela Cruz", now)
	require.NoError(t, err)
	assert.Contains(t, url, "Order_20240405T120000Z_Juan_Dela_Cruz.jpg")
}

func TestUploadProofSurfacesFinalFailure(t *testing.T) {
	blobs := &memBlobs{failures: 5}
	a := MustNewAdapter(
		WithRecordStore(newMemStore()),
		WithBlobStore(blobs),
		WithClassLimiter(noLimits()),
		WithUploadRetry(fastRetry()),
	)

	_, err := a.UploadProof(context.Background(), []byte("jpeg"), "image/jpeg", "Juan", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrExhausted)
}

func TestFetchInventorySkipsMalformedRows(t *testing.T) {
	records := newMemStore()
	ctx := context.Background()

	require.NoError(t, records.AppendRow(ctx, recordstore.SheetInventory, map[string]string{
		recordstore.ColInvType: "indica", recordstore.ColInvName: "og kush",
		recordstore.ColInvPrice: "50", recordstore.ColInvStock: "12",
	}))
	require.NoError(t, records.AppendRow(ctx, recordstore.SheetInventory, map[string]string{
		recordstore.ColInvType: "sativa", recordstore.ColInvName: "broken",
		recordstore.ColInvPrice: "not-a-price", recordstore.ColInvStock: "3",
	}))

	a := MustNewAdapter(WithRecordStore(records), WithClassLimiter(noLimits()))
	recs, err := a.FetchInventory(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "og kush", recs[0].Name)
	assert.True(t, recs[0].Price.Equal(decimal.NewFromInt(50)))
}

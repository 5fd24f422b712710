package orderstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/wildwest/orderbot/internal/dal/blobstore"
	"github.com/wildwest/orderbot/internal/dal/recordstore"
	"github.com/wildwest/orderbot/internal/service/models/order"
	"github.com/wildwest/orderbot/internal/service/models/product"
	"github.com/wildwest/orderbot/internal/service/models/status"
	"github.com/wildwest/orderbot/internal/service/ratelimit"
	"github.com/wildwest/orderbot/pkg/retry"
	"go.opentelemetry.io/otel"
)

// Resource classes used for rate limiting outbound remote calls.
const (
	ClassSheetRead   = "sheet_read"
	ClassSheetWrite  = "sheet_write"
	ClassDriveUpload = "drive_upload"
)

// wholeOrderMarker tags a row as representing the order as a unit.
const wholeOrderMarker = "WHOLE_ORDER"

var ErrOrderNotFound = errors.New("order not found")

// Adapter is the rate-limited, retrying façade over the tabular
// record store and the blob store. It is the sole writer of persisted
// order rows.
type Adapter struct {
	records     recordstore.Client
	blobs       blobstore.Client
	limits      *ratelimit.ClassLimiter
	uploadRetry retry.Policy
}

// option is a function that configures the Adapter.
type option func(*Adapter)

// MustNewAdapter creates a new Adapter.
func MustNewAdapter(opts ...option) *Adapter {
	a := &Adapter{
		uploadRetry: retry.Policy{
			MaxAttempts:    3,
			InitialBackoff: 2 * time.Second,
			Multiplier:     2,
		},
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.records == nil {
		panic("orderstore: record store client is required")
	}
	if a.limits == nil {
		a.limits = ratelimit.NewClassLimiter(map[string]time.Duration{
			ClassSheetRead:   viper.GetDuration("store.spacing.sheet_read"),
			ClassSheetWrite:  viper.GetDuration("store.spacing.sheet_write"),
			ClassDriveUpload: viper.GetDuration("store.spacing.drive_upload"),
		})
	}

	return a
}

// WithRecordStore sets the tabular store client for the Adapter.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRecordStore(records recordstore.Client) option {
	return func(a *Adapter) {
		a.records = records
	}
}

// WithBlobStore sets the blob store client for the Adapter.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithBlobStore(blobs blobstore.Client) option {
	return func(a *Adapter) {
		a.blobs = blobs
	}
}

// WithClassLimiter sets the per-resource-class rate limiter.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClassLimiter(limits *ratelimit.ClassLimiter) option {
	return func(a *Adapter) {
		a.limits = limits
	}
}

// WithUploadRetry overrides the blob upload retry policy.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUploadRetry(p retry.Policy) option {
	return func(a *Adapter) {
		a.uploadRetry = p
	}
}

// orderDal maps an Order to and from a whole-order sheet row.
type orderDal struct {
	row recordstore.Row
}

func rowValues(o *order.Order) map[string]string {
	return map[string]string{
		recordstore.ColOrderID:    o.ID,
		recordstore.ColCustomerID: strconv.FormatInt(o.CustomerID, 10),
		recordstore.ColName:       o.CustomerName,
		recordstore.ColAddress:    o.Address,
		recordstore.ColContact:    o.Contact,
		recordstore.ColProduct:    wholeOrderMarker,
		recordstore.ColQuantity:   strconv.Itoa(o.ItemCount()),
		recordstore.ColPrice:      o.Total.StringFixed(2),
		recordstore.ColStatus:     o.Status.String(),
		recordstore.ColProofURL:   o.ProofURL,
		recordstore.ColOrderDate:  o.CreatedAt.UTC().Format(time.RFC3339),
		recordstore.ColNotes:      o.Notes,
		recordstore.ColTracking:   o.TrackingLink,
	}
}

// toModel converts a whole-order row back into an Order. Rows not
// tagged with the whole-order marker are not orders.
func (d orderDal) toModel() (*order.Order, error) {
	v := d.row.Values
	if v[recordstore.ColProduct] != wholeOrderMarker {
		return nil, ErrOrderNotFound
	}

	customerID, err := strconv.ParseInt(v[recordstore.ColCustomerID], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed customer id %q: %w", v[recordstore.ColCustomerID], err)
	}

	st, err := status.Parse(v[recordstore.ColStatus])
	if err != nil {
		return nil, fmt.Errorf("malformed status %q: %w", v[recordstore.ColStatus], err)
	}

	total, err := decimal.NewFromString(v[recordstore.ColPrice])
	if err != nil {
		return nil, fmt.Errorf("malformed total %q: %w", v[recordstore.ColPrice], err)
	}

	createdAt, err := time.Parse(time.RFC3339, v[recordstore.ColOrderDate])
	if err != nil {
		return nil, fmt.Errorf("malformed order date %q: %w", v[recordstore.ColOrderDate], err)
	}

	return &order.Order{
		ID:           v[recordstore.ColOrderID],
		CustomerID:   customerID,
		CustomerName: v[recordstore.ColName],
		Address:      v[recordstore.ColAddress],
		Contact:      v[recordstore.ColContact],
		Total:        total,
		Status:       st,
		ProofURL:     v[recordstore.ColProofURL],
		TrackingLink: v[recordstore.ColTracking],
		CreatedAt:    createdAt,
		Notes:        v[recordstore.ColNotes],
	}, nil
}

// Create appends the whole-order row for a committed order.
func (a *Adapter) Create(ctx context.Context, o *order.Order) error {
	ctx, span := otel.Tracer("orderbot").Start(ctx, "OrderStore.Create")
	defer span.End()

	if err := a.limits.Wait(ctx, ClassSheetWrite); err != nil {
		return err
	}

	if err := a.records.AppendRow(ctx, recordstore.SheetOrders, rowValues(o)); err != nil {
		return fmt.Errorf("failed to append order row: %w", err)
	}

	return nil
}

// Get looks up an order by exact identifier, scanning all rows.
func (a *Adapter) Get(ctx context.Context, id string) (*order.Order, error) {
	ctx, span := otel.Tracer("orderbot").Start(ctx, "OrderStore.Get")
	defer span.End()

	row, err := a.findRow(ctx, id)
	if err != nil {
		return nil, err
	}

	return orderDal{row: *row}.toModel()
}

// List returns all whole-order rows, optionally filtered by status,
// sorted by creation timestamp descending. Malformed rows are
// skipped with a warning.
func (a *Adapter) List(ctx context.Context, filter status.Status) ([]order.Order, error) {
	ctx, span := otel.Tracer("orderbot").Start(ctx, "OrderStore.List")
	defer span.End()

	if err := a.limits.Wait(ctx, ClassSheetRead); err != nil {
		return nil, err
	}

	rows, err := a.records.ScanAll(ctx, recordstore.SheetOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to scan orders: %w", err)
	}

	var orders []order.Order
	for _, row := range rows {
		if row.Values[recordstore.ColProduct] != wholeOrderMarker {
			continue
		}

		o, err := orderDal{row: row}.toModel()
		if err != nil {
			slog.Warn("Skipping malformed order row", "row_index", row.Index, "error", err)

			continue
		}

		if filter != "" && o.Status != filter {
			continue
		}
		orders = append(orders, *o)
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	return orders, nil
}

// UpdateStatus overwrites the status cell of the order's row.
func (a *Adapter) UpdateStatus(ctx context.Context, id string, st status.Status) error {
	ctx, span := otel.Tracer("orderbot").Start(ctx, "OrderStore.UpdateStatus")
	defer span.End()

	return a.updateCell(ctx, id, recordstore.ColStatus, st.String())
}

// SetTracking overwrites the tracking-link cell of the order's row.
func (a *Adapter) SetTracking(ctx context.Context, id, link string) error {
	ctx, span := otel.Tracer("orderbot").Start(ctx, "OrderStore.SetTracking")
	defer span.End()

	return a.updateCell(ctx, id, recordstore.ColTracking, link)
}

func (a *Adapter) updateCell(ctx context.Context, id, column, value string) error {
	row, err := a.findRow(ctx, id)
	if err != nil {
		return err
	}

	if err := a.limits.Wait(ctx, ClassSheetWrite); err != nil {
		return err
	}

	if err := a.records.UpdateCell(ctx, recordstore.SheetOrders, row.Index, column, value); err != nil {
		return fmt.Errorf("failed to update %s of %s: %w", column, id, err)
	}

	return nil
}

func (a *Adapter) findRow(ctx context.Context, id string) (*recordstore.Row, error) {
	if err := a.limits.Wait(ctx, ClassSheetRead); err != nil {
		return nil, err
	}

	rows, err := a.records.ScanAll(ctx, recordstore.SheetOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to scan orders: %w", err)
	}

	for i := range rows {
		if rows[i].Values[recordstore.ColOrderID] == id &&
			rows[i].Values[recordstore.ColProduct] == wholeOrderMarker {
			return &rows[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
}

var filenameRe = regexp.MustCompile(`[^A-Za-z0-9]+`)

// ProofFilename builds the blob name for a payment proof:
// Order_<UTC timestamp>_<sanitized customer name>.jpg.
func ProofFilename(customerName string, now time.Time) string {
	sanitized := filenameRe.ReplaceAllString(customerName, "_")

	return fmt.Sprintf("Order_%s_%s.jpg", now.UTC().Format("20060102T150405Z"), sanitized)
}

// UploadProof uploads a payment-proof blob with bounded retry and
// returns its public view URL. The final failure is surfaced after
// the attempts are exhausted.
func (a *Adapter) UploadProof(ctx context.Context, data []byte, mimeType, customerName string, now time.Time) (string, error) {
	ctx, span := otel.Tracer("orderbot").Start(ctx, "OrderStore.UploadProof")
	defer span.End()

	filename := ProofFilename(customerName, now)

	var url string
	err := retry.Do(ctx, a.uploadRetry, func(ctx context.Context) error {
		if err := a.limits.Wait(ctx, ClassDriveUpload); err != nil {
			return err
		}

		var err error
		url, err = a.blobs.Upload(ctx, data, filename, mimeType)

		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload payment proof: %w", err)
	}

	return url, nil
}

// FetchInventory reads the inventory sheet into stock records.
// Malformed rows are silently skipped.
func (a *Adapter) FetchInventory(ctx context.Context) ([]product.StockRecord, error) {
	ctx, span := otel.Tracer("orderbot").Start(ctx, "OrderStore.FetchInventory")
	defer span.End()

	if err := a.limits.Wait(ctx, ClassSheetRead); err != nil {
		return nil, err
	}

	rows, err := a.records.ScanAll(ctx, recordstore.SheetInventory)
	if err != nil {
		return nil, fmt.Errorf("failed to scan inventory: %w", err)
	}

	var records []product.StockRecord
	for _, row := range rows {
		price, err := decimal.NewFromString(row.Values[recordstore.ColInvPrice])
		if err != nil {
			continue
		}
		stock, err := strconv.Atoi(row.Values[recordstore.ColInvStock])
		if err != nil {
			continue
		}

		records = append(records, product.StockRecord{
			Type:  row.Values[recordstore.ColInvType],
			Name:  row.Values[recordstore.ColInvName],
			Price: price,
			Stock: stock,
		})
	}

	return records, nil
}

// PingStore reports tabular store connectivity.
func (a *Adapter) PingStore(ctx context.Context) error {
	return a.records.Ping(ctx)
}

// PingBlob reports blob store connectivity.
func (a *Adapter) PingBlob(ctx context.Context) error {
	if a.blobs == nil {
		return errors.New("blob store not configured")
	}

	return a.blobs.Ping(ctx)
}

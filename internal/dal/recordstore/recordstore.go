package recordstore

import (
	"context"
	"errors"
)

// Sheet names of the remote tabular store.
const (
	SheetOrders    = "orders"
	SheetInventory = "inventory"
)

// Columns of the orders sheet.
const (
	ColOrderID    = "order_id"
	ColCustomerID = "customer_id"
	ColName       = "name"
	ColAddress    = "address"
	ColContact    = "contact"
	ColProduct    = "product"
	ColQuantity   = "quantity"
	ColPrice      = "price"
	ColStatus     = "status"
	ColProofURL   = "proof_url"
	ColOrderDate  = "order_date"
	ColNotes      = "notes"
	ColTracking   = "tracking_link"
)

// Columns of the inventory sheet.
const (
	ColInvType  = "type"
	ColInvName  = "name"
	ColInvPrice = "price"
	ColInvStock = "stock"
)

// OrdersColumns is the fixed header of the orders sheet.
var OrdersColumns = []string{
	ColOrderID, ColCustomerID, ColName, ColAddress, ColContact,
	ColProduct, ColQuantity, ColPrice, ColStatus, ColProofURL,
	ColOrderDate, ColNotes, ColTracking,
}

// InventoryColumns is the fixed header of the inventory sheet.
var InventoryColumns = []string{ColInvType, ColInvName, ColInvPrice, ColInvStock}

var (
	ErrUnknownSheet  = errors.New("unknown sheet")
	ErrUnknownColumn = errors.New("unknown column")
	ErrRowNotFound   = errors.New("row not found")
)

// Row is one sheet row: its append-order index plus cell values keyed
// by column name.
type Row struct {
	Index  int64
	Values map[string]string
}

// Client is the tabular record store. Rows have no indexed lookup;
// every read is a full scan and matching happens client-side.
// Concurrent writers race with last-write-wins per cell.
type Client interface {
	AppendRow(ctx context.Context, sheet string, values map[string]string) error
	ScanAll(ctx context.Context, sheet string) ([]Row, error)
	UpdateCell(ctx context.Context, sheet string, rowIndex int64, column, value string) error
	Ping(ctx context.Context) error
}

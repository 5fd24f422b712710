package postgres

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/viper"
	"github.com/wildwest/orderbot/internal/dal/recordstore"
)

// Client implements recordstore.Client on Postgres. Each sheet is a
// table of text cells keyed by an append-order row index; the sheets
// are created lazily on first use.
type Client struct {
	pool *pgxpool.Pool

	initOnce sync.Once
	initErr  error
}

var _ recordstore.Client = (*Client)(nil)

var sheetTables = map[string]string{
	recordstore.SheetOrders:    "sheet_orders",
	recordstore.SheetInventory: "sheet_inventory",
}

var sheetColumns = map[string][]string{
	recordstore.SheetOrders:    recordstore.OrdersColumns,
	recordstore.SheetInventory: recordstore.InventoryColumns,
}

// MustNewClient creates a new Postgres-backed record store client.
func MustNewClient() *Client {
	connStr := fmt.Sprintf(
		"host=%s port=5432 user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("ORDERBOT_PG_HOST"),
		os.Getenv("ORDERBOT_PG_USER"),
		os.Getenv("ORDERBOT_PG_PASSWORD"),
		os.Getenv("ORDERBOT_PG_DB"),
	)

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		panic(err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		panic(err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		panic(err)
	}

	return &Client{pool: pool}
}

// Close closes the database connection for graceful shutdown.
func (c *Client) Close() {
	c.pool.Close()
}

// ensureSheets creates the sheet tables once, on first use.
func (c *Client) ensureSheets() error {
	c.initOnce.Do(func() {
		if err := goose.SetDialect("postgres"); err != nil {
			c.initErr = err

			return
		}

		db := stdlib.OpenDBFromPool(c.pool)
		c.initErr = goose.Up(db, viper.GetString("postgres.migrations_path"))
	})

	return c.initErr
}

func resolve(sheet, column string) (table string, err error) {
	table, ok := sheetTables[sheet]
	if !ok {
		return "", fmt.Errorf("%w: %s", recordstore.ErrUnknownSheet, sheet)
	}
	if column != "" && !slices.Contains(sheetColumns[sheet], column) {
		return "", fmt.Errorf("%w: %s.%s", recordstore.ErrUnknownColumn, sheet, column)
	}

	return table, nil
}

// AppendRow appends a row to the sheet. Missing cells stay empty.
func (c *Client) AppendRow(ctx context.Context, sheet string, values map[string]string) error {
	if err := c.ensureSheets(); err != nil {
		return err
	}

	table, err := resolve(sheet, "")
	if err != nil {
		return err
	}

	setMap := sq.Eq{}
	for column, value := range values {
		if !slices.Contains(sheetColumns[sheet], column) {
			return fmt.Errorf("%w: %s.%s", recordstore.ErrUnknownColumn, sheet, column)
		}
		setMap[column] = value
	}

	query, args, err := sq.Insert(table).
		SetMap(setMap).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build append query: %w", err)
	}

	if _, err := c.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to append row to %s: %w", sheet, err)
	}

	return nil
}

// ScanAll returns every row of the sheet in append order.
func (c *Client) ScanAll(ctx context.Context, sheet string) ([]recordstore.Row, error) {
	if err := c.ensureSheets(); err != nil {
		return nil, err
	}

	table, err := resolve(sheet, "")
	if err != nil {
		return nil, err
	}

	columns := sheetColumns[sheet]
	query, args, err := sq.Select(append([]string{"row_index"}, columns...)...).
		From(table).
		OrderBy("row_index").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan query: %w", err)
	}

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", sheet, err)
	}
	defer rows.Close()

	var result []recordstore.Row
	for rows.Next() {
		dest := make([]any, len(columns)+1)
		var rowIndex int64
		cells := make([]string, len(columns))
		dest[0] = &rowIndex
		for i := range cells {
			dest[i+1] = &cells[i]
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		values := make(map[string]string, len(columns))
		for i, column := range columns {
			values[column] = cells[i]
		}

		result = append(result, recordstore.Row{Index: rowIndex, Values: values})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// UpdateCell overwrites one cell of one row. Last write wins.
func (c *Client) UpdateCell(ctx context.Context, sheet string, rowIndex int64, column, value string) error {
	if err := c.ensureSheets(); err != nil {
		return err
	}

	table, err := resolve(sheet, column)
	if err != nil {
		return err
	}

	query, args, err := sq.Update(table).
		Set(column, value).
		Where(sq.Eq{"row_index": rowIndex}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := c.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update cell %s.%s: %w", sheet, column, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s row %d", recordstore.ErrRowNotFound, sheet, rowIndex)
	}

	return nil
}

// Ping reports store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

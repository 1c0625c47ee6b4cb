package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pos/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

var (
	// ErrInventoryDisabled no PostgreSQL inventory DSN is configured
	ErrInventoryDisabled = errors.New("inventory sync is not configured")
	// ErrNoStock the stock has no batch with units on hand
	ErrNoStock = errors.New("no stock available")
	// ErrInsufficientStock on-hand units are fewer than the quantity sold
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductStock one stock row of a product in the inventory database
type ProductStock struct {
	ProductID    int64   `db:"product_id"`
	ProductName  string  `db:"product_name"`
	CategoryName string  `db:"category_name"`
	StockID      int64   `db:"stock_id"`
	VariantName  string  `db:"variant_name"`
	Cost         float64 `db:"cost"`
	Price        float64 `db:"price"`
	Quantity     int64   `db:"quantity"`
}

// StockDecrement outcome of a FIFO decrement
type StockDecrement struct {
	StockID   int64 `db:"-" json:"stock_id"`
	Available int64 `db:"available" json:"available"`
	Deducted  int64 `db:"deducted" json:"deducted"`
	Remaining int64 `db:"remaining" json:"remaining"`
}

// StockLister reads the product catalogue with stock levels
type StockLister interface {
	ListStocks(ctx context.Context) ([]ProductStock, error)
}

// StockDecrementer removes sold units from the inventory database
type StockDecrementer interface {
	DecrementFIFO(ctx context.Context, stockID, qty int64) (*StockDecrement, error)
}

// InventorySource external PostgreSQL inventory database
type InventorySource struct {
	DB *sqlx.DB
}

// NewInventorySource connects to the inventory database. Returns
// ErrInventoryDisabled when no DSN is configured.
func NewInventorySource(ctx context.Context, cfg *config.InventoryConfig) (*InventorySource, error) {
	if cfg.DSN == "" {
		return nil, ErrInventoryDisabled
	}
	db, err := sqlx.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open inventory db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping inventory db: %w", err)
	}
	return &InventorySource{DB: db}, nil
}

// NewInventorySourceFromDB wraps an existing connection
func NewInventorySourceFromDB(db *sqlx.DB) *InventorySource {
	return &InventorySource{DB: db}
}

// Close closes the connection pool
func (s *InventorySource) Close() error {
	return s.DB.Close()
}

const listStocksQuery = `
SELECT
    p.id AS product_id,
    p.name AS product_name,
    COALESCE(p.category, '') AS category_name,
    s.id AS stock_id,
    COALESCE(s.name, '') AS variant_name,
    COALESCE(s.cost, 0)::float8 AS cost,
    COALESCE(s.price, 0)::float8 AS price,
    GREATEST(0, COALESCE(s.quantity, 0))::bigint AS quantity
FROM products p
JOIN product_stocks s ON s.product_id = p.id
ORDER BY p.id, s.id`

// ListStocks returns every stock row joined with its product, quantities clamped at zero
func (s *InventorySource) ListStocks(ctx context.Context) ([]ProductStock, error) {
	var stocks []ProductStock
	if err := s.DB.SelectContext(ctx, &stocks, listStocksQuery); err != nil {
		return nil, fmt.Errorf("list stocks: %w", err)
	}
	return stocks, nil
}

// fifoDecrementQuery drains open batches of stock $1 by ascending expiry until
// $2 units are removed, then writes the clamped stock total. Nothing is
// written when fewer than $2 units are on hand.
const fifoDecrementQuery = `
WITH ranked AS (
    SELECT id, quantity,
           SUM(quantity) OVER (ORDER BY expiry_date ASC NULLS LAST, id ASC) AS running_total
    FROM stock_batches
    WHERE stock_id = $1 AND quantity > 0
),
available AS (
    SELECT COALESCE(SUM(quantity), 0)::bigint AS total FROM ranked
),
deductions AS (
    SELECT r.id,
           LEAST(r.quantity, GREATEST(0, $2 - (r.running_total - r.quantity))) AS deduct
    FROM ranked r, available a
    WHERE a.total >= $2
),
updated AS (
    UPDATE stock_batches b
    SET quantity = b.quantity - d.deduct
    FROM deductions d
    WHERE b.id = d.id AND d.deduct > 0
    RETURNING b.id, d.deduct
),
stock_update AS (
    UPDATE product_stocks s
    SET quantity = GREATEST(0, s.quantity - (SELECT COALESCE(SUM(deduct), 0) FROM updated))
    WHERE s.id = $1 AND EXISTS (SELECT 1 FROM updated)
    RETURNING s.quantity
)
SELECT
    (SELECT total FROM available) AS available,
    (SELECT COALESCE(SUM(deduct), 0)::bigint FROM updated) AS deducted,
    COALESCE((SELECT quantity FROM stock_update), 0)::bigint AS remaining`

// DecrementFIFO removes qty units from stockID, earliest-expiring batches first
func (s *InventorySource) DecrementFIFO(ctx context.Context, stockID, qty int64) (*StockDecrement, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("decrement stock %d: quantity must be positive", stockID)
	}

	res := &StockDecrement{StockID: stockID}
	if err := s.DB.GetContext(ctx, res, fifoDecrementQuery, stockID, qty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("decrement stock %d: %w", stockID, ErrNoStock)
		}
		return nil, fmt.Errorf("decrement stock %d: %w", stockID, err)
	}

	switch {
	case res.Available == 0:
		return res, fmt.Errorf("stock %d: %w", stockID, ErrNoStock)
	case res.Available < qty:
		return res, fmt.Errorf("stock %d: %w (available %d, requested %d)", stockID, ErrInsufficientStock, res.Available, qty)
	}
	return res, nil
}

//go:build integration
// +build integration

package service

import (
	"context"
	"testing"
	"time"

	"pos/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const inventorySchema = `
CREATE TABLE products (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    category VARCHAR(100)
);
CREATE TABLE product_stocks (
    id SERIAL PRIMARY KEY,
    product_id INTEGER NOT NULL REFERENCES products(id),
    name VARCHAR(255),
    cost NUMERIC(10,2),
    price NUMERIC(10,2),
    quantity INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE stock_batches (
    id SERIAL PRIMARY KEY,
    stock_id INTEGER NOT NULL REFERENCES product_stocks(id),
    quantity INTEGER NOT NULL DEFAULT 0,
    expiry_date DATE
);`

// setupInventoryDB starts PostgreSQL with one product, one stock of 10 units
// split over three batches.
func setupInventoryDB(t *testing.T) *InventorySource {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("inventory"),
		postgres.WithUsername("pos"),
		postgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	src, err := NewInventorySource(ctx, &config.InventoryConfig{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })

	src.DB.MustExec(inventorySchema)
	src.DB.MustExec(`INSERT INTO products (id, name, category) VALUES (1, 'Milk Tea', 'Drinks')`)
	src.DB.MustExec(`INSERT INTO product_stocks (id, product_id, name, cost, price, quantity) VALUES (7, 1, 'Large', 30, 90, 10)`)
	src.DB.MustExec(`INSERT INTO stock_batches (stock_id, quantity, expiry_date) VALUES
        (7, 4, '2030-03-01'),
        (7, 3, '2030-01-01'),
        (7, 3, NULL)`)
	return src
}

func batchQuantities(t *testing.T, src *InventorySource) []int64 {
	var qty []int64
	require.NoError(t, src.DB.Select(&qty, `SELECT quantity FROM stock_batches WHERE stock_id = 7 ORDER BY expiry_date ASC NULLS LAST, id`))
	return qty
}

func TestIntegration_InventoryFIFO(t *testing.T) {
	src := setupInventoryDB(t)
	ctx := context.Background()

	stocks, err := src.ListStocks(ctx)
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	assert.Equal(t, "Milk Tea", stocks[0].ProductName)
	assert.Equal(t, 90.0, stocks[0].Price)
	assert.Equal(t, int64(10), stocks[0].Quantity)

	// earliest expiry drained first
	res, err := src.DecrementFIFO(ctx, 7, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Available)
	assert.Equal(t, int64(5), res.Deducted)
	assert.Equal(t, int64(5), res.Remaining)
	assert.Equal(t, []int64{0, 2, 3}, batchQuantities(t, src))

	// more than on hand: nothing written
	_, err = src.DecrementFIFO(ctx, 7, 6)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, []int64{0, 2, 3}, batchQuantities(t, src))

	res, err = src.DecrementFIFO(ctx, 7, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Remaining)

	_, err = src.DecrementFIFO(ctx, 7, 1)
	assert.ErrorIs(t, err, ErrNoStock)

	_, err = src.DecrementFIFO(ctx, 999, 1)
	assert.ErrorIs(t, err, ErrNoStock)
}

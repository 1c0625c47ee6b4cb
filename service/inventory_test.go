package service

import (
	"context"
	"errors"
	"testing"

	"pos/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockInventory(t *testing.T) (*InventorySource, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewInventorySourceFromDB(sqlx.NewDb(sqlDB, "pgx")), mock
}

func TestNewInventorySource_Disabled(t *testing.T) {
	_, err := NewInventorySource(context.Background(), &config.InventoryConfig{})
	assert.ErrorIs(t, err, ErrInventoryDisabled)
}

func TestListStocks(t *testing.T) {
	src, mock := setupMockInventory(t)

	mock.ExpectQuery(`SELECT\s+p.id AS product_id`).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "product_name", "category_name", "stock_id", "variant_name", "cost", "price", "quantity"}).
			AddRow(1, "Milk Tea", "Drinks", 10, "Large", 30.0, 90.0, 12).
			AddRow(1, "Milk Tea", "Drinks", 11, "Medium", 25.0, 75.0, 0))

	stocks, err := src.ListStocks(context.Background())
	require.NoError(t, err)
	require.Len(t, stocks, 2)
	assert.Equal(t, ProductStock{ProductID: 1, ProductName: "Milk Tea", CategoryName: "Drinks", StockID: 10, VariantName: "Large", Cost: 30, Price: 90, Quantity: 12}, stocks[0])
	assert.Equal(t, int64(11), stocks[1].StockID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListStocks_Error(t *testing.T) {
	src, mock := setupMockInventory(t)
	mock.ExpectQuery(`FROM products p`).WillReturnError(errors.New("connection refused"))

	_, err := src.ListStocks(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestDecrementFIFO(t *testing.T) {
	src, mock := setupMockInventory(t)

	mock.ExpectQuery(`WITH ranked AS`).
		WithArgs(int64(7), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"available", "deducted", "remaining"}).AddRow(10, 3, 7))

	res, err := src.DecrementFIFO(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.Equal(t, &StockDecrement{StockID: 7, Available: 10, Deducted: 3, Remaining: 7}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementFIFO_NoStock(t *testing.T) {
	src, mock := setupMockInventory(t)

	mock.ExpectQuery(`WITH ranked AS`).
		WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"available", "deducted", "remaining"}).AddRow(0, 0, 0))

	_, err := src.DecrementFIFO(context.Background(), 7, 1)
	assert.ErrorIs(t, err, ErrNoStock)
}

func TestDecrementFIFO_Insufficient(t *testing.T) {
	src, mock := setupMockInventory(t)

	mock.ExpectQuery(`WITH ranked AS`).
		WithArgs(int64(7), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"available", "deducted", "remaining"}).AddRow(2, 0, 0))

	res, err := src.DecrementFIFO(context.Background(), 7, 5)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	require.NotNil(t, res)
	assert.Equal(t, int64(0), res.Deducted)
}

func TestDecrementFIFO_InvalidQuantity(t *testing.T) {
	src, mock := setupMockInventory(t)

	_, err := src.DecrementFIFO(context.Background(), 7, 0)
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"pos/config"
	"pos/database"
	"pos/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupMockDB swaps database.DB for a sqlmock-backed MySQL connection
func setupMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	oldDB := database.DB
	database.DB = gormDB
	return mock, func() {
		database.DB = oldDB
		sqlDB.Close()
	}
}

// setupTestDB swaps database.DB for a migrated SQLite file in a temp dir
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: "test"},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "pos.db")},
	}
	db, err := database.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	oldDB := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = oldDB
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func seedCategory(t *testing.T, db *gorm.DB, name, color string) models.Category {
	t.Helper()
	cat := models.Category{Name: name, Color: color}
	require.NoError(t, db.Create(&cat).Error)
	return cat
}

func seedItem(t *testing.T, db *gorm.DB, name string, categoryID uint) models.Item {
	t.Helper()
	item := models.Item{Name: name, CategoryID: categoryID, Type: models.ItemTypeColor, Value: "#ef4444"}
	require.NoError(t, db.Create(&item).Error)
	return item
}

func seedVariant(t *testing.T, db *gorm.DB, itemID uint, name string, cost, price float64) models.ItemVariant {
	t.Helper()
	v := models.ItemVariant{ItemID: itemID, VariantName: name, Cost: cost, Price: price}
	require.NoError(t, db.Create(&v).Error)
	return v
}

// saleLine is qty units of itemID in category at price/cost
type saleLine struct {
	itemID   uint
	item     string
	category string
	qty      int64
	price    float64
	cost     float64
}

// seedSale stores a transaction at the given time with its lines
func seedSale(t *testing.T, db *gorm.DB, at time.Time, lines ...saleLine) models.Transaction {
	t.Helper()
	items := make([]models.TransactionItem, 0, len(lines))
	for _, l := range lines {
		ti := models.TransactionItem{
			ItemID:       l.itemID,
			ItemName:     l.item,
			CategoryName: l.category,
			Qty:          l.qty,
			UnitPrice:    l.price,
			UnitCost:     l.cost,
		}
		ti.ComputeTotals()
		items = append(items, ti)
	}
	amount, cost := models.SumTotals(items)
	tx := models.Transaction{TransactionDate: at, TotalAmount: amount, TotalCost: cost, PaymentMethod: "cash"}
	require.NoError(t, db.Omit("Items").Create(&tx).Error)
	for i := range items {
		items[i].TransactionID = tx.ID
	}
	require.NoError(t, db.Create(&items).Error)
	return tx
}

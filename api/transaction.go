package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pos/database"
	"pos/models"
	"pos/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TransactionHandler sales
type TransactionHandler struct {
	paymentMethods []string
	stock          service.StockDecrementer
	cache          service.DashboardCache
}

// NewTransactionHandler stock may be nil when no inventory database is configured
func NewTransactionHandler(paymentMethods []string, stock service.StockDecrementer, cache service.DashboardCache) *TransactionHandler {
	if len(paymentMethods) == 0 {
		paymentMethods = []string{"cash", "gcash"}
	}
	if cache == nil {
		cache = service.NoopCache{}
	}
	return &TransactionHandler{paymentMethods: paymentMethods, stock: stock, cache: cache}
}

type TransactionLineRequest struct {
	ID           LineRef `json:"id"`
	ItemID       *uint   `json:"item_id"`
	VariantID    *uint   `json:"variant_id"`
	Name         string  `json:"name"`
	CategoryName string  `json:"categoryName"`
	Category     string  `json:"category"`
	VariantName  string  `json:"variant_name"`
	Qty          int64   `json:"qty"`
	Price        Number  `json:"price"`
	Cost         *Number `json:"cost"`
}

type TransactionCreateRequest struct {
	Items         []TransactionLineRequest `json:"items"`
	TotalAmount   *Number                  `json:"total_amount"` // ignored; totals come from the lines
	PaymentMethod string                   `json:"payment_method"`
}

// StockError a line whose inventory decrement failed; the sale is kept
type StockError struct {
	VariantID uint   `json:"variant_id"`
	StockID   int64  `json:"stock_id"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
	Error     string `json:"error"`
}

// TransactionSummary list row
type TransactionSummary struct {
	ID              uint      `json:"id"`
	TransactionDate time.Time `json:"transaction_date"`
	TotalAmount     float64   `json:"total_amount"`
	TotalCost       float64   `json:"total_cost"`
	PaymentMethod   string    `json:"payment_method"`
	TotalProfit     float64   `json:"total_profit"`
	ItemsCount      int64     `json:"items_count"`
}

// TransactionLineView sold line with the current names of its item
type TransactionLineView struct {
	models.TransactionItem
	CurrentItemName     *string `json:"current_item_name"`
	CurrentCategoryName *string `json:"current_category_name"`
	ItemType            *string `json:"item_type"`
	ItemProfit          float64 `json:"item_profit"`
}

// TransactionDetail transaction with its lines
type TransactionDetail struct {
	TransactionSummary
	Items []TransactionLineView `json:"items"`
}

func (h *TransactionHandler) validPaymentMethod(m string) bool {
	for _, pm := range h.paymentMethods {
		if pm == m {
			return true
		}
	}
	return false
}

// lineError a 400 for one request line
type lineError struct {
	line int
	msg  string
}

func (e *lineError) Error() string {
	return fmt.Sprintf("Line %d: %s", e.line, e.msg)
}

type itemSnapshot struct {
	Name         string
	CategoryName *string
}

// buildLines validates request lines and fills missing snapshot fields from
// the current catalogue. Stock ids of variants correlated with the inventory
// database are returned by line index.
func buildLines(db *gorm.DB, reqs []TransactionLineRequest) ([]models.TransactionItem, map[int]int64, error) {
	lines := make([]models.TransactionItem, 0, len(reqs))
	stockIDs := make(map[int]int64)

	for i, r := range reqs {
		n := i + 1
		if r.Qty <= 0 {
			return nil, nil, &lineError{n, "quantity must be greater than 0"}
		}
		if r.Price < 0 || (r.Cost != nil && *r.Cost < 0) {
			return nil, nil, &lineError{n, "price and cost cannot be negative"}
		}

		itemID := r.ID.ItemID
		if r.ItemID != nil {
			itemID = *r.ItemID
		}
		if itemID == 0 {
			return nil, nil, &lineError{n, "item id is required"}
		}
		var variantID *uint
		switch {
		case r.VariantID != nil && *r.VariantID > 0:
			v := *r.VariantID
			variantID = &v
		case r.ID.VariantID > 0:
			v := r.ID.VariantID
			variantID = &v
		}

		line := models.TransactionItem{
			ItemID:       itemID,
			VariantID:    variantID,
			ItemName:     strings.TrimSpace(r.Name),
			CategoryName: strings.TrimSpace(r.CategoryName),
			VariantName:  strings.TrimSpace(r.VariantName),
			Qty:          r.Qty,
			UnitPrice:    models.RoundMoney(r.Price.Float64()),
		}
		if line.CategoryName == "" {
			line.CategoryName = strings.TrimSpace(r.Category)
		}

		var variant *models.ItemVariant
		if variantID != nil {
			var v models.ItemVariant
			if err := db.First(&v, *variantID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, nil, &lineError{n, "variant not found"}
				}
				return nil, nil, err
			}
			variant = &v
			if line.VariantName == "" {
				line.VariantName = v.VariantName
			}
			if v.PostgresStockID != nil {
				stockIDs[i] = *v.PostgresStockID
			}
		}

		if line.ItemName == "" || line.CategoryName == "" {
			var current itemSnapshot
			res := db.Table("item AS i").
				Select("i.name, c.name AS category_name").
				Joins("LEFT JOIN category c ON i.category_id = c.id").
				Where("i.id = ?", itemID).
				Limit(1).
				Scan(&current)
			if res.Error != nil {
				return nil, nil, res.Error
			}
			if res.RowsAffected == 0 && line.ItemName == "" {
				return nil, nil, &lineError{n, "item not found"}
			}
			if line.ItemName == "" {
				line.ItemName = current.Name
			}
			if line.CategoryName == "" && current.CategoryName != nil {
				line.CategoryName = *current.CategoryName
			}
		}
		if line.CategoryName == "" {
			line.CategoryName = models.UncategorizedName
		}

		switch {
		case r.Cost != nil:
			line.UnitCost = models.RoundMoney(r.Cost.Float64())
		case variant != nil:
			line.UnitCost = variant.Cost
		}
		line.ComputeTotals()
		lines = append(lines, line)
	}
	return lines, stockIDs, nil
}

// decrementStock runs the FIFO decrement for every correlated line. Failures
// never undo the sale; they are logged and reported back.
func (h *TransactionHandler) decrementStock(ctx context.Context, txID uint, lines []models.TransactionItem, stockIDs map[int]int64) []StockError {
	if h.stock == nil || len(stockIDs) == 0 {
		return nil
	}
	var failures []StockError
	for i, line := range lines {
		stockID, ok := stockIDs[i]
		if !ok {
			continue
		}
		res, err := h.stock.DecrementFIFO(ctx, stockID, line.Qty)
		if err != nil {
			se := StockError{VariantID: *line.VariantID, StockID: stockID, Requested: line.Qty, Error: err.Error()}
			if res != nil {
				se.Available = res.Available
			}
			failures = append(failures, se)
			zap.L().Warn("stock decrement failed",
				zap.Uint("transaction_id", txID),
				zap.Int64("stock_id", stockID),
				zap.Int64("qty", line.Qty),
				zap.Error(err))
			continue
		}
		if err := database.DB.Model(&models.ItemVariant{}).
			Where("id = ?", *line.VariantID).
			Update("quantity", res.Remaining).Error; err != nil {
			zap.L().Warn("update local stock", zap.Uint("variant_id", *line.VariantID), zap.Error(err))
		}
	}
	return failures
}

// Create records a sale
// @Summary Create transaction
// @Description Totals are computed from the lines. Lines whose variant is linked to the inventory database are decremented FIFO after the sale is stored; failures are listed in stock_errors.
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body TransactionCreateRequest true "Sale"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /api/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	var req TransactionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Items) == 0 {
		BadRequest(c, "Items array is required and cannot be empty")
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "cash"
	}
	if !h.validPaymentMethod(req.PaymentMethod) {
		BadRequest(c, "Invalid payment method. Must be one of: "+strings.Join(h.paymentMethods, ", "))
		return
	}

	lines, stockIDs, err := buildLines(database.DB, req.Items)
	if err != nil {
		var le *lineError
		if errors.As(err, &le) {
			BadRequest(c, le.Error())
			return
		}
		zap.L().Error("prepare transaction lines", zap.Error(err))
		InternalError(c, failureMessage("Failed to create transaction", err))
		return
	}

	totalAmount, totalCost := models.SumTotals(lines)
	tx := models.Transaction{
		TransactionDate: time.Now(),
		TotalAmount:     totalAmount,
		TotalCost:       totalCost,
		PaymentMethod:   req.PaymentMethod,
	}
	err = database.DB.Transaction(func(db *gorm.DB) error {
		if err := db.Omit("Items").Create(&tx).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].TransactionID = tx.ID
		}
		return db.Create(&lines).Error
	})
	if err != nil {
		zap.L().Error("create transaction", zap.Error(err))
		InternalError(c, failureMessage("Failed to create transaction", err))
		return
	}

	stockErrors := h.decrementStock(c.Request.Context(), tx.ID, lines, stockIDs)
	h.cache.Invalidate(c.Request.Context())

	zap.L().Info("transaction created",
		zap.Uint("id", tx.ID),
		zap.Float64("total_amount", totalAmount),
		zap.Int("lines", len(lines)),
		zap.Int("stock_errors", len(stockErrors)))

	resp := gin.H{
		"message":        "Transaction created successfully",
		"transaction_id": tx.ID,
		"total_amount":   totalAmount,
		"total_cost":     totalCost,
		"total_profit":   models.RoundMoney(totalAmount - totalCost),
		"items_count":    len(lines),
		"payment_method": tx.PaymentMethod,
	}
	if len(stockErrors) > 0 {
		resp["stock_errors"] = stockErrors
	}
	c.JSON(http.StatusCreated, resp)
}

func transactionSummaries(db *gorm.DB) *gorm.DB {
	return db.Table("transactions AS t").
		Select("t.id, t.transaction_date, t.total_amount, t.total_cost, t.payment_method, " +
			"(t.total_amount - t.total_cost) AS total_profit, COUNT(ti.id) AS items_count").
		Joins("LEFT JOIN transaction_items ti ON ti.transaction_id = t.id").
		Group("t.id, t.transaction_date, t.total_amount, t.total_cost, t.payment_method")
}

// List lists transactions, newest first
// @Summary List transactions
// @Tags transactions
// @Produce json
// @Success 200 {array} TransactionSummary
// @Router /api/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	list := []TransactionSummary{}
	if err := transactionSummaries(database.DB).Order("t.transaction_date DESC").Order("t.id DESC").Scan(&list).Error; err != nil {
		zap.L().Error("list transactions", zap.Error(err))
		InternalError(c, "Failed to fetch transactions")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get returns a transaction with its lines
// @Summary Get transaction
// @Tags transactions
// @Produce json
// @Param id path int true "Transaction ID"
// @Success 200 {object} TransactionDetail
// @Failure 404 {object} ErrorResponse
// @Router /api/transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var summaries []TransactionSummary
	if err := transactionSummaries(database.DB).Where("t.id = ?", id).Scan(&summaries).Error; err != nil {
		zap.L().Error("get transaction", zap.Uint("id", id), zap.Error(err))
		InternalError(c, "Failed to fetch transaction")
		return
	}
	if len(summaries) == 0 {
		NotFound(c, "Transaction not found")
		return
	}

	lines := []TransactionLineView{}
	err := database.DB.Table("transaction_items AS ti").
		Select("ti.*, i.name AS current_item_name, c.name AS current_category_name, " +
			"i.type AS item_type, (ti.total_price - ti.total_cost) AS item_profit").
		Joins("LEFT JOIN item i ON ti.item_id = i.id").
		Joins("LEFT JOIN category c ON i.category_id = c.id").
		Where("ti.transaction_id = ?", id).
		Order("ti.id").
		Scan(&lines).Error
	if err != nil {
		zap.L().Error("get transaction lines", zap.Uint("id", id), zap.Error(err))
		InternalError(c, "Failed to fetch transaction")
		return
	}

	c.JSON(http.StatusOK, TransactionDetail{TransactionSummary: summaries[0], Items: lines})
}

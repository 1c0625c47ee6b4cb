package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"pos/database"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExportHandler sales export
type ExportHandler struct {
	now func() time.Time
}

func NewExportHandler() *ExportHandler {
	return &ExportHandler{now: time.Now}
}

// SaleLine one exported sold line
type SaleLine struct {
	TransactionID   uint
	TransactionDate time.Time
	PaymentMethod   string
	ItemName        string
	VariantName     *string
	CategoryName    *string
	Qty             int64
	UnitPrice       float64
	UnitCost        float64
	TotalPrice      float64
	TotalCost       float64
}

// LoadSaleLines sold lines matching f, newest sale first
func LoadSaleLines(db *gorm.DB, f SalesFilter) ([]SaleLine, error) {
	var lines []SaleLine
	err := f.lineScope(db).
		Select("t.id AS transaction_id, t.transaction_date, t.payment_method, ti.item_name, ti.variant_name, " +
			"ti.category_name, ti.qty, ti.unit_price, ti.unit_cost, ti.total_price, ti.total_cost").
		Order("t.transaction_date DESC").Order("t.id DESC").Order("ti.id").
		Scan(&lines).Error
	return lines, err
}

var exportHeaders = []string{"Transaction", "Date", "Payment", "Item", "Variant", "Category", "Qty", "Unit Price", "Unit Cost", "Total Price", "Total Cost", "Profit"}

func (l SaleLine) record() []interface{} {
	variant, category := "", ""
	if l.VariantName != nil {
		variant = *l.VariantName
	}
	if l.CategoryName != nil {
		category = *l.CategoryName
	}
	return []interface{}{
		l.TransactionID,
		l.TransactionDate.Format("2006-01-02 15:04:05"),
		l.PaymentMethod,
		l.ItemName,
		variant,
		category,
		l.Qty,
		l.UnitPrice,
		l.UnitCost,
		l.TotalPrice,
		l.TotalCost,
		round2(l.TotalPrice - l.TotalCost),
	}
}

func exportFileName(f SalesFilter, ext string) string {
	if f.AllTime() {
		return "sales_all." + ext
	}
	return fmt.Sprintf("sales_%s_%s.%s", f.Start, f.End, ext)
}

// Export exports sold lines as an xlsx workbook (default) or CSV
// @Summary Export sales
// @Description Same filters as the dashboard. One row per sold line plus a totals row.
// @Tags backoffice
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,text/csv
// @Param period query string false "today|yesterday|week|month|quarter|year|all" default(today)
// @Param startDate query string false "YYYY-MM-DD"
// @Param endDate query string false "YYYY-MM-DD"
// @Param category query string false "category name or all"
// @Param format query string false "xlsx|csv" default(xlsx)
// @Success 200 {file} file "export file"
// @Failure 400 {object} ErrorResponse
// @Router /api/backoffice/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	f, err := ResolveFilter(c.DefaultQuery("period", "today"), c.Query("startDate"), c.Query("endDate"), c.Query("category"), h.now())
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	lines, err := LoadSaleLines(database.DB, f)
	if err != nil {
		zap.L().Error("export sales", zap.Error(err))
		InternalError(c, failureMessage("Failed to export sales", err))
		return
	}

	switch c.DefaultQuery("format", "xlsx") {
	case "csv":
		h.writeCSV(c, f, lines)
	case "xlsx":
		h.writeExcel(c, f, lines)
	default:
		BadRequest(c, "Invalid format. Must be 'xlsx' or 'csv'.")
	}
}

func (h *ExportHandler) writeCSV(c *gin.Context, f SalesFilter, lines []SaleLine) {
	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)
	if err := writer.Write(exportHeaders); err != nil {
		InternalError(c, "Failed to write CSV")
		return
	}
	for _, l := range lines {
		rec := l.record()
		row := make([]string, len(rec))
		for i, v := range rec {
			switch x := v.(type) {
			case float64:
				row[i] = strconv.FormatFloat(x, 'f', 2, 64)
			default:
				row[i] = fmt.Sprint(x)
			}
		}
		if err := writer.Write(row); err != nil {
			InternalError(c, "Failed to write CSV")
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		InternalError(c, "Failed to write CSV")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", exportFileName(f, "csv")))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *ExportHandler) writeExcel(c *gin.Context, f SalesFilter, lines []SaleLine) {
	file := excelize.NewFile()
	defer file.Close()

	sheetName := "Sales"
	file.SetSheetName("Sheet1", sheetName)

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	headerStyle, _ := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	dataStyle, _ := file.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "center"},
		Border:    border,
	})
	summaryStyle, _ := file.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Border: border,
	})

	widths := []float64{12, 20, 10, 28, 18, 18, 8, 12, 12, 12, 12, 12}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		file.SetColWidth(sheetName, col, col, w)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeaders))

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		file.SetCellValue(sheetName, cell, header)
	}
	file.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle)

	var qty int64
	var revenue, cost float64
	for i, l := range lines {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		rec := l.record()
		if err := file.SetSheetRow(sheetName, cell, &rec); err != nil {
			zap.L().Error("write export row", zap.Error(err))
			InternalError(c, "Failed to generate Excel file")
			return
		}
		file.SetCellStyle(sheetName, cell, fmt.Sprintf("%s%d", lastCol, row), dataStyle)
		qty += l.Qty
		revenue += l.TotalPrice
		cost += l.TotalCost
	}

	summaryRow := len(lines) + 2
	file.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow), "Total")
	file.SetCellValue(sheetName, fmt.Sprintf("D%d", summaryRow), fmt.Sprintf("%d lines", len(lines)))
	file.SetCellValue(sheetName, fmt.Sprintf("G%d", summaryRow), qty)
	file.SetCellValue(sheetName, fmt.Sprintf("J%d", summaryRow), round2(revenue))
	file.SetCellValue(sheetName, fmt.Sprintf("K%d", summaryRow), round2(cost))
	file.SetCellValue(sheetName, fmt.Sprintf("L%d", summaryRow), round2(revenue-cost))
	file.SetCellStyle(sheetName, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("%s%d", lastCol, summaryRow), summaryStyle)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", exportFileName(f, "xlsx")))
	if err := file.Write(c.Writer); err != nil {
		zap.L().Error("write export", zap.Error(err))
	}
}

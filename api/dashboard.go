package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
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

const dayLayout = "2006-01-02"

// Period a preset dashboard window
type Period struct {
	Value string `json:"value"`
	Label string `json:"label"`
	days  int    // window length ending today; 0 = all time
}

// Periods presets in display order
var Periods = []Period{
	{Value: "today", Label: "Today", days: 1},
	{Value: "yesterday", Label: "Yesterday", days: 1},
	{Value: "week", Label: "Last 7 Days", days: 7},
	{Value: "month", Label: "Last 30 Days", days: 30},
	{Value: "quarter", Label: "Last 90 Days", days: 90},
	{Value: "year", Label: "Last 12 Months", days: 365},
	{Value: "all", Label: "All Time"},
}

func findPeriod(value string) (Period, bool) {
	for _, p := range Periods {
		if p.Value == value {
			return p, true
		}
	}
	return Period{}, false
}

// SalesFilter resolved dashboard/export filter. Start and End are inclusive
// local days; both empty means all time. Category empty means all categories.
type SalesFilter struct {
	Period   string
	Start    string
	End      string
	Category string
}

var errInvalidFilter = errors.New("invalid filter")

// ResolveFilter turns query parameters into a filter. An explicit
// startDate+endDate pair overrides the period; unknown periods fall back to today.
func ResolveFilter(period, startDate, endDate, category string, now time.Time) (SalesFilter, error) {
	f := SalesFilter{Period: period}
	if strings.TrimSpace(category) != "" && category != "all" {
		f.Category = strings.TrimSpace(category)
	}

	if startDate != "" && endDate != "" {
		start, err := time.ParseInLocation(dayLayout, startDate, time.Local)
		if err != nil {
			return f, fmt.Errorf("%w: startDate must be YYYY-MM-DD", errInvalidFilter)
		}
		end, err := time.ParseInLocation(dayLayout, endDate, time.Local)
		if err != nil {
			return f, fmt.Errorf("%w: endDate must be YYYY-MM-DD", errInvalidFilter)
		}
		if end.Before(start) {
			return f, fmt.Errorf("%w: endDate is before startDate", errInvalidFilter)
		}
		if f.Period == "" {
			f.Period = "custom"
		}
		f.Start, f.End = startDate, endDate
		return f, nil
	}

	p, ok := findPeriod(period)
	if !ok {
		p, _ = findPeriod("today")
	}
	f.Period = p.Value
	if p.days == 0 {
		return f, nil
	}
	end := now
	if p.Value == "yesterday" {
		end = now.AddDate(0, 0, -1)
	}
	f.Start = end.AddDate(0, 0, -(p.days - 1)).Format(dayLayout)
	f.End = end.Format(dayLayout)
	return f, nil
}

// AllTime reports whether the filter has no date bounds
func (f SalesFilter) AllTime() bool {
	return f.Start == ""
}

// Previous the window of the same length immediately before f; ok is false for all time
func (f SalesFilter) Previous() (SalesFilter, bool) {
	if f.AllTime() {
		return SalesFilter{}, false
	}
	start, err1 := time.ParseInLocation(dayLayout, f.Start, time.Local)
	end, err2 := time.ParseInLocation(dayLayout, f.End, time.Local)
	if err1 != nil || err2 != nil {
		return SalesFilter{}, false
	}
	days := int(math.Round(end.Sub(start).Hours()/24)) + 1
	prev := f
	prev.End = start.AddDate(0, 0, -1).Format(dayLayout)
	prev.Start = start.AddDate(0, 0, -days).Format(dayLayout)
	return prev, true
}

// salesScope base query over sales matching f plus the revenue and cost
// columns to aggregate. Without a category the sale totals are used; with one,
// only the matching lines count.
func (f SalesFilter) salesScope(db *gorm.DB) (q *gorm.DB, revenue, cost string) {
	if f.Category == "" {
		q = db.Table("transactions AS t")
		revenue, cost = "t.total_amount", "t.total_cost"
	} else {
		q = db.Table("transaction_items AS ti").
			Joins("JOIN transactions t ON t.id = ti.transaction_id").
			Where("ti.category_name = ?", f.Category)
		revenue, cost = "ti.total_price", "ti.total_cost"
	}
	return f.dateScope(db, q), revenue, cost
}

// lineScope base query over sold lines matching f
func (f SalesFilter) lineScope(db *gorm.DB) *gorm.DB {
	q := db.Table("transaction_items AS ti").
		Joins("JOIN transactions t ON t.id = ti.transaction_id")
	if f.Category != "" {
		q = q.Where("ti.category_name = ?", f.Category)
	}
	return f.dateScope(db, q)
}

func (f SalesFilter) dateScope(db, q *gorm.DB) *gorm.DB {
	if f.AllTime() {
		return q
	}
	return q.Where(database.DayExpr(db, "t.transaction_date")+" BETWEEN ? AND ?", f.Start, f.End)
}

// DashboardFilters echo of the applied filter
type DashboardFilters struct {
	Period    string  `json:"period"`
	StartDate *string `json:"startDate"`
	EndDate   *string `json:"endDate"`
	Category  string  `json:"category"`
}

type DashboardSummary struct {
	TotalRevenue        float64 `json:"total_revenue"`
	TotalCost           float64 `json:"total_cost"`
	TotalProfit         float64 `json:"total_profit"`
	TotalTransactions   int64   `json:"total_transactions"`
	AvgTransactionValue float64 `json:"avg_transaction_value"`
	BusinessDays        int64   `json:"business_days"`
	ProfitMargin        float64 `json:"profit_margin"`
}

type DashboardTrends struct {
	RevenueTrend     float64 `json:"revenue_trend"`
	ProfitTrend      float64 `json:"profit_trend"`
	TransactionTrend float64 `json:"transaction_trend"`
}

type DailyPoint struct {
	Date         string  `json:"date"`
	Day          string  `json:"day"`
	Revenue      float64 `json:"revenue"`
	Cost         float64 `json:"cost"`
	Profit       float64 `json:"profit"`
	Transactions int64   `json:"transactions"`
}

type HourlyPoint struct {
	Hour         string  `json:"hour"`
	Revenue      float64 `json:"revenue"`
	Transactions int64   `json:"transactions"`
}

type DashboardCharts struct {
	DailyBreakdown  []DailyPoint  `json:"daily_breakdown"`
	HourlyBreakdown []HourlyPoint `json:"hourly_breakdown"`
}

type TopItem struct {
	Name         string  `json:"name"`
	ItemName     string  `json:"item_name"`
	VariantName  string  `json:"variant_name"`
	Category     string  `json:"category"`
	Quantity     int64   `json:"quantity"`
	Revenue      float64 `json:"revenue"`
	Cost         float64 `json:"cost"`
	Profit       float64 `json:"profit"`
	ProfitMargin float64 `json:"profit_margin"`
	HasVariant   bool    `json:"has_variant"`
}

type CategoryPerformance struct {
	Name         string  `json:"name"`
	Revenue      float64 `json:"revenue"`
	Cost         float64 `json:"cost"`
	Profit       float64 `json:"profit"`
	Transactions int64   `json:"transactions"`
	ProfitMargin float64 `json:"profit_margin"`
}

type VariantPerformance struct {
	Name         string  `json:"name"`
	ItemName     string  `json:"item_name"`
	VariantName  string  `json:"variant_name"`
	Category     string  `json:"category"`
	Quantity     int64   `json:"quantity"`
	Revenue      float64 `json:"revenue"`
	Cost         float64 `json:"cost"`
	Profit       float64 `json:"profit"`
	ProfitMargin float64 `json:"profit_margin"`
	AvgUnitPrice float64 `json:"avg_unit_price"`
	AvgUnitCost  float64 `json:"avg_unit_cost"`
}

type ItemPerformance struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	VariantCount int64   `json:"variant_count"`
	Quantity     int64   `json:"quantity"`
	Revenue      float64 `json:"revenue"`
	Cost         float64 `json:"cost"`
	Profit       float64 `json:"profit"`
	ProfitMargin float64 `json:"profit_margin"`
}

// Dashboard backoffice dashboard payload
type Dashboard struct {
	Filters             DashboardFilters      `json:"filters"`
	Summary             DashboardSummary      `json:"summary"`
	Trends              DashboardTrends       `json:"trends"`
	Charts              DashboardCharts       `json:"charts"`
	TopItems            []TopItem             `json:"top_items"`
	Categories          []CategoryPerformance `json:"categories"`
	Variants            []VariantPerformance  `json:"variants"`
	ItemsAggregated     []ItemPerformance     `json:"items_aggregated"`
	AvailableCategories []string              `json:"available_categories"`
}

// DashboardHandler backoffice reports
type DashboardHandler struct {
	cache service.DashboardCache
	now   func() time.Time
}

func NewDashboardHandler(cache service.DashboardCache) *DashboardHandler {
	if cache == nil {
		cache = service.NoopCache{}
	}
	return &DashboardHandler{cache: cache, now: time.Now}
}

func (h *DashboardHandler) filterFromQuery(c *gin.Context) (SalesFilter, bool) {
	f, err := ResolveFilter(
		c.DefaultQuery("period", "today"),
		c.Query("startDate"),
		c.Query("endDate"),
		c.Query("category"),
		h.now(),
	)
	if err != nil {
		BadRequest(c, err.Error())
		return f, false
	}
	return f, true
}

// Dashboard returns the sales dashboard
// @Summary Backoffice dashboard
// @Description Summary, trends against the preceding window of equal length, daily and hourly breakdowns and rankings. An explicit startDate/endDate pair overrides period; category restricts every aggregate to lines of that category.
// @Tags backoffice
// @Produce json
// @Param period query string false "today|yesterday|week|month|quarter|year|all" default(today)
// @Param startDate query string false "YYYY-MM-DD"
// @Param endDate query string false "YYYY-MM-DD"
// @Param category query string false "category name or all"
// @Success 200 {object} Dashboard
// @Failure 400 {object} ErrorResponse
// @Router /api/backoffice/dashboard [get]
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	f, ok := h.filterFromQuery(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	key := service.CacheKey("dashboard", f.Period, f.Start, f.End, f.Category)
	if cached, hit := h.cache.Get(ctx, key); hit {
		c.Data(http.StatusOK, "application/json; charset=utf-8", cached)
		return
	}

	dash, err := BuildDashboard(database.DB, f)
	if err != nil {
		zap.L().Error("build dashboard", zap.String("period", f.Period), zap.Error(err))
		InternalError(c, failureMessage("Failed to fetch backoffice data", err))
		return
	}

	body, err := json.Marshal(dash)
	if err != nil {
		InternalError(c, failureMessage("Failed to fetch backoffice data", err))
		return
	}
	h.cache.Set(ctx, key, body)
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

type salesTotals struct {
	Transactions int64
	Revenue      float64
	Cost         float64
	Days         int64
}

func loadTotals(db *gorm.DB, f SalesFilter) (salesTotals, error) {
	var t salesTotals
	q, revenue, cost := f.salesScope(db)
	err := q.Select(fmt.Sprintf(
		"COUNT(DISTINCT t.id) AS transactions, COALESCE(SUM(%s), 0) AS revenue, COALESCE(SUM(%s), 0) AS cost, COUNT(DISTINCT %s) AS days",
		revenue, cost, database.DayExpr(db, "t.transaction_date"),
	)).Scan(&t).Error
	return t, err
}

func trend(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return round2((current - previous) / previous * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func margin(revenue, profit float64) float64 {
	if revenue <= 0 {
		return 0
	}
	return round2(profit * 100 / revenue)
}

// dayLabel "Jan 2" label of a YYYY-MM-DD day
func dayLabel(day string) string {
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		return day
	}
	return t.Format("Jan 2")
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type lineAggregate struct {
	ItemName     string
	VariantName  *string
	CategoryName *string
	VariantCount int64
	Quantity     int64
	Revenue      float64
	Cost         float64
	AvgUnitPrice float64
	AvgUnitCost  float64
}

func (a lineAggregate) variant() string {
	if a.VariantName == nil {
		return ""
	}
	return *a.VariantName
}

func (a lineAggregate) category() string {
	if a.CategoryName == nil || *a.CategoryName == "" {
		return models.UncategorizedName
	}
	return *a.CategoryName
}

type dailyRow struct {
	Day          string
	Transactions int64
	Revenue      float64
	Cost         float64
}

type hourlyRow struct {
	Hour         string
	Transactions int64
	Revenue      float64
}

type categoryRow struct {
	CategoryName *string
	Transactions int64
	Revenue      float64
	Cost         float64
}

const lineAggregateColumns = "MAX(ti.item_name) AS item_name, MAX(ti.variant_name) AS variant_name, " +
	"MAX(ti.category_name) AS category_name, SUM(ti.qty) AS quantity, " +
	"SUM(ti.total_price) AS revenue, SUM(ti.total_cost) AS cost"

// BuildDashboard runs every dashboard aggregate for f
func BuildDashboard(db *gorm.DB, f SalesFilter) (*Dashboard, error) {
	dash := &Dashboard{
		Filters: DashboardFilters{
			Period:    f.Period,
			StartDate: strPtr(f.Start),
			EndDate:   strPtr(f.End),
			Category:  "all",
		},
	}
	if f.Category != "" {
		dash.Filters.Category = f.Category
	}

	// summary
	cur, err := loadTotals(db, f)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	profit := round2(cur.Revenue - cur.Cost)
	dash.Summary = DashboardSummary{
		TotalRevenue:      round2(cur.Revenue),
		TotalCost:         round2(cur.Cost),
		TotalProfit:       profit,
		TotalTransactions: cur.Transactions,
		BusinessDays:      cur.Days,
		ProfitMargin:      margin(cur.Revenue, profit),
	}
	if cur.Transactions > 0 {
		dash.Summary.AvgTransactionValue = round2(cur.Revenue / float64(cur.Transactions))
	}

	// trends
	if prevFilter, ok := f.Previous(); ok {
		prev, err := loadTotals(db, prevFilter)
		if err != nil {
			return nil, fmt.Errorf("comparison: %w", err)
		}
		dash.Trends = DashboardTrends{
			RevenueTrend:     trend(cur.Revenue, prev.Revenue),
			ProfitTrend:      trend(cur.Revenue-cur.Cost, prev.Revenue-prev.Cost),
			TransactionTrend: trend(float64(cur.Transactions), float64(prev.Transactions)),
		}
	}

	// daily
	dayExpr := database.DayExpr(db, "t.transaction_date")
	var daily []dailyRow
	q, revenue, cost := f.salesScope(db)
	if err := q.Select(fmt.Sprintf("%s AS day, COUNT(DISTINCT t.id) AS transactions, SUM(%s) AS revenue, SUM(%s) AS cost", dayExpr, revenue, cost)).
		Group(dayExpr).Order("day ASC").Scan(&daily).Error; err != nil {
		return nil, fmt.Errorf("daily breakdown: %w", err)
	}
	dash.Charts.DailyBreakdown = make([]DailyPoint, 0, len(daily))
	for _, d := range daily {
		dash.Charts.DailyBreakdown = append(dash.Charts.DailyBreakdown, DailyPoint{
			Date:         dayLabel(d.Day),
			Day:          d.Day,
			Revenue:      round2(d.Revenue),
			Cost:         round2(d.Cost),
			Profit:       round2(d.Revenue - d.Cost),
			Transactions: d.Transactions,
		})
	}

	// hourly
	hourExpr := database.HourExpr(db, "t.transaction_date")
	var hourly []hourlyRow
	q, revenue, _ = f.salesScope(db)
	if err := q.Select(fmt.Sprintf("%s AS hour, COUNT(DISTINCT t.id) AS transactions, SUM(%s) AS revenue", hourExpr, revenue)).
		Group(hourExpr).Order("hour ASC").Scan(&hourly).Error; err != nil {
		return nil, fmt.Errorf("hourly breakdown: %w", err)
	}
	dash.Charts.HourlyBreakdown = make([]HourlyPoint, 0, len(hourly))
	for _, hr := range hourly {
		dash.Charts.HourlyBreakdown = append(dash.Charts.HourlyBreakdown, HourlyPoint{
			Hour:         hr.Hour + ":00",
			Revenue:      round2(hr.Revenue),
			Transactions: hr.Transactions,
		})
	}

	// top items per item + variant
	var top []lineAggregate
	if err := f.lineScope(db).Select(lineAggregateColumns).
		Group("ti.item_id, ti.variant_id").Order("revenue DESC").Limit(10).
		Scan(&top).Error; err != nil {
		return nil, fmt.Errorf("top items: %w", err)
	}
	dash.TopItems = make([]TopItem, 0, len(top))
	for _, a := range top {
		name := a.ItemName
		if a.variant() != "" {
			name = a.ItemName + " - " + a.variant()
		}
		p := round2(a.Revenue - a.Cost)
		dash.TopItems = append(dash.TopItems, TopItem{
			Name:         name,
			ItemName:     a.ItemName,
			VariantName:  a.variant(),
			Category:     a.category(),
			Quantity:     a.Quantity,
			Revenue:      round2(a.Revenue),
			Cost:         round2(a.Cost),
			Profit:       p,
			ProfitMargin: margin(a.Revenue, p),
			HasVariant:   a.variant() != "",
		})
	}

	// categories
	var cats []categoryRow
	if err := f.lineScope(db).
		Select("ti.category_name, COUNT(DISTINCT t.id) AS transactions, SUM(ti.total_price) AS revenue, SUM(ti.total_cost) AS cost").
		Group("ti.category_name").Order("revenue DESC").
		Scan(&cats).Error; err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	dash.Categories = make([]CategoryPerformance, 0, len(cats))
	for _, ct := range cats {
		name := models.UncategorizedName
		if ct.CategoryName != nil && *ct.CategoryName != "" {
			name = *ct.CategoryName
		}
		p := round2(ct.Revenue - ct.Cost)
		dash.Categories = append(dash.Categories, CategoryPerformance{
			Name:         name,
			Revenue:      round2(ct.Revenue),
			Cost:         round2(ct.Cost),
			Profit:       p,
			Transactions: ct.Transactions,
			ProfitMargin: margin(ct.Revenue, p),
		})
	}

	// variants by profit
	var variants []lineAggregate
	if err := f.lineScope(db).
		Select(lineAggregateColumns+", SUM(ti.total_price - ti.total_cost) AS profit, "+
			"AVG(ti.unit_price) AS avg_unit_price, AVG(ti.unit_cost) AS avg_unit_cost").
		Group("ti.item_id, ti.variant_id").Order("profit DESC").Limit(15).
		Scan(&variants).Error; err != nil {
		return nil, fmt.Errorf("variants: %w", err)
	}
	dash.Variants = make([]VariantPerformance, 0, len(variants))
	for _, a := range variants {
		p := round2(a.Revenue - a.Cost)
		dash.Variants = append(dash.Variants, VariantPerformance{
			Name:         a.variant(),
			ItemName:     a.ItemName,
			VariantName:  a.variant(),
			Category:     a.category(),
			Quantity:     a.Quantity,
			Revenue:      round2(a.Revenue),
			Cost:         round2(a.Cost),
			Profit:       p,
			ProfitMargin: margin(a.Revenue, p),
			AvgUnitPrice: round2(a.AvgUnitPrice),
			AvgUnitCost:  round2(a.AvgUnitCost),
		})
	}

	// items without variant split
	var items []lineAggregate
	if err := f.lineScope(db).
		Select(lineAggregateColumns+", COUNT(DISTINCT ti.variant_id) AS variant_count").
		Group("ti.item_id").Order("revenue DESC").Limit(10).
		Scan(&items).Error; err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}
	dash.ItemsAggregated = make([]ItemPerformance, 0, len(items))
	for _, a := range items {
		p := round2(a.Revenue - a.Cost)
		dash.ItemsAggregated = append(dash.ItemsAggregated, ItemPerformance{
			Name:         a.ItemName,
			Category:     a.category(),
			VariantCount: a.VariantCount,
			Quantity:     a.Quantity,
			Revenue:      round2(a.Revenue),
			Cost:         round2(a.Cost),
			Profit:       p,
			ProfitMargin: margin(a.Revenue, p),
		})
	}

	names, err := categoryNames(db)
	if err != nil {
		return nil, fmt.Errorf("available categories: %w", err)
	}
	dash.AvailableCategories = names
	return dash, nil
}

func categoryNames(db *gorm.DB) ([]string, error) {
	names := []string{}
	err := db.Model(&models.Category{}).Distinct("name").Order("name").Pluck("name", &names).Error
	return names, err
}

// DateRange first and last day with sales
type DateRange struct {
	MinDate *string `json:"min_date"`
	MaxDate *string `json:"max_date"`
}

// Filters returns the dashboard filter options
// @Summary Dashboard filter options
// @Tags backoffice
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/backoffice/filters [get]
func (h *DashboardHandler) Filters(c *gin.Context) {
	db := database.DB
	names, err := categoryNames(db)
	if err != nil {
		zap.L().Error("filter categories", zap.Error(err))
		InternalError(c, failureMessage("Failed to fetch filter options", err))
		return
	}

	var dr DateRange
	dayExpr := database.DayExpr(db, "transaction_date")
	if err := db.Model(&models.Transaction{}).
		Select(fmt.Sprintf("MIN(%s) AS min_date, MAX(%s) AS max_date", dayExpr, dayExpr)).
		Scan(&dr).Error; err != nil {
		zap.L().Error("filter date range", zap.Error(err))
		InternalError(c, failureMessage("Failed to fetch filter options", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"categories": names,
		"date_range": dr,
		"periods":    Periods,
	})
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"pos/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrSyncInProgress another sync run holds the flag
var ErrSyncInProgress = errors.New("sync already in progress")

// Sync kinds
const (
	SyncKindProducts = "products"
	SyncKindFull     = "full"
)

// DefaultVariantName variant name used for stocks without a name
const DefaultVariantName = "Regular"

// SyncRun summary of one sync run
type SyncRun struct {
	ID              string     `json:"id"`
	Kind            string     `json:"kind"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at"`
	Products        int        `json:"products"`
	Stocks          int        `json:"stocks"`
	CategoriesAdded int        `json:"categories_created"`
	ItemsCreated    int        `json:"items_created"`
	VariantsUpdated int        `json:"variants_updated"`
	VariantsCreated int        `json:"variants_created"`
	Error           string     `json:"error,omitempty"`
}

// Syncer copies products and stock levels from the inventory database into
// the local store. At most one run is active; concurrent triggers are rejected.
type Syncer struct {
	db     *gorm.DB
	source StockLister
	cache  DashboardCache
	log    *zap.Logger

	running atomic.Bool

	mu   sync.RWMutex
	last *SyncRun
}

// NewSyncer creates a syncer. source may be nil when sync is not configured.
func NewSyncer(db *gorm.DB, source StockLister, cache DashboardCache, log *zap.Logger) *Syncer {
	if cache == nil {
		cache = NoopCache{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{db: db, source: source, cache: cache, log: log}
}

// Enabled reports whether an inventory source is configured
func (s *Syncer) Enabled() bool {
	return s.source != nil
}

// IsSyncing reports whether a run is in flight
func (s *Syncer) IsSyncing() bool {
	return s.running.Load()
}

// LastRun returns a copy of the last finished or running run, nil if none
func (s *Syncer) LastRun() *SyncRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	run := *s.last
	return &run
}

// SyncProducts refreshes quantity, cost and price of already correlated variants
func (s *Syncer) SyncProducts(ctx context.Context) (*SyncRun, error) {
	return s.run(ctx, SyncKindProducts, s.syncStockLevels)
}

// SyncFull imports categories, items and variants and refreshes stock levels
func (s *Syncer) SyncFull(ctx context.Context) (*SyncRun, error) {
	return s.run(ctx, SyncKindFull, s.syncCatalog)
}

func (s *Syncer) run(ctx context.Context, kind string, apply func(tx *gorm.DB, stocks []ProductStock, run *SyncRun) error) (*SyncRun, error) {
	if !s.Enabled() {
		return nil, ErrInventoryDisabled
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer s.running.Store(false)

	run := &SyncRun{ID: uuid.NewString(), Kind: kind, StartedAt: time.Now()}
	s.setLast(run)

	err := s.execute(ctx, apply, run)

	finished := time.Now()
	run.FinishedAt = &finished
	if err != nil {
		run.Error = err.Error()
		s.log.Error("inventory sync failed", zap.String("run", run.ID), zap.String("kind", kind), zap.Error(err))
	} else {
		s.cache.Invalidate(ctx)
		s.log.Info("inventory sync finished",
			zap.String("run", run.ID),
			zap.String("kind", kind),
			zap.Int("stocks", run.Stocks),
			zap.Int("variants_updated", run.VariantsUpdated),
			zap.Int("variants_created", run.VariantsCreated),
			zap.Duration("took", finished.Sub(run.StartedAt)))
	}
	s.setLast(run)

	result := *run
	return &result, err
}

func (s *Syncer) execute(ctx context.Context, apply func(tx *gorm.DB, stocks []ProductStock, run *SyncRun) error, run *SyncRun) error {
	stocks, err := s.source.ListStocks(ctx)
	if err != nil {
		return err
	}
	run.Stocks = len(stocks)
	products := make(map[int64]struct{})
	for _, st := range stocks {
		products[st.ProductID] = struct{}{}
	}
	run.Products = len(products)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return apply(tx, stocks, run)
	})
}

func (s *Syncer) setLast(run *SyncRun) {
	cp := *run
	s.mu.Lock()
	s.last = &cp
	s.mu.Unlock()
}

func (s *Syncer) syncStockLevels(tx *gorm.DB, stocks []ProductStock, run *SyncRun) error {
	for _, st := range stocks {
		res := tx.Model(&models.ItemVariant{}).
			Where("postgres_stock_id = ?", st.StockID).
			Updates(map[string]interface{}{
				"quantity": st.Quantity,
				"cost":     st.Cost,
				"price":    st.Price,
			})
		if res.Error != nil {
			return fmt.Errorf("update stock %d: %w", st.StockID, res.Error)
		}
		run.VariantsUpdated += int(res.RowsAffected)
	}
	return nil
}

func (s *Syncer) syncCatalog(tx *gorm.DB, stocks []ProductStock, run *SyncRun) error {
	categories := make(map[string]*models.Category)
	items := make(map[int64]uint)

	for _, st := range stocks {
		catName := strings.TrimSpace(st.CategoryName)
		if catName == "" {
			catName = models.UncategorizedName
		}
		cat, ok := categories[catName]
		if !ok {
			var found models.Category
			err := tx.Where("name = ?", catName).First(&found).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				found = models.Category{Name: catName, Color: models.DefaultCategoryColor}
				if err := tx.Create(&found).Error; err != nil {
					return fmt.Errorf("create category %q: %w", catName, err)
				}
				run.CategoriesAdded++
			case err != nil:
				return err
			}
			cat = &found
			categories[catName] = cat
		}

		itemID, ok := items[st.ProductID]
		if !ok {
			id, created, err := s.resolveItem(tx, st, cat)
			if err != nil {
				return err
			}
			if created {
				run.ItemsCreated++
			}
			itemID = id
			items[st.ProductID] = id
		}

		name := strings.TrimSpace(st.VariantName)
		if name == "" {
			name = DefaultVariantName
		}
		productID, stockID := st.ProductID, st.StockID

		var variant models.ItemVariant
		err := tx.Where("postgres_stock_id = ?", st.StockID).First(&variant).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			variant = models.ItemVariant{
				ItemID:            itemID,
				VariantName:       name,
				Cost:              st.Cost,
				Price:             st.Price,
				Quantity:          st.Quantity,
				PostgresProductID: &productID,
				PostgresStockID:   &stockID,
			}
			if err := tx.Create(&variant).Error; err != nil {
				return fmt.Errorf("create variant for stock %d: %w", st.StockID, err)
			}
			run.VariantsCreated++
		case err != nil:
			return err
		default:
			if err := tx.Model(&variant).Updates(map[string]interface{}{
				"item_id":             itemID,
				"variant_name":        name,
				"cost":                st.Cost,
				"price":               st.Price,
				"quantity":            st.Quantity,
				"postgres_product_id": productID,
			}).Error; err != nil {
				return fmt.Errorf("update variant for stock %d: %w", st.StockID, err)
			}
			run.VariantsUpdated++
		}
	}
	return nil
}

// resolveItem finds the local item of a product: the item a variant of the
// product already belongs to, else an item with the product name in the
// category, else a new colour tile.
func (s *Syncer) resolveItem(tx *gorm.DB, st ProductStock, cat *models.Category) (uint, bool, error) {
	var variant models.ItemVariant
	err := tx.Where("postgres_product_id = ?", st.ProductID).First(&variant).Error
	if err == nil {
		var n int64
		if err := tx.Model(&models.Item{}).Where("id = ?", variant.ItemID).Count(&n).Error; err != nil {
			return 0, false, err
		}
		if n > 0 {
			return variant.ItemID, false, nil
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, err
	}

	var item models.Item
	err = tx.Where("name = ? AND category_id = ?", st.ProductName, cat.ID).First(&item).Error
	if err == nil {
		return item.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, err
	}

	item = models.Item{
		Name:       st.ProductName,
		CategoryID: cat.ID,
		Type:       models.ItemTypeColor,
		Value:      cat.Color,
	}
	if err := tx.Create(&item).Error; err != nil {
		return 0, false, fmt.Errorf("create item %q: %w", st.ProductName, err)
	}
	return item.ID, true, nil
}

// Start runs a full sync every interval until ctx is done. interval <= 0
// disables the schedule; onStartup triggers one run immediately.
func (s *Syncer) Start(ctx context.Context, interval time.Duration, onStartup bool) {
	if !s.Enabled() {
		return
	}
	trigger := func() {
		if _, err := s.SyncFull(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) {
			s.log.Warn("scheduled sync failed", zap.Error(err))
		}
	}
	if onStartup {
		trigger()
	}
	if interval <= 0 {
		return
	}

	s.log.Info("sync scheduler started", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sync scheduler stopped")
			return
		case <-ticker.C:
			trigger()
		}
	}
}

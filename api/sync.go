package api

import (
	"context"
	"errors"
	"net/http"

	"pos/service"

	"github.com/gin-gonic/gin"
)

// SyncHandler triggers inventory syncs
type SyncHandler struct {
	syncer *service.Syncer
}

// NewSyncHandler creates the sync handler
func NewSyncHandler(syncer *service.Syncer) *SyncHandler {
	return &SyncHandler{syncer: syncer}
}

// SyncStatus current sync state
type SyncStatus struct {
	IsSyncing bool             `json:"is_syncing"`
	Enabled   bool             `json:"enabled"`
	LastRun   *service.SyncRun `json:"last_run"`
}

// Products refreshes stock levels of correlated variants
// @Summary Stock-only sync
// @Tags sync
// @Produce json
// @Success 200 {object} service.SyncRun
// @Failure 409 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/sync/products [post]
func (h *SyncHandler) Products(c *gin.Context) {
	h.trigger(c, h.syncer.SyncProducts)
}

// Full imports the catalogue from the inventory database
// @Summary Full catalogue sync
// @Tags sync
// @Produce json
// @Success 200 {object} service.SyncRun
// @Failure 409 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/sync/full [post]
func (h *SyncHandler) Full(c *gin.Context) {
	h.trigger(c, h.syncer.SyncFull)
}

func (h *SyncHandler) trigger(c *gin.Context, sync func(ctx context.Context) (*service.SyncRun, error)) {
	run, err := sync(c.Request.Context())
	switch {
	case errors.Is(err, service.ErrInventoryDisabled):
		Error(c, http.StatusServiceUnavailable, "Inventory sync is not configured")
	case errors.Is(err, service.ErrSyncInProgress):
		Error(c, http.StatusConflict, "Sync already in progress")
	case err != nil:
		InternalError(c, failureMessage("Sync failed", err))
	default:
		c.JSON(http.StatusOK, run)
	}
}

// Status reports whether a sync is running and the last run
// @Summary Sync status
// @Tags sync
// @Produce json
// @Success 200 {object} SyncStatus
// @Router /api/sync/status [get]
func (h *SyncHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, SyncStatus{
		IsSyncing: h.syncer.IsSyncing(),
		Enabled:   h.syncer.Enabled(),
		LastRun:   h.syncer.LastRun(),
	})
}

package api

import (
	"errors"
	"net/http"
	"time"

	"pos/config"
	"pos/database"
	"pos/middleware"
	"pos/models"
	"pos/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// resetTables emptied by reset-all, children first. The PIN log is kept.
var resetTables = []string{"transaction_items", "transactions", "item_variants", "item", "category"}

// BackofficeHandler PIN gate and maintenance
type BackofficeHandler struct {
	cfg       *config.Config
	email     *service.EmailService
	cache     service.DashboardCache
	uploadDir string
}

// NewBackofficeHandler email may be nil when alerts are disabled
func NewBackofficeHandler(cfg *config.Config, email *service.EmailService, cache service.DashboardCache) *BackofficeHandler {
	if cache == nil {
		cache = service.NoopCache{}
	}
	return &BackofficeHandler{cfg: cfg, email: email, cache: cache, uploadDir: cfg.Uploads.Dir}
}

type VerifyPinRequest struct {
	Pin string `json:"pin"`
}

type UpdatePinRequest struct {
	CurrentPin string `json:"currentPin"`
	NewPin     string `json:"newPin"`
}

func (h *BackofficeHandler) tokenTTL() time.Duration {
	if h.cfg.JWT.ExpireTime > 0 {
		return h.cfg.JWT.ExpireTime
	}
	return 12 * time.Hour
}

// currentPin loads the active PIN; writes the error response and returns nil when unavailable
func currentPin(c *gin.Context, missing string) *models.AdminPin {
	pin, err := database.CurrentPin(database.DB)
	if err != nil {
		if errors.Is(err, database.ErrNoPin) {
			BackofficeError(c, http.StatusInternalServerError, missing)
			return nil
		}
		zap.L().Error("load pin", zap.Error(err))
		BackofficeError(c, http.StatusInternalServerError, "PIN verification failed")
		return nil
	}
	return pin
}

// VerifyPin checks the backoffice PIN and issues a backoffice token
// @Summary Verify backoffice PIN
// @Tags backoffice
// @Accept json
// @Produce json
// @Param request body VerifyPinRequest true "PIN"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 429 {object} ErrorResponse
// @Router /api/backoffice/verify-pin [post]
func (h *BackofficeHandler) VerifyPin(c *gin.Context) {
	var req VerifyPinRequest
	_ = c.ShouldBindJSON(&req)
	if req.Pin == "" {
		BackofficeError(c, http.StatusBadRequest, "PIN is required")
		return
	}
	if !models.IsValidPin(req.Pin) {
		BackofficeError(c, http.StatusBadRequest, "PIN must be 4 digits")
		return
	}

	pin := currentPin(c, "No PIN configured")
	if pin == nil {
		return
	}
	if !pin.Matches(req.Pin) {
		zap.L().Warn("invalid backoffice PIN", zap.String("ip", c.ClientIP()))
		BackofficeError(c, http.StatusUnauthorized, "Invalid PIN")
		return
	}

	ttl := h.tokenTTL()
	token, err := middleware.GenerateToken(pin.ID, ttl)
	if err != nil {
		zap.L().Error("issue backoffice token", zap.Error(err))
		BackofficeError(c, http.StatusInternalServerError, "PIN verification failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      token,
		"expires_in": int64(ttl / time.Second),
	})
}

// UpdatePin appends a new PIN after checking the current one
// @Summary Change backoffice PIN
// @Tags backoffice
// @Accept json
// @Produce json
// @Param request body UpdatePinRequest true "PINs"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/backoffice/pin [put]
func (h *BackofficeHandler) UpdatePin(c *gin.Context) {
	var req UpdatePinRequest
	_ = c.ShouldBindJSON(&req)
	if req.CurrentPin == "" || req.NewPin == "" {
		BackofficeError(c, http.StatusBadRequest, "Current PIN and new PIN are required")
		return
	}
	if !models.IsValidPin(req.NewPin) {
		BackofficeError(c, http.StatusBadRequest, "New PIN must be 4 digits")
		return
	}

	pin := currentPin(c, "No PIN configured in system")
	if pin == nil {
		return
	}
	if !pin.Matches(req.CurrentPin) {
		BackofficeError(c, http.StatusUnauthorized, "Current PIN is incorrect")
		return
	}
	if req.CurrentPin == req.NewPin {
		BackofficeError(c, http.StatusBadRequest, "New PIN cannot be the same as current PIN")
		return
	}

	if err := database.AppendPin(database.DB, req.NewPin); err != nil {
		zap.L().Error("update pin", zap.Error(err))
		BackofficeError(c, http.StatusInternalServerError, "Failed to update PIN")
		return
	}

	zap.L().Info("backoffice PIN changed",
		zap.String("ip", c.ClientIP()),
		zap.Uint("token_pin_id", middleware.GetBackofficePinID(c)))
	h.email.Alert("Backoffice PIN changed",
		"The backoffice PIN was changed.",
		"Client IP: "+c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "PIN updated successfully"})
}

// PinInfo reports whether a PIN is set and since when; never the PIN itself
// @Summary Backoffice PIN info
// @Tags backoffice
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/backoffice/pin-info [get]
func (h *BackofficeHandler) PinInfo(c *gin.Context) {
	pin, err := database.CurrentPin(database.DB)
	if err != nil {
		if errors.Is(err, database.ErrNoPin) {
			BackofficeError(c, http.StatusNotFound, "No PIN found")
			return
		}
		zap.L().Error("pin info", zap.Error(err))
		BackofficeError(c, http.StatusInternalServerError, "Failed to get PIN info")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"pin_set":    true,
		"created_at": pin.CreatedAt,
	})
}

// InitializePin stores the configured default PIN when none exists
// @Summary Initialize default PIN
// @Tags backoffice
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/backoffice/initialize-pin [post]
func (h *BackofficeHandler) InitializePin(c *gin.Context) {
	defaultPin := h.cfg.Backoffice.DefaultPin
	if !models.IsValidPin(defaultPin) {
		defaultPin = "1234"
	}
	created, err := database.EnsurePin(database.DB, defaultPin)
	if err != nil {
		zap.L().Error("initialize pin", zap.Error(err))
		BackofficeError(c, http.StatusInternalServerError, "Failed to initialize PIN")
		return
	}
	if !created {
		BackofficeError(c, http.StatusBadRequest, "PIN already initialized")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Default PIN initialized successfully"})
}

// ResetAll deletes every sale and the whole catalogue. The PIN log is kept.
// @Summary Delete all data
// @Tags backoffice
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/backoffice/reset-all [delete]
func (h *BackofficeHandler) ResetAll(c *gin.Context) {
	var images []models.Item
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("type = ?", models.ItemTypeImage).Find(&images).Error; err != nil {
			return err
		}
		for _, table := range resetTables {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return err
			}
		}
		return database.ResetSequences(tx, resetTables...)
	})
	if err != nil {
		zap.L().Error("reset all data", zap.Error(err))
		BackofficeError(c, http.StatusInternalServerError, failureMessage("Failed to delete all data", err))
		return
	}

	for i := range images {
		if images[i].UploadedFile() != "" {
			removeUploadFile(h.uploadDir, images[i].Value)
		}
	}
	h.cache.Invalidate(c.Request.Context())

	zap.L().Warn("all data deleted",
		zap.String("ip", c.ClientIP()),
		zap.Uint("token_pin_id", middleware.GetBackofficePinID(c)),
		zap.Int("images", len(images)))
	h.email.Alert("All POS data deleted",
		"Every transaction, item, variant and category was deleted.",
		"Client IP: "+c.ClientIP())

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "All data has been deleted successfully",
		"tables_cleared": resetTables,
	})
}

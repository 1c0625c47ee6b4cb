package api

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pos/config"
	"pos/database"
	"pos/middleware"
	"pos/models"
	"pos/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backofficeConfig(uploadDir string) *config.Config {
	cfg := &config.Config{
		Server:     config.ServerConfig{Mode: "test"},
		Uploads:    config.UploadsConfig{Dir: uploadDir},
		Backoffice: config.BackofficeConfig{DefaultPin: "1234"},
		JWT:        config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
	}
	middleware.InitJWT(cfg)
	return cfg
}

func backofficeRouter(h *BackofficeHandler) *gin.Engine {
	r := gin.New()
	r.POST("/verify-pin", h.VerifyPin)
	r.PUT("/pin", h.UpdatePin)
	r.GET("/pin-info", h.PinInfo)
	r.POST("/initialize-pin", h.InitializePin)
	r.DELETE("/reset-all", h.ResetAll)
	return r
}

func TestBackofficeHandler_VerifyPin(t *testing.T) {
	db := setupTestDB(t)
	r := backofficeRouter(NewBackofficeHandler(backofficeConfig(t.TempDir()), nil, nil))

	// empty PIN log
	w := doJSON(t, r, http.MethodPost, "/verify-pin", map[string]string{"pin": "1234"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "No PIN configured")

	require.NoError(t, database.AppendPin(db, "1234"))

	w = doJSON(t, r, http.MethodPost, "/verify-pin", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "PIN is required")

	w = doJSON(t, r, http.MethodPost, "/verify-pin", map[string]string{"pin": "12a4"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "PIN must be 4 digits")

	w = doJSON(t, r, http.MethodPost, "/verify-pin", map[string]string{"pin": "9999"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var failed map[string]interface{}
	decode(t, w, &failed)
	assert.Equal(t, false, failed["success"])
	assert.Equal(t, "Invalid PIN", failed["error"])

	w = doJSON(t, r, http.MethodPost, "/verify-pin", map[string]string{"pin": "1234"})
	require.Equal(t, http.StatusOK, w.Code)
	var ok struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	decode(t, w, &ok)
	assert.True(t, ok.Success)
	claims, err := middleware.ParseToken(ok.Token)
	require.NoError(t, err)
	assert.Equal(t, middleware.BackofficeSubject, claims.Subject)
	assert.NotZero(t, claims.PinID)
}

func TestBackofficeHandler_VerifyLegacyPlainPin(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.AdminPin{Pin: "4321"}).Error)
	r := backofficeRouter(NewBackofficeHandler(backofficeConfig(t.TempDir()), nil, nil))

	w := doJSON(t, r, http.MethodPost, "/verify-pin", map[string]string{"pin": "4321"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBackofficeHandler_UpdatePin(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, database.AppendPin(db, "1234"))
	r := backofficeRouter(NewBackofficeHandler(backofficeConfig(t.TempDir()), nil, nil))

	w := doJSON(t, r, http.MethodPut, "/pin", map[string]string{"currentPin": "1234"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Current PIN and new PIN are required")

	w = doJSON(t, r, http.MethodPut, "/pin", map[string]string{"currentPin": "1234", "newPin": "12345"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "New PIN must be 4 digits")

	w = doJSON(t, r, http.MethodPut, "/pin", map[string]string{"currentPin": "0000", "newPin": "5678"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Current PIN is incorrect")

	w = doJSON(t, r, http.MethodPut, "/pin", map[string]string{"currentPin": "1234", "newPin": "1234"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "New PIN cannot be the same as current PIN")

	w = doJSON(t, r, http.MethodPut, "/pin", map[string]string{"currentPin": "1234", "newPin": "5678"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "PIN updated successfully")

	// append-only: the old row stays, the new one wins
	var count int64
	db.Model(&models.AdminPin{}).Count(&count)
	assert.Equal(t, int64(2), count)

	w = doJSON(t, r, http.MethodPost, "/verify-pin", map[string]string{"pin": "1234"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, r, http.MethodPost, "/verify-pin", map[string]string{"pin": "5678"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBackofficeHandler_PinInfoAndInitialize(t *testing.T) {
	setupTestDB(t)
	r := backofficeRouter(NewBackofficeHandler(backofficeConfig(t.TempDir()), nil, nil))

	w := doJSON(t, r, http.MethodGet, "/pin-info", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "No PIN found")

	w = doJSON(t, r, http.MethodPost, "/initialize-pin", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/initialize-pin", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "PIN already initialized")

	w = doJSON(t, r, http.MethodGet, "/pin-info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]interface{}
	decode(t, w, &info)
	assert.Equal(t, true, info["pin_set"])
	assert.NotEmpty(t, info["created_at"])

	w = doJSON(t, r, http.MethodPost, "/verify-pin", map[string]string{"pin": "1234"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBackofficeHandler_ResetAll(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, database.AppendPin(db, "1234"))
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1-cake.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644))

	seedDashboardSales(t, db)
	cake := models.Item{Name: "Cake", CategoryID: 2, Type: models.ItemTypeImage, Value: "/uploads/1-cake.png"}
	require.NoError(t, db.Create(&cake).Error)
	seedVariant(t, db, cake.ID, "Slice", 40, 100)

	cache := &recordingCache{}
	email := service.NewEmailService(&config.EmailConfig{}, nil)
	r := backofficeRouter(NewBackofficeHandler(backofficeConfig(dir), email, cache))

	w := doJSON(t, r, http.MethodDelete, "/reset-all", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Success       bool     `json:"success"`
		Message       string   `json:"message"`
		TablesCleared []string `json:"tables_cleared"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "All data has been deleted successfully", resp.Message)
	assert.Equal(t, []string{"transaction_items", "transactions", "item_variants", "item", "category"}, resp.TablesCleared)
	assert.Equal(t, 1, cache.invalidations)

	for _, m := range []interface{}{&models.TransactionItem{}, &models.Transaction{}, &models.ItemVariant{}, &models.Item{}, &models.Category{}} {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		assert.Zero(t, n)
	}
	var pins int64
	db.Model(&models.AdminPin{}).Count(&pins)
	assert.Equal(t, int64(1), pins)

	_, err := os.Stat(filepath.Join(dir, "1-cake.png"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "keep.txt"))
	assert.NoError(t, err)

	// counters restart
	cat := seedCategory(t, db, "Drinks", "#3b82f6")
	assert.Equal(t, uint(1), cat.ID)
}

package api

import (
	"errors"
	"net/http"
	"testing"

	"pos/models"
	"pos/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func categoryRouter(cache ...service.DashboardCache) *gin.Engine {
	var c service.DashboardCache
	if len(cache) > 0 {
		c = cache[0]
	}
	r := gin.New()
	h := NewCategoryHandler(c)
	r.GET("/categories", h.List)
	r.GET("/categories/:id", h.Get)
	r.POST("/categories", h.Create)
	r.PUT("/categories/:id", h.Update)
	r.DELETE("/categories/:id", h.Delete)
	return r
}

func TestCategoryHandler_CreateThenGet(t *testing.T) {
	setupTestDB(t)
	r := categoryRouter()

	w := doJSON(t, r, http.MethodPost, "/categories", map[string]string{"name": "Drinks", "color": "#3b82f6"})
	require.Equal(t, http.StatusOK, w.Code)
	var created CategoryWithCount
	decode(t, w, &created)
	assert.NotZero(t, created.ID)

	w = doJSON(t, r, http.MethodGet, "/categories/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]interface{}
	decode(t, w, &got)
	assert.Equal(t, "Drinks", got["name"])
	assert.Equal(t, "#3b82f6", got["color"])
	assert.Equal(t, float64(created.ID), got["id"])
}

func TestCategoryHandler_CreateValidation(t *testing.T) {
	setupTestDB(t)
	r := categoryRouter()

	w := doJSON(t, r, http.MethodPost, "/categories", map[string]string{"name": "Drinks"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Name and color are required")

	w = doJSON(t, r, http.MethodPost, "/categories", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCategoryHandler_ListCountsItems(t *testing.T) {
	db := setupTestDB(t)
	drinks := seedCategory(t, db, "Drinks", "#3b82f6")
	seedCategory(t, db, "Food", "#ef4444")
	seedItem(t, db, "Coffee", drinks.ID)
	seedItem(t, db, "Tea", drinks.ID)

	w := doJSON(t, categoryRouter(), http.MethodGet, "/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	decode(t, w, &list)
	require.Len(t, list, 2)
	assert.Equal(t, "Drinks", list[0]["name"])
	assert.Equal(t, float64(2), list[0]["itemsCount"])
	assert.Equal(t, float64(0), list[1]["itemsCount"])
}

func TestCategoryHandler_UpdatePartial(t *testing.T) {
	db := setupTestDB(t)
	cat := seedCategory(t, db, "Drinks", "#3b82f6")
	r := categoryRouter()

	w := doJSON(t, r, http.MethodPut, "/categories/1", map[string]string{"color": "#000000"})
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]interface{}
	decode(t, w, &got)
	assert.Equal(t, "Drinks", got["name"])
	assert.Equal(t, "#000000", got["color"])
	assert.Equal(t, float64(cat.ID), got["id"])

	w = doJSON(t, r, http.MethodPut, "/categories/1", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPut, "/categories/99", map[string]string{"name": "X"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCategoryHandler_WritesInvalidateDashboardCache(t *testing.T) {
	db := setupTestDB(t)
	cache := &recordingCache{}
	r := categoryRouter(cache)

	w := doJSON(t, r, http.MethodPost, "/categories", map[string]string{"name": "Drinks", "color": "#3b82f6"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, cache.invalidations)

	w = doJSON(t, r, http.MethodPut, "/categories/1", map[string]string{"name": "Beverages"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, cache.invalidations)
	var stored models.Category
	require.NoError(t, db.First(&stored, 1).Error)
	assert.Equal(t, "Beverages", stored.Name)
	assert.Equal(t, "#3b82f6", stored.Color)

	w = doJSON(t, r, http.MethodDelete, "/categories/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, cache.invalidations)

	// failed writes leave the cache alone
	doJSON(t, r, http.MethodPost, "/categories", map[string]string{"name": "Food"})
	doJSON(t, r, http.MethodPut, "/categories/99", map[string]string{"name": "X"})
	doJSON(t, r, http.MethodDelete, "/categories/1", nil)
	assert.Equal(t, 3, cache.invalidations)
}

func TestCategoryHandler_Delete(t *testing.T) {
	db := setupTestDB(t)
	seedCategory(t, db, "Drinks", "#3b82f6")
	r := categoryRouter()

	w := doJSON(t, r, http.MethodDelete, "/categories/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Category deleted successfully")

	w = doJSON(t, r, http.MethodDelete, "/categories/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/categories/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid ID")
}

func TestCategoryHandler_ListDBError(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT c.id, c.name, c.color").WillReturnError(errors.New("connection refused"))

	w := doJSON(t, categoryRouter(), http.MethodGet, "/categories", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to fetch categories")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_GetMySQL(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `category` WHERE `category`.`id` = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "color"}).AddRow(3, "Snacks", "#facc15"))

	w := doJSON(t, categoryRouter(), http.MethodGet, "/categories/3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Snacks"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

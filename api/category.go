package api

import (
	"errors"
	"net/http"
	"strings"

	"pos/database"
	"pos/models"
	"pos/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CategoryHandler register categories; writes invalidate the dashboard cache
type CategoryHandler struct {
	cache service.DashboardCache
}

func NewCategoryHandler(cache service.DashboardCache) *CategoryHandler {
	if cache == nil {
		cache = service.NoopCache{}
	}
	return &CategoryHandler{cache: cache}
}

type CategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"` // hex, e.g. #ef4444
}

// CategoryWithCount list row
type CategoryWithCount struct {
	models.Category
	ItemsCount int64 `json:"itemsCount"`
}

// List lists categories with their item counts
// @Summary List categories
// @Tags categories
// @Produce json
// @Success 200 {array} CategoryWithCount
// @Router /api/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	list := []CategoryWithCount{}
	err := database.DB.Table("category AS c").
		Select("c.id, c.name, c.color, COUNT(i.id) AS items_count").
		Joins("LEFT JOIN item i ON i.category_id = c.id").
		Group("c.id, c.name, c.color").
		Order("c.id").
		Scan(&list).Error
	if err != nil {
		zap.L().Error("list categories", zap.Error(err))
		InternalError(c, "Failed to fetch categories")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get returns one category
// @Summary Get category
// @Tags categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} models.Category
// @Failure 404 {object} ErrorResponse
// @Router /api/categories/{id} [get]
func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var cat models.Category
	if err := database.DB.First(&cat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Category not found")
			return
		}
		zap.L().Error("get category", zap.Uint("id", id), zap.Error(err))
		InternalError(c, "Failed to fetch category")
		return
	}
	c.JSON(http.StatusOK, cat)
}

// Create creates a category
// @Summary Create category
// @Tags categories
// @Accept json
// @Produce json
// @Param request body CategoryRequest true "Category"
// @Success 200 {object} models.Category
// @Failure 400 {object} ErrorResponse
// @Router /api/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Color = strings.TrimSpace(req.Color)
	if req.Name == "" || req.Color == "" {
		BadRequest(c, "Name and color are required")
		return
	}

	cat := models.Category{Name: req.Name, Color: req.Color}
	if err := database.DB.Create(&cat).Error; err != nil {
		zap.L().Error("create category", zap.Error(err))
		InternalError(c, "Failed to create category")
		return
	}
	h.cache.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, cat)
}

// Update updates name and/or color
// @Summary Update category
// @Tags categories
// @Accept json
// @Produce json
// @Param id path int true "Category ID"
// @Param request body CategoryRequest true "Category"
// @Success 200 {object} models.Category
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	color := strings.TrimSpace(req.Color)
	updates := map[string]interface{}{}
	if name != "" {
		updates["name"] = name
	}
	if color != "" {
		updates["color"] = color
	}
	if len(updates) == 0 {
		BadRequest(c, "Name or color is required")
		return
	}

	var cat models.Category
	if err := database.DB.First(&cat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Category not found")
			return
		}
		zap.L().Error("load category", zap.Uint("id", id), zap.Error(err))
		InternalError(c, "Failed to update category")
		return
	}
	if err := database.DB.Model(&cat).Updates(updates).Error; err != nil {
		zap.L().Error("update category", zap.Uint("id", id), zap.Error(err))
		InternalError(c, "Failed to update category")
		return
	}
	if name != "" {
		cat.Name = name
	}
	if color != "" {
		cat.Color = color
	}
	h.cache.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, cat)
}

// Delete deletes a category; its items keep their dangling category_id
// @Summary Delete category
// @Tags categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	res := database.DB.Delete(&models.Category{}, id)
	if res.Error != nil {
		zap.L().Error("delete category", zap.Uint("id", id), zap.Error(res.Error))
		InternalError(c, "Failed to delete category")
		return
	}
	if res.RowsAffected == 0 {
		NotFound(c, "Category not found")
		return
	}
	h.cache.Invalidate(c.Request.Context())
	Message(c, "Category deleted successfully")
}

package api

import (
	"errors"
	"net/http"
	"strings"

	"pos/database"
	"pos/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VariantHandler item variants
type VariantHandler struct{}

func NewVariantHandler() *VariantHandler {
	return &VariantHandler{}
}

type VariantRequest struct {
	VariantName string  `json:"variant_name"`
	Cost        *Number `json:"cost"`
	Price       *Number `json:"price"`
}

func (r *VariantRequest) valid() bool {
	r.VariantName = strings.TrimSpace(r.VariantName)
	return r.VariantName != "" && r.Cost != nil && r.Price != nil
}

func bindVariant(c *gin.Context) (*VariantRequest, bool) {
	var req VariantRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.valid() {
		BadRequest(c, "Variant name, cost, and price are required")
		return nil, false
	}
	if req.Cost.Float64() < 0 || req.Price.Float64() < 0 {
		BadRequest(c, "Cost and price cannot be negative")
		return nil, false
	}
	return &req, true
}

func findVariant(c *gin.Context, action string) (*models.ItemVariant, bool) {
	id, ok := parseID(c, "variantId")
	if !ok {
		return nil, false
	}
	var v models.ItemVariant
	if err := database.DB.First(&v, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Variant not found")
			return nil, false
		}
		zap.L().Error(action, zap.Uint("variant_id", id), zap.Error(err))
		InternalError(c, failureMessage("Failed to "+action, err))
		return nil, false
	}
	return &v, true
}

// Create adds a variant to an item
// @Summary Create variant
// @Tags variants
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param request body VariantRequest true "Variant"
// @Success 201 {object} models.ItemVariant
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/items/{id}/variants [post]
func (h *VariantHandler) Create(c *gin.Context) {
	itemID, ok := parseID(c, "id")
	if !ok {
		return
	}
	req, ok := bindVariant(c)
	if !ok {
		return
	}

	var item models.Item
	if err := database.DB.Select("id").First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Item not found")
			return
		}
		InternalError(c, failureMessage("Failed to create variant", err))
		return
	}

	v := models.ItemVariant{
		ItemID:      itemID,
		VariantName: req.VariantName,
		Cost:        models.RoundMoney(req.Cost.Float64()),
		Price:       models.RoundMoney(req.Price.Float64()),
	}
	if err := database.DB.Create(&v).Error; err != nil {
		zap.L().Error("create variant", zap.Uint("item_id", itemID), zap.Error(err))
		InternalError(c, failureMessage("Failed to create variant", err))
		return
	}
	c.JSON(http.StatusCreated, v)
}

// List lists the variants of an item ordered by name
// @Summary List variants of an item
// @Tags variants
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {array} models.ItemVariant
// @Router /api/items/{id}/variants [get]
func (h *VariantHandler) List(c *gin.Context) {
	itemID, ok := parseID(c, "id")
	if !ok {
		return
	}
	variants := []models.ItemVariant{}
	if err := database.DB.Where("item_id = ?", itemID).Order("variant_name").Order("id").Find(&variants).Error; err != nil {
		zap.L().Error("list variants", zap.Uint("item_id", itemID), zap.Error(err))
		InternalError(c, failureMessage("Failed to fetch variants", err))
		return
	}
	c.JSON(http.StatusOK, variants)
}

// Get returns one variant
// @Summary Get variant
// @Tags variants
// @Produce json
// @Param variantId path int true "Variant ID"
// @Success 200 {object} models.ItemVariant
// @Failure 404 {object} ErrorResponse
// @Router /api/items/variants/{variantId} [get]
func (h *VariantHandler) Get(c *gin.Context) {
	v, ok := findVariant(c, "fetch variant")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, v)
}

// Update changes name, cost and price. Quantity belongs to the inventory sync.
// @Summary Update variant
// @Tags variants
// @Accept json
// @Produce json
// @Param variantId path int true "Variant ID"
// @Param request body VariantRequest true "Variant"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/items/variants/{variantId} [put]
func (h *VariantHandler) Update(c *gin.Context) {
	req, ok := bindVariant(c)
	if !ok {
		return
	}
	v, ok := findVariant(c, "update variant")
	if !ok {
		return
	}

	updates := map[string]interface{}{
		"variant_name": req.VariantName,
		"cost":         models.RoundMoney(req.Cost.Float64()),
		"price":        models.RoundMoney(req.Price.Float64()),
	}
	if err := database.DB.Model(v).Updates(updates).Error; err != nil {
		zap.L().Error("update variant", zap.Uint("variant_id", v.ID), zap.Error(err))
		InternalError(c, failureMessage("Failed to update variant", err))
		return
	}
	database.DB.First(v, v.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Variant updated successfully", "variant": v})
}

// Delete deletes a variant
// @Summary Delete variant
// @Tags variants
// @Produce json
// @Param variantId path int true "Variant ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/items/variants/{variantId} [delete]
func (h *VariantHandler) Delete(c *gin.Context) {
	v, ok := findVariant(c, "delete variant")
	if !ok {
		return
	}
	if err := database.DB.Delete(&models.ItemVariant{}, v.ID).Error; err != nil {
		zap.L().Error("delete variant", zap.Uint("variant_id", v.ID), zap.Error(err))
		InternalError(c, failureMessage("Failed to delete variant", err))
		return
	}
	Message(c, "Variant deleted successfully")
}

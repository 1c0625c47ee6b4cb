package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"pos/database"
	"pos/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ItemHandler register items and their image uploads
type ItemHandler struct {
	uploadDir string
}

func NewItemHandler(uploadDir string) *ItemHandler {
	return &ItemHandler{uploadDir: uploadDir}
}

type ItemCreateRequest struct {
	Name       string `json:"name" form:"name"`
	CategoryID uint   `json:"category_id" form:"category_id"`
	Type       string `json:"type" form:"type"`
	Value      string `json:"value" form:"value"`
}

type ItemUpdateRequest struct {
	Name       string `json:"name" form:"name"`
	Category   string `json:"category" form:"category"` // category name
	CategoryID *uint  `json:"category_id" form:"category_id"`
	Type       string `json:"type" form:"type"`
	Value      string `json:"value" form:"value"`
}

// ItemView item with its category name and variants
type ItemView struct {
	models.Item
	CategoryName *string              `json:"categoryName"`
	Variants     []models.ItemVariant `json:"variants" gorm:"-"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// uploadFileName stored name of an upload: "<unix ms>-<name, whitespace runs as _>"
func uploadFileName(original string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	base = whitespaceRun.ReplaceAllString(base, "_")
	return fmt.Sprintf("%d-%s", now.UnixMilli(), base)
}

// saveUpload stores the "photo" form file and returns its public value, "" when none was sent
func (h *ItemHandler) saveUpload(c *gin.Context) (string, error) {
	var file *multipart.FileHeader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		f, err := c.FormFile("photo")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return "", nil
			}
			return "", err
		}
		file = f
	}
	if file == nil {
		return "", nil
	}
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}
	name := uploadFileName(file.Filename, time.Now())
	if err := c.SaveUploadedFile(file, filepath.Join(h.uploadDir, name)); err != nil {
		return "", err
	}
	return models.UploadsURLPrefix + name, nil
}

// removeUpload deletes the file behind a stored /uploads/ value; a missing file is not an error
func (h *ItemHandler) removeUpload(value string) {
	removeUploadFile(h.uploadDir, value)
}

func removeUploadFile(dir, value string) {
	name := models.UploadFileName(value)
	if name == "" || name == "." || name == ".." {
		return
	}
	path := filepath.Join(dir, name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			zap.L().Debug("upload already gone", zap.String("path", path))
			return
		}
		zap.L().Warn("remove upload", zap.String("path", path), zap.Error(err))
		return
	}
	zap.L().Info("upload removed", zap.String("path", path))
}

// loadItemViews reads items (all when ids is empty) with category names and variants
func loadItemViews(db *gorm.DB, ids ...uint) ([]ItemView, error) {
	items := []ItemView{}
	q := db.Table("item AS i").
		Select("i.id, i.name, i.category_id, i.type, i.value, c.name AS category_name").
		Joins("LEFT JOIN category c ON i.category_id = c.id").
		Order("i.id")
	if len(ids) > 0 {
		q = q.Where("i.id IN ?", ids)
	}
	if err := q.Scan(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	itemIDs := make([]uint, len(items))
	for i := range items {
		itemIDs[i] = items[i].ID
		items[i].Variants = []models.ItemVariant{}
	}
	var variants []models.ItemVariant
	if err := db.Where("item_id IN ?", itemIDs).Order("variant_name").Order("id").Find(&variants).Error; err != nil {
		return nil, err
	}
	index := make(map[uint]int, len(items))
	for i := range items {
		index[items[i].ID] = i
	}
	for _, v := range variants {
		if i, ok := index[v.ItemID]; ok {
			items[i].Variants = append(items[i].Variants, v)
		}
	}
	return items, nil
}

// Create creates an item; multipart requests may carry an image in "photo"
// @Summary Create item
// @Tags items
// @Accept json,mpfd
// @Produce json
// @Param request body ItemCreateRequest true "Item"
// @Success 201 {object} models.Item
// @Failure 400 {object} ErrorResponse
// @Router /api/items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	var req ItemCreateRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, "Invalid request body")
		return
	}
	if !models.IsValidItemType(req.Type) {
		BadRequest(c, "Invalid type. Must be 'color' or 'image'.")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		BadRequest(c, "Name is required")
		return
	}

	uploaded, err := h.saveUpload(c)
	if err != nil {
		zap.L().Error("save upload", zap.Error(err))
		InternalError(c, failureMessage("Failed to save upload", err))
		return
	}

	item := models.Item{Name: req.Name, CategoryID: req.CategoryID, Type: req.Type, Value: req.Value}
	if uploaded != "" {
		if req.Type == models.ItemTypeImage {
			item.Value = uploaded
		} else {
			h.removeUpload(uploaded)
		}
	}

	if err := database.DB.Create(&item).Error; err != nil {
		if uploaded != "" && item.Value == uploaded {
			h.removeUpload(uploaded)
		}
		zap.L().Error("create item", zap.Error(err))
		InternalError(c, failureMessage("Failed to create item", err))
		return
	}
	c.JSON(http.StatusCreated, item)
}

// List lists items with category names and variants
// @Summary List items
// @Tags items
// @Produce json
// @Success 200 {array} ItemView
// @Router /api/items [get]
func (h *ItemHandler) List(c *gin.Context) {
	items, err := loadItemViews(database.DB)
	if err != nil {
		zap.L().Error("list items", zap.Error(err))
		InternalError(c, "Failed to fetch items")
		return
	}
	c.JSON(http.StatusOK, items)
}

// Get returns one item with variants
// @Summary Get item
// @Tags items
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} ItemView
// @Failure 404 {object} ErrorResponse
// @Router /api/items/{id} [get]
func (h *ItemHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	items, err := loadItemViews(database.DB, id)
	if err != nil {
		zap.L().Error("get item", zap.Uint("id", id), zap.Error(err))
		InternalError(c, failureMessage("Failed to fetch item", err))
		return
	}
	if len(items) == 0 {
		NotFound(c, "Item not found")
		return
	}
	c.JSON(http.StatusOK, items[0])
}

// Update updates an item. The category is given by name ("category") or id;
// for image items a new upload wins, a bare file name is mapped under
// /uploads/ and an empty value keeps the current image.
// @Summary Update item
// @Tags items
// @Accept json,mpfd
// @Produce json
// @Param id path int true "Item ID"
// @Param request body ItemUpdateRequest true "Item"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/items/{id} [put]
func (h *ItemHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req ItemUpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, "Invalid request body")
		return
	}

	var current models.Item
	if err := database.DB.First(&current, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Item not found")
			return
		}
		InternalError(c, failureMessage("Failed to update item", err))
		return
	}

	categoryID := current.CategoryID
	switch {
	case strings.TrimSpace(req.Category) != "":
		var cat models.Category
		if err := database.DB.Where("name = ?", strings.TrimSpace(req.Category)).First(&cat).Error; err != nil {
			BadRequest(c, "Category not found")
			return
		}
		categoryID = cat.ID
	case req.CategoryID != nil:
		var cat models.Category
		if err := database.DB.First(&cat, *req.CategoryID).Error; err != nil {
			BadRequest(c, "Category not found")
			return
		}
		categoryID = cat.ID
	}

	itemType := req.Type
	if itemType == "" {
		itemType = current.Type
	}
	if !models.IsValidItemType(itemType) {
		BadRequest(c, "Invalid type. Must be 'color' or 'image'.")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = current.Name
	}

	uploaded, err := h.saveUpload(c)
	if err != nil {
		zap.L().Error("save upload", zap.Error(err))
		InternalError(c, failureMessage("Failed to save upload", err))
		return
	}

	value := strings.TrimSpace(req.Value)
	switch {
	case itemType == models.ItemTypeImage && uploaded != "":
		value = uploaded
	case itemType == models.ItemTypeImage && value != "" && !strings.HasPrefix(value, models.UploadsURLPrefix):
		value = models.UploadsURLPrefix + models.UploadFileName(value)
	case value == "":
		value = current.Value
	}
	if uploaded != "" && value != uploaded {
		h.removeUpload(uploaded)
		uploaded = ""
	}

	previous := models.Item{Type: current.Type, Value: current.Value}
	updates := map[string]interface{}{
		"name":        name,
		"category_id": categoryID,
		"type":        itemType,
		"value":       value,
	}
	if err := database.DB.Model(&current).Updates(updates).Error; err != nil {
		if uploaded != "" {
			h.removeUpload(uploaded)
		}
		zap.L().Error("update item", zap.Uint("id", id), zap.Error(err))
		InternalError(c, failureMessage("Failed to update item", err))
		return
	}

	// replaced image
	if file := previous.UploadedFile(); file != "" && (itemType != models.ItemTypeImage || models.UploadFileName(value) != file) {
		h.removeUpload(previous.Value)
	}

	items, err := loadItemViews(database.DB, id)
	if err != nil || len(items) == 0 {
		Message(c, "Item updated successfully")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item updated successfully", "item": items[0]})
}

// Delete deletes an item, its variants and its uploaded image
// @Summary Delete item
// @Tags items
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/items/{id} [delete]
func (h *ItemHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var item models.Item
	if err := database.DB.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Item not found")
			return
		}
		InternalError(c, failureMessage("Failed to delete item", err))
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id).Delete(&models.ItemVariant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Item{}, id).Error
	})
	if err != nil {
		zap.L().Error("delete item", zap.Uint("id", id), zap.Error(err))
		InternalError(c, failureMessage("Failed to delete item", err))
		return
	}

	if item.UploadedFile() != "" {
		h.removeUpload(item.Value)
	}
	Message(c, "Item and its variants deleted successfully")
}

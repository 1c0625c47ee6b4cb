package models

import "strings"

// Item display type
const (
	ItemTypeColor = "color"
	ItemTypeImage = "image"
)

// UploadsURLPrefix public prefix of uploaded item images
const UploadsURLPrefix = "/uploads/"

// Item sellable item; Value is a hex colour or an /uploads/ path depending on Type
type Item struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	Name       string `json:"name" gorm:"size:255;not null"`
	CategoryID uint   `json:"category_id" gorm:"index"`
	Type       string `json:"type" gorm:"size:10;not null;default:color"`
	Value      string `json:"value" gorm:"size:500"`
}

// TableName table name
func (Item) TableName() string {
	return "item"
}

// IsValidItemType reports whether t is a known display type
func IsValidItemType(t string) bool {
	return t == ItemTypeColor || t == ItemTypeImage
}

// UploadedFile returns the stored upload file name, or "" when the item has no image
func (i *Item) UploadedFile() string {
	if i.Type != ItemTypeImage || i.Value == "" {
		return ""
	}
	return UploadFileName(i.Value)
}

// UploadFileName strips the /uploads/ prefix (or any directory part) from a stored value
func UploadFileName(value string) string {
	if idx := strings.LastIndex(value, "/"); idx >= 0 {
		return value[idx+1:]
	}
	return value
}

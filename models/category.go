package models

// Category item category shown as a coloured tile on the register
type Category struct {
	ID    uint   `json:"id" gorm:"primaryKey"`
	Name  string `json:"name" gorm:"size:100;not null;index"`
	Color string `json:"color" gorm:"size:20"` // hex, e.g. #ef4444
}

// TableName table name
func (Category) TableName() string {
	return "category"
}

// UncategorizedName snapshot name for lines sold without a category
const UncategorizedName = "Uncategorized"

// DefaultCategoryColor colour given to categories created by sync
const DefaultCategoryColor = "#64748b"

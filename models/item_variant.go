package models

// ItemVariant priced sub-SKU of an item. Quantity mirrors the PostgreSQL
// on-hand count and is only written by sync and by stock decrements.
type ItemVariant struct {
	ID                uint    `json:"id" gorm:"primaryKey"`
	ItemID            uint    `json:"item_id" gorm:"index;not null"`
	VariantName       string  `json:"variant_name" gorm:"size:255;not null"`
	Cost              float64 `json:"cost" gorm:"not null;default:0"`
	Price             float64 `json:"price" gorm:"not null;default:0"`
	Quantity          int64   `json:"quantity" gorm:"not null;default:0"`
	PostgresProductID *int64  `json:"postgres_product_id" gorm:"index"`
	PostgresStockID   *int64  `json:"postgres_stock_id" gorm:"uniqueIndex"`
}

// TableName table name
func (ItemVariant) TableName() string {
	return "item_variants"
}

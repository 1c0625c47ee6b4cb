package models

import (
	"math"
	"time"
)

// Transaction completed sale
type Transaction struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	TransactionDate time.Time `json:"transaction_date" gorm:"not null;index"`
	TotalAmount     float64   `json:"total_amount" gorm:"not null;default:0"`
	TotalCost       float64   `json:"total_cost" gorm:"not null;default:0"`
	PaymentMethod   string    `json:"payment_method" gorm:"size:20;not null;default:cash"`

	Items []TransactionItem `json:"-" gorm:"foreignKey:TransactionID"`
}

// TableName table name
func (Transaction) TableName() string {
	return "transactions"
}

// TransactionItem sold line. Names are a snapshot taken at sale time and are
// never updated when the source item or category changes.
type TransactionItem struct {
	ID            uint    `json:"id" gorm:"primaryKey"`
	TransactionID uint    `json:"transaction_id" gorm:"index;not null"`
	ItemID        uint    `json:"item_id" gorm:"index"`
	VariantID     *uint   `json:"variant_id" gorm:"index"`
	ItemName      string  `json:"item_name" gorm:"size:255"`
	CategoryName  string  `json:"category_name" gorm:"size:100;index"`
	VariantName   string  `json:"variant_name" gorm:"size:255"`
	Qty           int64   `json:"qty" gorm:"not null"`
	UnitPrice     float64 `json:"unit_price" gorm:"not null"`
	UnitCost      float64 `json:"unit_cost" gorm:"not null;default:0"`
	TotalPrice    float64 `json:"total_price" gorm:"not null"`
	TotalCost     float64 `json:"total_cost" gorm:"not null;default:0"`
}

// TableName table name
func (TransactionItem) TableName() string {
	return "transaction_items"
}

// ComputeTotals fills TotalPrice and TotalCost from quantity and unit values
func (ti *TransactionItem) ComputeTotals() {
	ti.TotalPrice = RoundMoney(float64(ti.Qty) * ti.UnitPrice)
	ti.TotalCost = RoundMoney(float64(ti.Qty) * ti.UnitCost)
}

// SumTotals returns the transaction totals of already computed lines
func SumTotals(lines []TransactionItem) (amount, cost float64) {
	for _, l := range lines {
		amount += l.TotalPrice
		cost += l.TotalCost
	}
	return RoundMoney(amount), RoundMoney(cost)
}

// RoundMoney rounds to cents
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

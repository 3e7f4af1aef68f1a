package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item categories.
const (
	CategorySparepart = "Sparepart"
	CategoryAccessory = "Accessory"
	CategorySoftware  = "Software"
	CategoryService   = "Service"
	CategoryOther     = "Other"
)

// InventoryItem is a stocked product. Stock is owned by the stock ledger:
// nothing outside the ledger repository methods writes the stock column.
type InventoryItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU           string          `gorm:"column:sku;type:varchar(50);uniqueIndex;not null"`
	Name          string          `gorm:"type:varchar(200);index;not null"`
	Category      string          `gorm:"type:varchar(20);not null;default:'Sparepart'"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Stock         int             `gorm:"not null;default:0"`
	MinStockAlert int             `gorm:"not null;default:5"`
	Description   *string         `gorm:"type:varchar(500)"`
	IsActive      bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (InventoryItem) TableName() string { return "inventory_items" }

// ProfitMargin returns (selling - purchase) / purchase as a percentage.
func (i *InventoryItem) ProfitMargin() decimal.Decimal {
	if i.PurchasePrice.IsZero() {
		return decimal.Zero
	}
	return i.SellingPrice.Sub(i.PurchasePrice).
		Div(i.PurchasePrice).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

func (i *InventoryItem) IsLowStock() bool {
	return i.Stock <= i.MinStockAlert
}

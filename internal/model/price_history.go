package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceHistory records every price edit of an inventory item. Rows are never
// updated or deleted.
type PriceHistory struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ItemID              uuid.UUID       `gorm:"type:uuid;not null;index"`
	PurchasePriceBefore decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PurchasePriceAfter  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	SellingPriceBefore  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	SellingPriceAfter   decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	ChangedBy           *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt           time.Time
}

func (PriceHistory) TableName() string { return "price_history" }

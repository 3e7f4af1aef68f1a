package model

import (
	"time"

	"github.com/google/uuid"
)

// Movement types recorded by the stock ledger.
const (
	MovementSale        = "sale"
	MovementServicePart = "service_part"
	MovementPartRemoved = "part_removed"
	MovementRefund      = "refund"
	MovementRestock     = "restock"
	MovementAdjustment  = "adjustment"
)

// StockMovement is one append-only ledger entry. Quantity is signed:
// positive for credits, negative for debits.
type StockMovement struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ItemID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Type        string    `gorm:"type:varchar(20);not null;index"`
	Quantity    int       `gorm:"not null"`
	StockBefore int       `gorm:"not null"`
	StockAfter  int       `gorm:"not null"`
	Reason      string
	ReferenceID *uuid.UUID `gorm:"type:uuid;index"`
	ActorID     *uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time

	Item *InventoryItem `gorm:"foreignKey:ItemID"`
}

func (StockMovement) TableName() string { return "stock_movements" }

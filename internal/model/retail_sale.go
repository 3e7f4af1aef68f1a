package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RetailSale is a completed checkout. Lines hold name and price snapshots taken
// at sale time and are never re-derived from the live item.
type RetailSale struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InvoiceNo     string          `gorm:"type:varchar(20);uniqueIndex;not null"`
	CashierID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	CashierName   string          `gorm:"not null"`
	GrandTotal    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PaymentMethod string          `gorm:"type:varchar(10);not null;index"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	ChangeDue     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CustomerEmail *string
	Notes         *string
	Date          time.Time `gorm:"not null;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Lines []RetailSaleLine `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

func (RetailSale) TableName() string { return "retail_sales" }

type RetailSaleLine struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position  int             `gorm:"not null"`
	ItemID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name      string          `gorm:"not null"`
	Qty       int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	LineTotal decimal.Decimal `gorm:"type:decimal(14,2);not null"`
}

func (RetailSaleLine) TableName() string { return "retail_sale_lines" }

package model

import (
	"time"

	"github.com/google/uuid"
)

// Receipt states.
const (
	ReceiptPending   = "pending"
	ReceiptGenerated = "generated"
	ReceiptEmailed   = "emailed"
	ReceiptFailed    = "failed"
)

// Receipt tracks the PDF rendered for a retail sale by the receipt worker.
type Receipt struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	InvoiceNo string    `gorm:"type:varchar(20);not null"`
	Status    string    `gorm:"type:varchar(20);not null;default:'pending'"`
	PDFPath   *string   `gorm:"column:pdf_path"`
	EmailedTo *string
	LastError *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Receipt) TableName() string { return "receipts" }

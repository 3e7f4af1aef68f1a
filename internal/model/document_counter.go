package model

// DocumentCounter holds the last number issued for a numbering scope such as
// "INV-202610" or "SRV-2026".
type DocumentCounter struct {
	Scope string `gorm:"type:varchar(20);primaryKey"`
	Value int64  `gorm:"not null;default:0"`
}

func (DocumentCounter) TableName() string { return "document_counters" }

package repository

import (
	"context"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReceiptRepository interface {
	// Upsert creates the receipt for a sale or overwrites the existing one.
	Upsert(ctx context.Context, rc *model.Receipt) error
	FindBySaleID(ctx context.Context, saleID uuid.UUID) (*model.Receipt, error)
	UpdateStatus(ctx context.Context, saleID uuid.UUID, status string, lastErr *string) error
}

type receiptRepo struct{ db *gorm.DB }

func NewReceiptRepository(db *gorm.DB) ReceiptRepository { return &receiptRepo{db: db} }

func (r *receiptRepo) Upsert(ctx context.Context, rc *model.Receipt) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sale_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "pdf_path", "emailed_to", "last_error", "updated_at"}),
	}).Create(rc).Error
}

func (r *receiptRepo) FindBySaleID(ctx context.Context, saleID uuid.UUID) (*model.Receipt, error) {
	var rc model.Receipt
	err := r.db.WithContext(ctx).Where("sale_id = ?", saleID).First(&rc).Error
	return &rc, err
}

func (r *receiptRepo) UpdateStatus(ctx context.Context, saleID uuid.UUID, status string, lastErr *string) error {
	return r.db.WithContext(ctx).Model(&model.Receipt{}).
		Where("sale_id = ?", saleID).
		Updates(map[string]interface{}{"status": status, "last_error": lastErr}).Error
}

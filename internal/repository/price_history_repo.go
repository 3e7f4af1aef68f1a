package repository

import (
	"context"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PriceHistoryRepository interface {
	Create(ctx context.Context, tx *gorm.DB, h *model.PriceHistory) error
	ListByItem(ctx context.Context, itemID uuid.UUID, page, limit int) ([]model.PriceHistory, int64, error)
}

type priceHistoryRepo struct{ db *gorm.DB }

func NewPriceHistoryRepository(db *gorm.DB) PriceHistoryRepository {
	return &priceHistoryRepo{db: db}
}

func (r *priceHistoryRepo) Create(ctx context.Context, tx *gorm.DB, h *model.PriceHistory) error {
	return conn(ctx, r.db, tx).Create(h).Error
}

func (r *priceHistoryRepo) ListByItem(ctx context.Context, itemID uuid.UUID, page, limit int) ([]model.PriceHistory, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&model.PriceHistory{}).Where("item_id = ?", itemID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.PriceHistory
	err := q.Order("created_at DESC").
		Offset(pageOffset(page, limit)).Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

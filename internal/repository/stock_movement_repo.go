package repository

import (
	"context"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MovementFilter defines filters for listing stock movements.
type MovementFilter struct {
	ItemID *uuid.UUID
	Type   string
	Page   int
	Limit  int
}

type StockMovementRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, m *model.StockMovement) error
	List(ctx context.Context, filter MovementFilter) ([]model.StockMovement, int64, error)
}

type stockMovementRepo struct{ db *gorm.DB }

func NewStockMovementRepository(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{db: db}
}

func (r *stockMovementRepo) CreateTx(ctx context.Context, tx *gorm.DB, m *model.StockMovement) error {
	return conn(ctx, r.db, tx).Omit(clause.Associations).Create(m).Error
}

func (r *stockMovementRepo) List(ctx context.Context, filter MovementFilter) ([]model.StockMovement, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.StockMovement{})
	if filter.ItemID != nil {
		q = q.Where("item_id = ?", *filter.ItemID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var movements []model.StockMovement
	err := q.Preload("Item").
		Order("created_at DESC").
		Offset(pageOffset(filter.Page, limit)).Limit(limit).
		Find(&movements).Error
	return movements, total, err
}

package repository

import (
	"context"
	"strings"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/dto"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository defines the data access contract for inventory items.
// Services depend on this interface, not on the concrete GORM implementation,
// so unit tests can swap in an in-memory stub.
//
// The stock column is written only by TryDebitTx and CreditTx.
type InventoryRepository interface {
	Create(ctx context.Context, tx *gorm.DB, item *model.InventoryItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error)
	FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.InventoryItem, error)
	FindBySKU(ctx context.Context, sku string) (*model.InventoryItem, error)
	List(ctx context.Context, filter dto.ItemFilter) ([]model.InventoryItem, int64, error)
	LowStock(ctx context.Context) ([]model.InventoryItem, error)
	// UpdateDetails writes every column except stock.
	UpdateDetails(ctx context.Context, tx *gorm.DB, item *model.InventoryItem) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	// TryDebitTx decrements stock by qty only if the item is active and holds
	// at least qty units. ok is false when no row matched; item then is nil.
	TryDebitTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) (item *model.InventoryItem, ok bool, err error)
	// CreditTx increments stock of an active item. ok is false when no row matched.
	CreditTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) (item *model.InventoryItem, ok bool, err error)
}

type inventoryRepo struct{ db *gorm.DB }

func NewInventoryRepository(db *gorm.DB) InventoryRepository { return &inventoryRepo{db: db} }

func (r *inventoryRepo) Create(ctx context.Context, tx *gorm.DB, item *model.InventoryItem) error {
	return conn(ctx, r.db, tx).Create(item).Error
}

func (r *inventoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	return r.FindByIDTx(ctx, nil, id)
}

func (r *inventoryRepo) FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := conn(ctx, r.db, tx).First(&item, "id = ?", id).Error
	return &item, err
}

func (r *inventoryRepo) FindBySKU(ctx context.Context, sku string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.WithContext(ctx).Where("sku = ?", strings.ToUpper(strings.TrimSpace(sku))).First(&item).Error
	return &item, err
}

func (r *inventoryRepo) List(ctx context.Context, filter dto.ItemFilter) ([]model.InventoryItem, int64, error) {
	var items []model.InventoryItem
	var total int64

	q := r.db.WithContext(ctx).Model(&model.InventoryItem{})

	// Active filter: "false" = inactive, "all" = everything, anything else = active only
	switch filter.Active {
	case "false":
		q = q.Where("is_active = false")
	case "all":
	default:
		q = q.Where("is_active = true")
	}

	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("name ILIKE ? OR sku ILIKE ?", like, like)
	}
	if filter.LowStock {
		q = q.Where("stock <= min_stock_alert")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("name ASC").
		Limit(filter.Limit).Offset(pageOffset(filter.Page, filter.Limit)).
		Find(&items).Error
	return items, total, err
}

func (r *inventoryRepo) LowStock(ctx context.Context) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := r.db.WithContext(ctx).
		Where("is_active = true AND stock <= min_stock_alert").
		Order("stock ASC, name ASC").
		Find(&items).Error
	return items, err
}

func (r *inventoryRepo) UpdateDetails(ctx context.Context, tx *gorm.DB, item *model.InventoryItem) error {
	return conn(ctx, r.db, tx).Model(item).
		Select("sku", "name", "category", "purchase_price", "selling_price", "min_stock_alert", "description", "updated_at").
		Updates(item).Error
}

func (r *inventoryRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).Model(&model.InventoryItem{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *inventoryRepo) TryDebitTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) (*model.InventoryItem, bool, error) {
	var item model.InventoryItem
	res := conn(ctx, r.db, tx).Model(&item).
		Clauses(clause.Returning{}).
		Where("id = ? AND is_active = true AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}
	return &item, true, nil
}

func (r *inventoryRepo) CreditTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) (*model.InventoryItem, bool, error) {
	var item model.InventoryItem
	res := conn(ctx, r.db, tx).Model(&item).
		Clauses(clause.Returning{}).
		Where("id = ? AND is_active = true", id).
		Update("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}
	return &item, true, nil
}

package repository

import (
	"context"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/dto"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleRepository interface {
	Create(ctx context.Context, tx *gorm.DB, s *model.RetailSale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.RetailSale, error)
	FindByInvoice(ctx context.Context, invoiceNo string) (*model.RetailSale, error)
	List(ctx context.Context, filter dto.SaleFilter) ([]model.RetailSale, int64, error)
	// DeleteTx locks the sale row, loads its lines and deletes it inside tx.
	// A concurrent DeleteTx of the same sale blocks on the lock and then
	// sees gorm.ErrRecordNotFound.
	DeleteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.RetailSale, error)
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func orderedLines(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

func (r *saleRepo) Create(ctx context.Context, tx *gorm.DB, s *model.RetailSale) error {
	return conn(ctx, r.db, tx).Create(s).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.RetailSale, error) {
	var s model.RetailSale
	err := r.db.WithContext(ctx).Preload("Lines", orderedLines).First(&s, "id = ?", id).Error
	return &s, err
}

func (r *saleRepo) FindByInvoice(ctx context.Context, invoiceNo string) (*model.RetailSale, error) {
	var s model.RetailSale
	err := r.db.WithContext(ctx).Preload("Lines", orderedLines).
		Where("invoice_no = ?", invoiceNo).First(&s).Error
	return &s, err
}

func (r *saleRepo) List(ctx context.Context, filter dto.SaleFilter) ([]model.RetailSale, int64, error) {
	var sales []model.RetailSale
	var total int64

	q := r.db.WithContext(ctx).Model(&model.RetailSale{})
	if filter.CashierID != "" {
		q = q.Where("cashier_id = ?", filter.CashierID)
	}
	if filter.PaymentMethod != "" {
		q = q.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.StartDate != "" {
		q = q.Where("DATE(date) >= ?", filter.StartDate)
	}
	if filter.EndDate != "" {
		q = q.Where("DATE(date) <= ?", filter.EndDate)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Lines", orderedLines).
		Order("date DESC").
		Offset(pageOffset(filter.Page, filter.Limit)).Limit(filter.Limit).
		Find(&sales).Error
	return sales, total, err
}

// DeleteTx removes the sale; its lines go with it through ON DELETE CASCADE.
func (r *saleRepo) DeleteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.RetailSale, error) {
	db := conn(ctx, r.db, tx)

	var s model.RetailSale
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines", orderedLines).
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	res := db.Delete(&model.RetailSale{}, "id = ?", id)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}
